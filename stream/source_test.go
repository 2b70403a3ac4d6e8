package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"
)

// stuckSource blocks in ReadFrame until released, ignoring its context
type stuckSource struct{ release chan struct{} }

func (s *stuckSource) Open(context.Context) error { return nil }
func (s *stuckSource) ReadFrame(context.Context) (Frame, error) {
	<-s.release
	return Frame{}, io.EOF
}
func (s *stuckSource) Close() error { return nil }

func TestPCMSource_ReadFrameReturnsOnDeadline(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewPCMSource(pr, 4, 8000)
	if err := src.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := src.ReadFrame(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ReadFrame on a stalled pipe = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("ReadFrame took %v after a 50ms deadline", elapsed)
	}

	// A block that arrives later is still delivered in order.
	go func() {
		_ = binary.Write(pw, binary.LittleEndian, []float32{0.25, 0.5, 0.75, 1})
	}()
	frame, err := src.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame after data arrived: %v", err)
	}
	if math.Abs(frame.Samples[2]-0.75) > 1e-6 {
		t.Errorf("samples = %v, want [0.25 0.5 0.75 1]", frame.Samples)
	}
}

func TestPCMSource_DiagnoseStalledPipe(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewPCMSource(pr, 256, 16000)

	start := time.Now()
	d, err := Diagnose(context.Background(), src, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Diagnose resolved %v after start, want about 100ms", elapsed)
	}
	if d.Frames != 0 || !strings.Contains(d.Message, "No audio") {
		t.Errorf("got %+v, want an empty no-audio result", d)
	}
	if _, err := pw.Write([]byte{0, 0, 0, 0}); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("write after Diagnose = %v, want the pipe closed", err)
	}
}

func TestPCMSource_StopStalledPipe(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	c := NewCoordinator(NewPCMSource(pr, 256, 16000), DefaultAnalyzerConfig())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for c.Status().State != StateRunning {
		if time.Now().After(deadline) {
			t.Fatal("coordinator never reached running")
		}
		time.Sleep(time.Millisecond)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- c.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a stalled reader")
	}

	if err := <-errCh; err != nil {
		t.Errorf("Run returned %v", err)
	}
	if st := c.Status(); st.State != StateStopped {
		t.Errorf("state = %s, want stopped", st.State)
	}
	if _, err := pw.Write([]byte{0, 0, 0, 0}); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("write after Stop = %v, want the pipe closed", err)
	}
}

func TestDiagnose_StuckSource(t *testing.T) {
	src := &stuckSource{release: make(chan struct{})}
	t.Cleanup(func() { close(src.release) })

	start := time.Now()
	d, err := Diagnose(context.Background(), src, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Diagnose resolved %v after start, want about 50ms", elapsed)
	}
	if d.Frames != 0 {
		t.Errorf("frames = %d, want 0", d.Frames)
	}
}
