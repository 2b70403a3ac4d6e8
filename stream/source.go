package stream

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
)

// PCMSource reads little-endian float32 mono samples from a reader, one
// frameSize block per frame. A short final block is returned padded with
// silence; io.EOF follows.
//
// Reads run on a background goroutine so ReadFrame returns as soon as its
// context is done even while the reader is stalled. Close stops the
// goroutine once the pending read returns and closes the reader if it is an
// io.Closer.
type PCMSource struct {
	r          *bufio.Reader
	closer     io.Closer
	frameSize  int
	sampleRate int

	startOnce sync.Once
	closeOnce sync.Once
	frames    chan pcmRead
	stop      chan struct{}
}

type pcmRead struct {
	frame Frame
	err   error
}

// NewPCMSource creates a source over r. If r is an io.Closer it is closed by
// Close.
func NewPCMSource(r io.Reader, frameSize, sampleRate int) *PCMSource {
	s := &PCMSource{
		r:          bufio.NewReaderSize(r, max(frameSize*4, 16)),
		frameSize:  frameSize,
		sampleRate: sampleRate,
		frames:     make(chan pcmRead),
		stop:       make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *PCMSource) Open(context.Context) error {
	if s.frameSize <= 0 || s.sampleRate <= 0 {
		return fmt.Errorf("invalid pcm source: frame size %d, sample rate %d", s.frameSize, s.sampleRate)
	}
	s.startOnce.Do(func() { go s.readLoop() })
	return nil
}

func (s *PCMSource) ReadFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	s.startOnce.Do(func() { go s.readLoop() })

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-s.stop:
		return Frame{}, io.ErrClosedPipe
	case res, ok := <-s.frames:
		if !ok {
			return Frame{}, io.EOF
		}
		return res.frame, res.err
	}
}

func (s *PCMSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}

// readLoop delivers blocks until the reader ends, fails or the source is
// closed. Errors are delivered once and end the loop.
func (s *PCMSource) readLoop() {
	defer close(s.frames)
	buf := make([]byte, s.frameSize*4)
	for {
		frame, err := s.readBlock(buf)
		if errors.Is(err, io.EOF) {
			return
		}
		select {
		case s.frames <- pcmRead{frame: frame, err: err}:
		case <-s.stop:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *PCMSource) readBlock(buf []byte) (Frame, error) {
	n, err := io.ReadFull(s.r, buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return Frame{}, err
	}
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Frame{}, err
	}

	samples := make([]float64, s.frameSize)
	for i := 0; i+4 <= n; i += 4 {
		samples[i/4] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i:])))
	}
	return Frame{Samples: samples, SampleRate: s.sampleRate}, nil
}

// BufferSource replays an in-memory recording as hop-spaced frames
type BufferSource struct {
	samples    []float64
	sampleRate int
	frameSize  int
	hopSize    int
	pos        int
}

// NewBufferSource creates a replay source over samples
func NewBufferSource(samples []float64, sampleRate, frameSize, hopSize int) *BufferSource {
	if hopSize <= 0 {
		hopSize = frameSize
	}
	return &BufferSource{
		samples:    samples,
		sampleRate: sampleRate,
		frameSize:  frameSize,
		hopSize:    hopSize,
	}
}

func (s *BufferSource) Open(context.Context) error {
	if s.frameSize <= 0 {
		return fmt.Errorf("invalid frame size %d", s.frameSize)
	}
	s.pos = 0
	return nil
}

func (s *BufferSource) ReadFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos+s.frameSize > len(s.samples) {
		return Frame{}, io.EOF
	}
	frame := make([]float64, s.frameSize)
	copy(frame, s.samples[s.pos:s.pos+s.frameSize])
	s.pos += s.hopSize
	return Frame{Samples: frame, SampleRate: s.sampleRate}, nil
}

func (s *BufferSource) Close() error { return nil }
