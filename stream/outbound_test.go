package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingTransport captures sent chunks and can fail on a given send.
type recordingTransport struct {
	mu     sync.Mutex
	chunks []Chunk
	failAt int // 1-based send index that fails; 0 never fails
	sends  int
}

func (t *recordingTransport) Send(_ context.Context, c Chunk) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends++
	if t.failAt > 0 && t.sends == t.failAt {
		return errors.New("connection reset")
	}
	t.chunks = append(t.chunks, c)
	return nil
}

func (t *recordingTransport) rates() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int, len(t.chunks))
	for i, c := range t.chunks {
		out[i] = c.SampleRate
	}
	return out
}

// chunk tags each test chunk through its sample rate for order checks.
func chunk(tag int) Chunk {
	return Chunk{PCM: []float64{float64(tag)}, SampleRate: tag}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOutbound_BuffersWhileDetached(t *testing.T) {
	ctx := context.Background()
	o := NewOutbound(5, 10)

	for i := 1; i <= 3; i++ {
		o.Send(ctx, chunk(i))
	}

	if o.Connected() {
		t.Error("expected detached outbound")
	}
	if got := o.Buffered(); got != 3 {
		t.Errorf("Buffered() = %d, want 3", got)
	}
	if got := o.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d, want 0", got)
	}
}

func TestOutbound_DropsNewestWhenFull(t *testing.T) {
	ctx := context.Background()
	o := NewOutbound(2, 10)

	for i := 1; i <= 4; i++ {
		o.Send(ctx, chunk(i))
	}
	if got := o.Buffered(); got != 2 {
		t.Fatalf("Buffered() = %d, want 2", got)
	}
	if got := o.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}

	tr := &recordingTransport{}
	if err := o.Attach(ctx, tr); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if got := tr.rates(); !equalInts(got, []int{1, 2}) {
		t.Errorf("flushed %v, want the two oldest chunks [1 2]", got)
	}
}

func TestOutbound_FlushesInOrderOnAttach(t *testing.T) {
	ctx := context.Background()
	o := NewOutbound(50, 10)
	for i := 1; i <= 3; i++ {
		o.Send(ctx, chunk(i))
	}

	tr := &recordingTransport{}
	if err := o.Attach(ctx, tr); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if got := o.Buffered(); got != 0 {
		t.Errorf("Buffered() after flush = %d, want 0", got)
	}
	if got := tr.rates(); !equalInts(got, []int{1, 2, 3}) {
		t.Errorf("flushed %v, want [1 2 3]", got)
	}

	o.Send(ctx, chunk(4))
	if got := tr.rates(); !equalInts(got, []int{1, 2, 3, 4}) {
		t.Errorf("after live send %v, want [1 2 3 4]", got)
	}

	events := o.Events()
	if len(events) != 2 || events[0].Type != EventConnected || events[1].Type != EventFlushed {
		t.Errorf("events = %+v, want connected then flushed", events)
	}
}

func TestOutbound_FlushFailureKeepsRemainder(t *testing.T) {
	ctx := context.Background()
	o := NewOutbound(50, 10)
	for i := 1; i <= 3; i++ {
		o.Send(ctx, chunk(i))
	}

	tr := &recordingTransport{failAt: 2}
	if err := o.Attach(ctx, tr); err == nil {
		t.Fatal("expected flush error")
	}
	if o.Connected() {
		t.Error("expected outbound to detach after flush failure")
	}
	if got := o.Buffered(); got != 2 {
		t.Errorf("Buffered() = %d, want 2", got)
	}

	retry := &recordingTransport{}
	if err := o.Attach(ctx, retry); err != nil {
		t.Fatalf("second Attach: %v", err)
	}
	if got := retry.rates(); !equalInts(got, []int{2, 3}) {
		t.Errorf("retry flushed %v, want [2 3]", got)
	}
}

func TestOutbound_LiveSendFailureBuffers(t *testing.T) {
	ctx := context.Background()
	o := NewOutbound(50, 10)
	tr := &recordingTransport{failAt: 2}
	if err := o.Attach(ctx, tr); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	o.Send(ctx, chunk(1))
	o.Send(ctx, chunk(2))
	o.Send(ctx, chunk(3))

	if o.Connected() {
		t.Error("expected detach after failed live send")
	}
	if got := o.Buffered(); got != 2 {
		t.Errorf("Buffered() = %d, want 2", got)
	}
}

func TestOutbound_Detach(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	o := NewOutbound(50, 10, WithOutboundClock(func() time.Time { return now }))

	o.Detach(ctx, "noop")
	if len(o.Events()) != 0 {
		t.Error("detaching a detached outbound should not log an event")
	}

	_ = o.Attach(ctx, &recordingTransport{})
	o.Detach(ctx, "server closed")

	events := o.Events()
	last := events[len(events)-1]
	if last.Type != EventDisconnected || last.Detail != "server closed" || !last.At.Equal(now) {
		t.Errorf("last event = %+v", last)
	}
}

func TestEventLog_KeepsMostRecent(t *testing.T) {
	l := NewEventLog(3)
	for _, typ := range []EventType{EventConnected, EventDisconnected, EventReconnecting, EventConnected, EventFlushed} {
		l.Record(ConnectionEvent{Type: typ})
	}

	events := l.Events()
	want := []EventType{EventReconnecting, EventConnected, EventFlushed}
	if len(events) != len(want) {
		t.Fatalf("len = %d, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, ev.Type, want[i])
		}
	}
}
