package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/observe"
)

// Default outbound channel limits
const (
	DefaultBufferCapacity = 50
	DefaultEventLogSize   = 10
)

// Chunk is one outbound block of samples for the remote analysis service
type Chunk struct {
	PCM        []float64 `json:"pcm"`
	SampleRate int       `json:"sampleRate"`
}

// Transport delivers a chunk over an open connection
type Transport interface {
	Send(ctx context.Context, chunk Chunk) error
}

// EventType names a remote channel transition
type EventType string

const (
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventReconnecting EventType = "reconnecting"
	EventFlushed      EventType = "flushed"
)

// ConnectionEvent is one entry in the connection log
type ConnectionEvent struct {
	Type   EventType `json:"type"`
	At     time.Time `json:"at"`
	Detail string    `json:"detail,omitempty"`
}

// EventLog is a bounded ring of connection events. The zero value is not
// usable; create one with NewEventLog.
type EventLog struct {
	mu     sync.Mutex
	events []ConnectionEvent
	size   int
}

// NewEventLog creates a log that keeps the last size events
func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = DefaultEventLogSize
	}
	return &EventLog{
		events: make([]ConnectionEvent, 0, size),
		size:   size,
	}
}

// Record appends an event, evicting the oldest when full
func (l *EventLog) Record(ev ConnectionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == l.size {
		copy(l.events, l.events[1:])
		l.events = l.events[:l.size-1]
	}
	l.events = append(l.events, ev)
}

// Events returns the retained events, oldest first
func (l *EventLog) Events() []ConnectionEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ConnectionEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Outbound is the resilient sending side of the remote channel. While a
// transport is attached every chunk is sent immediately; while detached,
// chunks queue in a bounded FIFO and chunks arriving at a full queue are
// dropped. Attaching a transport flushes the queue in order before any new
// chunk goes out.
//
// All methods are safe for concurrent use. One lock serializes live sends and
// flushes so they never interleave on the wire.
type Outbound struct {
	mu        sync.Mutex
	transport Transport
	queue     []Chunk
	capacity  int
	dropped   int

	events  *EventLog
	metrics *observe.Metrics
	logger  logging.Logger
	now     func() time.Time
}

// OutboundOption configures an Outbound
type OutboundOption func(*Outbound)

// WithOutboundMetrics records sends, buffering, drops and transitions
func WithOutboundMetrics(m *observe.Metrics) OutboundOption {
	return func(o *Outbound) { o.metrics = m }
}

// WithOutboundLogger sets the logger
func WithOutboundLogger(l logging.Logger) OutboundOption {
	return func(o *Outbound) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOutboundClock overrides the event timestamp source
func WithOutboundClock(now func() time.Time) OutboundOption {
	return func(o *Outbound) { o.now = now }
}

// NewOutbound creates a detached outbound channel
func NewOutbound(capacity, eventLogSize int, opts ...OutboundOption) *Outbound {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	o := &Outbound{
		queue:    make([]Chunk, 0, capacity),
		capacity: capacity,
		events:   NewEventLog(eventLogSize),
		logger:   logging.WithFields(logging.Fields{"component": "outbound"}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Send transmits chunk, or queues it while detached. A failed live send
// detaches the transport and queues the chunk; it is not reported as an error
// because an unavailable channel only delays delivery.
func (o *Outbound) Send(ctx context.Context, chunk Chunk) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.transport != nil {
		err := o.transport.Send(ctx, chunk)
		if err == nil {
			if o.metrics != nil {
				o.metrics.ChunksSent.Add(ctx, 1)
			}
			return
		}
		o.logger.Warn("Live send failed, buffering", logging.Fields{"error": err.Error()})
		o.detachLocked(ctx, err.Error())
	}

	if len(o.queue) >= o.capacity {
		o.dropped++
		if o.metrics != nil {
			o.metrics.ChunksDropped.Add(ctx, 1)
		}
		return
	}
	o.queue = append(o.queue, chunk)
	if o.metrics != nil {
		o.metrics.ChunksBuffered.Add(ctx, 1)
	}
}

// Attach connects a transport and flushes the queue through it. If the flush
// fails part way, the unsent chunks stay queued in order, the transport is
// detached again and the error is returned.
func (o *Outbound) Attach(ctx context.Context, t Transport) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.transport = t
	o.recordLocked(ctx, EventConnected, "")

	pending := len(o.queue)
	for i, chunk := range o.queue {
		if err := t.Send(ctx, chunk); err != nil {
			o.queue = append(o.queue[:0], o.queue[i:]...)
			o.detachLocked(ctx, err.Error())
			return fmt.Errorf("flush after %d of %d chunks: %w", i, pending, err)
		}
	}
	if o.metrics != nil && pending > 0 {
		o.metrics.ChunksSent.Add(ctx, int64(pending))
	}
	o.queue = o.queue[:0]

	if pending > 0 {
		o.recordLocked(ctx, EventFlushed, fmt.Sprintf("%d chunks", pending))
		o.logger.Info("Flushed buffered chunks", logging.Fields{"chunks": pending})
	}
	return nil
}

// Detach drops the transport; later chunks are queued
func (o *Outbound) Detach(ctx context.Context, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.transport == nil {
		return
	}
	o.detachLocked(ctx, reason)
}

// NoteReconnecting records a reconnect attempt in the event log
func (o *Outbound) NoteReconnecting(ctx context.Context, detail string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recordLocked(ctx, EventReconnecting, detail)
}

func (o *Outbound) detachLocked(ctx context.Context, reason string) {
	o.transport = nil
	o.recordLocked(ctx, EventDisconnected, reason)
}

func (o *Outbound) recordLocked(ctx context.Context, t EventType, detail string) {
	o.events.Record(ConnectionEvent{Type: t, At: o.now(), Detail: detail})
	if o.metrics != nil {
		o.metrics.RecordConnectionEvent(ctx, string(t))
	}
}

// Connected reports whether a transport is attached
func (o *Outbound) Connected() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transport != nil
}

// Buffered returns the number of queued chunks
func (o *Outbound) Buffered() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Dropped returns how many chunks were discarded on a full queue
func (o *Outbound) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Events returns the connection log, oldest first
func (o *Outbound) Events() []ConnectionEvent {
	return o.events.Events()
}
