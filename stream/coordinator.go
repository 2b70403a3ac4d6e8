// Package stream runs live voice analysis: a per-tick frame loop feeding the
// pitch, formant and resonance estimators, a resilient outbound channel to a
// remote deep-analysis service, and a fixed-duration environment check.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/observe"
)

var (
	// ErrNotRunning is returned by Stop when no session is active
	ErrNotRunning = errors.New("coordinator is not running")
	// ErrAlreadyRunning is returned by Run while a session is active
	ErrAlreadyRunning = errors.New("coordinator is already running")
)

// State is the coordinator lifecycle state
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateError:
		return "error"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is the externally visible coordinator state. Message carries the
// capture failure when State is StateError.
type Status struct {
	State     State  `json:"state"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// FrameSource supplies captured frames. ReadFrame blocks until a frame is
// available and returns io.EOF when the input ends. It must return once ctx
// is done, since Stop waits for the loop to leave ReadFrame. Close may be
// called while a ReadFrame is still outstanding.
type FrameSource interface {
	Open(ctx context.Context) error
	ReadFrame(ctx context.Context) (Frame, error)
	Close() error
}

// Resetter is session state cleared when a session stops
type Resetter interface {
	Reset()
}

// Coordinator owns the per-frame analysis loop of one live session at a time.
// Each tick reads a frame, analyses it, forwards it to the outbound channel,
// merges the latest remote result and hands the snapshot to subscribers.
type Coordinator struct {
	source    FrameSource
	analyzer  *Analyzer
	outbound  *Outbound
	metrics   *observe.Metrics
	logger    logging.Logger
	now       func() time.Time
	tick      time.Duration
	resetters []Resetter

	subMu sync.RWMutex
	subs  []func(Snapshot)

	mu          sync.Mutex
	status      Status
	cancel      context.CancelFunc
	done        chan struct{}
	remote      *RemoteResult
	remoteFresh bool
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithOutbound forwards every frame to the remote channel
func WithOutbound(o *Outbound) Option {
	return func(c *Coordinator) { c.outbound = o }
}

// WithMetrics records frame timings
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the snapshot timestamp source
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithTickInterval paces the loop. Zero processes frames back to back as
// fast as the source delivers them.
func WithTickInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.tick = d }
}

// NewCoordinator creates an idle coordinator
func NewCoordinator(source FrameSource, cfg AnalyzerConfig, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:   source,
		analyzer: NewAnalyzer(cfg),
		logger:   logging.WithFields(logging.Fields{"component": "coordinator"}),
		now:      time.Now,
		status:   Status{State: StateIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn to receive every snapshot. Subscribers run on the
// loop goroutine and must not call Stop.
func (c *Coordinator) Subscribe(fn func(Snapshot)) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subs = append(c.subs, fn)
}

// RegisterResetter adds session state to clear on stop, such as a pattern
// classifier or coaching generator fed by a subscriber.
func (c *Coordinator) RegisterResetter(r Resetter) {
	c.resetters = append(c.resetters, r)
}

// Status returns the current state
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Run starts a session and blocks until ctx is cancelled, Stop is called or
// the source ends. A source that fails to open or read puts the coordinator
// in StateError with the failure message; Run still returns nil.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.status = Status{State: StateIdle, SessionID: uuid.NewString()}
	sessionID := c.status.SessionID
	c.mu.Unlock()

	logger := c.logger.WithFields(logging.Fields{"session_id": sessionID})
	defer func() {
		cancel()
		c.mu.Lock()
		c.cancel = nil
		c.done = nil
		c.mu.Unlock()
		close(done)
	}()

	if err := c.source.Open(ctx); err != nil {
		logger.Error(err, "Failed to open frame source")
		c.fail(fmt.Errorf("open source: %w", err))
		return nil
	}

	c.setState(StateRunning)
	if c.metrics != nil {
		c.metrics.ActiveSessions.Add(ctx, 1)
		defer c.metrics.ActiveSessions.Add(context.WithoutCancel(ctx), -1)
	}
	logger.Info("Session started")
	defer c.teardown(logger)

	var ticker *time.Ticker
	if c.tick > 0 {
		ticker = time.NewTicker(c.tick)
		defer ticker.Stop()
	}

	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		frame, err := c.source.ReadFrame(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			logger.Info("Frame source ended")
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			logger.Error(err, "Frame capture failed")
			c.fail(fmt.Errorf("read frame: %w", err))
			return nil
		}

		c.ProcessFrame(ctx, frame)
	}
}

// Stop cancels the running session and waits for it to release the source
// and reset all continuity state.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return ErrNotRunning
	}
	cancel()
	<-done
	return nil
}

// DeliverRemote merges a remote analysis result into the next snapshot.
// Safe to call from any goroutine.
func (c *Coordinator) DeliverRemote(res RemoteResult) {
	res.ReceivedAt = c.now()
	c.mu.Lock()
	c.remote = &res
	c.remoteFresh = true
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.RemoteResults.Add(context.Background(), 1)
	}
}

// ProcessFrame runs one tick synchronously: analyse, forward, merge, emit.
// It returns the snapshot handed to subscribers.
func (c *Coordinator) ProcessFrame(ctx context.Context, frame Frame) Snapshot {
	start := time.Now()
	snap := c.analyzer.Analyze(frame, c.now())

	if c.outbound != nil && len(frame.Samples) > 0 {
		pcm := make([]float64, len(frame.Samples))
		copy(pcm, frame.Samples)
		c.outbound.Send(ctx, Chunk{PCM: pcm, SampleRate: frame.SampleRate})
	}

	c.mu.Lock()
	if c.remote != nil {
		r := *c.remote
		snap.Remote = &r
	}
	snap.Live = !c.remoteFresh
	c.remoteFresh = false
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordFrame(ctx, time.Since(start).Seconds(), snap.HasPitch())
	}

	c.subMu.RLock()
	subs := c.subs
	c.subMu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

func (c *Coordinator) teardown(logger logging.Logger) {
	if err := c.source.Close(); err != nil {
		logger.Warn("Closing frame source failed", logging.Fields{"error": err.Error()})
	}
	c.reset()

	c.mu.Lock()
	if c.status.State != StateError {
		c.status.State = StateStopped
	}
	c.mu.Unlock()
	logger.Info("Session stopped")
}

func (c *Coordinator) reset() {
	c.analyzer.Reset()
	for _, r := range c.resetters {
		r.Reset()
	}
	c.mu.Lock()
	c.remote = nil
	c.remoteFresh = false
	c.mu.Unlock()
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.status.State = s
	c.mu.Unlock()
}

func (c *Coordinator) fail(err error) {
	c.mu.Lock()
	c.status.State = StateError
	c.status.Message = err.Error()
	c.mu.Unlock()
}
