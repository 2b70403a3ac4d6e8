package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/RyanBlaney/sonido-coach/logging"
)

// Default reconnection parameters.
const (
	defaultReconnectBase = 500 * time.Millisecond
	defaultReconnectMax  = 30 * time.Second
)

// RemoteResult is a deep-analysis reading pushed by the remote service.
// ReceivedAt is stamped locally on arrival.
type RemoteResult struct {
	Quality     float64   `json:"quality"`
	Breathiness float64   `json:"breathiness"`
	Roughness   float64   `json:"roughness"`
	Strain      float64   `json:"strain"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// WSRemoteConfig configures a [WSRemote].
type WSRemoteConfig struct {
	// URL is the ws:// or wss:// endpoint of the analysis service.
	URL string

	// Outbound receives the transport whenever a connection is up.
	Outbound *Outbound

	// OnResult is called from the read loop for every inbound result.
	// May be nil.
	OnResult func(RemoteResult)

	// ReconnectBase is the initial backoff. Doubles each failed attempt up to
	// ReconnectMax. Defaults to 500ms and 30s.
	ReconnectBase time.Duration
	ReconnectMax  time.Duration

	// MaxRetries bounds consecutive failed attempts. Zero retries forever.
	MaxRetries int

	Logger logging.Logger
}

// WSRemote keeps a websocket connection to the deep-analysis service alive.
// Chunks are written by the [Outbound] through the current connection while it
// is up; results are read back and handed to OnResult.
type WSRemote struct {
	url        string
	outbound   *Outbound
	onResult   func(RemoteResult)
	base       time.Duration
	maxBackoff time.Duration
	maxRetries int
	logger     logging.Logger
}

// NewWSRemote creates a remote client. It does not connect until Run.
func NewWSRemote(cfg WSRemoteConfig) (*WSRemote, error) {
	if cfg.URL == "" {
		return nil, errors.New("stream: remote URL must not be empty")
	}
	if cfg.Outbound == nil {
		return nil, errors.New("stream: remote needs an outbound channel")
	}
	base := cfg.ReconnectBase
	if base <= 0 {
		base = defaultReconnectBase
	}
	maxBackoff := cfg.ReconnectMax
	if maxBackoff <= 0 {
		maxBackoff = defaultReconnectMax
	}
	logger := logging.OrGlobal(cfg.Logger).WithFields(logging.Fields{
		"component": "ws_remote",
		"url":       cfg.URL,
	})
	return &WSRemote{
		url:        cfg.URL,
		outbound:   cfg.Outbound,
		onResult:   cfg.OnResult,
		base:       base,
		maxBackoff: maxBackoff,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}, nil
}

// Run connects and reconnects until ctx is cancelled. It returns nil on
// cancellation and an error only when MaxRetries consecutive attempts fail.
func (r *WSRemote) Run(ctx context.Context) error {
	backoff := r.base
	failures := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		connected, err := r.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = r.base
			failures = 0
		} else {
			failures++
			r.logger.Warn("Remote connection attempt failed", logging.Fields{
				"attempt": failures,
				"error":   err.Error(),
			})
			if r.maxRetries > 0 && failures >= r.maxRetries {
				return fmt.Errorf("stream: remote unreachable after %d attempts: %w", failures, err)
			}
		}

		r.outbound.NoteReconnecting(ctx, fmt.Sprintf("retry in %s", backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}
}

// session dials once and serves the connection until it drops. connected
// reports whether the dial and flush succeeded.
func (r *WSRemote) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := websocket.Dial(ctx, r.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	if err := r.outbound.Attach(ctx, &wsTransport{conn: conn}); err != nil {
		return false, err
	}
	r.logger.Info("Remote connected")

	err = r.readLoop(ctx, conn)
	reason := "read failed"
	if err != nil {
		reason = err.Error()
	}
	r.outbound.Detach(ctx, reason)
	r.logger.Info("Remote disconnected", logging.Fields{"reason": reason})

	conn.Close(websocket.StatusNormalClosure, "")
	return true, err
}

func (r *WSRemote) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var res RemoteResult
		if err := wsjson.Read(ctx, conn, &res); err != nil {
			return err
		}
		if r.onResult != nil {
			r.onResult(res)
		}
	}
}

// wsTransport writes chunks as JSON text messages
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) Send(ctx context.Context, chunk Chunk) error {
	return wsjson.Write(ctx, t.conn, chunk)
}
