package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-coach/coaching"
	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/observe"
	"github.com/RyanBlaney/sonido-coach/pattern"
	"github.com/RyanBlaney/sonido-coach/stream"
	"github.com/RyanBlaney/sonido-coach/transcode"
)

// liveEvent is one JSON line of live output
type liveEvent struct {
	Type     string            `json:"type"`
	Snapshot *stream.Snapshot  `json:"snapshot,omitempty"`
	Pattern  *pattern.State    `json:"pattern,omitempty"`
	Coaching *coaching.Message `json:"coaching,omitempty"`
	Summary  *coaching.Summary `json:"summary,omitempty"`
	Status   *stream.Status    `json:"status,omitempty"`
}

// coachingSession ends the generator's session when the coordinator resets
// session state, keeping the summary for the caller
type coachingSession struct {
	gen     *coaching.Generator
	summary coaching.Summary
}

func (c *coachingSession) Reset() {
	if c.gen.Active() {
		c.summary = c.gen.EndSession()
	}
}

func runLive(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("live", flag.ContinueOnError)
	file := fs.String("file", "", "replay a recording instead of reading PCM from stdin")
	snapshots := fs.Bool("snapshots", false, "print every analysis snapshot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := a.cfg

	metrics, exporter, shutdownMetrics, err := a.setupMetrics()
	if err != nil {
		return err
	}
	defer shutdownMetrics()

	source, tick, err := a.liveSource(ctx, *file)
	if err != nil {
		return err
	}

	outbound := stream.NewOutbound(cfg.Stream.BufferCapacity, cfg.Stream.EventLogSize,
		stream.WithOutboundMetrics(metrics),
		stream.WithOutboundLogger(a.logger),
	)

	opts := []stream.Option{
		stream.WithMetrics(metrics),
		stream.WithLogger(a.logger),
		stream.WithTickInterval(tick),
	}
	if cfg.Stream.RemoteURL != "" {
		opts = append(opts, stream.WithOutbound(outbound))
	}
	coord := stream.NewCoordinator(source, stream.AnalyzerConfig{
		TargetRate:     cfg.Analysis.TargetRate,
		YinThreshold:   cfg.Analysis.YinThreshold,
		RMSGate:        cfg.Analysis.RMSGate,
		ConfidenceGate: cfg.Analysis.ConfidenceGate,
	}, opts...)

	classifier := pattern.NewClassifier()
	gen := coaching.NewGenerator(coaching.Config{
		PitchMin:           cfg.Coaching.PitchMin,
		PitchMax:           cfg.Coaching.PitchMax,
		Cooldown:           cfg.Coaching.Cooldown,
		EncouragementAfter: cfg.Coaching.EncouragementAfter,
		EncouragementEvery: cfg.Coaching.EncouragementEvery,
	}, coaching.WithLogger(a.logger), coaching.WithMetrics(metrics))
	session := &coachingSession{gen: gen}
	coord.RegisterResetter(classifier)
	coord.RegisterResetter(session)

	enc := json.NewEncoder(a.stdout)
	emit := func(ev liveEvent) {
		if err := enc.Encode(ev); err != nil {
			a.logger.Warn("Failed to write live output", logging.Fields{"error": err.Error()})
		}
	}

	lastPattern := pattern.None
	var lastPoll time.Time
	coord.Subscribe(func(s stream.Snapshot) {
		if !gen.Active() {
			gen.StartSession()
			lastPoll = s.Timestamp
		}
		if *snapshots {
			emit(liveEvent{Type: "snapshot", Snapshot: &s})
		}
		if !s.HasPitch() {
			return
		}

		if state := classifier.Update(s.Pitch, s.Resonance); state.Type != lastPattern {
			lastPattern = state.Type
			emit(liveEvent{Type: "pattern", Pattern: &state})
		}

		m := coaching.Metrics{
			Pitch:        s.Pitch,
			Resonance:    s.Resonance,
			VocalWeight:  s.VocalWeight,
			SpectralTilt: s.SpectralTilt,
		}
		if s.Timestamp.Sub(lastPoll) < cfg.Coaching.PollInterval {
			gen.Record(m)
			return
		}
		lastPoll = s.Timestamp
		if msg := gen.Evaluate(m); msg != nil {
			emit(liveEvent{Type: "coaching", Coaching: msg})
		}
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		// The input ending finishes the whole session.
		defer cancel()
		return coord.Run(gctx)
	})

	if cfg.Stream.RemoteURL != "" {
		remote, err := stream.NewWSRemote(stream.WSRemoteConfig{
			URL:           cfg.Stream.RemoteURL,
			Outbound:      outbound,
			OnResult:      coord.DeliverRemote,
			ReconnectBase: cfg.Stream.ReconnectBase,
			ReconnectMax:  cfg.Stream.ReconnectMax,
			Logger:        a.logger,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return remote.Run(gctx) })
	}

	if exporter != nil {
		g.Go(func() error { return serveMetrics(gctx, cfg.Observe.MetricsAddr, exporter.Handler(), a.logger) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	status := coord.Status()
	emit(liveEvent{Type: "status", Status: &status})
	emit(liveEvent{Type: "summary", Summary: &session.summary})

	if outbound.Dropped() > 0 {
		a.logger.Warn("Remote buffer overflowed while disconnected", logging.Fields{
			"dropped_chunks": outbound.Dropped(),
		})
	}
	if status.State == stream.StateError {
		return fmt.Errorf("capture failed: %s", status.Message)
	}
	return nil
}

// liveSource returns the frame source and tick pacing for live mode. Stdin
// paces itself; a replayed recording ticks at the configured interval.
func (a *app) liveSource(ctx context.Context, file string) (stream.FrameSource, time.Duration, error) {
	cfg := a.cfg
	if file == "" {
		return stream.NewPCMSource(a.stdin, cfg.Analysis.FrameSize, cfg.Analysis.SampleRate), 0, nil
	}

	audio, err := transcode.NewDecoder(&cfg.Decoder).DecodeFile(ctx, file)
	if err != nil {
		return nil, 0, err
	}
	a.logger.Info("Replaying recording", logging.Fields{
		"file":        file,
		"sample_rate": audio.SampleRate,
		"duration":    audio.Duration.String(),
	})
	src := stream.NewBufferSource(audio.PCM, audio.SampleRate, cfg.Analysis.FrameSize, cfg.Analysis.HopSize)
	return src, cfg.Stream.TickInterval, nil
}

// setupMetrics returns the instruments to record to. When a metrics address
// is configured it also returns the exporter that serves them.
func (a *app) setupMetrics() (*observe.Metrics, *observe.Exporter, func(), error) {
	noop := func() {}
	if a.cfg.Observe.MetricsAddr == "" {
		return observe.DefaultMetrics(), nil, noop, nil
	}

	exp, err := observe.NewExporter(observe.DefaultServiceName, "")
	if err != nil {
		return nil, nil, noop, fmt.Errorf("init metrics: %w", err)
	}
	return exp.Metrics, exp, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := exp.Shutdown(ctx); err != nil {
			a.logger.Warn("Metrics shutdown failed", logging.Fields{"error": err.Error()})
		}
	}, nil
}
