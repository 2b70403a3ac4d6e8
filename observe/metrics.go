// Package observe provides OpenTelemetry metrics for the live analysis loop
// and the remote channel.
//
// Instruments live in [Metrics]. [NewExporter] binds them to a Prometheus
// registry for the /metrics endpoint; [DefaultMetrics] records to the global
// provider, which is a no-op unless one was installed.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/RyanBlaney/sonido-coach"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// TickDuration tracks the time spent analysing one frame.
	TickDuration metric.Float64Histogram

	// FramesAnalysed counts frames processed. Use with attribute:
	//   attribute.Bool("voiced", ...)
	FramesAnalysed metric.Int64Counter

	// ChunksSent counts outbound chunks written to the remote channel.
	ChunksSent metric.Int64Counter

	// ChunksBuffered counts chunks parked while the channel was down.
	ChunksBuffered metric.Int64Counter

	// ChunksDropped counts chunks discarded because the buffer was full.
	ChunksDropped metric.Int64Counter

	// ConnectionEvents counts channel transitions. Use with attribute:
	//   attribute.String("event", ...)
	ConnectionEvents metric.Int64Counter

	// RemoteResults counts deep-analysis results received.
	RemoteResults metric.Int64Counter

	// CoachingMessages counts surfaced messages. Use with attributes:
	//   attribute.String("category", ...), attribute.String("severity", ...)
	CoachingMessages metric.Int64Counter

	// ActiveSessions tracks running coordinator sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// tickBuckets are histogram bucket boundaries (in seconds) around the
// real-time budget of one frame.
var tickBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TickDuration, err = m.Float64Histogram("sonido.tick.duration",
		metric.WithDescription("Time spent analysing one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(tickBuckets...),
	); err != nil {
		return nil, err
	}

	if met.FramesAnalysed, err = m.Int64Counter("sonido.frames.analysed",
		metric.WithDescription("Total frames analysed by voicing."),
	); err != nil {
		return nil, err
	}
	if met.ChunksSent, err = m.Int64Counter("sonido.remote.chunks_sent",
		metric.WithDescription("Total outbound chunks written to the remote channel."),
	); err != nil {
		return nil, err
	}
	if met.ChunksBuffered, err = m.Int64Counter("sonido.remote.chunks_buffered",
		metric.WithDescription("Total outbound chunks buffered while disconnected."),
	); err != nil {
		return nil, err
	}
	if met.ChunksDropped, err = m.Int64Counter("sonido.remote.chunks_dropped",
		metric.WithDescription("Total outbound chunks dropped on a full buffer."),
	); err != nil {
		return nil, err
	}
	if met.ConnectionEvents, err = m.Int64Counter("sonido.remote.connection_events",
		metric.WithDescription("Remote channel transitions by event."),
	); err != nil {
		return nil, err
	}
	if met.RemoteResults, err = m.Int64Counter("sonido.remote.results",
		metric.WithDescription("Deep-analysis results received."),
	); err != nil {
		return nil, err
	}
	if met.CoachingMessages, err = m.Int64Counter("sonido.coaching.messages",
		metric.WithDescription("Coaching messages surfaced by category and severity."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("sonido.active_sessions",
		metric.WithDescription("Number of running analysis sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider].
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrame records one analysed frame and its processing time.
func (m *Metrics) RecordFrame(ctx context.Context, seconds float64, voiced bool) {
	m.TickDuration.Record(ctx, seconds)
	m.FramesAnalysed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("voiced", voiced)))
}

// RecordConnectionEvent records a remote channel transition.
func (m *Metrics) RecordConnectionEvent(ctx context.Context, event string) {
	m.ConnectionEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

// RecordCoachingMessage records a surfaced coaching message.
func (m *Metrics) RecordCoachingMessage(ctx context.Context, category, severity string) {
	m.CoachingMessages.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("category", category),
			attribute.String("severity", severity),
		),
	)
}
