// Package observe provides application-wide observability primitives for
// Irisvox: OpenTelemetry metrics, distributed tracing, and the provider
// wiring that exposes them over Prometheus.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Irisvox metrics.
const meterName = "github.com/irisvox/irisvox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ConnectDuration tracks transport connection establishment latency.
	ConnectDuration metric.Float64Histogram

	// SessionDuration tracks the wall-clock lifetime of completed sessions.
	SessionDuration metric.Float64Histogram

	// --- Counters ---

	// AudioChunksSent counts outbound microphone chunks submitted to the
	// transport.
	AudioChunksSent metric.Int64Counter

	// VideoFramesSent counts outbound camera frames submitted to the
	// transport.
	VideoFramesSent metric.Int64Counter

	// DroppedSends counts outbound chunks whose send failed and was
	// discarded. Use with attribute:
	//   attribute.String("pipeline", "audio"|"video")
	DroppedSends metric.Int64Counter

	// PlaybackBuffers counts inbound audio buffers handed to the playback
	// scheduler.
	PlaybackBuffers metric.Int64Counter

	// Interruptions counts server-initiated barge-in events.
	Interruptions metric.Int64Counter

	// TransportErrors counts session-ending transport errors.
	TransportErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live assistant sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for connection-establishment latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// sessionBuckets defines histogram bucket boundaries (in seconds) for whole
// session lifetimes.
var sessionBuckets = []float64{
	1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ConnectDuration, err = m.Float64Histogram("irisvox.transport.connect.duration",
		metric.WithDescription("Latency of transport connection establishment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("irisvox.session.duration",
		metric.WithDescription("Wall-clock lifetime of completed sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sessionBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.AudioChunksSent, err = m.Int64Counter("irisvox.audio.chunks_sent",
		metric.WithDescription("Total outbound microphone chunks submitted to the transport."),
	); err != nil {
		return nil, err
	}
	if met.VideoFramesSent, err = m.Int64Counter("irisvox.video.frames_sent",
		metric.WithDescription("Total outbound camera frames submitted to the transport."),
	); err != nil {
		return nil, err
	}
	if met.DroppedSends, err = m.Int64Counter("irisvox.transport.dropped_sends",
		metric.WithDescription("Total outbound chunks discarded after a send failure, by pipeline."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackBuffers, err = m.Int64Counter("irisvox.playback.buffers",
		metric.WithDescription("Total inbound audio buffers scheduled for playback."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("irisvox.playback.interruptions",
		metric.WithDescription("Total server-initiated barge-in interruptions."),
	); err != nil {
		return nil, err
	}
	if met.TransportErrors, err = m.Int64Counter("irisvox.transport.errors",
		metric.WithDescription("Total session-ending transport errors."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("irisvox.active_sessions",
		metric.WithDescription("Number of live assistant sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordDroppedSend records a discarded outbound chunk for the given
// pipeline ("audio" or "video").
func (m *Metrics) RecordDroppedSend(ctx context.Context, pipeline string) {
	m.DroppedSends.Add(ctx, 1,
		metric.WithAttributes(attribute.String("pipeline", pipeline)),
	)
}
