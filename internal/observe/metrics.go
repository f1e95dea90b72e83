// Package observe provides application-wide observability primitives for the
// social-story server: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
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

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/LiorLearning/social-story"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SynthesisDuration tracks narration synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// EngineRestarts counts recognition engine restarts. Use with attribute:
	//   attribute.String("reason", ...)
	EngineRestarts metric.Int64Counter

	// EngineErrors counts recognition engine errors. Use with attributes:
	//   attribute.String("code", ...), attribute.String("class", ...)
	EngineErrors metric.Int64Counter

	// SessionsStarted counts logical listening sessions started.
	SessionsStarted metric.Int64Counter

	// ProviderErrors counts synthesis provider errors. Use with attribute:
	//   attribute.String("provider", ...)
	ProviderErrors metric.Int64Counter

	// ReadingAccuracy distributes final per-attempt accuracy percentages.
	ReadingAccuracy metric.Float64Histogram

	// ActiveSessions tracks the number of live listening sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveWSConnections tracks open websocket connections.
	ActiveWSConnections metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// request and synthesis latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// accuracyBuckets defines histogram bucket boundaries (in percent) for
// reading-accuracy scores.
var accuracyBuckets = []float64{
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthesisDuration, err = m.Float64Histogram("social_story.synthesis.duration",
		metric.WithDescription("Latency of narration synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ReadingAccuracy, err = m.Float64Histogram("social_story.reading.accuracy",
		metric.WithDescription("Distribution of final reading-accuracy scores."),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(accuracyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("social_story.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.EngineRestarts, err = m.Int64Counter("social_story.engine.restarts",
		metric.WithDescription("Total recognition engine restarts by reason."),
	); err != nil {
		return nil, err
	}
	if met.EngineErrors, err = m.Int64Counter("social_story.engine.errors",
		metric.WithDescription("Total recognition engine errors by code and class."),
	); err != nil {
		return nil, err
	}
	if met.SessionsStarted, err = m.Int64Counter("social_story.sessions.started",
		metric.WithDescription("Total logical listening sessions started."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("social_story.provider.errors",
		metric.WithDescription("Total synthesis provider errors by provider."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("social_story.active_sessions",
		metric.WithDescription("Number of live listening sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveWSConnections, err = m.Int64UpDownCounter("social_story.active_ws_connections",
		metric.WithDescription("Number of open websocket connections."),
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

// RecordEngineRestart records one engine restart with its reason.
func (m *Metrics) RecordEngineRestart(ctx context.Context, reason string) {
	m.EngineRestarts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordEngineError records one engine error with its code and class.
func (m *Metrics) RecordEngineError(ctx context.Context, code, class string) {
	m.EngineErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("code", code),
			attribute.String("class", class),
		),
	)
}

// RecordProviderError records one synthesis provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordAccuracy records one final reading-accuracy score.
func (m *Metrics) RecordAccuracy(ctx context.Context, percentage float64) {
	m.ReadingAccuracy.Record(ctx, percentage)
}
