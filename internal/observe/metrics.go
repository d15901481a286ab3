// Package observe provides application-wide observability primitives for
// soundfield: OpenTelemetry metrics and structured logging setup.
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

// meterName is the instrumentation scope name used for all soundfield metrics.
const meterName = "github.com/MrWong99/soundfield"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Capture side ---

	// ReadingsPublished counts readings enqueued by the capture backend.
	// Use with attribute: attribute.String("backend", ...)
	ReadingsPublished metric.Int64Counter

	// ReadingsGated counts readings suppressed by the silence gate.
	ReadingsGated metric.Int64Counter

	// ReadingsDropped counts readings discarded because the publish channel
	// was full.
	ReadingsDropped metric.Int64Counter

	// --- Aggregation side ---

	// DrainBatchSize tracks how many readings each drain tick consumed.
	DrainBatchSize metric.Int64Histogram

	// DrainDuration tracks the cost of one drain-and-ingest tick.
	DrainDuration metric.Float64Histogram

	// SnapshotSize tracks the number of records in aggregator snapshots.
	// Use with attribute: attribute.String("mode", ...)
	SnapshotSize metric.Int64Histogram

	// ManualSamples counts readings captured by the manual sample trigger.
	ManualSamples metric.Int64Counter

	// --- Telemetry HTTP server ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// drainBuckets defines histogram bucket boundaries (in seconds) sized for a
// drain tick that runs every few tens of milliseconds.
var drainBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.ReadingsPublished, err = m.Int64Counter("soundfield.readings.published",
		metric.WithDescription("Total readings enqueued by the capture backend."),
	); err != nil {
		return nil, err
	}
	if met.ReadingsGated, err = m.Int64Counter("soundfield.readings.gated",
		metric.WithDescription("Total readings suppressed by the silence gate."),
	); err != nil {
		return nil, err
	}
	if met.ReadingsDropped, err = m.Int64Counter("soundfield.readings.dropped",
		metric.WithDescription("Total readings discarded because the publish channel was full."),
	); err != nil {
		return nil, err
	}
	if met.ManualSamples, err = m.Int64Counter("soundfield.samples.manual",
		metric.WithDescription("Total readings captured by the manual sample trigger."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.DrainBatchSize, err = m.Int64Histogram("soundfield.drain.batch_size",
		metric.WithDescription("Readings consumed per drain tick."),
	); err != nil {
		return nil, err
	}
	if met.DrainDuration, err = m.Float64Histogram("soundfield.drain.duration",
		metric.WithDescription("Cost of one drain-and-ingest tick."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(drainBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SnapshotSize, err = m.Int64Histogram("soundfield.snapshot.size",
		metric.WithDescription("Records per aggregator snapshot by mode."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("soundfield.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// RecordDrain records the outcome of one drain tick: the number of readings
// consumed and the time it took.
func (m *Metrics) RecordDrain(ctx context.Context, n int, seconds float64) {
	m.DrainBatchSize.Record(ctx, int64(n))
	m.DrainDuration.Record(ctx, seconds)
}

// RecordPublisherDelta adds publish-counter deltas since the previous call,
// attributed to the capture backend. Zero deltas are skipped.
func (m *Metrics) RecordPublisherDelta(ctx context.Context, backend string, published, gated, dropped uint64) {
	attrs := metric.WithAttributes(Attr("backend", backend))
	if published > 0 {
		m.ReadingsPublished.Add(ctx, int64(published), attrs)
	}
	if gated > 0 {
		m.ReadingsGated.Add(ctx, int64(gated), attrs)
	}
	if dropped > 0 {
		m.ReadingsDropped.Add(ctx, int64(dropped), attrs)
	}
}

// RecordSnapshot records the record count of one aggregator snapshot.
func (m *Metrics) RecordSnapshot(ctx context.Context, mode string, size int) {
	m.SnapshotSize.Record(ctx, int64(size),
		metric.WithAttributes(Attr("mode", mode)),
	)
}
