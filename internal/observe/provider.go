package observe

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// serviceName is reported as service.name in all telemetry.
const serviceName = "soundfield"

type providerSettings struct {
	version      string
	spanExporter sdktrace.SpanExporter
}

// ProviderOption tunes [InitProvider].
type ProviderOption func(*providerSettings)

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(v string) ProviderOption {
	return func(s *providerSettings) { s.version = v }
}

// WithSpanExporter exports spans through exp. Without it spans are recorded
// in-process only, which is all the telemetry listener needs; an OTLP
// exporter would slot in here.
func WithSpanExporter(exp sdktrace.SpanExporter) ProviderOption {
	return func(s *providerSettings) { s.spanExporter = exp }
}

// InitProvider registers the global OTel providers: a meter provider reading
// into the Prometheus exporter (scraped via /metrics) and a tracer provider
// feeding [Middleware]'s spans. The returned shutdown flushes both; call it
// in a defer from main.
func InitProvider(ctx context.Context, opts ...ProviderOption) (func(context.Context) error, error) {
	var s providerSettings
	for _, o := range opts {
		o(&s)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(s.version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	reader, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if s.spanExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(s.spanExporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		return errors.Join(mp.Shutdown(ctx), tp.Shutdown(ctx))
	}
	return shutdown, nil
}
