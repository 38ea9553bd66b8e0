package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracingConfig mirrors the "otel" block of the YAML config schema.
type TracingConfig struct {
	Endpoint        string `yaml:"endpoint"`
	LogConsoleSpans bool   `yaml:"log_console_spans"`
	LogLevel        string `yaml:"log_level"`
}

// Tracer bundles the SDK provider (nil when tracing is disabled) with the
// tracer handed to callers, following the teacher's TracingManager shape
// (pkg/tracing/tracing.go) adapted to the OTLP-over-HTTP exporter this
// middleware needs.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   oteltrace.Tracer
}

// NewTracer initializes OpenTelemetry tracing for serviceName. When
// cfg.Endpoint is empty, tracing is a no-op — matching the disabled
// branch of the teacher's NewTracingManager.
func NewTracer(ctx context.Context, serviceName string, cfg TracingConfig) (*Tracer, error) {
	if cfg.Endpoint == "" {
		return &Tracer{tracer: otel.Tracer(serviceName)}, nil
	}

	client := otlptracehttp.NewClient(otlptracehttp.WithEndpoint(cfg.Endpoint))
	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("initialize otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{provider: provider, tracer: provider.Tracer(serviceName)}, nil
}

// Tracer returns the underlying oteltrace.Tracer for starting spans.
func (t *Tracer) Tracer() oteltrace.Tracer {
	return t.tracer
}

// Shutdown flushes and stops the tracer provider. Safe to call on a
// no-op Tracer.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
