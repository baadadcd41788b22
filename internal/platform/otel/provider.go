// Package otel wires OpenTelemetry tracing for shadowtrack services.
package otel

import (
	"context"
	"fmt"

	"github.com/louisbranch/shadowtrack/internal/platform/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Settings controls exporter selection.
type Settings struct {
	Enabled  bool    `env:"SHADOWTRACK_OTEL_ENABLED" envDefault:"true"`
	Endpoint string  `env:"SHADOWTRACK_OTEL_ENDPOINT"`
	Ratio    float64 `env:"SHADOWTRACK_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Setup initialises OpenTelemetry tracing for the given service.
//
// Tracing is opt-in: when SHADOWTRACK_OTEL_ENDPOINT is empty or
// SHADOWTRACK_OTEL_ENABLED is false, Setup returns a no-op shutdown function
// and the global provider stays the otel no-op provider.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	var settings Settings
	if err := config.ParseEnv(&settings); err != nil {
		return noop, err
	}
	if !settings.Enabled || settings.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(settings.Endpoint),
	)
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("otel resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if settings.Ratio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(settings.Ratio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer returns a named tracer from the global provider. Packages call it
// lazily so tests that never run Setup still get the no-op tracer.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
