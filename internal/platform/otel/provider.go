// Package otel exports battle traces over OTLP/HTTP.
package otel

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config controls trace export. It is loaded from AUTORESOLVE_OTEL_* variables.
type Config struct {
	Endpoint    string            `env:"OTEL_ENDPOINT"`
	Headers     map[string]string `env:"OTEL_HEADERS"`
	Enabled     bool              `env:"OTEL_ENABLED" envDefault:"true"`
	SampleRatio float64           `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Exporting reports whether Start will install a real provider.
func (c Config) Exporting() bool {
	return c.Enabled && strings.TrimSpace(c.Endpoint) != ""
}

// Shutdown flushes and stops the installed provider.
type Shutdown func(context.Context) error

// Start installs a global tracer provider for service when cfg is exporting.
// Otherwise the global no-op provider stays and the returned Shutdown does
// nothing.
func Start(ctx context.Context, service string, cfg Config) (Shutdown, error) {
	if !cfg.Exporting() {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(strings.TrimSpace(cfg.Endpoint))}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(semconv.ServiceName(service)))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider.Shutdown, nil
}

// Sampler samples every root span for ratios outside (0, 1), and a parent
// based fraction otherwise.
func Sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
