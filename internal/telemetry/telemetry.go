// Package telemetry wraps OTel SDK tracer-provider setup. When
// telemetry is disabled, the global tracer provider is left as OTel's
// default noop implementation.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/osforge/osforge/config"
)

// Providers holds the OTel SDK TracerProvider and MeterProvider. When
// telemetry is disabled, both fields are nil and Shutdown is a no-op.
type Providers struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Init builds a TracerProvider from cfg and registers it as the
// global provider. When cfg.Enabled is false it returns a noop
// Providers without touching the global tracer provider.
//
// No span exporter is attached: the orchestrator runs without a
// collector endpoint configured in this pass, so spans are sampled
// and ended but not shipped anywhere. The provider still gives every
// caller of otel.Tracer(...) a real, working API rather than a noop,
// which is what lets Run and the gateway emit spans unconditionally.
func Init(cfg config.TelemetryConfig, logger *zap.Logger) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("telemetry disabled, using noop tracer provider")
		return &Providers{}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(sampleRate)),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	logger.Info("telemetry initialized",
		zap.String("service_name", cfg.ServiceName),
		zap.Float64("sample_rate", sampleRate),
		zap.String("otlp_endpoint", cfg.OTLPEndpoint),
	)
	return &Providers{tp: tp, mp: mp}, nil
}

// Tracer returns a named tracer from the registered global provider
// (or the noop provider, when telemetry is disabled).
func Tracer(name string) oteltrace.Tracer {
	return otel.Tracer(name)
}

// Meter returns a named meter from the registered global provider (or
// the noop provider, when telemetry is disabled).
func Meter(name string) otelmetric.Meter {
	return otel.Meter(name)
}

// Shutdown flushes pending spans and releases both providers. Safe to
// call on a noop Providers (nil fields) or a nil receiver.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown meter provider: %w", err)
		}
	}
	return nil
}
