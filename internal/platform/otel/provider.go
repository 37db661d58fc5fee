// Package otel wires OpenTelemetry tracing for ledger processes.
package otel

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	envEndpoint = "LEDGER_OTEL_ENDPOINT"
	envEnabled  = "LEDGER_OTEL_ENABLED"
)

// Config selects the OTLP/HTTP collector endpoint.
type Config struct {
	Endpoint string
	Disabled bool
}

// ConfigFromEnv reads LEDGER_OTEL_ENDPOINT and LEDGER_OTEL_ENABLED.
func ConfigFromEnv() Config {
	return Config{
		Endpoint: strings.TrimSpace(os.Getenv(envEndpoint)),
		Disabled: strings.EqualFold(os.Getenv(envEnabled), "false"),
	}
}

// Setup initialises OpenTelemetry tracing for the given service using the
// environment configuration.
//
// Tracing is opt-in: when LEDGER_OTEL_ENDPOINT is empty or
// LEDGER_OTEL_ENABLED is "false", Setup returns a no-op shutdown function and
// no global provider is registered.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	return SetupWithConfig(ctx, serviceName, ConfigFromEnv())
}

// SetupWithConfig initialises tracing from an explicit configuration. The
// returned shutdown function flushes pending spans and should be deferred.
func SetupWithConfig(ctx context.Context, serviceName string, cfg Config) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if cfg.Disabled || cfg.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
