package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/objectledger/internal/platform/otel"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("LEDGER_OTEL_ENDPOINT", "")
	t.Setenv("LEDGER_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LEDGER_OTEL_ENDPOINT", " http://localhost:4318 ")
	t.Setenv("LEDGER_OTEL_ENABLED", "FALSE")

	cfg := otel.ConfigFromEnv()
	if cfg.Endpoint != "http://localhost:4318" {
		t.Fatalf("expected trimmed endpoint, got %q", cfg.Endpoint)
	}
	if !cfg.Disabled {
		t.Fatal("expected tracing to be disabled")
	}
}

func TestSetupWithConfig_NoopWhenDisabled(t *testing.T) {
	shutdown, err := otel.SetupWithConfig(context.Background(), "test-service", otel.Config{
		Endpoint: "http://localhost:4318",
		Disabled: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupWithConfig_CreatesProvider(t *testing.T) {
	// Non-routable address; nothing is exported before shutdown.
	shutdown, err := otel.SetupWithConfig(context.Background(), "test-service", otel.Config{
		Endpoint: "http://192.0.2.1:4318",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
