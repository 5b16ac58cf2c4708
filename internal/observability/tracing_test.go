package observability

import (
	"context"
	"testing"

	"github.com/signalsfoundry/airport-simulator/internal/logging"
)

func TestTracingConfigFromEnvOverlaysBase(t *testing.T) {
	t.Setenv("AIRPORT_TRACING_ENABLED", "true")
	t.Setenv("AIRPORT_TRACING_EXPORTER", "OTLP")
	t.Setenv("AIRPORT_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("AIRPORT_TRACING_SAMPLE_RATIO", "0.25")

	cfg := TracingConfigFromEnv(DefaultTracingConfig())
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.Endpoint != "collector:4317" || cfg.SampleRatio != 0.25 {
		t.Fatalf("TracingConfigFromEnv = %+v", cfg)
	}
	if cfg.ServiceName != "airport-server" {
		t.Fatalf("ServiceName = %q, want default kept", cfg.ServiceName)
	}
}

func TestTracingConfigIgnoresBadRatio(t *testing.T) {
	t.Setenv("AIRPORT_TRACING_SAMPLE_RATIO", "1.5")
	if got := TracingConfigFromEnv(DefaultTracingConfig()).SampleRatio; got != 1 {
		t.Fatalf("SampleRatio = %v, want 1", got)
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), DefaultTracingConfig(), logging.Noop())
	if err != nil {
		t.Fatalf("InitTracing error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Exporter = "zipkin"
	if _, err := InitTracing(context.Background(), cfg, logging.Noop()); err == nil {
		t.Fatalf("InitTracing with unknown exporter should fail")
	}
}
