package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Config holds observability configuration for the preflight binary.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// LogJSON enables JSON-formatted log output (structured, for ingestion
	// by log pipelines); otherwise a human-readable text handler is used.
	LogJSON bool

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{ServiceName: "preflight", LogLevel: slog.LevelInfo}
}

// Providers bundles the observability handles the caller is responsible for
// shutting down, and the Logger/Meter ready for immediate use.
type Providers struct {
	Logger   *slog.Logger
	Meter    metric.Meter
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
}

// Init wires a Prometheus-backed OTel MeterProvider and a structured slog
// logger, following codefang's observability.Init shape.
func Init(cfg Config) (Providers, error) {
	logger := newLogger(cfg)

	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return Providers{}, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(cfg.ServiceName)

	return Providers{Logger: logger, Meter: meter, registry: registry, provider: provider}, nil
}

// MetricsHandler returns the /metrics scrape handler backed by this
// Providers' Prometheus registry.
func (p Providers) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and releases the meter provider.
func (p Providers) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}

	return p.provider.Shutdown(ctx)
}

func newLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
