// Package observability provides OpenTelemetry integration for distributed tracing.
//
// Spans are exported over OTLP HTTP to a local collector. Jaeger, Grafana
// Tempo and the Datadog Agent all accept OTLP on port 4318, so the same
// configuration works against any of them. Tracing is optional: when the
// exporter cannot be built the service keeps running without spans.
//
// # Configuration
//
// Environment variables:
//   - FINCHAT_TRACING_ENABLED: turn span export on (default: false)
//   - FINCHAT_TRACING_ENDPOINT: collector OTLP HTTP endpoint (default: localhost:4318)
//
// Config file (~/.finchat/config.yaml):
//
//	tracing:
//	  enabled: true
//	  endpoint: "localhost:4318"
//	  environment: "dev"
//	  service_name: "finchat"
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/eloquentai/finchat/internal/log"
)

// Config for the OTLP trace exporter.
type Config struct {
	// Endpoint is the collector OTLP HTTP endpoint (default: localhost:4318)
	Endpoint string
	// Environment is the deployment environment (dev, staging, prod)
	Environment string
	// ServiceName is the service name shown in the tracing backend
	ServiceName string
}

// DefaultEndpoint is the default OTLP HTTP collector endpoint.
const DefaultEndpoint = "localhost:4318"

// Setup installs a global TracerProvider exporting spans via OTLP HTTP.
//
// Returns a shutdown function that flushes pending spans. If Endpoint is
// empty, uses DefaultEndpoint (localhost:4318). When the exporter cannot be
// built, Setup logs a warning and returns a no-op shutdown instead of an
// error.
func Setup(ctx context.Context, cfg Config, logger log.Logger) (shutdown func(context.Context) error, err error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	res, err := buildResource(cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return provider.Shutdown, nil
}

// buildResource tags exported spans with the service identity.
func buildResource(cfg Config) (*resource.Resource, error) {
	var attrs []attribute.KeyValue
	if cfg.ServiceName != "" {
		attrs = append(attrs, semconv.ServiceName(cfg.ServiceName))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	return resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
}
