package cli

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// telemetry bundles the tracer and meter handed to the event handlers,
// plus the shutdown hook that flushes the exporter.
type telemetry struct {
	tracer   trace.Tracer
	meter    metric.Meter
	shutdown func()
}

// startTelemetry configures an OTLP HTTP trace exporter against the given
// endpoint and installs the tracer provider globally. Metrics go through
// the global meter provider, so they stay in-process unless the embedding
// application installs an exporting one.
func startTelemetry(ctx context.Context, endpoint string) (*telemetry, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}

	return &telemetry{
		tracer:   provider.Tracer("crisisflow"),
		meter:    otel.Meter("crisisflow"),
		shutdown: shutdown,
	}, nil
}
