// Package tracing installs the OpenTelemetry tracer provider used by the
// upstream client and the fallback resolver.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(ctx context.Context) error

// NewExporter creates a span exporter by name: stdout or none.
func NewExporter(name string, w io.Writer) (sdktrace.SpanExporter, error) {
	switch name {
	case "stdout":
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter: %q", name)
	}
}

// Setup installs a global tracer provider for serviceName. With the "none"
// exporter the provider samples nothing and spans cost almost nothing.
func Setup(ctx context.Context, exporterName, serviceName string) (ShutdownFunc, error) {
	return setup(ctx, exporterName, serviceName, nil)
}

func setup(ctx context.Context, exporterName, serviceName string, w io.Writer) (ShutdownFunc, error) {
	exporter, err := NewExporter(exporterName, w)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if exporter != nil {
		opts = append(opts,
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
		)
	} else {
		opts = append(opts, sdktrace.WithSampler(sdktrace.NeverSample()))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
