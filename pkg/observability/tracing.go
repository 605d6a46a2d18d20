package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// TraceOptions describes where spans go and how many are kept.
type TraceOptions struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP gRPC collector address, host:port.
	Endpoint string
	// SampleRatio applies to root spans only. Values >= 1 keep everything.
	SampleRatio float64
}

// Tracing owns the SDK provider and the collector connection behind it.
type Tracing struct {
	provider *sdktrace.TracerProvider
	conn     *grpc.ClientConn
	log      *slog.Logger
}

// SetupTracing builds an OTLP exporting provider and installs it, together
// with the W3C trace context and baggage propagators, as the global default.
func SetupTracing(ctx context.Context, opts TraceOptions, log *slog.Logger) (*Tracing, error) {
	log = log.With("component", "tracing")

	conn, err := grpc.NewClient(opts.Endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial collector %s: %w", opts.Endpoint, err)
	}
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler(opts.SampleRatio)),
		sdktrace.WithResource(serviceResource(opts)),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info("Tracing enabled",
		slog.String("service", opts.ServiceName),
		slog.String("endpoint", opts.Endpoint),
		slog.Float64("sample_ratio", opts.SampleRatio),
	)
	return &Tracing{provider: provider, conn: conn, log: log}, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func serviceResource(opts TraceOptions) *resource.Resource {
	version := opts.ServiceVersion
	if version == "" {
		version = "dev"
	}
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(version),
		semconv.DeploymentEnvironment(opts.Environment),
		semconv.ServiceInstanceID(os.Getenv("HOSTNAME")),
	)
}

// Tracer returns a named tracer from the owned provider.
func (t *Tracing) Tracer(name string) trace.Tracer {
	return t.provider.Tracer(name)
}

// Shutdown flushes buffered spans and closes the collector connection.
func (t *Tracing) Shutdown(ctx context.Context) error {
	err := errors.Join(t.provider.Shutdown(ctx), t.conn.Close())
	if err != nil {
		t.log.Error("Tracing shutdown incomplete", slog.Any("error", err))
	}
	return err
}
