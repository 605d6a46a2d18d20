package tracing

import (
	"context"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/propagation"
)

// ExtractTraceContext extracts OpenTelemetry trace context from the headers
// of a consumed Kafka message.
func ExtractTraceContext(ctx context.Context, headers []*sarama.RecordHeader) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		if h == nil {
			continue
		}
		carrier[string(h.Key)] = string(h.Value)
	}

	propagator := propagation.TraceContext{}
	return propagator.Extract(ctx, carrier)
}
