package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestSampler(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  sdktrace.SamplingDecision
	}{
		{name: "always", ratio: 1, want: sdktrace.RecordAndSample},
		{name: "above one", ratio: 5, want: sdktrace.RecordAndSample},
		{name: "never", ratio: 0, want: sdktrace.Drop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := sampler(tt.ratio).ShouldSample(sdktrace.SamplingParameters{
				ParentContext: context.Background(),
				TraceID:       trace.TraceID{1},
				Name:          "root",
			})
			assert.Equal(t, tt.want, res.Decision)
		})
	}
}

func TestServiceResource(t *testing.T) {
	res := serviceResource(TraceOptions{ServiceName: "notifier", Environment: "staging"})

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "notifier", attrs["service.name"])
	assert.Equal(t, "dev", attrs["service.version"])
	assert.Equal(t, "staging", attrs["deployment.environment"])
}
