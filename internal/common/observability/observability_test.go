package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRecordRequest_CountsByStatus(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	obs := NewWithReader(reader, "test")

	ctx := context.Background()
	obs.RecordRequest(ctx, "get_recommendations", "success", 12*time.Millisecond)
	obs.RecordRequest(ctx, "get_recommendations", "error", 3*time.Millisecond)
	obs.RecordRequest(ctx, "get_recommendations", "error", 4*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "recommendation.requests" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				counts[status.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(1), counts["success"])
	assert.Equal(t, int64(2), counts["error"])
}

func TestNilObservability_IsSafe(t *testing.T) {
	var obs *Observability
	assert.NotPanics(t, func() {
		obs.RecordRequest(context.Background(), "op", "success", time.Millisecond)
		obs.RecordScore(context.Background(), "good", 72)
		_, span := obs.StartSpan(context.Background(), "noop")
		span.End()
		obs.Shutdown()
	})
}

func TestStartSpan_UsesAttachedTracer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	obs := NewWithReader(sdkmetric.NewManualReader(), "test")
	obs.AttachTracing(NewTracingWithProvider(provider))

	_, span := obs.StartSpan(context.Background(), "recommendation.score", attribute.String("userId", "u1"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "recommendation.score", ended[0].Name())
}
