package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability bundles the OpenTelemetry meter and tracer used by the
// recommendation pipeline. A zero value records nothing.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracing        *Tracing
	meter          otelmetric.Meter
	requestCounter otelmetric.Int64Counter
	requestLatency otelmetric.Float64Histogram
	scoreHistogram otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		otel.Handle(err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return newWithProvider(provider, serviceName)
}

// NewWithReader is used by tests to collect measurements in memory.
func NewWithReader(reader metric.Reader, serviceName string) *Observability {
	return newWithProvider(metric.NewMeterProvider(metric.WithReader(reader)), serviceName)
}

func newWithProvider(provider *metric.MeterProvider, serviceName string) *Observability {
	meter := provider.Meter(serviceName)

	requestCounter, _ := meter.Int64Counter(
		"recommendation.requests",
		otelmetric.WithDescription("Recommendation requests by operation and status"),
	)
	requestLatency, _ := meter.Float64Histogram(
		"recommendation.duration",
		otelmetric.WithDescription("Recommendation request duration"),
		otelmetric.WithUnit("ms"),
	)
	scoreHistogram, _ := meter.Float64Histogram(
		"recommendation.compatibility_score",
		otelmetric.WithDescription("Compatibility score of returned recommendations"),
	)

	return &Observability{
		meterProvider:  provider,
		meter:          meter,
		requestCounter: requestCounter,
		requestLatency: requestLatency,
		scoreHistogram: scoreHistogram,
	}
}

func (o *Observability) RecordRequest(ctx context.Context, operation, status string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	if o.requestCounter != nil {
		o.requestCounter.Add(ctx, 1, attrs)
	}
	if o.requestLatency != nil {
		o.requestLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	}
}

func (o *Observability) RecordScore(ctx context.Context, tier string, score float64) {
	if o == nil || o.scoreHistogram == nil {
		return
	}
	o.scoreHistogram.Record(ctx, score, otelmetric.WithAttributes(attribute.String("tier", tier)))
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracing != nil {
		_ = o.tracing.Shutdown(ctx)
	}
}
