package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// modelMetrics covers calls to the model collaborators: the embedding server
// and the text generator
type modelMetrics struct {
	calls         metric.Int64Counter
	duration      metric.Float64Histogram
	errors        metric.Int64Counter
	rateLimitWait metric.Float64Histogram
}

var (
	modelMetricsOnce sync.Once
	sharedModel      *modelMetrics
)

func loadModelMetrics() *modelMetrics {
	modelMetricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName + "/models")

		calls, err := meter.Int64Counter("ai.request.count",
			metric.WithDescription("Number of model requests"))
		if err != nil {
			return
		}
		duration, err := meter.Float64Histogram("ai.request.duration",
			metric.WithDescription("Model request duration"), metric.WithUnit("ms"))
		if err != nil {
			return
		}
		errs, err := meter.Int64Counter("ai.request.errors",
			metric.WithDescription("Number of failed model requests"))
		if err != nil {
			return
		}
		wait, err := meter.Float64Histogram("ai.rate_limit.wait",
			metric.WithDescription("Time spent in the client-side rate limiter"), metric.WithUnit("ms"))
		if err != nil {
			return
		}
		sharedModel = &modelMetrics{calls: calls, duration: duration, errors: errs, rateLimitWait: wait}
	})
	return sharedModel
}

// ModelCall times one request to a model provider
type ModelCall struct {
	attrs []attribute.KeyValue
	start time.Time
}

// StartModelCall begins timing a request. operation is "embed" or "generate".
func StartModelCall(provider, model, operation string) ModelCall {
	return ModelCall{
		attrs: []attribute.KeyValue{
			attribute.String("ai.provider", provider),
			attribute.String("ai.model", model),
			attribute.String("ai.operation", operation),
		},
		start: time.Now(),
	}
}

// End records the outcome. statusCode is zero when no response arrived.
func (c ModelCall) End(ctx context.Context, statusCode int, err error) {
	m := loadModelMetrics()
	if m == nil {
		return
	}
	attrs := c.attrs
	if statusCode > 0 {
		attrs = append(attrs[:len(attrs):len(attrs)], attribute.Int("http.status_code", statusCode))
	}
	opt := metric.WithAttributes(attrs...)
	m.calls.Add(ctx, 1, opt)
	m.duration.Record(ctx, float64(time.Since(c.start).Milliseconds()), opt)
	if err != nil {
		m.errors.Add(ctx, 1, opt)
	}
}

// RecordRateLimitWait records time a request spent queued in a client limiter
func RecordRateLimitWait(ctx context.Context, provider, model string, wait time.Duration) {
	m := loadModelMetrics()
	if m == nil {
		return
	}
	m.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	))
}
