package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/gaborage/rurl/httpclient"

	metricAttempts = "rurl.client.attempts"
	metricDuration = "rurl.client.request.duration"

	attrErrorCode = attribute.Key("rurl.error.code")
	attrAttempts  = attribute.Key("rurl.attempts")
	attrCookies   = attribute.Key("rurl.cookies.sent")
)

// telemetry owns the tracer and instruments of one client.
type telemetry struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	attempts   metric.Int64Counter
	duration   metric.Float64Histogram
}

// newTelemetry falls back to the global providers when tp or mp is nil.
func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	attempts, err := meter.Int64Counter(metricAttempts,
		metric.WithDescription("Transport attempts made, retries included"),
		metric.WithUnit("{attempt}"))
	if err != nil {
		attempts = metricnoop.Int64Counter{}
	}
	duration, err := meter.Float64Histogram(metricDuration,
		metric.WithDescription("Duration of a request including all attempts"),
		metric.WithUnit("s"))
	if err != nil {
		duration = metricnoop.Float64Histogram{}
	}

	return &telemetry{
		tracer:     tp.Tracer(instrumentationName),
		propagator: otel.GetTextMapPropagator(),
		attempts:   attempts,
		duration:   duration,
	}
}

func (t *telemetry) start(ctx context.Context, method, redactedURL, host string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			semconv.URLFull(redactedURL),
			semconv.ServerAddress(host),
		))
}

func (t *telemetry) inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	t.propagator.Inject(ctx, carrier)
}

func (t *telemetry) recordAttempt(ctx context.Context, method string, code ErrorCode) {
	t.attempts.Add(ctx, 1, metric.WithAttributes(
		semconv.HTTPRequestMethodKey.String(method),
		attrErrorCode.Int(int(code)),
	))
}

func (t *telemetry) finish(ctx context.Context, span trace.Span, method string, elapsed time.Duration, resp *Response, reqErr *RequestError) {
	attrs := []attribute.KeyValue{semconv.HTTPRequestMethodKey.String(method)}
	if resp != nil {
		attrs = append(attrs, semconv.HTTPResponseStatusCode(resp.StatusCode))
		span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode), attrAttempts.Int(resp.Stats.Attempts))
	}
	if reqErr != nil {
		attrs = append(attrs, attrErrorCode.Int(int(reqErr.Code)))
		span.SetAttributes(attrErrorCode.Int(int(reqErr.Code)), attrAttempts.Int(reqErr.Attempts))
		span.RecordError(reqErr)
		span.SetStatus(codes.Error, reqErr.Code.String())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	t.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	span.End()
}
