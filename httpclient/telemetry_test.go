package httpclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTelemetryClient(t *testing.T, transport Transport) (Client, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	c := newTestBuilder(transport).WithTracerProvider(tp).WithMeterProvider(mp).Build()
	return c, recorder, reader
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func sumCounter(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestTelemetrySuccessfulCall(t *testing.T) {
	c, recorder, reader := newTelemetryClient(t, timeoutsThenOK(2))

	_, err := c.Exec(context.Background(), testBaseURL+"/status", nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "HTTP GET", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	attempts, ok := attrValue(span.Attributes(), attrAttempts)
	require.True(t, ok)
	assert.Equal(t, int64(3), attempts.AsInt64())
	status, ok := attrValue(span.Attributes(), "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(200), status.AsInt64())

	assert.Equal(t, int64(3), sumCounter(t, reader, metricAttempts))
}

func TestTelemetryFailedCall(t *testing.T) {
	c, recorder, reader := newTelemetryClient(t, timeoutsThenOK(100))

	_, err := c.Exec(context.Background(), testBaseURL, nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	code, ok := attrValue(spans[0].Attributes(), attrErrorCode)
	require.True(t, ok)
	assert.Equal(t, int64(CodeOperationTimedOut), code.AsInt64())
	assert.Len(t, spans[0].Events(), 1, "error recorded as span event")

	assert.Equal(t, int64(4), sumCounter(t, reader, metricAttempts))
}

func TestTelemetryInjectsTraceContext(t *testing.T) {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	transport := okTransport()
	c, recorder, _ := newTelemetryClient(t, transport)

	_, err := c.Exec(context.Background(), testBaseURL, nil)
	require.NoError(t, err)

	traceparent := transport.last().Header.Get("Traceparent")
	require.NotEmpty(t, traceparent)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, traceparent, spans[0].SpanContext().TraceID().String())
	assert.NotEmpty(t, transport.last().Header.Get("X-Request-ID"))
}
