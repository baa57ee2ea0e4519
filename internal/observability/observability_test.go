package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestGroupReviewsTotal_Increments(t *testing.T) {
	before := testutil.ToFloat64(GroupReviewsTotal.WithLabelValues("approve", "ok"))
	GroupReviewsTotal.WithLabelValues("approve", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(GroupReviewsTotal.WithLabelValues("approve", "ok")))
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "amor-test", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := NewSpan(context.Background(), "unit", attribute.String("k", "v"))
	span.SetError(errors.New("recorded"))
	span.SetError(nil)
	span.End()
	assert.NotNil(t, ctx)
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{Enabled: true, Exporter: "zipkin"})
	assert.ErrorContains(t, err, "zipkin")
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestTraceLayer_RecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	layer := NewTraceLayer(tp.Tracer("amor-test"))
	ctx, span := layer.TraceRepositoryMethod(context.Background(), "Reject", "groups")
	RecordErrorInContext(ctx, errors.New("row locked"))
	AddTraceAttributesToContext(ctx, attribute.Int64("enduser.id", 7))
	span.End()

	_, redisSpan := layer.TraceRedisOperation(context.Background(), "publish")
	redisSpan.End()

	_, storeSpan := layer.TraceObjectStore(context.Background(), "upload", 3)
	storeSpan.End()

	ended := rec.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "objectstore.upload", ended[2].Name())
	assert.Contains(t, ended[2].Attributes(), attribute.Int("objectstore.objects", 3))
	assert.Equal(t, "repository.Reject", ended[0].Name())
	assert.Len(t, ended[0].Events(), 1)
	assert.Contains(t, ended[0].Attributes(), attribute.Int64("enduser.id", 7))
	assert.Equal(t, "redis.publish", ended[1].Name())
}
