package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(entry observer.LoggedEntry) map[string]interface{} {
	return entry.ContextMap()
}

func TestWithContext(t *testing.T) {
	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)

	assert.Same(t, l, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
	assert.NotNil(t, FromContext(context.WithValue(context.Background(), LoggerKey, "not a logger")))
}

func TestContextFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, l := WithRequestID(context.Background(), base, "req-1")
	ctx, l = WithChannel(ctx, l, "worten")
	ctx, l = WithOrderNumber(ctx, l, 1001)
	l.Info("hello")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "worten", GetChannel(ctx))
	n, ok := GetOrderNumber(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(1001), n)

	fields := fieldMap(recorded.All()[0])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "worten", fields["channel"])
	assert.Equal(t, int64(1001), fields["order_number"])
	assert.Same(t, l, FromContext(ctx))
}

func TestContextGetters_Empty(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetChannel(ctx))
	_, ok := GetOrderNumber(ctx)
	assert.False(t, ok)
}

func TestWithTraceContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	assert.Same(t, base, WithTraceContext(context.Background(), base))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "intake")
	defer span.End()

	WithTraceContext(ctx, base).Info("traced")

	fields := fieldMap(recorded.All()[0])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
}

func TestContextLogger_EnrichesEntries(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := WithContext(context.Background(), base)
	ctx = context.WithValue(ctx, RequestIDKey, "req-2")
	ctx = context.WithValue(ctx, ChannelKey, "kuantokusta")
	ctx = context.WithValue(ctx, OrderNumberKey, int64(7))

	cl := L(ctx).With(zap.String("sku", "SKU-1"))
	cl.Debug("d")
	cl.Info("i")
	cl.Warn("w")
	cl.Error("e")
	cl.Zap().Info("z")

	entries := recorded.All()
	require.Len(t, entries, 5)
	for _, e := range entries {
		fields := fieldMap(e)
		assert.Equal(t, "req-2", fields["request_id"])
		assert.Equal(t, "kuantokusta", fields["channel"])
		assert.Equal(t, int64(7), fields["order_number"])
		assert.Equal(t, "SKU-1", fields["sku"])
	}
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() { cl.Info("dropped") })
}
