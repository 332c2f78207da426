package telemetry_test

import (
	"context"
	"errors"
	"runtime/pprof"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

// setupTestTracer installs a recording TracerProvider for the test.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestSetup_AllSignalsOff(t *testing.T) {
	ctx := context.Background()

	p, err := telemetry.Setup(ctx, telemetry.Options{ServiceName: "ordersync"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.TracingEnabled())
	assert.False(t, p.MetricsEnabled())
	assert.False(t, p.LogsEnabled())
	assert.NotNil(t, p.Meter("test"))
	assert.False(t, p.LogCore(zapcore.DebugLevel).Enabled(zapcore.ErrorLevel))

	p.LinkSpanProfiles()
	assert.False(t, p.SpanProfilesLinked())
	assert.NoError(t, p.Shutdown(ctx))

	prof, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, prof.IsEnabled())
	assert.NoError(t, prof.Stop())
	assert.NoError(t, prof.Stop())
}

func TestInstruments_CollectsErrors(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	b := telemetry.NewInstruments(provider.Meter("test"))

	assert.NotNil(t, b.Counter("orders_total", "Orders", "{orders}"))
	assert.NotNil(t, b.Seconds("job_seconds", "Job duration", telemetry.SyncDurationBuckets))
	require.NoError(t, b.Err())

	assert.NotNil(t, b.Counter("", "Nameless", "{x}"))
	assert.NotNil(t, b.UpDownCounter("", "Nameless", "{x}"))
	assert.Error(t, b.Err())
}

func TestNewProfiler_RequiresAddressAndName(t *testing.T) {
	logger := zap.NewNop()

	_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: true, ApplicationName: "ordersync"}, logger)
	assert.Error(t, err)

	_, err = telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040"}, logger)
	assert.Error(t, err)
}

func TestWithProfilingLabels(t *testing.T) {
	var route, method string
	var routeOK, channelOK bool
	telemetry.WithProfilingLabels(context.Background(), map[string]string{
		telemetry.ProfilingLabelRoute:     "/api/v1/orders/:order_id",
		telemetry.ProfilingLabelMethod:    "GET",
		telemetry.ProfilingLabelChannelID: "",
	}, func(ctx context.Context) {
		route, routeOK = pprof.Label(ctx, telemetry.ProfilingLabelRoute)
		method, _ = pprof.Label(ctx, telemetry.ProfilingLabelMethod)
		_, channelOK = pprof.Label(ctx, telemetry.ProfilingLabelChannelID)
	})

	assert.True(t, routeOK)
	assert.Equal(t, "/api/v1/orders/:order_id", route)
	assert.Equal(t, "GET", method)
	assert.False(t, channelOK)

	called := false
	telemetry.WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestStartSpan_RecordsAttributesAndErrors(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "order_sync.page",
		attribute.String("channel_id", "c1"),
	)
	assert.NotEmpty(t, telemetry.TraceID(ctx))
	telemetry.EndSpan(span, errors.New("remote unavailable"))

	_, consumer := telemetry.StartConsumerSpan(context.Background(), "notification.consume")
	telemetry.EndSpan(consumer, nil)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "order_sync.page", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Contains(t, spans[0].Attributes(), attribute.String("channel_id", "c1"))
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1)

	assert.Equal(t, trace.SpanKindConsumer, spans[1].SpanKind())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}

func TestTraceID_WithoutSpan(t *testing.T) {
	assert.Empty(t, telemetry.TraceID(context.Background()))
}
