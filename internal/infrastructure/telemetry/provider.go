// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// Pyroscope profiling for the order sync service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultMetricsInterval = 60 * time.Second
	shutdownTimeout        = 10 * time.Second
)

// Options selects which signals are exported and where to.
// All three share one OTLP/gRPC collector.
type Options struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Insecure       bool

	Traces        bool
	SamplingRatio float64

	Metrics         bool
	MetricsInterval time.Duration

	Logs bool
}

// Providers owns the SDK providers installed as OpenTelemetry globals.
// A signal that is switched off keeps the global no-op in place.
type Providers struct {
	opts   Options
	logger *zap.Logger

	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider

	spanProfiles atomic.Bool
}

// Setup starts the exporters requested by opts. On failure every provider
// started so far is shut down again.
func Setup(ctx context.Context, opts Options, logger *zap.Logger) (*Providers, error) {
	p := &Providers{opts: opts, logger: logger}
	if !opts.Traces && !opts.Metrics && !opts.Logs {
		logger.Info("OpenTelemetry export disabled")
		return p, nil
	}

	res, err := serviceResource(opts.ServiceName, opts.ServiceVersion)
	if err != nil {
		return nil, err
	}

	if opts.Traces {
		if err := p.startTraces(ctx, res); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
	}
	if opts.Metrics {
		if err := p.startMetrics(ctx, res); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
	}
	if opts.Logs {
		if err := p.startLogs(ctx, res); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
	}

	logger.Info("OpenTelemetry initialized",
		zap.String("endpoint", opts.Endpoint),
		zap.String("service_name", opts.ServiceName),
		zap.Bool("traces", opts.Traces),
		zap.Bool("metrics", opts.Metrics),
		zap.Bool("logs", opts.Logs),
	)
	return p, nil
}

func (p *Providers) startTraces(ctx context.Context, res *resource.Resource) error {
	clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.opts.Endpoint)}
	if p.opts.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf("telemetry: trace exporter: %w", err)
	}

	p.traces = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(p.opts.SamplingRatio)),
	)
	otel.SetTracerProvider(p.traces)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

func (p *Providers) startMetrics(ctx context.Context, res *resource.Resource) error {
	clientOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.opts.Endpoint)}
	if p.opts.Insecure {
		clientOpts = append(clientOpts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf("telemetry: metric exporter: %w", err)
	}

	interval := p.opts.MetricsInterval
	if interval <= 0 {
		interval = defaultMetricsInterval
	}
	p.metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(p.metrics)
	return nil
}

func (p *Providers) startLogs(ctx context.Context, res *resource.Resource) error {
	clientOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(p.opts.Endpoint)}
	if p.opts.Insecure {
		clientOpts = append(clientOpts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf("telemetry: log exporter: %w", err)
	}

	p.logs = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(p.logs)
	return nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func serviceResource(name, version string) (*resource.Resource, error) {
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}
	return res, nil
}

// TracingEnabled reports whether spans are exported.
func (p *Providers) TracingEnabled() bool { return p.traces != nil }

// MetricsEnabled reports whether metrics are exported.
func (p *Providers) MetricsEnabled() bool { return p.metrics != nil }

// LogsEnabled reports whether zap entries are exported through the log bridge.
func (p *Providers) LogsEnabled() bool { return p.logs != nil }

// Meter returns a meter from the SDK provider, or from the global no-op
// provider when metrics are off.
func (p *Providers) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p.metrics == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return p.metrics.Meter(name, opts...)
}

// LogCore returns a zap core forwarding entries at or above level to the
// OpenTelemetry log pipeline. It is a no-op core when logs are off.
func (p *Providers) LogCore(level zapcore.Level) zapcore.Core {
	if p.logs == nil {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(p.opts.ServiceName, otelzap.WithLoggerProvider(p.logs))
	filtered, err := zapcore.NewIncreaseLevelCore(core, level)
	if err != nil {
		return core
	}
	return filtered
}

// LinkSpanProfiles tags CPU samples with the active span id so Pyroscope
// profiles can be opened from a trace. The profiler must already be running.
func (p *Providers) LinkSpanProfiles() {
	if p.traces == nil || !p.spanProfiles.CompareAndSwap(false, true) {
		return
	}
	otel.SetTracerProvider(otelpyroscope.NewTracerProvider(p.traces))
	p.logger.Info("Span profiles enabled", zap.String("service_name", p.opts.ServiceName))
}

// SpanProfilesLinked reports whether LinkSpanProfiles took effect.
func (p *Providers) SpanProfilesLinked() bool { return p.spanProfiles.Load() }

// Shutdown flushes and stops every started provider, logs last so shutdown
// messages of the other signals are still exported.
func (p *Providers) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if p.traces != nil {
		if err := p.traces.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: traces: %w", err))
		}
	}
	if p.metrics != nil {
		if err := p.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: metrics: %w", err))
		}
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: logs: %w", err))
		}
	}
	return errors.Join(errs...)
}
