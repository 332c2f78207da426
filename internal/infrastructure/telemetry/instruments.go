package telemetry

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Attribute keys shared by the order sync metrics.
var (
	AttrEventType = attribute.Key("event_type")
	AttrReason    = attribute.Key("reason")
	AttrDirection = attribute.Key("direction")
	AttrSource    = attribute.Key("source")
	AttrCreated   = attribute.Key("created")
	AttrJobStatus = attribute.Key("status")

	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPRoute      = attribute.Key("http.route")
)

// Histogram bucket boundaries, in seconds.
var (
	SyncDurationBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 900}
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

// Instruments creates instruments on one meter and keeps the creation errors,
// so a constructor registers everything first and checks Err once.
// A failed instrument is replaced by a no-op one.
type Instruments struct {
	meter metric.Meter
	errs  []error
}

// NewInstruments returns a builder for meter.
func NewInstruments(meter metric.Meter) *Instruments {
	return &Instruments{meter: meter}
}

// Counter registers a monotonic int64 counter.
func (b *Instruments) Counter(name, description, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("counter %s: %w", name, err))
		return noop.Int64Counter{}
	}
	return c
}

// UpDownCounter registers an int64 gauge-like counter.
func (b *Instruments) UpDownCounter(name, description, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("updown counter %s: %w", name, err))
		return noop.Int64UpDownCounter{}
	}
	return c
}

// Seconds registers a float64 histogram of durations in seconds.
func (b *Instruments) Seconds(name, description string, buckets []float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(description),
		metric.WithUnit("s"),
	}
	if len(buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}
	h, err := b.meter.Float64Histogram(name, opts...)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("histogram %s: %w", name, err))
		return noop.Float64Histogram{}
	}
	return h
}

// Err joins every creation error seen so far.
func (b *Instruments) Err() error {
	return errors.Join(b.errs...)
}
