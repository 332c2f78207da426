package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	appintegration "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/domain/integration"
)

// MarketplaceMetrics records reconciliation counters and sync job durations.
type MarketplaceMetrics struct {
	logger *zap.Logger

	notificationsTotal   metric.Int64Counter
	unknownTotal         metric.Int64Counter
	droppedTotal         metric.Int64Counter
	inventoryAdjustments metric.Int64Counter
	ordersUpserted       metric.Int64Counter
	syncJobDuration      metric.Float64Histogram
}

// MarketplaceMetricsConfig holds configuration for marketplace metrics.
type MarketplaceMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

var _ appintegration.Metrics = (*MarketplaceMetrics)(nil)

// NewMarketplaceMetrics creates the instruments on cfg.Meter.
func NewMarketplaceMetrics(cfg MarketplaceMetricsConfig) (*MarketplaceMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := NewInstruments(cfg.Meter)
	m := &MarketplaceMetrics{
		logger:               logger,
		notificationsTotal:   b.Counter("marketplace_notifications_total", "Notifications routed to a handler", "{notifications}"),
		unknownTotal:         b.Counter("marketplace_notifications_unknown_total", "Notifications with an unrecognised event name", "{notifications}"),
		droppedTotal:         b.Counter("marketplace_notifications_dropped_total", "Notifications dropped without effect", "{notifications}"),
		inventoryAdjustments: b.Counter("marketplace_inventory_adjustments_total", "Order lines whose stock was deducted or restored", "{lines}"),
		ordersUpserted:       b.Counter("marketplace_orders_upserted_total", "Orders created or updated from marketplace data", "{orders}"),
		syncJobDuration:      b.Seconds("marketplace_sync_job_duration_seconds", "Duration of order sync job attempts", SyncDurationBuckets),
	}
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("marketplace metrics: %w", err)
	}

	logger.Info("Marketplace metrics initialized")
	return m, nil
}

// NotificationReceived counts a notification routed to a handler.
func (m *MarketplaceMetrics) NotificationReceived(ctx context.Context, eventType integration.EventType) {
	m.notificationsTotal.Add(ctx, 1, metric.WithAttributes(AttrEventType.String(string(eventType))))
}

// NotificationUnknown counts a notification with no handler. The event name is
// not used as an attribute since it is unbounded.
func (m *MarketplaceMetrics) NotificationUnknown(ctx context.Context, eventName string) {
	m.unknownTotal.Add(ctx, 1)
}

// NotificationDropped counts a notification that matched no order.
func (m *MarketplaceMetrics) NotificationDropped(ctx context.Context, eventType integration.EventType, reason string) {
	m.droppedTotal.Add(ctx, 1, metric.WithAttributes(
		AttrEventType.String(string(eventType)),
		AttrReason.String(reason),
	))
}

// InventoryAdjusted counts adjusted order lines.
func (m *MarketplaceMetrics) InventoryAdjusted(ctx context.Context, direction string, items int) {
	if items <= 0 {
		return
	}
	m.inventoryAdjustments.Add(ctx, int64(items), metric.WithAttributes(AttrDirection.String(direction)))
}

// OrderUpserted counts an upserted order.
func (m *MarketplaceMetrics) OrderUpserted(ctx context.Context, source string, created bool) {
	m.ordersUpserted.Add(ctx, 1, metric.WithAttributes(
		AttrSource.String(source),
		AttrCreated.String(strconv.FormatBool(created)),
	))
}

// SyncJobFinished records the duration of one sync job attempt.
func (m *MarketplaceMetrics) SyncJobFinished(ctx context.Context, status string, duration time.Duration, orders int) {
	m.syncJobDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrJobStatus.String(status)))
	m.logger.Debug("Sync job recorded",
		zap.String("status", status),
		zap.Duration("duration", duration),
		zap.Int("orders", orders),
	)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewMarketplaceMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
