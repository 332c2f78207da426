package integration

import (
	"context"

	"github.com/erp/ordersync/internal/domain/integration"
)

// Inventory adjustment directions reported to Metrics
const (
	DirectionDeduct  = "deduct"
	DirectionRestore = "restore"
)

// Reasons a notification is dropped without effect
const (
	DropReasonMissingIdentifier = "missing_identifier"
	DropReasonOrderNotFound     = "order_not_found"
)

// Metrics receives counters from the reconciliation paths.
type Metrics interface {
	NotificationReceived(ctx context.Context, eventType integration.EventType)
	NotificationUnknown(ctx context.Context, eventName string)
	NotificationDropped(ctx context.Context, eventType integration.EventType, reason string)
	InventoryAdjusted(ctx context.Context, direction string, items int)
	OrderUpserted(ctx context.Context, source string, created bool)
}

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) NotificationReceived(context.Context, integration.EventType) {}
func (NoopMetrics) NotificationUnknown(context.Context, string) {}
func (NoopMetrics) NotificationDropped(context.Context, integration.EventType, string) {}
func (NoopMetrics) InventoryAdjusted(context.Context, string, int) {}
func (NoopMetrics) OrderUpserted(context.Context, string, bool) {}

var _ Metrics = NoopMetrics{}
