package integration

import (
	"context"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"go.uber.org/zap"
)

// Dispatcher routes a notification to its handler
type Dispatcher interface {
	Dispatch(ctx context.Context, n *Notification) error
}

// NotificationDispatcher routes notifications through a static table from
// event type to handler. Unknown event names are a no-op.
type NotificationDispatcher struct {
	handlers map[integration.EventType]NotificationHandler
	metrics  Metrics
	logger   *zap.Logger
}

// NewNotificationDispatcher builds the dispatcher with every handler wired.
func NewNotificationDispatcher(
	stores OrderStores,
	upserts *OrderUpsertService,
	metrics Metrics,
	logger *zap.Logger,
) *NotificationDispatcher {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	logger = logger.Named("notifications")
	base := handlerBase{stores: stores, metrics: metrics, logger: logger}
	returnTo := func(status integration.ReturnStatus) *ReturnHandler {
		return &ReturnHandler{handlerBase: base, target: status}
	}

	return &NotificationDispatcher{
		handlers: map[integration.EventType]NotificationHandler{
			integration.EventTypeShipped:              &ShippedHandler{base},
			integration.EventTypePaid:                 &PaidHandler{handlerBase: base, upserts: upserts},
			integration.EventTypeDelivered:            &DeliveredHandler{base},
			integration.EventTypeReadyForPickup:       &ReadyForPickupHandler{base},
			integration.EventTypeCancelRequested:      &CancelRequestedHandler{base},
			integration.EventTypeCancelApproved:       &CancelApprovedHandler{base},
			integration.EventTypeCancelRejected:       &CancelRejectedHandler{base},
			integration.EventTypeRefundInitiated:      &RefundHandler{handlerBase: base},
			integration.EventTypeRefundCompleted:      &RefundHandler{handlerBase: base, completed: true},
			integration.EventTypeReturnCreated:        returnTo(integration.ReturnStatusRequested),
			integration.EventTypeReturnShipped:        returnTo(integration.ReturnStatusShipped),
			integration.EventTypeReturnDelivered:      returnTo(integration.ReturnStatusDelivered),
			integration.EventTypeReturnClosed:         returnTo(integration.ReturnStatusClosed),
			integration.EventTypeReturnEscalated:      returnTo(integration.ReturnStatusEscalated),
			integration.EventTypeReturnActionRequired: returnTo(integration.ReturnStatusActionRequired),
			integration.EventTypeDispute:              &DisputeHandler{base},
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Dispatch applies n through the handler registered for its event name.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, n *Notification) error {
	n.EventType = integration.ParseEventType(n.EventName)
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = time.Now()
	}

	handler, ok := d.handlers[n.EventType]
	if !ok {
		d.logger.Debug("Ignoring unrecognised marketplace event",
			zap.String("event_name", n.EventName),
			zap.String("delivery_id", n.DeliveryID),
		)
		d.metrics.NotificationUnknown(ctx, n.EventName)
		return nil
	}

	d.metrics.NotificationReceived(ctx, n.EventType)
	d.logger.Debug("Dispatching marketplace event",
		zap.String("event_name", n.EventName),
		zap.String("event_type", n.EventType.String()),
		zap.String("channel_id", n.ChannelID.String()),
		zap.String("delivery_id", n.DeliveryID),
	)
	return handler.Handle(ctx, n)
}

// HandledEventTypes returns the number of event types with a handler
func (d *NotificationDispatcher) HandledEventTypes() int {
	return len(d.handlers)
}

var _ Dispatcher = (*NotificationDispatcher)(nil)
