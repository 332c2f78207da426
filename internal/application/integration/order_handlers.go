package integration

import (
	"context"
	"errors"
	"strconv"

	"github.com/erp/ordersync/internal/domain/integration"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Shipped
// ---------------------------------------------------------------------------

// ShippedHandler marks the order shipped and deducts stock not yet deducted
type ShippedHandler struct {
	handlerBase
}

// Handle processes a shipment notification
func (h *ShippedHandler) Handle(ctx context.Context, n *Notification) error {
	facts := integration.ExtractNotificationFacts(n.Payload)
	err := h.apply(ctx, n, h.locateByKey, func(ctx context.Context, order *integration.MarketplaceOrder, entry *integration.OrderAuditEntry) error {
		order.MarkShipped(facts.TrackingNumber, facts.Carrier, eventTime(facts.ShippedAt, n))
		deducted, err := h.deduct(ctx, order)
		if err != nil {
			return err
		}
		entry.Set("tracking_number", order.TrackingNumber).
			Set("carrier", order.Carrier).
			Set("inventory_deducted", strconv.Itoa(deducted))
		return nil
	})
	return h.finish(ctx, n, err)
}

// ---------------------------------------------------------------------------
// Paid
// ---------------------------------------------------------------------------

// PaidHandler confirms payment. When the order is not known yet it is built
// from the notification through the upsert engine.
type PaidHandler struct {
	handlerBase
	upserts *OrderUpsertService
}

// Handle processes a payment notification
func (h *PaidHandler) Handle(ctx context.Context, n *Notification) error {
	facts := integration.ExtractNotificationFacts(n.Payload)
	err := h.apply(ctx, n, h.locateByKey, func(ctx context.Context, order *integration.MarketplaceOrder, entry *integration.OrderAuditEntry) error {
		order.MarkPaid(eventTime(facts.PaidAt, n))
		deducted, err := h.deduct(ctx, order)
		if err != nil {
			return err
		}
		entry.Set("payment_status", order.PaymentStatus.String()).
			Set("inventory_deducted", strconv.Itoa(deducted))
		return nil
	})
	if errors.Is(err, integration.ErrOrderNotFound) {
		err = h.createFromNotification(ctx, n, facts)
	}
	return h.finish(ctx, n, err)
}

func (h *PaidHandler) createFromNotification(ctx context.Context, n *Notification, facts integration.NotificationFacts) error {
	normalized, err := integration.NormalizeNotification(n.Payload)
	if err != nil {
		return err
	}
	// the paid event itself confirms payment
	normalized.Signals.PaidTime = eventTime(facts.PaidAt, n)

	result, err := h.upserts.Upsert(ctx, n.ChannelID, normalized, UpsertSource{
		EventType:  n.EventType,
		EventName:  n.EventName,
		DeliveryID: n.DeliveryID,
		ReceivedAt: n.ReceivedAt,
	})
	if err != nil {
		return err
	}
	h.logger.Info("Marketplace order created from payment notification",
		zap.String("external_order_id", result.Order.ExternalOrderID),
		zap.String("order_number", result.Order.OrderNumber),
		zap.Bool("created", result.Created),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Delivered / picked up
// ---------------------------------------------------------------------------

// DeliveredHandler marks the order delivered
type DeliveredHandler struct {
	handlerBase
}

// Handle processes a delivery or pickup notification
func (h *DeliveredHandler) Handle(ctx context.Context, n *Notification) error {
	facts := integration.ExtractNotificationFacts(n.Payload)
	err := h.apply(ctx, n, h.locateByKey, func(ctx context.Context, order *integration.MarketplaceOrder, entry *integration.OrderAuditEntry) error {
		order.MarkDelivered(eventTime(facts.DeliveredAt, n))
		entry.Set("tracking_number", order.TrackingNumber)
		return nil
	})
	return h.finish(ctx, n, err)
}

// ---------------------------------------------------------------------------
// Ready for pickup
// ---------------------------------------------------------------------------

// ReadyForPickupHandler records that the order awaits in-store pickup
type ReadyForPickupHandler struct {
	handlerBase
}

// Handle processes a ready-for-pickup notification
func (h *ReadyForPickupHandler) Handle(ctx context.Context, n *Notification) error {
	facts := integration.ExtractNotificationFacts(n.Payload)
	err := h.apply(ctx, n, h.locateByKey, func(ctx context.Context, order *integration.MarketplaceOrder, entry *integration.OrderAuditEntry) error {
		order.MarkReadyForPickup(facts.PickupLocationID, facts.PickupReference)
		entry.Set("pickup_location_id", order.PickupLocationID).
			Set("pickup_reference", order.PickupReference)
		return nil
	})
	return h.finish(ctx, n, err)
}

var (
	_ NotificationHandler = (*ShippedHandler)(nil)
	_ NotificationHandler = (*PaidHandler)(nil)
	_ NotificationHandler = (*DeliveredHandler)(nil)
	_ NotificationHandler = (*ReadyForPickupHandler)(nil)
)
