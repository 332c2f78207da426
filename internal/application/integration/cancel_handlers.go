package integration

import (
	"context"
	"strconv"

	"github.com/erp/ordersync/internal/domain/integration"
)

// CancelRequestedHandler records a buyer cancellation request
type CancelRequestedHandler struct {
	handlerBase
}

// Handle processes a cancellation request
func (h *CancelRequestedHandler) Handle(ctx context.Context, n *Notification) error {
	facts := integration.ExtractNotificationFacts(n.Payload)
	err := h.apply(ctx, n, h.locateByKey, func(_ context.Context, order *integration.MarketplaceOrder, entry *integration.OrderAuditEntry) error {
		order.RequestCancellation(facts.CancelReason)
		entry.Set("cancel_status", order.CancelStatus).
			Set("cancel_reason", order.CancelReason)
		return nil
	})
	return h.finish(ctx, n, err)
}

// CancelApprovedHandler cancels the order and restores deducted stock
type CancelApprovedHandler struct {
	handlerBase
}

// Handle processes an approved cancellation
func (h *CancelApprovedHandler) Handle(ctx context.Context, n *Notification) error {
	facts := integration.ExtractNotificationFacts(n.Payload)
	err := h.apply(ctx, n, h.locateByKey, func(ctx context.Context, order *integration.MarketplaceOrder, entry *integration.OrderAuditEntry) error {
		order.ApproveCancellation(eventTime(facts.CancelClosedAt, n))
		restored, err := h.restore(ctx, order)
		if err != nil {
			return err
		}
		entry.Set("cancel_status", order.CancelStatus).
			Set("inventory_restored", strconv.Itoa(restored))
		return nil
	})
	return h.finish(ctx, n, err)
}

// CancelRejectedHandler returns the order to the status it had before the request
type CancelRejectedHandler struct {
	handlerBase
}

// Handle processes a rejected cancellation
func (h *CancelRejectedHandler) Handle(ctx context.Context, n *Notification) error {
	err := h.apply(ctx, n, h.locateByKey, func(_ context.Context, order *integration.MarketplaceOrder, entry *integration.OrderAuditEntry) error {
		order.RejectCancellation()
		entry.Set("cancel_status", order.CancelStatus).
			Set("order_status", order.OrderStatus.String())
		return nil
	})
	return h.finish(ctx, n, err)
}

// RefundHandler serves both refund event types. An initiated refund is only
// audited; a completed refund marks the order refunded and restores stock.
type RefundHandler struct {
	handlerBase
	completed bool
}

// Handle processes a refund notification
func (h *RefundHandler) Handle(ctx context.Context, n *Notification) error {
	facts := integration.ExtractNotificationFacts(n.Payload)
	err := h.apply(ctx, n, h.locateByKey, func(ctx context.Context, order *integration.MarketplaceOrder, entry *integration.OrderAuditEntry) error {
		if !facts.RefundAmount.IsZero() {
			entry.Set("refund_amount", facts.RefundAmount.String())
		}
		if !h.completed {
			return nil
		}
		order.MarkRefunded()
		restored, err := h.restore(ctx, order)
		if err != nil {
			return err
		}
		entry.Set("inventory_restored", strconv.Itoa(restored))
		return nil
	})
	return h.finish(ctx, n, err)
}

var (
	_ NotificationHandler = (*CancelRequestedHandler)(nil)
	_ NotificationHandler = (*CancelApprovedHandler)(nil)
	_ NotificationHandler = (*CancelRejectedHandler)(nil)
	_ NotificationHandler = (*RefundHandler)(nil)
)
