package integration

import (
	"context"
	"errors"
	"strconv"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReturnHandler serves every return event type; target is the return status
// the event moves to.
type ReturnHandler struct {
	handlerBase
	target integration.ReturnStatus
}

// Handle processes a return notification
func (h *ReturnHandler) Handle(ctx context.Context, n *Notification) error {
	facts := integration.ExtractNotificationFacts(n.Payload)
	key, _ := integration.ExtractOrderKey(n.Payload)

	err := h.apply(ctx, n, h.locate, func(ctx context.Context, order *integration.MarketplaceOrder, entry *integration.OrderAuditEntry) error {
		returnID := key.ReturnID
		if returnID == "" {
			returnID = order.ID.String()
		}
		ret, err := h.stores.Returns.FindByReturnID(ctx, returnID)
		if errors.Is(err, shared.ErrNotFound) {
			ret = integration.NewOrderReturn(order.ID, returnID)
		} else if err != nil {
			return err
		}

		returnChanged := ret.Advance(h.target, n.EventName, &n.ReceivedAt)
		if !facts.RefundAmount.IsZero() && !facts.RefundAmount.Equal(ret.RefundAmount) {
			ret.RefundAmount = facts.RefundAmount
			returnChanged = true
		}
		if !order.AdvanceReturn(h.target, &n.ReceivedAt) {
			h.logger.Debug("Return status not advanced",
				zap.String("external_order_id", order.ExternalOrderID),
				zap.String("current", order.ReturnStatus.String()),
				zap.String("target", h.target.String()),
			)
		}

		restored := 0
		if h.target == integration.ReturnStatusClosed && facts.Refunded() {
			if !ret.Refunded {
				ret.Refunded = true
				returnChanged = true
			}
			order.MarkRefunded()
			if restored, err = h.restore(ctx, order); err != nil {
				return err
			}
		}

		if returnChanged {
			if err := h.stores.Returns.Save(ctx, ret); err != nil {
				return err
			}
			entry.Changed = true
		}
		entry.Set("return_id", ret.ReturnID).
			Set("return_status", ret.Status.String()).
			Set("inventory_restored", strconv.Itoa(restored))
		if !ret.RefundAmount.IsZero() {
			entry.Set("refund_amount", ret.RefundAmount.String())
		}
		return nil
	})
	return h.finish(ctx, n, err)
}

// locate resolves the order through a known return first, then the order key.
func (h *ReturnHandler) locate(ctx context.Context, channelID uuid.UUID, key integration.OrderKey) (*integration.MarketplaceOrder, error) {
	if key.ReturnID != "" {
		ret, err := h.stores.Returns.FindByReturnID(ctx, key.ReturnID)
		switch {
		case err == nil:
			order, err := h.stores.Orders.FindByID(ctx, ret.OrderID)
			if err == nil && order.ChannelID == channelID {
				return order, nil
			}
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
		case !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
	}
	return h.locateByKey(ctx, channelID, key)
}

var _ NotificationHandler = (*ReturnHandler)(nil)
