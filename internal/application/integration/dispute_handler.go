package integration

import (
	"context"
	"errors"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
)

// DisputeHandler keeps one OrderDispute per dispute id, so concurrent disputes
// on the same order never overwrite each other.
type DisputeHandler struct {
	handlerBase
}

// Handle processes a dispute or case notification
func (h *DisputeHandler) Handle(ctx context.Context, n *Notification) error {
	kind, state, ok := integration.DisputeTransitionFor(n.EventName)
	if !ok {
		kind, state = integration.DisputeKindOther, integration.DisputeStateOpened
	}
	key, _ := integration.ExtractOrderKey(n.Payload)

	err := h.apply(ctx, n, h.locate, func(ctx context.Context, order *integration.MarketplaceOrder, entry *integration.OrderAuditEntry) error {
		disputeID := integration.DisputeKeyFor(key)
		if disputeID == "" {
			disputeID = order.ExternalOrderID
		}
		dispute, err := h.stores.Disputes.Find(ctx, order.ID, disputeID)
		if errors.Is(err, shared.ErrNotFound) {
			dispute = integration.NewOrderDispute(order.ID, disputeID, kind, n.ReceivedAt)
		} else if err != nil {
			return err
		}

		if dispute.Apply(state, n.EventName, n.ReceivedAt) {
			if err := h.stores.Disputes.Save(ctx, dispute); err != nil {
				return err
			}
			entry.Changed = true
		}
		entry.Set("dispute_id", dispute.DisputeID).
			Set("dispute_kind", string(dispute.Kind)).
			Set("dispute_state", string(dispute.State))
		return nil
	})
	return h.finish(ctx, n, err)
}

// locate resolves the order through the disputed item and transaction first,
// then the item alone, then any other order reference.
func (h *DisputeHandler) locate(ctx context.Context, channelID uuid.UUID, key integration.OrderKey) (*integration.MarketplaceOrder, error) {
	orders := h.stores.Orders
	var attempts []func() (*integration.MarketplaceOrder, error)
	if key.ItemID != "" && key.TransactionID != "" {
		attempts = append(attempts, func() (*integration.MarketplaceOrder, error) {
			return orders.FindByItemTransaction(ctx, channelID, key.ItemID, key.TransactionID)
		})
	}
	if key.ItemID != "" {
		attempts = append(attempts, func() (*integration.MarketplaceOrder, error) {
			return orders.FindByItemID(ctx, channelID, key.ItemID)
		})
	}
	order, err := firstFound(attempts...)
	if err == nil || !errors.Is(err, integration.ErrOrderNotFound) {
		return order, err
	}
	return h.locateByKey(ctx, channelID, key)
}

var _ NotificationHandler = (*DisputeHandler)(nil)
