package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification is one pushed marketplace event
type Notification struct {
	ChannelID  uuid.UUID
	EventName  string
	EventType  integration.EventType
	DeliveryID string
	ReceivedAt time.Time
	Payload    integration.Payload
}

// NotificationHandler applies one kind of marketplace event to the local order.
// Handlers are idempotent: redelivering a notification converges to the same
// state and never adjusts inventory twice.
type NotificationHandler interface {
	Handle(ctx context.Context, n *Notification) error
}

// locateFunc finds the order a notification refers to.
type locateFunc func(ctx context.Context, channelID uuid.UUID, key integration.OrderKey) (*integration.MarketplaceOrder, error)

// applyFunc mutates a located order and records salient fields in the entry.
type applyFunc func(ctx context.Context, order *integration.MarketplaceOrder, entry *integration.OrderAuditEntry) error

// handlerBase carries what every handler shares: locating the order under a
// row lock, saving it and appending exactly one audit entry per application.
type handlerBase struct {
	stores  OrderStores
	metrics Metrics
	logger  *zap.Logger
}

// apply runs fn against the order n refers to in one transaction. It returns
// integration.ErrMissingIdentifier or integration.ErrOrderNotFound unhandled so
// that callers can decide on a fallback; finish turns them into no-ops.
// Inventory metrics are emitted only once the transaction committed.
func (b *handlerBase) apply(ctx context.Context, n *Notification, locate locateFunc, fn applyFunc) error {
	key, ok := integration.ExtractOrderKey(n.Payload)
	if !ok {
		return integration.ErrMissingIdentifier
	}
	var deducted, restored int
	err := b.stores.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		order, err := locate(ctx, n.ChannelID, key)
		if err != nil {
			return err
		}
		before := order.State()
		entry := integration.NewOrderAuditEntry(order.ID, n.EventType, n.EventName, n.ReceivedAt)
		entry.DeliveryID = n.DeliveryID
		if err := fn(ctx, order, entry); err != nil {
			return err
		}
		after := order.State()
		entry.Changed = entry.Changed || after != before

		if err := b.stores.Orders.Save(ctx, order); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
		if err := b.stores.Audit.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
		deducted, restored = inventoryDelta(before, after)
		return nil
	})
	if err != nil {
		return err
	}
	if deducted > 0 {
		b.metrics.InventoryAdjusted(ctx, DirectionDeduct, deducted)
	}
	if restored > 0 {
		b.metrics.InventoryAdjusted(ctx, DirectionRestore, restored)
	}
	return nil
}

// inventoryDelta derives the items deducted and restored between two states.
// Restoring moves an item from the deducted count to the restored count.
func inventoryDelta(before, after integration.OrderState) (deducted, restored int) {
	restored = after.RestoredFlags - before.RestoredFlags
	deducted = after.InventoryFlags - before.InventoryFlags + restored
	return deducted, restored
}

// finish logs the outcome of apply. Notifications that cannot be matched to an
// order are dropped; persistence failures are returned so the sender retries.
func (b *handlerBase) finish(ctx context.Context, n *Notification, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, integration.ErrMissingIdentifier):
		b.logger.Warn("Dropping notification without order identifier",
			zap.String("event_name", n.EventName),
			zap.String("delivery_id", n.DeliveryID),
		)
		b.metrics.NotificationDropped(ctx, n.EventType, DropReasonMissingIdentifier)
		return nil
	case errors.Is(err, integration.ErrOrderNotFound):
		b.logger.Warn("Dropping notification for unknown order",
			zap.String("event_name", n.EventName),
			zap.String("delivery_id", n.DeliveryID),
		)
		b.metrics.NotificationDropped(ctx, n.EventType, DropReasonOrderNotFound)
		return nil
	default:
		b.logger.Error("Failed to apply notification",
			zap.String("event_name", n.EventName),
			zap.String("event_type", n.EventType.String()),
			zap.String("delivery_id", n.DeliveryID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to apply %s: %w", n.EventName, err)
	}
}

// locateByKey tries every order reference in the key, most specific first.
func (b *handlerBase) locateByKey(ctx context.Context, channelID uuid.UUID, key integration.OrderKey) (*integration.MarketplaceOrder, error) {
	orders := b.stores.Orders
	attempts := []func() (*integration.MarketplaceOrder, error){}
	if key.OrderID != "" {
		attempts = append(attempts,
			func() (*integration.MarketplaceOrder, error) { return orders.FindByExternalID(ctx, channelID, key.OrderID) },
			func() (*integration.MarketplaceOrder, error) { return orders.FindByExtendedID(ctx, channelID, key.OrderID) },
		)
	}
	if key.ExtendedOrderID != "" {
		attempts = append(attempts, func() (*integration.MarketplaceOrder, error) {
			return orders.FindByExtendedID(ctx, channelID, key.ExtendedOrderID)
		})
	}
	if key.LineItemID != "" {
		attempts = append(attempts, func() (*integration.MarketplaceOrder, error) {
			return orders.FindByLineItemID(ctx, channelID, key.LineItemID)
		})
	}
	if key.ItemID != "" && key.TransactionID != "" {
		attempts = append(attempts, func() (*integration.MarketplaceOrder, error) {
			return orders.FindByItemTransaction(ctx, channelID, key.ItemID, key.TransactionID)
		})
	}
	return firstFound(attempts...)
}

// firstFound returns the first order found. Lookup errors other than not-found abort.
func firstFound(attempts ...func() (*integration.MarketplaceOrder, error)) (*integration.MarketplaceOrder, error) {
	for _, attempt := range attempts {
		order, err := attempt()
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("failed to locate order: %w", err)
		}
	}
	return nil, integration.ErrOrderNotFound
}

func (b *handlerBase) deduct(ctx context.Context, order *integration.MarketplaceOrder) (int, error) {
	return deductUnflagged(ctx, b.stores.Inventory, order)
}

func (b *handlerBase) restore(ctx context.Context, order *integration.MarketplaceOrder) (int, error) {
	return restoreFlagged(ctx, b.stores.Inventory, order)
}

// eventTime returns t when the payload carried one, else the arrival time.
func eventTime(t *time.Time, n *Notification) *time.Time {
	if t != nil {
		return t
	}
	at := n.ReceivedAt
	return &at
}
