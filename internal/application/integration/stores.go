package integration

import (
	"context"
	"fmt"

	"github.com/erp/ordersync/internal/domain/integration"
)

// OrderStores groups the collaborators every order write path needs.
type OrderStores struct {
	TxManager integration.TxManager
	Orders    integration.MarketplaceOrderRepository
	Audit     integration.OrderAuditRepository
	Returns   integration.OrderReturnRepository
	Disputes  integration.OrderDisputeRepository
	Inventory integration.InventoryAdjuster
}

// deductUnflagged deducts stock for every item whose flag is still false and
// that was never restored. The flag transition gates the adjuster call, so
// redelivery never deducts twice.
func deductUnflagged(ctx context.Context, inventory integration.InventoryAdjuster, order *integration.MarketplaceOrder) (int, error) {
	count := 0
	for i := range order.Items {
		item := &order.Items[i]
		if !item.MarkInventoryDeducted() {
			continue
		}
		if err := inventory.Deduct(ctx, order, item); err != nil {
			return count, fmt.Errorf("failed to deduct inventory for item %s: %w", item.ExternalItemID, err)
		}
		count++
	}
	return count, nil
}

// restoreFlagged returns stock for every item whose flag is true.
func restoreFlagged(ctx context.Context, inventory integration.InventoryAdjuster, order *integration.MarketplaceOrder) (int, error) {
	count := 0
	for i := range order.Items {
		item := &order.Items[i]
		if !item.MarkInventoryRestored() {
			continue
		}
		if err := inventory.Restore(ctx, order, item); err != nil {
			return count, fmt.Errorf("failed to restore inventory for item %s: %w", item.ExternalItemID, err)
		}
		count++
	}
	return count, nil
}
