package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockLedger implements integration.InventoryAdjuster. It adjusts
// marketplace stock levels by SKU and writes one movement per adjustment,
// inside the caller's transaction.
type GormStockLedger struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormStockLedger creates a new GormStockLedger
func NewGormStockLedger(db *gorm.DB, logger *zap.Logger) *GormStockLedger {
	return &GormStockLedger{db: db, logger: logger.Named("stock_ledger")}
}

// Deduct removes the item's quantity from stock
func (l *GormStockLedger) Deduct(ctx context.Context, order *integration.MarketplaceOrder, item *integration.MarketplaceOrderItem) error {
	return l.adjust(ctx, order, item, -item.Quantity, models.StockReasonDeduct)
}

// Restore returns the item's quantity to stock
func (l *GormStockLedger) Restore(ctx context.Context, order *integration.MarketplaceOrder, item *integration.MarketplaceOrderItem) error {
	return l.adjust(ctx, order, item, item.Quantity, models.StockReasonRestore)
}

func (l *GormStockLedger) adjust(ctx context.Context, order *integration.MarketplaceOrder, item *integration.MarketplaceOrderItem, delta int, reason string) error {
	if item.SKU == "" {
		// product reference unresolved; the flag still records that the item was accounted for
		l.logger.Debug("Skipping stock adjustment for item without SKU",
			zap.String("external_order_id", order.ExternalOrderID),
			zap.String("external_item_id", item.ExternalItemID),
			zap.String("reason", reason),
		)
		return nil
	}
	if delta == 0 {
		return nil
	}

	db := conn(ctx, l.db)
	level := models.StockLevel{BaseEntity: shared.NewBaseEntity(), SKU: item.SKU}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&level).Error; err != nil {
		return fmt.Errorf("failed to ensure stock level for %s: %w", item.SKU, err)
	}
	if err := db.Model(&models.StockLevel{}).
		Where("sku = ?", item.SKU).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now(),
		}).Error; err != nil {
		return fmt.Errorf("failed to adjust stock for %s: %w", item.SKU, err)
	}

	movement := models.StockMovement{
		BaseEntity: shared.NewBaseEntity(),
		SKU:        item.SKU,
		OrderID:    order.ID,
		ItemID:     item.ID,
		Delta:      delta,
		Reason:     reason,
	}
	if err := db.Create(&movement).Error; err != nil {
		return fmt.Errorf("failed to record stock movement for %s: %w", item.SKU, err)
	}

	l.logger.Info("Stock adjusted",
		zap.String("sku", item.SKU),
		zap.Int("delta", delta),
		zap.String("reason", reason),
		zap.String("external_order_id", order.ExternalOrderID),
	)
	return nil
}

// QuantityOf returns the current stock level of sku, or 0 when unknown.
func (l *GormStockLedger) QuantityOf(ctx context.Context, sku string) (int, error) {
	var level models.StockLevel
	err := conn(ctx, l.db).Where("sku = ?", sku).Limit(1).Find(&level).Error
	return level.Quantity, err
}

// Ensure GormStockLedger implements InventoryAdjuster
var _ integration.InventoryAdjuster = (*GormStockLedger)(nil)
