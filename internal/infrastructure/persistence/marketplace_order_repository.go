package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMarketplaceOrderRepository implements integration.MarketplaceOrderRepository using GORM
type GormMarketplaceOrderRepository struct {
	db *gorm.DB
}

// NewGormMarketplaceOrderRepository creates a new GormMarketplaceOrderRepository
func NewGormMarketplaceOrderRepository(db *gorm.DB) *GormMarketplaceOrderRepository {
	return &GormMarketplaceOrderRepository{db: db}
}

// FindByID finds an order by its local ID
func (r *GormMarketplaceOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.MarketplaceOrder, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByExternalID finds an order by the marketplace order id
func (r *GormMarketplaceOrderRepository) FindByExternalID(ctx context.Context, channelID uuid.UUID, externalOrderID string) (*integration.MarketplaceOrder, error) {
	return r.findOne(ctx, "channel_id = ? AND external_order_id = ?", channelID, externalOrderID)
}

// FindByExtendedID finds an order by the marketplace extended order id
func (r *GormMarketplaceOrderRepository) FindByExtendedID(ctx context.Context, channelID uuid.UUID, extendedOrderID string) (*integration.MarketplaceOrder, error) {
	return r.findOne(ctx, "channel_id = ? AND extended_order_id = ?", channelID, extendedOrderID)
}

// FindByLineItemID finds the order owning a line item
func (r *GormMarketplaceOrderRepository) FindByLineItemID(ctx context.Context, channelID uuid.UUID, lineItemID string) (*integration.MarketplaceOrder, error) {
	sub := conn(ctx, r.db).Model(&integration.MarketplaceOrderItem{}).
		Select("order_id").
		Where("line_item_id = ?", lineItemID)
	return r.findOne(ctx, "channel_id = ? AND id IN (?)", channelID, sub)
}

// FindByItemTransaction finds the order owning the item/transaction pair
func (r *GormMarketplaceOrderRepository) FindByItemTransaction(ctx context.Context, channelID uuid.UUID, itemID, transactionID string) (*integration.MarketplaceOrder, error) {
	sub := conn(ctx, r.db).Model(&integration.MarketplaceOrderItem{}).
		Select("order_id").
		Where("external_item_id = ? AND transaction_id = ?", itemID, transactionID)
	return r.findOne(ctx, "channel_id = ? AND id IN (?)", channelID, sub)
}

// FindByItemID finds the most recent order containing the item
func (r *GormMarketplaceOrderRepository) FindByItemID(ctx context.Context, channelID uuid.UUID, itemID string) (*integration.MarketplaceOrder, error) {
	sub := conn(ctx, r.db).Model(&integration.MarketplaceOrderItem{}).
		Select("order_id").
		Where("external_item_id = ?", itemID)
	return r.findOne(ctx, "channel_id = ? AND id IN (?)", channelID, sub)
}

func (r *GormMarketplaceOrderRepository) findOne(ctx context.Context, query string, args ...any) (*integration.MarketplaceOrder, error) {
	var order integration.MarketplaceOrder
	err := forUpdate(conn(ctx, r.db)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where(query, args...).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Create inserts a new order with its items. A concurrent insert of the same
// external order yields shared.ErrAlreadyExists.
func (r *GormMarketplaceOrderRepository) Create(ctx context.Context, order *integration.MarketplaceOrder) error {
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	if err := conn(ctx, r.db).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists.WithCause(err)
		}
		return err
	}
	return nil
}

// Save updates the order and upserts its items
func (r *GormMarketplaceOrderRepository) Save(ctx context.Context, order *integration.MarketplaceOrder) error {
	db := conn(ctx, r.db)
	order.NextVersion()
	if err := db.Omit(clause.Associations).Save(order).Error; err != nil {
		return err
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		if err := db.Save(&order.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpdateAddressStatus records the address validation outcome
func (r *GormMarketplaceOrderRepository) UpdateAddressStatus(ctx context.Context, id uuid.UUID, status integration.AddressStatus) error {
	result := conn(ctx, r.db).Model(&integration.MarketplaceOrder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"address_status": status,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormMarketplaceOrderRepository implements MarketplaceOrderRepository
var _ integration.MarketplaceOrderRepository = (*GormMarketplaceOrderRepository)(nil)
