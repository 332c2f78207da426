package persistence

import (
	"context"
	"errors"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderReturnRepository implements integration.OrderReturnRepository using GORM
type GormOrderReturnRepository struct {
	db *gorm.DB
}

// NewGormOrderReturnRepository creates a new GormOrderReturnRepository
func NewGormOrderReturnRepository(db *gorm.DB) *GormOrderReturnRepository {
	return &GormOrderReturnRepository{db: db}
}

// FindByReturnID finds a return by the marketplace return id
func (r *GormOrderReturnRepository) FindByReturnID(ctx context.Context, returnID string) (*integration.OrderReturn, error) {
	var ret integration.OrderReturn
	err := conn(ctx, r.db).Where("return_id = ?", returnID).First(&ret).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ret, nil
}

// Save upserts the return by (order_id, return_id)
func (r *GormOrderReturnRepository) Save(ctx context.Context, ret *integration.OrderReturn) error {
	db := conn(ctx, r.db)
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(ret)
	if result.Error != nil || result.RowsAffected > 0 {
		return result.Error
	}
	return db.Model(&integration.OrderReturn{}).
		Where("order_id = ? AND return_id = ?", ret.OrderID, ret.ReturnID).
		Updates(map[string]any{
			"status":          ret.Status,
			"refund_amount":   ret.RefundAmount,
			"refunded":        ret.Refunded,
			"last_event_name": ret.LastEventName,
			"closed_at":       ret.ClosedAt,
			"updated_at":      ret.UpdatedAt,
		}).Error
}

// Ensure GormOrderReturnRepository implements OrderReturnRepository
var _ integration.OrderReturnRepository = (*GormOrderReturnRepository)(nil)
