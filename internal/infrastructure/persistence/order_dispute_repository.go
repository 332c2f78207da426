package persistence

import (
	"context"
	"errors"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderDisputeRepository implements integration.OrderDisputeRepository using GORM
type GormOrderDisputeRepository struct {
	db *gorm.DB
}

// NewGormOrderDisputeRepository creates a new GormOrderDisputeRepository
func NewGormOrderDisputeRepository(db *gorm.DB) *GormOrderDisputeRepository {
	return &GormOrderDisputeRepository{db: db}
}

// Find finds a dispute by order and dispute id
func (r *GormOrderDisputeRepository) Find(ctx context.Context, orderID uuid.UUID, disputeID string) (*integration.OrderDispute, error) {
	var d integration.OrderDispute
	err := conn(ctx, r.db).
		Where("order_id = ? AND dispute_id = ?", orderID, disputeID).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Save upserts the dispute by (order_id, dispute_id)
func (r *GormOrderDisputeRepository) Save(ctx context.Context, d *integration.OrderDispute) error {
	db := conn(ctx, r.db)
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(d)
	if result.Error != nil || result.RowsAffected > 0 {
		return result.Error
	}
	return db.Model(&integration.OrderDispute{}).
		Where("order_id = ? AND dispute_id = ?", d.OrderID, d.DisputeID).
		Updates(map[string]any{
			"kind":            d.Kind,
			"state":           d.State,
			"last_event_name": d.LastEventName,
			"closed_at":       d.ClosedAt,
			"updated_at":      d.UpdatedAt,
		}).Error
}

// ListByOrder returns all disputes of an order
func (r *GormOrderDisputeRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]integration.OrderDispute, error) {
	var disputes []integration.OrderDispute
	err := conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("opened_at ASC").
		Find(&disputes).Error
	return disputes, err
}

// Ensure GormOrderDisputeRepository implements OrderDisputeRepository
var _ integration.OrderDisputeRepository = (*GormOrderDisputeRepository)(nil)
