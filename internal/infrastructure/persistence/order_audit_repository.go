package persistence

import (
	"context"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderAuditRepository implements integration.OrderAuditRepository using GORM
type GormOrderAuditRepository struct {
	db *gorm.DB
}

// NewGormOrderAuditRepository creates a new GormOrderAuditRepository
func NewGormOrderAuditRepository(db *gorm.DB) *GormOrderAuditRepository {
	return &GormOrderAuditRepository{db: db}
}

// Append assigns the next per-order sequence and inserts the entry.
// Callers hold the order row lock, so sequences are gap-free per order.
func (r *GormOrderAuditRepository) Append(ctx context.Context, entry *integration.OrderAuditEntry) error {
	db := conn(ctx, r.db)
	var last int
	if err := db.Model(&integration.OrderAuditEntry{}).
		Where("order_id = ?", entry.OrderID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&last).Error; err != nil {
		return err
	}
	entry.Sequence = last + 1
	return db.Create(entry).Error
}

// ListByOrder returns the audit log of an order in sequence order
func (r *GormOrderAuditRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]integration.OrderAuditEntry, error) {
	var entries []integration.OrderAuditEntry
	err := conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("sequence ASC").
		Find(&entries).Error
	return entries, err
}

// Ensure GormOrderAuditRepository implements OrderAuditRepository
var _ integration.OrderAuditRepository = (*GormOrderAuditRepository)(nil)
