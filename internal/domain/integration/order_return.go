package integration

import (
	"time"

	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderReturn tracks one marketplace return for an order, keyed by return id.
type OrderReturn struct {
	shared.BaseEntity
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_return_key,priority:1"`
	ReturnID      string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_return_key,priority:2;index"`
	Status        ReturnStatus    `gorm:"type:varchar(30);not null"`
	RefundAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Refunded      bool            `gorm:"not null;default:false"`
	LastEventName string          `gorm:"type:varchar(100)"`
	ClosedAt      *time.Time
}

// TableName returns the table name for GORM
func (OrderReturn) TableName() string {
	return "marketplace_order_returns"
}

// NewOrderReturn opens a return record in no state; Advance sets the first status.
func NewOrderReturn(orderID uuid.UUID, returnID string) *OrderReturn {
	return &OrderReturn{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    orderID,
		ReturnID:   returnID,
		Status:     ReturnStatusNone,
	}
}

// Advance moves the return forward when the lifecycle allows it.
func (r *OrderReturn) Advance(next ReturnStatus, eventName string, at *time.Time) bool {
	if !r.Status.CanTransitionTo(next) {
		return false
	}
	r.Status = next
	r.LastEventName = eventName
	if next == ReturnStatusClosed {
		r.ClosedAt = FillTime(r.ClosedAt, at)
	}
	return true
}
