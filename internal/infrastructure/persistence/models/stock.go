package models

import (
	"github.com/google/uuid"

	"github.com/erp/ordersync/internal/domain/shared"
)

// StockLevel is the on-hand quantity of a SKU sold through the marketplace.
// Quantity may go negative when the marketplace oversells.
type StockLevel struct {
	shared.BaseEntity
	SKU      string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Quantity int    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (StockLevel) TableName() string {
	return "marketplace_stock_levels"
}

// StockMovement is one ledger line written for each deduction or restoration.
type StockMovement struct {
	shared.BaseEntity
	SKU     string    `gorm:"type:varchar(100);not null;index"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;index"`
	ItemID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Delta   int       `gorm:"not null"`
	Reason  string    `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "marketplace_stock_movements"
}

// Stock movement reasons
const (
	StockReasonDeduct  = "deduct"
	StockReasonRestore = "restore"
)
