package integration

import (
	"time"

	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderDispute is one dispute or case on an order. An order may carry several
// disputes at once; each is stored under its own dispute id.
type OrderDispute struct {
	shared.BaseEntity
	OrderID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_order_dispute_key,priority:1"`
	DisputeID     string       `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_dispute_key,priority:2"`
	Kind          DisputeKind  `gorm:"type:varchar(30);not null"`
	State         DisputeState `gorm:"type:varchar(30);not null"`
	LastEventName string       `gorm:"type:varchar(100)"`
	OpenedAt      time.Time    `gorm:"not null"`
	ClosedAt      *time.Time
}

// TableName returns the table name for GORM
func (OrderDispute) TableName() string {
	return "marketplace_order_disputes"
}

// NewOrderDispute creates a dispute record
func NewOrderDispute(orderID uuid.UUID, disputeID string, kind DisputeKind, openedAt time.Time) *OrderDispute {
	return &OrderDispute{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    orderID,
		DisputeID:  disputeID,
		Kind:       kind,
		State:      DisputeStateOpened,
		OpenedAt:   openedAt,
	}
}

// Apply sets the state named by an event. A closed dispute only reopens on appeal.
func (d *OrderDispute) Apply(state DisputeState, eventName string, at time.Time) bool {
	if d.State == state && d.LastEventName == eventName {
		return false
	}
	if d.State.IsTerminal() && state != DisputeStateAppealed {
		return false
	}
	d.State = state
	d.LastEventName = eventName
	if state.IsTerminal() {
		closedAt := at
		d.ClosedAt = FillTime(d.ClosedAt, &closedAt)
	}
	return true
}

// DisputeKeyFor returns the dispute id from the key, or a synthetic
// item:transaction key when the marketplace omitted one.
func DisputeKeyFor(k OrderKey) string {
	if k.DisputeID != "" {
		return k.DisputeID
	}
	if k.ItemID != "" {
		return k.ItemID + ":" + k.TransactionID
	}
	return ""
}
