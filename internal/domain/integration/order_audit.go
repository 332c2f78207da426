package integration

import (
	"time"

	"github.com/google/uuid"
)

// OrderAuditEntry is one append-only record of an event processed for an order.
// Sequence is assigned per order and never reused.
type OrderAuditEntry struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_order_audit_seq,priority:1"`
	Sequence   int               `gorm:"not null;uniqueIndex:idx_order_audit_seq,priority:2"`
	EventType  EventType         `gorm:"type:varchar(40);not null"`
	EventName  string            `gorm:"type:varchar(100)"`
	DeliveryID string            `gorm:"type:varchar(100)"`
	Changed    bool              `gorm:"not null"`
	Fields     map[string]string `gorm:"type:text;serializer:json"`
	OccurredAt time.Time         `gorm:"not null"`
	CreatedAt  time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderAuditEntry) TableName() string {
	return "marketplace_order_audit_entries"
}

// NewOrderAuditEntry creates an entry; the repository assigns Sequence on append.
func NewOrderAuditEntry(orderID uuid.UUID, eventType EventType, eventName string, occurredAt time.Time) *OrderAuditEntry {
	return &OrderAuditEntry{
		ID:         uuid.New(),
		OrderID:    orderID,
		EventType:  eventType,
		EventName:  eventName,
		Fields:     make(map[string]string),
		OccurredAt: occurredAt,
		CreatedAt:  time.Now(),
	}
}

// Set records a salient field; empty values are skipped.
func (e *OrderAuditEntry) Set(key, value string) *OrderAuditEntry {
	if value != "" {
		e.Fields[key] = value
	}
	return e
}
