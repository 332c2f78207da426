package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/ordersync/internal/domain/integration"
)

// OrderItemResponse is one order line
type OrderItemResponse struct {
	ID                string          `json:"id"`
	ExternalItemID    string          `json:"external_item_id,omitempty"`
	TransactionID     string          `json:"transaction_id,omitempty"`
	LineItemID        string          `json:"line_item_id,omitempty"`
	SKU               string          `json:"sku,omitempty"`
	Title             string          `json:"title,omitempty"`
	Quantity          int             `json:"quantity"`
	QuantityShipped   int             `json:"quantity_shipped"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	InventoryUpdated  bool            `json:"inventory_updated"`
	InventoryRestored bool            `json:"inventory_restored"`
}

// OrderResponse is the API view of a marketplace order
type OrderResponse struct {
	ID                string              `json:"id"`
	ChannelID         string              `json:"channel_id"`
	OrderNumber       string              `json:"order_number"`
	ExternalOrderID   string              `json:"external_order_id"`
	ExtendedOrderID   string              `json:"extended_order_id,omitempty"`
	OrderStatus       string              `json:"order_status"`
	PaymentStatus     string              `json:"payment_status"`
	FulfillmentStatus string              `json:"fulfillment_status"`
	CancelStatus      string              `json:"cancel_status,omitempty"`
	ReturnStatus      string              `json:"return_status,omitempty"`
	AddressStatus     string              `json:"address_status"`
	TrackingNumber    string              `json:"tracking_number,omitempty"`
	Carrier           string              `json:"carrier,omitempty"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	ShippingCost      decimal.Decimal     `json:"shipping_cost"`
	Total             decimal.Decimal     `json:"total"`
	Currency          string              `json:"currency,omitempty"`
	BuyerUsername     string              `json:"buyer_username,omitempty"`
	OrderedAt         *time.Time          `json:"ordered_at,omitempty"`
	PaidAt            *time.Time          `json:"paid_at,omitempty"`
	ShippedAt         *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time          `json:"delivered_at,omitempty"`
	Items             []OrderItemResponse `json:"items"`
	Version           int                 `json:"version"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// NewOrderResponse maps a domain order to its API view
func NewOrderResponse(o *integration.MarketplaceOrder) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ID:                it.ID.String(),
			ExternalItemID:    it.ExternalItemID,
			TransactionID:     it.TransactionID,
			LineItemID:        it.LineItemID,
			SKU:               it.SKU,
			Title:             it.Title,
			Quantity:          it.Quantity,
			QuantityShipped:   it.QuantityShipped,
			UnitPrice:         it.UnitPrice,
			TotalPrice:        it.TotalPrice,
			InventoryUpdated:  it.InventoryUpdated,
			InventoryRestored: it.InventoryRestored,
		})
	}
	return OrderResponse{
		ID:                o.ID.String(),
		ChannelID:         o.ChannelID.String(),
		OrderNumber:       o.OrderNumber,
		ExternalOrderID:   o.ExternalOrderID,
		ExtendedOrderID:   o.ExtendedOrderID,
		OrderStatus:       string(o.OrderStatus),
		PaymentStatus:     string(o.PaymentStatus),
		FulfillmentStatus: string(o.FulfillmentStatus),
		CancelStatus:      o.CancelStatus,
		ReturnStatus:      string(o.ReturnStatus),
		AddressStatus:     string(o.AddressStatus),
		TrackingNumber:    o.TrackingNumber,
		Carrier:           o.Carrier,
		Subtotal:          o.Subtotal,
		ShippingCost:      o.ShippingCost,
		Total:             o.Total,
		Currency:          o.Currency,
		BuyerUsername:     o.Buyer.Username,
		OrderedAt:         o.OrderedAt,
		PaidAt:            o.PaidAt,
		ShippedAt:         o.ShippedAt,
		DeliveredAt:       o.DeliveredAt,
		Items:             items,
		Version:           o.Version,
		UpdatedAt:         o.UpdatedAt,
	}
}

// AuditEntryResponse is one audit log entry
type AuditEntryResponse struct {
	Sequence   int               `json:"sequence"`
	EventType  string            `json:"event_type"`
	EventName  string            `json:"event_name,omitempty"`
	DeliveryID string            `json:"delivery_id,omitempty"`
	Changed    bool              `json:"changed"`
	Fields     map[string]string `json:"fields,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewAuditEntryResponses maps audit entries in order
func NewAuditEntryResponses(entries []integration.OrderAuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			Sequence:   e.Sequence,
			EventType:  e.EventType.String(),
			EventName:  e.EventName,
			DeliveryID: e.DeliveryID,
			Changed:    e.Changed,
			Fields:     e.Fields,
			OccurredAt: e.OccurredAt,
		})
	}
	return out
}

// TriggerSyncRequest asks for an immediate sync of one channel
type TriggerSyncRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
}

// SyncJobResponse describes a queued sync job
type SyncJobResponse struct {
	JobID     string    `json:"job_id"`
	ChannelID string    `json:"channel_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
}

// NotificationAck acknowledges a received notification
type NotificationAck struct {
	EventName  string `json:"event_name"`
	EventType  string `json:"event_type"`
	DeliveryID string `json:"delivery_id,omitempty"`
}
