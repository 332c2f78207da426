package integration

import (
	"time"

	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BuyerSnapshot is the buyer as last reported by the marketplace
type BuyerSnapshot struct {
	Username string `gorm:"column:buyer_username;type:varchar(100)"`
	Email    string `gorm:"column:buyer_email;type:varchar(200)"`
	Name     string `gorm:"column:buyer_name;type:varchar(200)"`
	Phone    string `gorm:"column:buyer_phone;type:varchar(50)"`
}

// ShippingAddress is the ship-to address as last reported by the marketplace
type ShippingAddress struct {
	Name       string `gorm:"column:ship_name;type:varchar(200)" validate:"required"`
	Line1      string `gorm:"column:ship_line1;type:varchar(200)" validate:"required"`
	Line2      string `gorm:"column:ship_line2;type:varchar(200)"`
	City       string `gorm:"column:ship_city;type:varchar(100)" validate:"required"`
	State      string `gorm:"column:ship_state;type:varchar(100)"`
	PostalCode string `gorm:"column:ship_postal_code;type:varchar(20)" validate:"required"`
	Country    string `gorm:"column:ship_country;type:varchar(2)" validate:"required,iso3166_1_alpha2"`
	Phone      string `gorm:"column:ship_phone;type:varchar(50)"`
}

// IsEmpty reports whether no address field is set
func (a ShippingAddress) IsEmpty() bool {
	return a == ShippingAddress{}
}

// MarketplaceOrder is the local record of one external marketplace order.
// It is unique per channel and external order id.
type MarketplaceOrder struct {
	shared.BaseAggregateRoot
	ChannelID            uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_marketplace_order_external,priority:1"`
	OrderNumber          string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	ExternalOrderID      string            `gorm:"type:varchar(100);not null;uniqueIndex:idx_marketplace_order_external,priority:2"`
	ExtendedOrderID      string            `gorm:"type:varchar(100);index"`
	Buyer                BuyerSnapshot     `gorm:"embedded"`
	ShippingAddress      ShippingAddress   `gorm:"embedded"`
	Subtotal             decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingCost         decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Total                decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Currency             string            `gorm:"type:varchar(3)"`
	OrderStatus          OrderStatus       `gorm:"type:varchar(30);not null;index"`
	PaymentStatus        PaymentStatus     `gorm:"type:varchar(20);not null"`
	FulfillmentStatus    FulfillmentStatus `gorm:"type:varchar(30);not null"`
	CancelStatus         string            `gorm:"type:varchar(50)"`
	CancelReason         string            `gorm:"type:varchar(200)"`
	ReturnStatus         ReturnStatus      `gorm:"type:varchar(30)"`
	TrackingNumber       string            `gorm:"type:varchar(100)"`
	Carrier              string            `gorm:"type:varchar(100)"`
	ShipByDate           *time.Time
	HandlingDays         int    `gorm:"not null;default:0"`
	PickupLocationID     string `gorm:"type:varchar(100)"`
	PickupReference      string `gorm:"type:varchar(100)"`
	OrderedAt            *time.Time
	PaidAt               *time.Time
	ShippedAt            *time.Time
	DeliveredAt          *time.Time
	CancellationClosedAt *time.Time
	ReturnClosedAt       *time.Time
	AddressStatus        AddressStatus          `gorm:"type:varchar(20);not null;default:'unverified'"`
	RawPayload           string                 `gorm:"type:text"`
	Items                []MarketplaceOrderItem `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (MarketplaceOrder) TableName() string {
	return "marketplace_orders"
}

// MarketplaceOrderItem is one purchased line of a MarketplaceOrder
type MarketplaceOrderItem struct {
	shared.BaseEntity
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ExternalItemID    string          `gorm:"type:varchar(100);index:idx_marketplace_item_txn,priority:1"`
	TransactionID     string          `gorm:"type:varchar(100);index:idx_marketplace_item_txn,priority:2"`
	LineItemID        string          `gorm:"type:varchar(100);index"`
	SKU               string          `gorm:"type:varchar(100)"`
	Title             string          `gorm:"type:varchar(300)"`
	Quantity          int             `gorm:"not null"`
	QuantityShipped   int             `gorm:"not null;default:0"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	InventoryUpdated  bool            `gorm:"not null;default:false"`
	InventoryRestored bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (MarketplaceOrderItem) TableName() string {
	return "marketplace_order_items"
}

// Matches reports whether the normalized line describes this item.
func (i *MarketplaceOrderItem) Matches(l NormalizedLine) bool {
	if i.LineItemID != "" && l.LineItemID != "" {
		return i.LineItemID == l.LineItemID
	}
	return i.ExternalItemID != "" &&
		i.ExternalItemID == l.ExternalItemID &&
		i.TransactionID == l.TransactionID
}

// MarkInventoryDeducted flips InventoryUpdated to true.
// It returns false when stock was already deducted for this item, or when it
// was deducted and restored before; a restored item is never deducted again.
func (i *MarketplaceOrderItem) MarkInventoryDeducted() bool {
	if i.InventoryUpdated || i.InventoryRestored {
		return false
	}
	i.InventoryUpdated = true
	return true
}

// MarkInventoryRestored flips InventoryUpdated back to false and marks the
// item restored. It returns false when there is nothing to restore.
func (i *MarketplaceOrderItem) MarkInventoryRestored() bool {
	if !i.InventoryUpdated {
		return false
	}
	i.InventoryUpdated = false
	i.InventoryRestored = true
	return true
}

// NewMarketplaceOrder builds an order from a normalized payload. Inventory is
// not touched here; the caller deducts and marks items.
func NewMarketplaceOrder(channelID uuid.UUID, orderNumber string, n *NormalizedOrder) *MarketplaceOrder {
	o := &MarketplaceOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ChannelID:         channelID,
		OrderNumber:       orderNumber,
		ExternalOrderID:   n.ExternalOrderID,
		AddressStatus:     AddressStatusUnverified,
	}
	o.MergeFrom(n)
	o.MergeLines(n.Lines)
	o.ApplyResolution(Resolve(n.Signals))
	return o
}

// ApplyResolution overwrites all three statuses. Statuses are never filled forward.
func (o *MarketplaceOrder) ApplyResolution(r Resolution) {
	o.OrderStatus = r.OrderStatus
	o.PaymentStatus = r.PaymentStatus
	o.FulfillmentStatus = r.FulfillmentStatus
}

// MergeFrom fills forward every non-status field of n: empty incoming
// values never clear stored ones.
func (o *MarketplaceOrder) MergeFrom(n *NormalizedOrder) {
	o.ExtendedOrderID = FillString(o.ExtendedOrderID, n.ExtendedOrderID)
	o.Buyer = FillBuyer(o.Buyer, n.Buyer)
	if !n.ShippingAddress.IsEmpty() && n.ShippingAddress != o.ShippingAddress {
		o.AddressStatus = AddressStatusUnverified
	}
	o.ShippingAddress = FillAddress(o.ShippingAddress, n.ShippingAddress)
	o.Subtotal = FillDecimal(o.Subtotal, n.Subtotal)
	o.ShippingCost = FillDecimal(o.ShippingCost, n.ShippingCost)
	o.Total = FillDecimal(o.Total, n.Total)
	o.Currency = FillString(o.Currency, n.Currency)
	o.CancelStatus = FillString(o.CancelStatus, n.Signals.CancelStatus)
	o.CancelReason = FillString(o.CancelReason, n.CancelReason)
	o.TrackingNumber = FillString(o.TrackingNumber, n.TrackingNumber)
	o.Carrier = FillString(o.Carrier, n.Carrier)
	o.ShipByDate = FillTime(o.ShipByDate, n.ShipByDate)
	o.HandlingDays = FillInt(o.HandlingDays, n.HandlingDays)
	o.OrderedAt = FillTime(o.OrderedAt, n.OrderedAt)
	o.PaidAt = FillTime(o.PaidAt, n.Signals.PaidTime)
	o.ShippedAt = FillTime(o.ShippedAt, n.Signals.ShippedTime)
	o.RawPayload = FillString(o.RawPayload, n.RawPayload)
}

// MergeLines adds lines not yet present and refreshes matched ones.
// It returns the number of lines added.
func (o *MarketplaceOrder) MergeLines(lines []NormalizedLine) int {
	added := 0
	for _, l := range lines {
		if item := o.FindItem(l); item != nil {
			item.LineItemID = FillString(item.LineItemID, l.LineItemID)
			item.SKU = FillString(item.SKU, l.SKU)
			item.Title = FillString(item.Title, l.Title)
			item.Quantity = FillInt(item.Quantity, l.Quantity)
			item.QuantityShipped = FillInt(item.QuantityShipped, l.QuantityShipped)
			item.UnitPrice = FillDecimal(item.UnitPrice, l.UnitPrice)
			item.TotalPrice = FillDecimal(item.TotalPrice, l.TotalPrice)
			continue
		}
		o.Items = append(o.Items, MarketplaceOrderItem{
			BaseEntity:      shared.NewBaseEntity(),
			OrderID:         o.ID,
			ExternalItemID:  l.ExternalItemID,
			TransactionID:   l.TransactionID,
			LineItemID:      l.LineItemID,
			SKU:             l.SKU,
			Title:           l.Title,
			Quantity:        l.Quantity,
			QuantityShipped: l.QuantityShipped,
			UnitPrice:       l.UnitPrice,
			TotalPrice:      l.TotalPrice,
		})
		added++
	}
	return added
}

// FindItem returns the stored item matching l, or nil.
func (o *MarketplaceOrder) FindItem(l NormalizedLine) *MarketplaceOrderItem {
	for i := range o.Items {
		if o.Items[i].Matches(l) {
			return &o.Items[i]
		}
	}
	return nil
}

// IsPaymentConfirmed reports whether inventory may be committed for this order
func (o *MarketplaceOrder) IsPaymentConfirmed() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// IsClosed reports whether the order was cancelled or refunded.
func (o *MarketplaceOrder) IsClosed() bool {
	return o.OrderStatus == OrderStatusCancelled || o.OrderStatus == OrderStatusRefunded
}

// ---------------------------------------------------------------------------
// Notification-driven transitions
// ---------------------------------------------------------------------------

// MarkShipped records a shipment. Tracking fields and time fill forward.
// A closed order keeps its statuses.
func (o *MarketplaceOrder) MarkShipped(trackingNumber, carrier string, shippedAt *time.Time) {
	if !o.IsClosed() {
		o.OrderStatus = OrderStatusShipped
		o.FulfillmentStatus = FulfillmentStatusFulfilled
	}
	o.TrackingNumber = FillString(o.TrackingNumber, trackingNumber)
	o.Carrier = FillString(o.Carrier, carrier)
	o.ShippedAt = FillTime(o.ShippedAt, shippedAt)
}

// MarkPaid confirms payment. Only a pending order is promoted to processing,
// and a refunded payment stays refunded.
func (o *MarketplaceOrder) MarkPaid(paidAt *time.Time) {
	o.PaidAt = FillTime(o.PaidAt, paidAt)
	if o.PaymentStatus != PaymentStatusRefunded {
		o.PaymentStatus = PaymentStatusPaid
	}
	if o.OrderStatus == OrderStatusPending {
		o.OrderStatus = OrderStatusProcessing
	}
}

// MarkDelivered records delivery or pickup by the buyer.
func (o *MarketplaceOrder) MarkDelivered(deliveredAt *time.Time) {
	o.OrderStatus = OrderStatusDelivered
	o.FulfillmentStatus = FulfillmentStatusFulfilled
	o.DeliveredAt = FillTime(o.DeliveredAt, deliveredAt)
}

// MarkReadyForPickup records that the order awaits in-store pickup.
func (o *MarketplaceOrder) MarkReadyForPickup(locationID, reference string) {
	o.OrderStatus = OrderStatusReadyForPickup
	o.FulfillmentStatus = FulfillmentStatusReadyForPickup
	o.PickupLocationID = FillString(o.PickupLocationID, locationID)
	o.PickupReference = FillString(o.PickupReference, reference)
}

// RequestCancellation records a buyer cancellation request.
func (o *MarketplaceOrder) RequestCancellation(reason string) {
	o.OrderStatus = OrderStatusCancellationRequested
	o.CancelStatus = CancelCodeRequested
	o.CancelReason = FillString(o.CancelReason, reason)
}

// ApproveCancellation cancels the order. Inventory restoration is up to the caller.
func (o *MarketplaceOrder) ApproveCancellation(closedAt *time.Time) {
	o.OrderStatus = OrderStatusCancelled
	o.CancelStatus = CancelCodeComplete
	o.CancellationClosedAt = FillTime(o.CancellationClosedAt, closedAt)
}

// RejectCancellation recomputes the status the order had before the request.
func (o *MarketplaceOrder) RejectCancellation() {
	o.CancelStatus = CancelCodeRejected
	if o.IsPaymentConfirmed() {
		o.OrderStatus = OrderStatusProcessing
	} else {
		o.OrderStatus = OrderStatusPending
	}
}

// MarkRefunded records a completed refund.
func (o *MarketplaceOrder) MarkRefunded() {
	o.OrderStatus = OrderStatusRefunded
	o.PaymentStatus = PaymentStatusRefunded
}

// AdvanceReturn moves ReturnStatus forward when the lifecycle allows it.
func (o *MarketplaceOrder) AdvanceReturn(next ReturnStatus, at *time.Time) bool {
	if !o.ReturnStatus.CanTransitionTo(next) {
		return false
	}
	o.ReturnStatus = next
	if next == ReturnStatusClosed {
		o.ReturnClosedAt = FillTime(o.ReturnClosedAt, at)
	}
	return true
}

// ---------------------------------------------------------------------------
// Change detection
// ---------------------------------------------------------------------------

// OrderState is a comparable view of the fields notifications mutate.
type OrderState struct {
	OrderStatus       OrderStatus
	PaymentStatus     PaymentStatus
	FulfillmentStatus FulfillmentStatus
	CancelStatus      string
	ReturnStatus      ReturnStatus
	TrackingNumber    string
	Carrier           string
	PickupLocationID  string
	InventoryFlags    int
	RestoredFlags     int
}

// State captures the current OrderState.
func (o *MarketplaceOrder) State() OrderState {
	s := OrderState{
		OrderStatus:       o.OrderStatus,
		PaymentStatus:     o.PaymentStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		CancelStatus:      o.CancelStatus,
		ReturnStatus:      o.ReturnStatus,
		TrackingNumber:    o.TrackingNumber,
		Carrier:           o.Carrier,
		PickupLocationID:  o.PickupLocationID,
	}
	for _, item := range o.Items {
		if item.InventoryUpdated {
			s.InventoryFlags++
		}
		if item.InventoryRestored {
			s.RestoredFlags++
		}
	}
	return s
}
