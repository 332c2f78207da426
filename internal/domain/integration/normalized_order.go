package integration

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// NormalizedOrder is the canonical order shape consumed by the upsert engine.
// It is produced either from a SyncOrderRecord or from a notification payload.
type NormalizedOrder struct {
	ExternalOrderID string
	ExtendedOrderID string
	Buyer           BuyerSnapshot
	ShippingAddress ShippingAddress
	Subtotal        decimal.Decimal
	ShippingCost    decimal.Decimal
	Total           decimal.Decimal
	Currency        string
	Signals         StatusSignals
	CancelReason    string
	TrackingNumber  string
	Carrier         string
	ShipByDate      *time.Time
	HandlingDays    int
	OrderedAt       *time.Time
	Lines           []NormalizedLine
	RawPayload      string
}

// NormalizedLine is one purchased line of a NormalizedOrder
type NormalizedLine struct {
	ExternalItemID  string
	TransactionID   string
	LineItemID      string
	SKU             string
	Title           string
	Quantity        int
	QuantityShipped int
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
}

// SyncOrderRecord is the flat record produced by the pull-based order listing.
type SyncOrderRecord struct {
	OrderID         string
	ExtendedOrderID string
	OrderStatus     string
	CheckoutStatus  string
	PaymentStatus   string
	CancelStatus    string
	CancelReason    string
	RefundStatus    string
	PickupStatus    string
	CreatedTime     *time.Time
	PaidTime        *time.Time
	ShippedTime     *time.Time
	Buyer           BuyerSnapshot
	ShippingAddress ShippingAddress
	Subtotal        decimal.Decimal
	ShippingCost    decimal.Decimal
	Total           decimal.Decimal
	Currency        string
	TrackingNumber  string
	Carrier         string
	ShipByDate      *time.Time
	HandlingDays    int
	Lines           []SyncOrderLine
	Raw             Payload
}

// SyncOrderLine is one transaction line of a SyncOrderRecord
type SyncOrderLine struct {
	ItemID          string
	TransactionID   string
	LineItemID      string
	SKU             string
	Title           string
	Quantity        int
	QuantityShipped int
	UnitPrice       decimal.Decimal
}

// Signals reduces the record to status signals.
func (r *SyncOrderRecord) Signals() StatusSignals {
	s := StatusSignals{
		CancelStatus:      r.CancelStatus,
		OrderStatusText:   r.OrderStatus,
		CheckoutStatus:    r.CheckoutStatus,
		PaymentStatusText: r.PaymentStatus,
		RefundStatus:      r.RefundStatus,
		PaidTime:          r.PaidTime,
		ShippedTime:       r.ShippedTime,
		PickupStatus:      r.PickupStatus,
	}
	for _, l := range r.Lines {
		s.QuantityPurchased += l.Quantity
		s.QuantityShipped += l.QuantityShipped
	}
	return s
}

// NormalizeSyncRecord converts a sync record into the canonical shape.
func NormalizeSyncRecord(r *SyncOrderRecord) *NormalizedOrder {
	n := &NormalizedOrder{
		ExternalOrderID: r.OrderID,
		ExtendedOrderID: r.ExtendedOrderID,
		Buyer:           r.Buyer,
		ShippingAddress: r.ShippingAddress,
		Subtotal:        r.Subtotal,
		ShippingCost:    r.ShippingCost,
		Total:           r.Total,
		Currency:        NormalizeCurrency(r.Currency),
		Signals:         r.Signals(),
		CancelReason:    r.CancelReason,
		TrackingNumber:  r.TrackingNumber,
		Carrier:         r.Carrier,
		ShipByDate:      r.ShipByDate,
		HandlingDays:    r.HandlingDays,
		OrderedAt:       r.CreatedTime,
		RawPayload:      r.Raw.JSON(),
	}
	for _, l := range r.Lines {
		n.Lines = append(n.Lines, NormalizedLine{
			ExternalItemID:  l.ItemID,
			TransactionID:   l.TransactionID,
			LineItemID:      l.LineItemID,
			SKU:             l.SKU,
			Title:           l.Title,
			Quantity:        l.Quantity,
			QuantityShipped: l.QuantityShipped,
			UnitPrice:       l.UnitPrice,
			TotalPrice:      l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
	}
	return n
}

// ---------------------------------------------------------------------------
// Notification adapter
// ---------------------------------------------------------------------------

// notificationView exposes the order-level and transaction-level trees of a
// notification payload regardless of which envelope shape carried them.
type notificationView struct {
	root  Payload
	txs   []Payload
	order Payload
}

func newNotificationView(p Payload) notificationView {
	root := p.Unwrap()
	v := notificationView{root: root}
	v.txs = root.List("TransactionArray.Transaction")
	if len(v.txs) == 0 {
		v.txs = root.List("Transaction")
	}
	if len(v.txs) == 0 {
		v.txs = []Payload{root}
	}
	v.order = v.txs[0].Tree("ContainingOrder")
	if v.order == nil {
		v.order = root.Tree("Order")
	}
	if v.order == nil {
		v.order = Payload{}
	}
	return v
}

// lookup searches the order tree, then the first transaction, then the root.
func (v notificationView) lookup(paths ...string) string {
	for _, tree := range []Payload{v.order, v.txs[0], v.root} {
		if s := tree.FirstString(paths...); s != "" {
			return s
		}
	}
	return ""
}

func (v notificationView) amount(key string) decimal.Decimal {
	d, err := decimal.NewFromString(v.lookup(key+".Value", key))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SignalsFromNotification reduces a notification payload to status signals.
func SignalsFromNotification(p Payload) StatusSignals {
	v := newNotificationView(p)
	s := StatusSignals{
		CancelStatus:      v.lookup("CancelStatus", "Status.CancelStatus"),
		OrderStatusText:   v.lookup("OrderStatus"),
		CheckoutStatus:    v.lookup("CheckoutStatus.Status", "Status.CompleteStatus"),
		PaymentStatusText: v.lookup("CheckoutStatus.eBayPaymentStatus", "Status.eBayPaymentStatus"),
		RefundStatus:      v.lookup("RefundStatus", "Status.RefundStatus"),
		PaidTime:          ParseTimestamp(v.lookup("PaidTime")),
		ShippedTime:       ParseTimestamp(v.lookup("ShippedTime")),
		PickupStatus:      v.lookup("PickupStatus", "Status.PickupStatus"),
	}
	for _, tx := range v.txs {
		s.QuantityPurchased += tx.Int("QuantityPurchased")
		s.QuantityShipped += tx.Int("QuantityShipped")
	}
	return s
}

// NormalizeNotification converts a notification payload into the canonical
// shape. ErrMissingIdentifier is returned when no order id can be found.
func NormalizeNotification(p Payload) (*NormalizedOrder, error) {
	key, _ := ExtractOrderKey(p)
	externalID := key.OrderID
	if externalID == "" {
		// single-line orders are identified by their line item id
		externalID = key.LineItemID
	}
	if externalID == "" {
		return nil, ErrMissingIdentifier
	}
	v := newNotificationView(p)

	n := &NormalizedOrder{
		ExternalOrderID: externalID,
		ExtendedOrderID: v.lookup("ExtendedOrderID"),
		Buyer: BuyerSnapshot{
			Username: v.lookup("Buyer.UserID", "BuyerUserID"),
			Email:    v.lookup("Buyer.Email"),
			Name:     v.lookup("ShippingAddress.Name", "Buyer.BuyerInfo.ShippingAddress.Name"),
			Phone:    v.lookup("ShippingAddress.Phone", "Buyer.BuyerInfo.ShippingAddress.Phone"),
		},
		ShippingAddress: addressFrom(v),
		Subtotal:        v.amount("Subtotal"),
		ShippingCost:    v.amount("ShippingServiceSelected.ShippingServiceCost"),
		Total:           v.amount("Total"),
		Currency:        NormalizeCurrency(v.lookup("Total.currencyID", "Currency")),
		Signals:         SignalsFromNotification(p),
		CancelReason:    v.lookup("CancelReason"),
		TrackingNumber:  v.lookup("ShippingDetails.ShipmentTrackingDetails.ShipmentTrackingNumber"),
		Carrier:         v.lookup("ShippingDetails.ShipmentTrackingDetails.ShippingCarrierUsed"),
		ShipByDate:      ParseTimestamp(v.lookup("ShipByDate", "ShippingDetails.ShipByDate")),
		HandlingDays:    v.order.Int("DispatchTimeMax"),
		OrderedAt:       ParseTimestamp(v.lookup("CreatedTime", "CreatedDate")),
		RawPayload:      p.JSON(),
	}
	if n.HandlingDays == 0 {
		n.HandlingDays = v.root.Int("Item.DispatchTimeMax")
	}

	for _, tx := range v.txs {
		itemID := tx.FirstString("Item.ItemID")
		if itemID == "" {
			itemID = v.root.String("Item.ItemID")
		}
		qty := tx.Int("QuantityPurchased")
		price, err := decimal.NewFromString(tx.FirstString("TransactionPrice.Value", "TransactionPrice"))
		if err != nil {
			price = decimal.Zero
		}
		line := NormalizedLine{
			ExternalItemID:  itemID,
			TransactionID:   tx.String("TransactionID"),
			LineItemID:      tx.String("OrderLineItemID"),
			SKU:             tx.FirstString("Variation.SKU", "Item.SKU"),
			Title:           tx.FirstString("Item.Title"),
			Quantity:        qty,
			QuantityShipped: tx.Int("QuantityShipped"),
			UnitPrice:       price,
			TotalPrice:      price.Mul(decimal.NewFromInt(int64(qty))),
		}
		if line.SKU == "" {
			line.SKU = v.root.String("Item.SKU")
		}
		if line.Title == "" {
			line.Title = v.root.String("Item.Title")
		}
		if line.ExternalItemID == "" && line.LineItemID == "" {
			continue
		}
		n.Lines = append(n.Lines, line)
	}
	return n, nil
}

func addressFrom(v notificationView) ShippingAddress {
	for _, prefix := range []string{"ShippingAddress", "Buyer.BuyerInfo.ShippingAddress"} {
		a := ShippingAddress{
			Name:       v.lookup(prefix + ".Name"),
			Line1:      v.lookup(prefix + ".Street1"),
			Line2:      v.lookup(prefix + ".Street2"),
			City:       v.lookup(prefix + ".CityName"),
			State:      v.lookup(prefix + ".StateOrProvince"),
			PostalCode: v.lookup(prefix + ".PostalCode"),
			Country:    v.lookup(prefix + ".Country"),
			Phone:      v.lookup(prefix + ".Phone"),
		}
		if !a.IsEmpty() {
			return a
		}
	}
	return ShippingAddress{}
}

// NormalizeCurrency returns the canonical ISO 4217 code, or "" when unknown.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return ""
	}
	return unit.String()
}
