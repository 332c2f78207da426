package marketplace

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/ordersync/internal/domain/integration"
)

// OperationGetOrders is the order listing operation used by the sync
const OperationGetOrders = "GetOrders"

// GetOrdersRequest is the request body of a GetOrders page
type GetOrdersRequest struct {
	ModTimeFrom string     `json:"ModTimeFrom"`
	ModTimeTo   string     `json:"ModTimeTo"`
	OrderRole   string     `json:"OrderRole"`
	DetailLevel string     `json:"DetailLevel"`
	Pagination  Pagination `json:"Pagination"`
}

// Pagination selects one page of a listing
type Pagination struct {
	EntriesPerPage int `json:"EntriesPerPage"`
	PageNumber     int `json:"PageNumber"`
}

// NewGetOrdersRequest builds the request for one page of orders modified in [from, to)
func NewGetOrdersRequest(from, to time.Time, page, pageSize int) GetOrdersRequest {
	return GetOrdersRequest{
		ModTimeFrom: from.UTC().Format(time.RFC3339),
		ModTimeTo:   to.UTC().Format(time.RFC3339),
		OrderRole:   "Seller",
		DetailLevel: "ReturnAll",
		Pagination: Pagination{
			EntriesPerPage: pageSize,
			PageNumber:     page,
		},
	}
}

// ParseOrdersPage flattens a GetOrders response into sync records. hasMore
// reports whether another page follows.
func ParseOrdersPage(p integration.Payload) (records []*integration.SyncOrderRecord, hasMore bool) {
	root := p
	if root.Tree("OrderArray") == nil {
		root = p.Unwrap()
	}
	for _, order := range root.List("OrderArray.Order") {
		records = append(records, parseOrder(order))
	}
	return records, root.Bool("HasMoreOrders")
}

func parseOrder(o integration.Payload) *integration.SyncOrderRecord {
	rec := &integration.SyncOrderRecord{
		OrderID:         o.String("OrderID"),
		ExtendedOrderID: o.String("ExtendedOrderID"),
		OrderStatus:     o.String("OrderStatus"),
		CheckoutStatus:  o.String("CheckoutStatus.Status"),
		PaymentStatus:   o.String("CheckoutStatus.eBayPaymentStatus"),
		CancelStatus:    o.String("CancelStatus"),
		CancelReason:    o.String("CancelReason"),
		RefundStatus:    o.FirstString("MonetaryDetails.Refunds.Refund.RefundStatus", "RefundStatus"),
		PickupStatus:    o.FirstString("PickupMethodSelected.PickupStatus", "PickupStatus"),
		CreatedTime:     o.Time("CreatedTime"),
		PaidTime:        o.Time("PaidTime"),
		ShippedTime:     o.Time("ShippedTime"),
		Buyer: integration.BuyerSnapshot{
			Username: o.FirstString("BuyerUserID", "Buyer.UserID"),
			Email:    o.FirstString("TransactionArray.Transaction.Buyer.Email", "Buyer.Email"),
			Name:     o.String("ShippingAddress.Name"),
			Phone:    o.String("ShippingAddress.Phone"),
		},
		ShippingAddress: integration.ShippingAddress{
			Name:       o.String("ShippingAddress.Name"),
			Line1:      o.String("ShippingAddress.Street1"),
			Line2:      o.String("ShippingAddress.Street2"),
			City:       o.String("ShippingAddress.CityName"),
			State:      o.String("ShippingAddress.StateOrProvince"),
			PostalCode: o.String("ShippingAddress.PostalCode"),
			Country:    o.String("ShippingAddress.Country"),
			Phone:      o.String("ShippingAddress.Phone"),
		},
		Subtotal:     amount(o, "Subtotal"),
		ShippingCost: amount(o, "ShippingServiceSelected.ShippingServiceCost"),
		Total:        amount(o, "Total"),
		Currency:     o.FirstString("Total.currencyID", "Subtotal.currencyID"),
		TrackingNumber: o.FirstString(
			"ShippingDetails.ShipmentTrackingDetails.ShipmentTrackingNumber",
			"TransactionArray.Transaction.ShippingDetails.ShipmentTrackingDetails.ShipmentTrackingNumber",
		),
		Carrier: o.FirstString(
			"ShippingDetails.ShipmentTrackingDetails.ShippingCarrierUsed",
			"TransactionArray.Transaction.ShippingDetails.ShipmentTrackingDetails.ShippingCarrierUsed",
		),
		ShipByDate:   o.Time("ShippingServiceSelected.ShipByDate"),
		HandlingDays: o.Int("DispatchTimeMax"),
		Raw:          o,
	}
	if rec.ShipByDate == nil {
		rec.ShipByDate = o.Time("ShipByDate")
	}

	for _, tx := range o.List("TransactionArray.Transaction") {
		line := integration.SyncOrderLine{
			ItemID:        tx.String("Item.ItemID"),
			TransactionID: tx.String("TransactionID"),
			LineItemID:    tx.String("OrderLineItemID"),
			SKU:           tx.FirstString("Variation.SKU", "Item.SKU"),
			Title:         tx.FirstString("Variation.VariationTitle", "Item.Title"),
			Quantity:      tx.Int("QuantityPurchased"),
			UnitPrice:     amount(tx, "TransactionPrice"),
		}
		if tx.Time("ShippedTime") != nil || rec.ShippedTime != nil {
			line.QuantityShipped = line.Quantity
		}
		rec.Lines = append(rec.Lines, line)
	}
	return rec
}

// amount reads a money value sent either as {"Value": ...} or as a bare number.
func amount(p integration.Payload, key string) decimal.Decimal {
	d, err := decimal.NewFromString(p.FirstString(key+".Value", key))
	if err != nil {
		return decimal.Zero
	}
	return d
}
