package integration

// OrderKey holds every identifier a notification may use to point at an order.
type OrderKey struct {
	OrderID         string
	ExtendedOrderID string
	LineItemID      string
	ItemID          string
	TransactionID   string
	ReturnID        string
	DisputeID       string
}

// HasOrderReference reports whether the key can locate an order directly.
func (k OrderKey) HasOrderReference() bool {
	return k.OrderID != "" || k.ExtendedOrderID != ""
}

// IsZero reports whether no identifier was found at all.
func (k OrderKey) IsZero() bool {
	return k == OrderKey{}
}

// Known nested locations of each identifier, searched in order.
var (
	orderIDPaths = []string{
		"OrderID",
		"OrderId",
		"ContainingOrder.OrderID",
		"TransactionArray.Transaction.ContainingOrder.OrderID",
		"Transaction.ContainingOrder.OrderID",
		"Order.OrderID",
		"ReturnRequest.OrderId",
		"Dispute.OrderID",
	}
	extendedOrderIDPaths = []string{
		"ExtendedOrderID",
		"ContainingOrder.ExtendedOrderID",
		"TransactionArray.Transaction.ContainingOrder.ExtendedOrderID",
		"Transaction.ContainingOrder.ExtendedOrderID",
		"Order.ExtendedOrderID",
	}
	lineItemIDPaths = []string{
		"OrderLineItemID",
		"TransactionArray.Transaction.OrderLineItemID",
		"Transaction.OrderLineItemID",
		"ReturnRequest.OrderLineItemID",
	}
	itemIDPaths = []string{
		"Item.ItemID",
		"ItemID",
		"TransactionArray.Transaction.Item.ItemID",
		"Transaction.Item.ItemID",
		"Dispute.Item.ItemID",
		"ReturnRequest.ItemId",
	}
	transactionIDPaths = []string{
		"TransactionID",
		"TransactionArray.Transaction.TransactionID",
		"Transaction.TransactionID",
		"Dispute.TransactionID",
		"ReturnRequest.TransactionId",
	}
	returnIDPaths = []string{
		"ReturnId",
		"ReturnID",
		"ReturnRequest.ReturnId",
		"ReturnSummary.ReturnId",
	}
	disputeIDPaths = []string{
		"DisputeID",
		"Dispute.DisputeID",
		"CaseId",
		"CaseID",
		"CaseSummary.CaseId",
	}
)

// ExtractOrderKey walks the known identifier locations of p, after unwrapping
// its envelope. The second return is false when nothing identifying was found.
func ExtractOrderKey(p Payload) (OrderKey, bool) {
	key := extractFrom(p.Unwrap())
	if !key.HasOrderReference() {
		// Some payloads place identifiers next to, not inside, the envelope child.
		outer := extractFrom(p)
		key = mergeKeys(key, outer)
	}
	return key, !key.IsZero()
}

func extractFrom(p Payload) OrderKey {
	return OrderKey{
		OrderID:         p.FirstString(orderIDPaths...),
		ExtendedOrderID: p.FirstString(extendedOrderIDPaths...),
		LineItemID:      p.FirstString(lineItemIDPaths...),
		ItemID:          p.FirstString(itemIDPaths...),
		TransactionID:   p.FirstString(transactionIDPaths...),
		ReturnID:        p.FirstString(returnIDPaths...),
		DisputeID:       p.FirstString(disputeIDPaths...),
	}
}

func mergeKeys(primary, fallback OrderKey) OrderKey {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return OrderKey{
		OrderID:         pick(primary.OrderID, fallback.OrderID),
		ExtendedOrderID: pick(primary.ExtendedOrderID, fallback.ExtendedOrderID),
		LineItemID:      pick(primary.LineItemID, fallback.LineItemID),
		ItemID:          pick(primary.ItemID, fallback.ItemID),
		TransactionID:   pick(primary.TransactionID, fallback.TransactionID),
		ReturnID:        pick(primary.ReturnID, fallback.ReturnID),
		DisputeID:       pick(primary.DisputeID, fallback.DisputeID),
	}
}
