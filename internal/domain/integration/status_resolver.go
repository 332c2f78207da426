package integration

import "time"

// StatusSignals are the raw marketplace facts statuses are derived from.
// Both the sync record and the notification tree reduce to this shape.
type StatusSignals struct {
	CancelStatus      string
	OrderStatusText   string
	CheckoutStatus    string
	PaymentStatusText string
	RefundStatus      string
	PaidTime          *time.Time
	ShippedTime       *time.Time
	PickupStatus      string
	QuantityPurchased int
	QuantityShipped   int
}

// Resolution is the outcome of resolving a set of signals
type Resolution struct {
	OrderStatus       OrderStatus
	PaymentStatus     PaymentStatus
	FulfillmentStatus FulfillmentStatus
}

// Raw values recognised by the resolver
const (
	checkoutStatusComplete = "Complete"
	pickupReady            = "ReadyToPickup"
	pickupDone             = "PickedUp"
	noPaymentFailure       = "NoPaymentFailure"
)

var (
	terminalCancelCodes = map[string]bool{
		CancelCodeComplete:            true,
		CancelCodeClosedWithRefund:    true,
		CancelCodeClosedUnknownRefund: true,
		CancelCodeClosedNoRefund:      true,
	}
	pendingCancelCodes = map[string]bool{
		CancelCodeRequested: true,
		CancelCodePending:   true,
	}
	completedStatusTexts = map[string]bool{
		"Completed":        true,
		"Complete":         true,
		"CheckoutComplete": true,
	}
	cancelledStatusTexts = map[string]bool{
		"Cancelled": true,
		"Inactive":  true,
	}
	refundedTexts = map[string]bool{
		"Successful": true,
		"Completed":  true,
		"Refunded":   true,
	}
	paymentFailureTexts = map[string]bool{
		"PaymentFailed":                      true,
		"BuyerFailedPaymentReportedBySeller": true,
		"BuyerCreditCardFailed":              true,
		"BuyerECheckBounced":                 true,
		"BuyerPaymentFailed":                 true,
	}
)

// Resolve derives all three statuses from s.
func Resolve(s StatusSignals) Resolution {
	return Resolution{
		OrderStatus:       ResolveOrderStatus(s),
		PaymentStatus:     ResolvePaymentStatus(s),
		FulfillmentStatus: ResolveFulfillmentStatus(s),
	}
}

// ResolveSyncRecord resolves statuses from a flat sync record.
func ResolveSyncRecord(rec *SyncOrderRecord) Resolution {
	return Resolve(rec.Signals())
}

// ResolveNotification resolves statuses from a nested notification payload.
func ResolveNotification(p Payload) Resolution {
	return Resolve(SignalsFromNotification(p))
}

// ResolveOrderStatus applies cancellation > shipped evidence > payment inference.
// A stale cancel flag therefore outranks a shipped timestamp.
func ResolveOrderStatus(s StatusSignals) OrderStatus {
	switch {
	case terminalCancelCodes[s.CancelStatus]:
		return OrderStatusCancelled
	case pendingCancelCodes[s.CancelStatus]:
		return OrderStatusCancellationRequested
	case s.ShippedTime != nil:
		return OrderStatusShipped
	}

	paid := IsReliablyPaid(s)
	switch {
	case completedStatusTexts[s.OrderStatusText]:
		return OrderStatusProcessing
	case cancelledStatusTexts[s.OrderStatusText]:
		return OrderStatusCancelled
	case paid:
		return OrderStatusProcessing
	default:
		return OrderStatusPending
	}
}

// ResolvePaymentStatus applies refund > reliable payment > failure > unpaid.
func ResolvePaymentStatus(s StatusSignals) PaymentStatus {
	switch {
	case refundedTexts[s.RefundStatus]:
		return PaymentStatusRefunded
	case IsReliablyPaid(s):
		return PaymentStatusPaid
	case IsPaymentFailure(s.PaymentStatusText):
		return PaymentStatusFailed
	default:
		return PaymentStatusUnpaid
	}
}

// ResolveFulfillmentStatus derives shipping progress.
func ResolveFulfillmentStatus(s StatusSignals) FulfillmentStatus {
	switch {
	case s.ShippedTime != nil:
		return FulfillmentStatusFulfilled
	case s.PickupStatus == pickupReady:
		return FulfillmentStatusReadyForPickup
	case s.PickupStatus == pickupDone:
		return FulfillmentStatusFulfilled
	case s.QuantityShipped <= 0:
		return FulfillmentStatusUnfulfilled
	case s.QuantityShipped >= s.QuantityPurchased:
		return FulfillmentStatusFulfilled
	default:
		return FulfillmentStatusPartiallyFulfilled
	}
}

// IsReliablyPaid reports payment only on an explicit paid timestamp or a
// checkout status of exactly "Complete". The absence of a failure marker
// ("NoPaymentFailure") never counts.
func IsReliablyPaid(s StatusSignals) bool {
	return s.PaidTime != nil || s.CheckoutStatus == checkoutStatusComplete
}

// IsPaymentFailure reports whether the raw payment text names a failure.
func IsPaymentFailure(text string) bool {
	if text == "" || text == noPaymentFailure {
		return false
	}
	return paymentFailureTexts[text]
}

// IsRefundSuccessful reports whether a raw refund status means money was returned.
func IsRefundSuccessful(text string) bool {
	return refundedTexts[text]
}
