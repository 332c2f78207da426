package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotificationFacts are the values event handlers read from a notification
// besides the order key.
type NotificationFacts struct {
	TrackingNumber   string
	Carrier          string
	PaidAt           *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CancelReason     string
	CancelClosedAt   *time.Time
	PickupLocationID string
	PickupReference  string
	RefundAmount     decimal.Decimal
	RefundStatus     string
	BuyerRefunded    bool
}

// Refunded reports whether the notification states that the buyer got money back.
func (f NotificationFacts) Refunded() bool {
	return f.BuyerRefunded || IsRefundSuccessful(f.RefundStatus)
}

// ExtractNotificationFacts reads handler inputs from any supported envelope shape.
func ExtractNotificationFacts(p Payload) NotificationFacts {
	v := newNotificationView(p)
	f := NotificationFacts{
		TrackingNumber: v.lookup(
			"ShippingDetails.ShipmentTrackingDetails.ShipmentTrackingNumber",
			"ShipmentTrackingDetails.ShipmentTrackingNumber",
			"ShipmentTrackingNumber",
		),
		Carrier: v.lookup(
			"ShippingDetails.ShipmentTrackingDetails.ShippingCarrierUsed",
			"ShipmentTrackingDetails.ShippingCarrierUsed",
			"ShippingCarrierUsed",
		),
		PaidAt:           ParseTimestamp(v.lookup("PaidTime")),
		ShippedAt:        ParseTimestamp(v.lookup("ShippedTime")),
		DeliveredAt:      ParseTimestamp(v.lookup("DeliveredTime", "ActualDeliveryTime", "PickedUpTime")),
		CancelReason:     v.lookup("CancelReason", "CancelRequest.CancelReason", "Status.CancelReason"),
		CancelClosedAt:   ParseTimestamp(v.lookup("CancelCloseDate", "CancelCompleteDate")),
		PickupLocationID: v.lookup("PickupLocationID", "PickupDetails.PickupLocations.LocationID", "LocationID"),
		PickupReference:  v.lookup("PickupReference", "PickupDetails.PickupReference", "ReferenceID"),
		RefundStatus:     v.lookup("RefundStatus", "ReturnRefundStatus", "Status.RefundStatus", "ReturnRequest.RefundStatus"),
		BuyerRefunded:    v.lookup("BuyerRefunded", "ReturnRequest.BuyerRefunded") == "true",
	}
	for _, key := range []string{"RefundAmount", "TotalRefundAmount", "ReturnRequest.RefundAmount", "Refund.RefundAmount"} {
		if amount := v.amount(key); !amount.IsZero() {
			f.RefundAmount = amount
			break
		}
	}
	return f
}
