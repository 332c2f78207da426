package integration

// ---------------------------------------------------------------------------
// OrderStatus
// ---------------------------------------------------------------------------

// OrderStatus is the locally resolved order lifecycle state
type OrderStatus string

const (
	OrderStatusPending               OrderStatus = "pending"
	OrderStatusProcessing            OrderStatus = "processing"
	OrderStatusShipped               OrderStatus = "shipped"
	OrderStatusDelivered             OrderStatus = "delivered"
	OrderStatusCancellationRequested OrderStatus = "cancellation_requested"
	OrderStatusCancelled             OrderStatus = "cancelled"
	OrderStatusRefunded              OrderStatus = "refunded"
	OrderStatusReadyForPickup        OrderStatus = "ready_for_pickup"
)

// IsValid returns true if the status is a known value
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCancellationRequested, OrderStatusCancelled, OrderStatusRefunded,
		OrderStatusReadyForPickup:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// PaymentStatus
// ---------------------------------------------------------------------------

// PaymentStatus is the locally resolved payment state
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// IsValid returns true if the status is a known value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// FulfillmentStatus
// ---------------------------------------------------------------------------

// FulfillmentStatus is the locally resolved shipping progress
type FulfillmentStatus string

const (
	FulfillmentStatusUnfulfilled        FulfillmentStatus = "unfulfilled"
	FulfillmentStatusPartiallyFulfilled FulfillmentStatus = "partially_fulfilled"
	FulfillmentStatusFulfilled          FulfillmentStatus = "fulfilled"
	FulfillmentStatusReadyForPickup     FulfillmentStatus = "ready_for_pickup"
)

// IsValid returns true if the status is a known value
func (s FulfillmentStatus) IsValid() bool {
	switch s {
	case FulfillmentStatusUnfulfilled, FulfillmentStatusPartiallyFulfilled,
		FulfillmentStatusFulfilled, FulfillmentStatusReadyForPickup:
		return true
	default:
		return false
	}
}

// String returns the string representation of FulfillmentStatus
func (s FulfillmentStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// ReturnStatus
// ---------------------------------------------------------------------------

// ReturnStatus tracks a return independently of OrderStatus.
// The zero value means no return was ever opened.
type ReturnStatus string

const (
	ReturnStatusNone           ReturnStatus = ""
	ReturnStatusRequested      ReturnStatus = "requested"
	ReturnStatusActionRequired ReturnStatus = "action_required"
	ReturnStatusShipped        ReturnStatus = "shipped"
	ReturnStatusDelivered      ReturnStatus = "delivered"
	ReturnStatusEscalated      ReturnStatus = "escalated"
	ReturnStatusClosed         ReturnStatus = "closed"
)

var returnStatusRank = map[ReturnStatus]int{
	ReturnStatusNone:           0,
	ReturnStatusRequested:      1,
	ReturnStatusActionRequired: 2,
	ReturnStatusShipped:        3,
	ReturnStatusDelivered:      4,
	ReturnStatusEscalated:      5,
	ReturnStatusClosed:         6,
}

// CanTransitionTo reports whether a return in status s may move to next.
// Returns only move forward; closed is terminal. ActionRequired may be raised
// from any open, non-escalated state.
func (s ReturnStatus) CanTransitionTo(next ReturnStatus) bool {
	if next == s || next == ReturnStatusNone || s == ReturnStatusClosed {
		return false
	}
	if _, ok := returnStatusRank[next]; !ok {
		return false
	}
	if next == ReturnStatusActionRequired {
		return s != ReturnStatusEscalated
	}
	return returnStatusRank[next] > returnStatusRank[s]
}

// String returns the string representation of ReturnStatus
func (s ReturnStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// AddressStatus
// ---------------------------------------------------------------------------

// AddressStatus records the outcome of post-commit address validation
type AddressStatus string

const (
	AddressStatusUnverified AddressStatus = "unverified"
	AddressStatusValid      AddressStatus = "valid"
	AddressStatusInvalid    AddressStatus = "invalid"
)

// ---------------------------------------------------------------------------
// Raw marketplace cancel codes
// ---------------------------------------------------------------------------

const (
	CancelCodeRequested           = "CancelRequested"
	CancelCodePending             = "CancelPending"
	CancelCodeComplete            = "CancelComplete"
	CancelCodeClosedWithRefund    = "CancelClosedWithRefund"
	CancelCodeClosedUnknownRefund = "CancelClosedUnknownRefund"
	CancelCodeClosedNoRefund      = "CancelClosedNoRefund"
	CancelCodeRejected            = "CancelRejected"
)
