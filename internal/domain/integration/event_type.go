package integration

// EventType is the closed set of notification kinds the dispatcher routes.
type EventType string

const (
	EventTypeUnknown              EventType = "unknown"
	EventTypeShipped              EventType = "shipped"
	EventTypePaid                 EventType = "paid"
	EventTypeDelivered            EventType = "delivered"
	EventTypeReadyForPickup       EventType = "ready_for_pickup"
	EventTypeCancelRequested      EventType = "cancel_requested"
	EventTypeCancelApproved       EventType = "cancel_approved"
	EventTypeCancelRejected       EventType = "cancel_rejected"
	EventTypeRefundInitiated      EventType = "refund_initiated"
	EventTypeRefundCompleted      EventType = "refund_completed"
	EventTypeReturnCreated        EventType = "return_created"
	EventTypeReturnShipped        EventType = "return_shipped"
	EventTypeReturnDelivered      EventType = "return_delivered"
	EventTypeReturnClosed         EventType = "return_closed"
	EventTypeReturnEscalated      EventType = "return_escalated"
	EventTypeReturnActionRequired EventType = "return_action_required"
	EventTypeDispute              EventType = "dispute"

	// EventTypeSync tags audit entries written by the pull-based sync.
	EventTypeSync EventType = "sync"
)

// String returns the string representation of EventType
func (t EventType) String() string {
	return string(t)
}

// eventTypesByName maps every recognised marketplace event name, synonyms
// included, to its EventType.
var eventTypesByName = map[string]EventType{
	"ItemMarkedShipped": EventTypeShipped,
	"ItemShipped":       EventTypeShipped,

	"FixedPriceTransaction":   EventTypePaid,
	"AuctionCheckoutComplete": EventTypePaid,
	"ItemMarkedPaid":          EventTypePaid,

	"ItemDelivered":  EventTypeDelivered,
	"OrderDelivered": EventTypeDelivered,
	"ItemPickedUp":   EventTypeDelivered,
	"OrderPickedUp":  EventTypeDelivered,

	"ItemReadyForPickup": EventTypeReadyForPickup,
	"ReadyForPickup":     EventTypeReadyForPickup,

	"BuyerCancelRequested": EventTypeCancelRequested,
	"OrderCancelRequested": EventTypeCancelRequested,

	"BuyerCancelApproved": EventTypeCancelApproved,
	"OrderCancelApproved": EventTypeCancelApproved,
	"OrderCancelled":      EventTypeCancelApproved,

	"BuyerCancelRejected": EventTypeCancelRejected,
	"OrderCancelRejected": EventTypeCancelRejected,

	"RefundInitiated": EventTypeRefundInitiated,
	"RefundCompleted": EventTypeRefundCompleted,
	"OrderRefunded":   EventTypeRefundCompleted,

	"ReturnCreated":              EventTypeReturnCreated,
	"ReturnShipped":              EventTypeReturnShipped,
	"ReturnDelivered":            EventTypeReturnDelivered,
	"ReturnClosed":               EventTypeReturnClosed,
	"ReturnEscalated":            EventTypeReturnEscalated,
	"ReturnWaitingForSellerInfo": EventTypeReturnActionRequired,
	"ReturnSellerInfoOverdue":    EventTypeReturnActionRequired,
	"ReturnRefundOverdue":        EventTypeReturnActionRequired,

	"BuyerResponseDispute":        EventTypeDispute,
	"SellerOpenedDispute":         EventTypeDispute,
	"SellerRespondedToDispute":    EventTypeDispute,
	"SellerClosedDispute":         EventTypeDispute,
	"INRBuyerOpenedDispute":       EventTypeDispute,
	"INRBuyerRespondedToDispute":  EventTypeDispute,
	"INRBuyerClosedDispute":       EventTypeDispute,
	"INRSellerRespondedToDispute": EventTypeDispute,
	"EBPMyResponseDue":            EventTypeDispute,
	"EBPOtherPartyResponseDue":    EventTypeDispute,
	"EBPEscalatedCase":            EventTypeDispute,
	"EBPClosedCase":               EventTypeDispute,
	"EBPAppealedCase":             EventTypeDispute,
	"EBPOnHoldCase":               EventTypeDispute,
	"EBPMyPaymentDue":             EventTypeDispute,
	"EBPPaymentDone":              EventTypeDispute,
	"EBPClosedAppeal":             EventTypeDispute,
}

// ParseEventType returns the EventType for a raw event name, or
// EventTypeUnknown for names this service does not recognise.
func ParseEventType(name string) EventType {
	if t, ok := eventTypesByName[name]; ok {
		return t
	}
	return EventTypeUnknown
}

// KnownEventNames returns the number of recognised event names.
func KnownEventNames() int {
	return len(eventTypesByName)
}

// ---------------------------------------------------------------------------
// Dispute sub-states derived from event names
// ---------------------------------------------------------------------------

// DisputeKind classifies a dispute
type DisputeKind string

const (
	DisputeKindItemNotReceived DisputeKind = "item_not_received"
	DisputeKindBuyerProtection DisputeKind = "buyer_protection"
	DisputeKindOther           DisputeKind = "other"
)

// DisputeState is the sub-state of a single dispute
type DisputeState string

const (
	DisputeStateOpened         DisputeState = "opened"
	DisputeStateAwaitingSeller DisputeState = "awaiting_seller"
	DisputeStateAwaitingBuyer  DisputeState = "awaiting_buyer"
	DisputeStateEscalated      DisputeState = "escalated"
	DisputeStateOnHold         DisputeState = "on_hold"
	DisputeStateAppealed       DisputeState = "appealed"
	DisputeStatePaymentDue     DisputeState = "payment_due"
	DisputeStatePaid           DisputeState = "paid"
	DisputeStateClosed         DisputeState = "closed"
)

// IsTerminal reports whether the dispute is closed
func (s DisputeState) IsTerminal() bool {
	return s == DisputeStateClosed
}

type disputeTransition struct {
	kind  DisputeKind
	state DisputeState
}

var disputeTransitions = map[string]disputeTransition{
	"BuyerResponseDispute":        {DisputeKindOther, DisputeStateAwaitingSeller},
	"SellerOpenedDispute":         {DisputeKindOther, DisputeStateOpened},
	"SellerRespondedToDispute":    {DisputeKindOther, DisputeStateAwaitingBuyer},
	"SellerClosedDispute":         {DisputeKindOther, DisputeStateClosed},
	"INRBuyerOpenedDispute":       {DisputeKindItemNotReceived, DisputeStateOpened},
	"INRBuyerRespondedToDispute":  {DisputeKindItemNotReceived, DisputeStateAwaitingSeller},
	"INRBuyerClosedDispute":       {DisputeKindItemNotReceived, DisputeStateClosed},
	"INRSellerRespondedToDispute": {DisputeKindItemNotReceived, DisputeStateAwaitingBuyer},
	"EBPMyResponseDue":            {DisputeKindBuyerProtection, DisputeStateAwaitingSeller},
	"EBPOtherPartyResponseDue":    {DisputeKindBuyerProtection, DisputeStateAwaitingBuyer},
	"EBPEscalatedCase":            {DisputeKindBuyerProtection, DisputeStateEscalated},
	"EBPClosedCase":               {DisputeKindBuyerProtection, DisputeStateClosed},
	"EBPAppealedCase":             {DisputeKindBuyerProtection, DisputeStateAppealed},
	"EBPOnHoldCase":               {DisputeKindBuyerProtection, DisputeStateOnHold},
	"EBPMyPaymentDue":             {DisputeKindBuyerProtection, DisputeStatePaymentDue},
	"EBPPaymentDone":              {DisputeKindBuyerProtection, DisputeStatePaid},
	"EBPClosedAppeal":             {DisputeKindBuyerProtection, DisputeStateClosed},
}

// DisputeTransitionFor returns the dispute kind and state an event name sets.
func DisputeTransitionFor(eventName string) (DisputeKind, DisputeState, bool) {
	t, ok := disputeTransitions[eventName]
	return t.kind, t.state, ok
}
