package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/ordersync/internal/domain/integration"
)

// paidOrder seeds ORD1 through the sync path: paid, stock for SKU-1 deducted.
func paidOrder(t *testing.T, f *fixture) *integration.MarketplaceOrder {
	t.Helper()
	return upsertRecord(t, f, syncRecord("ORD1", true)).Order
}

func auditFor(t *testing.T, f *fixture, order *integration.MarketplaceOrder) []integration.OrderAuditEntry {
	t.Helper()
	entries, err := f.audit.ListByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	return entries
}

func TestNotificationDispatcher_HandlesEveryEventType(t *testing.T) {
	f := newFixture()
	assert.Equal(t, 16, f.dispatcher.HandledEventTypes())
}

func TestNotificationDispatcher_UnknownEventIsNoop(t *testing.T) {
	f := newFixture()
	order := paidOrder(t, f)
	before := f.order("ORD1").State()

	err := f.notify("SomeFutureEvent", integration.Payload{"OrderID": "ORD1"})

	require.NoError(t, err)
	assert.Equal(t, before, f.order("ORD1").State())
	assert.Len(t, auditFor(t, f, order), 1, "only the sync entry")
	assert.Equal(t, 1, f.metrics.get("unknown:SomeFutureEvent"))
}

func TestShippedHandler_ScenarioShippedRedelivery(t *testing.T) {
	f := newFixture()
	order := paidOrder(t, f)
	payload := integration.Payload{
		"GetItemTransactionsResponse": map[string]any{
			"TransactionArray": map[string]any{
				"Transaction": []any{map[string]any{
					"ContainingOrder": map[string]any{"OrderID": "ORD1"},
					"ShippingDetails": map[string]any{
						"ShipmentTrackingDetails": map[string]any{
							"ShipmentTrackingNumber": "1Z999",
							"ShippingCarrierUsed":    "UPS",
						},
					},
				}},
			},
		},
	}

	require.NoError(t, f.notify("ItemMarkedShipped", payload))

	shipped := f.order("ORD1")
	assert.Equal(t, integration.OrderStatusShipped, shipped.OrderStatus)
	assert.Equal(t, integration.FulfillmentStatusFulfilled, shipped.FulfillmentStatus)
	assert.Equal(t, "1Z999", shipped.TrackingNumber)
	assert.Equal(t, "UPS", shipped.Carrier)
	assert.NotNil(t, shipped.ShippedAt)
	assert.Equal(t, 2, f.inventory.deducted["SKU-1"], "already deducted at payment")

	require.NoError(t, f.notify("ItemMarkedShipped", payload))

	again := f.order("ORD1")
	assert.Equal(t, shipped.State(), again.State())
	assert.Equal(t, shipped.ShippedAt, again.ShippedAt)
	assert.Equal(t, 2, f.inventory.deducted["SKU-1"])

	entries := auditFor(t, f, order)
	require.Len(t, entries, 3)
	assert.Equal(t, integration.EventTypeShipped, entries[1].EventType)
	assert.True(t, entries[1].Changed)
	assert.Equal(t, "1Z999", entries[1].Fields["tracking_number"])
	assert.False(t, entries[2].Changed)
	assert.Equal(t, 3, entries[2].Sequence)
	assert.Equal(t, 2, f.metrics.get("received:shipped"))
}

func TestShippedHandler_DeductsForUnpaidOrder(t *testing.T) {
	f := newFixture()
	upsertRecord(t, f, syncRecord("ORD1", false))

	require.NoError(t, f.notify("ItemShipped", integration.Payload{"OrderID": "ORD1"}))

	assert.Equal(t, 2, f.inventory.deducted["SKU-1"])
	assert.True(t, f.order("ORD1").Items[0].InventoryUpdated)
	assert.Equal(t, 1, f.metrics.get("inventory:deduct"))
}

func TestShippedHandler_LocatesByLineItem(t *testing.T) {
	f := newFixture()
	rec := syncRecord("ORD1", true)
	rec.Lines[0].LineItemID = "ITEM1-TXN1"
	upsertRecord(t, f, rec)

	require.NoError(t, f.notify("ItemMarkedShipped", integration.Payload{"OrderLineItemID": "ITEM1-TXN1"}))

	assert.Equal(t, integration.OrderStatusShipped, f.order("ORD1").OrderStatus)
}

func TestPaidHandler_ConfirmsPaymentAndDeductsOnce(t *testing.T) {
	f := newFixture()
	upsertRecord(t, f, syncRecord("ORD1", false))
	payload := integration.Payload{"OrderID": "ORD1", "PaidTime": "2024-03-02T08:00:00Z"}

	require.NoError(t, f.notify("ItemMarkedPaid", payload))
	require.NoError(t, f.notify("ItemMarkedPaid", payload))

	order := f.order("ORD1")
	assert.Equal(t, integration.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, integration.OrderStatusProcessing, order.OrderStatus)
	require.NotNil(t, order.PaidAt)
	assert.Equal(t, "2024-03-02T08:00:00Z", order.PaidAt.UTC().Format(time.RFC3339))
	assert.Equal(t, 2, f.inventory.deducted["SKU-1"])
}

func TestPaidHandler_CreatesUnknownOrder(t *testing.T) {
	f := newFixture()
	payload := integration.Payload{
		"Transaction": map[string]any{
			"ContainingOrder":   map[string]any{"OrderID": "ORD9"},
			"Item":              map[string]any{"ItemID": "ITEM9", "SKU": "SKU-9", "Title": "Gadget"},
			"TransactionID":     "TXN9",
			"QuantityPurchased": 3,
		},
	}

	require.NoError(t, f.notify("FixedPriceTransaction", payload))

	order := f.order("ORD9")
	require.NotNil(t, order)
	assert.Equal(t, integration.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, integration.OrderStatusProcessing, order.OrderStatus)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "SKU-9", order.Items[0].SKU)
	assert.True(t, order.Items[0].InventoryUpdated)
	assert.Equal(t, 3, f.inventory.deducted["SKU-9"])
	assert.Equal(t, 1, f.metrics.get("created:notification"))

	entries := auditFor(t, f, order)
	require.Len(t, entries, 1)
	assert.Equal(t, integration.EventTypePaid, entries[0].EventType)
	assert.Equal(t, "FixedPriceTransaction", entries[0].EventName)
}

func TestDeliveredAndPickupHandlers(t *testing.T) {
	f := newFixture()
	paidOrder(t, f)

	require.NoError(t, f.notify("ItemReadyForPickup", integration.Payload{
		"OrderID":          "ORD1",
		"PickupLocationID": "STORE-7",
		"PickupReference":  "REF-1",
	}))
	order := f.order("ORD1")
	assert.Equal(t, integration.OrderStatusReadyForPickup, order.OrderStatus)
	assert.Equal(t, integration.FulfillmentStatusReadyForPickup, order.FulfillmentStatus)
	assert.Equal(t, "STORE-7", order.PickupLocationID)
	assert.Equal(t, "REF-1", order.PickupReference)

	require.NoError(t, f.notify("ItemPickedUp", integration.Payload{"OrderID": "ORD1", "PickedUpTime": "2024-03-03T12:00:00Z"}))
	order = f.order("ORD1")
	assert.Equal(t, integration.OrderStatusDelivered, order.OrderStatus)
	assert.Equal(t, integration.FulfillmentStatusFulfilled, order.FulfillmentStatus)
	require.NotNil(t, order.DeliveredAt)
	assert.Equal(t, 3, order.DeliveredAt.Day())
}

func TestCancellationFlow(t *testing.T) {
	f := newFixture()
	paidOrder(t, f)

	require.NoError(t, f.notify("BuyerCancelRequested", integration.Payload{"OrderId": "ORD1", "CancelReason": "BUYER_ASKED"}))
	order := f.order("ORD1")
	assert.Equal(t, integration.OrderStatusCancellationRequested, order.OrderStatus)
	assert.Equal(t, integration.CancelCodeRequested, order.CancelStatus)
	assert.Equal(t, "BUYER_ASKED", order.CancelReason)

	require.NoError(t, f.notify("BuyerCancelRejected", integration.Payload{"OrderId": "ORD1"}))
	order = f.order("ORD1")
	assert.Equal(t, integration.OrderStatusProcessing, order.OrderStatus)
	assert.Equal(t, integration.CancelCodeRejected, order.CancelStatus)
	assert.Empty(t, f.inventory.restored)

	require.NoError(t, f.notify("BuyerCancelApproved", integration.Payload{"OrderId": "ORD1"}))
	require.NoError(t, f.notify("BuyerCancelApproved", integration.Payload{"OrderId": "ORD1"}))
	order = f.order("ORD1")
	assert.Equal(t, integration.OrderStatusCancelled, order.OrderStatus)
	assert.Equal(t, integration.CancelCodeComplete, order.CancelStatus)
	assert.NotNil(t, order.CancellationClosedAt)
	assert.False(t, order.Items[0].InventoryUpdated)
	assert.Equal(t, 2, f.inventory.restored["SKU-1"], "restored once")
	assert.Equal(t, 1, f.metrics.get("inventory:restore"))
}

func TestRefundHandlers(t *testing.T) {
	f := newFixture()
	order := paidOrder(t, f)
	payload := integration.Payload{"OrderID": "ORD1", "RefundAmount": map[string]any{"Value": "39.98"}}

	require.NoError(t, f.notify("RefundInitiated", payload))
	assert.Equal(t, integration.PaymentStatusPaid, f.order("ORD1").PaymentStatus)
	assert.Empty(t, f.inventory.restored)

	require.NoError(t, f.notify("RefundCompleted", payload))
	refunded := f.order("ORD1")
	assert.Equal(t, integration.OrderStatusRefunded, refunded.OrderStatus)
	assert.Equal(t, integration.PaymentStatusRefunded, refunded.PaymentStatus)
	assert.Equal(t, 2, f.inventory.restored["SKU-1"])

	entries := auditFor(t, f, order)
	require.Len(t, entries, 3)
	assert.Equal(t, "39.98", entries[1].Fields["refund_amount"])
	assert.False(t, entries[1].Changed)
	assert.Equal(t, "1", entries[2].Fields["inventory_restored"])
}

func TestReturnHandler_ScenarioReturnAndRefund(t *testing.T) {
	f := newFixture()
	paidOrder(t, f)

	require.NoError(t, f.notify("ReturnCreated", integration.Payload{"ReturnId": "R1", "OrderId": "ORD1"}))
	order := f.order("ORD1")
	assert.Equal(t, integration.ReturnStatusRequested, order.ReturnStatus)
	ret, err := f.returns.FindByReturnID(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, integration.ReturnStatusRequested, ret.Status)
	assert.Equal(t, order.ID, ret.OrderID)

	closed := integration.Payload{"ReturnId": "R1", "OrderId": "ORD1", "BuyerRefunded": true}
	require.NoError(t, f.notify("ReturnClosed", closed))
	order = f.order("ORD1")
	assert.Equal(t, integration.ReturnStatusClosed, order.ReturnStatus)
	assert.Equal(t, integration.PaymentStatusRefunded, order.PaymentStatus)
	assert.NotNil(t, order.ReturnClosedAt)
	assert.Equal(t, 2, f.inventory.restored["SKU-1"])

	require.NoError(t, f.notify("ReturnClosed", closed))
	assert.Equal(t, 2, f.inventory.restored["SKU-1"], "second close restores nothing")

	ret, err = f.returns.FindByReturnID(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, integration.ReturnStatusClosed, ret.Status)
	assert.True(t, ret.Refunded)
	assert.NotNil(t, ret.ClosedAt)
}

func TestReturnHandler_NeverMovesBackward(t *testing.T) {
	f := newFixture()
	paidOrder(t, f)

	require.NoError(t, f.notify("ReturnClosed", integration.Payload{"ReturnId": "R1", "OrderId": "ORD1"}))
	require.NoError(t, f.notify("ReturnShipped", integration.Payload{"ReturnId": "R1"}))

	order := f.order("ORD1")
	assert.Equal(t, integration.ReturnStatusClosed, order.ReturnStatus)
	assert.Equal(t, integration.PaymentStatusPaid, order.PaymentStatus, "closed without refund keeps payment")
	assert.Empty(t, f.inventory.restored)
}

func TestReturnHandler_LocatesThroughReturnID(t *testing.T) {
	f := newFixture()
	paidOrder(t, f)
	require.NoError(t, f.notify("ReturnCreated", integration.Payload{"ReturnId": "R1", "OrderId": "ORD1"}))

	require.NoError(t, f.notify("ReturnWaitingForSellerInfo", integration.Payload{"ReturnId": "R1"}))
	assert.Equal(t, integration.ReturnStatusActionRequired, f.order("ORD1").ReturnStatus)

	require.NoError(t, f.notify("ReturnShipped", integration.Payload{"ReturnId": "R1"}))

	order := f.order("ORD1")
	assert.Equal(t, integration.ReturnStatusShipped, order.ReturnStatus)
	ret, err := f.returns.FindByReturnID(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, integration.ReturnStatusShipped, ret.Status)
	assert.Equal(t, "ReturnShipped", ret.LastEventName)
}

func TestDisputeHandler_KeepsDisputesApart(t *testing.T) {
	f := newFixture()
	order := paidOrder(t, f)

	require.NoError(t, f.notify("SellerOpenedDispute", integration.Payload{"OrderID": "ORD1", "DisputeID": "D1"}))
	require.NoError(t, f.notify("EBPEscalatedCase", integration.Payload{"OrderID": "ORD1", "CaseId": "C2"}))
	require.NoError(t, f.notify("SellerClosedDispute", integration.Payload{"OrderID": "ORD1", "DisputeID": "D1"}))

	disputes, err := f.disputes.ListByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, disputes, 2)

	d1, err := f.disputes.Find(context.Background(), order.ID, "D1")
	require.NoError(t, err)
	assert.Equal(t, integration.DisputeStateClosed, d1.State)
	assert.NotNil(t, d1.ClosedAt)

	c2, err := f.disputes.Find(context.Background(), order.ID, "C2")
	require.NoError(t, err)
	assert.Equal(t, integration.DisputeKindBuyerProtection, c2.Kind)
	assert.Equal(t, integration.DisputeStateEscalated, c2.State)

	assert.Equal(t, f.order("ORD1").State(), order.State(), "disputes leave order statuses alone")
}

func TestDisputeHandler_SyntheticKeyFromItemTransaction(t *testing.T) {
	f := newFixture()
	order := paidOrder(t, f)

	require.NoError(t, f.notify("INRBuyerOpenedDispute", integration.Payload{
		"Dispute": map[string]any{
			"Item":          map[string]any{"ItemID": "ITEM1"},
			"TransactionID": "TXN1",
		},
	}))

	d, err := f.disputes.Find(context.Background(), order.ID, "ITEM1:TXN1")
	require.NoError(t, err)
	assert.Equal(t, integration.DisputeKindItemNotReceived, d.Kind)
	assert.Equal(t, integration.DisputeStateOpened, d.State)
}

func TestHandlers_DropUnmatchedNotifications(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.notify("ItemMarkedShipped", integration.Payload{"OrderID": "MISSING"}))
	require.NoError(t, f.notify("ItemMarkedShipped", integration.Payload{"Foo": "bar"}))

	assert.Equal(t, 1, f.metrics.get("dropped:"+DropReasonOrderNotFound))
	assert.Equal(t, 1, f.metrics.get("dropped:"+DropReasonMissingIdentifier))
	assert.Zero(t, f.orders.count())
}

func TestHandlers_PersistenceFailureIsReturned(t *testing.T) {
	f := newFixture()
	paidOrder(t, f)
	f.orders.saveErr = errBoom

	err := f.notify("ItemMarkedShipped", integration.Payload{"OrderID": "ORD1"})

	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "ItemMarkedShipped")
}

func TestHandlers_InventoryFailureRollsBack(t *testing.T) {
	f := newFixture()
	upsertRecord(t, f, syncRecord("ORD1", false))
	f.inventory.deductErr = errBoom

	err := f.notify("ItemMarkedPaid", integration.Payload{"OrderID": "ORD1"})

	assert.ErrorIs(t, err, errBoom)
	order := f.order("ORD1")
	assert.Equal(t, integration.PaymentStatusUnpaid, order.PaymentStatus)
	assert.False(t, order.Items[0].InventoryUpdated)
}

func TestRestoredOrders_NeverDeductAgain(t *testing.T) {
	closes := []struct {
		name            string
		close           func(t *testing.T, f *fixture)
		expectedStatus  integration.OrderStatus
		expectedPayment integration.PaymentStatus
	}{
		{
			name: "cancelled",
			close: func(t *testing.T, f *fixture) {
				require.NoError(t, f.notify("BuyerCancelApproved", integration.Payload{"OrderId": "ORD1"}))
			},
			expectedStatus:  integration.OrderStatusCancelled,
			expectedPayment: integration.PaymentStatusPaid,
		},
		{
			name: "refunded",
			close: func(t *testing.T, f *fixture) {
				require.NoError(t, f.notify("RefundCompleted", integration.Payload{"OrderID": "ORD1"}))
			},
			expectedStatus:  integration.OrderStatusRefunded,
			expectedPayment: integration.PaymentStatusRefunded,
		},
		{
			name: "returned",
			close: func(t *testing.T, f *fixture) {
				require.NoError(t, f.notify("ReturnClosed", integration.Payload{"ReturnId": "R1", "OrderId": "ORD1", "BuyerRefunded": true}))
			},
			expectedStatus:  integration.OrderStatusRefunded,
			expectedPayment: integration.PaymentStatusRefunded,
		},
	}
	followUps := []struct {
		name        string
		run         func(t *testing.T, f *fixture)
		keepsStatus bool
	}{
		{
			name: "sync pass",
			run: func(t *testing.T, f *fixture) {
				result := upsertRecord(t, f, syncRecord("ORD1", true))
				assert.Zero(t, result.InventoryDeducted)
			},
		},
		{
			name: "late paid",
			run: func(t *testing.T, f *fixture) {
				require.NoError(t, f.notify("ItemMarkedPaid", integration.Payload{"OrderID": "ORD1", "PaidTime": "2024-03-02T08:00:00Z"}))
			},
			keepsStatus: true,
		},
		{
			name: "late shipped",
			run: func(t *testing.T, f *fixture) {
				require.NoError(t, f.notify("ItemMarkedShipped", integration.Payload{"OrderID": "ORD1"}))
			},
			keepsStatus: true,
		},
	}

	for _, c := range closes {
		for _, fu := range followUps {
			t.Run(c.name+"/"+fu.name, func(t *testing.T) {
				f := newFixture()
				paidOrder(t, f)
				c.close(t, f)
				require.Equal(t, 2, f.inventory.restored["SKU-1"])

				fu.run(t, f)

				order := f.order("ORD1")
				require.Len(t, order.Items, 1)
				assert.False(t, order.Items[0].InventoryUpdated)
				assert.True(t, order.Items[0].InventoryRestored)
				assert.Equal(t, 2, f.inventory.deducted["SKU-1"], "deducted once at payment")
				assert.Equal(t, 2, f.inventory.restored["SKU-1"])
				assert.Equal(t, 1, f.metrics.get("inventory:deduct"))
				assert.Equal(t, 1, f.metrics.get("inventory:restore"))
				if fu.keepsStatus {
					assert.Equal(t, c.expectedStatus, order.OrderStatus)
					assert.Equal(t, c.expectedPayment, order.PaymentStatus)
					assert.Equal(t, integration.FulfillmentStatusUnfulfilled, order.FulfillmentStatus)
				}
			})
		}
	}
}

func TestHandlers_InventoryMetricsOnlyAfterCommit(t *testing.T) {
	tests := []struct {
		name  string
		paid  bool
		fail  func(f *fixture)
		event string
		label string
	}{
		{"deduct with failing save", false, func(f *fixture) { f.orders.saveErr = errBoom }, "ItemMarkedPaid", "inventory:deduct"},
		{"deduct with failing audit", false, func(f *fixture) { f.audit.appendErr = errBoom }, "ItemMarkedPaid", "inventory:deduct"},
		{"restore with failing save", true, func(f *fixture) { f.orders.saveErr = errBoom }, "RefundCompleted", "inventory:restore"},
		{"restore with failing audit", true, func(f *fixture) { f.audit.appendErr = errBoom }, "RefundCompleted", "inventory:restore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			upsertRecord(t, f, syncRecord("ORD1", tt.paid))
			before := f.metrics.get(tt.label)
			tt.fail(f)

			err := f.notify(tt.event, integration.Payload{"OrderID": "ORD1"})

			assert.ErrorIs(t, err, errBoom)
			assert.Equal(t, before, f.metrics.get(tt.label))
		})
	}
}
