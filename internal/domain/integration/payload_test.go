package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadFromJSON_KeepsNumbersExact(t *testing.T) {
	p, err := PayloadFromJSON([]byte(`{"Order":{"Total":{"Value":19.90,"currencyID":"USD"},"Qty":2}}`))
	require.NoError(t, err)

	assert.Equal(t, "19.90", p.String("Order.Total.Value"))
	assert.Equal(t, 2, p.Int("Order.Qty"))
	assert.Equal(t, "19.9", p.Decimal("Order.Total.Value").String())
}

func TestPayloadFromJSON_Invalid(t *testing.T) {
	_, err := PayloadFromJSON([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestPayload_Unwrap(t *testing.T) {
	inner := map[string]any{"OrderID": "ORD1"}

	assert.Equal(t, Payload(inner), Payload{"GetOrdersResponse": inner}.Unwrap())

	flat := Payload{"OrderID": "ORD1", "Ack": "Success"}
	assert.Equal(t, flat, flat.Unwrap())

	scalar := Payload{"OrderID": "ORD1"}
	assert.Equal(t, scalar, scalar.Unwrap())
}

func TestPayload_PathThroughLists(t *testing.T) {
	p := Payload{
		"TransactionArray": map[string]any{
			"Transaction": []any{
				map[string]any{"TransactionID": "T1"},
				map[string]any{"TransactionID": "T2"},
			},
		},
	}

	assert.Equal(t, "T1", p.String("TransactionArray.Transaction.TransactionID"))
	assert.Len(t, p.List("TransactionArray.Transaction"), 2)
	assert.Equal(t, "T1", p.Tree("TransactionArray.Transaction").String("TransactionID"))
	assert.Empty(t, p.String("TransactionArray.Missing.TransactionID"))
}

func TestPayload_ListWrapsLoneTree(t *testing.T) {
	p := Payload{"Transaction": map[string]any{"TransactionID": "T1"}}

	list := p.List("Transaction")
	require.Len(t, list, 1)
	assert.Equal(t, "T1", list[0].String("TransactionID"))
}

func TestPayload_ScalarAccessors(t *testing.T) {
	p := Payload{"Flag": "true", "Other": "no", "When": "2024-03-01T10:00:00.000Z", "Bad": "yesterday"}

	assert.True(t, p.Bool("Flag"))
	assert.False(t, p.Bool("Other"))
	assert.False(t, p.Bool("Missing"))
	require.NotNil(t, p.Time("When"))
	assert.Equal(t, 2024, p.Time("When").Year())
	assert.Nil(t, p.Time("Bad"))
	assert.Nil(t, p.Time("Missing"))
	assert.Equal(t, "no", p.FirstString("Missing", "Other", "Flag"))
}
