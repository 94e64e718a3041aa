package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderTagsLinesAndComputesTotals(t *testing.T) {
	o, err := NewOrder("b1", "c1", "w1", []LineInput{
		{MenuItemID: "bread", Qty: 2, UnitPriceCents: 1500},
		{IngredientID: "flour", Qty: 5, UnitPriceCents: 200},
	}, 500, -30, "")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, LineMenuItem, o.Lines[0].Kind)
	assert.Equal(t, LineIngredient, o.Lines[1].Kind)
	assert.Equal(t, 3000, o.Lines[0].TotalCents)
	assert.Equal(t, 1000, o.Lines[1].TotalCents)
	assert.Equal(t, 4000, o.SubtotalCents)
	// total = subtotal - discount + rounding
	assert.Equal(t, 4000-500-30, o.TotalCents)
	for _, l := range o.Lines {
		assert.Equal(t, o.ID, l.OrderID)
	}
}

func TestNewOrderRejectsAmbiguousLine(t *testing.T) {
	var ve *ValidationError

	_, err := NewOrder("b1", "c1", "w1", []LineInput{
		{MenuItemID: "bread", IngredientID: "flour", Qty: 1},
	}, 0, 0, "")
	require.ErrorAs(t, err, &ve)

	_, err = NewOrder("b1", "c1", "w1", []LineInput{
		{Qty: 1},
	}, 0, 0, "")
	require.ErrorAs(t, err, &ve)
}

func TestNewOrderRejectsNonPositiveQty(t *testing.T) {
	var ve *ValidationError
	_, err := NewOrder("b1", "c1", "w1", []LineInput{
		{MenuItemID: "bread", Qty: 0},
	}, 0, 0, "")
	require.ErrorAs(t, err, &ve)
}

func TestNewOrderRejectsEmptyAndBadInitialStatus(t *testing.T) {
	var ve *ValidationError
	_, err := NewOrder("b1", "c1", "w1", nil, 0, 0, "")
	require.ErrorAs(t, err, &ve)

	_, err = NewOrder("b1", "c1", "w1", []LineInput{
		{MenuItemID: "bread", Qty: 1},
	}, 0, 0, StatusCancelled)
	require.ErrorAs(t, err, &ve)
}

func TestNewPaymentFallsBackToOrderTotal(t *testing.T) {
	o, err := NewOrder("b1", "c1", "w1", []LineInput{
		{MenuItemID: "bread", Qty: 2, UnitPriceCents: 1500},
	}, 0, 0, StatusPaid)
	require.NoError(t, err)

	p := NewPayment(o, &PaymentInput{Method: "QRIS"})
	assert.Equal(t, o.TotalCents, p.AmountCents)
	assert.Equal(t, "QRIS", p.Method)
	assert.Equal(t, o.ID, p.OrderID)

	p = NewPayment(o, nil)
	assert.Equal(t, o.TotalCents, p.AmountCents)
	assert.Equal(t, "CASH", p.Method)

	p = NewPayment(o, &PaymentInput{AmountCents: 2500, Method: "CARD", Currency: "USD"})
	assert.Equal(t, 2500, p.AmountCents)
	assert.Equal(t, "USD", p.Currency)
}
