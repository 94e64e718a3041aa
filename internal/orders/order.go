package orders

import (
	"time"

	"github.com/google/uuid"
)

// NewOrder validates the submitted lines, tags every line as menu-item or
// ingredient, and computes the totals. Subtotal is the sum of line totals;
// the final total is subtotal - discount + rounding and is never set
// independently of them afterwards.
func NewOrder(branchID, companyID, waiterID string, lines []LineInput, discountCents, roundingCents int, status Status) (*Order, error) {
	if branchID == "" || companyID == "" || waiterID == "" {
		return nil, invalidInput("missing branch/company/waiter id")
	}
	if len(lines) == 0 {
		return nil, invalidInput("order has no lines")
	}
	if status == "" {
		status = StatusPending
	}
	if !ValidInitial(status) {
		return nil, invalidInput("status %q not allowed at creation", status)
	}

	id := uuid.NewString()
	built := make([]OrderLine, 0, len(lines))
	subtotal := 0
	for i, in := range lines {
		l, err := buildLine(id, i, in)
		if err != nil {
			return nil, err
		}
		subtotal += l.TotalCents
		built = append(built, l)
	}

	now := time.Now().UTC()
	return &Order{
		ID:            id,
		BranchID:      branchID,
		CompanyID:     companyID,
		WaiterID:      waiterID,
		Status:        status,
		SubtotalCents: subtotal,
		DiscountCents: discountCents,
		RoundingCents: roundingCents,
		TotalCents:    subtotal - discountCents + roundingCents,
		Lines:         built,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func buildLine(orderID string, idx int, in LineInput) (OrderLine, error) {
	hasMenu := in.MenuItemID != ""
	hasIngredient := in.IngredientID != ""
	if hasMenu == hasIngredient {
		return OrderLine{}, invalidInput("line %d must reference a menu item or an ingredient, not both or neither", idx)
	}
	if in.Qty <= 0 {
		return OrderLine{}, invalidInput("line %d qty must be > 0", idx)
	}
	if in.UnitPriceCents < 0 {
		return OrderLine{}, invalidInput("line %d unit price must be >= 0", idx)
	}

	kind := LineIngredient
	if hasMenu {
		kind = LineMenuItem
	}
	return OrderLine{
		ID:             uuid.NewString(),
		OrderID:        orderID,
		Kind:           kind,
		MenuItemID:     in.MenuItemID,
		IngredientID:   in.IngredientID,
		Qty:            in.Qty,
		UnitPriceCents: in.UnitPriceCents,
		TotalCents:     in.Qty * in.UnitPriceCents,
	}, nil
}

// NewPayment builds the payment row for an order settled at creation or on
// transition into PAID. A zero amount falls back to the order's total.
func NewPayment(o *Order, in *PaymentInput) *Payment {
	amount := o.TotalCents
	method := "CASH"
	currency := "IDR"
	if in != nil {
		if in.AmountCents > 0 {
			amount = in.AmountCents
		}
		if in.Method != "" {
			method = in.Method
		}
		if in.Currency != "" {
			currency = in.Currency
		}
	}
	return &Payment{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		AmountCents: amount,
		Method:      method,
		Currency:    currency,
		Status:      PaymentStatusSettled,
		CreatedAt:   time.Now().UTC(),
	}
}
