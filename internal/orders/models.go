package orders

import "time"

// LineKind tags a line at creation time; it is never re-derived from
// which foreign key happens to be set.
type LineKind string

const (
	LineMenuItem   LineKind = "MENU_ITEM"
	LineIngredient LineKind = "INGREDIENT"
)

type Order struct {
	ID            string      `json:"id"`
	BranchID      string      `json:"branch_id"`
	CompanyID     string      `json:"company_id"`
	WaiterID      string      `json:"waiter_id"`
	SeqNo         int         `json:"seq_no"`
	Status        Status      `json:"status"`
	SubtotalCents int         `json:"subtotal_cents"`
	DiscountCents int         `json:"discount_cents"`
	RoundingCents int         `json:"rounding_cents"`
	TotalCents    int         `json:"total_cents"`
	Lines         []OrderLine `json:"lines"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type OrderLine struct {
	ID             string   `json:"id"`
	OrderID        string   `json:"order_id"`
	Kind           LineKind `json:"kind"`
	MenuItemID     string   `json:"menu_item_id,omitempty"`
	IngredientID   string   `json:"ingredient_id,omitempty"`
	Qty            int      `json:"qty"`
	UnitPriceCents int      `json:"unit_price_cents"`
	TotalCents     int      `json:"total_cents"`
}

type Payment struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	AmountCents int       `json:"amount_cents"`
	Method      string    `json:"method"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

const PaymentStatusSettled = "SETTLED"

// LineInput is the wire shape of one order line; exactly one of
// MenuItemID / IngredientID must be set.
type LineInput struct {
	MenuItemID     string `json:"menu_item_id,omitempty"`
	IngredientID   string `json:"ingredient_id,omitempty"`
	Qty            int    `json:"qty"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

type PaymentInput struct {
	AmountCents int    `json:"amount_cents"`
	Method      string `json:"method"`
	Currency    string `json:"currency"`
}
