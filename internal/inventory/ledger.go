package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// TxBeginner is the slice of *pgxpool.Pool the ledger needs; tests hand
// it a mock pool.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// ErrAlreadyApplied: the order's plan has been applied before. Callers
// treat this as a no-op success to keep fulfillment retries idempotent.
var ErrAlreadyApplied = errors.New("inventory: plan already applied for order")

type Shortage struct {
	IngredientID string  `json:"ingredient_id"`
	BranchID     string  `json:"branch_id"`
	Required     float64 `json:"required"`
	Available    float64 `json:"available"`
}

type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s@%s need %.3f have %.3f", s.IngredientID, s.BranchID, s.Required, s.Available))
	}
	return "inventory: insufficient stock: " + strings.Join(parts, ", ")
}

// Ledger owns every mutation of inventory_stocks. All deltas of one plan
// land in a single transaction: all or nothing.
type Ledger struct {
	DB TxBeginner

	// AllowOversell lets quantities go negative (decrement without a floor
	// check, the default policy). With it off, any shortage rolls the whole
	// plan back and surfaces an InsufficientStockError.
	AllowOversell bool
}

// Apply claims the orderID (at most one apply per order, ever) and then
// applies every delta as a relative decrement, so concurrent orders on the
// same ingredient accumulate instead of clobbering each other.
func (l *Ledger) Apply(ctx context.Context, orderID string, plan Plan) ([]PlanKey, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Idempotency claim lives in the same tx as the deltas: a failed apply
	// releases the claim on rollback, a successful one keeps it forever.
	ct, err := tx.Exec(ctx, `
		INSERT INTO stock_applies(order_id) VALUES ($1)
		ON CONFLICT (order_id) DO NOTHING`, orderID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrAlreadyApplied
	}

	keys := plan.Keys() // stable lock order across concurrent applies

	if !l.AllowOversell {
		shortages, err := l.checkFloors(ctx, tx, plan, keys)
		if err != nil {
			return nil, err
		}
		if len(shortages) > 0 {
			return nil, &InsufficientStockError{Shortages: shortages}
		}
	}

	for _, k := range keys {
		// Upsert keeps the relative decrement working before the first
		// stocking created the row.
		_, err := tx.Exec(ctx, `
			INSERT INTO inventory_stocks(ingredient_id, branch_id, qty, updated_at)
			VALUES ($1, $2, -$3, now())
			ON CONFLICT (ingredient_id, branch_id)
			DO UPDATE SET qty = inventory_stocks.qty + EXCLUDED.qty, updated_at = now()`,
			k.IngredientID, k.BranchID, plan[k])
		if err != nil {
			return nil, fmt.Errorf("apply delta %s@%s: %w", k.IngredientID, k.BranchID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return keys, nil
}

func (l *Ledger) checkFloors(ctx context.Context, tx pgx.Tx, plan Plan, keys []PlanKey) ([]Shortage, error) {
	var shortages []Shortage
	for _, k := range keys {
		var have float64
		err := tx.QueryRow(ctx, `
			SELECT qty FROM inventory_stocks
			WHERE ingredient_id=$1 AND branch_id=$2 FOR UPDATE`,
			k.IngredientID, k.BranchID).Scan(&have)
		if errors.Is(err, pgx.ErrNoRows) {
			have = 0
		} else if err != nil {
			return nil, err
		}
		if have < plan[k] {
			shortages = append(shortages, Shortage{
				IngredientID: k.IngredientID,
				BranchID:     k.BranchID,
				Required:     plan[k],
				Available:    have,
			})
		}
	}
	return shortages, nil
}
