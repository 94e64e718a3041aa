package inventory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type StockLevel struct {
	IngredientID string    `json:"ingredient_id"`
	BranchID     string    `json:"branch_id"`
	Qty          float64   `json:"qty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StockRepo covers the read side and stocking. Order fulfillment never
// touches these paths; its deltas go through the Ledger only.
type StockRepo struct{ DB *pgxpool.Pool }

func (r *StockRepo) Snapshot(ctx context.Context, branchID string) ([]StockLevel, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT ingredient_id, branch_id, qty, updated_at
		FROM inventory_stocks WHERE branch_id=$1 ORDER BY ingredient_id`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StockLevel
	for rows.Next() {
		var s StockLevel
		if err := rows.Scan(&s.IngredientID, &s.BranchID, &s.Qty, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Receive adds received stock, creating the row lazily on first stocking.
func (r *StockRepo) Receive(ctx context.Context, ingredientID, branchID string, qty float64) (StockLevel, error) {
	var s StockLevel
	err := r.DB.QueryRow(ctx, `
		INSERT INTO inventory_stocks(ingredient_id, branch_id, qty, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (ingredient_id, branch_id)
		DO UPDATE SET qty = inventory_stocks.qty + EXCLUDED.qty, updated_at = now()
		RETURNING ingredient_id, branch_id, qty, updated_at`,
		ingredientID, branchID, qty).Scan(&s.IngredientID, &s.BranchID, &s.Qty, &s.UpdatedAt)
	return s, err
}
