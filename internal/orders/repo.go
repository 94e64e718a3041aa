package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repo uses; tests hand it a mock
// pool.
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct{ DB DB }

// CreateOrder persists the order, its lines and (when the order arrives
// already paid) the payment as one transaction. A partial line set is never
// visible. The per-branch daily sequence number is assigned here.
func (r *Repo) CreateOrder(ctx context.Context, o *Order, pay *Payment) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The branch-row lock serializes same-branch creates, so the daily
	// seq_no below is minted once per order.
	var one int
	err = tx.QueryRow(ctx, `SELECT 1 FROM branches WHERE id=$1 FOR UPDATE`, o.BranchID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("branch %s: %w", o.BranchID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq_no), 0) + 1 FROM orders
		WHERE branch_id = $1 AND created_at::date = CURRENT_DATE`,
		o.BranchID).Scan(&o.SeqNo); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, branch_id, company_id, waiter_id, seq_no, status,
		                   subtotal_cents, discount_cents, rounding_cents, total_cents,
		                   created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`,
		o.ID, o.BranchID, o.CompanyID, o.WaiterID, o.SeqNo, o.Status,
		o.SubtotalCents, o.DiscountCents, o.RoundingCents, o.TotalCents, o.CreatedAt,
	)
	if err != nil {
		return mapPgError(err)
	}

	for _, l := range o.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines(id, order_id, kind, menu_item_id, ingredient_id,
			                        qty, unit_price_cents, total_cents)
			VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),$6,$7,$8)`,
			l.ID, o.ID, l.Kind, l.MenuItemID, l.IngredientID,
			l.Qty, l.UnitPriceCents, l.TotalCents,
		)
		if err != nil {
			return mapPgError(err)
		}
	}

	if pay != nil {
		if _, err := insertPayment(ctx, tx, pay); err != nil {
			return mapPgError(err)
		}
	}

	return tx.Commit(ctx)
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, branch_id, company_id, waiter_id, seq_no, status,
		       subtotal_cents, discount_cents, rounding_cents, total_cents,
		       created_at, updated_at
		FROM orders WHERE id=$1`, orderID).Scan(
		&o.ID, &o.BranchID, &o.CompanyID, &o.WaiterID, &o.SeqNo, &o.Status,
		&o.SubtotalCents, &o.DiscountCents, &o.RoundingCents, &o.TotalCents,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, kind, COALESCE(menu_item_id,''), COALESCE(ingredient_id,''),
		       qty, unit_price_cents, total_cents
		FROM order_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		l := OrderLine{OrderID: o.ID}
		if err := rows.Scan(&l.ID, &l.Kind, &l.MenuItemID, &l.IngredientID,
			&l.Qty, &l.UnitPriceCents, &l.TotalCents); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateStatus flips the status only when the row still carries the status
// the caller saw; a concurrent transition makes this a no-op and the caller
// gets ErrInvalidTransition.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, from, to Status) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=$4
		WHERE id=$1 AND status=$2`,
		orderID, from, to, time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, orderID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

// CreatePaymentOnce inserts the payment unless the order already has one.
// Returns false when a payment existed.
func (r *Repo) CreatePaymentOnce(ctx context.Context, pay *Payment) (bool, error) {
	created, err := insertPayment(ctx, r.DB, pay)
	if err != nil {
		return false, mapPgError(err)
	}
	return created, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertPayment(ctx context.Context, db execer, pay *Payment) (bool, error) {
	ct, err := db.Exec(ctx, `
		INSERT INTO payments(id, order_id, amount_cents, method, currency, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (order_id) DO NOTHING`,
		pay.ID, pay.OrderID, pay.AmountCents, pay.Method, pay.Currency, pay.Status, pay.CreatedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

type Summary struct {
	ID         string    `json:"id"`
	SeqNo      int       `json:"seq_no"`
	BranchID   string    `json:"branch_id"`
	WaiterID   string    `json:"waiter_id"`
	Status     Status    `json:"status"`
	TotalCents int       `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r *Repo) ListByBranchDate(ctx context.Context, branchID string, date time.Time) ([]Summary, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, seq_no, branch_id, waiter_id, status, total_cents, created_at
		FROM orders
		WHERE branch_id=$1 AND created_at::date = $2::date
		ORDER BY seq_no`, branchID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.SeqNo, &s.BranchID, &s.WaiterID, &s.Status, &s.TotalCents, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Foreign key violations mean the caller referenced a menu item or
// ingredient that does not exist.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrNotFound)
	}
	return err
}
