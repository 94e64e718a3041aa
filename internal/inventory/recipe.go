package inventory

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RecipeEntry is one ingredient-and-amount pair of a menu item's recipe.
// Amounts are per unit sold.
type RecipeEntry struct {
	IngredientID  string
	AmountPerUnit float64
}

// RecipeResolver is owned by menu management; the core only reads it.
type RecipeResolver interface {
	Recipe(ctx context.Context, menuItemID string) ([]RecipeEntry, error)
}

type PgRecipes struct{ DB *pgxpool.Pool }

// Recipe returns the ingredient links of a menu item. An empty result is
// normal: not every menu item has tracked ingredients.
func (r *PgRecipes) Recipe(ctx context.Context, menuItemID string) ([]RecipeEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT ingredient_id, amount_per_unit
		FROM menu_item_ingredients WHERE menu_item_id=$1`, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecipeEntry
	for rows.Next() {
		var e RecipeEntry
		if err := rows.Scan(&e.IngredientID, &e.AmountPerUnit); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
