package inventory

import (
	"context"
	"fmt"

	"github.com/kedaiku/resto-pos/internal/orders"
)

// Planner turns a finalized order into one aggregated deduction plan.
// Pure read: no side effects, safe to recompute.
type Planner struct {
	Recipes RecipeResolver
}

// Plan walks every line of the order. Ingredient lines consume their own
// quantity directly; menu-item lines consume recipeAmount * qty for every
// recipe entry. Everything lands in one (ingredient, branch) bucket, so two
// lines touching the same ingredient collapse into a single delta.
func (p *Planner) Plan(ctx context.Context, o *orders.Order) (Plan, error) {
	plan := Plan{}
	for _, l := range o.Lines {
		switch l.Kind {
		case orders.LineIngredient:
			plan.Add(PlanKey{IngredientID: l.IngredientID, BranchID: o.BranchID}, float64(l.Qty))
		case orders.LineMenuItem:
			entries, err := p.Recipes.Recipe(ctx, l.MenuItemID)
			if err != nil {
				return nil, fmt.Errorf("resolve recipe for %s: %w", l.MenuItemID, err)
			}
			for _, e := range entries {
				plan.Add(PlanKey{IngredientID: e.IngredientID, BranchID: o.BranchID}, e.AmountPerUnit*float64(l.Qty))
			}
		default:
			return nil, fmt.Errorf("order %s line %s has unknown kind %q", o.ID, l.ID, l.Kind)
		}
	}
	return plan, nil
}
