package inventory

import "sort"

// PlanKey is the aggregation key for one deduction. A struct key instead of
// a concatenated string, so ids containing a separator can never collide.
type PlanKey struct {
	IngredientID string
	BranchID     string
}

// Plan maps each (ingredient, branch) pair to the total quantity to
// subtract for one order. Ephemeral: computed per fulfillment, never stored.
type Plan map[PlanKey]float64

func (p Plan) Add(k PlanKey, qty float64) {
	p[k] += qty
}

// Keys returns the plan's keys in a stable order. The ledger iterates in
// this order so concurrent applies take row locks consistently.
func (p Plan) Keys() []PlanKey {
	keys := make([]PlanKey, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].BranchID != keys[j].BranchID {
			return keys[i].BranchID < keys[j].BranchID
		}
		return keys[i].IngredientID < keys[j].IngredientID
	})
	return keys
}
