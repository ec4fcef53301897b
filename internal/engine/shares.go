package engine

import "github.com/shopspring/decimal"

// ItemShare is one participant's contribution from a single atomic item.
type ItemShare struct {
	// Index is the atomic item index.
	Index int

	// Amount is the participant's share of that item: price divided by the
	// number of assignees.
	Amount decimal.Decimal
}

// ShareResult is one participant's computed allocation.
type ShareResult struct {
	Key     string
	PerItem []ItemShare
	Total   decimal.Decimal
}

// ComputeShares derives per-participant totals from the atomic items and the
// assignment relation. For an item claimed by k participants, each assignee
// owes price/k; an item claimed by nobody contributes zero to everyone and
// the receipt simply does not reconcile, which is accepted. The function is
// pure: the same inputs always produce identical results, ordered by
// participant insertion order and ascending item index.
//
// Per-item contributions always sum to exactly the item's price. Division by
// k can leave a remainder at decimal's working precision (k=3, 6, 7...), so
// the last assignee of each item, in participant insertion order, absorbs the
// residual: price minus (k-1) base shares. Currency rounding is still applied
// only when a value is displayed or persisted.
func ComputeShares(items []AtomicItem, assignments *Assignments) []ShareResult {
	keys := assignments.Keys()

	last := make(map[int]string, len(items))
	for _, key := range keys {
		for _, idx := range assignments.Get(key) {
			last[idx] = key
		}
	}

	results := make([]ShareResult, 0, len(keys))
	for _, key := range keys {
		result := ShareResult{Key: key, Total: decimal.Zero}
		for _, idx := range assignments.Get(key) {
			if idx < 0 || idx >= len(items) {
				continue
			}
			count := assignments.AssigneeCount(idx)
			if count == 0 {
				continue
			}
			price := items[idx].Price
			base := price.Div(decimal.NewFromInt(int64(count)))
			amount := base
			if last[idx] == key {
				amount = price.Sub(base.Mul(decimal.NewFromInt(int64(count - 1))))
			}
			result.PerItem = append(result.PerItem, ItemShare{Index: idx, Amount: amount})
			result.Total = result.Total.Add(amount)
		}
		results = append(results, result)
	}
	return results
}
