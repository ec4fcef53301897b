package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func atoms(prices ...string) []AtomicItem {
	items := make([]AtomicItem, len(prices))
	for i, p := range prices {
		items[i] = AtomicItem{Name: "item", Price: decimal.RequireFromString(p), SourceIndex: i}
	}
	return items
}

func TestComputeShares(t *testing.T) {
	tests := []struct {
		name         string
		items        []AtomicItem
		setup        func(a *Assignments)
		validateFunc func(t *testing.T, results []ShareResult)
	}{
		{
			name:  "single assignee pays full price",
			items: atoms("12.50"),
			setup: func(a *Assignments) {
				a.Add("alice", 0)
			},
			validateFunc: func(t *testing.T, results []ShareResult) {
				if len(results) != 1 {
					t.Fatalf("got %d results, want 1", len(results))
				}
				if !results[0].Total.Equal(decimal.RequireFromString("12.50")) {
					t.Errorf("total = %s, want 12.50", results[0].Total)
				}
			},
		},
		{
			name:  "shared item divides equally and conserves the price",
			items: atoms("10.00"),
			setup: func(a *Assignments) {
				a.Add("alice", 0)
				a.Add("bob", 0)
			},
			validateFunc: func(t *testing.T, results []ShareResult) {
				sum := decimal.Zero
				for _, r := range results {
					if !r.Total.Equal(decimal.RequireFromString("5.00")) {
						t.Errorf("%s total = %s, want 5.00", r.Key, r.Total)
					}
					sum = sum.Add(r.Total)
				}
				if !sum.Equal(decimal.RequireFromString("10.00")) {
					t.Errorf("sum of shares = %s, want the full item price 10.00", sum)
				}
			},
		},
		{
			name:  "four-way split conserves exactly",
			items: atoms("7.00"),
			setup: func(a *Assignments) {
				for _, key := range []string{"a", "b", "c", "d"} {
					a.Add(key, 0)
				}
			},
			validateFunc: func(t *testing.T, results []ShareResult) {
				sum := decimal.Zero
				for _, r := range results {
					sum = sum.Add(r.Total)
				}
				if !sum.Equal(decimal.RequireFromString("7.00")) {
					t.Errorf("sum = %s, want 7.00", sum)
				}
			},
		},
		{
			name:  "three-way split conserves the non-terminating remainder",
			items: atoms("10.00"),
			setup: func(a *Assignments) {
				a.Add("alice", 0)
				a.Add("bob", 0)
				a.Add("carol", 0)
			},
			validateFunc: func(t *testing.T, results []ShareResult) {
				sum := decimal.Zero
				for _, r := range results {
					sum = sum.Add(r.Total)
				}
				if !sum.Equal(decimal.RequireFromString("10.00")) {
					t.Errorf("sum = %s, want 10.00", sum)
				}
				// The residual lands on the last participant; everyone is
				// still equal after currency rounding.
				for _, r := range results {
					if !r.Total.Round(2).Equal(decimal.RequireFromString("3.33")) {
						t.Errorf("%s rounded total = %s, want 3.33", r.Key, r.Total.Round(2))
					}
				}
			},
		},
		{
			name:  "unassigned item contributes zero and never panics",
			items: atoms("10.00", "4.00"),
			setup: func(a *Assignments) {
				a.Add("alice", 0)
				a.Add("bob") // participant with an empty set
			},
			validateFunc: func(t *testing.T, results []ShareResult) {
				if len(results) != 2 {
					t.Fatalf("got %d results, want 2", len(results))
				}
				if !results[0].Total.Equal(decimal.RequireFromString("10.00")) {
					t.Errorf("alice total = %s, want 10.00", results[0].Total)
				}
				if !results[1].Total.IsZero() {
					t.Errorf("bob total = %s, want 0", results[1].Total)
				}
				for _, r := range results {
					for _, item := range r.PerItem {
						if item.Index == 1 {
							t.Error("unassigned index 1 contributed to a share")
						}
					}
				}
			},
		},
		{
			name:  "out of range index is ignored",
			items: atoms("3.00"),
			setup: func(a *Assignments) {
				a.Add("alice", 0, 7)
			},
			validateFunc: func(t *testing.T, results []ShareResult) {
				if !results[0].Total.Equal(decimal.RequireFromString("3.00")) {
					t.Errorf("total = %s, want 3.00", results[0].Total)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssignments()
			tt.setup(a)
			tt.validateFunc(t, ComputeShares(tt.items, a))
		})
	}
}

func TestComputeSharesDeterministic(t *testing.T) {
	items := atoms("10.00", "7.33", "2.50")
	a := NewAssignments()
	a.Add("carol", 0, 1)
	a.Add("alice", 1, 2)
	a.Add("bob", 0, 2)

	first := ComputeShares(items, a)
	second := ComputeShares(items, a)

	if len(first) != len(second) {
		t.Fatalf("result lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key {
			t.Errorf("result %d key %q vs %q", i, first[i].Key, second[i].Key)
		}
		if !first[i].Total.Equal(second[i].Total) {
			t.Errorf("result %d total %s vs %s", i, first[i].Total, second[i].Total)
		}
		if len(first[i].PerItem) != len(second[i].PerItem) {
			t.Errorf("result %d per-item lengths differ", i)
		}
	}

	// Keys come out in participant insertion order.
	wantOrder := []string{"carol", "alice", "bob"}
	for i, r := range first {
		if r.Key != wantOrder[i] {
			t.Errorf("result %d key = %q, want %q", i, r.Key, wantOrder[i])
		}
	}
}
