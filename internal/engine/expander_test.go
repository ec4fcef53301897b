package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name         string
		items        []LineItem
		validateFunc func(t *testing.T, atoms []AtomicItem)
	}{
		{
			name: "quantity three expands to three suffixed units",
			items: []LineItem{
				{Name: "Soda", UnitPrice: decimal.RequireFromString("2.00"), Quantity: 3},
			},
			validateFunc: func(t *testing.T, atoms []AtomicItem) {
				if len(atoms) != 3 {
					t.Fatalf("got %d atoms, want 3", len(atoms))
				}
				wantNames := []string{"Soda (1/3)", "Soda (2/3)", "Soda (3/3)"}
				for i, atom := range atoms {
					if atom.Name != wantNames[i] {
						t.Errorf("atom %d name = %q, want %q", i, atom.Name, wantNames[i])
					}
					if !atom.Price.Equal(decimal.RequireFromString("2.00")) {
						t.Errorf("atom %d price = %s, want 2.00", i, atom.Price)
					}
					if atom.SourceIndex != 0 {
						t.Errorf("atom %d source = %d, want 0", i, atom.SourceIndex)
					}
				}
			},
		},
		{
			name: "quantity one keeps the original name",
			items: []LineItem{
				{Name: "Pizza", UnitPrice: decimal.RequireFromString("15.50"), Quantity: 1},
			},
			validateFunc: func(t *testing.T, atoms []AtomicItem) {
				if len(atoms) != 1 {
					t.Fatalf("got %d atoms, want 1", len(atoms))
				}
				if atoms[0].Name != "Pizza" {
					t.Errorf("name = %q, want Pizza", atoms[0].Name)
				}
			},
		},
		{
			name: "zero quantity treated as one",
			items: []LineItem{
				{Name: "Fries", UnitPrice: decimal.RequireFromString("3.00"), Quantity: 0},
			},
			validateFunc: func(t *testing.T, atoms []AtomicItem) {
				if len(atoms) != 1 || atoms[0].Name != "Fries" {
					t.Fatalf("got %v, want single unsuffixed item", atoms)
				}
			},
		},
		{
			name: "mixed lines preserve order and source index",
			items: []LineItem{
				{Name: "Pizza", UnitPrice: decimal.RequireFromString("15.50"), Quantity: 1},
				{Name: "Soda", UnitPrice: decimal.RequireFromString("2.00"), Quantity: 2},
				{Name: "Cake", UnitPrice: decimal.RequireFromString("8.00"), Quantity: 1},
			},
			validateFunc: func(t *testing.T, atoms []AtomicItem) {
				wantNames := []string{"Pizza", "Soda (1/2)", "Soda (2/2)", "Cake"}
				wantSources := []int{0, 1, 1, 2}
				if len(atoms) != len(wantNames) {
					t.Fatalf("got %d atoms, want %d", len(atoms), len(wantNames))
				}
				for i := range atoms {
					if atoms[i].Name != wantNames[i] {
						t.Errorf("atom %d name = %q, want %q", i, atoms[i].Name, wantNames[i])
					}
					if atoms[i].SourceIndex != wantSources[i] {
						t.Errorf("atom %d source = %d, want %d", i, atoms[i].SourceIndex, wantSources[i])
					}
				}
			},
		},
		{
			name:  "empty input yields no atoms",
			items: nil,
			validateFunc: func(t *testing.T, atoms []AtomicItem) {
				if len(atoms) != 0 {
					t.Errorf("got %d atoms, want 0", len(atoms))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validateFunc(t, Expand(tt.items))
		})
	}
}

func TestExpandIdempotent(t *testing.T) {
	items := []LineItem{
		{Name: "Soda", UnitPrice: decimal.RequireFromString("2.00"), Quantity: 3},
		{Name: "Pizza", UnitPrice: decimal.RequireFromString("15.50"), Quantity: 1},
	}
	first := Expand(items)
	second := Expand(items)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Name != second[i].Name || !first[i].Price.Equal(second[i].Price) {
			t.Errorf("atom %d differs between invocations", i)
		}
	}
}
