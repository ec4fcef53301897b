// Package engine implements the bill-splitting engine: quantity expansion of
// receipt lines, reconciliation of participant identities from voice, group,
// or manual input, the participant-to-item assignment relation, and the share
// calculation. Everything here is pure and synchronous; it is safe to re-run
// on every edit.
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is a receipt entry as OCR'd or manually edited. Quantity may be
// greater than 1.
type LineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// AtomicItem is a unit-quantity, unit-priced item derived from a LineItem.
// Atomic items are never edited directly; edit the line item and re-expand.
type AtomicItem struct {
	Name  string
	Price decimal.Decimal

	// SourceIndex is the position of the originating LineItem, used to strip
	// unit suffixes back to the original name.
	SourceIndex int
}

// Expand flattens receipt lines into unit-priced atomic items. A line with
// quantity q > 1 produces q items priced at the unit price, named
// "{name} (i/q)" so each unit can be assigned independently. Output order is
// the per-line expansions concatenated in line order.
//
// Expand is pure and must be re-invoked whenever the line items change; the
// previous expansion's index space, and any assignments built on it, are
// invalid after an edit.
func Expand(items []LineItem) []AtomicItem {
	var atoms []AtomicItem
	for src, item := range items {
		if item.Quantity <= 1 {
			atoms = append(atoms, AtomicItem{
				Name:        item.Name,
				Price:       item.UnitPrice,
				SourceIndex: src,
			})
			continue
		}
		for i := 1; i <= item.Quantity; i++ {
			atoms = append(atoms, AtomicItem{
				Name:        fmt.Sprintf("%s (%d/%d)", item.Name, i, item.Quantity),
				Price:       item.UnitPrice,
				SourceIndex: src,
			})
		}
	}
	return atoms
}
