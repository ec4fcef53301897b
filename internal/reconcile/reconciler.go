// Package reconcile matches a persisted expense's participants against the
// user's saved contacts, merges in any previously-persisted split records,
// and drives the two-phase create-splits / send-bills operation. It reuses
// the engine's fuzzy-match predicate and equal-division-by-claimants rule so
// a reconciled share always agrees with what the editor showed at save time.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/smartbill/smartbill/internal/engine"
	"github.com/smartbill/smartbill/internal/models"
)

// ItemDetail is the per-item breakdown behind one contact's share.
type ItemDetail struct {
	// Name is the expense item's original name.
	Name string

	// Price is the full item price.
	Price decimal.Decimal

	// SharedWith is how many participants claim the item (at least 1).
	SharedWith int

	// PerPerson is Price divided by SharedWith.
	PerPerson decimal.Decimal
}

// Share is the computed or persisted amount one contact owes.
type Share struct {
	Amount  decimal.Decimal
	Items   []string
	Details []ItemDetail
}

// Reconciliation is the mutable selection state for sending bills on one
// expense. Build it with New, edit the selection with Toggle, then call
// SendBills.
type Reconciliation struct {
	expense  *models.Expense
	splits   []models.Split
	relevant []models.Contact
	byID     map[string]models.Contact
	selected []string
	shares   map[string]Share
}

// New filters contacts down to the ones related to the expense, preselects
// contacts that already have split records, and resolves each relevant
// contact's share. Persisted split records are authoritative: when any exist,
// amounts and item lists come verbatim from them; only when none exist are
// shares recomputed from the expense's participant claims.
func New(expense *models.Expense, contacts []models.Contact, existing []models.Split) *Reconciliation {
	r := &Reconciliation{
		expense: expense,
		splits:  existing,
		byID:    make(map[string]models.Contact),
		shares:  make(map[string]Share),
	}

	splitByContact := make(map[string]models.Split)
	for _, s := range existing {
		if s.ContactID != "" {
			splitByContact[s.ContactID] = s
		}
	}

	for _, contact := range contacts {
		if !r.isRelevant(contact, splitByContact) {
			continue
		}
		r.relevant = append(r.relevant, contact)
		r.byID[contact.ID] = contact
	}

	if len(existing) > 0 {
		for _, contact := range r.relevant {
			split, ok := splitByContact[contact.ID]
			if !ok {
				continue
			}
			items := split.Items()
			r.shares[contact.ID] = Share{
				Amount:  split.AmountOwed,
				Items:   items,
				Details: r.detailsFromSplits(items),
			}
			r.selected = append(r.selected, contact.ID)
		}
		return r
	}

	for _, contact := range r.relevant {
		if share, ok := r.shareFromParticipants(contact); ok {
			r.shares[contact.ID] = share
		}
	}
	return r
}

// isRelevant reports whether a contact belongs in the send-bill view: it
// fuzzy-matches a participant name, or it already has a split record.
// Irrelevant contacts are hidden entirely.
func (r *Reconciliation) isRelevant(contact models.Contact, splitByContact map[string]models.Split) bool {
	if _, ok := splitByContact[contact.ID]; ok {
		return true
	}
	name := contact.DisplayName()
	for _, p := range r.expense.Participants {
		if engine.Match(name, p.Name) {
			return true
		}
	}
	return false
}

// findItemPrice resolves an item name against the expense items: exact
// normalized match first, substring containment as a fallback. Unmatched
// names price at zero rather than erroring.
func (r *Reconciliation) findItemPrice(itemName string) (decimal.Decimal, string) {
	normalized := engine.Normalize(itemName)
	for _, item := range r.expense.Items {
		if engine.Normalize(item.Name) == normalized {
			return item.Price, item.Name
		}
	}
	for _, item := range r.expense.Items {
		if engine.Match(item.Name, itemName) {
			return item.Price, item.Name
		}
	}
	return decimal.Zero, itemName
}

// claimantCount returns how many expense participants claim an item name.
func (r *Reconciliation) claimantCount(itemName string) int {
	normalized := engine.Normalize(itemName)
	count := 0
	for _, p := range r.expense.Participants {
		for _, claimed := range p.Items {
			if engine.Normalize(claimed) == normalized {
				count++
				break
			}
		}
	}
	return count
}

// shareFromParticipants computes a contact's share from the expense's
// participant claims using the equal-division-by-claimants rule.
func (r *Reconciliation) shareFromParticipants(contact models.Contact) (Share, bool) {
	participant, ok := r.matchParticipant(contact)
	if !ok {
		return Share{}, false
	}

	share := Share{Amount: decimal.Zero, Items: participant.Items}
	for _, itemName := range participant.Items {
		price, original := r.findItemPrice(itemName)
		count := r.claimantCount(itemName)
		perPerson := price
		if count > 0 {
			perPerson = price.Div(decimal.NewFromInt(int64(count)))
		} else {
			count = 1
		}
		share.Amount = share.Amount.Add(perPerson)
		share.Details = append(share.Details, ItemDetail{
			Name:       original,
			Price:      price,
			SharedWith: count,
			PerPerson:  perPerson,
		})
	}
	return share, true
}

// detailsFromSplits builds the per-item breakdown for a persisted split,
// counting sharers across all persisted split records.
func (r *Reconciliation) detailsFromSplits(items []string) []ItemDetail {
	var details []ItemDetail
	for _, itemName := range items {
		price, original := r.findItemPrice(itemName)
		normalized := engine.Normalize(itemName)

		count := 0
		for _, s := range r.splits {
			for _, other := range s.Items() {
				if engine.Normalize(other) == normalized {
					count++
					break
				}
			}
		}
		perPerson := price
		if count > 0 {
			perPerson = price.Div(decimal.NewFromInt(int64(count)))
		} else {
			count = 1
		}
		details = append(details, ItemDetail{
			Name:       original,
			Price:      price,
			SharedWith: count,
			PerPerson:  perPerson,
		})
	}
	return details
}

// matchParticipant finds the expense participant a contact corresponds to.
func (r *Reconciliation) matchParticipant(contact models.Contact) (models.ExpenseParticipant, bool) {
	name := contact.DisplayName()
	for _, p := range r.expense.Participants {
		if engine.Match(name, p.Name) {
			return p, true
		}
	}
	return models.ExpenseParticipant{}, false
}

// Relevant returns the contacts related to this expense, in input order.
func (r *Reconciliation) Relevant() []models.Contact {
	out := make([]models.Contact, len(r.relevant))
	copy(out, r.relevant)
	return out
}

// Selected returns the currently-selected contact IDs in selection order.
func (r *Reconciliation) Selected() []string {
	out := make([]string, len(r.selected))
	copy(out, r.selected)
	return out
}

// Share returns the resolved share for a contact, if one exists.
func (r *Reconciliation) Share(contactID string) (Share, bool) {
	share, ok := r.shares[contactID]
	return share, ok
}

// Toggle flips a contact's selection. Selecting computes (or reuses a cached)
// share for that contact only; deselecting drops it from the selection and
// discards the cached share. Unknown or irrelevant IDs are a no-op.
func (r *Reconciliation) Toggle(contactID string) {
	for i, id := range r.selected {
		if id == contactID {
			r.selected = append(r.selected[:i], r.selected[i+1:]...)
			delete(r.shares, contactID)
			return
		}
	}

	contact, ok := r.byID[contactID]
	if !ok {
		return
	}
	if _, ok := r.shares[contactID]; !ok {
		share, matched := r.shareFromParticipants(contact)
		if !matched {
			// Relevant but unmatched (e.g. only known through an old split
			// record): selectable with an empty share.
			share = Share{Amount: decimal.Zero}
		}
		r.shares[contactID] = share
	}
	r.selected = append(r.selected, contactID)
}
