package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Split is the backend-authoritative record of one contact's share of an
// expense. Once a split exists its amount and item list are taken verbatim;
// they are never recomputed from the expense.
type Split struct {
	// ID is the unique identifier for the split (UUID format).
	ID string

	// ExpenseID is the expense this split belongs to.
	ExpenseID string

	// ContactID links the split to the owner's contact entry. May be empty for
	// splits created for ad-hoc participants.
	ContactID string

	// ParticipantName is the display name the bill is addressed to.
	ParticipantName string

	// ParticipantEmail is where the bill is sent.
	ParticipantEmail string

	// AmountOwed is the share, rounded to currency precision at persistence.
	AmountOwed decimal.Decimal

	// ItemsDetail is the claimed item names. The wire and storage forms vary:
	// some writers store a JSON array, others a JSON-encoded string containing
	// an array. Use Items to read it.
	ItemsDetail json.RawMessage

	// EmailSent records whether the bill email went out.
	EmailSent bool

	// CreatedAt is the Unix timestamp when the split was persisted.
	CreatedAt int64
}

// Items decodes ItemsDetail, tolerating both a JSON array and a JSON string
// that itself contains an encoded array. Malformed detail yields an empty
// list rather than an error: a bad record degrades locally, it does not
// abort reconciliation.
func (s *Split) Items() []string {
	if len(s.ItemsDetail) == 0 {
		return nil
	}
	var items []string
	if err := json.Unmarshal(s.ItemsDetail, &items); err == nil {
		return items
	}
	var nested string
	if err := json.Unmarshal(s.ItemsDetail, &nested); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(nested), &items); err != nil {
		return nil
	}
	return items
}

// SplitDraft is the caller-supplied form of a split before persistence.
// Upserting a draft replaces any existing split for the same contact on the
// same expense.
type SplitDraft struct {
	ContactID  string
	Name       string
	Email      string
	AmountOwed decimal.Decimal
	Items      []string
}

// EncodeItems marshals the draft's item names into the canonical JSON array
// form used by storage.
func (d SplitDraft) EncodeItems() json.RawMessage {
	if len(d.Items) == 0 {
		return json.RawMessage("[]")
	}
	raw, err := json.Marshal(d.Items)
	if err != nil {
		return json.RawMessage("[]")
	}
	return raw
}
