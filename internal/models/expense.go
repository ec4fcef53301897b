package models

import (
	"github.com/shopspring/decimal"
)

// Expense represents a persisted receipt with its items and participant claims.
// An expense is immutable once saved except through UpdateExpense, which replaces
// items and participants wholesale.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// UserID is the account that created the expense.
	UserID string

	// StoreName is the merchant name from OCR or manual edit. May be empty.
	StoreName string

	// TotalAmount is the final receipt amount including tax.
	TotalAmount decimal.Decimal

	// Subtotal is the pre-tax amount. Zero when the receipt did not state one.
	Subtotal decimal.Decimal

	// TaxAmount is the tax line from the receipt. Zero when absent.
	TaxAmount decimal.Decimal

	// RawText is the raw OCR text, kept for auditing. May be empty.
	RawText string

	// Transcript is the voice narration used to split this bill. May be empty.
	Transcript string

	// Items are the unit-priced items on the expense. Quantity is always 1 here;
	// expansion happens before persistence.
	Items []ExpenseItem

	// Participants are the people splitting the expense with their claimed
	// item names.
	Participants []ExpenseParticipant

	// CreatedAt is the Unix timestamp when the expense was saved.
	CreatedAt int64
}

// ExpenseItem is a single unit-priced item on a persisted expense.
type ExpenseItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// Name is the item description, including any "(i/q)" unit suffix produced
	// by quantity expansion.
	Name string

	// Price is the unit price of the item.
	Price decimal.Decimal

	// Quantity is always 1 for persisted items. The field exists so the wire
	// format matches receipts that have not been expanded yet.
	Quantity int
}

// ExpenseParticipant is one person's claim on a persisted expense. Items holds
// the names of the expense items assigned to this person; shares are re-derived
// from these names, never stored on the participant.
type ExpenseParticipant struct {
	Name  string
	Items []string
}
