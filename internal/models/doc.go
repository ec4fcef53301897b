// Package models defines the core domain models for SmartBill.
//
// # Models
//
//   - Expense: a persisted receipt with its items and participant claims
//   - ExpenseItem: a unit-quantity line on a persisted expense
//   - ExpenseParticipant: a person and the item names they claimed
//   - Contact: a saved friend (registered user) of the acting user
//   - ContactGroup: a reusable set of contacts for recurring splits
//   - Split: the backend-authoritative share one contact owes for an expense
//   - User: a registered account
//
// # Design Principles
//
//  1. Money is decimal.Decimal everywhere; rounding to two places happens only
//     when a value is displayed or persisted, never during computation.
//  2. Expense items are stored with quantity 1: multi-quantity receipt lines are
//     expanded into unit-priced items before an expense is saved (see the engine
//     package), so the persisted form never needs re-expansion.
//  3. Participant claims are stored as item names, not item indices. Names survive
//     re-ordering and are what the reconciliation path matches against.
//  4. Avoid circular references: relationships use ID strings, not pointers.
package models
