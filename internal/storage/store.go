// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/smartbill/smartbill/internal/models"
)

// Store defines the interface for SmartBill's persistence operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email. Returns (nil, nil) when no
	// such user exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID. Returns (nil, nil) when no such
	// user exists.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateExpense persists an expense with its items and participants.
	// The expense.ID field will be populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves one of the user's expenses by ID.
	GetExpense(ctx context.Context, userID, expenseID string) (*models.Expense, error)

	// ListExpenses returns the user's expenses, newest first.
	ListExpenses(ctx context.Context, userID string, limit, offset int) ([]*models.Expense, error)

	// DeleteExpense removes one of the user's expenses and everything
	// attached to it.
	DeleteExpense(ctx context.Context, userID, expenseID string) error

	// AddContact persists a new contact for a user.
	AddContact(ctx context.Context, contact *models.Contact) error

	// ListContacts returns the user's contacts in insertion order.
	ListContacts(ctx context.Context, userID string) ([]models.Contact, error)

	// UpdateContactNickname sets (or clears, with "") a contact's nickname.
	UpdateContactNickname(ctx context.Context, userID, contactID, nickname string) error

	// DeleteContact removes one of the user's contacts.
	DeleteContact(ctx context.Context, userID, contactID string) error

	// CreateContactGroup persists a group with its members.
	CreateContactGroup(ctx context.Context, group *models.ContactGroup) error

	// GetContactGroup retrieves one of the user's groups by ID.
	GetContactGroup(ctx context.Context, userID, groupID string) (*models.ContactGroup, error)

	// ListContactGroups returns the user's groups with members.
	ListContactGroups(ctx context.Context, userID string) ([]models.ContactGroup, error)

	// DeleteContactGroup removes one of the user's groups.
	DeleteContactGroup(ctx context.Context, userID, groupID string) error

	// UpsertSplits creates or replaces split records for an expense, keyed by
	// (expense, contact). Re-running with the same drafts never duplicates.
	UpsertSplits(ctx context.Context, expenseID string, drafts []models.SplitDraft) error

	// ListSplits returns the split records for an expense.
	ListSplits(ctx context.Context, expenseID string) ([]models.Split, error)

	// MarkBillSent records that the bill email for a split went out.
	MarkBillSent(ctx context.Context, splitID string) error

	// Close releases any resources held by the store.
	Close() error
}
