package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the account email (unique). Used for login and for collapsing
	// "me"-style participant references onto the acting user.
	Email string

	// DisplayName is shown in the UI. Defaults to the email local-part.
	DisplayName string

	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last account change.
	UpdatedAt int64
}

// NewUser creates a user with a generated ID and timestamps. An empty display
// name falls back to the email local-part.
func NewUser(email, displayName, passwordHash string) *User {
	if displayName == "" {
		displayName = EmailLocalPart(email)
	}
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
