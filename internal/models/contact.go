package models

import "strings"

// Contact represents a saved friend of the acting user. The friend must be a
// registered user; FriendEmail is their account email.
type Contact struct {
	// ID is the unique identifier for the contact (UUID format).
	ID string

	// UserID is the account that owns this contact entry.
	UserID string

	// FriendEmail is the friend's account email.
	FriendEmail string

	// Nickname is an optional display name. When empty, the email local-part
	// is used for display and matching.
	Nickname string

	// CreatedAt is the Unix timestamp when the contact was added.
	CreatedAt int64
}

// DisplayName returns the nickname, or the email local-part when no nickname
// is set.
func (c Contact) DisplayName() string {
	if c.Nickname != "" {
		return c.Nickname
	}
	return EmailLocalPart(c.FriendEmail)
}

// ContactGroup is a reusable set of contacts for recurring splits.
type ContactGroup struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// UserID is the account that owns the group.
	UserID string

	// Name is the display name of the group (e.g. "Roommates").
	Name string

	// Members are the people in the group.
	Members []GroupMember

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// GroupMember is one person in a contact group.
type GroupMember struct {
	// ContactID links back to the owner's contact entry. Empty for the
	// creator, who is a member without being their own contact.
	ContactID string

	// Email is the member's account email.
	Email string

	// Nickname is the owner's nickname for the member, if any.
	Nickname string

	// IsCreator marks the group owner's own membership entry.
	IsCreator bool
}

// DisplayName returns the member's nickname, or the email local-part.
func (m GroupMember) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return EmailLocalPart(m.Email)
}

// EmailLocalPart returns the part of an email address before the '@'.
// Returns the input unchanged when it contains no '@'.
func EmailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
