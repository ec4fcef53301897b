package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartbill/smartbill/internal/models"
)

// AddContact inserts a new contact for a user. Adding the same friend email
// twice for one user fails on the unique constraint.
func (s *SQLiteStore) AddContact(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	if contact.CreatedAt == 0 {
		contact.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO contacts (id, user_id, friend_email, nickname, created_at) VALUES (?, ?, ?, ?, ?)",
		contact.ID, contact.UserID, contact.FriendEmail, contact.Nickname, contact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add contact: %w", err)
	}

	return nil
}

// ListContacts returns the user's contacts in insertion order.
func (s *SQLiteStore) ListContacts(ctx context.Context, userID string) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, friend_email, nickname, created_at FROM contacts WHERE user_id = ? ORDER BY created_at, id",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.FriendEmail, &c.Nickname, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return contacts, nil
}

// UpdateContactNickname sets a contact's nickname. An empty nickname falls
// back to the email local part at display time.
func (s *SQLiteStore) UpdateContactNickname(ctx context.Context, userID, contactID, nickname string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE contacts SET nickname = ? WHERE id = ? AND user_id = ?",
		nickname, contactID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("contact not found: %s", contactID)
	}

	return nil
}

// DeleteContact removes one of the user's contacts.
func (s *SQLiteStore) DeleteContact(ctx context.Context, userID, contactID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM contacts WHERE id = ? AND user_id = ?",
		contactID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("contact not found: %s", contactID)
	}

	return nil
}
