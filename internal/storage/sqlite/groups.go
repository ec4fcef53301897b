package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartbill/smartbill/internal/models"
)

// CreateContactGroup persists a group and its members in one transaction.
func (s *SQLiteStore) CreateContactGroup(ctx context.Context, group *models.ContactGroup) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO contact_groups (id, user_id, name, created_at) VALUES (?, ?, ?, ?)",
		group.ID, group.UserID, group.Name, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i, m := range group.Members {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO contact_group_members (group_id, contact_id, email, nickname, is_creator, position) VALUES (?, ?, ?, ?, ?, ?)",
			group.ID, m.ContactID, m.Email, m.Nickname, m.IsCreator, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetContactGroup retrieves one of the user's groups with its members.
func (s *SQLiteStore) GetContactGroup(ctx context.Context, userID, groupID string) (*models.ContactGroup, error) {
	group := &models.ContactGroup{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, created_at FROM contact_groups WHERE id = ? AND user_id = ?",
		groupID, userID,
	).Scan(&group.ID, &group.UserID, &group.Name, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group not found: %s", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if group.Members, err = s.groupMembers(ctx, groupID); err != nil {
		return nil, err
	}

	return group, nil
}

// ListContactGroups returns the user's groups with members, oldest first.
func (s *SQLiteStore) ListContactGroups(ctx context.Context, userID string) ([]models.ContactGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name, created_at FROM contact_groups WHERE user_id = ? ORDER BY created_at, id",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []models.ContactGroup
	for rows.Next() {
		var g models.ContactGroup
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	for i := range groups {
		if groups[i].Members, err = s.groupMembers(ctx, groups[i].ID); err != nil {
			return nil, err
		}
	}

	return groups, nil
}

// DeleteContactGroup removes one of the user's groups; members cascade.
func (s *SQLiteStore) DeleteContactGroup(ctx context.Context, userID, groupID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM contact_groups WHERE id = ? AND user_id = ?",
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group not found: %s", groupID)
	}

	return nil
}

func (s *SQLiteStore) groupMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT contact_id, email, nickname, is_creator FROM contact_group_members WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.ContactID, &m.Email, &m.Nickname, &m.IsCreator); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return members, nil
}
