package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartbill/smartbill/internal/models"
)

// UpsertSplits creates or replaces split records for an expense in one
// transaction. Records are keyed by (expense_id, contact_id): re-sending a
// bill updates the amount and item detail in place instead of inserting a
// second row. The email_sent flag of an existing row is preserved.
func (s *SQLiteStore) UpsertSplits(ctx context.Context, expenseID string, drafts []models.SplitDraft) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, d := range drafts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO splits (id, expense_id, contact_id, participant_name, participant_email, amount_owed, items_detail, email_sent, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
			 ON CONFLICT (expense_id, contact_id) DO UPDATE SET
			     participant_name = excluded.participant_name,
			     participant_email = excluded.participant_email,
			     amount_owed = excluded.amount_owed,
			     items_detail = excluded.items_detail`,
			uuid.New().String(),
			expenseID,
			d.ContactID,
			d.Name,
			d.Email,
			d.AmountOwed.String(),
			string(d.EncodeItems()),
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListSplits returns the split records for an expense in insertion order.
func (s *SQLiteStore) ListSplits(ctx context.Context, expenseID string) ([]models.Split, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, expense_id, contact_id, participant_name, participant_email, amount_owed, items_detail, email_sent, created_at
		 FROM splits WHERE expense_id = ? ORDER BY created_at, id`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer rows.Close()

	var splits []models.Split
	for rows.Next() {
		var sp models.Split
		var amount, detail string
		if err := rows.Scan(
			&sp.ID,
			&sp.ExpenseID,
			&sp.ContactID,
			&sp.ParticipantName,
			&sp.ParticipantEmail,
			&amount,
			&detail,
			&sp.EmailSent,
			&sp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		if sp.AmountOwed, err = parseAmount(amount); err != nil {
			return nil, err
		}
		sp.ItemsDetail = []byte(detail)
		splits = append(splits, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return splits, nil
}

// MarkBillSent flags a split's bill email as delivered.
func (s *SQLiteStore) MarkBillSent(ctx context.Context, splitID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE splits SET email_sent = 1 WHERE id = ?",
		splitID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark bill sent: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("split not found: %s", splitID)
	}

	return nil
}
