package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartbill/smartbill/internal/models"
)

// CreateExpense persists an expense along with its line items and any
// voice-derived participant claims.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, store_name, total_amount, subtotal, tax_amount, raw_text, transcript, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		expense.UserID,
		expense.StoreName,
		expense.TotalAmount.String(),
		expense.Subtotal.String(),
		expense.TaxAmount.String(),
		expense.RawText,
		expense.Transcript,
		expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range expense.Items {
		item := &expense.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.Quantity <= 0 {
			item.Quantity = 1
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_items (id, expense_id, name, price, quantity, position) VALUES (?, ?, ?, ?, ?, ?)",
			item.ID, expense.ID, item.Name, item.Price.String(), item.Quantity, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense item: %w", err)
		}
	}

	for i, p := range expense.Participants {
		items, err := json.Marshal(p.Items)
		if err != nil {
			return fmt.Errorf("failed to encode participant items: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, name, items, position) VALUES (?, ?, ?, ?)",
			expense.ID, p.Name, string(items), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetExpense retrieves one of the user's expenses, including items and
// participants. Returns an error if the expense does not exist or belongs
// to another user.
func (s *SQLiteStore) GetExpense(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	expense := &models.Expense{}
	var total, subtotal, tax string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, store_name, total_amount, subtotal, tax_amount, raw_text, transcript, created_at
		 FROM expenses WHERE id = ? AND user_id = ?`,
		expenseID, userID,
	).Scan(
		&expense.ID,
		&expense.UserID,
		&expense.StoreName,
		&total,
		&subtotal,
		&tax,
		&expense.RawText,
		&expense.Transcript,
		&expense.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense not found: %s", expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if expense.TotalAmount, err = parseAmount(total); err != nil {
		return nil, err
	}
	if expense.Subtotal, err = parseAmount(subtotal); err != nil {
		return nil, err
	}
	if expense.TaxAmount, err = parseAmount(tax); err != nil {
		return nil, err
	}

	if expense.Items, err = s.expenseItems(ctx, expenseID); err != nil {
		return nil, err
	}
	if expense.Participants, err = s.expenseParticipants(ctx, expenseID); err != nil {
		return nil, err
	}

	return expense, nil
}

// ListExpenses returns the user's expenses newest first, items and
// participants included.
func (s *SQLiteStore) ListExpenses(ctx context.Context, userID string, limit, offset int) ([]*models.Expense, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM expenses WHERE user_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expense id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	expenses := make([]*models.Expense, 0, len(ids))
	for _, id := range ids {
		expense, err := s.GetExpense(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}

	return expenses, nil
}

// DeleteExpense removes one of the user's expenses. Items, participants and
// splits go with it via foreign key cascades.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND user_id = ?",
		expenseID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense not found: %s", expenseID)
	}

	return nil
}

func (s *SQLiteStore) expenseItems(ctx context.Context, expenseID string) ([]models.ExpenseItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, price, quantity FROM expense_items WHERE expense_id = ? ORDER BY position",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense items: %w", err)
	}
	defer rows.Close()

	var items []models.ExpenseItem
	for rows.Next() {
		var item models.ExpenseItem
		var price string
		if err := rows.Scan(&item.ID, &item.Name, &price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan expense item: %w", err)
		}
		if item.Price, err = parseAmount(price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense items: %w", err)
	}

	return items, nil
}

func (s *SQLiteStore) expenseParticipants(ctx context.Context, expenseID string) ([]models.ExpenseParticipant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, items FROM expense_participants WHERE expense_id = ? ORDER BY position",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense participants: %w", err)
	}
	defer rows.Close()

	var participants []models.ExpenseParticipant
	for rows.Next() {
		var p models.ExpenseParticipant
		var items string
		if err := rows.Scan(&p.Name, &items); err != nil {
			return nil, fmt.Errorf("failed to scan expense participant: %w", err)
		}
		if items != "" {
			if err := json.Unmarshal([]byte(items), &p.Items); err != nil {
				return nil, fmt.Errorf("failed to decode participant items: %w", err)
			}
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense participants: %w", err)
	}

	return participants, nil
}
