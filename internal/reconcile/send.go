package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smartbill/smartbill/internal/models"
)

// ErrNoSelection is returned when SendBills is invoked with nothing selected.
var ErrNoSelection = errors.New("no contacts selected")

// SplitAPI is the remote boundary the send operation drives. The service
// layer implements it against local storage; tests use fakes.
type SplitAPI interface {
	// UpsertSplits creates or replaces split records for an expense. It must
	// be an upsert keyed by (expense, contact) so re-invocation never
	// duplicates records.
	UpsertSplits(ctx context.Context, expenseID string, drafts []models.SplitDraft) error

	// ListSplits returns the authoritative split records for an expense,
	// including server-generated IDs.
	ListSplits(ctx context.Context, expenseID string) ([]models.Split, error)

	// SendBills dispatches bills for the given split IDs.
	SendBills(ctx context.Context, expenseID string, splitIDs []string) error
}

// SendBills runs the two-phase send for the current selection:
//
//  1. Upsert split records for every selected contact.
//  2. Re-fetch the authoritative records (phase 1's response may not carry
//     generated IDs).
//  3. Filter the fetched records to the selected contacts.
//  4. Send bills for exactly those split IDs.
//
// A phase-1 failure aborts before anything is sent. A later failure leaves
// persisted-but-unsent splits behind; because phase 1 is an upsert, the whole
// operation is safe to re-run. The selection is never mutated on failure so
// the caller can retry as-is. Context cancellation between phases stops the
// remaining phases without cleanup.
func (r *Reconciliation) SendBills(ctx context.Context, api SplitAPI) error {
	if len(r.selected) == 0 {
		return ErrNoSelection
	}

	drafts := make([]models.SplitDraft, 0, len(r.selected))
	for _, contactID := range r.selected {
		contact := r.byID[contactID]
		share := r.shares[contactID]
		drafts = append(drafts, models.SplitDraft{
			ContactID:  contact.ID,
			Name:       contact.DisplayName(),
			Email:      contact.FriendEmail,
			AmountOwed: share.Amount.Round(2),
			Items:      share.Items,
		})
	}

	if err := api.UpsertSplits(ctx, r.expense.ID, drafts); err != nil {
		return fmt.Errorf("create splits: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	splits, err := api.ListSplits(ctx, r.expense.ID)
	if err != nil {
		return fmt.Errorf("list splits: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	selected := make(map[string]struct{}, len(r.selected))
	for _, id := range r.selected {
		selected[id] = struct{}{}
	}
	var splitIDs []string
	for _, s := range splits {
		if _, ok := selected[s.ContactID]; ok {
			splitIDs = append(splitIDs, s.ID)
		}
	}

	if err := api.SendBills(ctx, r.expense.ID, splitIDs); err != nil {
		return fmt.Errorf("send bills: %w", err)
	}

	slog.Info("Bills sent",
		"expense_id", r.expense.ID,
		"split_count", len(splitIDs),
	)
	return nil
}
