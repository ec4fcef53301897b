package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/smartbill/smartbill/internal/engine"
	"github.com/smartbill/smartbill/internal/mail"
	"github.com/smartbill/smartbill/internal/middleware"
	"github.com/smartbill/smartbill/internal/models"
	"github.com/smartbill/smartbill/internal/reconcile"
	"github.com/smartbill/smartbill/internal/storage"
)

// ParticipantShare is one resolved participant's view of the expense.
type ParticipantShare struct {
	Key         string          `json:"key"`
	DisplayName string          `json:"display_name"`
	Items       []string        `json:"items"`
	Total       decimal.Decimal `json:"total"`
}

// ItemDetailPayload explains one line of a contact's share.
type ItemDetailPayload struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	SharedWith int             `json:"shared_with"`
	PerPerson  decimal.Decimal `json:"per_person"`
}

// ContactShare is the reconciled billing view for one relevant contact.
type ContactShare struct {
	ContactID   string              `json:"contact_id"`
	DisplayName string              `json:"display_name"`
	Email       string              `json:"email"`
	Amount      decimal.Decimal     `json:"amount"`
	Items       []string            `json:"items"`
	Details     []ItemDetailPayload `json:"details"`
	Selected    bool                `json:"selected"`
}

// SplitPayload is the wire form of a persisted split record.
type SplitPayload struct {
	ID               string          `json:"id"`
	ExpenseID        string          `json:"expense_id"`
	ContactID        string          `json:"contact_id"`
	ParticipantName  string          `json:"participant_name"`
	ParticipantEmail string          `json:"participant_email"`
	AmountOwed       decimal.Decimal `json:"amount_owed"`
	Items            []string        `json:"items"`
	EmailSent        bool            `json:"email_sent"`
	CreatedAt        int64           `json:"created_at"`
}

// PreviewSplitRequest computes the split view for an expense. GroupID
// optionally names the contact group to resolve participants against when
// the expense carries no transcript claims.
type PreviewSplitRequest struct {
	ExpenseID string `json:"expense_id"`
	GroupID   string `json:"group_id,omitempty"`
}

// PreviewSplitResponse is the resolved participants plus the reconciled
// per-contact billing view.
type PreviewSplitResponse struct {
	Participants []ParticipantShare `json:"participants"`
	Contacts     []ContactShare     `json:"contacts"`
}

// SendBillsRequest persists splits for the chosen contacts and emails them.
type SendBillsRequest struct {
	ExpenseID  string   `json:"expense_id"`
	ContactIDs []string `json:"contact_ids"`
}

// SendBillsResponse is the authoritative split records after sending.
type SendBillsResponse struct {
	Splits []SplitPayload `json:"splits"`
}

// ListSplitsRequest fetches the split records for an expense.
type ListSplitsRequest struct {
	ExpenseID string `json:"expense_id"`
}

// ListSplitsResponse is the persisted split records.
type ListSplitsResponse struct {
	Splits []SplitPayload `json:"splits"`
}

// SplitService computes split previews, persists split records and sends
// bill emails.
type SplitService struct {
	store  storage.Store
	mailer mail.Mailer
}

// NewSplitService creates a SplitService.
func NewSplitService(store storage.Store, mailer mail.Mailer) *SplitService {
	return &SplitService{store: store, mailer: mailer}
}

// PreviewSplit resolves participants for an expense and reconciles them
// against the user's contacts. Nothing is persisted.
func (s *SplitService) PreviewSplit(ctx context.Context, req *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	expense, err := s.store.GetExpense(ctx, userID, req.Msg.ExpenseID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	atoms := expenseAtoms(expense)
	src := engine.Source{Transcript: transcriptParticipants(expense)}
	if req.Msg.GroupID != "" {
		group, err := s.store.GetContactGroup(ctx, userID, req.Msg.GroupID)
		if err != nil {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		src.Group = group.Members
	}

	resolution := engine.Resolve(atoms, src, engine.Session{Email: middleware.GetEmail(ctx)})
	shares := engine.ComputeShares(atoms, resolution.Assignments())

	participants := make([]ParticipantShare, 0, len(shares))
	display := make(map[string]string)
	for _, p := range resolution.Participants() {
		display[p.Key] = p.DisplayName
	}
	for _, share := range shares {
		var names []string
		for _, item := range share.PerItem {
			names = append(names, atoms[item.Index].Name)
		}
		participants = append(participants, ParticipantShare{
			Key:         share.Key,
			DisplayName: display[share.Key],
			Items:       names,
			Total:       share.Total,
		})
	}

	rec, err := s.reconciliation(ctx, userID, expense)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&PreviewSplitResponse{
		Participants: participants,
		Contacts:     contactShares(rec),
	}), nil
}

// SendBills persists split records for the chosen contacts and emails each
// one their bill. The operation is idempotent: re-running never duplicates
// split records and never re-emails a bill that already went out.
func (s *SplitService) SendBills(ctx context.Context, req *connect.Request[SendBillsRequest]) (*connect.Response[SendBillsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	expense, err := s.store.GetExpense(ctx, userID, req.Msg.ExpenseID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	rec, err := s.reconciliation(ctx, userID, expense)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	// Shape the selection to exactly the requested contacts. Toggle ignores
	// IDs that are not relevant to this expense.
	requested := make(map[string]struct{}, len(req.Msg.ContactIDs))
	for _, id := range req.Msg.ContactIDs {
		requested[id] = struct{}{}
	}
	for _, id := range rec.Selected() {
		if _, ok := requested[id]; !ok {
			rec.Toggle(id)
		}
	}
	selected := make(map[string]struct{})
	for _, id := range rec.Selected() {
		selected[id] = struct{}{}
	}
	for _, id := range req.Msg.ContactIDs {
		if _, ok := selected[id]; !ok {
			rec.Toggle(id)
		}
	}

	api := &storeSplitAPI{store: s.store, mailer: s.mailer, storeName: expense.StoreName}
	if err := rec.SendBills(ctx, api); err != nil {
		if errors.Is(err, reconcile.ErrNoSelection) {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("no matching contacts to bill"))
		}
		slog.Error("SendBills failed", "expense_id", expense.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	splits, err := s.store.ListSplits(ctx, expense.ID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&SendBillsResponse{Splits: splitPayloads(splits)}), nil
}

// ListSplits returns the persisted split records for an expense.
func (s *SplitService) ListSplits(ctx context.Context, req *connect.Request[ListSplitsRequest]) (*connect.Response[ListSplitsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	// Ownership check before exposing split records.
	if _, err := s.store.GetExpense(ctx, userID, req.Msg.ExpenseID); err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	splits, err := s.store.ListSplits(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&ListSplitsResponse{Splits: splitPayloads(splits)}), nil
}

func (s *SplitService) reconciliation(ctx context.Context, userID string, expense *models.Expense) (*reconcile.Reconciliation, error) {
	contacts, err := s.store.ListContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	existing, err := s.store.ListSplits(ctx, expense.ID)
	if err != nil {
		return nil, fmt.Errorf("list splits: %w", err)
	}
	return reconcile.New(expense, contacts, existing), nil
}

// storeSplitAPI implements reconcile.SplitAPI against local storage and the
// mailer. Bills already marked sent are skipped on re-send.
type storeSplitAPI struct {
	store     storage.Store
	mailer    mail.Mailer
	storeName string
}

func (a *storeSplitAPI) UpsertSplits(ctx context.Context, expenseID string, drafts []models.SplitDraft) error {
	return a.store.UpsertSplits(ctx, expenseID, drafts)
}

func (a *storeSplitAPI) ListSplits(ctx context.Context, expenseID string) ([]models.Split, error) {
	return a.store.ListSplits(ctx, expenseID)
}

func (a *storeSplitAPI) SendBills(ctx context.Context, expenseID string, splitIDs []string) error {
	splits, err := a.store.ListSplits(ctx, expenseID)
	if err != nil {
		return err
	}
	byID := make(map[string]models.Split, len(splits))
	for _, sp := range splits {
		byID[sp.ID] = sp
	}

	for _, id := range splitIDs {
		sp, ok := byID[id]
		if !ok {
			return fmt.Errorf("split not found: %s", id)
		}
		if sp.EmailSent {
			continue
		}

		err := a.mailer.SendBill(ctx, mail.Bill{
			To:              sp.ParticipantEmail,
			ParticipantName: sp.ParticipantName,
			StoreName:       a.storeName,
			Amount:          sp.AmountOwed,
			Items:           sp.Items(),
		})
		if err != nil {
			return fmt.Errorf("send bill for split %s: %w", id, err)
		}

		if err := a.store.MarkBillSent(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

func expenseAtoms(expense *models.Expense) []engine.AtomicItem {
	atoms := make([]engine.AtomicItem, len(expense.Items))
	for i, item := range expense.Items {
		atoms[i] = engine.AtomicItem{Name: item.Name, Price: item.Price, SourceIndex: i}
	}
	return atoms
}

func transcriptParticipants(expense *models.Expense) []engine.TranscriptParticipant {
	out := make([]engine.TranscriptParticipant, len(expense.Participants))
	for i, p := range expense.Participants {
		out[i] = engine.TranscriptParticipant{Name: p.Name, Items: p.Items}
	}
	return out
}

func contactShares(rec *reconcile.Reconciliation) []ContactShare {
	selected := make(map[string]struct{})
	for _, id := range rec.Selected() {
		selected[id] = struct{}{}
	}

	var out []ContactShare
	for _, contact := range rec.Relevant() {
		cs := ContactShare{
			ContactID:   contact.ID,
			DisplayName: contact.DisplayName(),
			Email:       contact.FriendEmail,
		}
		if share, ok := rec.Share(contact.ID); ok {
			cs.Amount = share.Amount
			cs.Items = share.Items
			for _, d := range share.Details {
				cs.Details = append(cs.Details, ItemDetailPayload{
					Name:       d.Name,
					Price:      d.Price,
					SharedWith: d.SharedWith,
					PerPerson:  d.PerPerson,
				})
			}
		}
		_, cs.Selected = selected[contact.ID]
		out = append(out, cs)
	}
	return out
}

func splitPayloads(splits []models.Split) []SplitPayload {
	out := make([]SplitPayload, len(splits))
	for i, sp := range splits {
		out[i] = SplitPayload{
			ID:               sp.ID,
			ExpenseID:        sp.ExpenseID,
			ContactID:        sp.ContactID,
			ParticipantName:  sp.ParticipantName,
			ParticipantEmail: sp.ParticipantEmail,
			AmountOwed:       sp.AmountOwed,
			Items:            sp.Items(),
			EmailSent:        sp.EmailSent,
			CreatedAt:        sp.CreatedAt,
		}
	}
	return out
}
