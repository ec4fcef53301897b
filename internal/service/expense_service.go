package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/smartbill/smartbill/internal/ai"
	"github.com/smartbill/smartbill/internal/engine"
	"github.com/smartbill/smartbill/internal/middleware"
	"github.com/smartbill/smartbill/internal/models"
	"github.com/smartbill/smartbill/internal/storage"
)

// maxItemQuantity bounds the unit expansion a single line item may request.
const maxItemQuantity = 500

// ReceiptParser extracts structured line items from a receipt photo.
type ReceiptParser interface {
	ParseReceipt(ctx context.Context, imageData []byte, mimeType string) (*ai.Receipt, error)
}

// TranscriptParser extracts participant claims from a voice narration.
type TranscriptParser interface {
	ParseTranscript(ctx context.Context, transcript string, itemNames, memberNames []string) ([]models.ExpenseParticipant, error)
}

// ItemPayload is the wire form of a line item. Price is per unit.
type ItemPayload struct {
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// ParticipantPayload is the wire form of a voice-derived claim.
type ParticipantPayload struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// ExpensePayload is the wire form of a stored expense. Items are always
// quantity-1 entries: multi-quantity receipt lines are expanded before
// persistence.
type ExpensePayload struct {
	ID           string               `json:"id"`
	StoreName    string               `json:"store_name"`
	TotalAmount  decimal.Decimal      `json:"total_amount"`
	Subtotal     decimal.Decimal      `json:"subtotal"`
	TaxAmount    decimal.Decimal      `json:"tax_amount"`
	Transcript   string               `json:"transcript"`
	Items        []ItemPayload        `json:"items"`
	Participants []ParticipantPayload `json:"participants"`
	CreatedAt    int64                `json:"created_at"`
}

// ParseReceiptRequest runs OCR on a receipt photo.
type ParseReceiptRequest struct {
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// ParseReceiptResponse is the OCR result, before the user confirms it.
type ParseReceiptResponse struct {
	StoreName string          `json:"store_name"`
	Total     decimal.Decimal `json:"total"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	RawText   string          `json:"raw_text"`
	Items     []ItemPayload   `json:"items"`
}

// CreateExpenseRequest persists a confirmed receipt, optionally with a voice
// narration and the contact group it belongs to.
type CreateExpenseRequest struct {
	StoreName  string          `json:"store_name"`
	Total      decimal.Decimal `json:"total"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	RawText    string          `json:"raw_text"`
	Transcript string          `json:"transcript"`
	GroupID    string          `json:"group_id,omitempty"`
	Items      []ItemPayload   `json:"items"`
}

// GetExpenseRequest fetches one expense.
type GetExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

// ListExpensesRequest pages through the user's expenses.
type ListExpensesRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListExpensesResponse is a page of expenses, newest first.
type ListExpensesResponse struct {
	Expenses []ExpensePayload `json:"expenses"`
}

// DeleteExpenseRequest removes one expense.
type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

// DeleteExpenseResponse is empty.
type DeleteExpenseResponse struct{}

// ExpenseService handles receipt upload and expense CRUD.
type ExpenseService struct {
	store       storage.Store
	receipts    ReceiptParser
	transcripts TranscriptParser
}

// NewExpenseService creates an ExpenseService. Either parser may be nil when
// no AI backend is configured; the corresponding behavior degrades.
func NewExpenseService(store storage.Store, receipts ReceiptParser, transcripts TranscriptParser) *ExpenseService {
	return &ExpenseService{
		store:       store,
		receipts:    receipts,
		transcripts: transcripts,
	}
}

// ParseReceipt runs OCR on a receipt photo and returns the extracted items
// for the user to confirm before anything is stored.
func (s *ExpenseService) ParseReceipt(ctx context.Context, req *connect.Request[ParseReceiptRequest]) (*connect.Response[ParseReceiptResponse], error) {
	if middleware.GetUserID(ctx) == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	if s.receipts == nil {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("receipt OCR is not configured"))
	}

	imageData, err := base64.StdEncoding.DecodeString(req.Msg.ImageBase64)
	if err != nil || len(imageData) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("image_base64 must be valid base64 image data"))
	}

	mimeType := req.Msg.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	receipt, err := s.receipts.ParseReceipt(ctx, imageData, mimeType)
	if err != nil {
		slog.Error("ParseReceipt failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	items := make([]ItemPayload, len(receipt.Items))
	for i, item := range receipt.Items {
		items[i] = ItemPayload{Name: item.Name, Price: item.Price, Quantity: item.Quantity}
	}

	return connect.NewResponse(&ParseReceiptResponse{
		StoreName: receipt.StoreName,
		Total:     receipt.Total,
		Subtotal:  receipt.Subtotal,
		Tax:       receipt.Tax,
		RawText:   receipt.RawText,
		Items:     items,
	}), nil
}

// CreateExpense persists a confirmed receipt. Multi-quantity lines are
// expanded into unit-priced entries before storage, and the transcript (if
// any) is parsed against the expanded names. A transcript that cannot be
// parsed leaves the expense unassigned instead of failing the upload.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpensePayload], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	if len(req.Msg.Items) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("at least one item required"))
	}

	lines := make([]engine.LineItem, len(req.Msg.Items))
	for i, item := range req.Msg.Items {
		if item.Name == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("item name required"))
		}
		if item.Price.IsNegative() {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("item price must not be negative"))
		}
		if item.Quantity > maxItemQuantity {
			return nil, connect.NewError(connect.CodeInvalidArgument,
				fmt.Errorf("item quantity must not exceed %d", maxItemQuantity))
		}
		lines[i] = engine.LineItem{Name: item.Name, UnitPrice: item.Price, Quantity: item.Quantity}
	}
	atoms := engine.Expand(lines)

	storedItems := make([]models.ExpenseItem, len(atoms))
	itemNames := make([]string, len(atoms))
	itemsSum := decimal.Zero
	for i, atom := range atoms {
		storedItems[i] = models.ExpenseItem{Name: atom.Name, Price: atom.Price, Quantity: 1}
		itemNames[i] = atom.Name
		itemsSum = itemsSum.Add(atom.Price)
	}

	total := req.Msg.Total
	if total.IsZero() {
		total = itemsSum.Add(req.Msg.Tax)
	}

	participants := s.parseClaims(ctx, req.Msg.Transcript, req.Msg.GroupID, userID, itemNames)

	expense := &models.Expense{
		UserID:       userID,
		StoreName:    req.Msg.StoreName,
		TotalAmount:  total,
		Subtotal:     req.Msg.Subtotal,
		TaxAmount:    req.Msg.Tax,
		RawText:      req.Msg.RawText,
		Transcript:   req.Msg.Transcript,
		Items:        storedItems,
		Participants: participants,
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Expense created",
		"expense_id", expense.ID,
		"items", len(expense.Items),
		"participants", len(expense.Participants),
	)

	return connect.NewResponse(expensePayload(expense)), nil
}

// parseClaims runs transcript parsing, looking up group member names when a
// group is attached. All failures degrade to an unassigned expense.
func (s *ExpenseService) parseClaims(ctx context.Context, transcript, groupID, userID string, itemNames []string) []models.ExpenseParticipant {
	if transcript == "" || s.transcripts == nil {
		return nil
	}

	var memberNames []string
	if groupID != "" {
		group, err := s.store.GetContactGroup(ctx, userID, groupID)
		if err != nil {
			slog.Warn("CreateExpense: group lookup failed, parsing without member names", "group_id", groupID, "error", err)
		} else {
			for _, m := range group.Members {
				memberNames = append(memberNames, m.DisplayName())
			}
		}
	}

	participants, err := s.transcripts.ParseTranscript(ctx, transcript, itemNames, memberNames)
	if err != nil {
		slog.Warn("CreateExpense: transcript parsing failed, storing expense unassigned", "error", err)
		return nil
	}
	return participants
}

// GetExpense fetches one of the user's expenses.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[ExpensePayload], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	expense, err := s.store.GetExpense(ctx, userID, req.Msg.ExpenseID)
	if err != nil {
		slog.Warn("GetExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	return connect.NewResponse(expensePayload(expense)), nil
}

// ListExpenses pages through the user's expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	expenses, err := s.store.ListExpenses(ctx, userID, req.Msg.Limit, req.Msg.Offset)
	if err != nil {
		slog.Error("ListExpenses failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	payloads := make([]ExpensePayload, len(expenses))
	for i, e := range expenses {
		payloads[i] = *expensePayload(e)
	}

	return connect.NewResponse(&ListExpensesResponse{Expenses: payloads}), nil
}

// DeleteExpense removes one of the user's expenses along with its splits.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	if err := s.store.DeleteExpense(ctx, userID, req.Msg.ExpenseID); err != nil {
		slog.Warn("DeleteExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	return connect.NewResponse(&DeleteExpenseResponse{}), nil
}

func expensePayload(e *models.Expense) *ExpensePayload {
	items := make([]ItemPayload, len(e.Items))
	for i, item := range e.Items {
		items[i] = ItemPayload{ID: item.ID, Name: item.Name, Price: item.Price, Quantity: item.Quantity}
	}

	participants := make([]ParticipantPayload, len(e.Participants))
	for i, p := range e.Participants {
		participants[i] = ParticipantPayload{Name: p.Name, Items: p.Items}
	}

	return &ExpensePayload{
		ID:           e.ID,
		StoreName:    e.StoreName,
		TotalAmount:  e.TotalAmount,
		Subtotal:     e.Subtotal,
		TaxAmount:    e.TaxAmount,
		Transcript:   e.Transcript,
		Items:        items,
		Participants: participants,
		CreatedAt:    e.CreatedAt,
	}
}
