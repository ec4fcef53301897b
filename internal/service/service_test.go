package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/smartbill/smartbill/internal/auth"
	"github.com/smartbill/smartbill/internal/mail"
	"github.com/smartbill/smartbill/internal/middleware"
	"github.com/smartbill/smartbill/internal/models"
	"github.com/smartbill/smartbill/internal/rpc"
	"github.com/smartbill/smartbill/internal/storage/sqlite"
)

// fakeTranscriptParser returns canned claims without calling any AI backend.
type fakeTranscriptParser struct {
	claims []models.ExpenseParticipant
	err    error
}

func (f *fakeTranscriptParser) ParseTranscript(ctx context.Context, transcript string, itemNames, memberNames []string) ([]models.ExpenseParticipant, error) {
	return f.claims, f.err
}

// recordingMailer captures sent bills.
type recordingMailer struct {
	mu    sync.Mutex
	bills []mail.Bill
	err   error
}

func (m *recordingMailer) SendBill(ctx context.Context, bill mail.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.bills = append(m.bills, bill)
	return nil
}

func (m *recordingMailer) sent() []mail.Bill {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Bill, len(m.bills))
	copy(out, m.bills)
	return out
}

type testServer struct {
	url     string
	mailer  *recordingMailer
	parser  *fakeTranscriptParser
	token   string
	baseCtx context.Context
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "smartbill-svc-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret-0123456789abcdef", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)
	mailer := &recordingMailer{}
	parser := &fakeTranscriptParser{}

	mux := http.NewServeMux()
	RegisterRoutes(mux,
		Services{
			Auth:     NewAuthService(authenticator, jwtManager, time.Hour),
			Expenses: NewExpenseService(store, nil, parser),
			Contacts: NewContactService(store),
			Splits:   NewSplitService(store, mailer),
		},
		nil,
		[]connect.HandlerOption{connect.WithInterceptors(middleware.RequireAuth(jwtManager))},
	)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ts := &testServer{url: server.URL, mailer: mailer, parser: parser, baseCtx: context.Background()}

	// Register the acting user: bob@x.com.
	registerClient := rpc.NewClient[RegisterRequest, AuthResponse](http.DefaultClient, server.URL, rpc.AuthRegister)
	resp, err := registerClient.CallUnary(ts.baseCtx, connect.NewRequest(&RegisterRequest{
		Email:    "bob@x.com",
		Password: "hunter2hunter2",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	ts.token = resp.Msg.Token

	return ts
}

// call invokes one procedure with the session token attached.
func call[Req, Res any](t *testing.T, ts *testServer, procedure string, msg *Req) (*Res, error) {
	t.Helper()
	client := rpc.NewClient[Req, Res](http.DefaultClient, ts.url, procedure)
	req := connect.NewRequest(msg)
	if ts.token != "" {
		req.Header().Set("Authorization", "Bearer "+ts.token)
	}
	resp, err := client.CallUnary(ts.baseCtx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func mustCall[Req, Res any](t *testing.T, ts *testServer, procedure string, msg *Req) *Res {
	t.Helper()
	resp, err := call[Req, Res](t, ts, procedure, msg)
	if err != nil {
		t.Fatalf("%s failed: %v", procedure, err)
	}
	return resp
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestAuthFlow(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("login returns a working token", func(t *testing.T) {
		resp := mustCall[LoginRequest, AuthResponse](t, ts, rpc.AuthLogin, &LoginRequest{
			Email:    "bob@x.com",
			Password: "hunter2hunter2",
		})
		if resp.Token == "" {
			t.Error("expected token")
		}
		if resp.DisplayName != "bob" {
			t.Errorf("expected display name to default to email local part, got %q", resp.DisplayName)
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		_, err := call[LoginRequest, AuthResponse](t, ts, rpc.AuthLogin, &LoginRequest{
			Email:    "bob@x.com",
			Password: "wrong-password",
		})
		if connect.CodeOf(err) != connect.CodeUnauthenticated {
			t.Errorf("expected unauthenticated, got %v", err)
		}
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := call[RegisterRequest, AuthResponse](t, ts, rpc.AuthRegister, &RegisterRequest{
			Email:    "bob@x.com",
			Password: "hunter2hunter2",
		})
		if connect.CodeOf(err) != connect.CodeAlreadyExists {
			t.Errorf("expected already exists, got %v", err)
		}
	})

	t.Run("protected endpoint requires token", func(t *testing.T) {
		anon := &testServer{url: ts.url, baseCtx: ts.baseCtx}
		_, err := call[ListContactsRequest, ListContactsResponse](t, anon, rpc.ContactList, &ListContactsRequest{})
		if connect.CodeOf(err) != connect.CodeUnauthenticated {
			t.Errorf("expected unauthenticated, got %v", err)
		}
	})
}

func TestCreateExpenseExpandsQuantities(t *testing.T) {
	ts := setupTestServer(t)
	ts.parser.claims = []models.ExpenseParticipant{
		{Name: "alice", Items: []string{"Pizza"}},
	}

	created := mustCall[CreateExpenseRequest, ExpensePayload](t, ts, rpc.ExpenseCreate, &CreateExpenseRequest{
		StoreName:  "Corner Deli",
		Total:      dec(t, "19.00"),
		Transcript: "alice had the pizza",
		Items: []ItemPayload{
			{Name: "Pizza", Price: dec(t, "15.00"), Quantity: 1},
			{Name: "Soda", Price: dec(t, "2.00"), Quantity: 2},
		},
	})

	if len(created.Items) != 3 {
		t.Fatalf("expected 3 expanded items, got %d", len(created.Items))
	}
	wantNames := []string{"Pizza", "Soda (1/2)", "Soda (2/2)"}
	for i, want := range wantNames {
		if created.Items[i].Name != want {
			t.Errorf("item %d: got %q, want %q", i, created.Items[i].Name, want)
		}
		if created.Items[i].Quantity != 1 {
			t.Errorf("item %d: expected quantity 1 after expansion", i)
		}
	}
	if len(created.Participants) != 1 || created.Participants[0].Name != "alice" {
		t.Errorf("expected transcript claims to be stored, got %+v", created.Participants)
	}

	got := mustCall[GetExpenseRequest, ExpensePayload](t, ts, rpc.ExpenseGet, &GetExpenseRequest{ExpenseID: created.ID})
	if !got.TotalAmount.Equal(dec(t, "19.00")) {
		t.Errorf("total mismatch: %s", got.TotalAmount)
	}
}

func TestCreateExpenseRejectsExcessiveQuantity(t *testing.T) {
	ts := setupTestServer(t)

	_, err := call[CreateExpenseRequest, ExpensePayload](t, ts, rpc.ExpenseCreate, &CreateExpenseRequest{
		Total: dec(t, "15.00"),
		Items: []ItemPayload{{Name: "Pizza", Price: dec(t, "15.00"), Quantity: 1000000000}},
	})
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestCreateExpenseDegradesOnParserFailure(t *testing.T) {
	ts := setupTestServer(t)
	ts.parser.err = context.DeadlineExceeded

	created := mustCall[CreateExpenseRequest, ExpensePayload](t, ts, rpc.ExpenseCreate, &CreateExpenseRequest{
		Total:      dec(t, "15.00"),
		Transcript: "unintelligible",
		Items:      []ItemPayload{{Name: "Pizza", Price: dec(t, "15.00"), Quantity: 1}},
	})

	if len(created.Participants) != 0 {
		t.Errorf("expected unassigned expense when parsing fails, got %+v", created.Participants)
	}
}

// seedExpense creates the standard test fixture: Pizza 15.00 plus two sodas,
// with alice claiming the pizza and one soda, and the contacts alice and zoe.
func seedExpense(t *testing.T, ts *testServer) (expenseID, aliceContactID string) {
	t.Helper()

	ts.parser.claims = []models.ExpenseParticipant{
		{Name: "alice", Items: []string{"Pizza", "Soda (1/2)"}},
		{Name: "me", Items: []string{"Soda (2/2)"}},
	}

	aliceResp := mustCall[AddContactRequest, ContactPayload](t, ts, rpc.ContactAdd, &AddContactRequest{
		Email:    "alice@x.com",
		Nickname: "Alice",
	})
	mustCall[AddContactRequest, ContactPayload](t, ts, rpc.ContactAdd, &AddContactRequest{Email: "zoe@x.com"})

	created := mustCall[CreateExpenseRequest, ExpensePayload](t, ts, rpc.ExpenseCreate, &CreateExpenseRequest{
		StoreName:  "Corner Deli",
		Total:      dec(t, "19.00"),
		Transcript: "alice had the pizza and a soda, I had the other soda",
		Items: []ItemPayload{
			{Name: "Pizza", Price: dec(t, "15.00"), Quantity: 1},
			{Name: "Soda", Price: dec(t, "2.00"), Quantity: 2},
		},
	})

	return created.ID, aliceResp.ID
}

func TestPreviewSplit(t *testing.T) {
	ts := setupTestServer(t)
	expenseID, aliceID := seedExpense(t, ts)

	preview := mustCall[PreviewSplitRequest, PreviewSplitResponse](t, ts, rpc.SplitPreview, &PreviewSplitRequest{ExpenseID: expenseID})

	// Resolution: alice and the acting user, each with their claimed items.
	if len(preview.Participants) != 2 {
		t.Fatalf("expected 2 resolved participants, got %+v", preview.Participants)
	}
	byKey := make(map[string]ParticipantShare)
	for _, p := range preview.Participants {
		byKey[p.Key] = p
	}
	if p, ok := byKey["alice"]; !ok || !p.Total.Equal(dec(t, "17.00")) {
		t.Errorf("alice participant share mismatch: %+v", byKey["alice"])
	}
	if p, ok := byKey["bob"]; !ok || p.DisplayName != "bob (You)" || !p.Total.Equal(dec(t, "2.00")) {
		t.Errorf("self participant share mismatch: %+v", byKey["bob"])
	}

	// Reconciliation: only alice is relevant; zoe never appears.
	if len(preview.Contacts) != 1 {
		t.Fatalf("expected 1 relevant contact, got %+v", preview.Contacts)
	}
	alice := preview.Contacts[0]
	if alice.ContactID != aliceID || alice.Selected {
		t.Errorf("unexpected contact state: %+v", alice)
	}
	if !alice.Amount.Equal(dec(t, "17.00")) {
		t.Errorf("expected alice to owe 17.00, got %s", alice.Amount)
	}
	if len(alice.Details) != 2 {
		t.Fatalf("expected 2 item details, got %+v", alice.Details)
	}
	if alice.Details[0].Name != "Pizza" || alice.Details[0].SharedWith != 1 {
		t.Errorf("pizza detail mismatch: %+v", alice.Details[0])
	}
}

func TestSendBillsIdempotent(t *testing.T) {
	ts := setupTestServer(t)
	expenseID, aliceID := seedExpense(t, ts)

	first := mustCall[SendBillsRequest, SendBillsResponse](t, ts, rpc.SplitSendBills, &SendBillsRequest{
		ExpenseID:  expenseID,
		ContactIDs: []string{aliceID},
	})
	if len(first.Splits) != 1 {
		t.Fatalf("expected 1 split record, got %d", len(first.Splits))
	}
	sp := first.Splits[0]
	if sp.ContactID != aliceID || !sp.EmailSent {
		t.Errorf("unexpected split: %+v", sp)
	}
	if !sp.AmountOwed.Equal(dec(t, "17.00")) {
		t.Errorf("expected amount 17.00, got %s", sp.AmountOwed)
	}

	bills := ts.mailer.sent()
	if len(bills) != 1 {
		t.Fatalf("expected 1 bill email, got %d", len(bills))
	}
	if bills[0].To != "alice@x.com" || !bills[0].Amount.Equal(dec(t, "17.00")) {
		t.Errorf("unexpected bill: %+v", bills[0])
	}

	// Re-send: still one record, no second email; the persisted amount is
	// authoritative going forward.
	second := mustCall[SendBillsRequest, SendBillsResponse](t, ts, rpc.SplitSendBills, &SendBillsRequest{
		ExpenseID:  expenseID,
		ContactIDs: []string{aliceID},
	})
	if len(second.Splits) != 1 {
		t.Fatalf("expected 1 split record after re-send, got %d", len(second.Splits))
	}
	if second.Splits[0].ID != sp.ID {
		t.Error("expected split ID to be stable across re-sends")
	}
	if got := ts.mailer.sent(); len(got) != 1 {
		t.Errorf("expected no duplicate email, got %d", len(got))
	}

	// After sending, the preview preselects alice from the persisted split.
	preview := mustCall[PreviewSplitRequest, PreviewSplitResponse](t, ts, rpc.SplitPreview, &PreviewSplitRequest{ExpenseID: expenseID})
	if len(preview.Contacts) != 1 || !preview.Contacts[0].Selected {
		t.Errorf("expected persisted split to preselect contact: %+v", preview.Contacts)
	}
}

func TestSendBillsNoSelection(t *testing.T) {
	ts := setupTestServer(t)
	expenseID, _ := seedExpense(t, ts)

	_, err := call[SendBillsRequest, SendBillsResponse](t, ts, rpc.SplitSendBills, &SendBillsRequest{
		ExpenseID:  expenseID,
		ContactIDs: []string{"no-such-contact"},
	})
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestSendBillsMailFailureIsRetryable(t *testing.T) {
	ts := setupTestServer(t)
	expenseID, aliceID := seedExpense(t, ts)

	ts.mailer.err = context.DeadlineExceeded
	_, err := call[SendBillsRequest, SendBillsResponse](t, ts, rpc.SplitSendBills, &SendBillsRequest{
		ExpenseID:  expenseID,
		ContactIDs: []string{aliceID},
	})
	if err == nil {
		t.Fatal("expected send failure")
	}

	// The split record was persisted but not marked sent; a retry delivers it.
	ts.mailer.err = nil
	resp := mustCall[SendBillsRequest, SendBillsResponse](t, ts, rpc.SplitSendBills, &SendBillsRequest{
		ExpenseID:  expenseID,
		ContactIDs: []string{aliceID},
	})
	if len(resp.Splits) != 1 || !resp.Splits[0].EmailSent {
		t.Errorf("expected retried bill to be sent: %+v", resp.Splits)
	}
	if got := ts.mailer.sent(); len(got) != 1 {
		t.Errorf("expected exactly 1 delivered email, got %d", len(got))
	}
}

func TestContactGroups(t *testing.T) {
	ts := setupTestServer(t)

	alice := mustCall[AddContactRequest, ContactPayload](t, ts, rpc.ContactAdd, &AddContactRequest{Email: "alice@x.com"})
	carol := mustCall[AddContactRequest, ContactPayload](t, ts, rpc.ContactAdd, &AddContactRequest{Email: "carol@x.com", Nickname: "Carol"})

	group := mustCall[CreateGroupRequest, GroupPayload](t, ts, rpc.ContactGroupCreate, &CreateGroupRequest{
		Name:       "Roommates",
		ContactIDs: []string{alice.ID, carol.ID},
	})
	if len(group.Members) != 3 {
		t.Fatalf("expected 2 contacts plus creator, got %d members", len(group.Members))
	}
	if !group.Members[2].IsCreator || group.Members[2].Email != "bob@x.com" {
		t.Errorf("expected creator member last: %+v", group.Members[2])
	}
	if group.Members[1].DisplayName != "Carol" {
		t.Errorf("expected nickname display name, got %q", group.Members[1].DisplayName)
	}

	groups := mustCall[ListGroupsRequest, ListGroupsResponse](t, ts, rpc.ContactGroupList, &ListGroupsRequest{})
	if len(groups.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups.Groups))
	}

	mustCall[DeleteGroupRequest, EmptyResponse](t, ts, rpc.ContactGroupDelete, &DeleteGroupRequest{GroupID: group.ID})
	groups = mustCall[ListGroupsRequest, ListGroupsResponse](t, ts, rpc.ContactGroupList, &ListGroupsRequest{})
	if len(groups.Groups) != 0 {
		t.Errorf("expected no groups after delete, got %d", len(groups.Groups))
	}
}
