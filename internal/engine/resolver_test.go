package engine

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/smartbill/smartbill/internal/models"
)

func receiptAtoms() []AtomicItem {
	return Expand([]LineItem{
		{Name: "Pizza", UnitPrice: decimal.RequireFromString("15.00"), Quantity: 1},
		{Name: "Soda", UnitPrice: decimal.RequireFromString("2.00"), Quantity: 2},
	})
}

func TestResolveTranscriptTier(t *testing.T) {
	// Atoms: ["Pizza", "Soda (1/2)", "Soda (2/2)"].
	items := receiptAtoms()
	sess := Session{Email: "bob@x.com"}

	r := Resolve(items, Source{
		Transcript: []TranscriptParticipant{
			{Name: "Alice", Items: []string{"Pizza"}},
		},
	}, sess)

	participants := r.Participants()
	if len(participants) != 2 {
		t.Fatalf("got %d participants, want 2", len(participants))
	}
	if participants[0].Key != "alice" {
		t.Errorf("participant 0 = %q, want alice", participants[0].Key)
	}
	if participants[1].Key != "bob" || participants[1].DisplayName != "bob (You)" {
		t.Errorf("participant 1 = %+v, want synthesized bob (You)", participants[1])
	}

	// Alice claimed pizza; the unclaimed sodas default to everyone, so Alice
	// holds all three indices while the synthesized You holds only the sodas.
	if got := r.Assignments().Get("alice"); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("alice indices = %v, want [0 1 2]", got)
	}
	if got := r.Assignments().Get("bob"); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("bob indices = %v, want [1 2]", got)
	}

	// Alice: 15.00 + 2.00/2 + 2.00/2; Bob: 2.00/2 + 2.00/2.
	shares := ComputeShares(items, r.Assignments())
	if !shares[0].Total.Equal(decimal.RequireFromString("17.00")) {
		t.Errorf("alice total = %s, want 17.00", shares[0].Total)
	}
	if !shares[1].Total.Equal(decimal.RequireFromString("2.00")) {
		t.Errorf("bob total = %s, want 2.00", shares[1].Total)
	}
}

func TestResolveTranscriptSelfReference(t *testing.T) {
	items := receiptAtoms()
	sess := Session{Email: "bob@x.com"}

	tests := []struct {
		name string
		self string
	}{
		{"literal me", "me"},
		{"email local part", "bob"},
		{"full email", "bob@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(items, Source{
				Transcript: []TranscriptParticipant{
					{Name: tt.self, Items: []string{"pizza"}},
					{Name: "alice", Items: []string{"soda"}},
				},
			}, sess)

			participants := r.Participants()
			if len(participants) != 2 {
				t.Fatalf("got %d participants, want 2 (no extra You)", len(participants))
			}
			if participants[0].Key != "bob" || participants[0].DisplayName != "bob (You)" {
				t.Errorf("participant 0 = %+v, want collapsed acting user", participants[0])
			}
			if got := r.Assignments().Get("bob"); !reflect.DeepEqual(got, []int{0}) {
				t.Errorf("bob indices = %v, want [0]", got)
			}
			// "soda" claims both expanded units.
			if got := r.Assignments().Get("alice"); !reflect.DeepEqual(got, []int{1, 2}) {
				t.Errorf("alice indices = %v, want [1 2]", got)
			}
		})
	}
}

func TestResolveGroupTier(t *testing.T) {
	items := receiptAtoms()
	sess := Session{Email: "bob@x.com"}

	r := Resolve(items, Source{
		Group: []models.GroupMember{
			{Email: "alice@x.com", Nickname: "Alice"},
			{Email: "carol@x.com"},
		},
	}, sess)

	participants := r.Participants()
	if len(participants) != 3 {
		t.Fatalf("got %d participants, want 3 (two members plus You)", len(participants))
	}
	full := []int{0, 1, 2}
	for _, p := range participants {
		if got := r.Assignments().Get(p.Key); !reflect.DeepEqual(got, full) {
			t.Errorf("%s indices = %v, want full set", p.Key, got)
		}
	}

	// Every share is an equal slice of the whole receipt.
	shares := ComputeShares(items, r.Assignments())
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Total)
	}
	if !sum.Equal(decimal.RequireFromString("19.00")) {
		t.Errorf("sum of shares = %s, want 19.00", sum)
	}
}

func TestResolveGroupContainingActingUser(t *testing.T) {
	items := receiptAtoms()
	sess := Session{Email: "bob@x.com"}

	r := Resolve(items, Source{
		Group: []models.GroupMember{
			{Email: "bob@x.com", IsCreator: true},
			{Email: "alice@x.com"},
		},
	}, sess)

	participants := r.Participants()
	if len(participants) != 2 {
		t.Fatalf("got %d participants, want 2 (no duplicate You)", len(participants))
	}
	if participants[0].DisplayName != "bob (You)" {
		t.Errorf("participant 0 display = %q, want bob (You)", participants[0].DisplayName)
	}
}

func TestResolveFallbackTier(t *testing.T) {
	items := receiptAtoms()
	sess := Session{Email: "bob@x.com"}

	r := Resolve(items, Source{}, sess)

	participants := r.Participants()
	if len(participants) != 1 {
		t.Fatalf("got %d participants, want 1", len(participants))
	}
	if participants[0].Key != "bob" {
		t.Errorf("key = %q, want bob", participants[0].Key)
	}
	if got := r.Assignments().Get("bob"); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("indices = %v, want full set", got)
	}
}

func TestResolutionManualEdits(t *testing.T) {
	items := receiptAtoms()
	sess := Session{Email: "bob@x.com"}
	r := Resolve(items, Source{}, sess)

	if !r.AddParticipant("Dave") {
		t.Fatal("AddParticipant(Dave) = false, want true")
	}
	// Manual adds default to the full index set.
	if got := r.Assignments().Get("dave"); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("dave indices = %v, want full set", got)
	}

	// Duplicate add is a no-op.
	if r.AddParticipant("  DAVE ") {
		t.Error("duplicate AddParticipant = true, want false")
	}
	// Adding a self-alias collapses onto the existing session participant.
	if r.AddParticipant("me") {
		t.Error("AddParticipant(me) = true, want false when You already present")
	}

	r.RemoveParticipant("dave")
	if len(r.Participants()) != 1 {
		t.Errorf("got %d participants after remove, want 1", len(r.Participants()))
	}
	if r.Assignments().Get("dave") != nil {
		t.Error("dave's assignment entry survived removal")
	}

	// Removing an unknown key is a no-op.
	r.RemoveParticipant("ghost")
	if len(r.Participants()) != 1 {
		t.Error("removing unknown key changed the participant list")
	}
}
