package engine

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"john", "johnny", true},
		{"johnny", "john", true},
		{"al", "sally", true}, // containment is loose on purpose
		{"bob", "alice", false},
		{"Alice", "alice", true},
		{"  alice ", "ALICE", true},
		{"", "alice", false},
		{"alice", "", false},
	}

	for _, tt := range tests {
		if got := Match(tt.a, tt.b); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestStripUnitSuffix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Soda (1/3)", "Soda"},
		{"Soda (12/20)", "Soda"},
		{"Soda", "Soda"},
		{"Combo (large)", "Combo (large)"},
		{"(1/2)", ""},
	}

	for _, tt := range tests {
		if got := StripUnitSuffix(tt.in); got != tt.want {
			t.Errorf("StripUnitSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchItem(t *testing.T) {
	tests := []struct {
		phrase, item string
		want         bool
	}{
		{"soda", "Soda (2/3)", true},
		{"Soda (2/3)", "Soda (2/3)", true},
		{"pizza", "Soda (1/3)", false},
		{"margherita pizza", "Pizza", true},
	}

	for _, tt := range tests {
		if got := MatchItem(tt.phrase, tt.item); got != tt.want {
			t.Errorf("MatchItem(%q, %q) = %v, want %v", tt.phrase, tt.item, got, tt.want)
		}
	}
}

func TestSessionIsSelf(t *testing.T) {
	sess := Session{Email: "bob@x.com"}

	for _, name := range []string{"me", "Me", "bob", "BOB", "bob@x.com"} {
		if !sess.IsSelf(name) {
			t.Errorf("IsSelf(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"alice", "bobby@x.com", ""} {
		if sess.IsSelf(name) {
			t.Errorf("IsSelf(%q) = true, want false", name)
		}
	}

	if got := sess.DisplayName(); got != "bob (You)" {
		t.Errorf("DisplayName() = %q, want %q", got, "bob (You)")
	}
	if got := sess.Key(); got != "bob" {
		t.Errorf("Key() = %q, want %q", got, "bob")
	}
}
