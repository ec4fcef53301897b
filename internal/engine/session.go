package engine

import "github.com/smartbill/smartbill/internal/models"

// Session carries the acting user's identity into the resolver.
type Session struct {
	// Email is the acting user's account email.
	Email string
}

// Key returns the canonical participant key for the acting user: the
// normalized email local-part.
func (s Session) Key() string {
	return Normalize(models.EmailLocalPart(s.Email))
}

// DisplayName returns how the acting user appears in participant lists.
func (s Session) DisplayName() string {
	return models.EmailLocalPart(s.Email) + " (You)"
}

// IsSelf reports whether a participant name refers to the acting user. The
// literal "me", the email local-part, and the full email all collapse onto
// the session identity.
func (s Session) IsSelf(name string) bool {
	n := Normalize(name)
	if n == "" {
		return false
	}
	return n == "me" || n == s.Key() || n == Normalize(s.Email)
}
