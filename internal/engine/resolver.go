package engine

import (
	"strings"

	"github.com/smartbill/smartbill/internal/models"
)

// TranscriptParticipant is one person detected in the voice transcript, with
// the item phrases they claimed. Phrases are expected, but not guaranteed, to
// match receipt item names exactly.
type TranscriptParticipant struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// Source is the input the resolver reconciles into a canonical participant
// set. The tiers are mutually exclusive and ranked: a non-empty transcript
// wins over a selected contact group, which wins over the lone-user fallback.
type Source struct {
	Transcript []TranscriptParticipant
	Group      []models.GroupMember
}

// Participant is a canonical, deduplicated person identity. Two participants
// are the same entity iff their Keys are equal.
type Participant struct {
	// Key is the normalized (lowercase, trimmed) unique identity.
	Key string

	// DisplayName is what the UI shows. The acting user always displays as
	// "<name> (You)".
	DisplayName string
}

// Resolution is the output of Resolve: the participant list and the
// assignment relation over the atomic item index space it was built for.
// Manual participant edits go through AddParticipant and RemoveParticipant so
// the list and the relation stay in step.
//
// A Resolution is bound to one expansion. When the line items change, expand
// again and resolve again; the old index space is invalid.
type Resolution struct {
	session      Session
	nitems       int
	participants []Participant
	assign       *Assignments
}

// Resolve builds the canonical participant set and initial assignments from
// one of three sources, in priority order:
//
//  1. Voice transcript: each detected person claims the items their phrases
//     fuzzy-match. Items claimed by nobody are added to every participant's
//     set (unclaimed items split equally among everyone). If nobody
//     resolves to the acting user, a "You" participant is
//     synthesized claiming exactly the unclaimed items.
//  2. Contact group: every member splits every item equally; a "You"
//     participant is synthesized with the full set if the acting user is not
//     a member.
//  3. Fallback: the acting user alone, claiming everything.
//
// Resolve runs once per expense-creation session and again only on explicit
// reset.
func Resolve(items []AtomicItem, src Source, sess Session) *Resolution {
	r := &Resolution{
		session: sess,
		nitems:  len(items),
		assign:  NewAssignments(),
	}

	switch {
	case len(src.Transcript) > 0:
		r.initFromTranscript(items, src.Transcript)
	case len(src.Group) > 0:
		r.initFromGroup(src.Group)
	default:
		r.add(sess.Key(), sess.DisplayName(), r.allIndices())
	}
	return r
}

func (r *Resolution) initFromTranscript(items []AtomicItem, transcript []TranscriptParticipant) {
	claimed := make(map[int]struct{})
	selfSeen := false

	for _, tp := range transcript {
		key := Normalize(tp.Name)
		if key == "" {
			continue
		}
		display := strings.TrimSpace(tp.Name)
		if r.session.IsSelf(tp.Name) {
			key, display = r.session.Key(), r.session.DisplayName()
			selfSeen = true
		}

		var indices []int
		for i, item := range items {
			for _, phrase := range tp.Items {
				if MatchItem(phrase, item.Name) {
					indices = append(indices, i)
					claimed[i] = struct{}{}
					break
				}
			}
		}
		r.add(key, display, indices)
	}

	var unclaimed []int
	for i := range items {
		if _, ok := claimed[i]; !ok {
			unclaimed = append(unclaimed, i)
		}
	}

	// Unclaimed items default to everyone, not to "unassigned".
	for _, p := range r.participants {
		r.assign.Add(p.Key, unclaimed...)
	}
	if !selfSeen {
		r.add(r.session.Key(), r.session.DisplayName(), unclaimed)
	}
}

func (r *Resolution) initFromGroup(members []models.GroupMember) {
	full := r.allIndices()
	selfSeen := false

	for _, m := range members {
		name := m.DisplayName()
		key, display := Normalize(name), name
		if r.session.IsSelf(m.Email) || r.session.IsSelf(name) {
			key, display = r.session.Key(), r.session.DisplayName()
			selfSeen = true
		}
		r.add(key, display, full)
	}
	if !selfSeen {
		r.add(r.session.Key(), r.session.DisplayName(), full)
	}
}

// add registers a participant, merging index sets when the key already
// exists.
func (r *Resolution) add(key, display string, indices []int) {
	if !r.has(key) {
		r.participants = append(r.participants, Participant{Key: key, DisplayName: display})
	}
	r.assign.Add(key, indices...)
}

func (r *Resolution) has(key string) bool {
	for _, p := range r.participants {
		if p.Key == key {
			return true
		}
	}
	return false
}

func (r *Resolution) allIndices() []int {
	indices := make([]int, r.nitems)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// Participants returns the canonical participant list in insertion order.
func (r *Resolution) Participants() []Participant {
	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

// Assignments exposes the mutable assignment relation for toggle edits.
func (r *Resolution) Assignments() *Assignments {
	return r.assign
}

// AddParticipant inserts a manually-typed participant with the full index set
// (select-all semantics). Names resolving to the acting user collapse onto
// the session participant. Returns false without changes when the key is
// already present.
func (r *Resolution) AddParticipant(name string) bool {
	key := Normalize(name)
	if key == "" {
		return false
	}
	display := strings.TrimSpace(name)
	if r.session.IsSelf(name) {
		key, display = r.session.Key(), r.session.DisplayName()
	}
	if r.has(key) {
		return false
	}
	r.add(key, display, r.allIndices())
	return true
}

// RemoveParticipant deletes the participant and its assignment entry.
// Unknown keys are a no-op.
func (r *Resolution) RemoveParticipant(key string) {
	key = Normalize(key)
	for i, p := range r.participants {
		if p.Key == key {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			break
		}
	}
	r.assign.Remove(key)
}
