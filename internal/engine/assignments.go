package engine

import "sort"

// Assignments is the many-to-many relation between canonical participant keys
// and atomic item indices. Participants iterate in insertion order and each
// participant owns its own index set, so mutating one participant's claims
// can never alias another's.
//
// An index claimed by nobody is a legal state: the item is simply unpaid-for
// and contributes zero to every share.
type Assignments struct {
	order []string
	sets  map[string]map[int]struct{}
}

// NewAssignments creates an empty relation.
func NewAssignments() *Assignments {
	return &Assignments{sets: make(map[string]map[int]struct{})}
}

// ensure registers a participant key, preserving first-insertion order.
func (a *Assignments) ensure(key string) map[int]struct{} {
	set, ok := a.sets[key]
	if !ok {
		set = make(map[int]struct{})
		a.sets[key] = set
		a.order = append(a.order, key)
	}
	return set
}

// Add registers the participant and adds the given indices to its set.
// Adding an already-present index is a no-op.
func (a *Assignments) Add(key string, indices ...int) {
	set := a.ensure(key)
	for _, idx := range indices {
		set[idx] = struct{}{}
	}
}

// Toggle flips one index for one participant: absent indices are added,
// present ones removed. Unknown keys are treated as empty sets, so toggling
// also registers the participant.
func (a *Assignments) Toggle(key string, idx int) {
	set := a.ensure(key)
	if _, ok := set[idx]; ok {
		delete(set, idx)
		return
	}
	set[idx] = struct{}{}
}

// Has reports whether the participant's set contains the index.
func (a *Assignments) Has(key string, idx int) bool {
	_, ok := a.sets[key][idx]
	return ok
}

// Get returns the participant's indices in ascending order. Unknown keys
// yield nil.
func (a *Assignments) Get(key string) []int {
	set, ok := a.sets[key]
	if !ok || len(set) == 0 {
		return nil
	}
	indices := make([]int, 0, len(set))
	for idx := range set {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// Remove deletes the participant and its entire index set. Removing an
// unknown key is a no-op.
func (a *Assignments) Remove(key string) {
	if _, ok := a.sets[key]; !ok {
		return
	}
	delete(a.sets, key)
	for i, k := range a.order {
		if k == key {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// Keys returns participant keys in insertion order.
func (a *Assignments) Keys() []string {
	keys := make([]string, len(a.order))
	copy(keys, a.order)
	return keys
}

// Len returns the number of participants in the relation.
func (a *Assignments) Len() int {
	return len(a.order)
}

// AssigneeCount returns how many participants claim the index.
func (a *Assignments) AssigneeCount(idx int) int {
	count := 0
	for _, set := range a.sets {
		if _, ok := set[idx]; ok {
			count++
		}
	}
	return count
}
