package hitl

import (
	"maps"
	"sort"
)

// State is the shared mapping of named fields threaded through every step of
// a thread. A field is either present with a string value or absent. Fields
// are only ever added or overwritten, never deleted.
type State map[string]string

// Get returns the value of a field and whether it is present.
func (s State) Get(key string) (string, bool) {
	value, exists := s[key]
	return value, exists
}

// Value returns the value of a field, or "" if it is absent.
func (s State) Value(key string) string {
	return s[key]
}

// Has reports whether a field is present.
func (s State) Has(key string) bool {
	_, exists := s[key]
	return exists
}

// Keys returns the present field names in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Copy returns a copy of the state. A nil state copies to an empty one.
func (s State) Copy() State {
	copy := make(State, len(s))
	maps.Copy(copy, s)
	return copy
}

// Merge returns a new state with update applied as a shallow key overwrite.
// The receiver is not modified.
func (s State) Merge(update State) State {
	merged := s.Copy()
	maps.Copy(merged, update)
	return merged
}
