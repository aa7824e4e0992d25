package modules

import (
	"encoding/json"
	"fmt"
)

// Set is a set of module IDs. A nil Set is empty and grants nothing.
//
// The JSON form is an array in registry order. Decoding silently drops
// strings that do not name a module, so a mistyped id can never grant access.
type Set map[ID]struct{}

// NewSet builds a set from ids, skipping any that are not declared modules
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// AllSet returns a set holding every module
func AllSet() Set {
	s := make(Set, len(registry))
	for _, m := range registry {
		s[m.ID] = struct{}{}
	}
	return s
}

// ParseSet converts raw strings into a Set and reports the ones rejected
func ParseSet(raw []string) (Set, []string) {
	s := make(Set, len(raw))
	var rejected []string
	for _, r := range raw {
		id, ok := Parse(r)
		if !ok {
			rejected = append(rejected, r)
			continue
		}
		s[id] = struct{}{}
	}
	return s, rejected
}

// Has reports whether id is in the set
func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id if it is a declared module
func (s Set) Add(id ID) bool {
	if !id.Valid() {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Len returns the number of modules in the set
func (s Set) Len() int {
	return len(s)
}

// IDs returns the members in registry order
func (s Set) IDs() []ID {
	out := make([]ID, 0, len(s))
	for _, m := range registry {
		if s.Has(m.ID) {
			out = append(out, m.ID)
		}
	}
	return out
}

// Strings returns the members as strings in registry order
func (s Set) Strings() []string {
	ids := s.IDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// Clone returns an independent copy. Cloning a nil set yields an empty one.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same modules
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as an array, never null
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array of module ids. null decodes to an empty set.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("allowed modules must be an array of strings: %w", err)
	}
	parsed, _ := ParseSet(raw)
	*s = parsed
	return nil
}
