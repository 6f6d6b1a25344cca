package features

import (
	"maps"
	"slices"
)

// Set is the aggregated result of a walk: feature name → true. A missing
// key means the feature was not seen; false is never stored.
type Set map[string]bool

// Add records a feature. Adding an existing feature is a no-op.
func (s Set) Add(feature string) {
	s[feature] = true
}

// Has reports whether feature was recorded.
func (s Set) Has(feature string) bool {
	return s[feature]
}

// Merge adds every feature of other to s.
func (s Set) Merge(other Set) {
	for name, ok := range other {
		if ok {
			s[name] = true
		}
	}
}

// Names returns the recorded features in lexical order.
func (s Set) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	out.Merge(s)
	return out
}
