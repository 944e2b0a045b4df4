// Package liveness computes per-instruction live-in/live-out virtual-
// register sets for a lowered x86.MachFunction: pkg/regalloc's
// linear-scan allocator consumes this package's output rather than
// recomputing liveness itself. The RegSet/ComputeDefUse/Analyze
// shape follows the usual dataflow-over-a-flat-instruction-list
// treatment, keyed by x86.Variable.ID rather than a separate RTL-level
// register type since this backend has no separate RTL stage.
package liveness

// RegSet is a set of virtual-register ids (x86.Variable.ID values).
type RegSet map[int]struct{}

// NewRegSet returns an empty RegSet.
func NewRegSet() RegSet { return make(RegSet) }

// Add inserts r into s.
func (s RegSet) Add(r int) { s[r] = struct{}{} }

// Contains reports whether r is in s.
func (s RegSet) Contains(r int) bool {
	_, ok := s[r]
	return ok
}

// Union returns a new set containing every element of s and other.
func (s RegSet) Union(other RegSet) RegSet {
	u := make(RegSet, len(s)+len(other))
	for r := range s {
		u.Add(r)
	}
	for r := range other {
		u.Add(r)
	}
	return u
}

// Minus returns a new set containing s's elements that are not in other.
func (s RegSet) Minus(other RegSet) RegSet {
	d := make(RegSet, len(s))
	for r := range s {
		if !other.Contains(r) {
			d.Add(r)
		}
	}
	return d
}

// Equal reports whether s and other contain exactly the same elements.
func (s RegSet) Equal(other RegSet) bool {
	if len(s) != len(other) {
		return false
	}
	for r := range s {
		if !other.Contains(r) {
			return false
		}
	}
	return true
}

// Copy returns an independent shallow copy of s.
func (s RegSet) Copy() RegSet {
	c := make(RegSet, len(s))
	for r := range s {
		c.Add(r)
	}
	return c
}

// Slice returns s's elements in unspecified order.
func (s RegSet) Slice() []int {
	out := make([]int, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	return out
}
