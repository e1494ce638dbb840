// Package valuestack holds sparse kind→quantity stacks used by containers and
// payment costs.
//
// A Stack is immutable by convention: every operation returns a new Stack and
// leaves its receiver untouched, so a previous snapshot can be diffed against
// a fresh one cheaply.
package valuestack

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/constraints"
)

// Number is the quantity type-set: any integer or floating point type.
type Number interface {
	constraints.Integer | constraints.Float
}

type Entry[K cmp.Ordered, Q Number] struct {
	Kind K
	Qty  Q
}

// Stack is an ordered set of (kind, quantity) pairs with no duplicate kinds
// and no zero quantities. Entries are kept sorted by kind.
type Stack[K cmp.Ordered, Q Number] struct {
	entries []Entry[K, Q]
	total   Q
}

func Empty[K cmp.Ordered, Q Number]() Stack[K, Q] { return Stack[K, Q]{} }

// FromMap builds a stack from m, dropping non-positive quantities.
func FromMap[K cmp.Ordered, Q Number](m map[K]Q) Stack[K, Q] {
	if len(m) == 0 {
		return Stack[K, Q]{}
	}
	out := Stack[K, Q]{entries: make([]Entry[K, Q], 0, len(m))}
	for k, q := range m {
		if q <= 0 {
			continue
		}
		out.entries = append(out.entries, Entry[K, Q]{Kind: k, Qty: q})
		out.total += q
	}
	slices.SortFunc(out.entries, func(a, b Entry[K, Q]) int { return cmp.Compare(a.Kind, b.Kind) })
	return out
}

// Of builds a stack holding qty of each listed kind. Duplicate kinds merge.
func Of[K cmp.Ordered, Q Number](qty Q, kinds ...K) Stack[K, Q] {
	m := make(map[K]Q, len(kinds))
	for _, k := range kinds {
		m[k] += qty
	}
	return FromMap(m)
}

func (s Stack[K, Q]) Len() int { return len(s.entries) }

func (s Stack[K, Q]) IsEmpty() bool { return len(s.entries) == 0 }

func (s Stack[K, Q]) Total() Q { return s.total }

func (s Stack[K, Q]) Entries() []Entry[K, Q] {
	return slices.Clone(s.entries)
}

func (s Stack[K, Q]) Kinds() []K {
	out := make([]K, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Kind
	}
	return out
}

func (s Stack[K, Q]) index(k K) (int, bool) {
	return slices.BinarySearchFunc(s.entries, k, func(e Entry[K, Q], k K) int { return cmp.Compare(e.Kind, k) })
}

// Get returns the quantity of k, zero when absent.
func (s Stack[K, Q]) Get(k K) Q {
	if i, ok := s.index(k); ok {
		return s.entries[i].Qty
	}
	return 0
}

func (s Stack[K, Q]) Contains(k K) bool {
	_, ok := s.index(k)
	return ok
}

// Map returns a fresh map copy of the stack.
func (s Stack[K, Q]) Map() map[K]Q {
	out := make(map[K]Q, len(s.entries))
	for _, e := range s.entries {
		out[e.Kind] = e.Qty
	}
	return out
}

// Add merges o into s by kind.
func (s Stack[K, Q]) Add(o Stack[K, Q]) Stack[K, Q] {
	out := Stack[K, Q]{entries: make([]Entry[K, Q], 0, len(s.entries)+len(o.entries))}
	i, j := 0, 0
	for i < len(s.entries) || j < len(o.entries) {
		var e Entry[K, Q]
		switch {
		case j >= len(o.entries) || (i < len(s.entries) && s.entries[i].Kind < o.entries[j].Kind):
			e = s.entries[i]
			i++
		case i >= len(s.entries) || o.entries[j].Kind < s.entries[i].Kind:
			e = o.entries[j]
			j++
		default:
			e = Entry[K, Q]{Kind: s.entries[i].Kind, Qty: satAdd(s.entries[i].Qty, o.entries[j].Qty)}
			i++
			j++
		}
		out.entries = append(out.entries, e)
		out.total = satAdd(out.total, e.Qty)
	}
	return out
}

// Sub removes o from s by kind. Quantities clamp at zero and vanish.
func (s Stack[K, Q]) Sub(o Stack[K, Q]) Stack[K, Q] {
	out := Stack[K, Q]{entries: make([]Entry[K, Q], 0, len(s.entries))}
	for _, e := range s.entries {
		q := SubClamp(e.Qty, o.Get(e.Kind))
		if q <= 0 {
			continue
		}
		out.entries = append(out.entries, Entry[K, Q]{Kind: e.Kind, Qty: q})
		out.total = satAdd(out.total, q)
	}
	return out
}

// With returns s with the quantity of k replaced by q.
func (s Stack[K, Q]) With(k K, q Q) Stack[K, Q] {
	m := s.Map()
	if q <= 0 {
		delete(m, k)
	} else {
		m[k] = q
	}
	return FromMap(m)
}

func (s Stack[K, Q]) Equal(o Stack[K, Q]) bool {
	return slices.Equal(s.entries, o.entries)
}

// Covers reports whether s holds at least o of every kind in o.
func (s Stack[K, Q]) Covers(o Stack[K, Q]) bool {
	for _, e := range o.entries {
		if s.Get(e.Kind) < e.Qty {
			return false
		}
	}
	return true
}

func (s Stack[K, Q]) String() string {
	if len(s.entries) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range s.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v:%v", e.Kind, e.Qty)
	}
	b.WriteByte('}')
	return b.String()
}

// Delta is the change between two stacks. Both halves are non-negative so it
// stays representable for unsigned quantity types.
type Delta[K cmp.Ordered, Q Number] struct {
	Added   Stack[K, Q]
	Removed Stack[K, Q]
}

func (d Delta[K, Q]) IsZero() bool { return d.Added.IsEmpty() && d.Removed.IsEmpty() }

// Diff computes next - prev.
func Diff[K cmp.Ordered, Q Number](prev, next Stack[K, Q]) Delta[K, Q] {
	return Delta[K, Q]{
		Added:   next.Sub(prev),
		Removed: prev.Sub(next),
	}
}
