// Package payment is the cost interface consumed by crafting-style callers:
// it checks and settles a cost against the storage reachable on a network.
package payment

import (
	"cmp"
	"log"
	"sort"

	"flownet.ai/internal/sim/world/feature/network"
	"flownet.ai/internal/sim/world/logic/container"
	"flownet.ai/internal/sim/world/logic/valuestack"
)

// Source is one storage container a cost may be paid from.
type Source[K cmp.Ordered, Q valuestack.Number] struct {
	PartID    uint64
	Priority  int
	Container *container.Container[K, Q]
}

// SourceLookup resolves a network member to its storage, if it has any.
type SourceLookup[K cmp.Ordered, Q valuestack.Number] func(partID uint64) (Source[K, Q], bool)

// NetworkContainers returns the storage reachable on n, highest priority
// first, ties by part id.
func NetworkContainers[K cmp.Ordered, Q valuestack.Number](n *network.Network, lookup SourceLookup[K, Q]) []Source[K, Q] {
	if n.Destroyed() || lookup == nil {
		return nil
	}
	var out []Source[K, Q]
	for _, id := range n.Members() {
		s, ok := lookup(id)
		if !ok || s.Container == nil {
			continue
		}
		s.PartID = id
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].PartID < out[j].PartID
	})
	return out
}

// Available sums what the sources can give up, per kind.
func Available[K cmp.Ordered, Q valuestack.Number](srcs []Source[K, Q]) valuestack.Stack[K, Q] {
	sum := valuestack.Empty[K, Q]()
	for _, s := range srcs {
		if s.Container == nil {
			continue
		}
		for _, e := range s.Container.Stack().Entries() {
			if !s.Container.CanTransfer(e.Kind) {
				continue
			}
			sum = sum.With(e.Kind, valuestack.AddClamp(sum.Get(e.Kind), e.Qty))
		}
	}
	return sum
}

func CanPayWith[K cmp.Ordered, Q valuestack.Number](srcs []Source[K, Q], cost valuestack.Stack[K, Q]) bool {
	if cost.IsEmpty() {
		return true
	}
	return Available(srcs).Covers(cost)
}

// DoPayWith consumes cost from srcs in order and returns whatever could not be
// paid. An inexact payment is logged, never returned as an error.
func DoPayWith[K cmp.Ordered, Q valuestack.Number](srcs []Source[K, Q], cost valuestack.Stack[K, Q], logger *log.Logger) valuestack.Stack[K, Q] {
	paid := map[K]Q{}
	left := map[K]Q{}
	for _, e := range cost.Entries() {
		want := e.Qty
		for _, s := range srcs {
			if want <= 0 {
				break
			}
			if s.Container == nil || !s.Container.CanTransfer(e.Kind) {
				continue
			}
			r := s.Container.TryConsumeKind(e.Kind, want)
			if !r.OK() {
				continue
			}
			paid[e.Kind] = valuestack.AddClamp(paid[e.Kind], r.Actual)
			want = valuestack.SubClamp(want, r.Actual)
		}
		if want > 0 {
			left[e.Kind] = want
		}
	}
	leftover := valuestack.FromMap(left)
	if logger != nil {
		got := valuestack.FromMap(paid)
		if !leftover.IsEmpty() {
			logger.Printf("payment short: cost=%v paid=%v leftover=%v", cost, got, leftover)
		}
		if over := got.Sub(cost); !over.IsEmpty() {
			logger.Printf("payment over: cost=%v paid=%v excess=%v", cost, got, over)
		}
	}
	return leftover
}
