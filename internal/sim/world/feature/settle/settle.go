// Package settle is the periodic flow pass over one network: along every
// edge, values drift from the fuller node container toward the emptier one.
package settle

import (
	"cmp"

	"flownet.ai/internal/sim/world/logic/container"
	"flownet.ai/internal/sim/world/logic/netgraph"
	"flownet.ai/internal/sim/world/logic/valuestack"
)

// ContainerLookup resolves a node part to its container.
type ContainerLookup[K cmp.Ordered, Q valuestack.Number] func(partID uint64) (*container.Container[K, Q], bool)

type Config[K cmp.Ordered, Q valuestack.Number] struct {
	FlowPerTick Q
	// Whole restricts moves to whole units on networks with integer
	// quantities, even when Q is a float type.
	Whole      bool
	Containers ContainerLookup[K, Q]
}

// State is the settlement record kept per network.
type State struct {
	LastTick   uint64
	LastMoved  float64
	TotalMoved float64
	Passes     uint64
}

// Settler implements network.Flow for one network graph.
type Settler[K cmp.Ordered, Q valuestack.Number] struct {
	graph *netgraph.Graph
	cfg   Config[K, Q]
	state State
}

func New[K cmp.Ordered, Q valuestack.Number](g *netgraph.Graph, cfg Config[K, Q]) *Settler[K, Q] {
	return &Settler[K, Q]{graph: g, cfg: cfg}
}

func (s *Settler[K, Q]) State() State { return s.state }

// SetState restores a saved settlement record.
func (s *Settler[K, Q]) SetState(st State) { s.state = st }

// Limit is the most an edge may carry in one pass. Longer paths carry less.
func Limit[Q valuestack.Number](flowPerTick Q, pathLength int) Q {
	if flowPerTick <= 0 {
		return 0
	}
	if pathLength < 0 {
		pathLength = 0
	}
	return flowPerTick / Q(1+pathLength)
}

// Tick runs one pass over every edge in graph order. Values only move through
// container transfers, so the network total never grows.
func (s *Settler[K, Q]) Tick(nowTick uint64) float64 {
	var moved Q
	if s.graph != nil && s.cfg.Containers != nil {
		for _, e := range s.graph.Edges {
			moved = valuestack.AddClamp(moved, s.settleEdge(e))
		}
	}
	s.state.LastTick = nowTick
	s.state.LastMoved = float64(moved)
	s.state.TotalMoved += float64(moved)
	s.state.Passes++
	return float64(moved)
}

func (s *Settler[K, Q]) settleEdge(e netgraph.Edge) Q {
	if e.From < 0 || e.From >= len(s.graph.Nodes) || e.To < 0 || e.To >= len(s.graph.Nodes) {
		return 0
	}
	a, ok := s.cfg.Containers(s.graph.Nodes[e.From].Part)
	if !ok || a == nil {
		return 0
	}
	b, ok := s.cfg.Containers(s.graph.Nodes[e.To].Part)
	if !ok || b == nil {
		return 0
	}
	units := s.units()
	budget := Limit(s.cfg.FlowPerTick, e.PathLength)
	if units {
		budget = valuestack.Floor(budget)
	}
	if budget <= 0 {
		return 0
	}

	var moved Q
	if e.Forward {
		moved = valuestack.AddClamp(moved, pushOut(a, b, budget, units))
	}
	if e.Backward {
		moved = valuestack.AddClamp(moved, pushOut(b, a, valuestack.SubClamp(budget, moved), units))
	}
	budget = valuestack.SubClamp(budget, moved)
	if budget <= 0 {
		return moved
	}

	fa, fb := a.FillRatio(), b.FillRatio()
	switch {
	case fa > fb && e.Forward:
		moved = valuestack.AddClamp(moved, equalize(a, b, budget, units))
	case fb > fa && e.Backward:
		moved = valuestack.AddClamp(moved, equalize(b, a, budget, units))
	}
	return moved
}

// units reports whether moves must be rounded down to whole units.
func (s *Settler[K, Q]) units() bool {
	return s.cfg.Whole && !valuestack.IsIntegral[Q]()
}

// pushOut empties kinds from cannot hold, up to budget.
func pushOut[K cmp.Ordered, Q valuestack.Number](from, to *container.Container[K, Q], budget Q, units bool) Q {
	var moved Q
	for _, k := range from.StoredKinds() {
		if from.CanStore(k) || budget <= 0 {
			continue
		}
		amount := valuestack.Min(budget, from.StoredOf(k))
		if units {
			amount = valuestack.Floor(amount)
		}
		if amount <= 0 {
			continue
		}
		r := from.TryTransferValue(to, k, amount)
		if !r.OK() {
			continue
		}
		moved = valuestack.AddClamp(moved, r.Actual())
		budget = valuestack.SubClamp(budget, r.Actual())
	}
	return moved
}

// equalize moves enough from donor to bring both fill ratios level, capped at
// budget.
func equalize[K cmp.Ordered, Q valuestack.Number](donor, receiver *container.Container[K, Q], budget Q, units bool) Q {
	ud, bd := donor.Fill()
	ur, br := receiver.Fill()
	cd, cr := float64(bd), float64(br)
	if cd <= 0 || cr <= 0 {
		return 0
	}
	sd, sr := float64(ud), float64(ur)
	x := (sd*cr - sr*cd) / (cd + cr)
	amount := valuestack.Min(valuestack.FromFloat[Q](x), budget)
	if units {
		return donor.TryTransferWholeTo(receiver, amount).Actual
	}
	if amount <= 0 {
		return 0
	}
	return donor.TryTransferTo(receiver, amount).Actual
}
