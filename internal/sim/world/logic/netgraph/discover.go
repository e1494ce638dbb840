package netgraph

import (
	"sort"

	"flownet.ai/internal/sim/world/kernel/model"
	"flownet.ai/internal/sim/world/logic/ports"
)

type link struct {
	conn  ports.Connection
	other Part
}

// links returns every valid connection from p to a different part.
func links(p Part, lookup Lookup) []link {
	var out []link
	for _, port := range p.IOCells() {
		if !port.Mode.Participates() {
			continue
		}
		other, ok := lookup(port.Interface())
		if !ok || other == nil || other.PartID() == p.PartID() {
			continue
		}
		c := ports.Match(port, other.IOCells())
		if !c.Valid {
			continue
		}
		out = append(out, link{conn: c, other: other})
	}
	return out
}

// Discover builds the graph of the cluster containing seed. A cluster with no
// nodes returns the partially filled graph together with ErrNoNodes.
func Discover(seed Part, lookup Lookup) (*Graph, error) {
	if seed == nil || lookup == nil {
		return nil, ErrNoSeed
	}

	parts, nodes := reach(seed, lookup)

	g := &Graph{}
	for _, id := range sortedIDs(parts) {
		p := parts[id]
		g.Members = append(g.Members, id)
		g.Cells = append(g.Cells, p.Cells()...)
	}
	model.SortCells(g.Cells)
	for _, id := range sortedIDs(nodes) {
		g.Nodes = append(g.Nodes, Node{Part: id, Cells: append([]model.Vec3i(nil), nodes[id].Cells()...)})
	}
	g.index()
	if len(g.Nodes) == 0 {
		return g, ErrNoNodes
	}

	es := &edgeSet{seen: map[edgeKey]bool{}}
	for i, n := range g.Nodes {
		searchEdges(g, i, nodes[n.Part], lookup, es)
	}
	g.Edges = es.edges
	sort.SliceStable(g.Edges, func(i, j int) bool { return edgeLess(g, g.Edges[i], g.Edges[j]) })
	g.index()
	return g, nil
}

// reach flood-fills every part mutually connected to seed, regardless of
// role, and returns all parts plus the node subset.
func reach(seed Part, lookup Lookup) (all, nodes map[uint64]Part) {
	all = map[uint64]Part{}
	nodes = map[uint64]Part{}

	closed := map[uint64]bool{}
	openSet := map[uint64]bool{seed.PartID(): true}
	open := []Part{seed}
	for len(open) > 0 {
		current := open
		open = nil
		for _, p := range current {
			id := p.PartID()
			delete(openSet, id)
			if closed[id] {
				continue
			}
			closed[id] = true
			all[id] = p
			if p.IsNode() {
				nodes[id] = p
			}
			for _, l := range links(p, lookup) {
				oid := l.other.PartID()
				if closed[oid] || openSet[oid] {
					continue
				}
				openSet[oid] = true
				open = append(open, l.other)
			}
		}
	}
	return all, nodes
}

type walk struct {
	part   Part
	length int
	fwd    bool
	bwd    bool
}

// searchEdges walks out of every live port of node i. Adjacent nodes yield a
// zero-length edge; conduits are walked breadth-first, forking at junctions
// while keeping the origin port and accumulated length, until a node is hit.
func searchEdges(g *Graph, i int, origin Part, lookup Lookup, es *edgeSet) {
	originID := origin.PartID()
	for _, l := range links(origin, lookup) {
		if l.other.IsNode() {
			es.add(g, candidate{from: i, to: g.nodeIndex[l.other.PartID()], fromPort: l.conn.From, toPort: l.conn.To, fwd: l.conn.Forward, bwd: l.conn.Backward})
			continue
		}

		visited := map[uint64]bool{l.other.PartID(): true}
		queue := []walk{{part: l.other, length: 1, fwd: l.conn.Forward, bwd: l.conn.Backward}}
		for len(queue) > 0 {
			w := queue[0]
			queue = queue[1:]
			for _, next := range links(w.part, lookup) {
				fwd := w.fwd && next.conn.Forward
				bwd := w.bwd && next.conn.Backward
				if !fwd && !bwd {
					continue
				}
				nid := next.other.PartID()
				if nid == originID {
					continue
				}
				if next.other.IsNode() {
					to, ok := g.nodeIndex[nid]
					if !ok {
						continue
					}
					es.add(g, candidate{from: i, to: to, fromPort: l.conn.From, toPort: next.conn.To, length: w.length, fwd: fwd, bwd: bwd})
					continue
				}
				if visited[nid] {
					continue
				}
				visited[nid] = true
				queue = append(queue, walk{part: next.other, length: w.length + 1, fwd: fwd, bwd: bwd})
			}
		}
	}
}

type candidate struct {
	from, to         int
	fromPort, toPort ports.Cell
	length           int
	fwd, bwd         bool
}

type endpoint struct {
	node int
	pos  model.Vec3i
	dir  model.Dir
}

type edgeKey struct{ a, b endpoint }

type edgeSet struct {
	seen  map[edgeKey]bool
	edges []Edge
}

func endpointLess(g *Graph, a, b endpoint) bool {
	if a.node != b.node {
		return g.Nodes[a.node].Part < g.Nodes[b.node].Part
	}
	if a.pos != b.pos {
		return model.Less(a.pos, b.pos)
	}
	return a.dir < b.dir
}

// add records c unless the same physical path was already found from its
// other end. One-way paths are oriented along their flow; two-way paths from
// the lower endpoint.
func (s *edgeSet) add(g *Graph, c candidate) {
	if c.from == c.to {
		return
	}
	a := endpoint{node: c.from, pos: c.fromPort.Pos, dir: c.fromPort.Dir}
	b := endpoint{node: c.to, pos: c.toPort.Pos, dir: c.toPort.Dir}
	swap := false
	switch {
	case c.fwd && !c.bwd:
	case c.bwd && !c.fwd:
		swap = true
	default:
		swap = endpointLess(g, b, a)
	}
	if swap {
		a, b = b, a
		c = candidate{from: c.to, to: c.from, fromPort: c.toPort, toPort: c.fromPort, length: c.length, fwd: c.bwd, bwd: c.fwd}
	}
	key := edgeKey{a: a, b: b}
	if endpointLess(g, b, a) {
		key = edgeKey{a: b, b: a}
	}
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.edges = append(s.edges, Edge{
		From:       c.from,
		To:         c.to,
		FromPort:   c.fromPort,
		ToPort:     c.toPort,
		FromMode:   c.fromPort.Mode,
		ToMode:     c.toPort.Mode,
		PathLength: c.length,
		Forward:    c.fwd,
		Backward:   c.bwd,
	})
}

func edgeLess(g *Graph, a, b Edge) bool {
	ea := endpoint{node: a.From, pos: a.FromPort.Pos, dir: a.FromPort.Dir}
	eb := endpoint{node: b.From, pos: b.FromPort.Pos, dir: b.FromPort.Dir}
	if ea != eb {
		return endpointLess(g, ea, eb)
	}
	ta := endpoint{node: a.To, pos: a.ToPort.Pos, dir: a.ToPort.Dir}
	tb := endpoint{node: b.To, pos: b.ToPort.Pos, dir: b.ToPort.Dir}
	if ta != tb {
		return endpointLess(g, ta, tb)
	}
	return a.PathLength < b.PathLength
}

func sortedIDs[T any](m map[uint64]T) []uint64 {
	out := make([]uint64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
