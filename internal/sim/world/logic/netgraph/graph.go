// Package netgraph discovers the graph of a contiguous cluster of network
// parts: nodes are parts that store, branch or terminate flow; edges are runs
// of conduit parts between two nodes.
//
// Nodes and edges live in arena slices and refer to each other by index, so a
// Graph never holds references back into the parts it was built from.
package netgraph

import (
	"errors"
	"sort"

	"flownet.ai/internal/sim/world/kernel/model"
	"flownet.ai/internal/sim/world/logic/ports"
)

var (
	ErrNoSeed  = errors.New("netgraph: no seed part")
	ErrNoNodes = errors.New("netgraph: cluster has no nodes")
)

// Part is one structure participating in a network.
type Part interface {
	PartID() uint64
	Cells() []model.Vec3i
	IOCells() []ports.Cell
	// IsNode reports whether the part stores or terminates flow. Everything
	// else is a conduit.
	IsNode() bool
}

// Lookup returns the part of the network type being discovered that occupies
// pos.
type Lookup func(pos model.Vec3i) (Part, bool)

type Node struct {
	Part  uint64
	Cells []model.Vec3i
}

// Edge is one physical path between two nodes. PathLength counts the conduit
// cells walked; adjacent nodes have length 0. Forward means values may flow
// From -> To, Backward the opposite.
type Edge struct {
	From       int
	To         int
	FromPort   ports.Cell
	ToPort     ports.Cell
	FromMode   ports.Mode
	ToMode     ports.Mode
	PathLength int
	Forward    bool
	Backward   bool
}

func (e Edge) Bidirectional() bool { return e.Forward && e.Backward }

type Graph struct {
	Nodes []Node
	Edges []Edge
	// Members are every part in the cluster, conduits included, by id.
	Members []uint64
	Cells   []model.Vec3i

	nodeIndex map[uint64]int
	adj       [][]int
}

// NodeIndex returns the arena index of a node part.
func (g *Graph) NodeIndex(partID uint64) (int, bool) {
	i, ok := g.nodeIndex[partID]
	return i, ok
}

// EdgesOf returns the indices of edges touching node i.
func (g *Graph) EdgesOf(i int) []int {
	if i < 0 || i >= len(g.adj) {
		return nil
	}
	return g.adj[i]
}

func (g *Graph) HasMember(partID uint64) bool {
	i := sort.Search(len(g.Members), func(i int) bool { return g.Members[i] >= partID })
	return i < len(g.Members) && g.Members[i] == partID
}

// EdgeLengths returns the sorted multiset of edge lengths.
func (g *Graph) EdgeLengths() []int {
	out := make([]int, len(g.Edges))
	for i, e := range g.Edges {
		out[i] = e.PathLength
	}
	sort.Ints(out)
	return out
}

// NodeParts returns node part ids in arena order.
func (g *Graph) NodeParts() []uint64 {
	out := make([]uint64, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.Part
	}
	return out
}

func (g *Graph) index() {
	g.nodeIndex = make(map[uint64]int, len(g.Nodes))
	for i, n := range g.Nodes {
		g.nodeIndex[n.Part] = i
	}
	g.adj = make([][]int, len(g.Nodes))
	for i, e := range g.Edges {
		g.adj[e.From] = append(g.adj[e.From], i)
		if e.To != e.From {
			g.adj[e.To] = append(g.adj[e.To], i)
		}
	}
}

// Class is the role a part plays in its cluster.
type Class uint8

const (
	ClassNode Class = iota
	ClassEdge
	ClassJunction
)

func (c Class) String() string {
	switch c {
	case ClassNode:
		return "NODE"
	case ClassJunction:
		return "JUNCTION"
	default:
		return "EDGE"
	}
}

// Classify reports whether p is a node, a plain conduit, or a conduit junction
// with more than two live connections.
func Classify(p Part, lookup Lookup) Class {
	if p.IsNode() {
		return ClassNode
	}
	if len(links(p, lookup)) > 2 {
		return ClassJunction
	}
	return ClassEdge
}
