// Package network owns the networks of one network type in one world: the
// deferred spawn/despawn queue, the batch that tears networks down and
// rediscovers them, and the cell lookup grid.
package network

import (
	"flownet.ai/internal/sim/world/kernel/model"
	"flownet.ai/internal/sim/world/logic/netgraph"
)

// Flow is the per-network settlement state. Tick runs one settlement pass and
// returns the quantity moved.
type Flow interface {
	Tick(nowTick uint64) float64
}

// Network is one discovered cluster. A Network is never patched: any topology
// change destroys it and discovery builds a fresh one with a new ID.
type Network struct {
	ID          uint64
	Type        string
	Graph       *netgraph.Graph
	Flow        Flow
	CreatedTick uint64

	destroyed bool
}

func (n *Network) Destroyed() bool { return n == nil || n.destroyed }

func (n *Network) Members() []uint64 {
	if n == nil || n.Graph == nil {
		return nil
	}
	return n.Graph.Members
}

func (n *Network) Cells() []model.Vec3i {
	if n == nil || n.Graph == nil {
		return nil
	}
	return n.Graph.Cells
}

func (n *Network) HasMember(partID uint64) bool {
	if n == nil || n.Graph == nil {
		return false
	}
	return n.Graph.HasMember(partID)
}

type ActionKind uint8

const (
	Register ActionKind = iota + 1
	Deregister
)

func (k ActionKind) String() string {
	switch k {
	case Register:
		return "REGISTER"
	case Deregister:
		return "DEREGISTER"
	default:
		return "UNKNOWN"
	}
}

// Action is one queued spawn or despawn. Cells are captured when the action is
// queued so a despawned part's footprint is still known at batch time.
type Action struct {
	Kind   ActionKind
	PartID uint64
	Cells  []model.Vec3i
}

// Member is implemented by parts that keep a back reference to their network.
type Member interface {
	NetworkID() uint64
	SetNetworkID(id uint64)
}

// Host is the surrounding structure system.
type Host interface {
	// Fits returns the part of netType occupying pos, if any.
	Fits(pos model.Vec3i, netType string) (netgraph.Part, bool)
	PartByID(id uint64) (netgraph.Part, bool)
}
