package world

import (
	"flownet.ai/internal/sim/world/kernel/model"
	"flownet.ai/internal/sim/world/logic/container"
	"flownet.ai/internal/sim/world/logic/ports"
	"flownet.ai/internal/sim/world/logic/valuestack"
)

// Part is one placed structure. It satisfies netgraph.Part, network.Member and
// container.Holder; it keeps only the id of its network.
type Part[Q valuestack.Number] struct {
	ID       uint64
	Def      string
	NetType  string
	Origin   model.Vec3i
	Rotation int
	Priority int

	Container *container.Container[string, Q]

	cells     []model.Vec3i
	io        []ports.Cell
	node      bool
	networkID uint64
	notify    func(p *Part[Q], delta valuestack.Delta[string, Q], full valuestack.Stack[string, Q])
}

func (p *Part[Q]) PartID() uint64 { return p.ID }

func (p *Part[Q]) Cells() []model.Vec3i { return p.cells }

func (p *Part[Q]) IOCells() []ports.Cell { return p.io }

func (p *Part[Q]) IsNode() bool { return p.node }

func (p *Part[Q]) NetworkID() uint64 { return p.networkID }

func (p *Part[Q]) SetNetworkID(id uint64) { p.networkID = id }

func (p *Part[Q]) ContainerStateChanged(delta valuestack.Delta[string, Q], full valuestack.Stack[string, Q]) {
	if p.notify != nil {
		p.notify(p, delta, full)
	}
}
