package world

import (
	"fmt"

	"flownet.ai/internal/sim/world/kernel/model"
	"flownet.ai/internal/sim/world/logic/container"
	"flownet.ai/internal/sim/world/logic/netgraph"
	"flownet.ai/internal/sim/world/logic/ports"
	"flownet.ai/internal/sim/world/logic/valuestack"
)

func (w *World[Q]) inBounds(p model.Vec3i) bool {
	r := w.cfg.BoundaryR
	return p.X >= -r && p.X <= r && p.Z >= -r && p.Z <= r && p.Y >= 0 && p.Y < w.cfg.Height
}

// SpawnPart places a part of def at origin and queues its network
// registration for the next batch.
func (w *World[Q]) SpawnPart(def string, origin model.Vec3i, rotation int) (*Part[Q], error) {
	p, err := w.place(w.partIDs.Peek(), def, origin, rotation)
	if err != nil {
		return nil, err
	}
	w.partIDs.Next()
	w.managers[p.NetType].Register(p.ID, p.cells)
	w.emit(Event{Tick: w.CurrentTick(), Type: EventPartSpawned, NetType: p.NetType, PartID: p.ID, Def: p.Def, Pos: posSlice(origin)})
	return p, nil
}

// place builds and occupies a part without touching any network.
func (w *World[Q]) place(id uint64, defID string, origin model.Vec3i, rotation int) (*Part[Q], error) {
	def, ok := w.cat.Parts.Defs[defID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPart, defID)
	}
	if _, ok := w.managers[def.Network]; !ok {
		return nil, fmt.Errorf("%w: %s has no network %s", ErrUnknownPart, defID, def.Network)
	}
	if _, dup := w.parts[id]; dup {
		return nil, fmt.Errorf("world: part id %d in use", id)
	}
	pattern, err := def.Pattern()
	if err != nil {
		return nil, err
	}
	rot := model.NormalizeRotation(rotation)
	offsets := def.FootprintOffsets()
	cells := ports.Footprint(offsets, origin, rot)
	for _, c := range cells {
		if !w.inBounds(c) {
			return nil, fmt.Errorf("%w: %v", ErrOutOfBounds, c.ToArray())
		}
		if other, taken := w.occupied[c]; taken {
			return nil, fmt.Errorf("%w: %v held by part %d", ErrCellOccupied, c.ToArray(), other)
		}
	}
	model.SortCells(cells)

	p := &Part[Q]{
		ID:       id,
		Def:      defID,
		NetType:  def.Network,
		Origin:   origin,
		Rotation: rot,
		Priority: def.StoragePriority,
		cells:    cells,
		io:       ports.Resolve(pattern, offsets, origin, rot),
		node:     def.IsNode(),
		notify:   w.onContainerChanged,
	}
	if cd := def.Container; cd != nil {
		accepts := cd.Accepts
		if len(accepts) == 0 {
			accepts = w.cat.ResourcesOf(def.Network)
		}
		kindCap := map[string]Q{}
		for _, k := range accepts {
			r := w.cat.Resources.Defs[k]
			if !r.Shares() && r.KindCapacity > 0 {
				kindCap[k] = valuestack.FromFloat[Q](r.KindCapacity)
			}
		}
		filter := map[string]container.Filter{}
		for k, f := range cd.Filter {
			filter[k] = f.Filter()
		}
		p.Container = container.New(container.Config[string, Q]{
			Capacity:     valuestack.FromFloat[Q](cd.Capacity),
			Accepted:     accepts,
			KindCapacity: kindCap,
			Filter:       filter,
			Kinds:        w.cat.KindInfo,
			Holder:       p,
		})
	}

	w.parts[id] = p
	for _, c := range cells {
		w.occupied[c] = id
	}
	w.partIDs.Observe(id)
	return p, nil
}

// DespawnPart removes a part immediately and queues the network teardown.
// Its stored values are discarded with it.
func (w *World[Q]) DespawnPart(id uint64) error {
	p, ok := w.parts[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownPart, id)
	}
	for _, c := range p.cells {
		if w.occupied[c] == id {
			delete(w.occupied, c)
		}
	}
	delete(w.parts, id)
	p.notify = nil
	if m := w.managers[p.NetType]; m != nil {
		m.Deregister(id, p.cells)
	}
	w.emit(Event{Tick: w.CurrentTick(), Type: EventPartDespawned, NetType: p.NetType, PartID: id, Def: p.Def, NetworkID: p.networkID, Pos: posSlice(p.Origin)})
	return nil
}

// AddValue puts amount of kind into a part's container.
func (w *World[Q]) AddValue(partID uint64, kind string, amount Q) (container.Result[string, Q], error) {
	c, err := w.containerFor(partID, kind)
	if err != nil {
		return container.Result[string, Q]{}, err
	}
	return c.TryAdd(kind, amount), nil
}

// RemoveValue takes up to amount of kind out of a part's container.
func (w *World[Q]) RemoveValue(partID uint64, kind string, amount Q) (container.Result[string, Q], error) {
	c, err := w.containerFor(partID, kind)
	if err != nil {
		return container.Result[string, Q]{}, err
	}
	return c.TryRemove(kind, amount), nil
}

func (w *World[Q]) containerFor(partID uint64, kind string) (*container.Container[string, Q], error) {
	if _, ok := w.cat.Resources.Defs[kind]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	c, ok := w.containerOf(partID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d has no container", ErrUnknownPart, partID)
	}
	return c, nil
}

// Fits returns the part of netType occupying pos.
func (w *World[Q]) Fits(pos model.Vec3i, netType string) (netgraph.Part, bool) {
	id, ok := w.occupied[pos]
	if !ok {
		return nil, false
	}
	p := w.parts[id]
	if p == nil || p.NetType != netType {
		return nil, false
	}
	return p, true
}

func (w *World[Q]) PartByID(id uint64) (netgraph.Part, bool) {
	p, ok := w.parts[id]
	if !ok {
		return nil, false
	}
	return p, true
}

func (w *World[Q]) Part(id uint64) (*Part[Q], bool) {
	p, ok := w.parts[id]
	return p, ok
}

// PartIDs returns every live part id, ascending.
func (w *World[Q]) PartIDs() []uint64 {
	out := make([]uint64, 0, len(w.parts))
	for id := range w.parts {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}
