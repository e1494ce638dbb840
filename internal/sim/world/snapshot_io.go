package world

import (
	"fmt"
	"sort"

	"flownet.ai/internal/persistence/snapshot"
	"flownet.ai/internal/sim/world/feature/settle"
	"flownet.ai/internal/sim/world/kernel/model"
	"flownet.ai/internal/sim/world/logic/container"
	"flownet.ai/internal/sim/world/logic/valuestack"
)

func (w *World[Q]) quantityName() string {
	if valuestack.IsIntegral[Q]() {
		return "int"
	}
	return "float"
}

// ExportSnapshot captures parts, container contents and network identities.
// Pending batch actions are not captured; callers snapshot after a tick.
func (w *World[Q]) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:       snapshot.Version,
			WorldID:       w.cfg.ID,
			RunID:         w.runID,
			Tick:          nowTick,
			CatalogDigest: w.cat.Digest(),
		},
		TickRate:           w.cfg.TickRateHz,
		BatchEveryTicks:    w.cfg.BatchEveryTicks,
		SettleEveryTicks:   w.cfg.SettleEveryTicks,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
		BoundaryR:          w.cfg.BoundaryR,
		Height:             w.cfg.Height,
		FlowScale:          w.cfg.FlowScale,
		Quantity:           w.quantityName(),
		Counters: snapshot.CountersV1{
			NextPart:    w.partIDs.Peek(),
			NextNetwork: w.netIDs.Peek(),
		},
	}

	for _, id := range w.PartIDs() {
		p := w.parts[id]
		pv := snapshot.PartV1{
			ID:        p.ID,
			Def:       p.Def,
			Pos:       p.Origin.ToArray(),
			Rotation:  p.Rotation,
			NetworkID: p.networkID,
		}
		if p.Container != nil {
			pv.Container = containerV1(p.Container.State())
		}
		snap.Parts = append(snap.Parts, pv)
	}

	for _, netType := range w.netTypes {
		for _, n := range w.managers[netType].Networks() {
			cells := n.Cells()
			if len(cells) == 0 {
				continue
			}
			nv := snapshot.NetworkV1{
				ID:      n.ID,
				Type:    n.Type,
				Seed:    cells[0].ToArray(),
				Members: n.Members(),
				Cells:   len(cells),
				Created: n.CreatedTick,
			}
			if s, ok := n.Flow.(*settle.Settler[string, Q]); ok {
				st := s.State()
				nv.FlowLastTick = st.LastTick
				nv.FlowLastMoved = st.LastMoved
				nv.FlowTotalMoved = st.TotalMoved
				nv.FlowPasses = st.Passes
			}
			snap.Networks = append(snap.Networks, nv)
		}
	}
	return snap
}

func containerV1[Q valuestack.Number](s container.SavedState[string, Q]) *snapshot.ContainerV1 {
	out := &snapshot.ContainerV1{Capacity: float64(s.Capacity)}
	if len(s.Stored) > 0 {
		out.Stored = map[string]float64{}
		for k, q := range s.Stored {
			out.Stored[k] = float64(q)
		}
	}
	if len(s.KindCapacity) > 0 {
		out.KindCapacity = map[string]float64{}
		for k, q := range s.KindCapacity {
			out.KindCapacity[k] = float64(q)
		}
	}
	if len(s.Filter) > 0 {
		out.Filter = map[string]snapshot.FilterV1{}
		for k, f := range s.Filter {
			out.Filter[k] = snapshot.FilterV1{CanReceive: f.CanReceive, CanStore: f.CanStore, CanTransfer: f.CanTransfer}
		}
	}
	return out
}

func savedState[Q valuestack.Number](c *snapshot.ContainerV1) container.SavedState[string, Q] {
	s := container.SavedState[string, Q]{Capacity: valuestack.FromFloat[Q](c.Capacity)}
	if len(c.Stored) > 0 {
		s.Stored = map[string]Q{}
		for k, q := range c.Stored {
			s.Stored[k] = valuestack.FromFloat[Q](q)
		}
	}
	if len(c.KindCapacity) > 0 {
		s.KindCapacity = map[string]Q{}
		for k, q := range c.KindCapacity {
			s.KindCapacity[k] = valuestack.FromFloat[Q](q)
		}
	}
	if len(c.Filter) > 0 {
		s.Filter = map[string]container.Filter{}
		for k, f := range c.Filter {
			s.Filter[k] = container.Filter{CanReceive: f.CanReceive, CanStore: f.CanStore, CanTransfer: f.CanTransfer}
		}
	}
	return s
}

// ImportSnapshot loads a snapshot into an empty world. Networks keep their
// saved ids; their graphs are rediscovered from the seed cell. Parts left
// uncovered by any saved network are queued for the next batch.
func (w *World[Q]) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if len(w.parts) != 0 {
		return fmt.Errorf("world: import into non-empty world (%d parts)", len(w.parts))
	}
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("world: unsupported snapshot version %d", snap.Header.Version)
	}
	if d := w.cat.Digest(); snap.Header.CatalogDigest != "" && snap.Header.CatalogDigest != d {
		w.log.Printf("snapshot catalog digest %s differs from loaded %s", snap.Header.CatalogDigest, d)
	}

	parts := append([]snapshot.PartV1(nil), snap.Parts...)
	sort.Slice(parts, func(i, j int) bool { return parts[i].ID < parts[j].ID })
	for _, pv := range parts {
		p, err := w.place(pv.ID, pv.Def, model.VecFromArray(pv.Pos), pv.Rotation)
		if err != nil {
			return fmt.Errorf("world: import part %d: %w", pv.ID, err)
		}
		if pv.Container != nil && p.Container != nil {
			p.Container.LoadState(savedState[Q](pv.Container))
			p.Container.NotifyContainerStateChanged()
		}
	}

	nets := append([]snapshot.NetworkV1(nil), snap.Networks...)
	sort.Slice(nets, func(i, j int) bool { return nets[i].ID < nets[j].ID })
	for _, nv := range nets {
		m := w.managers[nv.Type]
		if m == nil {
			return fmt.Errorf("world: import network %d: unknown type %s", nv.ID, nv.Type)
		}
		n, err := m.Restore(nv.ID, model.VecFromArray(nv.Seed))
		if err != nil {
			w.log.Printf("import: %v", err)
			continue
		}
		n.CreatedTick = nv.Created
		if s, ok := n.Flow.(*settle.Settler[string, Q]); ok {
			s.SetState(settle.State{
				LastTick:   nv.FlowLastTick,
				LastMoved:  nv.FlowLastMoved,
				TotalMoved: nv.FlowTotalMoved,
				Passes:     nv.FlowPasses,
			})
		}
	}

	for _, id := range w.PartIDs() {
		p := w.parts[id]
		if p.networkID == 0 {
			w.managers[p.NetType].Register(p.ID, p.cells)
		}
	}

	if snap.Counters.NextPart > 0 {
		w.partIDs.Observe(snap.Counters.NextPart - 1)
	}
	if snap.Counters.NextNetwork > 0 {
		w.netIDs.Observe(snap.Counters.NextNetwork - 1)
	}
	w.tick.Store(snap.Header.Tick + 1)
	w.notes = nil
	w.events = nil
	return nil
}
