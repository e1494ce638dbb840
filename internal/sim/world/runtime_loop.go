package world

import (
	"context"
	"time"

	"flownet.ai/internal/persistence/snapshot"
	"flownet.ai/internal/sim/world/kernel/model"
)

type SpawnRequest struct {
	Def      string
	Origin   model.Vec3i
	Rotation int
	Resp     chan SpawnResponse
}

type SpawnResponse struct {
	PartID uint64
	Err    error
}

type DespawnRequest struct {
	PartID uint64
	Resp   chan error
}

type SnapshotRequest struct {
	Resp chan snapshot.SnapshotV1
}

func (w *World[Q]) Spawn() chan<- SpawnRequest { return w.spawnReq }

func (w *World[Q]) Despawn() chan<- DespawnRequest { return w.despawnReq }

func (w *World[Q]) SnapshotRequests() chan<- SnapshotRequest { return w.snapshotReq }

func (w *World[Q]) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingSpawns []SpawnRequest
	var pendingDespawns []DespawnRequest
	var pendingSnapshots []SnapshotRequest

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case req := <-w.observerSub:
			w.handleObserverSubscribe(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case req := <-w.spawnReq:
			pendingSpawns = append(pendingSpawns, req)
		case req := <-w.despawnReq:
			pendingDespawns = append(pendingDespawns, req)
		case req := <-w.snapshotReq:
			pendingSnapshots = append(pendingSnapshots, req)
		case <-ticker.C:
			w.applyRequests(pendingSpawns, pendingDespawns)
			nowTick := w.StepOnce()
			for _, req := range pendingSnapshots {
				if req.Resp != nil {
					req.Resp <- w.ExportSnapshot(nowTick)
				}
			}
			pendingSpawns = pendingSpawns[:0]
			pendingDespawns = pendingDespawns[:0]
			pendingSnapshots = pendingSnapshots[:0]
		}
	}
}

func (w *World[Q]) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// applyRequests runs queued despawns before spawns so a part replaced within
// one tick frees its cells first.
func (w *World[Q]) applyRequests(spawns []SpawnRequest, despawns []DespawnRequest) {
	for _, req := range despawns {
		err := w.DespawnPart(req.PartID)
		if req.Resp != nil {
			req.Resp <- err
		}
	}
	for _, req := range spawns {
		p, err := w.SpawnPart(req.Def, req.Origin, req.Rotation)
		var resp SpawnResponse
		if err != nil {
			resp.Err = err
		} else {
			resp.PartID = p.ID
		}
		if req.Resp != nil {
			req.Resp <- resp
		}
	}
}

// StepOnce advances the world by a single tick: lifecycle batch, then flow
// settlement, then observer and sink fan-out. It returns the tick it ran.
func (w *World[Q]) StepOnce() uint64 {
	start := time.Now()
	nowTick := w.tick.Load()

	if nowTick%uint64(w.cfg.BatchEveryTicks) == 0 {
		for _, netType := range w.netTypes {
			m := w.managers[netType]
			m.ProcessBatch(nowTick)
			if w.metrics != nil {
				w.metrics.LiveNetworks(netType, len(m.Networks()))
			}
		}
	}
	if nowTick%uint64(w.cfg.SettleEveryTicks) == 0 {
		for _, netType := range w.netTypes {
			moved := w.managers[netType].TickNetworks(nowTick)
			if w.metrics != nil && moved > 0 {
				w.metrics.Settled(netType, moved)
			}
		}
	}

	events := w.flushEvents()
	w.stepObservers(nowTick, events)
	w.notes = nil

	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && nowTick != 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		snap := w.ExportSnapshot(nowTick)
		select {
		case w.snapshotSink <- snap:
		default:
			w.log.Printf("snapshot sink full; dropping tick %d", nowTick)
		}
	}

	if w.metrics != nil {
		w.metrics.TickObserved(time.Since(start))
	}
	w.tick.Store(nowTick + 1)
	return nowTick
}
