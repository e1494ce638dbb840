package world

import (
	"fmt"
	"sort"

	"flownet.ai/internal/observerproto"
	"flownet.ai/internal/sim/world/logic/valuestack"
)

func (w *World[Q]) onContainerChanged(p *Part[Q], delta valuestack.Delta[string, Q], full valuestack.Stack[string, Q]) {
	if len(w.observers) == 0 || delta.IsZero() {
		return
	}
	note := observerproto.ContainerNote{
		PartID:    p.ID,
		NetType:   p.NetType,
		NetworkID: p.networkID,
		Added:     floatMap(delta.Added),
		Removed:   floatMap(delta.Removed),
		Stored:    floatMap(full),
	}
	if note.Stored == nil {
		note.Stored = map[string]float64{}
	}
	if c := p.Container; c != nil {
		note.Fill = c.FillState().String()
		col := c.Color()
		note.Color = fmt.Sprintf("#%02X%02X%02X%02X", col.R, col.G, col.B, col.A)
	}
	w.notes = append(w.notes, note)
}

// flushEvents hands this tick's events to every sink. Sink errors are logged
// and never stop the tick.
func (w *World[Q]) flushEvents() []Event {
	events := w.events
	w.events = nil
	for _, s := range w.sinks {
		for _, e := range events {
			if err := s.WriteEvent(e); err != nil {
				w.log.Printf("event sink: %v", err)
				break
			}
		}
	}
	return events
}

func floatMap[Q valuestack.Number](s valuestack.Stack[string, Q]) map[string]float64 {
	if s.IsEmpty() {
		return nil
	}
	out := make(map[string]float64, s.Len())
	for _, e := range s.Entries() {
		out[e.Kind] = float64(e.Qty)
	}
	return out
}

func sortIDs(ids []uint64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
