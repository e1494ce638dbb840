package world

import (
	"encoding/json"
	"strings"

	"flownet.ai/internal/observerproto"
	"flownet.ai/internal/sim/world/feature/network"
	"flownet.ai/internal/sim/world/feature/settle"
	"flownet.ai/internal/sim/world/kernel/model"
	"flownet.ai/internal/sim/world/logic/netgraph"
	"flownet.ai/internal/sim/world/logic/valuestack"
)

// ObserverJoinRequest registers a read-only observer session that receives
// one TICK message per tick on TickOut.
type ObserverJoinRequest struct {
	SessionID  string
	TickOut    chan []byte
	Networks   []string
	Containers bool
}

// ObserverSubscribeRequest updates an existing session's filters.
type ObserverSubscribeRequest struct {
	SessionID  string
	Networks   []string
	Containers bool
}

type observerClient struct {
	id         string
	tickOut    chan []byte
	networks   map[string]bool
	containers bool
}

func (c *observerClient) wants(netType string) bool {
	return len(c.networks) == 0 || c.networks[netType]
}

func (w *World[Q]) ObserverJoin() chan<- ObserverJoinRequest { return w.observerJoin }

func (w *World[Q]) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }

func (w *World[Q]) ObserverLeave() chan<- string { return w.observerLeave }

// Bootstrap describes the world for a new observer. It only reads immutable
// state and the atomic tick, so it is safe off the world goroutine.
func (w *World[Q]) Bootstrap() observerproto.BootstrapResponse {
	quantity := "float"
	if valuestack.IsIntegral[Q]() {
		quantity = "int"
	}
	resp := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldID:         w.cfg.ID,
		RunID:           w.runID,
		Tick:            w.CurrentTick(),
		WorldParams: observerproto.WorldParams{
			TickRateHz:       w.cfg.TickRateHz,
			BatchEveryTicks:  w.cfg.BatchEveryTicks,
			SettleEveryTicks: w.cfg.SettleEveryTicks,
			Height:           w.cfg.Height,
			BoundaryR:        w.cfg.BoundaryR,
			Quantity:         quantity,
		},
		Networks:      w.NetworkTypes(),
		CatalogDigest: w.cat.Digest(),
	}
	for _, id := range w.cat.Resources.Palette {
		d := w.cat.Resources.Defs[id]
		resp.Resources = append(resp.Resources, observerproto.ResourceInfo{ID: id, Color: d.Color, Network: d.Network})
	}
	return resp
}

func netFilter(types []string) map[string]bool {
	if len(types) == 0 {
		return nil
	}
	out := make(map[string]bool, len(types))
	for _, t := range types {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out[t] = true
		}
	}
	return out
}

func (w *World[Q]) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.TickOut == nil {
		return
	}
	if old := w.observers[req.SessionID]; old != nil {
		close(old.tickOut)
	}
	w.observers[req.SessionID] = &observerClient{
		id:         req.SessionID,
		tickOut:    req.TickOut,
		networks:   netFilter(req.Networks),
		containers: req.Containers,
	}
}

func (w *World[Q]) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.networks = netFilter(req.Networks)
	c.containers = req.Containers
}

func (w *World[Q]) handleObserverLeave(sessionID string) {
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	close(c.tickOut)
}

func (w *World[Q]) networkState(n *network.Network) observerproto.NetworkState {
	st := observerproto.NetworkState{ID: n.ID, Type: n.Type, Members: len(n.Members()), Cells: len(n.Cells())}
	if n.Graph != nil {
		st.Nodes = len(n.Graph.Nodes)
		st.Edges = len(n.Graph.Edges)
		var stored Q
		for _, node := range n.Graph.Nodes {
			if c, ok := w.containerOf(node.Part); ok {
				stored = valuestack.AddClamp(stored, c.TotalStored())
			}
		}
		st.Stored = float64(stored)
	}
	st.Junctions = w.junctions(n)
	if s, ok := n.Flow.(*settle.Settler[string, Q]); ok {
		st.LastMoved = s.State().LastMoved
	}
	return st
}

// junctions counts conduit members that branch three or more ways.
func (w *World[Q]) junctions(n *network.Network) int {
	lookup := func(pos model.Vec3i) (netgraph.Part, bool) { return w.Fits(pos, n.Type) }
	count := 0
	for _, id := range n.Members() {
		p, ok := w.parts[id]
		if ok && netgraph.Classify(p, lookup) == netgraph.ClassJunction {
			count++
		}
	}
	return count
}

func (w *World[Q]) stepObservers(nowTick uint64, events []Event) {
	if len(w.observers) == 0 {
		return
	}
	var states []observerproto.NetworkState
	for _, netType := range w.netTypes {
		for _, n := range w.managers[netType].Networks() {
			states = append(states, w.networkState(n))
		}
	}

	for _, c := range w.observers {
		msg := observerproto.TickMsg{
			Type:            "TICK",
			ProtocolVersion: observerproto.Version,
			Tick:            nowTick,
			Networks:        []observerproto.NetworkState{},
		}
		for _, st := range states {
			if c.wants(st.Type) {
				msg.Networks = append(msg.Networks, st)
			}
		}
		for _, e := range events {
			if e.NetType == "" || c.wants(e.NetType) {
				msg.Events = append(msg.Events, e)
			}
		}
		if c.containers {
			for _, note := range w.notes {
				if c.wants(note.NetType) {
					msg.Containers = append(msg.Containers, note)
				}
			}
		}
		b, err := json.Marshal(msg)
		if err != nil {
			w.log.Printf("observer tick marshal: %v", err)
			return
		}
		sendLatest(c.tickOut, b)
	}
}

// sendLatest enqueues b, dropping the oldest queued message when full.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
