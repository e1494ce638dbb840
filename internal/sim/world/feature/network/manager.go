package network

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"

	"flownet.ai/internal/sim/world/kernel/model"
	"flownet.ai/internal/sim/world/logic/netgraph"
)

const (
	WarnCellClaimed  = "W_CELL_CLAIMED"
	WarnCellMismatch = "W_CELL_MISMATCH"
	WarnNoNodes      = "W_NO_NODES"
	WarnPartGone     = "W_PART_GONE"
)

// Hooks observe the manager. Every field is optional.
type Hooks struct {
	Created   func(nowTick uint64, n *Network)
	Destroyed func(nowTick uint64, n *Network)
	Warn      func(nowTick uint64, code string, pos model.Vec3i, msg string)
	Action    func(kind ActionKind)
}

type Config struct {
	Type   string
	Host   Host
	IDs    *model.Counter
	Bounds Bounds
	// NewFlow builds the settlement state for a freshly discovered network.
	NewFlow func(n *Network) Flow
	Logger  *log.Logger
	Hooks   Hooks
}

// BatchStats summarizes one ProcessBatch call.
type BatchStats struct {
	Actions   int
	Destroyed int
	Created   int
	Warnings  int
}

// Manager is the lifecycle manager for one network type in one world. It is
// not safe for concurrent use.
type Manager struct {
	netType string
	host    Host
	ids     *model.Counter
	newFlow func(*Network) Flow
	log     *log.Logger
	hooks   Hooks

	grid     *CellGrid
	queue    []Action
	networks map[uint64]*Network

	nowTick uint64
	stats   *BatchStats
}

func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ids := cfg.IDs
	if ids == nil {
		ids = model.NewCounter(1)
	}
	return &Manager{
		netType:  cfg.Type,
		host:     cfg.Host,
		ids:      ids,
		newFlow:  cfg.NewFlow,
		log:      logger,
		hooks:    cfg.Hooks,
		grid:     NewCellGrid(cfg.Bounds),
		networks: map[uint64]*Network{},
	}
}

func (m *Manager) Type() string { return m.netType }

// Pending is the number of queued actions.
func (m *Manager) Pending() int { return len(m.queue) }

func (m *Manager) Register(partID uint64, cells []model.Vec3i) {
	m.enqueue(Register, partID, cells)
}

func (m *Manager) Deregister(partID uint64, cells []model.Vec3i) {
	m.enqueue(Deregister, partID, cells)
}

func (m *Manager) enqueue(kind ActionKind, partID uint64, cells []model.Vec3i) {
	if partID == 0 || len(cells) == 0 {
		return
	}
	m.queue = append(m.queue, Action{Kind: kind, PartID: partID, Cells: append([]model.Vec3i(nil), cells...)})
}

func (m *Manager) NetworkAt(p model.Vec3i) *Network { return m.grid.At(p) }

func (m *Manager) Network(id uint64) (*Network, bool) {
	n, ok := m.networks[id]
	return n, ok
}

// Networks returns live networks ordered by id.
func (m *Manager) Networks() []*Network {
	out := make([]*Network, 0, len(m.networks))
	for _, n := range m.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ProcessBatch drains the queue. Every destruction is applied before any
// creation so creation-phase coverage checks see the fully torn-down state.
func (m *Manager) ProcessBatch(nowTick uint64) BatchStats {
	actions := m.queue
	m.queue = nil
	stats := BatchStats{Actions: len(actions)}
	if len(actions) == 0 {
		return stats
	}
	m.nowTick = nowTick
	m.stats = &stats
	defer func() { m.stats = nil }()

	for _, a := range actions {
		if m.hooks.Action != nil {
			m.hooks.Action(a.Kind)
		}
	}

	var orphans []uint64
	destroy := func(n *Network) {
		if n == nil || n.destroyed {
			return
		}
		orphans = append(orphans, n.Members()...)
		m.Destroy(n)
	}

	for _, a := range actions {
		switch a.Kind {
		case Register:
			own := cellSet(a.Cells)
			for _, c := range a.Cells {
				if n := m.grid.At(c); n != nil && !n.HasMember(a.PartID) {
					m.warn(WarnCellClaimed, c, fmt.Sprintf("cell already claimed by network %d on register of part %d", n.ID, a.PartID))
					destroy(n)
					m.grid.Clear(c, n)
				}
			}
			for _, c := range a.Cells {
				for _, nb := range model.Neighbors(c) {
					if own[nb] {
						continue
					}
					destroy(m.grid.At(nb))
				}
			}
		case Deregister:
			for _, c := range a.Cells {
				destroy(m.grid.At(c))
			}
		}
	}

	tried := map[uint64]bool{}
	for _, a := range actions {
		switch a.Kind {
		case Register:
			p, ok := m.host.PartByID(a.PartID)
			if ok {
				m.seed(p, tried)
			}
			m.seedAround(a.Cells, tried)
		case Deregister:
			m.seedAround(a.Cells, tried)
		}
	}
	for _, id := range orphans {
		if p, ok := m.host.PartByID(id); ok {
			m.seed(p, tried)
		}
	}
	return stats
}

func (m *Manager) seedAround(cells []model.Vec3i, tried map[uint64]bool) {
	own := cellSet(cells)
	for _, c := range cells {
		for _, nb := range model.Neighbors(c) {
			if own[nb] || m.grid.At(nb) != nil {
				continue
			}
			p, ok := m.host.Fits(nb, m.netType)
			if !ok {
				continue
			}
			m.seed(p, tried)
		}
	}
}

// seed discovers the cluster around p unless p is already covered or was
// part of a cluster already tried in this batch.
func (m *Manager) seed(p netgraph.Part, tried map[uint64]bool) {
	if p == nil || tried[p.PartID()] {
		return
	}
	for _, c := range p.Cells() {
		if m.grid.At(c) != nil {
			return
		}
	}
	g, err := netgraph.Discover(p, m.lookup)
	if g != nil {
		for _, id := range g.Members {
			tried[id] = true
		}
	}
	if err != nil {
		if errors.Is(err, netgraph.ErrNoNodes) {
			var pos model.Vec3i
			if cells := p.Cells(); len(cells) > 0 {
				pos = cells[0]
			}
			m.warn(WarnNoNodes, pos, fmt.Sprintf("cluster of %d parts around part %d has no nodes", len(g.Members), p.PartID()))
			return
		}
		m.log.Printf("discover from part %d: %v", p.PartID(), err)
		return
	}
	m.install(m.ids.Next(), g)
}

func (m *Manager) lookup(pos model.Vec3i) (netgraph.Part, bool) {
	return m.host.Fits(pos, m.netType)
}

func (m *Manager) install(id uint64, g *netgraph.Graph) *Network {
	n := &Network{ID: id, Type: m.netType, Graph: g, CreatedTick: m.nowTick}
	for _, c := range g.Cells {
		if prev := m.grid.Set(c, n); prev != nil && prev != n {
			m.warn(WarnCellMismatch, c, fmt.Sprintf("cell held by network %d while installing network %d", prev.ID, id))
		}
	}
	for _, pid := range g.Members {
		p, ok := m.host.PartByID(pid)
		if !ok {
			continue
		}
		if mb, ok := p.(Member); ok {
			mb.SetNetworkID(id)
		}
	}
	if m.newFlow != nil {
		n.Flow = m.newFlow(n)
	}
	m.networks[id] = n
	if m.stats != nil {
		m.stats.Created++
	}
	if m.hooks.Created != nil {
		m.hooks.Created(m.nowTick, n)
	}
	return n
}

// Destroy tears n down: grid cells it still holds are cleared and every
// member's back reference is reset before the graph and flow are dropped.
// Destroying an already destroyed network is a no-op.
func (m *Manager) Destroy(n *Network) bool {
	if n == nil || n.destroyed {
		return false
	}
	for _, c := range n.Cells() {
		m.grid.Clear(c, n)
	}
	for _, pid := range n.Members() {
		p, ok := m.host.PartByID(pid)
		if !ok {
			continue
		}
		if mb, ok := p.(Member); ok && mb.NetworkID() == n.ID {
			mb.SetNetworkID(0)
		}
	}
	n.destroyed = true
	delete(m.networks, n.ID)
	if m.stats != nil {
		m.stats.Destroyed++
	}
	if m.hooks.Destroyed != nil {
		m.hooks.Destroyed(m.nowTick, n)
	}
	n.Flow = nil
	n.Graph = nil
	return true
}

// Restore rebuilds a saved network under its saved id by discovering from
// seed. The id counter is bumped past id.
func (m *Manager) Restore(id uint64, seed model.Vec3i) (*Network, error) {
	if id == 0 {
		return nil, fmt.Errorf("restore %s network: zero id", m.netType)
	}
	if _, ok := m.networks[id]; ok {
		return nil, fmt.Errorf("restore %s network %d: id in use", m.netType, id)
	}
	if n := m.grid.At(seed); n != nil {
		return nil, fmt.Errorf("restore %s network %d: seed %v covered by network %d", m.netType, id, seed, n.ID)
	}
	p, ok := m.host.Fits(seed, m.netType)
	if !ok {
		return nil, fmt.Errorf("restore %s network %d: no part at %v", m.netType, id, seed)
	}
	g, err := netgraph.Discover(p, m.lookup)
	if err != nil {
		return nil, fmt.Errorf("restore %s network %d: %w", m.netType, id, err)
	}
	m.ids.Observe(id)
	return m.install(id, g), nil
}

// TickNetworks runs one settlement pass on every live network in id order and
// returns the total quantity moved.
func (m *Manager) TickNetworks(nowTick uint64) float64 {
	var moved float64
	for _, n := range m.Networks() {
		if n.Flow == nil {
			continue
		}
		moved += n.Flow.Tick(nowTick)
	}
	return moved
}

func (m *Manager) warn(code string, pos model.Vec3i, msg string) {
	m.log.Printf("warn %s at %v: %s", code, pos.ToArray(), msg)
	if m.stats != nil {
		m.stats.Warnings++
	}
	if m.hooks.Warn != nil {
		m.hooks.Warn(m.nowTick, code, pos, msg)
	}
}

func cellSet(cells []model.Vec3i) map[model.Vec3i]bool {
	out := make(map[model.Vec3i]bool, len(cells))
	for _, c := range cells {
		out[c] = true
	}
	return out
}
