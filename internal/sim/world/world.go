package world

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"flownet.ai/internal/observerproto"
	"flownet.ai/internal/persistence/snapshot"
	"flownet.ai/internal/sim/catalogs"
	"flownet.ai/internal/sim/world/feature/network"
	"flownet.ai/internal/sim/world/feature/settle"
	"flownet.ai/internal/sim/world/kernel/model"
	"flownet.ai/internal/sim/world/logic/container"
	"flownet.ai/internal/sim/world/logic/valuestack"
)

var (
	ErrCellOccupied = errors.New("world: cell occupied")
	ErrUnknownPart  = errors.New("world: unknown part")
	ErrOutOfBounds  = errors.New("world: out of bounds")
	ErrUnknownKind  = errors.New("world: unknown resource kind")

	// ErrUnknownNetwork is returned for a network id that no longer exists.
	ErrUnknownNetwork = errors.New("world: unknown network")
)

// Event is one lifecycle or topology record, shared by the event log, the
// index and observers.
type Event = observerproto.Event

const (
	EventPartSpawned      = "PART_SPAWNED"
	EventPartDespawned    = "PART_DESPAWNED"
	EventNetworkCreated   = "NETWORK_CREATED"
	EventNetworkDestroyed = "NETWORK_DESTROYED"
	EventTopologyWarning  = "TOPOLOGY_WARNING"
	EventPayment          = "PAYMENT"
)

type EventSink interface {
	WriteEvent(e Event) error
}

// Metrics receives counters from the world loop.
type Metrics interface {
	NetworkCreated(netType string, members int)
	NetworkDestroyed(netType string)
	BatchAction(netType, kind string)
	TopologyWarning(netType, code string)
	Settled(netType string, moved float64)
	LiveNetworks(netType string, n int)
	TickObserved(d time.Duration)
}

// World is a single-threaded authoritative simulation of typed resource
// networks with quantities of type Q. All state must be accessed only from the
// world loop goroutine.
type World[Q valuestack.Number] struct {
	cfg   Config
	cat   *catalogs.Catalogs
	log   *log.Logger
	runID string

	tick    atomic.Uint64
	partIDs *model.Counter
	netIDs  *model.Counter

	parts    map[uint64]*Part[Q]
	occupied map[model.Vec3i]uint64
	managers map[string]*network.Manager
	netTypes []string

	events  []Event
	notes   []observerproto.ContainerNote
	sinks   []EventSink
	metrics Metrics

	snapshotSink chan<- snapshot.SnapshotV1

	observers map[string]*observerClient

	spawnReq      chan SpawnRequest
	despawnReq    chan DespawnRequest
	snapshotReq   chan SnapshotRequest
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	stop          chan struct{}
	stopOnce      sync.Once
}

func New[Q valuestack.Number](cfg Config, cats *catalogs.Catalogs, logger *log.Logger) (*World[Q], error) {
	if cats == nil {
		return nil, fmt.Errorf("world: nil catalogs")
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	w := &World[Q]{
		cfg:           cfg,
		cat:           cats,
		log:           logger,
		runID:         cfg.RunID,
		partIDs:       model.NewCounter(1),
		netIDs:        model.NewCounter(1),
		parts:         map[uint64]*Part[Q]{},
		occupied:      map[model.Vec3i]uint64{},
		managers:      map[string]*network.Manager{},
		observers:     map[string]*observerClient{},
		spawnReq:      make(chan SpawnRequest, 256),
		despawnReq:    make(chan DespawnRequest, 256),
		snapshotReq:   make(chan SnapshotRequest, 8),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 64),
		observerLeave: make(chan string, 16),
		stop:          make(chan struct{}),
	}
	bounds := network.Bounds{
		Min: model.Vec3i{X: -cfg.BoundaryR, Y: 0, Z: -cfg.BoundaryR},
		Max: model.Vec3i{X: cfg.BoundaryR, Y: cfg.Height - 1, Z: cfg.BoundaryR},
	}
	for _, netType := range cats.Networks.Palette {
		netType := netType
		prefix := fmt.Sprintf("[network:%s] ", strings.ToLower(netType))
		w.managers[netType] = network.NewManager(network.Config{
			Type:    netType,
			Host:    w,
			IDs:     w.netIDs,
			Bounds:  bounds,
			NewFlow: w.flowFactory(netType),
			Logger:  log.New(logger.Writer(), prefix, logger.Flags()),
			Hooks: network.Hooks{
				Created:   func(nowTick uint64, n *network.Network) { w.onNetworkCreated(nowTick, n) },
				Destroyed: func(nowTick uint64, n *network.Network) { w.onNetworkDestroyed(nowTick, n) },
				Warn: func(nowTick uint64, code string, pos model.Vec3i, msg string) {
					w.onTopologyWarning(nowTick, netType, code, pos, msg)
				},
				Action: func(kind network.ActionKind) {
					if w.metrics != nil {
						w.metrics.BatchAction(netType, kind.String())
					}
				},
			},
		})
		w.netTypes = append(w.netTypes, netType)
	}
	return w, nil
}

func (w *World[Q]) flowFactory(netType string) func(*network.Network) network.Flow {
	def := w.cat.Networks.Defs[netType]
	flow := valuestack.FromFloat[Q](def.FlowPerTick * w.cfg.FlowScale)
	whole := def.Integral()
	return func(n *network.Network) network.Flow {
		return settle.New(n.Graph, settle.Config[string, Q]{
			FlowPerTick: flow,
			Whole:       whole,
			Containers:  w.containerOf,
		})
	}
}

func (w *World[Q]) containerOf(partID uint64) (*container.Container[string, Q], bool) {
	p, ok := w.parts[partID]
	if !ok || p.Container == nil {
		return nil, false
	}
	return p.Container, true
}

func (w *World[Q]) Config() Config { return w.cfg }

func (w *World[Q]) RunID() string { return w.runID }

func (w *World[Q]) Catalogs() *catalogs.Catalogs { return w.cat }

func (w *World[Q]) CurrentTick() uint64 { return w.tick.Load() }

// NetworkTypes returns the managed network types, sorted.
func (w *World[Q]) NetworkTypes() []string { return append([]string(nil), w.netTypes...) }

func (w *World[Q]) Manager(netType string) *network.Manager { return w.managers[netType] }

func (w *World[Q]) NetworkAt(netType string, pos model.Vec3i) *network.Network {
	m := w.managers[netType]
	if m == nil {
		return nil
	}
	return m.NetworkAt(pos)
}

// NetworkOf returns the network a part currently belongs to.
func (w *World[Q]) NetworkOf(partID uint64) (*network.Network, bool) {
	p, ok := w.parts[partID]
	if !ok || p.networkID == 0 {
		return nil, false
	}
	m := w.managers[p.NetType]
	if m == nil {
		return nil, false
	}
	return m.Network(p.networkID)
}

func (w *World[Q]) AddEventSink(s EventSink) {
	if s != nil {
		w.sinks = append(w.sinks, s)
	}
}

func (w *World[Q]) SetMetrics(m Metrics) { w.metrics = m }

func (w *World[Q]) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World[Q]) emit(e Event) { w.events = append(w.events, e) }

func (w *World[Q]) onNetworkCreated(nowTick uint64, n *network.Network) {
	e := Event{Tick: nowTick, Type: EventNetworkCreated, NetType: n.Type, NetworkID: n.ID, Members: len(n.Members()), Cells: len(n.Cells())}
	if cells := n.Cells(); len(cells) > 0 {
		e.Pos = posSlice(cells[0])
	}
	w.emit(e)
	if w.metrics != nil {
		w.metrics.NetworkCreated(n.Type, len(n.Members()))
	}
}

func (w *World[Q]) onNetworkDestroyed(nowTick uint64, n *network.Network) {
	w.emit(Event{Tick: nowTick, Type: EventNetworkDestroyed, NetType: n.Type, NetworkID: n.ID, Members: len(n.Members()), Cells: len(n.Cells())})
	if w.metrics != nil {
		w.metrics.NetworkDestroyed(n.Type)
	}
}

func (w *World[Q]) onTopologyWarning(nowTick uint64, netType, code string, pos model.Vec3i, msg string) {
	w.emit(Event{Tick: nowTick, Type: EventTopologyWarning, NetType: netType, Code: code, Pos: posSlice(pos), Message: msg})
	if w.metrics != nil {
		w.metrics.TopologyWarning(netType, code)
	}
}

func posSlice(p model.Vec3i) []int { return []int{p.X, p.Y, p.Z} }
