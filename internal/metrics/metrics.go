// Package metrics exposes world lifecycle and flow counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the flow network metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	NetworksCreated   *prometheus.CounterVec
	NetworksDestroyed *prometheus.CounterVec
	NetworkMembers    *prometheus.HistogramVec
	LiveNetworksGauge *prometheus.GaugeVec
	BatchActions      *prometheus.CounterVec
	TopologyWarnings  *prometheus.CounterVec
	SettledTotal      *prometheus.CounterVec

	ObserverClients prometheus.Gauge
	TickDuration    prometheus.Histogram
}

func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.NetworksCreated = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flownet_networks_created_total",
			Help: "Networks created by lifecycle batches",
		},
		[]string{"type"},
	)
	r.NetworksDestroyed = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flownet_networks_destroyed_total",
			Help: "Networks destroyed by lifecycle batches",
		},
		[]string{"type"},
	)
	r.NetworkMembers = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flownet_network_members",
			Help:    "Member count of newly created networks",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"type"},
	)
	r.LiveNetworksGauge = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flownet_networks_live",
			Help: "Networks currently alive",
		},
		[]string{"type"},
	)
	r.BatchActions = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flownet_batch_actions_total",
			Help: "Register and deregister actions processed",
		},
		[]string{"type", "kind"},
	)
	r.TopologyWarnings = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flownet_topology_warnings_total",
			Help: "Topology warnings raised during batches",
		},
		[]string{"type", "code"},
	)
	r.SettledTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flownet_settled_total",
			Help: "Quantity moved by settlement passes",
		},
		[]string{"type"},
	)
	r.ObserverClients = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "flownet_observer_clients",
			Help: "Connected observer websocket clients",
		},
	)
	r.TickDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flownet_tick_duration_seconds",
			Help:    "Wall time of one world tick",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)
	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) NetworkCreated(netType string, members int) {
	r.NetworksCreated.WithLabelValues(netType).Inc()
	r.NetworkMembers.WithLabelValues(netType).Observe(float64(members))
}

func (r *Registry) NetworkDestroyed(netType string) {
	r.NetworksDestroyed.WithLabelValues(netType).Inc()
}

func (r *Registry) BatchAction(netType, kind string) {
	r.BatchActions.WithLabelValues(netType, kind).Inc()
}

func (r *Registry) TopologyWarning(netType, code string) {
	r.TopologyWarnings.WithLabelValues(netType, code).Inc()
}

func (r *Registry) Settled(netType string, moved float64) {
	if moved > 0 {
		r.SettledTotal.WithLabelValues(netType).Add(moved)
	}
}

func (r *Registry) LiveNetworks(netType string, n int) {
	r.LiveNetworksGauge.WithLabelValues(netType).Set(float64(n))
}

func (r *Registry) TickObserved(d time.Duration) {
	r.TickDuration.Observe(d.Seconds())
}
