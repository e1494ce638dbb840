package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"flownet.ai/internal/sim/world"
)

var _ world.Metrics = (*Registry)(nil)

func TestNetworkCounters(t *testing.T) {
	r := NewRegistry()
	r.NetworkCreated("FLUID", 3)
	r.NetworkCreated("FLUID", 5)
	r.NetworkDestroyed("FLUID")

	var m dto.Metric
	if err := r.NetworksCreated.WithLabelValues("FLUID").Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Fatalf("created=%v, want 2", got)
	}
	m.Reset()
	if err := r.NetworkMembers.WithLabelValues("FLUID").(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetHistogram().GetSampleSum(); got != 8 {
		t.Fatalf("member sum=%v, want 8", got)
	}
}

func TestSettledIgnoresZero(t *testing.T) {
	r := NewRegistry()
	r.Settled("POWER", 0)
	r.Settled("POWER", 2.5)

	var m dto.Metric
	if err := r.SettledTotal.WithLabelValues("POWER").Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 2.5 {
		t.Fatalf("settled=%v, want 2.5", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.LiveNetworks("FLUID", 4)
	r.TopologyWarning("FLUID", "W_NO_NODES")

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	body := string(b)
	for _, want := range []string{
		`flownet_networks_live{type="FLUID"} 4`,
		`flownet_topology_warnings_total{code="W_NO_NODES",type="FLUID"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}
