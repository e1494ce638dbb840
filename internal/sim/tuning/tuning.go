package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`
	// BatchEveryTicks gates network lifecycle batches.
	BatchEveryTicks int `yaml:"batch_every_ticks"`
	// SettleEveryTicks gates flow settlement.
	SettleEveryTicks   int     `yaml:"settle_every_ticks"`
	SnapshotEveryTicks int     `yaml:"snapshot_every_ticks"`
	BoundaryR          int     `yaml:"boundary_r"`
	Height             int     `yaml:"height"`
	FlowScale          float64 `yaml:"flow_scale"`

	Observer Observer `yaml:"observer"`
}

type Observer struct {
	QueueDepth int `yaml:"queue_depth"`
	MaxClients int `yaml:"max_clients"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         5,
		BatchEveryTicks:    1,
		SettleEveryTicks:   50,
		SnapshotEveryTicks: 3000,
		BoundaryR:          256,
		Height:             1,
		FlowScale:          1,
		Observer:           Observer{QueueDepth: 64, MaxClients: 32},
	}
}

// ApplyDefaults fills every unset or invalid field from Defaults.
func (t *Tuning) ApplyDefaults() {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.BatchEveryTicks <= 0 {
		t.BatchEveryTicks = d.BatchEveryTicks
	}
	if t.SettleEveryTicks <= 0 {
		t.SettleEveryTicks = d.SettleEveryTicks
	}
	if t.SnapshotEveryTicks < 0 {
		t.SnapshotEveryTicks = 0
	}
	if t.BoundaryR <= 0 {
		t.BoundaryR = d.BoundaryR
	}
	if t.Height <= 0 {
		t.Height = d.Height
	}
	if t.FlowScale <= 0 {
		t.FlowScale = d.FlowScale
	}
	if t.Observer.QueueDepth <= 0 {
		t.Observer.QueueDepth = d.Observer.QueueDepth
	}
	if t.Observer.MaxClients <= 0 {
		t.Observer.MaxClients = d.Observer.MaxClients
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}
