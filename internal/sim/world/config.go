package world

type Config struct {
	ID    string
	RunID string

	TickRateHz int
	// BatchEveryTicks gates network lifecycle batches.
	BatchEveryTicks int
	// SettleEveryTicks gates flow settlement.
	SettleEveryTicks   int
	SnapshotEveryTicks int

	BoundaryR int
	Height    int
	// FlowScale multiplies every network type's flow_per_tick.
	FlowScale float64
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "MAIN"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
	if c.BatchEveryTicks <= 0 {
		c.BatchEveryTicks = 1
	}
	if c.SettleEveryTicks <= 0 {
		c.SettleEveryTicks = 50
	}
	if c.SnapshotEveryTicks < 0 {
		c.SnapshotEveryTicks = 0
	}
	if c.BoundaryR <= 0 {
		c.BoundaryR = 256
	}
	if c.Height <= 0 {
		c.Height = 1
	}
	if c.FlowScale <= 0 {
		c.FlowScale = 1
	}
}
