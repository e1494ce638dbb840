package container

import (
	"image/color"
	"testing"

	"flownet.ai/internal/sim/world/logic/valuestack"
)

type recordingHolder struct {
	calls  int
	last   valuestack.Delta[string, int]
	latest valuestack.Stack[string, int]
}

func (h *recordingHolder) ContainerStateChanged(delta valuestack.Delta[string, int], full valuestack.Stack[string, int]) {
	h.calls++
	h.last = delta
	h.latest = full
}

var testKinds = map[string]KindInfo{
	"water": {SharesCapacity: true, Color: color.NRGBA{B: 255, A: 255}},
	"oil":   {SharesCapacity: true, Color: color.NRGBA{R: 40, G: 40, B: 40, A: 255}},
	"steam": {SharesCapacity: false, Color: color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
}

func kindInfo(k string) KindInfo { return testKinds[k] }

func newIntContainer(capacity int, accepted ...string) (*Container[string, int], *recordingHolder) {
	h := &recordingHolder{}
	c := New(Config[string, int]{
		Capacity: capacity,
		Accepted: accepted,
		Kinds:    kindInfo,
		Holder:   h,
	})
	return c, h
}

func TestTryAddOverCapacityReportsShortage(t *testing.T) {
	c, h := newIntContainer(100, "water")
	r := c.TryAdd("water", 150)
	if r.Actual != 100 || r.State != CompletedWithShortage {
		t.Fatalf("TryAdd=%v, want actual=100 shortage", r)
	}
	if c.TotalStored() != 100 {
		t.Fatalf("TotalStored=%d, want 100", c.TotalStored())
	}
	if h.calls != 1 || h.last.Added.Get("water") != 100 {
		t.Fatalf("holder calls=%d delta=%v", h.calls, h.last)
	}
	if c.FillState() != Full {
		t.Fatalf("FillState=%v, want FULL", c.FillState())
	}
	if again := c.TryAdd("water", 1); again.OK() || again.Code != CodeFull {
		t.Fatalf("add to full container=%v", again)
	}
}

func TestTryAddRejections(t *testing.T) {
	c, h := newIntContainer(10, "water")
	if r := c.TryAdd("oil", 1); r.OK() || r.Code != CodeNotAccepted {
		t.Fatalf("unaccepted kind=%v", r)
	}
	if r := c.TryAdd("water", 0); r.OK() || r.Code != CodeBadAmount {
		t.Fatalf("zero amount=%v", r)
	}
	c.SetFilter("water", Filter{CanReceive: false, CanStore: true, CanTransfer: true})
	if r := c.TryAdd("water", 1); r.OK() {
		t.Fatalf("filtered kind accepted: %v", r)
	}
	if h.calls != 0 {
		t.Fatalf("failed transactions notified holder %d times", h.calls)
	}
}

func TestHooksVeto(t *testing.T) {
	c := New(Config[string, int]{
		Capacity: 10,
		Accepted: []string{"water"},
		Hooks: Hooks[string, int]{
			CanAddValue:    func(kind string, amount int) bool { return amount < 5 },
			CanRemoveValue: func(kind string, amount int) bool { return false },
		},
	})
	if r := c.TryAdd("water", 5); r.OK() || r.Code != CodeRejected {
		t.Fatalf("hooked add=%v", r)
	}
	if r := c.TryAdd("water", 4); !r.OK() {
		t.Fatalf("small add failed: %v", r)
	}
	if r := c.TryRemove("water", 1); r.OK() || r.Code != CodeRejected {
		t.Fatalf("hooked remove=%v", r)
	}
}

func TestTryRemove(t *testing.T) {
	c, _ := newIntContainer(50, "water", "oil")
	c.TryAdd("water", 20)
	if r := c.TryRemove("oil", 1); r.OK() || r.Code != CodeEmpty {
		t.Fatalf("remove absent=%v", r)
	}
	r := c.TryRemove("water", 30)
	if r.Actual != 20 || r.State != CompletedWithShortage {
		t.Fatalf("remove=%v", r)
	}
	if c.Stack().Contains("water") {
		t.Fatalf("expected water key removed, stack=%v", c.Stack())
	}
}

func TestNonSharingKindHasOwnBound(t *testing.T) {
	c := New(Config[string, int]{
		Capacity:     100,
		Accepted:     []string{"water", "steam"},
		KindCapacity: map[string]int{"steam": 30},
		Kinds:        kindInfo,
	})
	if r := c.TryAdd("water", 100); r.Actual != 100 {
		t.Fatalf("water add=%v", r)
	}
	// Aggregate is full but steam is bounded separately.
	if r := c.TryAdd("steam", 50); r.Actual != 30 || r.State != CompletedWithShortage {
		t.Fatalf("steam add=%v", r)
	}
	if c.CapacityOf("steam") != 30 || c.CapacityOf("water") != 100 {
		t.Fatalf("CapacityOf steam=%d water=%d", c.CapacityOf("steam"), c.CapacityOf("water"))
	}
	if c.TotalStored() != 130 {
		t.Fatalf("TotalStored=%d, want 130", c.TotalStored())
	}
}

func TestFillIgnoresSeparatelyBoundedKinds(t *testing.T) {
	c := New(Config[string, int]{
		Capacity:     100,
		Accepted:     []string{"water", "steam"},
		KindCapacity: map[string]int{"steam": 30},
		Kinds:        kindInfo,
	})
	c.TryAdd("steam", 10)
	if c.FillState() != PartiallyFull || c.FillRatio() != 0 {
		t.Fatalf("steam only: fill=%v ratio=%v, want PARTIAL 0", c.FillState(), c.FillRatio())
	}
	c.TryAdd("water", 100)
	if c.FillState() != Full || c.FillRatio() != 1 {
		t.Fatalf("water full: fill=%v ratio=%v, want FULL 1", c.FillState(), c.FillRatio())
	}
	c.TryRemove("steam", 10)
	if used, bound := c.Fill(); c.FillState() != Full || used != 100 || bound != 100 {
		t.Fatalf("no steam: fill=%v used=%d bound=%d", c.FillState(), used, bound)
	}

	vent := New(Config[string, int]{
		Capacity:     100,
		Accepted:     []string{"steam"},
		KindCapacity: map[string]int{"steam": 30},
		Kinds:        kindInfo,
	})
	vent.TryAdd("steam", 15)
	if vent.FillRatio() != 0.5 || vent.FillState() != PartiallyFull {
		t.Fatalf("vent: ratio=%v fill=%v", vent.FillRatio(), vent.FillState())
	}
	vent.TryAdd("steam", 15)
	if vent.FillState() != Full {
		t.Fatalf("vent fill=%v, want FULL", vent.FillState())
	}
}

func TestTransferValueMovesEverything(t *testing.T) {
	a, _ := newIntContainer(50, "water")
	b, hb := newIntContainer(50, "water")
	a.TryAdd("water", 40)

	r := a.TryTransferValue(b, "water", 40)
	if !r.OK() || r.Actual() != 40 || r.State != Completed {
		t.Fatalf("transfer=%+v", r)
	}
	if a.TotalStored() != 0 || b.TotalStored() != 40 {
		t.Fatalf("a=%d b=%d", a.TotalStored(), b.TotalStored())
	}
	if hb.latest.Get("water") != 40 {
		t.Fatalf("receiver holder saw %v", hb.latest)
	}
}

func TestTransferValueClampsToReceiverRoom(t *testing.T) {
	a, _ := newIntContainer(100, "water")
	b, _ := newIntContainer(30, "water")
	a.TryAdd("water", 80)
	b.TryAdd("water", 10)

	r := a.TryTransferValue(b, "water", 50)
	if r.Actual() != 20 || r.State != CompletedWithShortage {
		t.Fatalf("transfer=%+v", r)
	}
	if a.TotalStored()+b.TotalStored() != 90 {
		t.Fatalf("combined=%d, want 90", a.TotalStored()+b.TotalStored())
	}
}

func TestTransferValueRefundsVetoedPart(t *testing.T) {
	a, _ := newIntContainer(100, "water")
	b := New(Config[string, int]{
		Capacity: 100,
		Accepted: []string{"water"},
		Hooks:    Hooks[string, int]{CanAddValue: func(string, int) bool { return false }},
	})
	a.TryAdd("water", 10)
	r := a.TryTransferValue(b, "water", 10)
	if r.OK() {
		t.Fatalf("vetoed transfer reported ok: %+v", r)
	}
	if a.StoredOf("water") != 10 || b.TotalStored() != 0 {
		t.Fatalf("a=%d b=%d", a.StoredOf("water"), b.TotalStored())
	}
}

func TestTransferToSplitsAcrossKinds(t *testing.T) {
	a, _ := newIntContainer(100, "water", "oil")
	b, _ := newIntContainer(100, "water", "oil")
	a.TryAdd("water", 30)
	a.TryAdd("oil", 30)

	s := a.TryTransferTo(b, 21)
	if s.Actual != 21 || s.State != Completed {
		t.Fatalf("summary=%+v", s)
	}
	// oil sorts first and takes the odd unit.
	if b.StoredOf("oil") != 11 || b.StoredOf("water") != 10 {
		t.Fatalf("b oil=%d water=%d", b.StoredOf("oil"), b.StoredOf("water"))
	}
}

func TestTransferWholeToKeepsUnitsWhole(t *testing.T) {
	mk := func() *Container[string, float64] {
		return New(Config[string, float64]{Capacity: 100, Accepted: []string{"water", "oil"}, Kinds: kindInfo})
	}
	a, b := mk(), mk()
	a.TryAdd("oil", 3)
	a.TryAdd("water", 4)

	s := a.TryTransferWholeTo(b, 3.5)
	if s.Actual != 3 {
		t.Fatalf("actual=%v, want 3", s.Actual)
	}
	// Three units over two kinds: oil sorts first and takes the odd one.
	if b.StoredOf("oil") != 2 || b.StoredOf("water") != 1 {
		t.Fatalf("b oil=%v water=%v, want 2/1", b.StoredOf("oil"), b.StoredOf("water"))
	}
	if a.StoredOf("oil") != 1 || a.StoredOf("water") != 3 {
		t.Fatalf("a oil=%v water=%v, want 1/3", a.StoredOf("oil"), a.StoredOf("water"))
	}

	// Less than one unit per kind still moves whole units.
	c := mk()
	c.TryAdd("oil", 1)
	c.TryAdd("water", 1)
	if s := c.TryTransferWholeTo(mk(), 1); s.Actual != 1 || s.Moved.Get("oil") != 1 {
		t.Fatalf("summary=%+v moved=%v", s, s.Moved)
	}
}

func TestTransferToStopsAtFirstRefusedKind(t *testing.T) {
	a, _ := newIntContainer(100, "water", "oil")
	b, _ := newIntContainer(100, "water")
	a.TryAdd("water", 10)
	a.TryAdd("oil", 10)

	s := a.TryTransferTo(b, 10)
	if s.Actual != 0 || s.OK() {
		t.Fatalf("expected oil refusal to stop the transfer, got %+v", s)
	}
	if b.TotalStored() != 0 {
		t.Fatalf("b=%d", b.TotalStored())
	}
}

func TestTryConsume(t *testing.T) {
	c, _ := newIntContainer(100, "water", "oil")
	c.TryAdd("water", 5)
	c.TryAdd("oil", 3)

	s := c.TryConsume(6)
	if s.Actual != 6 || s.State != Completed || s.Moved.Get("oil") != 3 || s.Moved.Get("water") != 3 {
		t.Fatalf("consume=%+v moved=%v", s, s.Moved)
	}
	s = c.TryConsume(10)
	if s.Actual != 2 || s.State != CompletedWithShortage {
		t.Fatalf("second consume=%+v", s)
	}
	if s = c.TryConsume(1); s.OK() {
		t.Fatalf("consume from empty=%+v", s)
	}
	if r := c.TryConsumeKind("water", 1); r.OK() {
		t.Fatalf("consume kind from empty=%v", r)
	}
}

func TestClearNotifiesPerKind(t *testing.T) {
	c, h := newIntContainer(100, "water", "oil")
	c.TryAdd("water", 5)
	c.TryAdd("oil", 3)
	h.calls = 0

	removed := c.Clear()
	if removed.Total() != 8 || c.TotalStored() != 0 {
		t.Fatalf("removed=%v left=%d", removed, c.TotalStored())
	}
	if h.calls != 2 {
		t.Fatalf("holder calls=%d, want 2", h.calls)
	}
	if c.FillState() != Empty || c.Color() != (color.NRGBA{}) {
		t.Fatalf("fill=%v color=%v", c.FillState(), c.Color())
	}
}

func TestColorBlend(t *testing.T) {
	c := New(Config[string, float64]{
		Capacity: 100,
		Accepted: []string{"water"},
		Kinds:    kindInfo,
	})
	c.TryAdd("water", 50)
	got := c.Color()
	if got.B != 255 || got.R != 0 || got.A != 128 {
		t.Fatalf("Color=%v", got)
	}
}

func TestSavedStateRoundTrip(t *testing.T) {
	c, _ := newIntContainer(100, "water", "oil")
	c.TryAdd("water", 25)
	c.TryAdd("oil", 15)
	c.SetFilter("oil", Filter{CanReceive: true, CanStore: false, CanTransfer: true})

	saved := c.State()
	d, h := newIntContainer(1, "water", "oil")
	d.LoadState(saved)
	d.NotifyContainerStateChanged()

	if d.TotalStored() != c.TotalStored() || d.FillState() != c.FillState() || d.Color() != c.Color() {
		t.Fatalf("total=%d/%d fill=%v/%v color=%v/%v",
			d.TotalStored(), c.TotalStored(), d.FillState(), c.FillState(), d.Color(), c.Color())
	}
	if d.CanStore("oil") {
		t.Fatalf("filter not restored")
	}
	if h.calls != 1 || h.latest.Total() != 40 {
		t.Fatalf("holder calls=%d latest=%v", h.calls, h.latest)
	}
}
