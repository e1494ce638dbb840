package ports

import (
	"testing"

	"flownet.ai/internal/sim/world/kernel/model"
)

func single(origin model.Vec3i) []Cell {
	return Resolve(Pattern{}, nil, origin, 0)
}

func TestUniformDefaultOpensEveryFace(t *testing.T) {
	cells := single(model.Vec3i{X: 2, Z: 3})
	if len(cells) != 4 {
		t.Fatalf("len=%d, want 4", len(cells))
	}
	for _, c := range cells {
		if c.Mode != TwoWay || c.Pos != (model.Vec3i{X: 2, Z: 3}) {
			t.Fatalf("cell=%+v", c)
		}
	}
	big := Resolve(Pattern{}, []model.Vec3i{{}, {X: 1}}, model.Vec3i{}, 0)
	if len(big) != 6 {
		t.Fatalf("2-cell footprint ports=%d, want 6", len(big))
	}
}

func TestTwoWayNeighborsAreBidirectional(t *testing.T) {
	a := single(model.Vec3i{})
	b := single(model.Vec3i{X: 1})
	c := ConnectsTo(a, b)
	if !c.Valid || !c.Forward || !c.Backward || !c.Bidirectional {
		t.Fatalf("conn=%+v", c)
	}
	if c.From.Dir != model.East || c.To.Dir != model.West {
		t.Fatalf("dirs from=%v to=%v", c.From.Dir, c.To.Dir)
	}
	if ConnectsTo(a, single(model.Vec3i{X: 2})).Valid {
		t.Fatalf("non-adjacent parts connected")
	}
}

func TestOutputFeedsInputOneWay(t *testing.T) {
	pump := Resolve(Pattern{Base: []Proto{{Dir: model.North, Mode: Output}}}, nil, model.Vec3i{}, 1)
	if pump[0].Dir != model.East {
		t.Fatalf("rotated dir=%v, want E", pump[0].Dir)
	}
	tank := Resolve(Pattern{Base: []Proto{{Dir: model.West, Mode: Input}}}, nil, model.Vec3i{X: 1}, 0)
	c := ConnectsTo(pump, tank)
	if !c.Valid || !c.Forward || c.Backward || c.Bidirectional {
		t.Fatalf("conn=%+v", c)
	}
	// Two inputs facing each other never connect.
	in2 := Resolve(Pattern{Base: []Proto{{Dir: model.East, Mode: Input}}}, nil, model.Vec3i{}, 0)
	if ConnectsTo(in2, tank).Valid {
		t.Fatalf("input-input connected")
	}
}

func TestReciprocityRequiredBothWays(t *testing.T) {
	// a opens east onto b, but b only opens north.
	a := Resolve(Pattern{Base: []Proto{{Dir: model.East, Mode: TwoWay}}}, nil, model.Vec3i{}, 0)
	b := Resolve(Pattern{Base: []Proto{{Dir: model.North, Mode: TwoWay}}}, nil, model.Vec3i{X: 1}, 0)
	if ConnectsTo(a, b).Valid || ConnectsTo(b, a).Valid {
		t.Fatalf("one-sided port connected")
	}
}

func TestNoneAndVisualNeverParticipate(t *testing.T) {
	for _, m := range []Mode{None, Visual, Visual | TwoWay} {
		a := Resolve(Pattern{Base: []Proto{{Dir: model.East, Mode: m}}}, nil, model.Vec3i{}, 0)
		if ConnectsTo(a, single(model.Vec3i{X: 1})).Valid {
			t.Fatalf("mode %v connected", m)
		}
	}
}

func TestByRotationOverridesBase(t *testing.T) {
	p := Pattern{
		Base:       []Proto{{Dir: model.North, Mode: TwoWay}},
		ByRotation: map[int][]Proto{2: {{Dir: model.East, Mode: Output}}},
	}
	cells := Resolve(p, nil, model.Vec3i{}, 180)
	if len(cells) != 1 || cells[0].Dir != model.East || cells[0].Mode != Output {
		t.Fatalf("cells=%+v", cells)
	}
}
