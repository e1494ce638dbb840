package valuestack

import "testing"

func TestFromMapDropsNonPositiveAndSorts(t *testing.T) {
	s := FromMap(map[string]int{"water": 3, "oil": 0, "air": 2})
	if got := s.Kinds(); len(got) != 2 || got[0] != "air" || got[1] != "water" {
		t.Fatalf("Kinds=%v, want [air water]", got)
	}
	if s.Total() != 5 {
		t.Fatalf("Total=%d, want 5", s.Total())
	}
	if s.Get("oil") != 0 || s.Contains("oil") {
		t.Fatalf("expected oil to be absent")
	}
}

func TestAddSubMergeByKind(t *testing.T) {
	a := FromMap(map[string]float64{"water": 10, "steam": 2})
	b := FromMap(map[string]float64{"water": 5, "oil": 1})

	sum := a.Add(b)
	if sum.Get("water") != 15 || sum.Get("oil") != 1 || sum.Get("steam") != 2 || sum.Total() != 18 {
		t.Fatalf("sum=%v", sum)
	}
	diff := sum.Sub(a)
	if !diff.Equal(b) {
		t.Fatalf("sum-a=%v, want %v", diff, b)
	}
	// Sub never goes below zero.
	if got := b.Sub(a); got.Get("water") != 0 || got.Get("oil") != 1 {
		t.Fatalf("b-a=%v", got)
	}
	// Receivers are untouched.
	if a.Get("water") != 10 || b.Get("water") != 5 {
		t.Fatalf("operands mutated: a=%v b=%v", a, b)
	}
}

func TestDiffUnsigned(t *testing.T) {
	prev := FromMap(map[string]uint32{"water": 10, "oil": 4})
	next := FromMap(map[string]uint32{"water": 7, "steam": 1})
	d := Diff(prev, next)
	if d.Added.Get("steam") != 1 || d.Added.Len() != 1 {
		t.Fatalf("added=%v", d.Added)
	}
	if d.Removed.Get("water") != 3 || d.Removed.Get("oil") != 4 {
		t.Fatalf("removed=%v", d.Removed)
	}
	if got := prev.Sub(d.Removed).Add(d.Added); !got.Equal(next) {
		t.Fatalf("prev-removed+added=%v, want %v", got, next)
	}
	if !Diff(next, next).IsZero() {
		t.Fatalf("expected zero delta")
	}
}

func TestCoversAndWith(t *testing.T) {
	have := FromMap(map[string]int{"water": 5, "oil": 2})
	if !have.Covers(FromMap(map[string]int{"water": 5})) {
		t.Fatalf("expected cover")
	}
	if have.Covers(FromMap(map[string]int{"oil": 3})) {
		t.Fatalf("unexpected cover")
	}
	w := have.With("oil", 0)
	if w.Contains("oil") || have.Get("oil") != 2 {
		t.Fatalf("With: w=%v have=%v", w, have)
	}
}

func TestSubClampAndAddClamp(t *testing.T) {
	if SubClamp[uint8](3, 5) != 0 {
		t.Fatalf("SubClamp underflowed")
	}
	if AddClamp[uint8](250, 10) != 250 {
		t.Fatalf("AddClamp wrapped")
	}
	if FromFloat[int](-3) != 0 || FromFloat[int](2.9) != 2 {
		t.Fatalf("FromFloat")
	}
}

func TestFloor(t *testing.T) {
	if Floor(2.9) != 2 || Floor(0.5) != 0 {
		t.Fatalf("Floor float: %v %v", Floor(2.9), Floor(0.5))
	}
	if Floor[uint64](1<<62+1) != 1<<62+1 {
		t.Fatalf("Floor changed an integer quantity")
	}
}
