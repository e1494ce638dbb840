package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"flownet.ai/internal/sim/catalogs"
	"flownet.ai/internal/sim/world"
	"flownet.ai/internal/sim/world/kernel/model"
)

func TestSummarizeGroupsByType(t *testing.T) {
	cats, err := catalogs.Load(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("catalogs.Load: %v", err)
	}
	w, err := world.New[float64](world.Config{BoundaryR: 8}, cats, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	spawn := func(def string, x, z int) uint64 {
		p, err := w.SpawnPart(def, model.Vec3i{X: x, Z: z}, 0)
		if err != nil {
			t.Fatalf("SpawnPart: %v", err)
		}
		return p.ID
	}
	a := spawn("TANK", 0, 0)
	spawn("PIPE", 1, 0)
	spawn("TANK", 2, 0)
	spawn("WIRE", 0, 4)
	bat := spawn("BATTERY", 5, 5)
	w.StepOnce()
	if _, err := w.AddValue(a, "WATER", 1234.5); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if _, err := w.AddValue(bat, "ELECTRICITY", 10); err != nil {
		t.Fatalf("AddValue: %v", err)
	}

	sums := summarize(w)
	if len(sums) != 2 || sums[0].Type != "FLUID" || sums[1].Type != "POWER" {
		t.Fatalf("sums=%+v", sums)
	}
	fluid, power := sums[0], sums[1]
	if fluid.Networks != 1 || fluid.Members != 3 || fluid.Edges != 1 || fluid.Orphans != 0 {
		t.Fatalf("fluid=%+v", fluid)
	}
	// TANK holds 500; the rest was rejected.
	if fluid.Stored["WATER"] != 500 {
		t.Fatalf("WATER=%v, want 500", fluid.Stored["WATER"])
	}
	if power.Networks != 1 || power.Orphans != 1 {
		t.Fatalf("power=%+v", power)
	}

	var buf bytes.Buffer
	printSummary(&buf, sums)
	if !strings.Contains(buf.String(), "WATER") || !strings.Contains(buf.String(), "500") {
		t.Fatalf("output:\n%s", buf.String())
	}
}
