package snapshot

import (
	"path/filepath"
	"testing"
)

func sample() SnapshotV1 {
	return SnapshotV1{
		Header:           Header{WorldID: "MAIN", RunID: "run-1", Tick: 42, CatalogDigest: "abc"},
		TickRate:         5,
		BatchEveryTicks:  1,
		SettleEveryTicks: 1,
		BoundaryR:        16,
		Height:           1,
		FlowScale:        1,
		Quantity:         "float",
		Parts: []PartV1{
			{ID: 1, Def: "TANK", Pos: [3]int{0, 0, 0}, NetworkID: 3, Container: &ContainerV1{
				Capacity: 100,
				Stored:   map[string]float64{"WATER": 12.5},
				Filter:   map[string]FilterV1{"WATER": {CanReceive: true, CanStore: true, CanTransfer: false}},
			}},
			{ID: 2, Def: "PIPE", Pos: [3]int{1, 0, 0}, NetworkID: 3},
		},
		Networks: []NetworkV1{{ID: 3, Type: "FLUID", Seed: [3]int{0, 0, 0}, Members: []uint64{1, 2}, Cells: 2, FlowTotalMoved: 7}},
		Counters: CountersV1{NextPart: 3, NextNetwork: 4},
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "42.snap.zst")
	if err := WriteSnapshot(path, sample()); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if got.Header.Version != Version || got.Header.Tick != 42 || got.Header.RunID != "run-1" {
		t.Fatalf("header=%+v", got.Header)
	}
	if len(got.Parts) != 2 || got.Parts[0].Container == nil {
		t.Fatalf("parts=%+v", got.Parts)
	}
	if q := got.Parts[0].Container.Stored["WATER"]; q != 12.5 {
		t.Fatalf("WATER=%v, want 12.5", q)
	}
	if f := got.Parts[0].Container.Filter["WATER"]; f.CanTransfer || !f.CanStore {
		t.Fatalf("filter=%+v", f)
	}
	if got.Parts[1].Container != nil {
		t.Fatalf("conduit container=%+v, want nil", got.Parts[1].Container)
	}
	if len(got.Networks) != 1 || got.Networks[0].FlowTotalMoved != 7 {
		t.Fatalf("networks=%+v", got.Networks)
	}
	if got.Counters.NextNetwork != 4 {
		t.Fatalf("NextNetwork=%d, want 4", got.Counters.NextNetwork)
	}
}

func TestReadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.snap.zst")
	if err := WriteSnapshot(path, sample()); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.WorldID != "MAIN" || h.Tick != 42 || h.CatalogDigest != "abc" {
		t.Fatalf("header=%+v", h)
	}
}

func TestReadSnapshotMissingFile(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error")
	}
}
