package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"flownet.ai/internal/persistence/snapshot"
	"flownet.ai/internal/sim/catalogs"
	"flownet.ai/internal/sim/tuning"
	"flownet.ai/internal/sim/world"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqEvent, event: world.Event{Tick: 1}}

	_ = s.WriteEvent(world.Event{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropEventTotal != 1 {
		t.Fatalf("DropEventTotal=%d want=1", st.DropEventTotal)
	}
	if st.DropSnapshotTotal != 1 {
		t.Fatalf("DropSnapshotTotal=%d want=1", st.DropSnapshotTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_NetworkLifetimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	events := []world.Event{
		{Tick: 1, Type: world.EventPartSpawned, NetType: "FLUID", PartID: 1, Def: "TANK", Pos: []int{0, 0, 0}},
		{Tick: 1, Type: world.EventNetworkCreated, NetType: "FLUID", NetworkID: 1, Members: 1, Cells: 1, Pos: []int{0, 0, 0}},
		{Tick: 4, Type: world.EventNetworkDestroyed, NetType: "FLUID", NetworkID: 1, Members: 1, Cells: 1},
		{Tick: 4, Type: world.EventNetworkCreated, NetType: "FLUID", NetworkID: 2, Members: 2, Cells: 2},
		{Tick: 4, Type: world.EventTopologyWarning, NetType: "POWER", Code: "W_NO_NODES", Pos: []int{3, 0, 3}},
	}
	for _, e := range events {
		if err := s.WriteEvent(e); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
	}
	s.RecordSnapshot("snap/4.snap.zst", snapshot.SnapshotV1{Header: snapshot.Header{Tick: 4, RunID: "r"}})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	counts, err := s.EventCounts(ctx)
	if err != nil {
		t.Fatalf("EventCounts: %v", err)
	}
	if counts[world.EventNetworkCreated] != 2 || counts[world.EventTopologyWarning] != 1 {
		t.Fatalf("counts=%v", counts)
	}

	nets, err := s.Networks(ctx, "FLUID")
	if err != nil {
		t.Fatalf("Networks: %v", err)
	}
	if len(nets) != 2 {
		t.Fatalf("networks=%d, want 2", len(nets))
	}
	if !nets[0].Destroyed || nets[0].DestroyTick != 4 {
		t.Fatalf("net 1=%+v, want destroyed at 4", nets[0])
	}
	if nets[1].Destroyed || nets[1].Members != 2 {
		t.Fatalf("net 2=%+v", nets[1])
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM snapshots WHERE tick=4`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("snapshots n=%d err=%v", n, err)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	cfgDir := filepath.Join("..", "..", "..", "configs")
	cats, err := catalogs.Load(cfgDir)
	if err != nil {
		t.Fatalf("catalogs.Load: %v", err)
	}
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	if err := s.UpsertCatalogs(cfgDir, cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	if err := s.SetMeta("run_id", "run-7"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	ctx := context.Background()
	if v, _ := s.Meta(ctx, "run_id"); v != "run-7" {
		t.Fatalf("run_id=%q", v)
	}
	if v, _ := s.Meta(ctx, "catalog_digest"); v != cats.Digest() {
		t.Fatalf("catalog_digest=%q, want %q", v, cats.Digest())
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Fatalf("catalog rows=%d, want 4", n)
	}
}
