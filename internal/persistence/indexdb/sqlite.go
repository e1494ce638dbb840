package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"flownet.ai/internal/persistence/snapshot"
	"flownet.ai/internal/sim/catalogs"
	"flownet.ai/internal/sim/tuning"
	"flownet.ai/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index of world events and snapshots.
// Writes are queued and applied by one goroutine; the JSONL event log stays
// the source of truth, so a full queue drops rows instead of blocking the tick.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvent    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	event    world.Event
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick        uint64
	Path        string
	RunID       string
	Parts       int
	Networks    int
	StoredTotal float64
}

// Stats reports queue pressure.
type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropEventTotal    uint64
	DropSnapshotTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			net_type TEXT NOT NULL,
			network_id INTEGER NOT NULL,
			part_id INTEGER NOT NULL,
			code TEXT,
			x INTEGER,
			y INTEGER,
			z INTEGER,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type_tick ON events(type, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_events_network ON events(network_id, tick);`,
		`CREATE TABLE IF NOT EXISTS networks (
			id INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			created_tick INTEGER NOT NULL,
			destroyed_tick INTEGER,
			members INTEGER NOT NULL,
			cells INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_networks_type ON networks(type, created_tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			run_id TEXT NOT NULL,
			parts INTEGER NOT NULL,
			networks INTEGER NOT NULL,
			stored_total REAL NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropEventTotal:    s.dropEvent.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// WriteEvent implements world.EventSink.
func (s *SQLiteIndex) WriteEvent(e world.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
		s.dropEvent.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:     snap.Header.Tick,
		Path:     path,
		RunID:    snap.Header.RunID,
		Parts:    len(snap.Parts),
		Networks: len(snap.Networks),
	}
	for _, p := range snap.Parts {
		if p.Container == nil {
			continue
		}
		for _, q := range p.Container.Stored {
			r.StoredTotal += q
		}
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// SetMeta writes a key synchronously.
func (s *SQLiteIndex) SetMeta(key, value string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, key, value)
	return err
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	read := func(name, file, digest string) {
		if configDir == "" {
			return
		}
		b, err := os.ReadFile(filepath.Join(configDir, file))
		if err != nil {
			return
		}
		rows = append(rows, kv{name: name, digest: digest, json: b})
	}
	read("networks", "networks.json", cats.Networks.Digest)
	read("resources", "resources.json", cats.Resources.Digest)
	read("parts", "parts.json", cats.Parts.Digest)

	// Tuning: store the values we actually apply (canonical JSON).
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('catalog_digest',?)`, cats.Digest()); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(tick,seq,type,net_type,network_id,part_id,code,x,y,z,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertNetwork, _ := s.db.Prepare(`INSERT OR REPLACE INTO networks(id,type,created_tick,destroyed_tick,members,cells) VALUES(?,?,?,NULL,?,?)`)
	destroyNetwork, _ := s.db.Prepare(`UPDATE networks SET destroyed_tick=? WHERE id=?`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,run_id,parts,networks,stored_total) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertEvent, insertNetwork, destroyNetwork, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastEventTick uint64
		eventSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEvent:
			e := r.event
			if e.Tick != lastEventTick {
				lastEventTick = e.Tick
				eventSeq = 0
			}
			seq := eventSeq
			eventSeq++
			raw, _ := json.Marshal(e)
			var x, y, z any
			if len(e.Pos) == 3 {
				x, y, z = e.Pos[0], e.Pos[1], e.Pos[2]
			}
			if !exec(insertEvent, int64(e.Tick), seq, e.Type, e.NetType, int64(e.NetworkID), int64(e.PartID), e.Code, x, y, z, string(raw)) {
				continue
			}
			switch e.Type {
			case world.EventNetworkCreated:
				exec(insertNetwork, int64(e.NetworkID), e.NetType, int64(e.Tick), e.Members, e.Cells)
			case world.EventNetworkDestroyed:
				exec(destroyNetwork, int64(e.Tick), int64(e.NetworkID))
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, int64(sn.Tick), sn.Path, sn.RunID, sn.Parts, sn.Networks, sn.StoredTotal)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
