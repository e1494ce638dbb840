package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version       int    `json:"version"`
	WorldID       string `json:"world_id"`
	RunID         string `json:"run_id,omitempty"`
	Tick          uint64 `json:"tick"`
	CatalogDigest string `json:"catalog_digest,omitempty"`
}

// SnapshotV1 captures everything needed to resume a world. Quantities are
// stored as float64 regardless of the world's numeric type.
type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate           int     `json:"tick_rate_hz"`
	BatchEveryTicks    int     `json:"batch_every_ticks"`
	SettleEveryTicks   int     `json:"settle_every_ticks"`
	SnapshotEveryTicks int     `json:"snapshot_every_ticks,omitempty"`
	BoundaryR          int     `json:"boundary_r"`
	Height             int     `json:"height"`
	FlowScale          float64 `json:"flow_scale"`
	Quantity           string  `json:"quantity"`

	Parts    []PartV1    `json:"parts"`
	Networks []NetworkV1 `json:"networks"`
	Counters CountersV1  `json:"counters"`
}

type PartV1 struct {
	ID        uint64       `json:"id"`
	Def       string       `json:"def"`
	Pos       [3]int       `json:"pos"`
	Rotation  int          `json:"rot"`
	NetworkID uint64       `json:"network_id,omitempty"`
	Container *ContainerV1 `json:"container,omitempty"`
}

type ContainerV1 struct {
	Capacity     float64             `json:"capacity"`
	Stored       map[string]float64  `json:"stored,omitempty"`
	KindCapacity map[string]float64  `json:"kind_capacity,omitempty"`
	Filter       map[string]FilterV1 `json:"filter,omitempty"`
}

type FilterV1 struct {
	CanReceive  bool `json:"can_receive"`
	CanStore    bool `json:"can_store"`
	CanTransfer bool `json:"can_transfer"`
}

// NetworkV1 records a network by identity and one seed cell; the graph is
// rediscovered on load.
type NetworkV1 struct {
	ID      uint64   `json:"id"`
	Type    string   `json:"type"`
	Seed    [3]int   `json:"seed"`
	Members []uint64 `json:"members"`
	Cells   int      `json:"cells"`
	Created uint64   `json:"created_tick"`

	FlowLastTick   uint64  `json:"flow_last_tick,omitempty"`
	FlowLastMoved  float64 `json:"flow_last_moved,omitempty"`
	FlowTotalMoved float64 `json:"flow_total_moved,omitempty"`
	FlowPasses     uint64  `json:"flow_passes,omitempty"`
}

type CountersV1 struct {
	NextPart    uint64 `json:"next_part"`
	NextNetwork uint64 `json:"next_network"`
}

// WriteSnapshot writes a JSON header line followed by the gob-encoded
// snapshot, all inside one zstd frame.
func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is for tools; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
