package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"flownet.ai/internal/persistence/indexdb"
	"flownet.ai/internal/persistence/snapshot"
	"flownet.ai/internal/sim/catalogs"
	"flownet.ai/internal/sim/tuning"
	"flownet.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.EventSink
	Close() error
	SetMeta(key, value string) error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
}

func openRuntimeIndex(worldDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("FN_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported FN_INDEX_BACKEND: %s", backend)
	}
}
