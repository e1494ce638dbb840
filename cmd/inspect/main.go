package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"flownet.ai/internal/persistence/indexdb"
	persistlog "flownet.ai/internal/persistence/log"
	"flownet.ai/internal/persistence/snapshot"
	"flownet.ai/internal/sim/catalogs"
	"flownet.ai/internal/sim/world"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst")
		configDir = flag.String("configs", "./configs", "config directory")
		worldDir  = flag.String("world_dir", "", "world data dir with events/ and index/ (optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	st, err := os.Stat(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "stat snapshot:", err)
		os.Exit(1)
	}
	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d world=%s run=%s tick=%s size=%s parts=%s networks=%s\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.RunID,
		humanize.Comma(int64(snap.Header.Tick)), humanize.Bytes(uint64(st.Size())),
		humanize.Comma(int64(len(snap.Parts))), humanize.Comma(int64(len(snap.Networks))))

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	if snap.Header.CatalogDigest != "" && snap.Header.CatalogDigest != cats.Digest() {
		fmt.Println("warning: catalogs differ from the ones the snapshot was taken with")
	}

	w, err := world.New[float64](world.Config{
		ID:               snap.Header.WorldID,
		RunID:            snap.Header.RunID,
		TickRateHz:       snap.TickRate,
		BatchEveryTicks:  snap.BatchEveryTicks,
		SettleEveryTicks: snap.SettleEveryTicks,
		BoundaryR:        snap.BoundaryR,
		Height:           snap.Height,
		FlowScale:        snap.FlowScale,
	}, cats, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		fmt.Fprintln(os.Stderr, "import snapshot:", err)
		os.Exit(1)
	}
	printSummary(os.Stdout, summarize(w))

	if *worldDir == "" {
		return
	}
	counts := map[string]int{}
	if err := persistlog.ReadEvents(*worldDir, func(e world.Event) error {
		counts[e.Type]++
		return nil
	}); err != nil {
		fmt.Fprintln(os.Stderr, "read events:", err)
		os.Exit(1)
	}
	fmt.Println("event log:")
	printCounts(counts)

	dbPath := filepath.Join(*worldDir, "index", "world.sqlite")
	if _, err := os.Stat(dbPath); err != nil {
		return
	}
	idx, err := indexdb.OpenSQLite(dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	defer idx.Close()
	indexed, err := idx.EventCounts(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "index:", err)
		return
	}
	fmt.Println("index:")
	printCounts(indexed)
}

func printCounts(counts map[string]int) {
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %-18s %s\n", t, humanize.Comma(int64(counts[t])))
	}
}
