package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"

	"flownet.ai/internal/sim/world"
)

type typeSummary struct {
	Type     string
	Networks int
	Members  int
	Nodes    int
	Edges    int
	Orphans  int
	Stored   map[string]float64
}

// summarize groups the rebuilt networks by type. Orphans are parts that no
// network covers, typically conduit-only clusters.
func summarize(w *world.World[float64]) []typeSummary {
	byType := map[string]*typeSummary{}
	for _, t := range w.NetworkTypes() {
		byType[t] = &typeSummary{Type: t, Stored: map[string]float64{}}
		for _, n := range w.Manager(t).Networks() {
			s := byType[t]
			s.Networks++
			s.Members += len(n.Members())
			if n.Graph != nil {
				s.Nodes += len(n.Graph.Nodes)
				s.Edges += len(n.Graph.Edges)
			}
		}
	}
	for _, id := range w.PartIDs() {
		p, _ := w.Part(id)
		s := byType[p.NetType]
		if s == nil {
			continue
		}
		if _, ok := w.NetworkOf(id); !ok {
			s.Orphans++
		}
		if p.Container == nil {
			continue
		}
		for _, e := range p.Container.Stack().Entries() {
			s.Stored[e.Kind] += e.Qty
		}
	}
	out := make([]typeSummary, 0, len(byType))
	for _, s := range byType {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func printSummary(out io.Writer, sums []typeSummary) {
	for _, s := range sums {
		fmt.Fprintf(out, "%-8s networks=%s members=%s nodes=%s edges=%s orphans=%d\n",
			s.Type, humanize.Comma(int64(s.Networks)), humanize.Comma(int64(s.Members)),
			humanize.Comma(int64(s.Nodes)), humanize.Comma(int64(s.Edges)), s.Orphans)
		kinds := make([]string, 0, len(s.Stored))
		for k := range s.Stored {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(out, "  %-12s %s\n", k, humanize.FormatFloat("#,###.##", s.Stored[k]))
		}
	}
}
