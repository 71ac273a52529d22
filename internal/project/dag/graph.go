package dag

import (
	"fmt"
	"slices"
	"strings"

	"meridian/internal/diag"
)

// Graph has an edge from every manifest to each manifest it imports.
type Graph struct {
	Edges [][]UnitID
	// Indeg counts incoming edges from present manifests only.
	Indeg   []int
	Present []bool
}

// Slot is the graph's view of one index entry.
type Slot struct {
	Node    Node
	Present bool
}

// BuildGraph links loaded manifests. Imports of manifests that were never
// loaded and self imports are reported on the importing manifest.
func BuildGraph(idx Index, nodes []Node) (Graph, []Slot) {
	count := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]UnitID, count),
		Indeg:   make([]int, count),
		Present: make([]bool, count),
	}
	slots := make([]Slot, count)
	for i, name := range idx.IDToName {
		slots[i].Node.Path = name
	}

	for _, n := range nodes {
		id, ok := idx.NameToID[n.Path]
		if !ok || slots[int(id)].Present {
			continue
		}
		slots[int(id)] = Slot{Node: n, Present: true}
		g.Present[int(id)] = true
	}

	for from := range slots {
		slot := &slots[from]
		if !slot.Present {
			continue
		}
		seen := make(map[UnitID]struct{}, len(slot.Node.Imports))
		for _, imp := range slot.Node.Imports {
			to, ok := idx.NameToID[imp.Path]
			if !ok {
				continue
			}
			if UnitID(from) == to {
				report(slot.Node.Reporter, diag.PrjImportCycle, imp,
					fmt.Sprintf("manifest %q imports itself", slot.Node.Path))
				continue
			}
			if _, dup := seen[to]; dup {
				continue
			}
			seen[to] = struct{}{}
			g.Edges[from] = append(g.Edges[from], to)
			if g.Present[int(to)] {
				g.Indeg[int(to)]++
			} else {
				report(slot.Node.Reporter, diag.PrjImportFailed, imp,
					fmt.Sprintf("imported manifest %q was not loaded", imp.Path))
			}
		}
		slices.Sort(g.Edges[from])
	}
	return g, slots
}

func report(r diag.Reporter, code diag.Code, imp Import, msg string) {
	if r != nil {
		r.Report(code, diag.SevError, imp.Span, msg, nil)
	}
}

// ReportCycles reports every manifest left in a cycle once.
func ReportCycles(idx Index, slots []Slot, topo *Topo) {
	if !topo.Cyclic {
		return
	}
	names := make([]string, 0, len(topo.Cycles))
	for _, id := range topo.Cycles {
		names = append(names, idx.IDToName[int(id)])
	}
	summary := strings.Join(names, " -> ")
	for _, id := range topo.Cycles {
		slot := slots[int(id)]
		if !slot.Present || slot.Node.Reporter == nil {
			continue
		}
		msg := fmt.Sprintf("manifest %q participates in an import cycle: %s", slot.Node.Path, summary)
		slot.Node.Reporter.Report(diag.PrjImportCycle, diag.SevError, slot.Node.Span, msg, nil)
	}
}
