package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Topo is a Kahn ordering of the graph. Importers come before the
// manifests they import.
type Topo struct {
	Order   []UnitID
	Batches [][]UnitID
	Cyclic  bool
	// Cycles lists the manifests whose in-degree never reached zero.
	Cycles []UnitID
}

func unitID(i int) UnitID {
	id, err := safecast.Conv[UnitID](i)
	if err != nil {
		panic(fmt.Errorf("unit id overflow: %w", err))
	}
	return id
}

func ToposortKahn(g Graph) *Topo {
	count := len(g.Edges)
	indeg := slices.Clone(g.Indeg)
	topo := &Topo{Order: make([]UnitID, 0, count)}

	active := 0
	var current []UnitID
	for i := range count {
		if !g.Present[i] {
			continue
		}
		active++
		if indeg[i] == 0 {
			current = append(current, unitID(i))
		}
	}

	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)
		var next []UnitID
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			for _, to := range g.Edges[int(id)] {
				if !g.Present[int(to)] {
					continue
				}
				indeg[int(to)]--
				if indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if len(topo.Order) != active {
		topo.Cyclic = true
		for i := range count {
			if g.Present[i] && indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, unitID(i))
			}
		}
	}
	return topo
}

// DependenciesFirst returns Order reversed, so every manifest follows the
// manifests it imports.
func (t *Topo) DependenciesFirst() []UnitID {
	out := slices.Clone(t.Order)
	slices.Reverse(out)
	return out
}
