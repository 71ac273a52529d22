package dag

import (
	"testing"

	"meridian/internal/diag"
	"meridian/internal/source"
)

func names(idx Index, ids []UnitID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}

func node(path string, imports ...string) Node {
	n := Node{Path: path}
	for _, imp := range imports {
		n.Imports = append(n.Imports, Import{Path: imp})
	}
	return n
}

func TestBuildIndexIncludesImports(t *testing.T) {
	idx := BuildIndex([]Node{node("/app.toml", "/lib/math.toml", "/lib/util.toml"), node("/lib/util.toml")})

	want := []string{"/app.toml", "/lib/math.toml", "/lib/util.toml"}
	if len(idx.IDToName) != len(want) {
		t.Fatalf("unexpected manifest count: %d", len(idx.IDToName))
	}
	for i, path := range want {
		if idx.IDToName[i] != path {
			t.Fatalf("IDToName[%d] = %q, want %q", i, idx.IDToName[i], path)
		}
		if id, ok := idx.NameToID[path]; !ok || int(id) != i {
			t.Fatalf("NameToID[%q] = %v", path, id)
		}
	}
}

func TestDependenciesFirst(t *testing.T) {
	nodes := []Node{node("/app", "/base", "/util"), node("/base", "/util"), node("/util")}
	idx := BuildIndex(nodes)
	g, _ := BuildGraph(idx, nodes)
	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatalf("unexpected cycle")
	}
	got := names(idx, topo.DependenciesFirst())
	want := []string{"/util", "/base", "/app"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if len(topo.Batches) != 3 {
		t.Fatalf("batches = %v", topo.Batches)
	}
}

func TestMissingImportIsReported(t *testing.T) {
	bag := diag.NewBag(10)
	span := source.Span{File: 1, Start: 3, End: 9}
	app := Node{Path: "/app", Reporter: diag.BagReporter{Bag: bag}, Imports: []Import{{Path: "/gone", Span: span}}}
	idx := BuildIndex([]Node{app})
	g, _ := BuildGraph(idx, []Node{app})

	if g.Present[idx.NameToID["/gone"]] {
		t.Fatalf("missing manifest marked present")
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.PrjImportFailed || bag.Items()[0].Primary != span {
		t.Fatalf("diagnostics = %v", bag.Items())
	}
}

func TestReportCycles(t *testing.T) {
	bagA := diag.NewBag(10)
	bagB := diag.NewBag(10)
	a := Node{Path: "/a", Reporter: diag.BagReporter{Bag: bagA}, Imports: []Import{{Path: "/b"}}}
	b := Node{Path: "/b", Reporter: diag.BagReporter{Bag: bagB}, Imports: []Import{{Path: "/a"}}}
	c := node("/c", "/a")

	idx := BuildIndex([]Node{a, b, c})
	g, slots := BuildGraph(idx, []Node{a, b, c})
	topo := ToposortKahn(g)
	if !topo.Cyclic || len(topo.Cycles) != 2 {
		t.Fatalf("expected a two-manifest cycle, got %+v", topo)
	}
	ReportCycles(idx, slots, topo)
	for _, bag := range []*diag.Bag{bagA, bagB} {
		if bag.Len() != 1 || bag.Items()[0].Code != diag.PrjImportCycle {
			t.Fatalf("diagnostics = %v", bag.Items())
		}
	}
}

func TestSelfImport(t *testing.T) {
	bag := diag.NewBag(10)
	a := Node{Path: "/a", Reporter: diag.BagReporter{Bag: bag}, Imports: []Import{{Path: "/a"}}}
	idx := BuildIndex([]Node{a})
	g, _ := BuildGraph(idx, []Node{a})
	if len(g.Edges[0]) != 0 || bag.Len() != 1 {
		t.Fatalf("self import: edges %v, diags %v", g.Edges[0], bag.Items())
	}
}
