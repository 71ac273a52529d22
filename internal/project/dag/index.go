package dag

import (
	"sort"

	"meridian/internal/diag"
	"meridian/internal/source"
)

// UnitID numbers manifests in path order.
type UnitID uint32

// Import is one entry of a manifest's [unit].imports, already resolved to
// an absolute path.
type Import struct {
	Path string
	Span source.Span
}

// Node is a loaded manifest as the graph sees it.
type Node struct {
	Path     string
	Span     source.Span
	Imports  []Import
	Reporter diag.Reporter
}

type Index struct {
	NameToID map[string]UnitID
	IDToName []string
}

// BuildIndex collects every manifest path, including paths that are only
// imported, and numbers them in sorted order.
func BuildIndex(nodes []Node) Index {
	uniq := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.Path != "" {
			uniq[n.Path] = struct{}{}
		}
		for _, imp := range n.Imports {
			if imp.Path != "" {
				uniq[imp.Path] = struct{}{}
			}
		}
	}

	paths := make([]string, 0, len(uniq))
	for path := range uniq {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	nameToID := make(map[string]UnitID, len(paths))
	for i, path := range paths {
		nameToID[path] = UnitID(i)
	}
	return Index{NameToID: nameToID, IDToName: paths}
}
