package layout

import (
	"slices"

	"meridian/internal/types"
)

// Node is one class in a hierarchy, seen from the most derived class.
type Node struct {
	// Type is the class or bound generic class.
	Type types.TypeID
	Decl *types.NominalDecl
	// Subst binds Decl's generic parameters in terms of the leaf's own
	// generic environment.
	Subst types.Subst
}

// Hierarchy returns the class chain of t ordered root to leaf. It is built
// once per class and memoized.
func (e *LayoutEngine) Hierarchy(t types.TypeID) ([]Node, error) {
	if e.cache == nil {
		e.cache = newCache()
	}
	nodes, err := e.hierarchyOf(t)
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (e *LayoutEngine) hierarchyOf(id types.TypeID) ([]Node, *LayoutError) {
	if nodes, ok := e.cache.hierarchy[id]; ok {
		return nodes, nil
	}
	nodes, err := e.buildHierarchy(id)
	if err != nil {
		return nil, err
	}
	e.cache.hierarchy[id] = nodes
	return nodes, nil
}

func (e *LayoutEngine) buildHierarchy(t types.TypeID) ([]Node, *LayoutError) {
	var nodes []Node
	seen := make(map[*types.NominalDecl]struct{}, 8)
	cur := t
	subst := e.Types.BindingsOf(t)
	var from *types.NominalDecl
	for cur != types.NoTypeID {
		decl, _, ok := e.Types.NominalOf(cur)
		if !ok || decl.Kind != types.DeclClass {
			err := &LayoutError{Kind: LayoutErrNotAClass, Type: cur, Name: e.Types.TypeString(cur)}
			if from != nil {
				err.Span = from.Span
			}
			return nil, err
		}
		if _, dup := seen[decl]; dup {
			cycle := make([]string, 0, len(nodes)+1)
			for _, n := range nodes {
				cycle = append(cycle, n.Decl.Name)
			}
			cycle = append(cycle, decl.Name)
			return nil, &LayoutError{
				Kind:  LayoutErrCircularInheritance,
				Type:  t,
				Name:  e.Types.TypeString(t),
				Cycle: cycle,
				Span:  decl.Span,
			}
		}
		seen[decl] = struct{}{}
		nodes = append(nodes, Node{Type: cur, Decl: decl, Subst: subst})
		if decl.Superclass == types.NoTypeID {
			break
		}
		from = decl
		cur = e.Types.Substitute(decl.Superclass, subst)
		subst = e.Types.BindingsOf(cur)
	}
	slices.Reverse(nodes)
	return nodes, nil
}
