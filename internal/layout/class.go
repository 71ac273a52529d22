package layout

import (
	"meridian/internal/types"
)

// HeaderSize is the object header size for a hierarchy rooted in kind:
// isa plus inline refcount natively, isa alone for foreign roots.
func (e *LayoutEngine) HeaderSize(kind RootKind) int {
	if kind == RootForeign {
		return e.Target.PtrSize
	}
	return 2 * e.Target.PtrSize
}

// classLayout walks the hierarchy root to leaf. Each class inherits the
// arrangement state accumulated so far and appends its own stored fields.
func (e *LayoutEngine) classLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	chain, herr := e.hierarchyOf(id)
	if herr != nil {
		return TypeLayout{Align: 1}, herr
	}

	out := TypeLayout{Hierarchy: chain, Root: RootNative}
	object := ObjectStatic
	if chain[0].Decl.Foreign {
		// The foreign runtime may grow its root's instances, so nothing
		// below it can assume a constant offset.
		out.Root = RootForeign
		object = ObjectRuntimeOffsetOnly
	}
	out.HeaderSize = e.HeaderSize(out.Root)
	seq := newSequencer(e.Target, out.HeaderSize, e.Target.PtrAlign, object)
	seq.pin = true
	meta := MetadataStatic

	for _, node := range chain {
		decl := node.Decl
		if decl.Resilient {
			meta = max(meta, MetadataResilient)
		}
		if decl.Foreign {
			continue
		}
		pinned, perr := e.pinnedOffsets(decl, id, state)
		if perr != nil {
			return TypeLayout{Align: 1}, perr
		}
		for i, f := range decl.StoredFields() {
			strategy := StrategyFor(meta, seq.object)
			ft := e.Types.Substitute(f.Type, node.Subst)
			info, err := e.classify(ft, state)
			if err != nil {
				return TypeLayout{Align: 1}, err.at(f.Span)
			}
			var el Element
			if off, ok := pinned[i]; ok {
				el = seq.placePinned(info, off)
			} else {
				el = seq.place(info)
			}
			el.Type, el.Owner, el.Decl, el.Field, el.Index = ft, node.Type, decl, f, i
			el.Strategy = strategy
			out.Elements = append(out.Elements, el)
		}
		if e.isExternalResilient(decl) {
			seq.object = max(seq.object, ObjectRuntimeOffsetOnly)
		}
	}

	out.Object = seq.object
	out.Metadata = meta
	out.POD = false
	out.NominalKnown = seq.nominal
	if seq.nominal {
		out.NominalSize = seq.end()
	}
	switch out.Object {
	case ObjectStatic:
		out.Class = Fixed
		out.Size = seq.end()
		out.Align = seq.align
	case ObjectRuntimeOffsetOnly:
		out.Class = ResilientUnknownSize
	default:
		out.Class = GenericDependentSize
	}
	return out, nil
}

// pinnedOffsets returns the constant offsets decl's own generic layout
// gives to dynamically sized fields, keyed by stored-field index. Every
// instantiation must place those fields at the same offsets.
func (e *LayoutEngine) pinnedOffsets(decl *types.NominalDecl, self types.TypeID, state *layoutState) (map[int]int, *LayoutError) {
	if !decl.IsGeneric() || decl.ID == self {
		return nil, nil
	}
	generic, err := e.layoutOf(decl.ID, state)
	if err != nil {
		return nil, err
	}
	var pinned map[int]int
	for _, el := range generic.FieldsOf(decl) {
		if !el.IsFixed() && el.OffsetKnown {
			if pinned == nil {
				pinned = make(map[int]int, 1)
			}
			pinned[el.Index] = el.Offset
		}
	}
	return pinned, nil
}
