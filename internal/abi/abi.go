// Package abi answers the questions instruction lowering asks about a
// type: where a field lives, which slot a method dispatches through, and
// how big an instance is.
package abi

import (
	"fmt"

	"meridian/internal/diag"
	"meridian/internal/layout"
	"meridian/internal/mangle"
	"meridian/internal/shape"
	"meridian/internal/types"
	"meridian/internal/vtable"
)

// FieldAccess describes how to compute a field's address from an instance
// pointer. Which fields are meaningful depends on Strategy:
//
//	ConstantDirect       Offset
//	NonConstantDirect    OffsetSymbol holds the offset
//	ConstantIndirect     MetadataWord is an index from the address point
//	NonConstantIndirect  LevelSymbol holds the level start; MetadataWord
//	                     is relative to it
type FieldAccess struct {
	Strategy     layout.FieldAccessStrategy
	Offset       int
	OffsetSymbol string
	MetadataWord int
	LevelSymbol  string
}

// VirtualSlot locates a dispatch entry in class metadata. LevelSymbol is
// set when the class's metadata is resilient; MetadataWord is then
// relative to the level start.
type VirtualSlot struct {
	Index        int
	MetadataWord int
	LevelSymbol  string
}

// Quantity is a compile-time constant or a word to load from metadata.
type Quantity struct {
	Constant     bool
	Value        int
	MetadataWord int
}

// Lowering caches record shapes for the types it is queried about.
type Lowering struct {
	Layout  *layout.LayoutEngine
	VTables *vtable.Resolver
	Mangle  *mangle.Mangler

	shapes map[types.TypeID]*shape.Shape
}

func New(le *layout.LayoutEngine, vt *vtable.Resolver, mg *mangle.Mangler) *Lowering {
	return &Lowering{
		Layout:  le,
		VTables: vt,
		Mangle:  mg,
		shapes:  make(map[types.TypeID]*shape.Shape, 32),
	}
}

// Shape returns the metadata record shape of t.
func (l *Lowering) Shape(t types.TypeID) (*shape.Shape, error) {
	if s, ok := l.shapes[t]; ok {
		return s, nil
	}
	decl, _, ok := l.Layout.Types.NominalOf(t)
	if !ok {
		return nil, fmt.Errorf("abi: %s has no metadata record", l.Layout.Types.TypeString(t))
	}
	tl, err := l.Layout.LayoutOf(t)
	if err != nil {
		return nil, err
	}
	var table *vtable.Table
	if decl.Kind == types.DeclClass {
		if table, err = l.VTables.Resolve(t); err != nil {
			return nil, err
		}
	}
	s := shape.Build(tl, decl, table)
	l.shapes[t] = s
	return s, nil
}

// FieldAccess resolves a stored field of t by name. Fields of derived
// classes shadow ancestor fields of the same name.
func (l *Lowering) FieldAccess(t types.TypeID, field string) (FieldAccess, error) {
	tl, err := l.Layout.LayoutOf(t)
	if err != nil {
		return FieldAccess{}, err
	}
	idx := -1
	for i := len(tl.Elements) - 1; i >= 0; i-- {
		if f := tl.Elements[i].Field; f != nil && f.Name == field {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.assertNotDropped(tl, t, field)
		return FieldAccess{}, fmt.Errorf("abi: %s has no stored field %q", l.Layout.Types.TypeString(t), field)
	}
	el := tl.Elements[idx]
	access := FieldAccess{Strategy: el.Strategy}
	switch el.Strategy {
	case layout.ConstantDirect:
		diag.Assert(el.OffsetKnown, "field %s has a direct strategy but no constant offset", field)
		access.Offset = el.Offset
	case layout.NonConstantDirect:
		access.OffsetSymbol = l.Mangle.FieldOffset(el.Decl, field)
	default:
		s, err := l.Shape(t)
		if err != nil {
			return FieldAccess{}, err
		}
		word, ok := s.FieldOffsetWord(idx)
		diag.Assert(ok, "field %s has no offset cell in the record of %s", field, l.Layout.Types.TypeString(t))
		access.MetadataWord = word
		if el.Strategy == layout.NonConstantIndirect {
			lvl, _ := s.LevelOf(el.Decl)
			access.MetadataWord = word - lvl.Start
			access.LevelSymbol = l.Mangle.LevelOffset(el.Decl)
		}
	}
	return access, nil
}

// assertNotDropped fails when a declaration in the layout owns a stored
// field named field that layout did not place.
func (l *Lowering) assertNotDropped(tl layout.TypeLayout, t types.TypeID, field string) {
	decls := make([]*types.NominalDecl, 0, len(tl.Hierarchy)+1)
	for _, n := range tl.Hierarchy {
		decls = append(decls, n.Decl)
	}
	if len(decls) == 0 {
		if decl, _, ok := l.Layout.Types.NominalOf(t); ok {
			decls = append(decls, decl)
		}
	}
	for _, d := range decls {
		if d.Foreign || d.Kind == types.DeclEnum {
			continue
		}
		if _, stored := d.StoredFieldIndex(field); stored {
			diag.ICE("stored field %s.%s missing from the layout of %s", d.Name, field, l.Layout.Types.TypeString(t))
		}
	}
}

// VirtualSlot resolves the dispatch entry method uses on class t.
func (l *Lowering) VirtualSlot(t types.TypeID, method types.MethodID) (VirtualSlot, error) {
	table, err := l.VTables.Resolve(t)
	if err != nil {
		return VirtualSlot{}, err
	}
	idx, ok := table.SlotOf(method)
	if !ok {
		return VirtualSlot{}, fmt.Errorf("abi: method %d is not dispatched through %s", method, l.Layout.Types.TypeString(t))
	}
	s, err := l.Shape(t)
	if err != nil {
		return VirtualSlot{}, err
	}
	word, found := s.VTableWord(idx)
	diag.Assert(found, "slot %d has no record entry", idx)
	out := VirtualSlot{Index: idx, MetadataWord: word}

	tl, _ := l.Layout.LayoutOf(t)
	if tl.Metadata == layout.MetadataResilient {
		owner := s.Cell(word).Decl
		lvl, _ := s.LevelOf(owner)
		out.MetadataWord = word - lvl.Start
		out.LevelSymbol = l.Mangle.LevelOffset(owner)
	}
	return out, nil
}

// InstanceSize is the allocation size of class t.
func (l *Lowering) InstanceSize(t types.TypeID) (Quantity, error) {
	return l.classQuantity(t, shape.RoleInstanceSize, func(tl layout.TypeLayout) int { return tl.Size })
}

// InstanceAlignMask is the allocation alignment mask of class t.
func (l *Lowering) InstanceAlignMask(t types.TypeID) (Quantity, error) {
	return l.classQuantity(t, shape.RoleAlignMask, layout.TypeLayout.AlignMask)
}

func (l *Lowering) classQuantity(t types.TypeID, role shape.Role, value func(layout.TypeLayout) int) (Quantity, error) {
	tl, err := l.Layout.LayoutOf(t)
	if err != nil {
		return Quantity{}, err
	}
	if len(tl.Hierarchy) == 0 {
		return Quantity{}, fmt.Errorf("abi: %s is not a class", l.Layout.Types.TypeString(t))
	}
	if tl.IsFixed() {
		return Quantity{Constant: true, Value: value(tl)}, nil
	}
	s, err := l.Shape(t)
	if err != nil {
		return Quantity{}, err
	}
	word, _ := s.FixedWord(role)
	return Quantity{MetadataWord: word}, nil
}
