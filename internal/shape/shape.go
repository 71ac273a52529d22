// Package shape lays out the words of a metadata record in one pass and
// records the index of every cell other components need to address.
package shape

import (
	"fmt"

	"meridian/internal/diag"
	"meridian/internal/layout"
	"meridian/internal/types"
	"meridian/internal/vtable"
)

// Role is what a metadata word holds.
type Role uint8

const (
	RoleInvalid Role = iota
	RoleDestructor
	RoleValueWitness
	RoleKind
	RoleDescriptor
	RoleParent
	RoleMetaclass
	RoleSuperclass
	RoleCache
	RoleForeignData
	RoleInstanceSize
	RoleAlignMask
	RoleFieldOffset
	RolePayloadSize
	RoleVTableEntry
	RoleGenericArg
	RoleWitnessTable
)

var roleNames = [...]string{
	RoleInvalid:      "invalid",
	RoleDestructor:   "destructor",
	RoleValueWitness: "value-witness",
	RoleKind:         "kind",
	RoleDescriptor:   "descriptor",
	RoleParent:       "parent",
	RoleMetaclass:    "metaclass",
	RoleSuperclass:   "superclass",
	RoleCache:        "cache",
	RoleForeignData:  "foreign-data",
	RoleInstanceSize: "instance-size",
	RoleAlignMask:    "align-mask",
	RoleFieldOffset:  "field-offset",
	RolePayloadSize:  "payload-size",
	RoleVTableEntry:  "vtable",
	RoleGenericArg:   "generic-arg",
	RoleWitnessTable: "witness-table",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", r)
}

// Cell is one record word.
type Cell struct {
	// Index is relative to the address point.
	Index int
	Role  Role
	// Decl owns the cell for per-level roles; Level indexes Shape.Levels.
	Decl  *types.NominalDecl
	Level int
	// Element indexes the layout's Elements for RoleFieldOffset.
	Element int
	// Slot indexes the dispatch table for RoleVTableEntry.
	Slot int
	// Arg is the generic argument index within Decl: parameters first,
	// then one witness table per requirement.
	Arg int
}

// Level is the word range one declaration contributes after the fixed
// header. Structs and enums have a single level.
type Level struct {
	Type  types.TypeID
	Decl  *types.NominalDecl
	Start int
	Count int
	// Fields, VTable and Args are the starting indices of each section.
	Fields int
	VTable int
	Args   int
}

// Shape is the word layout of a metadata record.
type Shape struct {
	Type types.TypeID
	Kind types.DeclKind
	// AddressPoint is the number of words before index 0.
	AddressPoint int
	Cells        []Cell
	Levels       []Level

	fieldWord map[int]int
	slotWord  map[int]int
}

// Words is the total record size in words.
func (s *Shape) Words() int {
	return len(s.Cells)
}

// Cell returns the cell at index (relative to the address point).
func (s *Shape) Cell(index int) Cell {
	return s.Cells[index+s.AddressPoint]
}

// FieldOffsetWord returns the index of the offset cell for the layout
// element at el.
func (s *Shape) FieldOffsetWord(el int) (int, bool) {
	w, ok := s.fieldWord[el]
	return w, ok
}

// VTableWord returns the index of the entry for a dispatch slot.
func (s *Shape) VTableWord(slot int) (int, bool) {
	w, ok := s.slotWord[slot]
	return w, ok
}

// LevelOf returns the level decl contributes.
func (s *Shape) LevelOf(decl *types.NominalDecl) (Level, bool) {
	for _, lvl := range s.Levels {
		if lvl.Decl == decl {
			return lvl, true
		}
	}
	return Level{}, false
}

// ArgWord returns the index of decl's generic argument cell arg.
func (s *Shape) ArgWord(decl *types.NominalDecl, arg int) (int, bool) {
	lvl, ok := s.LevelOf(decl)
	if !ok || arg < 0 || arg >= decl.GenericArgCount() {
		return 0, false
	}
	return lvl.Args + arg, true
}

// FixedWord returns the index of a header role such as RoleInstanceSize.
func (s *Shape) FixedWord(role Role) (int, bool) {
	for _, c := range s.Cells {
		if c.Role == role {
			return c.Index, true
		}
		if c.Role == RoleFieldOffset || c.Role == RolePayloadSize || c.Role == RoleVTableEntry {
			break
		}
	}
	return 0, false
}

type builder struct {
	shape *Shape
}

func (b *builder) add(c Cell) int {
	c.Index = len(b.shape.Cells) - b.shape.AddressPoint
	b.shape.Cells = append(b.shape.Cells, c)
	return c.Index
}

func (b *builder) header(roles ...Role) {
	for _, r := range roles {
		b.add(Cell{Role: r, Level: -1})
	}
}

// Build lays out the record of the type described by l. table is required
// for classes and ignored otherwise.
func Build(l layout.TypeLayout, decl *types.NominalDecl, table *vtable.Table) *Shape {
	b := &builder{shape: &Shape{
		Type:      l.Type,
		Kind:      decl.Kind,
		fieldWord: make(map[int]int, len(l.Elements)),
		slotWord:  make(map[int]int),
	}}
	switch decl.Kind {
	case types.DeclClass:
		diag.Assert(table != nil, "class %s shaped without a dispatch table", decl.Name)
		b.class(l, table)
	case types.DeclEnum:
		b.value(l, decl, RolePayloadSize)
	default:
		b.value(l, decl, RoleFieldOffset)
	}
	return b.shape
}

func (b *builder) value(l layout.TypeLayout, decl *types.NominalDecl, body Role) {
	b.shape.AddressPoint = 1
	b.header(RoleValueWitness, RoleKind, RoleDescriptor, RoleParent)

	lvl := Level{Type: l.Type, Decl: decl, Start: b.next()}
	lvl.Fields = lvl.Start
	if body == RolePayloadSize {
		b.add(Cell{Role: RolePayloadSize, Decl: decl})
	} else {
		for i := range l.Elements {
			b.shape.fieldWord[i] = b.add(Cell{Role: RoleFieldOffset, Decl: decl, Element: i})
		}
	}
	lvl.VTable = b.next()
	lvl.Args = lvl.VTable
	b.args(decl, 0)
	lvl.Count = b.next() - lvl.Start
	b.shape.Levels = append(b.shape.Levels, lvl)
}

func (b *builder) class(l layout.TypeLayout, table *vtable.Table) {
	b.shape.AddressPoint = 2
	b.header(RoleDestructor, RoleValueWitness, RoleMetaclass, RoleSuperclass,
		RoleCache, RoleCache, RoleForeignData, RoleInstanceSize, RoleAlignMask,
		RoleDescriptor, RoleParent)

	diag.Assert(len(table.Levels) == len(l.Hierarchy),
		"dispatch table of %d levels for a hierarchy of %d", len(table.Levels), len(l.Hierarchy))
	for li, node := range l.Hierarchy {
		lvl := Level{Type: node.Type, Decl: node.Decl, Start: b.next()}
		lvl.Fields = lvl.Start
		for i, el := range l.Elements {
			if el.Decl == node.Decl {
				b.shape.fieldWord[i] = b.add(Cell{Role: RoleFieldOffset, Decl: node.Decl, Level: li, Element: i})
			}
		}
		lvl.VTable = b.next()
		tl := table.Levels[li]
		diag.Assert(tl.Decl == node.Decl, "dispatch level %d is %s, hierarchy has %s", li, tl.Decl.Name, node.Decl.Name)
		for slot := tl.First; slot < tl.First+tl.Count; slot++ {
			b.shape.slotWord[slot] = b.add(Cell{Role: RoleVTableEntry, Decl: node.Decl, Level: li, Slot: slot})
		}
		lvl.Args = b.next()
		b.args(node.Decl, li)
		lvl.Count = b.next() - lvl.Start
		b.shape.Levels = append(b.shape.Levels, lvl)
	}
}

func (b *builder) args(decl *types.NominalDecl, level int) {
	n := 0
	for range decl.Generics {
		b.add(Cell{Role: RoleGenericArg, Decl: decl, Level: level, Arg: n})
		n++
	}
	for _, g := range decl.Generics {
		for range g.Requirements {
			b.add(Cell{Role: RoleWitnessTable, Decl: decl, Level: level, Arg: n})
			n++
		}
	}
}

func (b *builder) next() int {
	return len(b.shape.Cells) - b.shape.AddressPoint
}
