package metadata

import (
	"meridian/internal/diag"
	"meridian/internal/foreign"
	"meridian/internal/layout"
	"meridian/internal/mangle"
	"meridian/internal/shape"
	"meridian/internal/types"
	"meridian/internal/vtable"
)

// wordBuilder fills in one record's cells. In a generic record the
// declaration's own argument cells become fill words, its own dynamic
// offsets runtime words, and ancestor cells that depend on the
// instantiation are copied from the superclass record.
type wordBuilder struct {
	e       *Emitter
	decl    *types.NominalDecl
	layout  layout.TypeLayout
	shape   *shape.Shape
	table   *vtable.Table
	generic bool
	foreign *foreign.Descriptor

	// runtime counts runtime-computed cells of a concrete record.
	runtime int
	caches  int
}

func (b *wordBuilder) build() []shape.Word {
	out := make([]shape.Word, len(b.shape.Cells))
	for i, c := range b.shape.Cells {
		w := b.word(c)
		if w.Kind == shape.WordRuntime && !b.generic {
			b.runtime++
		}
		out[i] = w
	}
	return out
}

func (b *wordBuilder) word(c shape.Cell) shape.Word {
	e := b.e
	switch c.Role {
	case shape.RoleDestructor:
		return shape.Reloc(e.Mangle.Destructor(b.decl), 0)
	case shape.RoleValueWitness:
		return shape.Reloc(e.Mangle.ValueWitness(b.decl.ID), 0)
	case shape.RoleKind:
		if b.decl.Kind == types.DeclEnum {
			return shape.Const(KindEnum)
		}
		return shape.Const(KindStruct)
	case shape.RoleDescriptor:
		return shape.Reloc(e.Mangle.Descriptor(b.decl), 0)
	case shape.RoleParent:
		return shape.Reloc(e.Mangle.Context(b.decl.Module), 0)
	case shape.RoleMetaclass:
		return b.metaclass()
	case shape.RoleSuperclass:
		return b.superclass()
	case shape.RoleCache:
		b.caches++
		if e.Foreign != nil && b.caches == 1 {
			return shape.Reloc(mangle.EmptyCache, 0)
		}
		return shape.Const(0)
	case shape.RoleForeignData:
		return b.foreignData()
	case shape.RoleInstanceSize:
		if b.layout.IsFixed() {
			return shape.Const(uint64(b.layout.Size))
		}
		return shape.Runtime()
	case shape.RoleAlignMask:
		if b.layout.IsFixed() {
			return shape.Const(uint64(b.layout.AlignMask()))
		}
		return shape.Runtime()
	case shape.RoleFieldOffset:
		el := b.layout.Elements[c.Element]
		if el.OffsetKnown {
			return shape.Const(uint64(el.Offset))
		}
		return b.dynamic(c)
	case shape.RolePayloadSize:
		return b.payloadSize()
	case shape.RoleVTableEntry:
		return b.vtableEntry(c.Slot)
	case shape.RoleGenericArg, shape.RoleWitnessTable:
		return b.arg(c)
	}
	diag.ICE("%s: cell %d has no role", b.decl.Name, c.Index)
	return shape.Word{}
}

// dynamic is a cell whose value only the runtime knows. Ancestor cells of
// a generic class are copied from the instantiated superclass.
func (b *wordBuilder) dynamic(c shape.Cell) shape.Word {
	if b.generic && c.Decl != b.decl {
		return shape.Copied()
	}
	return shape.Runtime()
}

func (b *wordBuilder) metaclass() shape.Word {
	switch {
	case b.e.Foreign == nil:
		return shape.Const(KindClass)
	case b.generic:
		return shape.Runtime()
	}
	return shape.Reloc(mangle.ForeignMetaclass(b.decl.Name), 0)
}

func (b *wordBuilder) superclass() shape.Word {
	e := b.e
	if b.decl.Superclass == types.NoTypeID {
		if e.Foreign != nil {
			return shape.Reloc(mangle.RootClass, 0)
		}
		return shape.Const(0)
	}
	sdecl, _, _ := e.Layout.Types.NominalOf(b.decl.Superclass)
	switch {
	case sdecl.Foreign:
		return shape.Reloc(mangle.ForeignClass(sdecl.Name), 0)
	case sdecl.IsGeneric():
		return shape.Runtime()
	}
	return shape.Reloc(e.Mangle.Metadata(sdecl.ID), e.addressPoint(sdecl.ID))
}

// foreignData is the pointer to the class's read-only foreign data with
// the low bit set to mark a natively implemented class.
func (b *wordBuilder) foreignData() shape.Word {
	switch {
	case b.e.Foreign == nil:
		return shape.Const(1)
	case b.generic:
		return shape.Runtime()
	}
	diag.Assert(b.foreign != nil && b.foreign.Symbol != "", "%s: foreign data not encoded", b.decl.Name)
	return shape.Reloc(b.foreign.Symbol, 1)
}

func (b *wordBuilder) payloadSize() shape.Word {
	payload := 0
	for _, el := range b.layout.Elements {
		if !el.IsFixed() {
			return shape.Runtime()
		}
		payload = max(payload, el.Size)
	}
	return shape.Const(uint64(payload))
}

func (b *wordBuilder) vtableEntry(slot int) shape.Word {
	diag.Assert(b.table != nil && slot < len(b.table.Slots), "%s: slot %d outside the dispatch table", b.decl.Name, slot)
	s := b.table.Slots[slot]
	in := b.e.Layout.Types
	impl, ok := in.Method(s.FinalOverrider)
	if !ok {
		diag.ICE("%s: slot %d has no final overrider", b.decl.Name, slot)
	}
	if s.Thunk {
		intro, _ := in.Method(s.Method)
		return shape.Reloc(b.e.Mangle.Thunk(intro, impl), 0)
	}
	return shape.Reloc(b.e.Mangle.Method(impl), 0)
}

// arg is a generic argument or witness table cell of some level.
func (b *wordBuilder) arg(c shape.Cell) shape.Word {
	if b.generic && c.Decl == b.decl {
		return shape.Fill(c.Arg)
	}
	diag.Assert(c.Decl.Kind == types.DeclClass && c.Level < len(b.layout.Hierarchy),
		"%s: argument cell %d outside the declaration's own level", b.decl.Name, c.Index)
	node := b.layout.Hierarchy[c.Level]
	_, args, _ := b.e.Layout.Types.NominalOf(node.Type)
	diag.Assert(len(args) == len(c.Decl.Generics), "%s: level %s bound with %d arguments", b.decl.Name, c.Decl.Name, len(args))

	param, proto := requirementAt(c.Decl, c.Arg)
	t := args[param]
	if !b.e.static(t) {
		return b.dynamic(c)
	}
	if c.Role == shape.RoleWitnessTable {
		return shape.Reloc(b.e.Mangle.WitnessTable(t, proto), 0)
	}
	return shape.Reloc(b.e.Mangle.Metadata(t), b.e.addressPoint(t))
}

// requirementAt maps a generic argument cell to its parameter and, for
// witness tables, the protocol.
func requirementAt(decl *types.NominalDecl, arg int) (int, string) {
	if arg < len(decl.Generics) {
		return arg, ""
	}
	n := len(decl.Generics)
	for i, g := range decl.Generics {
		for _, proto := range g.Requirements {
			if n == arg {
				return i, proto
			}
			n++
		}
	}
	diag.ICE("%s: argument cell %d out of range", decl.Name, arg)
	return 0, ""
}

// static reports whether t has a record emitted at compile time.
func (e *Emitter) static(t types.TypeID) bool {
	if e.Layout.Types.DependsOnGenerics(t) {
		return false
	}
	_, bound := e.Layout.Types.Bound(t)
	return !bound
}

// addressPoint is the byte offset from a record's symbol to the address
// point references use.
func (e *Emitter) addressPoint(t types.TypeID) int64 {
	words := 1
	if decl, _, ok := e.Layout.Types.NominalOf(t); ok && decl.Kind == types.DeclClass {
		words = 2
	}
	return int64(words * e.ptrSize())
}
