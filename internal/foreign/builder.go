package foreign

import (
	"fmt"

	"fortio.org/safecast"

	"meridian/internal/diag"
	"meridian/internal/layout"
	"meridian/internal/mangle"
	"meridian/internal/objdata"
	"meridian/internal/types"
)

// Builder describes the entities of one unit and encodes them into Module.
type Builder struct {
	Layout   *layout.LayoutEngine
	Mangle   *mangle.Mangler
	Context  *Context
	Reporter diag.Reporter
	Module   *objdata.Module
	// Unit names categories that do not name their defining unit.
	Unit string

	pool *stringPool
}

func NewBuilder(le *layout.LayoutEngine, mg *mangle.Mangler, ctx *Context, module *objdata.Module, unit string, r diag.Reporter) *Builder {
	return &Builder{
		Layout:   le,
		Mangle:   mg,
		Context:  ctx,
		Reporter: r,
		Module:   module,
		Unit:     unit,
		pool:     newStringPool(module),
	}
}

func (b *Builder) ptrSize() int {
	return b.Layout.Target.PtrSize
}

// classRef is the class object of a native class: its metadata record at
// the address point.
func (b *Builder) classRef(decl *types.NominalDecl) (string, int64) {
	if decl.Foreign {
		return mangle.ForeignClass(decl.Name), 0
	}
	if decl.IsGeneric() {
		// registered at runtime under its plain name
		return mangle.ForeignClass(decl.Name), 0
	}
	return b.Mangle.Metadata(decl.ID), int64(2 * b.ptrSize())
}

// Class describes a non-generic native class.
func (b *Builder) Class(decl *types.NominalDecl) (*Descriptor, bool) {
	diag.Assert(decl.Kind == types.DeclClass && !decl.Foreign && !decl.IsGeneric(),
		"no static foreign descriptor for %s", decl.Name)
	tl, err := b.Layout.LayoutOf(decl.ID)
	if err != nil {
		return nil, false
	}

	d := &Descriptor{
		Role:  RoleClass,
		Name:  decl.Name,
		Decl:  decl,
		Flags: FlagCompiledByRC | FlagHasDestructor,
	}
	d.ClassRef, d.ClassRefAddend = b.classRef(decl)
	d.RootMetaclass = mangle.RootMetaclass
	if root := tl.Hierarchy[0].Decl; root.Foreign {
		d.RootMetaclass = mangle.ForeignMetaclass(root.Name)
	}
	if decl.Superclass == types.NoTypeID {
		d.Flags |= FlagRoot
		d.SuperMetaclass = d.RootMetaclass
	} else {
		sdecl, _, _ := b.Layout.Types.NominalOf(decl.Superclass)
		if sdecl.IsGeneric() {
			d.SuperPending = true
		} else {
			d.SuperRef, d.SuperAddend = b.classRef(sdecl)
			d.SuperMetaclass = mangle.ForeignMetaclass(sdecl.Name)
		}
	}

	ok := b.instanceExtents(d, decl, tl)
	own := tl.FieldsOf(decl)
	ops := d.Role.ops()
	acc := fold(decl.Members, members{}, func(acc members, m types.Member) members {
		switch m := m.(type) {
		case *types.Field:
			if m.Stored && ops.ivars {
				iv, good := b.ivar(decl, m, own)
				ok = ok && good
				acc = acc.withIvar(iv)
			}
			if m.Exposed || !ops.exposedOnly {
				acc = acc.withProperty(b.property(m))
			}
		case *types.Method:
			if m.Exposed || !ops.exposedOnly {
				acc = acc.withMethod(b.method(m), false)
			}
		}
		return acc
	})
	if !ok {
		return nil, false
	}
	d.apply(acc)
	d.Protocols = decl.Protocols
	return d, true
}

func (b *Builder) instanceExtents(d *Descriptor, decl *types.NominalDecl, tl layout.TypeLayout) bool {
	own := tl.FieldsOf(decl)
	if len(own) == 0 {
		return true
	}
	if !tl.NominalKnown {
		diag.ReportError(b.Reporter, diag.FrnIvarNotFixed, decl.Span,
			fmt.Sprintf("instance size of %s is only known at runtime", decl.Name)).Emit()
		return false
	}
	start, err1 := safecast.Conv[uint32](own[0].Offset)
	size, err2 := safecast.Conv[uint32](tl.NominalSize)
	if err1 != nil || err2 != nil {
		diag.ReportError(b.Reporter, diag.FrnInstanceTooBig, decl.Span,
			fmt.Sprintf("instance size %d of %s exceeds the foreign runtime's limit", tl.NominalSize, decl.Name)).Emit()
		return false
	}
	d.InstanceStart, d.InstanceSize = start, size
	return true
}

func (b *Builder) ivar(decl *types.NominalDecl, f *types.Field, own []layout.Element) (Ivar, bool) {
	idx, _ := decl.StoredFieldIndex(f.Name)
	var el layout.Element
	found := false
	for _, e := range own {
		if e.Index == idx {
			el, found = e, true
			break
		}
	}
	diag.Assert(found, "stored field %s.%s missing from its layout", decl.Name, f.Name)

	iv := Ivar{Name: f.Name, OffsetSymbol: b.Mangle.FieldOffset(decl, f.Name), Offset: el.Offset}
	if !el.IsFixed() {
		diag.ReportError(b.Reporter, diag.FrnIvarNotFixed, f.Span,
			fmt.Sprintf("ivar %s.%s has no fixed layout", decl.Name, f.Name)).Emit()
		return iv, false
	}
	size, err := safecast.Conv[int32](el.Size)
	if err != nil {
		diag.ReportError(b.Reporter, diag.FrnIvarSizeLimit, f.Span,
			fmt.Sprintf("ivar %s.%s is %d bytes; the foreign runtime records sizes as int32", decl.Name, f.Name, el.Size)).Emit()
		return iv, false
	}
	align, _ := safecast.Conv[int32](el.Align)
	iv.Size, iv.Align = size, align

	cell := objdata.NewWriter(iv.OffsetSymbol, objdata.SectionData, b.ptrSize())
	cell.Word(uint64(el.Offset))
	b.Module.Intern(cell.Finish())
	return iv, true
}

func (b *Builder) method(m *types.Method) Method {
	entry := Method{
		Selector: selectorOf(m),
		Types:    methodTypes(b.Layout.Types, m.Sig),
		Static:   m.Static,
		Optional: m.Optional,
	}
	if m.Owner != types.NoTypeID {
		entry.Impl = b.Mangle.Method(m) + "To"
	}
	return entry
}

func (b *Builder) property(f *types.Field) Property {
	return Property{Name: f.Name, Attributes: propertyAttributes(b.Layout.Types, f)}
}

// Category describes cat, naming it after its defining unit.
func (b *Builder) Category(cat *types.CategoryDecl) (*Descriptor, bool) {
	class, ok := b.Layout.Types.Nominal(cat.Class)
	diag.Assert(ok && class.Kind == types.DeclClass, "category on a non-class type")
	unit := cat.Unit
	if unit == "" {
		unit = b.Unit
	}
	d := &Descriptor{
		Role:  RoleCategory,
		Name:  b.Context.CategoryName(class.Name, unit),
		Class: class,
	}
	d.ClassRef, d.ClassRefAddend = b.classRef(class)

	good := true
	ops := d.Role.ops()
	acc := fold(cat.Members, members{}, func(acc members, m types.Member) members {
		switch m := m.(type) {
		case *types.Field:
			if m.Stored && !ops.ivars {
				diag.ReportError(b.Reporter, diag.PrjCategoryStorage, m.Span,
					fmt.Sprintf("category on %s cannot add stored property %s", class.Name, m.Name)).Emit()
				good = false
				return acc
			}
			acc = acc.withProperty(b.property(m))
		case *types.Method:
			acc = acc.withMethod(b.method(m), false)
		}
		return acc
	})
	if !good {
		return nil, false
	}
	d.apply(acc)
	d.Protocols = cat.Protocols
	return d, true
}

// Protocol describes p with required and optional methods kept apart.
func (b *Builder) Protocol(p *types.ProtocolDecl) *Descriptor {
	d := &Descriptor{Role: RoleProtocol, Name: p.Name, Protocols: p.Inherits}
	split := d.Role.ops().splitOptional
	d.apply(fold(p.Members, members{}, func(acc members, m types.Member) members {
		switch m := m.(type) {
		case *types.Field:
			acc = acc.withProperty(b.property(m))
		case *types.Method:
			entry := b.method(m)
			entry.Impl = ""
			acc = acc.withMethod(entry, split)
		}
		return acc
	}))
	return d
}

// Encode writes d's blobs into the module and returns the symbol of the
// descriptor proper.
func (b *Builder) Encode(d *Descriptor) string {
	e := &encoder{b: b, ptr: b.ptrSize()}
	d.Symbol = d.Role.ops().encode(e, d)
	return d.Symbol
}
