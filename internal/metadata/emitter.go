// Package metadata assembles the metadata record of every nominal type a
// unit declares: a constant record for concrete types, a template for
// generic ones, plus the globals and descriptors those records point at.
package metadata

import (
	"errors"
	"fmt"

	"meridian/internal/abi"
	"meridian/internal/diag"
	"meridian/internal/foreign"
	"meridian/internal/layout"
	"meridian/internal/mangle"
	"meridian/internal/objdata"
	"meridian/internal/shape"
	"meridian/internal/source"
	"meridian/internal/template"
	"meridian/internal/types"
	"meridian/internal/vtable"
)

// Kind tags stored in the kind word of value type records.
const (
	KindClass  uint64 = 0
	KindStruct uint64 = 0x200
	KindEnum   uint64 = 0x201
)

// Record is the emitted metadata of one declaration.
type Record struct {
	Decl *types.NominalDecl
	// Type is the declared type; for generic declarations it is the
	// unbound declaration laid out in its own generic environment.
	Type   types.TypeID
	Symbol string
	Shape  *shape.Shape
	Words  []shape.Word
	// InPlaceInit is set on constant records with runtime-computed cells;
	// the runtime finishes them before first use.
	InPlaceInit bool

	// Template is set for generic declarations.
	Template *template.Template
	// Foreign is the static foreign descriptor of a non-generic class when
	// interop is enabled.
	Foreign *foreign.Descriptor
	// Super is how the runtime obtains the superclass of a non-generic
	// class whose superclass is a generic instantiation.
	Super *template.SuperclassRef
}

// Generic reports whether the record is a template pattern.
func (r *Record) Generic() bool {
	return r.Template != nil
}

// Emitter emits records into Module. It serves one unit and is not safe
// for concurrent use.
type Emitter struct {
	Layout    *layout.LayoutEngine
	VTables   *vtable.Resolver
	Lowering  *abi.Lowering
	Mangle    *mangle.Mangler
	Templates *template.Builder
	// Foreign is nil when the unit does not interoperate with the foreign
	// runtime.
	Foreign  *foreign.Builder
	Module   *objdata.Module
	Reporter diag.Reporter
}

// Config selects the unit-wide emission options.
type Config struct {
	Unit    string
	Interop bool
	Context *foreign.Context
}

// NewEmitter wires every engine one unit needs around le.
func NewEmitter(le *layout.LayoutEngine, module *objdata.Module, r diag.Reporter, cfg Config) *Emitter {
	mg := mangle.New(le.Types)
	vt := vtable.NewResolver(le)
	e := &Emitter{
		Layout:    le,
		VTables:   vt,
		Lowering:  abi.New(le, vt, mg),
		Mangle:    mg,
		Templates: &template.Builder{Layout: le, Mangle: mg, Reporter: r, Interop: cfg.Interop},
		Module:    module,
		Reporter:  r,
	}
	if cfg.Interop {
		ctx := cfg.Context
		if ctx == nil {
			ctx = foreign.NewContext()
		}
		e.Foreign = foreign.NewBuilder(le, mg, ctx, module, cfg.Unit, r)
	}
	return e
}

func (e *Emitter) ptrSize() int {
	return e.Layout.Target.PtrSize
}

// Emits reports whether decl gets a record from this unit: declarations of
// other modules and foreign-origin classes are only referenced.
func (e *Emitter) Emits(decl *types.NominalDecl) bool {
	return decl.Module == e.Layout.Module && !decl.Foreign
}

// Emit builds decl's record. It reports diagnostics and returns false when
// the declaration cannot be emitted; other declarations are unaffected.
func (e *Emitter) Emit(decl *types.NominalDecl) (*Record, bool) {
	diag.Assert(e.Emits(decl), "record of %s requested outside its module", decl.Name)

	tl, err := e.Layout.LayoutOf(decl.ID)
	if err != nil {
		e.reportError(decl, err)
		return nil, false
	}
	s, err := e.Lowering.Shape(decl.ID)
	if err != nil {
		e.reportError(decl, err)
		return nil, false
	}
	var table *vtable.Table
	if decl.Kind == types.DeclClass {
		if table, err = e.VTables.Resolve(decl.ID); err != nil {
			e.reportError(decl, err)
			return nil, false
		}
	}

	rec := &Record{Decl: decl, Type: decl.ID, Shape: s}
	generic := decl.IsGeneric()
	if decl.Kind == types.DeclClass && e.Foreign != nil && !generic {
		d, ok := e.Foreign.Class(decl)
		if !ok {
			return nil, false
		}
		e.Foreign.Encode(d)
		rec.Foreign = d
	}

	wb := &wordBuilder{e: e, decl: decl, layout: tl, shape: s, table: table, generic: generic, foreign: rec.Foreign}
	rec.Words = wb.build()
	e.offsetGlobals(decl, tl, s)

	if generic {
		t, ok := e.Templates.Build(template.Input{Decl: decl, Layout: tl, Shape: s, Words: rec.Words})
		if !ok {
			return nil, false
		}
		rec.Template = t
		rec.Symbol = e.Mangle.Pattern(decl)
		e.Module.Add(e.patternBlob(decl, t))
	} else {
		if decl.Kind == types.DeclClass && e.superclassGeneric(decl) {
			super, ok := e.Templates.Superclass(decl)
			if !ok {
				return nil, false
			}
			rec.Super = super
		}
		rec.Symbol = e.Mangle.Metadata(decl.ID)
		rec.InPlaceInit = wb.runtime > 0
		e.Module.Add(e.recordBlob(rec))
	}
	e.Module.Add(e.descriptorBlob(rec))
	return rec, true
}

func (e *Emitter) superclassGeneric(decl *types.NominalDecl) bool {
	if decl.Superclass == types.NoTypeID {
		return false
	}
	sdecl, _, _ := e.Layout.Types.NominalOf(decl.Superclass)
	return sdecl != nil && !sdecl.Foreign && sdecl.IsGeneric()
}

// EmitAll emits every declaration this unit owns, in order, and reports
// whether all of them succeeded.
func (e *Emitter) EmitAll(decls []*types.NominalDecl) ([]*Record, bool) {
	out := make([]*Record, 0, len(decls))
	ok := true
	for _, decl := range decls {
		if !e.Emits(decl) {
			continue
		}
		rec, good := e.Emit(decl)
		if !good {
			ok = false
			continue
		}
		out = append(out, rec)
	}
	return out, ok
}

// EmitCategory encodes a category; interop only.
func (e *Emitter) EmitCategory(cat *types.CategoryDecl) (*foreign.Descriptor, bool) {
	diag.Assert(e.Foreign != nil, "category emitted without foreign interop")
	d, ok := e.Foreign.Category(cat)
	if !ok {
		return nil, false
	}
	e.Foreign.Encode(d)
	return d, true
}

// EmitProtocol encodes a protocol; interop only.
func (e *Emitter) EmitProtocol(p *types.ProtocolDecl) *foreign.Descriptor {
	diag.Assert(e.Foreign != nil, "protocol emitted without foreign interop")
	d := e.Foreign.Protocol(p)
	e.Foreign.Encode(d)
	return d
}

// reportError turns a layout or dispatch failure into a diagnostic at the
// declaration that hit it.
func (e *Emitter) reportError(decl *types.NominalDecl, err error) {
	code, span := diag.EmtRecordFailed, decl.Span
	var lerr *layout.LayoutError
	if errors.As(err, &lerr) {
		code = layoutCode(lerr.Kind)
		if lerr.Span != (source.Span{}) {
			span = lerr.Span
		}
	}
	diag.ReportError(e.Reporter, code, span, fmt.Sprintf("cannot emit metadata for %s: %v", decl.Name, err)).Emit()
}

func layoutCode(k layout.LayoutErrorKind) diag.Code {
	switch k {
	case layout.LayoutErrRecursiveUnsized:
		return diag.LayRecursiveType
	case layout.LayoutErrCircularInheritance:
		return diag.LayCircularInheritance
	case layout.LayoutErrMissingGenericArgs:
		return diag.LayMissingGenericArgs
	case layout.LayoutErrSizeOverflow:
		return diag.LayArraySizeOverflow
	}
	return diag.EmtRecordFailed
}
