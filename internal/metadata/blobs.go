package metadata

import (
	"meridian/internal/layout"
	"meridian/internal/objdata"
	"meridian/internal/shape"
	"meridian/internal/template"
	"meridian/internal/types"
)

// Descriptor kinds of nominal type and context descriptors.
const (
	descModule uint32 = 0
	descClass  uint32 = 16
	descStruct uint32 = 17
	descEnum   uint32 = 18
)

func descriptorKind(k types.DeclKind) uint32 {
	switch k {
	case types.DeclClass:
		return descClass
	case types.DeclEnum:
		return descEnum
	}
	return descStruct
}

// putWords appends record words; every word the runtime writes starts as
// zero.
func putWords(w *objdata.Writer, words []shape.Word) {
	for _, word := range words {
		switch word.Kind {
		case shape.WordConstant:
			w.Word(word.Value)
		case shape.WordReloc:
			w.Ptr(word.Symbol, word.Addend)
		default:
			w.Null()
		}
	}
}

func (e *Emitter) recordBlob(rec *Record) *objdata.Blob {
	w := objdata.NewWriter(rec.Symbol, objdata.SectionMetadata, e.ptrSize())
	putWords(w, rec.Words)
	b := w.Finish()
	b.Constant = !rec.InPlaceInit
	return b
}

// patternBlob lays out a template as {fill function, total words,
// argument count, address point, private data size, private data,
// pattern words}.
func (e *Emitter) patternBlob(decl *types.NominalDecl, t *template.Template) *objdata.Blob {
	w := objdata.NewWriter(e.Mangle.Pattern(decl), objdata.SectionMetadata, e.ptrSize())
	w.Ptr(t.FillFunction, 0)
	w.Word(uint64(t.TotalWords))
	w.Word(uint64(t.NumArgs))
	w.Word(uint64(t.AddressPoint))
	w.Word(uint64(t.PrivateData))
	for range t.PrivateData {
		w.Null()
	}
	putWords(w, t.Words)
	b := w.Finish()
	b.Constant = true
	return b
}

// descriptorBlob is the nominal type descriptor: {parent context, name,
// u32 kind, u32 generic argument count, record or pattern}.
func (e *Emitter) descriptorBlob(rec *Record) *objdata.Blob {
	decl := rec.Decl
	sym := e.Mangle.Descriptor(decl)
	name := objdata.CString(sym+".name", decl.Name)
	e.Module.Add(name)

	w := objdata.NewWriter(sym, objdata.SectionConst, e.ptrSize())
	w.Ptr(e.contextBlob(decl.Module), 0)
	w.Ptr(name.Symbol, 0)
	w.U32(descriptorKind(decl.Kind)).U32(uint32(decl.GenericArgCount()))
	if rec.Generic() {
		w.Ptr(rec.Symbol, 0)
	} else {
		w.Ptr(rec.Symbol, int64(rec.Shape.AddressPoint*e.ptrSize()))
	}
	b := w.Finish()
	b.Constant = true
	return b
}

// contextBlob interns the module context descriptor {u32 kind, u32 0,
// name}.
func (e *Emitter) contextBlob(module string) string {
	sym := e.Mangle.Context(module)
	if _, ok := e.Module.Lookup(sym); ok {
		return sym
	}
	name := objdata.CString(sym+".name", module)
	e.Module.Add(name)

	w := objdata.NewWriter(sym, objdata.SectionConst, e.ptrSize())
	w.U32(descModule).U32(0)
	w.Ptr(name.Symbol, 0)
	b := w.Finish()
	b.Constant = true
	e.Module.Add(b)
	return sym
}

// offsetGlobals emits the cells code reads offsets from at run time: one
// per field accessed through a global, and the level start of a class
// whose metadata layout is resilient. They hold nominal values the runtime
// may rewrite.
func (e *Emitter) offsetGlobals(decl *types.NominalDecl, tl layout.TypeLayout, s *shape.Shape) {
	for _, el := range tl.FieldsOf(decl) {
		if el.Strategy != layout.NonConstantDirect {
			continue
		}
		w := objdata.NewWriter(e.Mangle.FieldOffset(decl, el.Field.Name), objdata.SectionData, e.ptrSize())
		w.Word(uint64(el.Offset))
		e.Module.Intern(w.Finish())
	}
	if decl.Kind != types.DeclClass || tl.Metadata != layout.MetadataResilient {
		return
	}
	lvl, ok := s.LevelOf(decl)
	if !ok {
		return
	}
	w := objdata.NewWriter(e.Mangle.LevelOffset(decl), objdata.SectionData, e.ptrSize())
	w.Word(uint64(lvl.Start))
	e.Module.Add(w.Finish())
}
