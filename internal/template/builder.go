package template

import (
	"fmt"

	"meridian/internal/diag"
	"meridian/internal/layout"
	"meridian/internal/mangle"
	"meridian/internal/shape"
	"meridian/internal/types"
)

// Builder turns pattern words into templates.
type Builder struct {
	Layout   *layout.LayoutEngine
	Mangle   *mangle.Mangler
	Reporter diag.Reporter
	// Interop requests minimal foreign registration for generic classes.
	Interop bool
}

// Input is one generic type's record, computed in the declaration's own
// generic environment.
type Input struct {
	Decl   *types.NominalDecl
	Layout layout.TypeLayout
	Shape  *shape.Shape
	Words  []shape.Word
}

// Build assembles the template. It reports diagnostics and returns false
// when the runtime could not complete an instantiation.
func (b *Builder) Build(in Input) (*Template, bool) {
	decl, s := in.Decl, in.Shape
	diag.Assert(decl.IsGeneric(), "template requested for non-generic %s", decl.Name)
	diag.Assert(len(in.Words) == s.Words(), "%s: %d pattern words for a %d-word record", decl.Name, len(in.Words), s.Words())

	t := &Template{
		Name: decl.Name,
		Type: in.Layout.Type,
		Kind: decl.Kind,
		Header: Header{
			FillFunction: b.Mangle.FillFunction(decl),
			TotalWords:   s.Words(),
			NumArgs:      decl.GenericArgCount(),
			AddressPoint: s.AddressPoint,
			PrivateData:  PrivateDataWords,
		},
		Words: in.Words,
	}
	if t.HasTail() {
		t.TotalWords += TailWords
	}
	b.collectFills(t, decl, s)
	t.Copies = copyRanges(in.Words, s.AddressPoint)

	ok := true
	switch decl.Kind {
	case types.DeclClass:
		ok = b.classWork(t, in)
	case types.DeclEnum:
		ok = b.enumWork(t, in)
	default:
		ok = b.structWork(t, in)
	}
	if !ok {
		return nil, false
	}
	return t, true
}

// collectFills emits one fill operation per generic argument of decl
// itself: parameters first, then witness tables, in declaration order.
func (b *Builder) collectFills(t *Template, decl *types.NominalDecl, s *shape.Shape) {
	for i, w := range t.Words {
		if w.Kind != shape.WordFill {
			continue
		}
		cell := s.Cells[i]
		diag.Assert(cell.Decl == decl, "%s: fill word %d belongs to an ancestor", decl.Name, cell.Index)
		t.Fills = append(t.Fills, FillOp{Source: w.Arg, Dest: cell.Index})
	}
	diag.Assert(len(t.Fills) == t.NumArgs, "%s: %d fill operations for %d generic arguments", decl.Name, len(t.Fills), t.NumArgs)
}

func copyRanges(words []shape.Word, addressPoint int) []CopyRange {
	var out []CopyRange
	for i := 0; i < len(words); i++ {
		if words[i].Kind != shape.WordCopied {
			continue
		}
		start := i
		for i+1 < len(words) && words[i+1].Kind == shape.WordCopied {
			i++
		}
		out = append(out, CopyRange{Dest: start - addressPoint, Count: i - start + 1})
	}
	return out
}

func (b *Builder) structWork(t *Template, in Input) bool {
	ok := true
	for i, el := range in.Layout.Elements {
		word, found := in.Shape.FieldOffsetWord(i)
		diag.Assert(found, "%s: field %d has no offset cell", in.Decl.Name, i)
		src, good := b.fieldSource(in.Decl, el, word)
		ok = ok && good
		t.Fields = append(t.Fields, src)
	}
	return ok
}

func (b *Builder) enumWork(t *Template, in Input) bool {
	t.TagSize = in.Layout.TagSize
	lvl, _ := in.Shape.LevelOf(in.Decl)
	ok := true
	for _, el := range in.Layout.Elements {
		src, good := b.fieldSource(in.Decl, el, lvl.Fields)
		ok = ok && good
		t.Fields = append(t.Fields, src)
	}
	return ok
}

func (b *Builder) classWork(t *Template, in Input) bool {
	decl, s := in.Decl, in.Shape
	t.HeaderSize = in.Layout.HeaderSize
	t.MinAlign = b.Layout.Target.PtrAlign
	t.InstanceSizeWord, _ = s.FixedWord(shape.RoleInstanceSize)
	t.AlignMaskWord, _ = s.FixedWord(shape.RoleAlignMask)
	if b.Interop {
		t.RegisterForeign = true
		t.ForeignName = decl.Name
	}

	super, ok := b.Superclass(decl)
	t.Super = super
	for i, el := range in.Layout.Elements {
		if el.Decl != decl {
			continue
		}
		word, found := s.FieldOffsetWord(i)
		diag.Assert(found, "%s: field %s has no offset cell", decl.Name, el.Field.Name)
		src, good := b.fieldSource(decl, el, word)
		ok = ok && good
		t.Fields = append(t.Fields, src)
	}
	return ok
}

func (b *Builder) fieldSource(decl *types.NominalDecl, el layout.Element, word int) (FieldSource, bool) {
	src := FieldSource{
		Offset:      el.Offset,
		OffsetKnown: el.OffsetKnown,
		Word:        word,
	}
	span := decl.Span
	switch {
	case el.Field != nil:
		src.Name, span = el.Field.Name, el.Field.Span
	case el.Case != nil:
		src.Name, span = el.Case.Name, el.Case.Span
	}

	if el.IsFixed() {
		src.Type = TypeSource{Kind: SourceFixed, Size: el.Size, Align: el.Align}
		return src, true
	}
	ts, ok := b.typeSource(decl, el.Type)
	if ok {
		src.Type = ts
		return src, true
	}
	diag.ReportError(b.Reporter, diag.LayDynamicUnsupported, span,
		fmt.Sprintf("the layout of %s.%s (%s) cannot be computed when %s is instantiated",
			decl.Name, src.Name, b.Layout.Types.TypeString(el.Type), decl.Name)).
		WithNote(decl.Span, "generic arguments of nested types must be parameters of "+decl.Name+" or non-generic types").
		Emit()
	return src, false
}

// typeSource describes how to lay out t once decl's arguments are known.
func (b *Builder) typeSource(decl *types.NominalDecl, t types.TypeID) (TypeSource, bool) {
	if size, align, fixed, err := b.Layout.FixedSize(t); err == nil && fixed {
		return TypeSource{Kind: SourceFixed, Size: size, Align: align}, true
	}
	if elems, ok := b.Layout.Types.TupleElems(t); ok {
		out := TypeSource{Kind: SourceTuple, Elems: make([]TypeSource, 0, len(elems))}
		for _, el := range elems {
			src, ok := b.typeSource(decl, el)
			if !ok {
				return TypeSource{}, false
			}
			out.Elems = append(out.Elems, src)
		}
		return out, true
	}
	if tt, ok := b.Layout.Types.Lookup(t); ok && tt.Kind == types.KindArray {
		elem, ok := b.typeSource(decl, tt.Elem)
		if !ok {
			return TypeSource{}, false
		}
		return TypeSource{Kind: SourceArray, Count: int(tt.Count), Elems: []TypeSource{elem}}, true
	}
	return b.metadataSource(decl, t)
}

// metadataSource describes how to obtain the metadata record of t.
func (b *Builder) metadataSource(decl *types.NominalDecl, t types.TypeID) (TypeSource, bool) {
	if p, ok := b.Layout.Types.GenericParam(t); ok {
		return TypeSource{Kind: SourceArg, Arg: p.Index}, p.Owner == decl.ID
	}
	if !b.Layout.Types.DependsOnGenerics(t) {
		if _, isBound := b.Layout.Types.Bound(t); !isBound {
			return TypeSource{Kind: SourceSymbol, Symbol: b.Mangle.Metadata(t)}, true
		}
	}
	nd, args, ok := b.Layout.Types.NominalOf(t)
	if !ok || !nd.IsGeneric() || len(args) != len(nd.Generics) {
		return TypeSource{}, false
	}
	out := TypeSource{Kind: SourceBound, Symbol: b.Mangle.Pattern(nd)}
	for _, a := range args {
		src, ok := b.metadataSource(decl, a)
		if !ok {
			return TypeSource{}, false
		}
		out.Elems = append(out.Elems, src)
	}
	for i, g := range nd.Generics {
		for _, proto := range g.Requirements {
			w, ok := b.witnessSource(decl, args[i], proto)
			if !ok {
				return TypeSource{}, false
			}
			if w.Symbol != "" {
				out.Elems = append(out.Elems, TypeSource{Kind: SourceSymbol, Symbol: w.Symbol})
			} else {
				out.Elems = append(out.Elems, TypeSource{Kind: SourceArg, Arg: w.Arg})
			}
		}
	}
	return out, true
}

// Superclass describes how the runtime obtains decl's superclass metadata.
// It reports a diagnostic and returns false for arguments it cannot
// express.
func (b *Builder) Superclass(decl *types.NominalDecl) (*SuperclassRef, bool) {
	if decl.Superclass == types.NoTypeID {
		return nil, true
	}
	sdecl, args, _ := b.Layout.Types.NominalOf(decl.Superclass)
	diag.Assert(sdecl != nil && sdecl.Kind == types.DeclClass, "%s: superclass is not a class", decl.Name)
	if sdecl.Foreign {
		return &SuperclassRef{Symbol: mangle.ForeignClass(sdecl.Name), Foreign: true}, true
	}
	if !sdecl.IsGeneric() {
		return &SuperclassRef{Symbol: b.Mangle.Metadata(decl.Superclass)}, true
	}

	ref := &SuperclassRef{Pattern: b.Mangle.Pattern(sdecl)}
	for _, a := range args {
		src, ok := b.argSource(decl, a)
		if !ok {
			return nil, b.superclassUnsupported(decl, a)
		}
		ref.Args = append(ref.Args, src)
	}
	for i, g := range sdecl.Generics {
		for _, proto := range g.Requirements {
			src, ok := b.witnessSource(decl, args[i], proto)
			if !ok {
				return nil, b.superclassUnsupported(decl, args[i])
			}
			ref.Args = append(ref.Args, src)
		}
	}
	return ref, true
}

func (b *Builder) argSource(decl *types.NominalDecl, a types.TypeID) (ArgSource, bool) {
	if p, ok := b.Layout.Types.GenericParam(a); ok {
		return ArgSource{Arg: p.Index}, p.Owner == decl.ID
	}
	if b.concrete(a) {
		return ArgSource{Arg: -1, Symbol: b.Mangle.Metadata(a)}, true
	}
	return ArgSource{}, false
}

func (b *Builder) witnessSource(decl *types.NominalDecl, a types.TypeID, proto string) (ArgSource, bool) {
	if p, ok := b.Layout.Types.GenericParam(a); ok {
		if p.Owner != decl.ID {
			return ArgSource{}, false
		}
		n := len(decl.Generics)
		for gi, g := range decl.Generics {
			for _, r := range g.Requirements {
				if gi == p.Index && r == proto {
					return ArgSource{Arg: n}, true
				}
				n++
			}
		}
		return ArgSource{}, false
	}
	if b.concrete(a) {
		return ArgSource{Arg: -1, Symbol: b.Mangle.WitnessTable(a, proto)}, true
	}
	return ArgSource{}, false
}

// concrete reports whether a has a statically emitted metadata record.
func (b *Builder) concrete(a types.TypeID) bool {
	if b.Layout.Types.DependsOnGenerics(a) {
		return false
	}
	_, isBound := b.Layout.Types.Bound(a)
	return !isBound
}

func (b *Builder) superclassUnsupported(decl *types.NominalDecl, arg types.TypeID) bool {
	diag.ReportError(b.Reporter, diag.LaySuperclassUnsupported, decl.Span,
		fmt.Sprintf("superclass argument %s of %s must be a generic parameter of %s or a non-generic type",
			b.Layout.Types.TypeString(arg), decl.Name, decl.Name)).Emit()
	return false
}
