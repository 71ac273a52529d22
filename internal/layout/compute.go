package layout

import (
	"meridian/internal/types"
)

// typeInfo is what a containing aggregate needs to know about a field type.
type typeInfo struct {
	class SizeClass
	size  int
	align int
	pod   bool
}

func (e *LayoutEngine) ptrInfo(pod bool) typeInfo {
	return typeInfo{class: Fixed, size: e.Target.PtrSize, align: e.Target.PtrAlign, pod: pod}
}

func scalarInfo(bytes int) typeInfo {
	return typeInfo{class: Fixed, size: bytes, align: bytes, pod: true}
}

func infoOf(l TypeLayout) typeInfo {
	if l.Class != Fixed {
		return typeInfo{class: l.Class, align: 1, pod: false}
	}
	return typeInfo{class: Fixed, size: l.Size, align: l.Align, pod: l.POD}
}

// classify describes t as a field type. Class references are always one
// pointer; value types are laid out recursively.
func (e *LayoutEngine) classify(t types.TypeID, state *layoutState) (typeInfo, *LayoutError) {
	tt, ok := e.Types.Lookup(t)
	if !ok {
		return typeInfo{align: 1}, &LayoutError{Kind: LayoutErrUnknownType, Type: t}
	}

	switch tt.Kind {
	case types.KindUnit:
		return typeInfo{class: Fixed, size: 0, align: 1, pod: true}, nil

	case types.KindBool:
		return scalarInfo(1), nil

	case types.KindInt, types.KindUint, types.KindFloat:
		if tt.Width == types.WidthAny {
			return e.ptrInfo(true), nil
		}
		return scalarInfo(int(tt.Width) / 8), nil

	case types.KindRawPointer:
		return e.ptrInfo(true), nil

	case types.KindFn:
		// function pointer + retained context
		return typeInfo{class: Fixed, size: 2 * e.Target.PtrSize, align: e.Target.PtrAlign, pod: false}, nil

	case types.KindClass:
		return e.ptrInfo(false), nil

	case types.KindGenericParam:
		return typeInfo{class: GenericDependentSize, align: 1}, nil

	case types.KindStruct, types.KindEnum, types.KindBound:
		decl, args, _ := e.Types.NominalOf(t)
		if decl == nil {
			return typeInfo{align: 1}, &LayoutError{Kind: LayoutErrUnknownType, Type: t}
		}
		if decl.Kind == types.DeclClass {
			return e.ptrInfo(false), nil
		}
		if decl.IsGeneric() && len(args) == 0 {
			return typeInfo{align: 1}, &LayoutError{
				Kind: LayoutErrMissingGenericArgs,
				Type: t,
				Name: decl.Name,
			}
		}
		if e.isExternalResilient(decl) {
			return typeInfo{class: ResilientUnknownSize, align: 1}, nil
		}
		l, err := e.layoutOf(t, state)
		if err != nil {
			return typeInfo{align: 1}, err
		}
		return infoOf(l), nil

	case types.KindTuple, types.KindArray:
		l, err := e.layoutOf(t, state)
		if err != nil {
			return typeInfo{align: 1}, err
		}
		return infoOf(l), nil
	}
	return typeInfo{align: 1}, &LayoutError{Kind: LayoutErrUnknownType, Type: t, Name: tt.Kind.String()}
}

func (e *LayoutEngine) isExternalResilient(decl *types.NominalDecl) bool {
	return decl.Resilient && decl.Module != e.Module
}

func (e *LayoutEngine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{Align: 1}, &LayoutError{Kind: LayoutErrUnknownType, Type: id}
	}

	switch tt.Kind {
	case types.KindTuple:
		elems, _ := e.Types.TupleElems(id)
		return e.tupleLayout(elems, state)

	case types.KindArray:
		return e.arrayLayout(id, tt, state)

	case types.KindStruct, types.KindEnum, types.KindClass, types.KindBound:
		decl, _, _ := e.Types.NominalOf(id)
		if decl == nil {
			return TypeLayout{Align: 1}, &LayoutError{Kind: LayoutErrUnknownType, Type: id}
		}
		subst := e.Types.BindingsOf(id)
		switch decl.Kind {
		case types.DeclStruct:
			return e.structLayout(id, decl, subst, state)
		case types.DeclEnum:
			return e.enumLayout(id, decl, subst, state)
		default:
			return e.classLayout(id, state)
		}

	default:
		info, err := e.classify(id, state)
		if err != nil {
			return TypeLayout{Align: 1}, err
		}
		return TypeLayout{Size: info.size, Align: info.align, Class: info.class, POD: info.pod}, nil
	}
}

func (e *LayoutEngine) structLayout(id types.TypeID, decl *types.NominalDecl, subst types.Subst, state *layoutState) (TypeLayout, *LayoutError) {
	seq := newSequencer(e.Target, 0, 1, ObjectStatic)
	fields := decl.StoredFields()
	out := TypeLayout{Elements: make([]Element, 0, len(fields))}
	for i, f := range fields {
		before := seq.object
		ft := e.Types.Substitute(f.Type, subst)
		info, err := e.classify(ft, state)
		if err != nil {
			return TypeLayout{Align: 1}, err.at(f.Span)
		}
		el := seq.place(info)
		el.Type, el.Owner, el.Decl, el.Field, el.Index = ft, id, decl, f, i
		// Struct offsets are published absolutely in the metadata record.
		el.Strategy = ConstantDirect
		if before.Runtime() || info.class != Fixed {
			el.Strategy = ConstantIndirect
		}
		out.Elements = append(out.Elements, el)
	}
	out.Class = seq.class
	out.POD = seq.pod
	out.Object = seq.object
	if seq.class == Fixed {
		out.Size = seq.end()
		out.Align = seq.align
	}
	return out, nil
}

func (e *LayoutEngine) tupleLayout(elems []types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	seq := newSequencer(e.Target, 0, 1, ObjectStatic)
	out := TypeLayout{Elements: make([]Element, 0, len(elems))}
	for i, t := range elems {
		info, err := e.classify(t, state)
		if err != nil {
			return TypeLayout{Align: 1}, err
		}
		el := seq.place(info)
		el.Type, el.Index = t, i
		out.Elements = append(out.Elements, el)
	}
	out.Class = seq.class
	out.POD = seq.pod
	if seq.class == Fixed {
		out.Size = seq.end()
		out.Align = seq.align
	}
	return out, nil
}

func (e *LayoutEngine) arrayLayout(id types.TypeID, tt types.Type, state *layoutState) (TypeLayout, *LayoutError) {
	info, err := e.classify(tt.Elem, state)
	if err != nil {
		return TypeLayout{Align: 1}, err
	}
	if info.class != Fixed {
		return TypeLayout{Class: info.class, Align: 1}, nil
	}
	stride := int64(roundUp(info.size, info.align))
	count := int64(tt.Count)
	if stride > 0 && count > e.Target.MaxObjectSize()/stride {
		return TypeLayout{Align: 1}, &LayoutError{
			Kind:  LayoutErrSizeOverflow,
			Type:  id,
			Name:  e.Types.TypeString(id),
			Value: count,
		}
	}
	return TypeLayout{
		Size:  int(stride * count),
		Align: info.align,
		Class: Fixed,
		POD:   info.pod,
	}, nil
}

// enumLayout overlays every payload at offset zero and appends the tag.
func (e *LayoutEngine) enumLayout(id types.TypeID, decl *types.NominalDecl, subst types.Subst, state *layoutState) (TypeLayout, *LayoutError) {
	cases := decl.Cases()
	out := TypeLayout{POD: true, Class: Fixed}
	payloadSize, align := 0, 1
	for i, c := range cases {
		if c.Payload == types.NoTypeID {
			continue
		}
		pt := e.Types.Substitute(c.Payload, subst)
		info, err := e.classify(pt, state)
		if err != nil {
			return TypeLayout{Align: 1}, err.at(c.Span)
		}
		el := Element{
			Kind:        ElementFixed,
			OffsetKnown: true,
			Size:        info.size,
			Align:       info.align,
			SizeClass:   info.class,
			POD:         info.pod,
			Type:        pt,
			Owner:       id,
			Decl:        decl,
			Case:        c,
			Index:       i,
			Strategy:    ConstantDirect,
		}
		if info.class != Fixed {
			el.Kind = ElementNonFixed
		} else {
			payloadSize = max(payloadSize, info.size)
			align = max(align, info.align)
		}
		out.Class = max(out.Class, info.class)
		out.POD = out.POD && info.pod
		out.Elements = append(out.Elements, el)
	}

	out.TagSize = tagBytes(len(cases))
	if out.Class != Fixed {
		out.Object = arrangementFor(out.Class)
		return out, nil
	}
	out.TagOffset = roundUp(payloadSize, max(out.TagSize, 1))
	align = max(align, out.TagSize)
	out.Size = roundUp(out.TagOffset+out.TagSize, align)
	out.Align = align
	return out, nil
}

// tagBytes is the smallest integer width holding n case indices.
func tagBytes(n int) int {
	switch {
	case n <= 1:
		return 0
	case n <= 1<<8:
		return 1
	case n <= 1<<16:
		return 2
	default:
		return 4
	}
}
