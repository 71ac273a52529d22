package types

import "slices"

// FnInfo stores metadata for thick function types.
type FnInfo struct {
	Params []TypeID
	Result TypeID
}

// BoundInfo is a generic nominal applied to arguments.
type BoundInfo struct {
	Base TypeID
	Args []TypeID
}

// InternArray returns the fixed-length array type [elem; count].
func (in *Interner) InternArray(elem TypeID, count uint32) TypeID {
	return in.Intern(MakeArray(elem, count))
}

// InternTuple creates or finds the tuple type with the given elements.
// The empty tuple is Unit.
func (in *Interner) InternTuple(elems []TypeID) TypeID {
	if len(elems) == 0 {
		return in.builtins.Unit
	}
	key := composedKey("tuple", NoTypeID, elems)
	if id, ok := in.composed[key]; ok {
		return id
	}
	in.tuples = append(in.tuples, slices.Clone(elems))
	id := in.internRaw(Type{Kind: KindTuple, Payload: slotOf(len(in.tuples)-1, "tuple info")})
	in.composed[key] = id
	return id
}

// TupleElems returns the element types of a tuple TypeID.
func (in *Interner) TupleElems(id TypeID) ([]TypeID, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTuple || int(tt.Payload) >= len(in.tuples) {
		return nil, false
	}
	return in.tuples[tt.Payload], true
}

// InternFn creates or finds a thick function type.
func (in *Interner) InternFn(params []TypeID, result TypeID) TypeID {
	key := composedKey("fn", result, params)
	if id, ok := in.composed[key]; ok {
		return id
	}
	in.fns = append(in.fns, FnInfo{Params: slices.Clone(params), Result: result})
	id := in.internRaw(Type{Kind: KindFn, Payload: slotOf(len(in.fns)-1, "fn info")})
	in.composed[key] = id
	return id
}

// FnInfo retrieves function type metadata by TypeID.
func (in *Interner) FnInfo(id TypeID) (*FnInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFn || int(tt.Payload) >= len(in.fns) {
		return nil, false
	}
	return &in.fns[tt.Payload], true
}

// InternBound applies a generic nominal to arguments. The caller checks
// arity; InternBound only deduplicates.
func (in *Interner) InternBound(base TypeID, args []TypeID) TypeID {
	key := composedKey("bound", base, args)
	if id, ok := in.composed[key]; ok {
		return id
	}
	in.bounds = append(in.bounds, BoundInfo{Base: base, Args: slices.Clone(args)})
	id := in.internRaw(Type{Kind: KindBound, Payload: slotOf(len(in.bounds)-1, "bound info")})
	in.composed[key] = id
	return id
}

// Bound returns the base and arguments of a bound generic type.
func (in *Interner) Bound(id TypeID) (BoundInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindBound || int(tt.Payload) >= len(in.bounds) {
		return BoundInfo{}, false
	}
	return in.bounds[tt.Payload], true
}
