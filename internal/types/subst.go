package types

// Subst maps generic parameter types to their replacements.
type Subst map[TypeID]TypeID

// Substitute rewrites every generic parameter of t found in s, interning
// the resulting composite types.
func (in *Interner) Substitute(t TypeID, s Subst) TypeID {
	if len(s) == 0 || t == NoTypeID {
		return t
	}
	tt, ok := in.Lookup(t)
	if !ok {
		return t
	}
	switch tt.Kind {
	case KindGenericParam:
		if r, found := s[t]; found {
			return r
		}
		return t
	case KindArray:
		elem := in.Substitute(tt.Elem, s)
		if elem == tt.Elem {
			return t
		}
		return in.InternArray(elem, tt.Count)
	case KindTuple:
		elems, _ := in.TupleElems(t)
		out, changed := in.substituteList(elems, s)
		if !changed {
			return t
		}
		return in.InternTuple(out)
	case KindFn:
		info, _ := in.FnInfo(t)
		params, changed := in.substituteList(info.Params, s)
		result := in.Substitute(info.Result, s)
		if !changed && result == info.Result {
			return t
		}
		return in.InternFn(params, result)
	case KindBound:
		b, _ := in.Bound(t)
		args, changed := in.substituteList(b.Args, s)
		if !changed {
			return t
		}
		return in.InternBound(b.Base, args)
	default:
		return t
	}
}

func (in *Interner) substituteList(ids []TypeID, s Subst) ([]TypeID, bool) {
	out := make([]TypeID, len(ids))
	changed := false
	for i, id := range ids {
		out[i] = in.Substitute(id, s)
		changed = changed || out[i] != id
	}
	return out, changed
}

// SubstituteSig applies s to every parameter level and the result.
func (in *Interner) SubstituteSig(sig Signature, s Subst) Signature {
	if len(s) == 0 {
		return sig
	}
	out := Signature{Params: make([][]TypeID, len(sig.Params)), Result: in.Substitute(sig.Result, s)}
	for i, level := range sig.Params {
		out.Params[i], _ = in.substituteList(level, s)
	}
	return out
}

// BindingsOf returns the substitution a bound generic applies to its
// declaration's parameters. Plain nominals yield nil.
func (in *Interner) BindingsOf(t TypeID) Subst {
	decl, args, ok := in.NominalOf(t)
	if !ok || len(args) == 0 {
		return nil
	}
	s := make(Subst, len(args))
	for i, g := range decl.Generics {
		if i < len(args) {
			s[g.Type] = args[i]
		}
	}
	return s
}

// DependsOnGenerics reports whether t mentions any generic parameter.
func (in *Interner) DependsOnGenerics(t TypeID) bool {
	tt, ok := in.Lookup(t)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindGenericParam:
		return true
	case KindArray:
		return in.DependsOnGenerics(tt.Elem)
	case KindTuple:
		elems, _ := in.TupleElems(t)
		return in.anyDepends(elems)
	case KindFn:
		info, _ := in.FnInfo(t)
		return in.anyDepends(info.Params) || in.DependsOnGenerics(info.Result)
	case KindBound:
		b, _ := in.Bound(t)
		return in.anyDepends(b.Args)
	}
	return false
}

func (in *Interner) anyDepends(ids []TypeID) bool {
	for _, id := range ids {
		if in.DependsOnGenerics(id) {
			return true
		}
	}
	return false
}
