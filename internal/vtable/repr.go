package vtable

import (
	"slices"
	"strings"

	"meridian/internal/layout"
	"meridian/internal/types"
)

// Scalar is one register-sized unit of a direct value.
type Scalar uint8

const (
	ScalarI1 Scalar = iota + 1
	ScalarI8
	ScalarI16
	ScalarI32
	ScalarI64
	ScalarF32
	ScalarF64
	ScalarPtr
)

func (s Scalar) String() string {
	switch s {
	case ScalarI1:
		return "i1"
	case ScalarI8:
		return "i8"
	case ScalarI16:
		return "i16"
	case ScalarI32:
		return "i32"
	case ScalarI64:
		return "i64"
	case ScalarF32:
		return "f32"
	case ScalarF64:
		return "f64"
	case ScalarPtr:
		return "ptr"
	}
	return "?"
}

// MaxDirectScalars is the largest value passed in registers.
const MaxDirectScalars = 4

// Repr is the calling-convention representation of a value: passed
// indirectly, or directly as an explicit scalar schema.
type Repr struct {
	Indirect bool
	Scalars  []Scalar
}

func (r Repr) Equal(other Repr) bool {
	if r.Indirect || other.Indirect {
		return r.Indirect == other.Indirect
	}
	return slices.Equal(r.Scalars, other.Scalars)
}

func (r Repr) String() string {
	if r.Indirect {
		return "indirect"
	}
	parts := make([]string, len(r.Scalars))
	for i, s := range r.Scalars {
		parts[i] = s.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var indirect = Repr{Indirect: true}

// Lower computes the representation of t in its own generic environment:
// generic parameters and non-fixed types are indirect.
func Lower(le *layout.LayoutEngine, t types.TypeID) Repr {
	scalars, ok := lowerInto(le, t, nil)
	if !ok || len(scalars) > MaxDirectScalars {
		return indirect
	}
	return Repr{Scalars: scalars}
}

func lowerInto(le *layout.LayoutEngine, t types.TypeID, out []Scalar) ([]Scalar, bool) {
	tt, ok := le.Types.Lookup(t)
	if !ok {
		return nil, false
	}
	switch tt.Kind {
	case types.KindUnit:
		return out, true
	case types.KindBool:
		return append(out, ScalarI1), true
	case types.KindInt, types.KindUint:
		return append(out, intScalar(le, tt.Width)), true
	case types.KindFloat:
		if tt.Width == types.Width32 {
			return append(out, ScalarF32), true
		}
		return append(out, ScalarF64), true
	case types.KindRawPointer, types.KindClass:
		return append(out, ScalarPtr), true
	case types.KindFn:
		return append(out, ScalarPtr, ScalarPtr), true
	case types.KindGenericParam:
		return nil, false
	case types.KindTuple:
		elems, _ := le.Types.TupleElems(t)
		for _, el := range elems {
			if out, ok = lowerInto(le, el, out); !ok {
				return nil, false
			}
		}
		return out, true
	case types.KindArray:
		if tt.Count > MaxDirectScalars {
			return nil, false
		}
		for range tt.Count {
			if out, ok = lowerInto(le, tt.Elem, out); !ok {
				return nil, false
			}
		}
		return out, true
	case types.KindStruct, types.KindEnum, types.KindBound:
		decl, _, found := le.Types.NominalOf(t)
		if !found {
			return nil, false
		}
		if decl.Kind == types.DeclClass {
			return append(out, ScalarPtr), true
		}
		l, err := le.LayoutOf(t)
		if err != nil || !l.IsFixed() {
			return nil, false
		}
		if decl.Kind == types.DeclEnum {
			return appendChunks(out, l.Size), true
		}
		for _, el := range l.Elements {
			if out, ok = lowerInto(le, el.Type, out); !ok {
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

func intScalar(le *layout.LayoutEngine, w types.Width) Scalar {
	switch w {
	case types.Width8:
		return ScalarI8
	case types.Width16:
		return ScalarI16
	case types.Width32:
		return ScalarI32
	case types.Width64:
		return ScalarI64
	}
	if le.Target.Is64Bit() {
		return ScalarI64
	}
	return ScalarI32
}

// appendChunks covers size bytes with the widest integers first.
func appendChunks(out []Scalar, size int) []Scalar {
	for size > 0 {
		switch {
		case size >= 8:
			out, size = append(out, ScalarI64), size-8
		case size >= 4:
			out, size = append(out, ScalarI32), size-4
		case size >= 2:
			out, size = append(out, ScalarI16), size-2
		default:
			out, size = append(out, ScalarI8), size-1
		}
	}
	return out
}

// SameRepresentation compares two signatures level by level through their
// curried parameter lists.
func SameRepresentation(le *layout.LayoutEngine, a, b types.Signature) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if len(a.Params[i]) != len(b.Params[i]) {
			return false
		}
		for j := range a.Params[i] {
			if !Lower(le, a.Params[i][j]).Equal(Lower(le, b.Params[i][j])) {
				return false
			}
		}
	}
	return Lower(le, a.Result).Equal(Lower(le, b.Result))
}
