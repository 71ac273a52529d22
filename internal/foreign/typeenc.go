package foreign

import (
	"strconv"
	"strings"

	"meridian/internal/types"
)

// encodeType renders t in the foreign runtime's type encoding.
func encodeType(in *types.Interner, t types.TypeID) string {
	var sb strings.Builder
	writeType(&sb, in, t)
	return sb.String()
}

func writeType(sb *strings.Builder, in *types.Interner, t types.TypeID) {
	tt, ok := in.Lookup(t)
	if !ok {
		sb.WriteByte('?')
		return
	}
	switch tt.Kind {
	case types.KindUnit:
		sb.WriteByte('v')
	case types.KindBool:
		sb.WriteByte('B')
	case types.KindInt:
		sb.WriteByte(intCode(tt.Width, "csiqq"))
	case types.KindUint:
		sb.WriteByte(intCode(tt.Width, "CSIQQ"))
	case types.KindFloat:
		if tt.Width == types.Width32 {
			sb.WriteByte('f')
		} else {
			sb.WriteByte('d')
		}
	case types.KindRawPointer:
		sb.WriteString("^v")
	case types.KindClass:
		sb.WriteByte('@')
	case types.KindFn:
		sb.WriteString("@?")
	case types.KindArray:
		sb.WriteByte('[')
		sb.WriteString(strconv.FormatUint(uint64(tt.Count), 10))
		writeType(sb, in, tt.Elem)
		sb.WriteByte(']')
	case types.KindTuple:
		elems, _ := in.TupleElems(t)
		sb.WriteString("{?=")
		for _, el := range elems {
			writeType(sb, in, el)
		}
		sb.WriteByte('}')
	case types.KindStruct, types.KindEnum, types.KindBound:
		decl, _, _ := in.NominalOf(t)
		if decl != nil && decl.Kind == types.DeclClass {
			sb.WriteByte('@')
			return
		}
		sb.WriteByte('{')
		if decl != nil {
			sb.WriteString(decl.Name)
		}
		sb.WriteByte('}')
	default:
		sb.WriteByte('?')
	}
}

func intCode(w types.Width, codes string) byte {
	switch w {
	case types.Width8:
		return codes[0]
	case types.Width16:
		return codes[1]
	case types.Width32:
		return codes[2]
	case types.Width64:
		return codes[3]
	}
	return codes[4]
}

// methodTypes encodes a method signature: result, receiver, selector,
// then the first-level parameters.
func methodTypes(in *types.Interner, sig types.Signature) string {
	var sb strings.Builder
	writeType(&sb, in, sig.Result)
	sb.WriteString("@:")
	if len(sig.Params) > 0 {
		for _, p := range sig.Params[0] {
			writeType(&sb, in, p)
		}
	}
	return sb.String()
}

// selectorOf is the explicit selector or one derived from the name and
// the first parameter level.
func selectorOf(m *types.Method) string {
	if m.Selector != "" {
		return m.Selector
	}
	if len(m.Sig.Params) == 0 || len(m.Sig.Params[0]) == 0 {
		return m.Name
	}
	return m.Name + strings.Repeat(":", len(m.Sig.Params[0]))
}

// propertyAttributes encodes a property's type and access.
func propertyAttributes(in *types.Interner, f *types.Field) string {
	var sb strings.Builder
	sb.WriteByte('T')
	writeType(&sb, in, f.Type)
	if f.Readonly {
		sb.WriteString(",R")
	}
	sb.WriteString(",N")
	if f.Stored {
		sb.WriteString(",V")
		sb.WriteString(f.Name)
	}
	return sb.String()
}
