package types

import (
	"fmt"
	"strings"
)

// TypeString renders t the way type expressions spell it.
func (in *Interner) TypeString(t TypeID) string {
	tt, ok := in.Lookup(t)
	if !ok {
		return fmt.Sprintf("type#%d", t)
	}
	switch tt.Kind {
	case KindUnit:
		return "Void"
	case KindBool:
		return "Bool"
	case KindInt:
		if tt.Width == WidthAny {
			return "Int"
		}
		return fmt.Sprintf("Int%d", tt.Width)
	case KindUint:
		if tt.Width == WidthAny {
			return "UInt"
		}
		return fmt.Sprintf("UInt%d", tt.Width)
	case KindFloat:
		return fmt.Sprintf("Float%d", tt.Width)
	case KindRawPointer:
		return "RawPointer"
	case KindArray:
		return fmt.Sprintf("[%s; %d]", in.TypeString(tt.Elem), tt.Count)
	case KindTuple:
		elems, _ := in.TupleElems(t)
		return "(" + in.joinTypes(elems) + ")"
	case KindFn:
		info, _ := in.FnInfo(t)
		return fmt.Sprintf("fn(%s) -> %s", in.joinTypes(info.Params), in.TypeString(info.Result))
	case KindGenericParam:
		p, _ := in.GenericParam(t)
		return p.Name
	case KindStruct, KindEnum, KindClass:
		decl, _ := in.Nominal(t)
		return decl.Name
	case KindBound:
		b, _ := in.Bound(t)
		return fmt.Sprintf("%s<%s>", in.TypeString(b.Base), in.joinTypes(b.Args))
	}
	return tt.Kind.String()
}

func (in *Interner) joinTypes(ids []TypeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = in.TypeString(id)
	}
	return strings.Join(parts, ", ")
}
