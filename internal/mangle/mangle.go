// Package mangle names every symbol the engine emits.
package mangle

import (
	"strconv"
	"strings"

	"meridian/internal/types"
)

// Prefix starts every native symbol.
const Prefix = "_M"

// Mangler encodes types into symbol fragments.
type Mangler struct {
	Types *types.Interner
}

func New(typesIn *types.Interner) *Mangler {
	return &Mangler{Types: typesIn}
}

func ident(sb *strings.Builder, s string) {
	sb.WriteString(strconv.Itoa(len(s)))
	sb.WriteString(s)
}

// Type encodes t. The encoding is injective over interned types.
func (m *Mangler) Type(t types.TypeID) string {
	var sb strings.Builder
	m.writeType(&sb, t)
	return sb.String()
}

func (m *Mangler) writeType(sb *strings.Builder, t types.TypeID) {
	tt, ok := m.Types.Lookup(t)
	if !ok {
		sb.WriteString("_?")
		return
	}
	switch tt.Kind {
	case types.KindUnit:
		sb.WriteString("yt")
	case types.KindBool:
		sb.WriteString("Sb")
	case types.KindInt:
		m.writeInt(sb, 's', tt.Width)
	case types.KindUint:
		m.writeInt(sb, 'u', tt.Width)
	case types.KindFloat:
		if tt.Width == types.Width32 {
			sb.WriteString("Sf")
		} else {
			sb.WriteString("Sd")
		}
	case types.KindRawPointer:
		sb.WriteString("Bp")
	case types.KindGenericParam:
		info, _ := m.Types.GenericParam(t)
		sb.WriteByte('x')
		sb.WriteString(strconv.Itoa(info.Index))
		sb.WriteByte('_')
	case types.KindArray:
		sb.WriteByte('A')
		sb.WriteString(strconv.FormatUint(uint64(tt.Count), 10))
		sb.WriteByte('_')
		m.writeType(sb, tt.Elem)
	case types.KindTuple:
		elems, _ := m.Types.TupleElems(t)
		sb.WriteByte('t')
		for _, el := range elems {
			m.writeType(sb, el)
		}
		sb.WriteByte('_')
	case types.KindFn:
		info, _ := m.Types.FnInfo(t)
		sb.WriteByte('F')
		for _, p := range info.Params {
			m.writeType(sb, p)
		}
		sb.WriteByte('_')
		m.writeType(sb, info.Result)
	case types.KindStruct, types.KindEnum, types.KindClass:
		decl, _ := m.Types.Nominal(t)
		m.writeDecl(sb, decl)
	case types.KindBound:
		b, _ := m.Types.Bound(t)
		m.writeType(sb, b.Base)
		sb.WriteByte('y')
		for _, a := range b.Args {
			m.writeType(sb, a)
		}
		sb.WriteByte('G')
	default:
		sb.WriteString("_?")
	}
}

func (m *Mangler) writeInt(sb *strings.Builder, sign byte, w types.Width) {
	if w == types.WidthAny {
		if sign == 's' {
			sb.WriteString("Si")
		} else {
			sb.WriteString("Su")
		}
		return
	}
	sb.WriteByte(sign)
	sb.WriteString(strconv.Itoa(int(w)))
	sb.WriteByte('_')
}

func (m *Mangler) writeDecl(sb *strings.Builder, decl *types.NominalDecl) {
	if decl == nil {
		sb.WriteString("_?")
		return
	}
	ident(sb, decl.Module)
	ident(sb, decl.Name)
	switch decl.Kind {
	case types.DeclClass:
		sb.WriteByte('C')
	case types.DeclEnum:
		sb.WriteByte('O')
	default:
		sb.WriteByte('V')
	}
}

// Decl encodes a declaration regardless of generic arguments.
func (m *Mangler) Decl(decl *types.NominalDecl) string {
	var sb strings.Builder
	m.writeDecl(&sb, decl)
	return sb.String()
}

func (m *Mangler) typeSym(t types.TypeID, suffix string) string {
	return Prefix + m.Type(t) + suffix
}

func (m *Mangler) declSym(decl *types.NominalDecl, suffix string) string {
	return Prefix + m.Decl(decl) + suffix
}

// Metadata is the full metadata record of a concrete type. References to
// the record add the address point in bytes.
func (m *Mangler) Metadata(t types.TypeID) string { return m.typeSym(t, "N") }

// Pattern is the generic metadata template of decl.
func (m *Mangler) Pattern(decl *types.NominalDecl) string { return m.declSym(decl, "MP") }

// FillFunction completes an instantiation of decl's template.
func (m *Mangler) FillFunction(decl *types.NominalDecl) string { return m.declSym(decl, "Mi") }

// Descriptor is the nominal type descriptor.
func (m *Mangler) Descriptor(decl *types.NominalDecl) string { return m.declSym(decl, "Mn") }

// Context is the enclosing module descriptor.
func (m *Mangler) Context(module string) string {
	var sb strings.Builder
	sb.WriteString(Prefix)
	ident(&sb, module)
	sb.WriteString("MXM")
	return sb.String()
}

// ValueWitness is the value-handling table of t.
func (m *Mangler) ValueWitness(t types.TypeID) string { return m.typeSym(t, "WV") }

// ClassValueWitness is the value-handling table shared by every class
// reference.
const ClassValueWitness = Prefix + "BoWV"

// WitnessTable is the conformance of t to protocol.
func (m *Mangler) WitnessTable(t types.TypeID, protocol string) string {
	var sb strings.Builder
	sb.WriteString(Prefix)
	m.writeType(&sb, t)
	ident(&sb, protocol)
	sb.WriteString("Wp")
	return sb.String()
}

// Destructor releases a class instance.
func (m *Mangler) Destructor(decl *types.NominalDecl) string { return m.declSym(decl, "fD") }

// FieldOffset is the per-field offset global filled at class realization.
func (m *Mangler) FieldOffset(decl *types.NominalDecl, field string) string {
	var sb strings.Builder
	sb.WriteString(Prefix)
	m.writeDecl(&sb, decl)
	ident(&sb, field)
	sb.WriteString("Wvd")
	return sb.String()
}

// LevelOffset is the runtime-filled cell holding the word index at which
// decl's level starts in a descendant's metadata.
func (m *Mangler) LevelOffset(decl *types.NominalDecl) string { return m.declSym(decl, "Mo") }

// Method is the implementation of method md.
func (m *Mangler) Method(md *types.Method) string {
	var sb strings.Builder
	sb.WriteString(Prefix)
	if decl, ok := m.Types.Nominal(md.Owner); ok {
		m.writeDecl(&sb, decl)
	}
	ident(&sb, md.Name)
	for _, level := range md.Sig.Params {
		for _, p := range level {
			m.writeType(&sb, p)
		}
		sb.WriteByte('_')
	}
	if md.Static {
		sb.WriteString("Z")
	}
	sb.WriteString("F")
	return sb.String()
}

// Thunk adapts impl to the calling convention of the slot introduced by
// slotMethod.
func (m *Mangler) Thunk(slotMethod, impl *types.Method) string {
	return m.Method(impl) + "TR" + strings.TrimPrefix(m.Method(slotMethod), Prefix)
}
