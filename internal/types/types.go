package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindUint
	KindFloat
	KindRawPointer
	KindArray
	KindTuple
	KindFn
	KindGenericParam
	KindStruct
	KindEnum
	KindClass
	// KindBound is a generic nominal applied to arguments (Box<Int64>).
	KindBound
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindRawPointer:
		return "rawpointer"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindFn:
		return "fn"
	case KindGenericParam:
		return "generic"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindClass:
		return "class"
	case KindBound:
		return "bound"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsNominal reports whether k names a declared struct, enum or class.
func (k Kind) IsNominal() bool {
	return k == KindStruct || k == KindEnum || k == KindClass
}

// Width captures the precision of integers/floats.
type Width uint8

const (
	// WidthAny is the pointer-sized width of Int and UInt.
	WidthAny Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // array element
	Count   uint32 // array length
	Width   Width  // numeric primitives
	Payload uint32 // slot in the kind's side table
}

// MakeInt describes a signed integer of the given width (WidthAny for "Int").
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeUint describes an unsigned integer type.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeFloat describes a floating-point type.
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakeArray describes a fixed-length inline array.
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}
