package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for primitive types.
type Builtins struct {
	Invalid    TypeID
	Unit       TypeID
	Bool       TypeID
	Int8       TypeID
	Int16      TypeID
	Int32      TypeID
	Int64      TypeID
	Int        TypeID
	UInt8      TypeID
	UInt16     TypeID
	UInt32     TypeID
	UInt64     TypeID
	UInt       TypeID
	Float32    TypeID
	Float64    TypeID
	RawPointer TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Nominal declarations, generic parameters and methods live in side tables
// whose slot 0 is reserved as the invalid sentinel.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	composed map[string]TypeID
	builtins Builtins

	nominals []*NominalDecl
	byName   map[string]TypeID
	params   []ParamInfo
	tuples   [][]TypeID
	fns      []FnInfo
	bounds   []BoundInfo
	methods  []*Method
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:    make(map[typeKey]TypeID, 64),
		composed: make(map[string]TypeID, 64),
		byName:   make(map[string]TypeID, 32),
	}
	in.nominals = append(in.nominals, nil)
	in.params = append(in.params, ParamInfo{})
	in.tuples = append(in.tuples, nil)
	in.fns = append(in.fns, FnInfo{})
	in.bounds = append(in.bounds, BoundInfo{})
	in.methods = append(in.methods, nil)

	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int8 = in.Intern(MakeInt(Width8))
	in.builtins.Int16 = in.Intern(MakeInt(Width16))
	in.builtins.Int32 = in.Intern(MakeInt(Width32))
	in.builtins.Int64 = in.Intern(MakeInt(Width64))
	in.builtins.Int = in.Intern(MakeInt(WidthAny))
	in.builtins.UInt8 = in.Intern(MakeUint(Width8))
	in.builtins.UInt16 = in.Intern(MakeUint(Width16))
	in.builtins.UInt32 = in.Intern(MakeUint(Width32))
	in.builtins.UInt64 = in.Intern(MakeUint(Width64))
	in.builtins.UInt = in.Intern(MakeUint(WidthAny))
	in.builtins.Float32 = in.Intern(MakeFloat(Width32))
	in.builtins.Float64 = in.Intern(MakeFloat(Width64))
	in.builtins.RawPointer = in.Intern(Type{Kind: KindRawPointer})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// BuiltinByName resolves the spelling used in type expressions.
func (in *Interner) BuiltinByName(name string) (TypeID, bool) {
	b := in.builtins
	switch name {
	case "Void", "Unit":
		return b.Unit, true
	case "Bool":
		return b.Bool, true
	case "Int8":
		return b.Int8, true
	case "Int16":
		return b.Int16, true
	case "Int32":
		return b.Int32, true
	case "Int64":
		return b.Int64, true
	case "Int":
		return b.Int, true
	case "UInt8":
		return b.UInt8, true
	case "UInt16":
		return b.UInt16, true
	case "UInt32":
		return b.UInt32, true
	case "UInt64":
		return b.UInt64, true
	case "UInt":
		return b.UInt, true
	case "Float32":
		return b.Float32, true
	case "Float64", "Double":
		return b.Float64, true
	case "RawPointer":
		return b.RawPointer, true
	}
	return NoTypeID, false
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len reports how many types are interned, the invalid sentinel included.
func (in *Interner) Len() int {
	return len(in.types)
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32
	Width   Width
	Payload uint32
}

func slotOf(n int, what string) uint32 {
	slot, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("%s overflow: %w", what, err))
	}
	return slot
}

// composedKey spells a structural key for tuple/fn/bound interning.
func composedKey(tag string, head TypeID, ids []TypeID) string {
	var b strings.Builder
	b.WriteString(tag)
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(uint64(head), 10))
	for _, id := range ids {
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return b.String()
}
