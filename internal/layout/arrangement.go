package layout

// SizeClass classifies a field type's size knowledge at compile time.
// The values are ordered: combining two classes takes the max.
type SizeClass uint8

const (
	Fixed SizeClass = iota
	// ResilientUnknownSize is a resilient type owned by another module.
	ResilientUnknownSize
	// GenericDependentSize depends on a generic parameter.
	GenericDependentSize
)

func (c SizeClass) String() string {
	switch c {
	case Fixed:
		return "fixed"
	case ResilientUnknownSize:
		return "resilient"
	case GenericDependentSize:
		return "generic"
	}
	return "invalid"
}

// ObjectArrangement is the sticky state describing whether instance field
// offsets are still compile-time constants.
type ObjectArrangement uint8

const (
	ObjectStatic ObjectArrangement = iota
	ObjectRuntimeOffsetOnly
	// ObjectRuntimeSizeAndOffset is the generically arranged state.
	ObjectRuntimeSizeAndOffset
)

func (a ObjectArrangement) String() string {
	switch a {
	case ObjectStatic:
		return "static"
	case ObjectRuntimeOffsetOnly:
		return "runtime-offset"
	case ObjectRuntimeSizeAndOffset:
		return "runtime-size-and-offset"
	}
	return "invalid"
}

// Runtime reports whether offsets appended in this state are known only at
// runtime.
func (a ObjectArrangement) Runtime() bool {
	return a != ObjectStatic
}

// MetadataArrangement is the sticky state describing whether the position
// of a class's metadata cells is fixed at compile time.
type MetadataArrangement uint8

const (
	MetadataStatic MetadataArrangement = iota
	MetadataResilient
)

func (a MetadataArrangement) String() string {
	if a == MetadataResilient {
		return "resilient"
	}
	return "static"
}

func arrangementFor(c SizeClass) ObjectArrangement {
	switch c {
	case ResilientUnknownSize:
		return ObjectRuntimeOffsetOnly
	case GenericDependentSize:
		return ObjectRuntimeSizeAndOffset
	}
	return ObjectStatic
}

// FieldAccessStrategy tells instruction lowering how to find a field.
type FieldAccessStrategy uint8

const (
	// ConstantDirect: the byte offset is a compile-time constant.
	ConstantDirect FieldAccessStrategy = iota
	// NonConstantDirect: the offset is loaded from a per-field global
	// filled once when the class is realized.
	NonConstantDirect
	// ConstantIndirect: the offset is loaded from a cell at a constant
	// index within the metadata record.
	ConstantIndirect
	// NonConstantIndirect: the offset is loaded through a runtime-filled
	// indirect slot plus a relative cell index.
	NonConstantIndirect
)

func (s FieldAccessStrategy) String() string {
	switch s {
	case ConstantDirect:
		return "constant-direct"
	case NonConstantDirect:
		return "nonconstant-direct"
	case ConstantIndirect:
		return "constant-indirect"
	case NonConstantIndirect:
		return "nonconstant-indirect"
	}
	return "invalid"
}

// Indirect reports whether the offset lives in metadata.
func (s FieldAccessStrategy) Indirect() bool {
	return s == ConstantIndirect || s == NonConstantIndirect
}

// StrategyFor maps the arrangement state in effect before a field is
// appended to that field's access strategy. A generically arranged object
// has a different offset per instantiation, so it is read from the
// instantiated metadata rather than from a shared global.
func StrategyFor(meta MetadataArrangement, obj ObjectArrangement) FieldAccessStrategy {
	switch {
	case meta == MetadataStatic && !obj.Runtime():
		return ConstantDirect
	case meta == MetadataStatic && obj == ObjectRuntimeSizeAndOffset:
		return ConstantIndirect
	case meta == MetadataStatic:
		return NonConstantDirect
	case !obj.Runtime():
		return ConstantIndirect
	default:
		return NonConstantIndirect
	}
}
