// Package template builds generic metadata templates: the pattern of a
// generic type's metadata record plus everything the runtime needs to
// complete it for one set of generic arguments.
package template

import (
	"meridian/internal/shape"
	"meridian/internal/types"
)

// PrivateDataWords is the size of the bookkeeping block the runtime keeps
// with each template (instantiation cache).
const PrivateDataWords = 8

// TailWords is the value layout block appended to struct and enum
// instantiations: size, alignment mask, stride.
const TailWords = 3

// Header is the fixed prefix of a template.
type Header struct {
	FillFunction string `msgpack:"fill"`
	// TotalWords counts every instantiated word including the tail block.
	TotalWords   int `msgpack:"words"`
	NumArgs      int `msgpack:"args"`
	AddressPoint int `msgpack:"ap"`
	PrivateData  int `msgpack:"priv"`
}

// FillOp copies generic argument Source into word Dest (relative to the
// address point).
type FillOp struct {
	Source int `msgpack:"src"`
	Dest   int `msgpack:"dst"`
}

// CopyRange copies Count words starting at Dest from the same indices of
// the superclass's instantiated metadata.
type CopyRange struct {
	Dest  int `msgpack:"dst"`
	Count int `msgpack:"n"`
}

// SourceKind selects how the runtime learns a dependent type's layout.
type SourceKind uint8

const (
	// SourceFixed: Size and Align are known statically.
	SourceFixed SourceKind = iota
	// SourceArg: the type's metadata is generic argument Arg.
	SourceArg
	// SourceSymbol: Symbol is a statically emitted record (or witness
	// table when used as a pattern argument).
	SourceSymbol
	// SourceBound: Symbol is a generic pattern instantiated with Elems,
	// metadata arguments first, then witness tables.
	SourceBound
	// SourceTuple: Elems are placed one after another.
	SourceTuple
	// SourceArray: Count elements of Elems[0].
	SourceArray
)

func (k SourceKind) String() string {
	switch k {
	case SourceFixed:
		return "fixed"
	case SourceArg:
		return "arg"
	case SourceSymbol:
		return "symbol"
	case SourceBound:
		return "bound"
	case SourceTuple:
		return "tuple"
	case SourceArray:
		return "array"
	}
	return "invalid"
}

// TypeSource describes a type whose layout the runtime computes from the
// instantiation arguments.
type TypeSource struct {
	Kind   SourceKind   `msgpack:"kind"`
	Size   int          `msgpack:"size,omitempty"`
	Align  int          `msgpack:"align,omitempty"`
	Arg    int          `msgpack:"arg,omitempty"`
	Symbol string       `msgpack:"sym,omitempty"`
	Elems  []TypeSource `msgpack:"elems,omitempty"`
	Count  int          `msgpack:"count,omitempty"`
}

// FieldSource tells the runtime how to place one field (or enum payload).
type FieldSource struct {
	Name        string     `msgpack:"name"`
	Offset      int        `msgpack:"off,omitempty"`
	OffsetKnown bool       `msgpack:"known,omitempty"`
	Type        TypeSource `msgpack:"type"`

	// Word receives the computed offset; for enum payloads it is the
	// payload-size cell.
	Word int `msgpack:"word"`
}

// ArgSource is one argument of a generic superclass, either one of the
// subclass's own arguments or a concrete symbol.
type ArgSource struct {
	Arg    int    `msgpack:"arg"`
	Symbol string `msgpack:"sym,omitempty"`
}

// SuperclassRef tells the runtime how to obtain the superclass metadata.
// Pattern is set for a generic superclass instantiated from Args; Symbol
// for a static record or a foreign class.
type SuperclassRef struct {
	Pattern string      `msgpack:"pattern,omitempty"`
	Args    []ArgSource `msgpack:"args,omitempty"`
	Symbol  string      `msgpack:"sym,omitempty"`
	Foreign bool        `msgpack:"foreign,omitempty"`
}

// Template is a generic type's metadata template.
type Template struct {
	Name string         `msgpack:"name"`
	Type types.TypeID   `msgpack:"-"`
	Kind types.DeclKind `msgpack:"kind"`
	Header

	Words  []shape.Word   `msgpack:"pattern"`
	Fills  []FillOp       `msgpack:"fills"`
	Copies []CopyRange    `msgpack:"copies,omitempty"`
	Fields []FieldSource  `msgpack:"fields,omitempty"`
	Super  *SuperclassRef `msgpack:"super,omitempty"`

	// Class finishing work.
	HeaderSize       int `msgpack:"header,omitempty"`
	MinAlign         int `msgpack:"min_align,omitempty"`
	InstanceSizeWord int `msgpack:"size_word,omitempty"`
	AlignMaskWord    int `msgpack:"mask_word,omitempty"`
	// RegisterForeign requests minimal registration with the foreign
	// runtime under ForeignName.
	RegisterForeign bool   `msgpack:"register,omitempty"`
	ForeignName     string `msgpack:"foreign_name,omitempty"`

	// Enum finishing work.
	TagSize int `msgpack:"tag,omitempty"`
}

// HasTail reports whether instantiations carry the value layout block.
func (t *Template) HasTail() bool {
	return t.Kind != types.DeclClass
}

// PatternWords is the number of words taken from the pattern.
func (t *Template) PatternWords() int {
	return len(t.Words)
}
