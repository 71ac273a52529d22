package template

import (
	"errors"
	"fmt"

	"meridian/internal/shape"
	"meridian/internal/types"
)

// Runtime is what instantiation needs from the process it runs in.
type Runtime interface {
	// SymbolAddress resolves a relocation target.
	SymbolAddress(symbol string) (uint64, error)
	// ValueLayout reads size and alignment from type metadata.
	ValueLayout(metadata uint64) (size, align int, err error)
	// ForeignInstanceSize is the current instance size and alignment of a
	// foreign class.
	ForeignInstanceSize(symbol string) (size, align int, err error)
	// GenericMetadata returns the metadata of pattern instantiated with
	// args, instantiating it on first use.
	GenericMetadata(pattern string, args []uint64) (uint64, error)
}

// Instance is one instantiated metadata record.
type Instance struct {
	Template *Template
	// Words holds every word, including those before the address point
	// and the tail block.
	Words        []uint64
	AddressPoint int
}

// Word reads the word at index i relative to the address point.
func (in *Instance) Word(i int) uint64 {
	return in.Words[i+in.AddressPoint]
}

func (in *Instance) set(i int, v uint64) {
	in.Words[i+in.AddressPoint] = v
}

// Tail returns the value layout block: size, alignment mask, stride.
func (in *Instance) Tail() (size, alignMask, stride uint64, ok bool) {
	if !in.Template.HasTail() {
		return 0, 0, 0, false
	}
	n := len(in.Words)
	return in.Words[n-3], in.Words[n-2], in.Words[n-1], true
}

var ErrNeedSuperclass = errors.New("template: superclass metadata required")

// Instantiate runs the fill step the runtime performs for a template:
// copy the pattern, apply the fill operations, copy ancestor words from
// super and run the kind's finishing work. Equal arguments produce equal
// words.
func Instantiate(t *Template, args []uint64, rt Runtime, super *Instance) (*Instance, error) {
	if len(args) != t.NumArgs {
		return nil, fmt.Errorf("template %s: %d arguments, want %d", t.Name, len(args), t.NumArgs)
	}
	in := &Instance{Template: t, Words: make([]uint64, t.TotalWords), AddressPoint: t.AddressPoint}

	for i, w := range t.Words {
		idx := i - t.AddressPoint
		switch w.Kind {
		case shape.WordConstant:
			in.set(idx, w.Value)
		case shape.WordReloc:
			addr, err := rt.SymbolAddress(w.Symbol)
			if err != nil {
				return nil, fmt.Errorf("template %s: word %d: %w", t.Name, idx, err)
			}
			in.set(idx, addr+uint64(w.Addend))
		case shape.WordCopied:
			if super == nil {
				return nil, fmt.Errorf("template %s: word %d: %w", t.Name, idx, ErrNeedSuperclass)
			}
			in.set(idx, super.Word(idx))
		}
	}
	for _, op := range t.Fills {
		in.set(op.Dest, args[op.Source])
	}

	var err error
	switch t.Kind {
	case types.DeclClass:
		err = finishClass(in, args, rt, super)
	case types.DeclEnum:
		err = finishEnum(in, args, rt)
	default:
		err = finishStruct(in, args, rt)
	}
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", t.Name, err)
	}
	return in, nil
}

// typeLayout computes the size and alignment of src under args.
func typeLayout(src TypeSource, args []uint64, rt Runtime) (size, align int, err error) {
	switch src.Kind {
	case SourceFixed:
		return src.Size, src.Align, nil
	case SourceTuple:
		off, align := 0, 1
		for i, el := range src.Elems {
			size, a, err := typeLayout(el, args, rt)
			if err != nil {
				return 0, 0, fmt.Errorf("element %d: %w", i, err)
			}
			a = max(a, 1)
			off = roundUp(off, a) + size
			align = max(align, a)
		}
		return roundUp(off, align), align, nil
	case SourceArray:
		if len(src.Elems) != 1 {
			return 0, 0, fmt.Errorf("array source with %d element types", len(src.Elems))
		}
		size, a, err := typeLayout(src.Elems[0], args, rt)
		if err != nil {
			return 0, 0, err
		}
		a = max(a, 1)
		return roundUp(size, a) * src.Count, a, nil
	}
	md, err := metadataOf(src, args, rt)
	if err != nil {
		return 0, 0, err
	}
	return rt.ValueLayout(md)
}

// metadataOf resolves src to a metadata (or witness table) address.
func metadataOf(src TypeSource, args []uint64, rt Runtime) (uint64, error) {
	switch src.Kind {
	case SourceArg:
		if src.Arg < 0 || src.Arg >= len(args) {
			return 0, fmt.Errorf("argument %d out of range", src.Arg)
		}
		return args[src.Arg], nil
	case SourceSymbol:
		return rt.SymbolAddress(src.Symbol)
	case SourceBound:
		nested := make([]uint64, 0, len(src.Elems))
		for _, el := range src.Elems {
			md, err := metadataOf(el, args, rt)
			if err != nil {
				return 0, err
			}
			nested = append(nested, md)
		}
		return rt.GenericMetadata(src.Symbol, nested)
	}
	return 0, fmt.Errorf("%s source has no metadata", src.Kind)
}

// place runs the sequential placement shared by structs and classes and
// returns the end offset and alignment.
func place(in *Instance, fields []FieldSource, start, align int, args []uint64, rt Runtime) (int, int, error) {
	off := start
	for _, f := range fields {
		size, a, err := typeLayout(f.Type, args, rt)
		if err != nil {
			return 0, 0, fmt.Errorf("field %s: %w", f.Name, err)
		}
		a = max(a, 1)
		at := roundUp(off, a)
		if f.OffsetKnown {
			at = f.Offset
		}
		in.set(f.Word, uint64(at))
		off = at + size
		align = max(align, a)
	}
	return off, align, nil
}

func finishStruct(in *Instance, args []uint64, rt Runtime) error {
	end, align, err := place(in, in.Template.Fields, 0, 1, args, rt)
	if err != nil {
		return err
	}
	in.setTail(roundUp(end, align), align)
	return nil
}

func finishEnum(in *Instance, args []uint64, rt Runtime) error {
	t := in.Template
	payload, align := 0, 1
	for _, f := range t.Fields {
		size, a, err := typeLayout(f.Type, args, rt)
		if err != nil {
			return fmt.Errorf("case %s: %w", f.Name, err)
		}
		payload = max(payload, size)
		align = max(align, a)
	}
	if len(t.Fields) > 0 {
		in.set(t.Fields[0].Word, uint64(payload))
	}
	tagOffset := roundUp(payload, max(t.TagSize, 1))
	align = max(align, t.TagSize)
	in.setTail(roundUp(tagOffset+t.TagSize, align), align)
	return nil
}

func finishClass(in *Instance, args []uint64, rt Runtime, super *Instance) error {
	t := in.Template
	start, align := t.HeaderSize, max(t.MinAlign, 1)
	if t.Super != nil {
		switch {
		case t.Super.Foreign:
			size, a, err := rt.ForeignInstanceSize(t.Super.Symbol)
			if err != nil {
				return err
			}
			start, align = size, a
		case super == nil:
			return ErrNeedSuperclass
		default:
			start = int(super.Word(t.InstanceSizeWord))
			align = int(super.Word(t.AlignMaskWord)) + 1
		}
	}
	end, align, err := place(in, t.Fields, start, align, args, rt)
	if err != nil {
		return err
	}
	in.set(t.InstanceSizeWord, uint64(roundUp(end, align)))
	in.set(t.AlignMaskWord, uint64(align-1))
	return nil
}

func (in *Instance) setTail(size, align int) {
	n := len(in.Words)
	in.Words[n-3] = uint64(size)
	in.Words[n-2] = uint64(align - 1)
	in.Words[n-1] = uint64(roundUp(max(size, 1), align))
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
