package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"meridian/internal/mangle"
	"meridian/internal/metadata"
	"meridian/internal/template"
	meridiantypes "meridian/internal/types"
)

// declareFills creates the fill function of every template:
//
//	void fill(i8* metadata, i8** args, i8* super)
func (e *Emitter) declareFills() {
	for _, rec := range e.records {
		if !rec.Generic() {
			continue
		}
		name := rec.Template.FillFunction
		fn := e.mod.NewFunc(name, types.Void,
			ir.NewParam("metadata", types.I8Ptr),
			ir.NewParam("args", types.NewPointer(types.I8Ptr)),
			ir.NewParam("super", types.I8Ptr))
		e.fills[name] = fn
		e.symbols[name] = fn
	}
}

func (e *Emitter) defineFills() error {
	for _, rec := range e.records {
		if !rec.Generic() {
			continue
		}
		if err := e.defineFill(rec); err != nil {
			return fmt.Errorf("llvm: fill function of %s: %w", rec.Decl.Name, err)
		}
	}
	return nil
}

// fillBuilder emits straight-line code: argument stores, ancestor copies,
// then the runtime's finishing call.
type fillBuilder struct {
	e     *Emitter
	t     *template.Template
	block *ir.Block
}

// slot addresses word index (relative to the address point) of a record.
func (b *fillBuilder) slot(record value.Value, index int) value.Value {
	off := int64((b.t.AddressPoint + index) * b.e.target.PtrSize)
	p := b.block.NewGetElementPtr(types.I8, record, constant.NewInt(types.I64, off))
	return b.block.NewBitCast(p, types.NewPointer(b.e.word))
}

func (e *Emitter) defineFill(rec *metadata.Record) error {
	t := rec.Template
	fn := e.fills[t.FillFunction]
	md, args, super := fn.Params[0], fn.Params[1], fn.Params[2]
	b := &fillBuilder{e: e, t: t, block: fn.NewBlock("entry")}

	for _, op := range t.Fills {
		at := b.block.NewGetElementPtr(types.I8Ptr, args, constant.NewInt(types.I64, int64(op.Source)))
		arg := b.block.NewLoad(types.I8Ptr, at)
		b.block.NewStore(b.block.NewPtrToInt(arg, e.word), b.slot(md, op.Dest))
	}
	for _, cr := range t.Copies {
		for i := cr.Dest; i < cr.Dest+cr.Count; i++ {
			v := b.block.NewLoad(e.word, b.slot(super, i))
			b.block.NewStore(v, b.slot(md, i))
		}
	}

	pattern, err := e.ref(rec.Symbol)
	if err != nil {
		return err
	}
	patternPtr := constant.NewBitCast(pattern, types.I8Ptr)
	switch t.Kind {
	case meridiantypes.DeclClass:
		b.block.NewCall(e.runtime[mangle.RuntimeInitClassMetadata], md, super, patternPtr)
		if t.RegisterForeign {
			b.block.NewCall(e.runtime[mangle.RuntimeRegisterForeignClass], md)
		}
	case meridiantypes.DeclEnum:
		b.block.NewCall(e.runtime[mangle.RuntimeInitEnumPayloadSize], md, patternPtr)
	default:
		b.block.NewCall(e.runtime[mangle.RuntimeInitStructFieldOffsets], md, patternPtr)
	}
	b.block.NewRet(nil)
	return nil
}
