package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"meridian/internal/objdata"
)

func relocOffsets(b *objdata.Blob) []int {
	out := make([]int, len(b.Relocs))
	for i, r := range b.Relocs {
		out[i] = r.Offset
	}
	return out
}

// declareGlobals creates every blob's global before any initializer is
// built, so initializers can refer to each other in any order.
func (e *Emitter) declareGlobals() error {
	for _, b := range e.data.Blobs() {
		if _, dup := e.symbols[b.Symbol]; dup {
			return fmt.Errorf("llvm: symbol %s is both a blob and a function", b.Symbol)
		}
		g := e.mod.NewGlobal(b.Symbol, e.blobType(relocOffsets(b), b.Len()))
		g.Align = ir.Align(max(b.Align, 1))
		g.Immutable = b.Constant
		if b.Local {
			g.Linkage = enum.LinkagePrivate
		}
		e.globals[b.Symbol] = g
		e.symbols[b.Symbol] = g
	}
	return nil
}

func (e *Emitter) defineGlobals() error {
	for _, b := range e.data.Blobs() {
		g := e.globals[b.Symbol]
		init, err := e.blobInit(b, g.ContentType.(*types.StructType))
		if err != nil {
			return fmt.Errorf("llvm: %s: %w", b.Symbol, err)
		}
		g.Init = init
	}
	return nil
}

func (e *Emitter) blobInit(b *objdata.Blob, st *types.StructType) (constant.Constant, error) {
	fields := make([]constant.Constant, 0, len(st.Fields))
	pos := 0
	run := func(end int) {
		if end > pos {
			fields = append(fields, constant.NewCharArray(b.Bytes[pos:end]))
		}
	}
	for _, r := range b.Relocs {
		run(r.Offset)
		c, err := e.relocValue(r)
		if err != nil {
			return nil, err
		}
		fields = append(fields, c)
		pos = r.Offset + e.target.PtrSize
	}
	run(b.Len())
	return constant.NewStruct(st, fields...), nil
}

// relocValue is the address of the relocation target plus its addend, as
// a pointer-sized integer.
func (e *Emitter) relocValue(r objdata.Reloc) (constant.Constant, error) {
	target, err := e.ref(r.Symbol)
	if err != nil {
		return nil, err
	}
	addr := constant.Constant(constant.NewPtrToInt(target, e.word))
	if r.Addend != 0 {
		addr = constant.NewAdd(addr, constant.NewInt(e.word, r.Addend))
	}
	return addr, nil
}
