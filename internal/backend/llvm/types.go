package llvm

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"meridian/internal/mangle"
)

// runtimeFunc is a runtime entry point fill functions call.
type runtimeFunc struct {
	name   string
	params int
}

// Every entry point takes pointer arguments only: the record, the
// superclass record where relevant, and the pattern.
var runtimeFuncs = []runtimeFunc{
	{mangle.RuntimeInitStructFieldOffsets, 2},
	{mangle.RuntimeInitEnumPayloadSize, 2},
	{mangle.RuntimeInitClassMetadata, 3},
	{mangle.RuntimeRegisterForeignClass, 1},
}

func (e *Emitter) declareRuntime() {
	for _, rf := range runtimeFuncs {
		params := make([]*ir.Param, rf.params)
		for i := range params {
			params[i] = ir.NewParam("", types.I8Ptr)
		}
		fn := e.mod.NewFunc(rf.name, types.Void, params...)
		e.runtime[rf.name] = fn
		e.symbols[rf.name] = fn
	}
}

// blobType is the packed struct a blob's bytes lower to: byte runs as i8
// arrays and every relocated slot as one pointer-sized integer.
func (e *Emitter) blobType(offsets []int, size int) *types.StructType {
	var fields []types.Type
	pos := 0
	for _, off := range offsets {
		if off > pos {
			fields = append(fields, types.NewArray(uint64(off-pos), types.I8))
		}
		fields = append(fields, e.word)
		pos = off + e.target.PtrSize
	}
	if size > pos {
		fields = append(fields, types.NewArray(uint64(size-pos), types.I8))
	}
	st := types.NewStruct(fields...)
	st.Packed = true
	return st
}
