// Package llvm renders a unit's emitted data as an LLVM IR module: every
// blob becomes a packed global, relocations become constant expressions
// and every template gets its fill function.
package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"meridian/internal/layout"
	"meridian/internal/metadata"
	"meridian/internal/objdata"
)

// Emitter builds one IR module. It is used once.
type Emitter struct {
	target  layout.Target
	data    *objdata.Module
	records []*metadata.Record

	mod  *ir.Module
	word *types.IntType
	// symbols maps every referenced symbol to its global or function.
	symbols map[string]constant.Constant
	globals map[string]*ir.Global
	fills   map[string]*ir.Func
	runtime map[string]*ir.Func
}

// EmitModule returns the textual IR of data and the fill functions of the
// generic records among records.
func EmitModule(target layout.Target, data *objdata.Module, records []*metadata.Record) (string, error) {
	if data == nil {
		return "", nil
	}
	e := &Emitter{
		target:  target,
		data:    data,
		records: records,
		mod:     ir.NewModule(),
		word:    types.NewInt(uint64(target.PtrSize * 8)),
		symbols: make(map[string]constant.Constant),
		globals: make(map[string]*ir.Global),
		fills:   make(map[string]*ir.Func),
		runtime: make(map[string]*ir.Func),
	}
	e.mod.TargetTriple = target.Triple
	e.declareRuntime()
	e.declareFills()
	if err := e.declareGlobals(); err != nil {
		return "", err
	}
	e.declareExternals()
	if err := e.defineGlobals(); err != nil {
		return "", err
	}
	if err := e.defineFills(); err != nil {
		return "", err
	}
	return e.mod.String(), nil
}

// ref returns the constant a relocation to symbol resolves against.
func (e *Emitter) ref(symbol string) (constant.Constant, error) {
	c, ok := e.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("llvm: no declaration for symbol %q", symbol)
	}
	return c, nil
}

// declareExternals declares every symbol the unit references but does not
// define as an opaque byte-typed external global.
func (e *Emitter) declareExternals() {
	for _, sym := range e.data.Undefined() {
		if _, ok := e.symbols[sym]; ok {
			continue
		}
		g := e.mod.NewGlobal(sym, types.I8)
		g.Linkage = enum.LinkageExternal
		e.symbols[sym] = g
	}
}
