package foreign

import (
	"golang.org/x/text/unicode/norm"

	"meridian/internal/mangle"
	"meridian/internal/objdata"
)

// String pool kinds; each kind is pooled in its own namespace.
const (
	poolClassName  = "CLASS_NAME"
	poolMethodName = "METH_VAR_NAME"
	poolMethodType = "METH_VAR_TYPE"
	poolPropName   = "PROP_NAME"
	poolPropAttr   = "PROP_ATTR"
)

type poolKey struct {
	kind string
	text string
}

// stringPool uniques NUL-terminated strings within one unit. Names are
// normalized to NFC so canonically equivalent spellings share a symbol.
type stringPool struct {
	module  *objdata.Module
	symbols map[poolKey]string
	counts  map[string]int
}

func newStringPool(module *objdata.Module) *stringPool {
	return &stringPool{
		module:  module,
		symbols: make(map[poolKey]string),
		counts:  make(map[string]int),
	}
}

func (p *stringPool) intern(kind, text string) string {
	text = norm.NFC.String(text)
	key := poolKey{kind: kind, text: text}
	if sym, ok := p.symbols[key]; ok {
		return sym
	}
	sym := mangle.PoolString(kind, p.counts[kind])
	p.counts[kind]++
	p.symbols[key] = sym
	p.module.Add(objdata.CString(sym, text))
	return sym
}
