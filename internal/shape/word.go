package shape

import "fmt"

// WordKind tells where a record word's value comes from.
type WordKind uint8

const (
	// WordConstant is Value.
	WordConstant WordKind = iota
	// WordReloc is the address of Symbol plus Addend.
	WordReloc
	// WordFill is generic argument Arg, stored by a fill operation.
	WordFill
	// WordRuntime is computed by the runtime's finishing work.
	WordRuntime
	// WordCopied is copied from the same index of the superclass's
	// instantiated metadata.
	WordCopied
)

func (k WordKind) String() string {
	switch k {
	case WordConstant:
		return "const"
	case WordReloc:
		return "reloc"
	case WordFill:
		return "fill"
	case WordRuntime:
		return "runtime"
	case WordCopied:
		return "copied"
	}
	return fmt.Sprintf("word(%d)", k)
}

// Word is the content of one record cell.
type Word struct {
	Kind   WordKind `msgpack:"k"`
	Value  uint64   `msgpack:"v,omitempty"`
	Symbol string   `msgpack:"s,omitempty"`
	Addend int64    `msgpack:"a,omitempty"`
	Arg    int      `msgpack:"arg,omitempty"`
}

func Const(v uint64) Word { return Word{Kind: WordConstant, Value: v} }

func Reloc(symbol string, addend int64) Word {
	return Word{Kind: WordReloc, Symbol: symbol, Addend: addend}
}

func Fill(arg int) Word { return Word{Kind: WordFill, Arg: arg} }

func Runtime() Word { return Word{Kind: WordRuntime} }

func Copied() Word { return Word{Kind: WordCopied} }

func (w Word) String() string {
	switch w.Kind {
	case WordConstant:
		return fmt.Sprintf("%#x", w.Value)
	case WordReloc:
		if w.Addend != 0 {
			return fmt.Sprintf("&%s%+d", w.Symbol, w.Addend)
		}
		return "&" + w.Symbol
	case WordFill:
		return fmt.Sprintf("arg%d", w.Arg)
	}
	return w.Kind.String()
}
