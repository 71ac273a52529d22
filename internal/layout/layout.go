package layout

import (
	"meridian/internal/types"
)

// ElementKind tells whether an element's size and alignment are known at
// compile time.
type ElementKind uint8

const (
	ElementFixed ElementKind = iota
	ElementNonFixed
)

// Element is one laid-out field or enum payload.
type Element struct {
	Kind ElementKind
	// Offset is the byte offset. It is a compile-time constant only when
	// OffsetKnown; otherwise it is the nominal offset (meaningful while
	// every preceding size is fixed) or zero.
	Offset      int
	OffsetKnown bool
	Size        int
	Align       int
	SizeClass   SizeClass
	POD         bool

	// Type is the field type after generic substitution.
	Type types.TypeID
	// Owner is the declaring type as seen from the laid-out type.
	Owner types.TypeID
	Decl  *types.NominalDecl
	Field *types.Field
	Case  *types.Case
	// Index is the stored-field (or case) index within Decl.
	Index    int
	Strategy FieldAccessStrategy
}

func (el Element) IsFixed() bool {
	return el.Kind == ElementFixed
}

// RootKind is the reference-counting mechanism of a class hierarchy.
type RootKind uint8

const (
	RootNative RootKind = iota
	RootForeign
)

func (k RootKind) String() string {
	if k == RootForeign {
		return "foreign"
	}
	return "native"
}

// TypeLayout is the layout of a type for a specific Target.
type TypeLayout struct {
	Type     types.TypeID
	Elements []Element
	// Size and Align are valid when Class == Fixed. Size includes the
	// class header for classes.
	Size  int
	Align int
	Class SizeClass
	POD   bool

	// Class-only.
	HeaderSize int
	Root       RootKind
	Object     ObjectArrangement
	Metadata   MetadataArrangement
	Hierarchy  []Node
	// NominalSize is the instance size assuming every ancestor keeps its
	// compile-time size; valid when NominalKnown.
	NominalSize  int
	NominalKnown bool

	// Enum-only.
	TagOffset int
	TagSize   int
}

func (l TypeLayout) IsFixed() bool {
	return l.Class == Fixed
}

// AlignMask is Align-1 for fixed layouts.
func (l TypeLayout) AlignMask() int {
	if l.Align <= 0 {
		return 0
	}
	return l.Align - 1
}

// Stride is the distance between consecutive array elements.
func (l TypeLayout) Stride() int {
	return roundUp(max(l.Size, 1), max(l.Align, 1))
}

// FieldsOf returns the elements declared by decl, in declaration order.
func (l TypeLayout) FieldsOf(decl *types.NominalDecl) []Element {
	var out []Element
	for _, el := range l.Elements {
		if el.Decl == decl && el.Field != nil {
			out = append(out, el)
		}
	}
	return out
}

// Field finds the element for a stored field, searching the most derived
// declaring class first.
func (l TypeLayout) Field(name string) (Element, bool) {
	for i := len(l.Elements) - 1; i >= 0; i-- {
		el := l.Elements[i]
		if el.Field != nil && el.Field.Name == name {
			return el, true
		}
	}
	return Element{}, false
}

// LayoutEngine computes memory layout for types. Results are memoized for
// the lifetime of the engine; an engine serves one compilation unit and is
// not safe for concurrent use.
type LayoutEngine struct {
	Target Target
	Types  *types.Interner
	// Module is the module being compiled. Resilient declarations from any
	// other module have unknown size.
	Module string

	cache *cache
}

// New creates a new LayoutEngine for the specified target.
func New(target Target, typesIn *types.Interner) *LayoutEngine {
	return &LayoutEngine{
		Target: target,
		Types:  typesIn,
		cache:  newCache(),
	}
}

type layoutState struct {
	stack []types.TypeID
	index map[types.TypeID]int
}

func newLayoutState() *layoutState {
	return &layoutState{
		stack: nil,
		index: make(map[types.TypeID]int, 32),
	}
}

// LayoutOf computes and caches the layout of a type.
func (e *LayoutEngine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	if e.cache == nil {
		e.cache = newCache()
	}
	layout, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return layout, err
	}
	return layout, nil
}

func (e *LayoutEngine) layoutOf(t types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	if cached, ok := e.cache.get(t); ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[t]; ok {
		cycle := make([]string, 0, len(state.stack)-idx+1)
		for _, id := range state.stack[idx:] {
			cycle = append(cycle, e.Types.TypeString(id))
		}
		cycle = append(cycle, e.Types.TypeString(t))
		return TypeLayout{Type: t, Align: 1}, &LayoutError{
			Kind:  LayoutErrRecursiveUnsized,
			Type:  t,
			Name:  e.Types.TypeString(t),
			Cycle: cycle,
		}
	}

	state.index[t] = len(state.stack)
	state.stack = append(state.stack, t)
	layout, err := e.computeLayout(t, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, t)

	layout.Type = t
	e.cache.put(t, &cacheEntry{Layout: layout, Err: err})
	return layout, err
}

// SizeOf returns the size of a fixed type in bytes.
func (e *LayoutEngine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a fixed type in bytes.
func (e *LayoutEngine) AlignOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FixedSize resolves t to a fixed size and alignment, reporting false when
// the size is only known at runtime.
func (e *LayoutEngine) FixedSize(t types.TypeID) (size, align int, ok bool, err error) {
	info, lerr := e.classify(t, newLayoutState())
	if lerr != nil {
		return 0, 0, false, lerr
	}
	if info.class != Fixed {
		return 0, 0, false, nil
	}
	return info.size, info.align, true, nil
}

// Classify reports the size class of a field type.
func (e *LayoutEngine) Classify(t types.TypeID) (SizeClass, error) {
	info, err := e.classify(t, newLayoutState())
	if err != nil {
		return info.class, err
	}
	return info.class, nil
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
