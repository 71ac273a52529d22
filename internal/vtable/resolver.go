package vtable

import (
	"meridian/internal/diag"
	"meridian/internal/layout"
	"meridian/internal/types"
)

// Slot is one dispatch table entry.
type Slot struct {
	// Method introduced the slot; its signature defines the slot's
	// calling convention.
	Method types.MethodID
	// FinalOverrider is the most derived implementation in the hierarchy.
	FinalOverrider types.MethodID
	// RequiresOwnSlot marks overrides whose representation differs from the
	// method they override.
	RequiresOwnSlot bool
	// Thunk is set when FinalOverrider's representation differs from
	// Method's, so the entry points at a reabstraction thunk.
	Thunk bool
	// Class is the hierarchy node that introduced the slot.
	Class types.TypeID
}

// Level is the contiguous slot range introduced by one class.
type Level struct {
	Class types.TypeID
	Decl  *types.NominalDecl
	First int
	Count int
}

// Table is the resolved dispatch table of a class.
type Table struct {
	Class  types.TypeID
	Slots  []Slot
	Levels []Level
	slotOf map[types.MethodID]int
}

// SlotOf returns the slot a method dispatches through. Overrides that
// reuse an inherited slot report that slot.
func (t *Table) SlotOf(m types.MethodID) (int, bool) {
	idx, ok := t.slotOf[m]
	return idx, ok
}

// LevelOf returns the slot range decl introduced.
func (t *Table) LevelOf(decl *types.NominalDecl) (Level, bool) {
	for _, lvl := range t.Levels {
		if lvl.Decl == decl {
			return lvl, true
		}
	}
	return Level{}, false
}

// Resolver builds dispatch tables. Tables are memoized per class.
type Resolver struct {
	Layout *layout.LayoutEngine
	Types  *types.Interner

	cache map[types.TypeID]*Table
}

func NewResolver(le *layout.LayoutEngine) *Resolver {
	return &Resolver{
		Layout: le,
		Types:  le.Types,
		cache:  make(map[types.TypeID]*Table, 32),
	}
}

// Resolve walks the hierarchy of class root to leaf. Each override
// propagates itself as final overrider along its whole override chain and
// reuses the overridden slot when both share a representation.
func (r *Resolver) Resolve(class types.TypeID) (*Table, error) {
	if t, ok := r.cache[class]; ok {
		return t, nil
	}
	chain, err := r.Layout.Hierarchy(class)
	if err != nil {
		return nil, err
	}

	t := &Table{Class: class, slotOf: make(map[types.MethodID]int)}
	final := make(map[types.MethodID]types.MethodID)
	inChain := make(map[types.TypeID]bool, len(chain))

	newSlot := func(m *types.Method, node layout.Node, own bool) {
		t.slotOf[m.ID] = len(t.Slots)
		t.Slots = append(t.Slots, Slot{Method: m.ID, RequiresOwnSlot: own, Class: node.Type})
	}

	for _, node := range chain {
		inChain[node.Decl.ID] = true
		lvl := Level{Class: node.Type, Decl: node.Decl, First: len(t.Slots)}
		if node.Decl.Foreign {
			// dispatched by message send
			t.Levels = append(t.Levels, lvl)
			continue
		}
		for _, m := range node.Decl.Methods() {
			if m.Static {
				continue
			}
			final[m.ID] = m.ID
			base, overrides := r.overridden(m, inChain)
			if overrides {
				for o := base; o != nil; o = r.method(o.Overrides) {
					final[o.ID] = m.ID
				}
				idx, hasSlot := t.slotOf[base.ID]
				compatible := SameRepresentation(r.Layout, m.Sig, base.Sig)
				switch {
				case hasSlot && compatible:
					t.slotOf[m.ID] = idx
				case m.Final:
					// callers that know the subclass dispatch directly
				default:
					newSlot(m, node, hasSlot)
				}
				continue
			}
			if m.Final {
				continue
			}
			newSlot(m, node, false)
		}
		lvl.Count = len(t.Slots) - lvl.First
		t.Levels = append(t.Levels, lvl)
	}

	for i := range t.Slots {
		s := &t.Slots[i]
		s.FinalOverrider = final[s.Method]
		diag.Assert(s.FinalOverrider != types.NoMethodID,
			"slot %d of %s has no final overrider", i, r.Types.TypeString(class))
		introduced, over := r.method(s.Method), r.method(s.FinalOverrider)
		s.Thunk = s.FinalOverrider != s.Method && !SameRepresentation(r.Layout, over.Sig, introduced.Sig)
	}

	r.cache[class] = t
	return t, nil
}

// overridden returns the method m overrides when it belongs to a native
// class of the chain seen so far.
func (r *Resolver) overridden(m *types.Method, inChain map[types.TypeID]bool) (*types.Method, bool) {
	if m.Overrides == types.NoMethodID {
		return nil, false
	}
	base := r.method(m.Overrides)
	if base == nil || !inChain[base.Owner] {
		return nil, false
	}
	owner, ok := r.Types.Nominal(base.Owner)
	if !ok || owner.Foreign {
		return nil, false
	}
	return base, true
}

func (r *Resolver) method(id types.MethodID) *types.Method {
	m, ok := r.Types.Method(id)
	if !ok {
		return nil
	}
	return m
}
