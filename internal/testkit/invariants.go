package testkit

import (
	"fmt"

	"meridian/internal/layout"
)

// CheckLayoutInvariants verifies properties every class or struct layout
// must satisfy:
//  1. fields appear ancestors first, each class's fields in declaration order
//  2. access strategies only become more dynamic along the field list
//  3. elements with constant offsets do not overlap and respect alignment
func CheckLayoutInvariants(l layout.TypeLayout) error {
	level := 0
	lastIndex := -1
	var prev *layout.Element
	for i := range l.Elements {
		el := &l.Elements[i]
		if el.Field == nil {
			continue
		}

		// 1) ordering
		if len(l.Hierarchy) > 0 {
			for level < len(l.Hierarchy) && l.Hierarchy[level].Decl != el.Decl {
				level++
				lastIndex = -1
			}
			if level == len(l.Hierarchy) {
				return fmt.Errorf("field %s of %s out of hierarchy order", el.Field.Name, el.Decl.Name)
			}
		}
		if el.Index <= lastIndex {
			return fmt.Errorf("field %s out of declaration order", el.Field.Name)
		}
		lastIndex = el.Index

		if prev != nil {
			// 2) monotonic strategies
			if rank(el.Strategy) < rank(prev.Strategy) {
				return fmt.Errorf("strategy of %s (%s) is less dynamic than %s (%s)",
					el.Field.Name, el.Strategy, prev.Field.Name, prev.Strategy)
			}
			// 3) no overlap between constant placements
			if el.OffsetKnown && prev.OffsetKnown && prev.IsFixed() && el.Offset < prev.Offset+prev.Size {
				return fmt.Errorf("field %s at %d overlaps %s ending at %d",
					el.Field.Name, el.Offset, prev.Field.Name, prev.Offset+prev.Size)
			}
		}
		if el.OffsetKnown && el.IsFixed() && el.Align > 0 && el.Offset%el.Align != 0 {
			return fmt.Errorf("field %s at %d is misaligned (align %d)", el.Field.Name, el.Offset, el.Align)
		}
		prev = el
	}
	return nil
}

// rank orders strategies by how much runtime work they need.
func rank(s layout.FieldAccessStrategy) int {
	switch s {
	case layout.ConstantDirect:
		return 0
	case layout.NonConstantDirect, layout.ConstantIndirect:
		return 1
	default:
		return 2
	}
}
