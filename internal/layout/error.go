package layout

import (
	"fmt"
	"strings"

	"meridian/internal/source"
	"meridian/internal/types"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveUnsized indicates a value type that contains itself.
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	LayoutErrSizeOverflow
	LayoutErrCircularInheritance
	LayoutErrNotAClass
	LayoutErrMissingGenericArgs
	LayoutErrUnknownType
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  types.TypeID
	Name  string
	Cycle []string    // for LayoutErrRecursiveUnsized and LayoutErrCircularInheritance
	Span  source.Span // declaration or field the error was found at
	Value int64       // for LayoutErrSizeOverflow
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("type#%d", e.Type)
	}
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value type %s has infinite size", name)
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(e.Cycle, " -> "))
	case LayoutErrSizeOverflow:
		return fmt.Sprintf("size of %s overflows the target address space (%d elements)", name, e.Value)
	case LayoutErrCircularInheritance:
		return fmt.Sprintf("circular inheritance: %s", strings.Join(e.Cycle, " -> "))
	case LayoutErrNotAClass:
		return fmt.Sprintf("%s is not a class and cannot be inherited from", name)
	case LayoutErrMissingGenericArgs:
		return fmt.Sprintf("generic type %s used without arguments", name)
	case LayoutErrUnknownType:
		return fmt.Sprintf("no layout for %s", name)
	default:
		return fmt.Sprintf("layout error kind=%d %s", e.Kind, name)
	}
}

// at attaches span unless a more precise one is already recorded.
func (e *LayoutError) at(span source.Span) *LayoutError {
	if e != nil && e.Span == (source.Span{}) {
		e.Span = span
	}
	return e
}
