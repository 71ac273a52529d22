package diag

import "fmt"

// InternalError is the panic payload for internal-consistency failures:
// states the engine's own invariants rule out, never user input.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "internal compiler error: " + e.Msg
}

// ICE panics with an *InternalError.
func ICE(format string, args ...any) {
	panic(&InternalError{Msg: fmt.Sprintf(format, args...)})
}

// Assert panics with an *InternalError when cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		ICE(format, args...)
	}
}
