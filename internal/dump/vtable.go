package dump

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"meridian/internal/types"
	"meridian/internal/vtable"
)

// VTable writes the dispatch table of class, grouped by the class that
// introduced each slot range.
func VTable(w io.Writer, r *vtable.Resolver, class types.TypeID, opts Options) error {
	tbl, err := r.Resolve(class)
	if err != nil {
		return err
	}
	st := newStyles(w, opts.Color)
	in := r.Types

	var b strings.Builder
	b.WriteString(st.title.Render(in.TypeString(class)))
	fmt.Fprintf(&b, " vtable  %d slots\n", len(tbl.Slots))
	for _, lvl := range tbl.Levels {
		fmt.Fprintf(&b, "  %s\n", st.dim.Render(fmt.Sprintf("%s: slots %d..%d", lvl.Decl.Name, lvl.First, lvl.First+lvl.Count)))
	}
	if len(tbl.Slots) == 0 {
		_, err = io.WriteString(w, b.String())
		return err
	}

	grid := &table{header: []string{"slot", "method", "overrider", "flags"}}
	for i, s := range tbl.Slots {
		var flags []string
		if s.RequiresOwnSlot {
			flags = append(flags, "own-slot")
		}
		if s.Thunk {
			flags = append(flags, "thunk")
		}
		row := grid.add(strconv.Itoa(i), methodName(in, s.Method), methodName(in, s.FinalOverrider), strings.Join(flags, ","))
		if s.Thunk {
			grid.flag(row)
		}
	}
	grid.render(&b, st, "  ", opts.MaxCell)
	_, err = io.WriteString(w, b.String())
	return err
}

func methodName(in *types.Interner, id types.MethodID) string {
	m, ok := in.Method(id)
	if !ok {
		return "?"
	}
	owner := "?"
	if decl, ok := in.Nominal(m.Owner); ok {
		owner = decl.Name
	}
	return owner + "." + m.Name
}
