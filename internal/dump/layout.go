// Package dump renders computed layouts and dispatch tables as text for
// the command line.
package dump

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"meridian/internal/layout"
	"meridian/internal/types"
)

// Layout writes the layout of t: a summary line, class arrangement when t
// is a class, and one row per element.
func Layout(w io.Writer, le *layout.LayoutEngine, t types.TypeID, opts Options) error {
	l, err := le.LayoutOf(t)
	if err != nil {
		return err
	}
	st := newStyles(w, opts.Color)
	in := le.Types

	var b strings.Builder
	kind := "type"
	if decl, _, ok := in.NominalOf(t); ok {
		kind = decl.Kind.String()
	}
	b.WriteString(st.title.Render(in.TypeString(t)))
	fmt.Fprintf(&b, " %s  %s", kind, l.Class)
	if l.IsFixed() {
		fmt.Fprintf(&b, "  size %d  align %d  stride %d", l.Size, l.Align, l.Stride())
	}
	if l.POD {
		b.WriteString("  pod")
	}
	b.WriteByte('\n')

	if len(l.Hierarchy) > 0 {
		chain := make([]string, len(l.Hierarchy))
		for i, n := range l.Hierarchy {
			chain[i] = in.TypeString(n.Type)
		}
		fmt.Fprintf(&b, "  %s\n", st.dim.Render(fmt.Sprintf("root %s  header %d  object %s  metadata %s",
			l.Root, l.HeaderSize, l.Object, l.Metadata)))
		fmt.Fprintf(&b, "  %s\n", st.dim.Render("chain "+strings.Join(chain, " <- ")))
		if l.NominalKnown && !l.IsFixed() {
			fmt.Fprintf(&b, "  %s\n", st.dim.Render("nominal size "+strconv.Itoa(l.NominalSize)))
		}
	}
	if l.TagSize > 0 {
		fmt.Fprintf(&b, "  %s\n", st.dim.Render(fmt.Sprintf("tag at %d, %d bytes", l.TagOffset, l.TagSize)))
	}

	if len(l.Elements) > 0 {
		tbl := &table{header: []string{"#", "name", "type", "owner", "offset", "size", "align", "class", "access"}}
		for i, el := range l.Elements {
			row := tbl.add(
				strconv.Itoa(i),
				elementName(el),
				in.TypeString(el.Type),
				ownerName(in, el),
				offset(el),
				sizeOf(el, el.Size),
				sizeOf(el, el.Align),
				el.SizeClass.String(),
				access(l, el),
			)
			if !el.IsFixed() {
				tbl.flag(row)
			}
		}
		tbl.render(&b, st, "  ", opts.MaxCell)
	}
	_, err = io.WriteString(w, b.String())
	return err
}

func elementName(el layout.Element) string {
	switch {
	case el.Field != nil:
		return el.Field.Name
	case el.Case != nil:
		return el.Case.Name
	}
	return "_"
}

func ownerName(in *types.Interner, el layout.Element) string {
	if el.Owner == types.NoTypeID {
		return ""
	}
	return in.TypeString(el.Owner)
}

func offset(el layout.Element) string {
	if !el.OffsetKnown {
		return "?"
	}
	return strconv.Itoa(el.Offset)
}

func sizeOf(el layout.Element, v int) string {
	if !el.IsFixed() {
		return "?"
	}
	return strconv.Itoa(v)
}

// access only applies to class fields; struct and enum elements are
// always addressed directly.
func access(l layout.TypeLayout, el layout.Element) string {
	if len(l.Hierarchy) == 0 || el.Field == nil {
		return ""
	}
	return el.Strategy.String()
}
