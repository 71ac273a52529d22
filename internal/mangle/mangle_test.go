package mangle_test

import (
	"testing"

	"meridian/internal/mangle"
	"meridian/internal/testkit"
	"meridian/internal/types"
)

func TestTypeEncoding(t *testing.T) {
	f := testkit.New()
	b := f.B()
	box := f.Class("Box", types.NoTypeID, "T")
	point := f.Struct("Point")
	m := mangle.New(f.Types)

	tests := []struct {
		name string
		typ  types.TypeID
		want string
	}{
		{"int", b.Int, "Si"},
		{"sized", b.UInt16, "u16_"},
		{"struct", point.ID, "4Main5PointV"},
		{"bound", f.Bind(box, b.Int64), "4Main3BoxCys64_G"},
		{"tuple", f.Types.InternTuple([]types.TypeID{b.Bool, b.Float64}), "tSbSd_"},
		{"array", f.Types.InternArray(b.Int8, 4), "A4_s8_"},
		{"fn", f.Types.InternFn([]types.TypeID{b.Int32}, b.Unit), "Fs32__yt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Type(tt.typ); got != tt.want {
				t.Fatalf("Type() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSymbolsAreDistinct(t *testing.T) {
	f := testkit.New()
	b := f.B()
	box := f.Class("Box", types.NoTypeID, "T")
	put := f.Method(box, "put", []types.TypeID{f.Param(box, 0)}, types.NoTypeID)
	m := mangle.New(f.Types)

	seen := map[string]string{}
	for what, sym := range map[string]string{
		"metadata":   m.Metadata(f.Bind(box, b.Int32)),
		"other":      m.Metadata(f.Bind(box, b.Int64)),
		"pattern":    m.Pattern(box),
		"fill":       m.FillFunction(box),
		"descriptor": m.Descriptor(box),
		"method":     m.Method(put),
		"offset":     m.FieldOffset(box, "value"),
	} {
		if prev, dup := seen[sym]; dup {
			t.Fatalf("%s and %s share symbol %s", what, prev, sym)
		}
		seen[sym] = what
	}
}
