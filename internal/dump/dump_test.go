package dump_test

import (
	"bytes"
	"strings"
	"testing"

	"meridian/internal/dump"
	"meridian/internal/layout"
	"meridian/internal/testkit"
	"meridian/internal/types"
	"meridian/internal/vtable"
)

func engine(f *testkit.Fixture) *layout.LayoutEngine {
	le := layout.New(layout.X86_64LinuxGNU(), f.Types)
	le.Module = f.Module
	return le
}

func contains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLayoutStruct(t *testing.T) {
	f := testkit.New()
	b := f.B()
	pair := f.Struct("Pair")
	f.Field(pair, "a", b.Int32)
	f.Field(pair, "b", b.Int8)

	var buf bytes.Buffer
	if err := dump.Layout(&buf, engine(f), pair.ID, dump.Options{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	contains(t, out, "Pair struct  fixed  size 8  align 4  stride 8", "offset", "Int32", "Int8")
	if strings.Contains(out, "chain") {
		t.Fatalf("struct printed class details:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected summary, header and 2 rows, got:\n%s", out)
	}
}

func TestLayoutClass(t *testing.T) {
	f := testkit.New()
	b := f.B()
	base := f.Class("Base", types.NoTypeID)
	f.Field(base, "count", b.Int64)
	derived := f.Class("Derived", base.ID)
	f.Field(derived, "flag", b.Bool)

	var buf bytes.Buffer
	if err := dump.Layout(&buf, engine(f), derived.ID, dump.Options{}); err != nil {
		t.Fatal(err)
	}
	contains(t, buf.String(),
		"Derived class  fixed",
		"root native  header 16",
		"chain Base <- Derived",
		"count",
		"flag",
		"constant-direct",
	)
}

func TestLayoutTruncatesCells(t *testing.T) {
	f := testkit.New()
	long := f.Struct("S")
	f.Field(long, "a_rather_long_field_name", f.B().Int8)

	var buf bytes.Buffer
	if err := dump.Layout(&buf, engine(f), long.ID, dump.Options{MaxCell: 8}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "a_rather_long") || !strings.Contains(buf.String(), "a_rat...") {
		t.Fatalf("cell not truncated:\n%s", buf.String())
	}
}

func TestVTable(t *testing.T) {
	f := testkit.New()
	b := f.B()
	base := f.Class("Base", types.NoTypeID)
	foo := f.Method(base, "foo", []types.TypeID{b.Int32}, types.NoTypeID)
	f.Method(base, "bar", nil, b.Bool)
	derived := f.Class("Derived", base.ID)
	f.Override(derived, foo, []types.TypeID{b.Int32}, types.NoTypeID)
	f.Method(derived, "baz", nil, types.NoTypeID)

	var buf bytes.Buffer
	if err := dump.VTable(&buf, vtable.NewResolver(engine(f)), derived.ID, dump.Options{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	contains(t, out,
		"Derived vtable  3 slots",
		"Base: slots 0..2",
		"Derived: slots 2..3",
		"Base.foo",
		"Derived.foo",
		"Derived.baz",
	)
	if strings.Contains(out, "thunk") {
		t.Fatalf("no slot needs a thunk:\n%s", out)
	}
}

func TestVTableRejectsNonClass(t *testing.T) {
	f := testkit.New()
	s := f.Struct("S")
	var buf bytes.Buffer
	if err := dump.VTable(&buf, vtable.NewResolver(engine(f)), s.ID, dump.Options{}); err == nil {
		t.Fatalf("struct has no vtable")
	}
}
