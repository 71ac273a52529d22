package diag

import (
	"testing"

	"meridian/internal/source"
)

func TestFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("units/shapes.toml", []byte("a\nb\n"))

	items := []Diagnostic{
		NewError(LayRecursiveType, source.Span{File: file, Start: 0, End: 1}, "first line\nsecond").
			WithNote(source.Span{File: file, Start: 2, End: 3}, "field declared here"),
		New(SevWarning, VtbOverrideMismatch, source.Span{File: file, Start: 2, End: 3}, "another"),
	}

	want := "error LAY2001 units/shapes.toml:1:1 first line second\n" +
		"note LAY2001 units/shapes.toml:2:1 field declared here\n" +
		"warning VTB3001 units/shapes.toml:2:1 another"
	if got := FormatShort(items, fs, true); got != want {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}

func TestBagLimitAndMerge(t *testing.T) {
	bag := NewBag(1)
	if !bag.Add(NewError(PrjUnknownType, source.Span{}, "a")) {
		t.Fatal("first Add rejected")
	}
	if bag.Add(NewError(PrjUnknownType, source.Span{}, "b")) {
		t.Fatal("Add beyond limit accepted")
	}
	other := NewBag(4)
	other.Add(New(SevWarning, VtbOverrideMismatch, source.Span{Start: 1}, "c"))
	bag.Merge(other)
	if bag.Len() != 2 || !bag.HasErrors() {
		t.Fatalf("after merge: len=%d errors=%v", bag.Len(), bag.HasErrors())
	}
}

func TestAssertPanicsWithInternalError(t *testing.T) {
	defer func() {
		r := recover()
		ice, ok := r.(*InternalError)
		if !ok {
			t.Fatalf("expected *InternalError, got %T", r)
		}
		if ice.Msg != "slot 3 has no final overrider" {
			t.Fatalf("unexpected message %q", ice.Msg)
		}
	}()
	Assert(false, "slot %d has no final overrider", 3)
}
