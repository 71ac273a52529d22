package objdata_test

import (
	"testing"

	"meridian/internal/objdata"
)

func TestWriterRecordsRelocations(t *testing.T) {
	w := objdata.NewWriter("_list", objdata.SectionForeign, 8)
	w.I32(24).I32(2).Ptr("_name", 0).Null().Ptr("_imp", 8)
	b := w.Finish()

	if b.Len() != 32 {
		t.Fatalf("expected 32 bytes, got %d", b.Len())
	}
	if b.U32At(0) != 24 || b.U32At(4) != 2 {
		t.Fatalf("bad list header % x", b.Bytes[:8])
	}
	if r, ok := b.RelocAt(8); !ok || r.Symbol != "_name" {
		t.Fatalf("missing relocation at 8: %+v", r)
	}
	if _, ok := b.RelocAt(16); ok {
		t.Fatalf("null slot must not be relocated")
	}
	if r, _ := b.RelocAt(24); r.Addend != 8 {
		t.Fatalf("addend lost: %+v", r)
	}
}

func TestWriterWordWidth(t *testing.T) {
	w := objdata.NewWriter("_w", objdata.SectionData, 4)
	w.Word(7).U8(1).Pad(4)
	b := w.Finish()
	if b.Len() != 8 || b.WordAt(0) != 7 {
		t.Fatalf("unexpected 32-bit encoding % x", b.Bytes)
	}
}

func TestModuleUndefined(t *testing.T) {
	m := objdata.NewModule()
	w := objdata.NewWriter("_a", objdata.SectionData, 8)
	w.Ptr("_b", 0).Ptr("_ext", 0).Ptr("_ext", 0)
	m.Add(w.Finish())
	m.Add(objdata.CString("_b", "b"))

	got := m.Undefined()
	if len(got) != 1 || got[0] != "_ext" {
		t.Fatalf("Undefined() = %v", got)
	}
	if kept := m.Intern(objdata.CString("_b", "other")); string(kept.Bytes) != "b\x00" {
		t.Fatalf("Intern replaced an existing blob")
	}
}
