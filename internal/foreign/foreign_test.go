package foreign_test

import (
	"testing"

	"meridian/internal/diag"
	"meridian/internal/foreign"
	"meridian/internal/layout"
	"meridian/internal/mangle"
	"meridian/internal/objdata"
	"meridian/internal/testkit"
	"meridian/internal/types"
)

type harness struct {
	f      *testkit.Fixture
	bag    *diag.Bag
	module *objdata.Module
	b      *foreign.Builder
}

func newHarness(f *testkit.Fixture) *harness {
	le := layout.New(layout.X86_64LinuxGNU(), f.Types)
	le.Module = f.Module
	h := &harness{f: f, bag: diag.NewBag(16), module: objdata.NewModule()}
	h.b = foreign.NewBuilder(le, mangle.New(f.Types), foreign.NewContext(), h.module, "Shapes", diag.BagReporter{Bag: h.bag})
	return h
}

func (h *harness) blob(t *testing.T, symbol string) *objdata.Blob {
	t.Helper()
	b, ok := h.module.Lookup(symbol)
	if !ok {
		t.Fatalf("blob %s was not emitted", symbol)
	}
	return b
}

func (h *harness) hasCode(code diag.Code) bool {
	for _, d := range h.bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestCategoryNamesPerUnit(t *testing.T) {
	ctx := foreign.NewContext()
	got := []string{
		ctx.CategoryName("Box", "Shapes"),
		ctx.CategoryName("Box", "Shapes"),
		ctx.CategoryName("Box", "Extras"),
		ctx.CategoryName("Circle", "Shapes"),
		ctx.CategoryName("Box", "Shapes"),
	}
	want := []string{"Shapes", "Shapes1", "Extras", "Shapes", "Shapes2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("category %d named %q, want %q", i, got[i], want[i])
		}
	}
}

func TestClassUnderForeignRoot(t *testing.T) {
	f := testkit.New()
	b := f.B()
	root := f.Class("NSObject", types.NoTypeID)
	root.Foreign = true
	widget := f.Class("Widget", root.ID)
	width := f.Field(widget, "width", b.Float64)
	width.Exposed = true
	f.Field(widget, "count", b.Int32)
	draw := f.Method(widget, "draw", []types.TypeID{b.Int32}, types.NoTypeID)
	draw.Exposed = true

	h := newHarness(f)
	d, ok := h.b.Class(widget)
	if !ok {
		t.Fatalf("Class failed: %v", h.bag.Items())
	}
	if d.Flags != foreign.FlagCompiledByRC|foreign.FlagHasDestructor {
		t.Fatalf("flags = %#x", d.Flags)
	}
	if d.InstanceStart != 8 || d.InstanceSize != 24 {
		t.Fatalf("instance extents %d..%d, want 8..24", d.InstanceStart, d.InstanceSize)
	}
	if len(d.Ivars) != 2 || len(d.Properties) != 1 || len(d.Instance) != 1 || d.Instance[0].Selector != "draw:" {
		t.Fatalf("unexpected members: %+v", d)
	}

	roSym := h.b.Encode(d)
	ro := h.blob(t, roSym)
	if ro.U32At(0) != d.Flags || ro.U32At(4) != 8 || ro.U32At(8) != 24 || ro.U32At(12) != 0 {
		t.Fatalf("bad ro header % x", ro.Bytes[:16])
	}
	if ro.Len() != 16+7*8 {
		t.Fatalf("ro data is %d bytes", ro.Len())
	}
	if _, ok := ro.RelocAt(16); ok {
		t.Fatalf("ivar layout must be null")
	}

	ivars := h.blob(t, mangle.ForeignList("IVARS", "Widget"))
	if ivars.U32At(0) != 32 || ivars.U32At(4) != 2 || ivars.Len() != 8+2*32 {
		t.Fatalf("ivar list header %d/%d, %d bytes", ivars.U32At(0), ivars.U32At(4), ivars.Len())
	}
	if r, _ := ivars.RelocAt(8); r.Symbol != mangle.New(f.Types).FieldOffset(widget, "width") {
		t.Fatalf("first ivar offset cell = %q", r.Symbol)
	}
	if _, ok := ivars.RelocAt(24); ok {
		t.Fatalf("ivar type encoding must be null")
	}
	if ivars.U32At(8+24) != 8 || ivars.U32At(8+32+24) != 4 || ivars.U32At(8+32+28) != 4 {
		t.Fatalf("ivar size/alignment fields are wrong")
	}

	meta := h.blob(t, mangle.ForeignMetaclass("Widget"))
	isa, _ := meta.RelocAt(0)
	super, _ := meta.RelocAt(8)
	if isa.Symbol != mangle.ForeignMetaclass("NSObject") || super.Symbol != mangle.ForeignMetaclass("NSObject") {
		t.Fatalf("metaclass chain isa=%s super=%s", isa.Symbol, super.Symbol)
	}
	metaRO := h.blob(t, mangle.ForeignClassRO("Widget", true))
	if metaRO.U32At(0)&foreign.FlagMeta == 0 {
		t.Fatalf("metaclass ro misses the meta flag")
	}
	if _, ok := metaRO.RelocAt(32); ok {
		t.Fatalf("empty class method list must encode as null")
	}
}

func TestNativeRootMetaclassChain(t *testing.T) {
	f := testkit.New()
	base := f.Class("Base", types.NoTypeID)
	derived := f.Class("Derived", base.ID)

	h := newHarness(f)
	bd, _ := h.b.Class(base)
	dd, _ := h.b.Class(derived)
	if bd.Flags&foreign.FlagRoot == 0 || dd.Flags&foreign.FlagRoot != 0 {
		t.Fatalf("root flag: base %#x derived %#x", bd.Flags, dd.Flags)
	}
	if bd.SuperMetaclass != mangle.RootMetaclass {
		t.Fatalf("root's metaclass super = %s", bd.SuperMetaclass)
	}
	if dd.SuperMetaclass != mangle.ForeignMetaclass("Base") || dd.RootMetaclass != mangle.RootMetaclass {
		t.Fatalf("derived chain super=%s root=%s", dd.SuperMetaclass, dd.RootMetaclass)
	}
	if bd.InstanceStart != 0 || bd.InstanceSize != 0 {
		t.Fatalf("class without fields must report zero extents")
	}
}

func TestGenericSuperclassLeavesMetaclassPending(t *testing.T) {
	f := testkit.New()
	b := f.B()
	box := f.Class("Box", types.NoTypeID, "T")
	f.Field(box, "value", f.Param(box, 0))
	ints := f.Class("IntBox", f.Bind(box, b.Int64))

	h := newHarness(f)
	d, ok := h.b.Class(ints)
	if !ok {
		t.Fatalf("Class failed: %v", h.bag.Items())
	}
	if !d.SuperPending || d.SuperMetaclass != "" {
		t.Fatalf("pending=%v super metaclass=%q", d.SuperPending, d.SuperMetaclass)
	}
	h.b.Encode(d)
	meta := h.blob(t, mangle.ForeignMetaclass("IntBox"))
	if isa, _ := meta.RelocAt(0); isa.Symbol != mangle.RootMetaclass {
		t.Fatalf("metaclass isa = %s", isa.Symbol)
	}
	if r, ok := meta.RelocAt(8); ok {
		t.Fatalf("superclass of the metaclass is set at realization, got %s", r.Symbol)
	}
}

func TestProtocolSplitsOptionalMethods(t *testing.T) {
	f := testkit.New()
	b := f.B()
	draw := &types.Method{Name: "draw", Sig: types.Signature{Result: b.Unit}}
	shade := &types.Method{Name: "shade", Optional: true, Sig: types.Signature{Result: b.Unit}}
	f.Types.RegisterMethod(draw)
	f.Types.RegisterMethod(shade)
	proto := &types.ProtocolDecl{Name: "Drawable", Members: []types.Member{draw, shade}}

	h := newHarness(f)
	d := h.b.Protocol(proto)
	if len(d.Instance) != 1 || len(d.OptInst) != 1 {
		t.Fatalf("required=%d optional=%d", len(d.Instance), len(d.OptInst))
	}
	blob := h.blob(t, h.b.Encode(d))
	if blob.Len() != 72 || blob.U32At(64) != 72 {
		t.Fatalf("protocol record is %d bytes, size field %d", blob.Len(), blob.U32At(64))
	}
	if _, ok := blob.RelocAt(16); ok {
		t.Fatalf("empty inherited protocol list must be null")
	}
	list := h.blob(t, mangle.ForeignList("PROTOCOL_INSTANCE_METHODS", "P_Drawable"))
	if r, _ := list.RelocAt(8 + 16); r.Symbol != "" {
		t.Fatalf("protocol methods have no implementation, got %s", r.Symbol)
	}
}

func TestIvarDiagnostics(t *testing.T) {
	f := testkit.New()
	b := f.B()
	huge := f.Class("Huge", types.NoTypeID)
	f.Field(huge, "data", f.Types.InternArray(b.Int8, 3_000_000_000))

	opaque := f.Struct("Opaque")
	opaque.Module = "Lib"
	opaque.Resilient = true
	holder := f.Class("Holder", types.NoTypeID)
	f.Field(holder, "o", opaque.ID)

	h := newHarness(f)
	if _, ok := h.b.Class(huge); ok || !h.hasCode(diag.FrnIvarSizeLimit) {
		t.Fatalf("expected an ivar size diagnostic, got %v", h.bag.Items())
	}
	if _, ok := h.b.Class(holder); ok || !h.hasCode(diag.FrnIvarNotFixed) {
		t.Fatalf("expected a non-fixed ivar diagnostic, got %v", h.bag.Items())
	}
}

func TestCategoryRejectsStoredProperties(t *testing.T) {
	f := testkit.New()
	b := f.B()
	box := f.Class("Box", types.NoTypeID)
	cat := &types.CategoryDecl{
		Class:   box.ID,
		Members: []types.Member{&types.Field{Name: "extra", Type: b.Int8, Stored: true}},
	}
	h := newHarness(f)
	if _, ok := h.b.Category(cat); ok || !h.hasCode(diag.PrjCategoryStorage) {
		t.Fatalf("stored category property must be rejected")
	}

	ok := &types.CategoryDecl{
		Class:   box.ID,
		Members: []types.Member{&types.Field{Name: "area", Type: b.Float64}},
	}
	d, good := h.b.Category(ok)
	if !good || d.Name != "Shapes1" {
		t.Fatalf("second category on Box from Shapes should be Shapes1, got %+v", d)
	}
	blob := h.blob(t, h.b.Encode(d))
	if blob.Len() != 6*8 {
		t.Fatalf("category record is %d bytes", blob.Len())
	}
	if r, _ := blob.RelocAt(8); r.Addend != 16 {
		t.Fatalf("class pointer should address the record's address point, got %+v", r)
	}
}
