package llvm_test

import (
	"strings"
	"testing"

	"meridian/internal/backend/llvm"
	"meridian/internal/diag"
	"meridian/internal/layout"
	"meridian/internal/metadata"
	"meridian/internal/objdata"
	"meridian/internal/testkit"
	"meridian/internal/types"
)

func emitUnit(t *testing.T, f *testkit.Fixture, target layout.Target, decls ...*types.NominalDecl) (string, *metadata.Emitter) {
	t.Helper()
	le := layout.New(target, f.Types)
	le.Module = f.Module
	bag := diag.NewBag(16)
	data := objdata.NewModule()
	e := metadata.NewEmitter(le, data, diag.BagReporter{Bag: bag}, metadata.Config{Unit: f.Module})
	recs, ok := e.EmitAll(decls)
	if !ok {
		t.Fatalf("emit: %v", bag.Items())
	}
	out, err := llvm.EmitModule(target, data, recs)
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	return out, e
}

func TestModuleHasRecordsAndFillFunctions(t *testing.T) {
	f := testkit.New()
	b := f.B()
	point := f.Struct("Point")
	f.Field(point, "x", b.Int32)
	box := f.Struct("Box", "T")
	f.Field(box, "value", f.Param(box, 0))

	out, e := emitUnit(t, f, layout.X86_64LinuxGNU(), point, box)
	mustContain := []string{
		`target triple = "x86_64-unknown-linux-gnu"`,
		"declare void @meridian_initStructFieldOffsets(",
		e.Mangle.Metadata(point.ID),
		e.Mangle.Pattern(box),
		"define void @" + e.Mangle.FillFunction(box),
		"ptrtoint",
		"<{",
		"external global i8",
	}
	for _, s := range mustContain {
		if !strings.Contains(out, s) {
			t.Fatalf("module lacks %q:\n%s", s, out)
		}
	}
	if strings.Count(out, "define void") != 1 {
		t.Fatalf("expected one fill function:\n%s", out)
	}
}

func TestUndefinedSymbolsAreExternal(t *testing.T) {
	f := testkit.New()
	b := f.B()
	point := f.Struct("Point")
	f.Field(point, "x", b.Int32)

	out, e := emitUnit(t, f, layout.X86_64LinuxGNU(), point)
	witness := "@" + e.Mangle.ValueWitness(point.ID) + " = external global i8"
	if !strings.Contains(out, witness) {
		t.Fatalf("module lacks %q:\n%s", witness, out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasSuffix(strings.TrimSpace(line), "= global i8") {
			t.Fatalf("global without initializer or linkage: %s", line)
		}
	}
}

func TestPointerWidthFollowsTarget(t *testing.T) {
	f := testkit.New()
	b := f.B()
	point := f.Struct("Point")
	f.Field(point, "x", b.Int32)

	out, _ := emitUnit(t, f, layout.I386AppleDarwin(), point)
	if !strings.Contains(out, "ptrtoint") || !strings.Contains(out, " to i32)") {
		t.Fatalf("relocations on a 32-bit target should be i32 words:\n%s", out)
	}
	if strings.Contains(out, " to i64)") {
		t.Fatalf("unexpected 64-bit relocation:\n%s", out)
	}
}
