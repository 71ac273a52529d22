package project_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"meridian/internal/diag"
	"meridian/internal/project"
	"meridian/internal/source"
	"meridian/internal/types"
)

func TestParseTypeExpr(t *testing.T) {
	valid := []struct{ in, want string }{
		{"Int64", "Int64"},
		{"Box< T >", "Box<T>"},
		{"Map<String,Array<Int8>>", "Map<String, Array<Int8>>"},
		{"()", "()"},
		{"(Int8, (Bool))", "(Int8, (Bool))"},
		{"[Float64;16]", "[Float64; 16]"},
		{"fn() -> Bool", "fn() -> Bool"},
		{"fn(Int32, [Int8; 2]) -> fn(Bool) -> ()", "fn(Int32, [Int8; 2]) -> fn(Bool) -> ()"},
	}
	for _, tc := range valid {
		e, err := project.ParseTypeExpr(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if got := e.String(); got != tc.want {
			t.Fatalf("%q printed as %q, want %q", tc.in, got, tc.want)
		}
	}

	invalid := []string{"", "Box<", "Box<>", "[Int8]", "[Int8; n]", "fn(Int8)", "(Int8", "Int8 Int16", "Int8$"}
	for _, in := range invalid {
		if _, err := project.ParseTypeExpr(in); err == nil {
			t.Fatalf("%q: expected an error", in)
		}
	}
}

func load(t *testing.T, path string) (*project.Unit, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(100)
	l := project.NewLoader(nil)
	unit, err := l.Load(context.Background(), path, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	return unit, bag
}

func codes(bag *diag.Bag) map[diag.Code]int {
	out := make(map[diag.Code]int)
	for _, d := range bag.Items() {
		out[d.Code]++
	}
	return out
}

func lookup(t *testing.T, unit *project.Unit, name string) *types.NominalDecl {
	t.Helper()
	id, ok := unit.Types.LookupNominal(name)
	if !ok {
		t.Fatalf("type %s not declared", name)
	}
	decl, _ := unit.Types.Nominal(id)
	return decl
}

func TestLoadResolvesImports(t *testing.T) {
	unit, bag := load(t, filepath.Join("testdata", "shapes", "meridian.toml"))
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if unit.Name != "Shapes" || unit.Module != "Shapes" || !unit.Interop || unit.Target.PtrSize != 8 {
		t.Fatalf("unit header: %+v", unit)
	}
	if len(unit.Imports) != 1 || filepath.Base(filepath.Dir(unit.Imports[0])) != "base" {
		t.Fatalf("imports = %v", unit.Imports)
	}
	if len(unit.Decls) != 2 || unit.Decls[0].Name != "Box" || unit.Decls[1].Name != "Shape" {
		t.Fatalf("own decls = %v", unit.Decls)
	}
	if len(unit.Imported) != 2 {
		t.Fatalf("imported decls = %v", unit.Imported)
	}

	base := lookup(t, unit, "Base")
	if base.Module != "Base" || len(base.Generics) != 1 {
		t.Fatalf("Base: module %q, generics %v", base.Module, base.Generics)
	}

	box := lookup(t, unit, "Box")
	sd, args, ok := unit.Types.NominalOf(box.Superclass)
	if !ok || sd != base || len(args) != 1 || args[0] != unit.Types.Builtins().Int64 {
		t.Fatalf("Box superclass = %s", unit.Types.TypeString(box.Superclass))
	}
	get, _ := box.MethodByName("get")
	baseGet, _ := base.MethodByName("get")
	if get.Overrides != baseGet.ID {
		t.Fatalf("Box.get overrides %d, want %d", get.Overrides, baseGet.ID)
	}
	draw, _ := box.MethodByName("draw")
	if draw.Selector != "drawAt:with:" || !draw.Exposed || len(draw.Sig.Params) != 1 || len(draw.Sig.Params[0]) != 2 {
		t.Fatalf("draw = %+v", draw)
	}
	if _, isFn := unit.Types.FnInfo(draw.Sig.Params[0][1]); !isFn {
		t.Fatalf("second draw parameter is not a function type")
	}
	if draw.Sig.Result != unit.Types.Builtins().Unit {
		t.Fatalf("draw result should default to Unit")
	}
	if len(box.StoredFields()) != 2 {
		t.Fatalf("Box stored fields = %d", len(box.StoredFields()))
	}

	shape := lookup(t, unit, "Shape")
	cases := shape.Cases()
	if len(cases) != 3 || cases[2].Payload != types.NoTypeID {
		t.Fatalf("Shape cases = %v", cases)
	}
	if _, isTuple := unit.Types.TupleElems(cases[1].Payload); !isTuple {
		t.Fatalf("pair payload is not a tuple")
	}

	if len(unit.Categories) != 1 {
		t.Fatalf("categories = %d", len(unit.Categories))
	}
	cat := unit.Categories[0]
	if cat.Class != box.ID || cat.Unit != "Shapes" || len(cat.Members) != 2 {
		t.Fatalf("category = %+v", cat)
	}
	if len(unit.Protocols) != 1 || unit.Protocols[0].Inherits[0] != "Drawable" {
		t.Fatalf("protocols = %v", unit.Protocols)
	}
	if m, ok := unit.Protocols[0].Members[0].(*types.Method); !ok || !m.Optional {
		t.Fatalf("protocol method should be optional")
	}
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), project.ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const brokenManifest = `[unit]
name = "Bad"
colour = "red"

[[types]]
name = "S"
kind = "struct"

  [[types.fields]]
  name = "a"
  type = "Missing"

  [[types.fields]]
  name = "a"
  type = "Int8"

  [[types.fields]]
  name = "b"
  type = "Int8<"

[[types]]
name = "C"
kind = "class"
superclass = "S"

  [[types.methods]]
  name = "m"
  overrides = "nothing"

[[types]]
name = "G"
kind = "struct"
generics = [{ name = "T" }]

  [[types.fields]]
  name = "g"
  type = "G"

[[types]]
name = "E"
kind = "union"

[[types]]
name = "S"
kind = "enum"
`

func TestLoadReportsManifestErrors(t *testing.T) {
	_, bag := load(t, writeManifest(t, brokenManifest))
	got := codes(bag)
	for _, code := range []diag.Code{
		diag.PrjUnknownKey,
		diag.PrjUnknownType,
		diag.PrjDuplicateMember,
		diag.PrjBadTypeExpr,
		diag.PrjBadSuperclass,
		diag.PrjUnknownOverride,
		diag.PrjGenericArity,
		diag.PrjBadKind,
		diag.PrjDuplicateType,
	} {
		if got[code] != 1 {
			t.Fatalf("%s reported %d times; all: %v", code.ID(), got[code], bag.Items())
		}
	}
}

func TestDiagnosticsPointAtValues(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(100)
	path := writeManifest(t, brokenManifest)
	if _, err := project.NewLoader(fs).Load(context.Background(), path, diag.BagReporter{Bag: bag}); err != nil {
		t.Fatal(err)
	}
	for _, d := range bag.Items() {
		if d.Code != diag.PrjUnknownType {
			continue
		}
		f := fs.Get(d.Primary.File)
		if text := string(f.Content[d.Primary.Start:d.Primary.End]); text != "Missing" {
			t.Fatalf("unknown type span covers %q", text)
		}
		return
	}
	t.Fatalf("no unknown type diagnostic")
}

func TestDecodeErrors(t *testing.T) {
	fs := source.NewFileSet()
	l := project.NewLoader(fs)

	_, err := l.Load(context.Background(), writeManifest(t, "[unit]\nname = \"X\"\nbroken = = 1\n"), nil)
	var merr *project.ManifestError
	if !errors.As(err, &merr) {
		t.Fatalf("expected a manifest error, got %v", err)
	}
	if start, _ := fs.Resolve(merr.Span); start.Line != 3 {
		t.Fatalf("parse error reported on line %d", start.Line)
	}

	_, err = l.Load(context.Background(), writeManifest(t, "[[types]]\nname = \"S\"\nkind = \"struct\"\n"), nil)
	if !errors.Is(err, project.ErrUnitSectionMissing) {
		t.Fatalf("expected missing [unit], got %v", err)
	}
}

func TestImportCycleIsReported(t *testing.T) {
	unit, bag := load(t, filepath.Join("testdata", "cycle", "a.toml"))
	if codes(bag)[diag.PrjImportCycle] != 2 {
		t.Fatalf("diagnostics = %v", bag.Items())
	}
	if len(unit.Decls) != 1 || len(unit.Imported) != 1 {
		t.Fatalf("cyclic manifests should still declare their types: %v %v", unit.Decls, unit.Imported)
	}
}

func TestMissingImport(t *testing.T) {
	path := writeManifest(t, "[unit]\nname = \"X\"\nimports = [\"nowhere.toml\"]\n")
	_, bag := load(t, path)
	if codes(bag)[diag.PrjImportFailed] == 0 {
		t.Fatalf("diagnostics = %v", bag.Items())
	}
}

func TestConcurrentLoadsShareManifests(t *testing.T) {
	l := project.NewLoader(nil)
	paths := []string{
		filepath.Join("testdata", "shapes", "meridian.toml"),
		filepath.Join("testdata", "other", "meridian.toml"),
	}
	units := make([]*project.Unit, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := l.Load(context.Background(), path, diag.BagReporter{Bag: diag.NewBag(10)})
			if err == nil {
				units[i] = u
			}
		}()
	}
	wg.Wait()

	if units[0] == nil || units[1] == nil {
		t.Fatalf("a load failed")
	}
	if n := l.Files.Len(); n != 3 {
		t.Fatalf("files read = %d, want 3 (base decoded once)", n)
	}
	if units[0].Types == units[1].Types {
		t.Fatalf("units must not share an interner")
	}
}

func TestHashIsStable(t *testing.T) {
	path := filepath.Join("testdata", "shapes", "meridian.toml")
	a, _ := load(t, path)
	b, _ := load(t, path)
	if a.Hash.IsZero() || a.Hash != b.Hash {
		t.Fatalf("hash %s vs %s", a.Hash, b.Hash)
	}
	other, _ := load(t, filepath.Join("testdata", "other", "meridian.toml"))
	if other.Hash == a.Hash {
		t.Fatalf("different units share a hash")
	}
}

func TestFindManifest(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, project.ManifestName)
	if err := os.WriteFile(want, []byte("[unit]\nname = \"R\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, ok, err := project.FindManifest(nested)
	if err != nil || !ok || got != want {
		t.Fatalf("FindManifest = %q %v %v", got, ok, err)
	}
	resolved, err := project.ResolveManifest(nested)
	if err != nil || resolved != want {
		t.Fatalf("ResolveManifest = %q %v", resolved, err)
	}
}

func TestResolveType(t *testing.T) {
	unit, _ := load(t, filepath.Join("testdata", "shapes", "meridian.toml"))
	box := lookup(t, unit, "Box")
	if id, err := unit.ResolveType(" Box "); err != nil || id != box.ID {
		t.Fatalf("Box = %d, %v", id, err)
	}
	id, err := unit.ResolveType("Base<[Int8; 2]>")
	if err != nil {
		t.Fatal(err)
	}
	if got := unit.Types.TypeString(id); got != "Base<[Int8; 2]>" {
		t.Fatalf("resolved %s", got)
	}
	for _, bad := range []string{"Nope", "Base<Int8, Int8>", "Base<"} {
		if _, err := unit.ResolveType(bad); err == nil {
			t.Fatalf("%q resolved", bad)
		}
	}
}
