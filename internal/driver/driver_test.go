package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"meridian/internal/artifact"
	"meridian/internal/diag"
	"meridian/internal/driver"
	"meridian/internal/project"
)

const geometry = `[unit]
name = "Geometry"
foreign_interop = true

[[protocols]]
name = "Drawable"

  [[protocols.methods]]
  name = "draw"

[[types]]
name = "Point"
kind = "struct"

  [[types.fields]]
  name = "x"
  type = "Float64"

  [[types.fields]]
  name = "y"
  type = "Float64"

[[types]]
name = "Shape"
kind = "class"
protocols = ["Drawable"]

  [[types.fields]]
  name = "origin"
  type = "Point"

  [[types.methods]]
  name = "draw"
  exposed = true

[[types]]
name = "Holder"
kind = "class"
generics = [{ name = "T" }]

  [[types.fields]]
  name = "item"
  type = "T"

[[categories]]
class = "Shape"

  [[categories.methods]]
  name = "describe"
  result = "Int64"
`

const plain = `[unit]
name = "Plain"

[[types]]
name = "Pair"
kind = "struct"

  [[types.fields]]
  name = "a"
  type = "Int32"

  [[types.fields]]
  name = "b"
  type = "Int8"
`

func manifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), project.ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func compile(t *testing.T, opts driver.Options, path string) *driver.Result {
	t.Helper()
	res, err := driver.NewSession(opts).CompileUnit(context.Background(), path)
	if err != nil {
		t.Fatalf("compile %s: %v", path, err)
	}
	return res
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestCompileAllProducesArtifacts(t *testing.T) {
	paths := []string{manifest(t, geometry), manifest(t, plain)}
	s := driver.NewSession(driver.Options{Jobs: 2, LLVM: true})
	results, err := s.CompileAll(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	geo, pl := results[0], results[1]
	for _, res := range results {
		if res.HasErrors() {
			t.Fatalf("%s: %v", res.Path, res.Bag.Items())
		}
	}
	if geo.Unit.Name != "Geometry" || len(geo.Records) != 3 || len(geo.Categories) != 1 || len(geo.Protocols) != 1 {
		t.Fatalf("Geometry: %d records, %d categories, %d protocols", len(geo.Records), len(geo.Categories), len(geo.Protocols))
	}
	if geo.Categories[0].Name != "Geometry" {
		t.Fatalf("category named %q", geo.Categories[0].Name)
	}
	if !strings.Contains(geo.LLVM, "define void @") {
		t.Fatalf("Holder's fill function missing from IR")
	}
	if pl.Unit.Name != "Plain" || len(pl.Records) != 1 || len(pl.Artifact.Templates) != 0 {
		t.Fatalf("Plain: %+v", pl.Artifact)
	}

	out := t.TempDir()
	written, err := geo.WriteOutputs(out)
	if err != nil || len(written) != 2 {
		t.Fatalf("written %v: %v", written, err)
	}
	a, err := artifact.ReadFile(filepath.Join(out, "Geometry.mdp"))
	if err != nil || len(a.Records) != 3 || a.Hash != geo.Key {
		t.Fatalf("artifact on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "Geometry.ll")); err != nil {
		t.Fatal(err)
	}
}

func TestCacheSkipsEmission(t *testing.T) {
	cache, err := artifact.OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := manifest(t, geometry)
	first := compile(t, driver.Options{Cache: cache}, path)
	if first.Cached || first.Artifact == nil {
		t.Fatalf("first run should emit")
	}
	second := compile(t, driver.Options{Cache: cache}, path)
	if !second.Cached || second.Records != nil || len(second.Artifact.Records) != 3 {
		t.Fatalf("second run should come from the cache")
	}
	if second.Key != first.Key {
		t.Fatalf("keys differ between identical runs")
	}

	withIR := compile(t, driver.Options{Cache: cache, LLVM: true}, path)
	if withIR.Cached || withIR.LLVM == "" {
		t.Fatalf("runs rendering IR must emit")
	}
}

func TestOverrides(t *testing.T) {
	path := manifest(t, geometry)
	native := compile(t, driver.Options{}, path)
	i386 := compile(t, driver.Options{Target: "i386"}, path)
	if i386.Artifact.Triple != "i386-apple-darwin" || i386.Key == native.Key {
		t.Fatalf("target override ignored: %s", i386.Artifact.Triple)
	}

	off := false
	res := compile(t, driver.Options{Interop: &off}, path)
	if res.HasErrors() || len(res.Records) != 3 || res.Categories != nil {
		t.Fatalf("interop disabled: %v", res.Bag.Items())
	}
	if !hasCode(res.Bag, diag.FrnInfo) {
		t.Fatalf("ignored category should be reported")
	}

	bad := compile(t, driver.Options{Target: "pdp11"}, path)
	if !hasCode(bad.Bag, diag.PrjUnknownTarget) || bad.Artifact != nil {
		t.Fatalf("unknown target should stop the unit")
	}
}

func TestManifestErrorsStopEmission(t *testing.T) {
	res := compile(t, driver.Options{}, manifest(t, `[unit]
name = "Broken"

[[types]]
name = "S"
kind = "struct"

  [[types.fields]]
  name = "a"
  type = "Nope"
`))
	if !hasCode(res.Bag, diag.PrjUnknownType) || res.Artifact != nil || res.Records != nil {
		t.Fatalf("broken unit: %v", res.Bag.Items())
	}

	res = compile(t, driver.Options{}, manifest(t, "[unit\nname = 1\n"))
	if res.Unit != nil || !hasCode(res.Bag, diag.PrjBadManifest) {
		t.Fatalf("undecodable manifest: %v", res.Bag.Items())
	}
}

func TestAnalyzeMode(t *testing.T) {
	res := compile(t, driver.Options{Mode: driver.ModeAnalyze}, manifest(t, plain))
	if res.Records != nil || res.Artifact != nil {
		t.Fatalf("analyze mode emitted output")
	}
	id, _ := res.Unit.Types.LookupNominal("Pair")
	size, err := res.Layout().SizeOf(id)
	if err != nil || size != 8 {
		t.Fatalf("Pair size = %d, %v", size, err)
	}
}

func TestObserverSeesPhases(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)
	opts := driver.Options{Observer: func(ev driver.PhaseEvent) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Status == driver.PhaseEnd {
			seen[ev.Name]++
		}
	}}
	compile(t, opts, manifest(t, plain))
	if seen["load"] != 1 || seen["emit"] != 1 || seen["llvm"] != 0 {
		t.Fatalf("phases = %v", seen)
	}
}
