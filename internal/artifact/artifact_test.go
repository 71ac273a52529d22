package artifact_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"meridian/internal/artifact"
	"meridian/internal/diag"
	"meridian/internal/layout"
	"meridian/internal/mangle"
	"meridian/internal/metadata"
	"meridian/internal/objdata"
	"meridian/internal/project"
	"meridian/internal/testkit"
	"meridian/internal/types"
)

func emitUnit(t *testing.T) (*artifact.Artifact, []*metadata.Record) {
	t.Helper()
	f := testkit.New()
	b := f.B()
	point := f.Struct("Point")
	f.Field(point, "x", b.Int32)
	f.Field(point, "y", b.Float64)
	pair := f.Struct("Pair", "T")
	f.Field(pair, "first", f.Param(pair, 0))
	f.Field(pair, "second", f.Param(pair, 0))

	le := layout.New(layout.X86_64LinuxGNU(), f.Types)
	le.Module = f.Module
	mod := objdata.NewModule()
	bag := diag.NewBag(8)
	e := metadata.NewEmitter(le, mod, diag.BagReporter{Bag: bag}, metadata.Config{Unit: f.Module})
	records, ok := e.EmitAll([]*types.NominalDecl{point, pair})
	if !ok {
		t.Fatalf("emit: %v", bag.Items())
	}
	info := artifact.Info{Unit: "Main", Module: "Main", Triple: le.Target.Triple, Hash: project.HashString("main")}
	return artifact.Build(info, mod, records, e.Mangle), records
}

func TestBuildIndexesRecords(t *testing.T) {
	a, records := emitUnit(t)
	if len(a.Records) != 2 || len(a.Templates) != 1 {
		t.Fatalf("records=%d templates=%d", len(a.Records), len(a.Templates))
	}
	point, pair := a.Records[0], a.Records[1]
	if point.Name != "Point" || point.Generic || point.Kind != "struct" || point.Symbol != records[0].Symbol {
		t.Fatalf("Point summary = %+v", point)
	}
	if !pair.Generic || a.Templates[0].Name != "Pair" {
		t.Fatalf("Pair summary = %+v", pair)
	}
	if point.Descriptor == "" || point.Descriptor == pair.Descriptor {
		t.Fatalf("descriptor symbols: %q %q", point.Descriptor, pair.Descriptor)
	}
	if len(a.Undefined) == 0 {
		t.Fatalf("value witness tables should be left to the loader")
	}
}

func TestEncodePreservesContent(t *testing.T) {
	a, _ := emitUnit(t)
	var buf bytes.Buffer
	if err := artifact.Encode(&buf, a); err != nil {
		t.Fatal(err)
	}
	got, err := artifact.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Unit != a.Unit || got.Triple != a.Triple || got.Hash != a.Hash || len(got.Blobs) != len(a.Blobs) {
		t.Fatalf("header mismatch: %+v", got)
	}
	for i, blob := range a.Blobs {
		if got.Blobs[i].Symbol != blob.Symbol || !bytes.Equal(got.Blobs[i].Bytes, blob.Bytes) || len(got.Blobs[i].Relocs) != len(blob.Relocs) {
			t.Fatalf("blob %s changed", blob.Symbol)
		}
	}
	tpl := got.Templates[0]
	if tpl.FillFunction != a.Templates[0].FillFunction || len(tpl.Fills) != len(a.Templates[0].Fills) || tpl.NumArgs != 1 {
		t.Fatalf("template header mismatch: %+v", tpl.Header)
	}
	for i, w := range a.Records[0].Words {
		if got.Records[0].Words[i] != w {
			t.Fatalf("word %d: %s, want %s", i, got.Records[0].Words[i], w)
		}
	}
}

func TestSubclassOfGenericCarriesRealization(t *testing.T) {
	f := testkit.New()
	b := f.B()
	box := f.Class("Box", types.NoTypeID, "T")
	f.Field(box, "value", f.Param(box, 0))
	ints := f.Class("IntBox", f.Bind(box, b.Int64))

	le := layout.New(layout.X86_64LinuxGNU(), f.Types)
	le.Module = f.Module
	mod := objdata.NewModule()
	bag := diag.NewBag(8)
	e := metadata.NewEmitter(le, mod, diag.BagReporter{Bag: bag}, metadata.Config{Unit: f.Module, Interop: true})
	records, ok := e.EmitAll([]*types.NominalDecl{box, ints})
	if !ok {
		t.Fatalf("emit: %v", bag.Items())
	}
	a := artifact.Build(artifact.Info{Unit: "Main", Module: "Main", Triple: le.Target.Triple}, mod, records, e.Mangle)

	var buf bytes.Buffer
	if err := artifact.Encode(&buf, a); err != nil {
		t.Fatal(err)
	}
	got, err := artifact.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	sum := got.Records[1]
	if sum.Name != "IntBox" || !sum.InPlaceInit {
		t.Fatalf("IntBox summary = %+v", sum)
	}
	if sum.Super == nil || sum.Super.Pattern != e.Mangle.Pattern(box) || len(sum.Super.Args) != 1 {
		t.Fatalf("superclass recipe = %+v", sum.Super)
	}
	if sum.MetaclassFixup != mangle.ForeignMetaclass("IntBox") {
		t.Fatalf("metaclass fixup = %q", sum.MetaclassFixup)
	}
	if got.Records[0].Super != nil || got.Records[0].MetaclassFixup != "" {
		t.Fatalf("Box needs no realization recipe: %+v", got.Records[0])
	}
}

func TestDecodeRejectsOtherSchema(t *testing.T) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&artifact.Artifact{Schema: artifact.SchemaVersion + 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := artifact.Decode(&buf); !errors.Is(err, artifact.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestDiskCache(t *testing.T) {
	cache, err := artifact.OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	a, _ := emitUnit(t)
	if _, hit, err := cache.Get(a.Hash); hit || err != nil {
		t.Fatalf("empty cache: hit=%v err=%v", hit, err)
	}
	if err := cache.Put(a.Hash, a); err != nil {
		t.Fatal(err)
	}
	got, hit, err := cache.Get(a.Hash)
	if err != nil || !hit || got.Unit != "Main" {
		t.Fatalf("after put: hit=%v err=%v", hit, err)
	}
	if _, hit, _ := cache.Get(project.HashString("other")); hit {
		t.Fatalf("unexpected hit for another key")
	}
	if err := cache.DropAll(); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := cache.Get(a.Hash); hit {
		t.Fatalf("entry survived DropAll")
	}
	if err := cache.Put(a.Hash, a); err != nil {
		t.Fatalf("cache unusable after DropAll: %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	a, _ := emitUnit(t)
	path := filepath.Join(t.TempDir(), "out", "Main.mdp")
	if err := artifact.WriteFile(path, a); err != nil {
		t.Fatal(err)
	}
	got, err := artifact.ReadFile(path)
	if err != nil || len(got.Records) != 2 {
		t.Fatalf("read back: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "tmp-*"))
	if len(matches) != 0 {
		t.Fatalf("temporary files left behind: %v", matches)
	}
}
