package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const pairManifest = `[unit]
name = "Pairs"

[[types]]
name = "Pair"
kind = "struct"

  [[types.fields]]
  name = "a"
  type = "Int32"

  [[types.fields]]
  name = "b"
  type = "Int8"

[[types]]
name = "Node"
kind = "class"

  [[types.fields]]
  name = "next"
  type = "Int64"

  [[types.methods]]
  name = "visit"
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "meridian.toml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--color", "off"))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestEmitWritesArtifacts(t *testing.T) {
	dir := writeManifest(t, pairManifest)
	outDir := filepath.Join(t.TempDir(), "out")
	stdout, stderr, err := run(t, "emit", dir, "-o", outDir, "--llvm")
	if err != nil {
		t.Fatalf("emit: %v\n%s", err, stderr)
	}
	for _, name := range []string{"Pairs.mdp", "Pairs.ll"} {
		path := filepath.Join(outDir, name)
		if _, err := os.Stat(path); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(stdout, "wrote "+path) {
			t.Fatalf("stdout = %q", stdout)
		}
	}

	stdout, _, err = run(t, "inspect", filepath.Join(outDir, "Pairs.mdp"), "--words")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"unit Pairs (module Pairs)", "struct Pair", "class Node", "    0  "} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, stdout)
		}
	}
}

func TestEmitCheckWritesNothing(t *testing.T) {
	dir := writeManifest(t, pairManifest)
	outDir := filepath.Join(t.TempDir(), "out")
	if _, _, err := run(t, "emit", dir, "-o", outDir, "--check"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("--check created the output directory")
	}
}

func TestEmitReportsDiagnostics(t *testing.T) {
	dir := writeManifest(t, "[unit]\nname = \"Bad\"\n\n[[types]]\nname = \"S\"\nkind = \"struct\"\n\n  [[types.fields]]\n  name = \"a\"\n  type = \"Missing\"\n")
	stdout, _, err := run(t, "emit", dir, "-o", t.TempDir())
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(stdout, "ERROR PRJ1002: unknown type Missing") || !strings.Contains(stdout, "^~~~~~") {
		t.Fatalf("stdout = %q", stdout)
	}

	stdout, _, _ = run(t, "emit", dir, "--format", "json")
	var doc map[string]struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("json output: %v\n%s", err, stdout)
	}
	for _, v := range doc {
		if v.Count != 1 {
			t.Fatalf("count = %d", v.Count)
		}
	}
}

func TestLayoutAndVTable(t *testing.T) {
	dir := writeManifest(t, pairManifest)
	stdout, stderr, err := run(t, "layout", dir, "Pair", "[Pair; 2]")
	if err != nil {
		t.Fatalf("layout: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "Pair struct  fixed  size 8  align 4") || !strings.Contains(stdout, "[Pair; 2] type  fixed  size 16") {
		t.Fatalf("layout output:\n%s", stdout)
	}

	stdout, _, err = run(t, "vtable", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "Node vtable  1 slots") || !strings.Contains(stdout, "Node.visit") || strings.Contains(stdout, "Pair") {
		t.Fatalf("vtable output:\n%s", stdout)
	}

	if _, _, err := run(t, "layout", dir, "Nope"); err == nil {
		t.Fatalf("unknown type accepted")
	}
}

func TestOverridesAndBadFlags(t *testing.T) {
	dir := writeManifest(t, pairManifest)
	stdout, _, err := run(t, "layout", dir, "Node", "--target", "i386")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "header 8") {
		t.Fatalf("i386 class header:\n%s", stdout)
	}

	for _, args := range [][]string{
		{"layout", dir, "--interop", "maybe"},
		{"layout", dir, "--log-level", "loud"},
		{"layout", dir, "--paths", "sideways"},
		{"emit", dir, "--format", "xml"},
	} {
		if _, _, err := run(t, args...); err == nil || errors.Is(err, errDiagnostics) {
			t.Fatalf("%v: err = %v", args, err)
		}
	}
}

func TestCacheCommands(t *testing.T) {
	cacheDir := t.TempDir()
	dir := writeManifest(t, pairManifest)
	if _, _, err := run(t, "emit", dir, "--cache", "--cache-dir", cacheDir, "--check"); err != nil {
		t.Fatal(err)
	}
	stdout, _, err := run(t, "emit", dir, "--cache", "--cache-dir", cacheDir, "-o", t.TempDir())
	if err != nil || !strings.Contains(stdout, "(cached)") {
		t.Fatalf("second emit: %v\n%s", err, stdout)
	}
	stdout, _, err = run(t, "cache", "dir", "--cache-dir", cacheDir)
	if err != nil || strings.TrimSpace(stdout) != cacheDir {
		t.Fatalf("cache dir = %q, %v", stdout, err)
	}
	if _, _, err := run(t, "cache", "clean", "--cache-dir", cacheDir); err != nil {
		t.Fatal(err)
	}
}

func TestVersionJSON(t *testing.T) {
	stdout, _, err := run(t, "version", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil || payload.Tool != "meridian" || payload.Schema == 0 {
		t.Fatalf("payload = %+v, %v", payload, err)
	}
}

func TestParseSwitch(t *testing.T) {
	if v, err := parseSwitch(""); err != nil || v != nil {
		t.Fatalf("empty = %v, %v", v, err)
	}
	if v, err := parseSwitch("On"); err != nil || v == nil || !*v {
		t.Fatalf("On = %v, %v", v, err)
	}
	if v, err := parseSwitch("off"); err != nil || v == nil || *v {
		t.Fatalf("off = %v, %v", v, err)
	}
	if c, err := resolveColor("on", os.Stdout); err != nil || !c {
		t.Fatalf("color on = %v, %v", c, err)
	}
}
