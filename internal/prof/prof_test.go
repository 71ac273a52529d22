package prof_test

import (
	"os"
	"path/filepath"
	"testing"

	"meridian/internal/prof"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	cfg := prof.Config{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Mem:   filepath.Join(dir, "mem.pprof"),
		Trace: filepath.Join(dir, "run.trace"),
	}
	s, err := prof.Start(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	for _, path := range []string{cfg.CPU, cfg.Mem, cfg.Trace} {
		if _, err := os.Stat(path); err != nil {
			t.Fatal(err)
		}
	}
}

func TestStartFailureLeavesNothingRunning(t *testing.T) {
	dir := t.TempDir()
	cfg := prof.Config{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Trace: filepath.Join(dir, "missing", "run.trace"),
	}
	if _, err := prof.Start(cfg); err == nil {
		t.Fatalf("expected an error for the trace path")
	}
	// the CPU profiler must have been released
	s, err := prof.Start(prof.Config{CPU: filepath.Join(dir, "again.pprof")})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if (prof.Config{}).Enabled() {
		t.Fatalf("empty config reports enabled")
	}
}
