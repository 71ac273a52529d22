package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestStringIncludesBuildInfo(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	Version = "1.2.3"
	GitCommit = "abc123"
	BuildDate = "2026-01-15"
	if got := String(false); got != "meridian 1.2.3 (abc123) built 2026-01-15" {
		t.Fatalf("String = %q", got)
	}

	GitCommit, BuildDate = "", ""
	if got := String(false); got != "meridian 1.2.3" {
		t.Fatalf("String = %q", got)
	}
}

func TestColoredKeepsComponents(t *testing.T) {
	origVersion, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = origVersion, origNoColor }()
	color.NoColor = true

	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.0.0-rc.1", "weird"} {
		Version = v
		if got := Colored(); got != v {
			t.Fatalf("Colored(%q) without color = %q", v, got)
		}
	}

	color.NoColor = false
	Version = "1.2.3-dev"
	if got := Colored(); !strings.HasSuffix(got, "-dev") || !strings.Contains(got, "\x1b[") {
		t.Fatalf("Colored = %q", got)
	}
}
