package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Build information for the meridian CLI, overridable via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with each numeric component highlighted.
func Colored() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// String is the full version line.
func String(colored bool) string {
	v := Version
	if colored {
		v = Colored()
	}
	line := "meridian " + v
	if GitCommit != "" {
		line += fmt.Sprintf(" (%s)", GitCommit)
	}
	if BuildDate != "" {
		line += " built " + BuildDate
	}
	return line
}
