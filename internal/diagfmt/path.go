package diagfmt

import (
	"os"
	"path/filepath"
	"strings"
)

func formatPath(path string, mode PathMode, baseDir string) string {
	if path == "" {
		return path
	}
	switch mode {
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}

	base := baseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return path
		}
		base = wd
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return abs
	}
	outside := rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
	if mode == PathModeAuto && outside {
		return abs
	}
	return rel
}
