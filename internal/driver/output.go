package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"meridian/internal/artifact"
)

// WriteOutputs writes <unit>.mdp, and <unit>.ll when IR was rendered, into
// dir. It returns the written paths.
func (r *Result) WriteOutputs(dir string) ([]string, error) {
	if r.Artifact == nil {
		return nil, fmt.Errorf("%s: nothing to write", r.Path)
	}
	name := r.Artifact.Unit
	mdp := filepath.Join(dir, name+".mdp")
	if err := artifact.WriteFile(mdp, r.Artifact); err != nil {
		return nil, fmt.Errorf("write %s: %w", mdp, err)
	}
	written := []string{mdp}
	if r.LLVM != "" {
		ll := filepath.Join(dir, name+".ll")
		if err := os.WriteFile(ll, []byte(r.LLVM), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", ll, err)
		}
		written = append(written, ll)
	}
	return written, nil
}
