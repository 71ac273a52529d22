// Package driver compiles declaration manifests into metadata artifacts,
// one compilation unit per manifest, several units in parallel.
package driver

import (
	"go.uber.org/zap"

	"meridian/internal/artifact"
	"meridian/internal/diag"
	"meridian/internal/foreign"
	"meridian/internal/layout"
	"meridian/internal/metadata"
	"meridian/internal/objdata"
	"meridian/internal/observ"
	"meridian/internal/project"
	"meridian/internal/source"
)

// Mode selects how far CompileUnit goes.
type Mode uint8

const (
	// ModeEmit runs the whole pipeline.
	ModeEmit Mode = iota
	// ModeAnalyze loads the unit and sets up its engines without emitting
	// anything; used by the inspection commands.
	ModeAnalyze
)

// Options configure a compilation run.
type Options struct {
	Mode Mode
	// Target and Interop override the manifest's [unit] settings.
	Target  string
	Interop *bool

	MaxDiagnostics int
	// Jobs bounds the units compiled at once; <= 0 means GOMAXPROCS.
	Jobs int
	// LLVM also renders each unit as textual LLVM IR.
	LLVM bool
	// Cache, when set, is consulted before emission and filled after it.
	// Runs that render LLVM IR always emit.
	Cache *artifact.DiskCache

	Logger   *zap.Logger
	Timer    *observ.Timer
	Observer PhaseObserver
}

// Result is the outcome of compiling one manifest.
type Result struct {
	Path string
	Unit *project.Unit
	Bag  *diag.Bag
	// Key is the cache key: the unit hash combined with the effective
	// target and interop setting.
	Key project.Digest

	Emitter    *metadata.Emitter
	Module     *objdata.Module
	Records    []*metadata.Record
	Categories []*foreign.Descriptor
	Protocols  []*foreign.Descriptor

	Artifact *artifact.Artifact
	LLVM     string
	// Cached is set when Artifact came from the disk cache.
	Cached bool
}

// HasErrors reports whether the unit produced error diagnostics.
func (r *Result) HasErrors() bool {
	return r.Bag != nil && r.Bag.HasErrors()
}

// Layout is the unit's layout engine; nil when the manifest failed to load.
func (r *Result) Layout() *layout.LayoutEngine {
	if r.Emitter == nil {
		return nil
	}
	return r.Emitter.Layout
}

// Session holds the state shared by the units of one run: the file set
// used for diagnostics, the manifest loader and the foreign runtime
// context.
type Session struct {
	Files   *source.FileSet
	Loader  *project.Loader
	Foreign *foreign.Context

	opts Options
	log  *zap.Logger
}

func NewSession(opts Options) *Session {
	files := source.NewFileSet()
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 100
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		Files:   files,
		Loader:  project.NewLoader(files),
		Foreign: foreign.NewContext(),
		opts:    opts,
		log:     log,
	}
}
