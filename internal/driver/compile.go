package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"meridian/internal/artifact"
	"meridian/internal/backend/llvm"
	"meridian/internal/diag"
	"meridian/internal/layout"
	"meridian/internal/metadata"
	"meridian/internal/objdata"
	"meridian/internal/project"
	"meridian/internal/source"
)

// CompileAll compiles every manifest, at most Jobs at a time. Results are
// returned in the order of paths. Diagnostics never fail the run; the
// error is reserved for cancellation and I/O failures.
func (s *Session) CompileAll(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	if len(paths) == 0 {
		return results, nil
	}
	jobs := s.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			res, err := s.CompileUnit(gctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CompileUnit loads the manifest at path and, in ModeEmit, emits every
// record, category and protocol of the unit.
func (s *Session) CompileUnit(ctx context.Context, path string) (*Result, error) {
	res := &Result{Path: path, Bag: diag.NewBag(s.opts.MaxDiagnostics)}
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag})
	label := filepath.Base(filepath.Dir(path)) + "/" + filepath.Base(path)

	done := s.phase(label, "load")
	unit, err := s.Loader.Load(ctx, path, reporter)
	if err != nil {
		done("failed")
		var merr *project.ManifestError
		if errors.As(err, &merr) {
			diag.ReportError(reporter, diag.PrjBadManifest, merr.Span, merr.Err.Error()).Emit()
			return res, nil
		}
		return nil, err
	}
	done(fmt.Sprintf("%d decls, %d imported", len(unit.Decls), len(unit.Imported)))
	res.Unit = unit
	log := s.log.With(zap.String("unit", unit.Name))
	log.Debug("unit loaded",
		zap.String("path", unit.Path),
		zap.Int("decls", len(unit.Decls)),
		zap.Strings("imports", unit.Imports))

	s.applyOverrides(unit, reporter)
	res.Key = project.Combine(unit.Hash,
		project.HashString(unit.Target.Triple),
		project.HashString(strconv.FormatBool(unit.Interop)))

	le := layout.New(unit.Target, unit.Types)
	le.Module = unit.Module
	res.Module = objdata.NewModule()
	res.Emitter = metadata.NewEmitter(le, res.Module, reporter, metadata.Config{
		Unit:    unit.Name,
		Interop: unit.Interop,
		Context: s.Foreign,
	})
	if s.opts.Mode == ModeAnalyze || res.HasErrors() {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.opts.Cache != nil && !s.opts.LLVM {
		a, hit, err := s.opts.Cache.Get(res.Key)
		if err != nil {
			log.Debug("cache read failed", zap.Error(err))
		}
		if hit {
			log.Debug("cache hit", zap.Stringer("key", res.Key))
			res.Artifact, res.Cached = a, true
			return res, nil
		}
	}

	done = s.phase(label, "emit")
	s.emit(res, reporter, log)
	done(fmt.Sprintf("%d records", len(res.Records)))
	if res.HasErrors() {
		log.Debug("unit has errors", zap.Int("diagnostics", res.Bag.Len()))
		return res, nil
	}

	res.Artifact = artifact.Build(artifact.Info{
		Unit:   unit.Name,
		Module: unit.Module,
		Triple: unit.Target.Triple,
		Hash:   res.Key,
	}, res.Module, res.Records, res.Emitter.Mangle)

	if s.opts.LLVM {
		done = s.phase(label, "llvm")
		ir, err := llvm.EmitModule(unit.Target, res.Module, res.Records)
		done("")
		if err != nil {
			diag.ReportError(reporter, diag.EmtArtifactWrite, s.unitSpan(unit), fmt.Sprintf("LLVM IR for %s: %v", unit.Name, err)).Emit()
			return res, nil
		}
		res.LLVM = ir
	}
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Put(res.Key, res.Artifact); err != nil {
			log.Debug("cache write failed", zap.Error(err))
		}
	}
	return res, nil
}

func (s *Session) applyOverrides(unit *project.Unit, r diag.Reporter) {
	if s.opts.Target != "" {
		if t, ok := layout.TargetByName(s.opts.Target); ok {
			unit.Target = t
		} else {
			diag.ReportError(r, diag.PrjUnknownTarget, s.unitSpan(unit), fmt.Sprintf("unknown target %q", s.opts.Target)).Emit()
		}
	}
	if s.opts.Interop != nil {
		unit.Interop = *s.opts.Interop
	}
}

func (s *Session) emit(res *Result, r diag.Reporter, log *zap.Logger) {
	unit, e := res.Unit, res.Emitter
	for _, decl := range unit.Decls {
		if !e.Emits(decl) {
			continue
		}
		rec, ok := e.Emit(decl)
		if !ok {
			log.Debug("record failed", zap.String("type", decl.Name))
			continue
		}
		res.Records = append(res.Records, rec)
	}

	if !unit.Interop {
		for _, cat := range unit.Categories {
			diag.ReportWarning(r, diag.FrnInfo, cat.Span, "category ignored: foreign interop is disabled for this unit").Emit()
		}
		for _, p := range unit.Protocols {
			diag.ReportWarning(r, diag.FrnInfo, p.Span, fmt.Sprintf("protocol %s ignored: foreign interop is disabled for this unit", p.Name)).Emit()
		}
		return
	}
	for _, cat := range unit.Categories {
		if d, ok := e.EmitCategory(cat); ok {
			res.Categories = append(res.Categories, d)
		} else {
			log.Debug("category failed", zap.String("unit", cat.Unit))
		}
	}
	for _, p := range unit.Protocols {
		res.Protocols = append(res.Protocols, e.EmitProtocol(p))
	}
}

// unitSpan points at the start of the unit's manifest, for diagnostics
// that have no better position.
func (s *Session) unitSpan(unit *project.Unit) source.Span {
	if id, ok := s.Files.GetLatest(unit.Path); ok {
		return source.Span{File: id}
	}
	return source.Span{}
}
