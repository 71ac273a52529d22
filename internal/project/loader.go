package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"meridian/internal/diag"
	"meridian/internal/layout"
	"meridian/internal/project/dag"
	"meridian/internal/source"
	"meridian/internal/types"
)

// Unit is one loaded compilation unit: the root manifest's declarations
// plus everything its imports contribute, resolved into a fresh interner.
type Unit struct {
	Name    string
	Module  string
	Path    string
	Target  layout.Target
	Interop bool

	Types *types.Interner
	// Decls are declared by the root manifest; Imported by its imports.
	Decls      []*types.NominalDecl
	Imported   []*types.NominalDecl
	Categories []*types.CategoryDecl
	Protocols  []*types.ProtocolDecl

	// Imports lists imported manifest paths, dependencies first.
	Imports []string
	// Hash covers the root manifest and every import.
	Hash Digest
}

type manifestFile struct {
	path     string
	file     *source.File
	manifest *Manifest
	unknown  []string
}

// Loader decodes manifests into units. Manifests shared by several units
// are read and decoded once, even when units load concurrently.
type Loader struct {
	Files *source.FileSet

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]*manifestFile
}

func NewLoader(files *source.FileSet) *Loader {
	if files == nil {
		files = source.NewFileSet()
	}
	return &Loader{Files: files, cache: make(map[string]*manifestFile)}
}

func (l *Loader) cached(path string) (*manifestFile, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mf, ok := l.cache[path]
	return mf, ok
}

// manifest returns the decoded manifest at the absolute path.
func (l *Loader) manifest(path string) (*manifestFile, error) {
	if mf, ok := l.cached(path); ok {
		return mf, nil
	}
	v, err, _ := l.group.Do(path, func() (any, error) {
		if mf, ok := l.cached(path); ok {
			return mf, nil
		}
		id, err := l.Files.Load(path)
		if err != nil {
			return nil, err
		}
		f := l.Files.Get(id)
		m, unknown, err := DecodeManifest(f)
		if err != nil {
			return nil, err
		}
		mf := &manifestFile{path: path, file: f, manifest: m, unknown: unknown}
		l.mu.Lock()
		l.cache[path] = mf
		l.mu.Unlock()
		return mf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*manifestFile), nil
}

// Load reads the manifest at path and every manifest it imports. Problems
// inside manifests are reported to r; an error is returned only when the
// root manifest itself cannot be decoded (a *ManifestError when it can be
// positioned) or ctx is cancelled.
func (l *Loader) Load(ctx context.Context, path string, r diag.Reporter) (*Unit, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	root, err := l.manifest(abs)
	if err != nil {
		return nil, err
	}

	files := map[string]*manifestFile{abs: root}
	var nodes []dag.Node
	queue := []*manifestFile{root}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mf := queue[0]
		queue = queue[1:]
		loc := &locator{file: mf.file}
		node := dag.Node{Path: mf.path, Span: lineSpan(mf.file, 1), Reporter: r}
		for _, key := range mf.unknown {
			diag.ReportWarning(r, diag.PrjUnknownKey, loc.key(lastKey(key)),
				fmt.Sprintf("unknown manifest key %s", key)).Emit()
		}
		for _, imp := range mf.manifest.Unit.Imports {
			span := loc.find(imp)
			target := imp
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(mf.path), target)
			}
			target = filepath.Clean(target)
			if info, statErr := statDir(target); statErr == nil && info {
				target = filepath.Join(target, ManifestName)
			}
			if _, seen := files[target]; !seen {
				dep, err := l.manifest(target)
				if err != nil {
					diag.ReportError(r, diag.PrjImportFailed, span, fmt.Sprintf("cannot import %s", imp)).
						WithNote(errorSpan(err, span), err.Error()).
						Emit()
					continue
				}
				files[target] = dep
				queue = append(queue, dep)
			}
			node.Imports = append(node.Imports, dag.Import{Path: target, Span: span})
		}
		nodes = append(nodes, node)
	}

	idx := dag.BuildIndex(nodes)
	graph, slots := dag.BuildGraph(idx, nodes)
	topo := dag.ToposortKahn(graph)
	dag.ReportCycles(idx, slots, topo)
	order := topo.DependenciesFirst()
	order = append(order, topo.Cycles...)

	unit := &Unit{
		Name:    root.manifest.Unit.Name,
		Module:  root.manifest.Unit.Module,
		Path:    abs,
		Interop: root.manifest.Unit.ForeignInterop,
		Types:   types.NewInterner(),
	}
	target, ok := layout.TargetByName(root.manifest.Unit.Target)
	if !ok {
		diag.ReportError(r, diag.PrjUnknownTarget, (&locator{file: root.file}).find(root.manifest.Unit.Target),
			fmt.Sprintf("unknown target %q", root.manifest.Unit.Target)).Emit()
		target = layout.X86_64LinuxGNU()
	}
	unit.Target = target

	rs := newResolver(unit.Types, r)
	locs := make(map[string]*locator, len(files))
	var deps []Digest
	for _, id := range order {
		path := idx.IDToName[int(id)]
		mf, ok := files[path]
		if !ok {
			continue
		}
		loc := &locator{file: mf.file}
		locs[path] = loc
		before := len(rs.pending)
		rs.declare(mf.manifest, loc)
		for _, p := range rs.pending[before:] {
			if path == abs {
				unit.Decls = append(unit.Decls, p.decl)
			} else {
				unit.Imported = append(unit.Imported, p.decl)
			}
		}
		if path != abs {
			unit.Imports = append(unit.Imports, path)
			deps = append(deps, mf.file.Hash)
		}
	}
	rs.bodies()

	loc := locs[abs]
	for i := range root.manifest.Categories {
		if cat, ok := rs.category(&root.manifest.Categories[i], unit.Name, loc); ok {
			unit.Categories = append(unit.Categories, cat)
		}
	}
	for i := range root.manifest.Protocols {
		unit.Protocols = append(unit.Protocols, rs.protocol(&root.manifest.Protocols[i], unit.Module, loc))
	}

	unit.Hash = Combine(root.file.Hash, deps...)
	return unit, nil
}

func lastKey(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return key[i+1:]
		}
	}
	return key
}

func errorSpan(err error, fallback source.Span) source.Span {
	var me *ManifestError
	if errors.As(err, &me) {
		return me.Span
	}
	return fallback
}

// ResolveType resolves a type expression against every type visible in
// the unit. A generic type named without arguments resolves to its
// unbound declaration.
func (u *Unit) ResolveType(text string) (types.TypeID, error) {
	name := strings.TrimSpace(text)
	if id, ok := u.Types.LookupNominal(name); ok {
		return id, nil
	}
	bag := diag.NewBag(1)
	rs := newResolver(u.Types, diag.BagReporter{Bag: bag})
	for _, d := range u.Types.Nominals() {
		rs.declared[d.Name] = d
	}
	t, ok := rs.typeOf(name, nil, source.Span{})
	if !ok {
		if items := bag.Items(); len(items) > 0 {
			return types.NoTypeID, errors.New(items[0].Message)
		}
		return types.NoTypeID, fmt.Errorf("cannot resolve %q", text)
	}
	return t, nil
}
