package project

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"meridian/internal/diag"
	"meridian/internal/source"
	"meridian/internal/types"
)

// locator finds spans of quoted values in a manifest. Entries are visited
// in file order, so each search continues where the previous one ended.
type locator struct {
	file *source.File
	pos  int
}

func (l *locator) find(value string) source.Span {
	if l == nil || l.file == nil {
		return source.Span{}
	}
	quoted := []byte(strconv.Quote(value))
	content := l.file.Content
	at := -1
	if i := bytes.Index(content[l.pos:], quoted); i >= 0 {
		at = l.pos + i
	} else if i := bytes.Index(content, quoted); i >= 0 {
		at = i
	}
	if at < 0 {
		return source.Span{File: l.file.ID}
	}
	l.pos = at + len(quoted)
	return source.Span{File: l.file.ID, Start: mustU32(at + 1), End: mustU32(at + len(quoted) - 1)}
}

// key locates an unquoted manifest key.
func (l *locator) key(name string) source.Span {
	i := bytes.Index(l.file.Content, []byte(name))
	if i < 0 {
		return lineSpan(l.file, 1)
	}
	return source.Span{File: l.file.ID, Start: mustU32(i), End: mustU32(i + len(name))}
}

type pendingDecl struct {
	entry *TypeEntry
	decl  *types.NominalDecl
	loc   *locator
	// methods pairs each registered method with its entry.
	methods []*types.Method
}

type resolver struct {
	in        *types.Interner
	r         diag.Reporter
	protocols map[string]source.Span
	declared  map[string]*types.NominalDecl
	pending   []*pendingDecl
}

func newResolver(in *types.Interner, r diag.Reporter) *resolver {
	return &resolver{
		in:        in,
		r:         r,
		protocols: make(map[string]source.Span),
		declared:  make(map[string]*types.NominalDecl),
	}
}

func (rs *resolver) errorf(code diag.Code, span source.Span, format string, args ...any) {
	diag.ReportError(rs.r, code, span, fmt.Sprintf(format, args...)).Emit()
}

func declKind(s string) (types.DeclKind, bool) {
	switch s {
	case "struct":
		return types.DeclStruct, true
	case "enum":
		return types.DeclEnum, true
	case "class":
		return types.DeclClass, true
	}
	return 0, false
}

// declare registers every type entry of m. Bodies are resolved later so
// entries may refer to each other in any order.
func (rs *resolver) declare(m *Manifest, loc *locator) {
	for i := range m.Protocols {
		p := &m.Protocols[i]
		rs.protocols[p.Name] = loc.find(p.Name)
	}
	for i := range m.Types {
		entry := &m.Types[i]
		span := loc.find(entry.Name)
		kind, ok := declKind(entry.Kind)
		if !ok {
			rs.errorf(diag.PrjBadKind, span, "type %s has unknown kind %q (want struct, enum or class)", entry.Name, entry.Kind)
			continue
		}
		if prev, dup := rs.declared[entry.Name]; dup {
			diag.ReportError(rs.r, diag.PrjDuplicateType, span, fmt.Sprintf("type %s is declared twice", entry.Name)).
				WithNote(prev.Span, "previous declaration").
				Emit()
			continue
		}
		if _, builtin := rs.in.BuiltinByName(entry.Name); builtin {
			rs.errorf(diag.PrjDuplicateType, span, "type %s shadows a builtin type", entry.Name)
			continue
		}
		decl := &types.NominalDecl{
			Name:      entry.Name,
			Module:    m.Unit.Module,
			Kind:      kind,
			Span:      span,
			Resilient: entry.Resilient,
			Foreign:   entry.Foreign,
			Protocols: entry.Protocols,
		}
		for _, g := range entry.Generics {
			decl.Generics = append(decl.Generics, types.GenericParam{Name: g.Name, Requirements: g.Requires})
		}
		rs.in.RegisterNominal(decl)
		rs.declared[entry.Name] = decl
		rs.pending = append(rs.pending, &pendingDecl{entry: entry, decl: decl, loc: loc})
	}
}

// checkProtocols warns about conformances and requirements naming a
// protocol no manifest declares.
func (rs *resolver) checkProtocols(names []string, loc *locator) {
	for _, name := range names {
		if _, ok := rs.protocols[name]; !ok {
			diag.ReportWarning(rs.r, diag.PrjUnknownProtocol, loc.find(name),
				fmt.Sprintf("protocol %s is not declared in any manifest", name)).Emit()
		}
	}
}

// bodies resolves superclasses, members and overrides of every declared
// type.
func (rs *resolver) bodies() {
	for _, p := range rs.pending {
		rs.body(p)
	}
	for _, p := range rs.pending {
		rs.overrides(p)
	}
}

func (rs *resolver) body(p *pendingDecl) {
	decl, entry, loc := p.decl, p.entry, p.loc
	for _, g := range entry.Generics {
		rs.checkProtocols(g.Requires, loc)
	}
	rs.checkProtocols(entry.Protocols, loc)

	if entry.Superclass != "" {
		span := loc.find(entry.Superclass)
		if decl.Kind != types.DeclClass {
			rs.errorf(diag.PrjMemberNotAllowed, span, "%s %s cannot have a superclass", decl.Kind, decl.Name)
		} else if super, ok := rs.typeOf(entry.Superclass, decl, span); ok {
			if sd, _, isNominal := rs.in.NominalOf(super); !isNominal || !sd.IsClass() {
				rs.errorf(diag.PrjBadSuperclass, span, "superclass %s of %s is not a class", entry.Superclass, decl.Name)
			} else {
				decl.Superclass = super
			}
		}
	}

	names := make(map[string]source.Span)
	member := func(name string) (source.Span, bool) {
		span := loc.find(name)
		if prev, dup := names[name]; dup {
			diag.ReportError(rs.r, diag.PrjDuplicateMember, span, fmt.Sprintf("%s declares %s twice", decl.Name, name)).
				WithNote(prev, "previous declaration").
				Emit()
			return span, false
		}
		names[name] = span
		return span, true
	}

	for _, fe := range entry.Fields {
		span, ok := member(fe.Name)
		if !ok {
			continue
		}
		if decl.Kind == types.DeclEnum && !fe.Computed {
			rs.errorf(diag.PrjMemberNotAllowed, span, "enum %s cannot have stored property %s", decl.Name, fe.Name)
			continue
		}
		if f, ok := rs.field(fe, decl, span, loc); ok {
			rs.in.AddMember(decl.ID, f)
		}
	}
	for _, ce := range entry.Cases {
		span, ok := member(ce.Name)
		if !ok {
			continue
		}
		if decl.Kind != types.DeclEnum {
			rs.errorf(diag.PrjMemberNotAllowed, span, "%s %s cannot have case %s", decl.Kind, decl.Name, ce.Name)
			continue
		}
		c := &types.Case{Name: ce.Name, Span: span}
		if ce.Payload != "" {
			payload, ok := rs.typeOf(ce.Payload, decl, loc.find(ce.Payload))
			if !ok {
				continue
			}
			c.Payload = payload
		}
		rs.in.AddMember(decl.ID, c)
	}
	for i := range entry.Methods {
		me := &entry.Methods[i]
		span, ok := member(me.Name)
		if !ok {
			p.methods = append(p.methods, nil)
			continue
		}
		m, ok := rs.method(me, decl, span, loc)
		if !ok {
			p.methods = append(p.methods, nil)
			continue
		}
		rs.in.AddMember(decl.ID, m)
		p.methods = append(p.methods, m)
	}
}

func (rs *resolver) field(fe FieldEntry, env *types.NominalDecl, span source.Span, loc *locator) (*types.Field, bool) {
	t, ok := rs.typeOf(fe.Type, env, loc.find(fe.Type))
	if !ok {
		return nil, false
	}
	return &types.Field{
		Name:     fe.Name,
		Type:     t,
		Stored:   !fe.Computed,
		Exposed:  fe.Exposed,
		Readonly: fe.Readonly,
		Span:     span,
	}, true
}

func (rs *resolver) method(me *MethodEntry, env *types.NominalDecl, span source.Span, loc *locator) (*types.Method, bool) {
	m := &types.Method{
		Name:     me.Name,
		Selector: me.Selector,
		Static:   me.Static,
		Final:    me.Final,
		Exposed:  me.Exposed,
		Optional: me.Optional,
		Span:     span,
	}
	levels := me.Params
	if len(levels) == 0 {
		levels = [][]string{nil}
	}
	for _, level := range levels {
		var params []types.TypeID
		for _, text := range level {
			t, ok := rs.typeOf(text, env, loc.find(text))
			if !ok {
				return nil, false
			}
			params = append(params, t)
		}
		m.Sig.Params = append(m.Sig.Params, params)
	}
	m.Sig.Result = rs.in.Builtins().Unit
	if me.Result != "" {
		t, ok := rs.typeOf(me.Result, env, loc.find(me.Result))
		if !ok {
			return nil, false
		}
		m.Sig.Result = t
	}
	return m, true
}

// overrides links methods to the superclass methods they replace. A
// qualified target "Base.name" must name a strict ancestor; a bare name
// picks the nearest ancestor declaring it.
func (rs *resolver) overrides(p *pendingDecl) {
	for i, me := range p.entry.Methods {
		m := p.methods[i]
		if m == nil || me.Overrides == "" {
			continue
		}
		span := p.loc.find(me.Overrides)
		if !p.decl.IsClass() {
			rs.errorf(diag.PrjMemberNotAllowed, span, "%s %s cannot override methods", p.decl.Kind, p.decl.Name)
			continue
		}
		owner, name := "", me.Overrides
		if dot := strings.LastIndexByte(me.Overrides, '.'); dot >= 0 {
			owner, name = me.Overrides[:dot], me.Overrides[dot+1:]
		}
		base, ok := rs.findOverridden(p.decl, owner, name)
		if !ok {
			rs.errorf(diag.PrjUnknownOverride, span, "%s.%s overrides %s, which no superclass of %s declares",
				p.decl.Name, m.Name, me.Overrides, p.decl.Name)
			continue
		}
		m.Overrides = base.ID
	}
}

func (rs *resolver) findOverridden(decl *types.NominalDecl, owner, name string) (*types.Method, bool) {
	seen := map[types.TypeID]bool{decl.ID: true}
	for cur := decl.Superclass; cur != types.NoTypeID; {
		sd, _, ok := rs.in.NominalOf(cur)
		if !ok || seen[sd.ID] {
			return nil, false
		}
		seen[sd.ID] = true
		if owner == "" || sd.Name == owner {
			if m, found := sd.MethodByName(name); found && !m.Static {
				return m, true
			}
			if owner != "" {
				return nil, false
			}
		}
		cur = sd.Superclass
	}
	return nil, false
}

// category resolves a category entry of the root manifest.
func (rs *resolver) category(ce *CategoryEntry, unit string, loc *locator) (*types.CategoryDecl, bool) {
	span := loc.find(ce.Class)
	decl, ok := rs.declared[ce.Class]
	if !ok {
		rs.errorf(diag.PrjUnknownType, span, "category extends unknown class %s", ce.Class)
		return nil, false
	}
	if !decl.IsClass() {
		rs.errorf(diag.PrjMemberNotAllowed, span, "category extends %s %s; only classes can be extended", decl.Kind, decl.Name)
		return nil, false
	}
	cat := &types.CategoryDecl{Class: decl.ID, Unit: ce.Unit, Protocols: ce.Protocols, Span: span}
	if cat.Unit == "" {
		cat.Unit = unit
	}
	rs.checkProtocols(ce.Protocols, loc)
	for _, fe := range ce.Fields {
		if f, ok := rs.field(fe, decl, loc.find(fe.Name), loc); ok {
			cat.Members = append(cat.Members, f)
		}
	}
	for i := range ce.Methods {
		me := &ce.Methods[i]
		m, ok := rs.method(me, decl, loc.find(me.Name), loc)
		if !ok {
			continue
		}
		m.Owner = decl.ID
		rs.in.RegisterMethod(m)
		cat.Members = append(cat.Members, m)
	}
	return cat, true
}

func (rs *resolver) protocol(pe *ProtocolEntry, module string, loc *locator) *types.ProtocolDecl {
	p := &types.ProtocolDecl{Name: pe.Name, Module: module, Inherits: pe.Inherits, Span: loc.find(pe.Name)}
	rs.checkProtocols(pe.Inherits, loc)
	for _, fe := range pe.Fields {
		fe.Computed = true
		if f, ok := rs.field(fe, nil, loc.find(fe.Name), loc); ok {
			p.Members = append(p.Members, f)
		}
	}
	for i := range pe.Methods {
		me := &pe.Methods[i]
		m, ok := rs.method(me, nil, loc.find(me.Name), loc)
		if !ok {
			continue
		}
		rs.in.RegisterMethod(m)
		p.Members = append(p.Members, m)
	}
	return p
}

// typeOf parses and resolves a type expression inside env's generic
// environment. Failures are reported at span.
func (rs *resolver) typeOf(text string, env *types.NominalDecl, span source.Span) (types.TypeID, bool) {
	if strings.TrimSpace(text) == "" {
		rs.errorf(diag.PrjBadTypeExpr, span, "missing type")
		return types.NoTypeID, false
	}
	expr, err := ParseTypeExpr(text)
	if err != nil {
		rs.errorf(diag.PrjBadTypeExpr, span, "%v", err)
		return types.NoTypeID, false
	}
	return rs.resolveExpr(expr, env, span)
}

func (rs *resolver) resolveList(list []*TypeExpr, env *types.NominalDecl, span source.Span) ([]types.TypeID, bool) {
	out := make([]types.TypeID, 0, len(list))
	for _, e := range list {
		t, ok := rs.resolveExpr(e, env, span)
		if !ok {
			return nil, false
		}
		out = append(out, t)
	}
	return out, true
}

func (rs *resolver) resolveExpr(e *TypeExpr, env *types.NominalDecl, span source.Span) (types.TypeID, bool) {
	switch e.Kind {
	case ExprTuple:
		elems, ok := rs.resolveList(e.Args, env, span)
		if !ok {
			return types.NoTypeID, false
		}
		return rs.in.InternTuple(elems), true

	case ExprArray:
		elem, ok := rs.resolveExpr(e.Args[0], env, span)
		if !ok {
			return types.NoTypeID, false
		}
		count, err := safecast.Conv[uint32](e.Count)
		if err != nil {
			rs.errorf(diag.PrjBadTypeExpr, span, "array length %d is too large", e.Count)
			return types.NoTypeID, false
		}
		return rs.in.InternArray(elem, count), true

	case ExprFn:
		params, ok := rs.resolveList(e.Args, env, span)
		if !ok {
			return types.NoTypeID, false
		}
		result, ok := rs.resolveExpr(e.Result, env, span)
		if !ok {
			return types.NoTypeID, false
		}
		return rs.in.InternFn(params, result), true
	}

	if env != nil && len(e.Args) == 0 {
		for _, g := range env.Generics {
			if g.Name == e.Name {
				return g.Type, true
			}
		}
	}
	if t, ok := rs.in.BuiltinByName(e.Name); ok {
		if len(e.Args) > 0 {
			rs.errorf(diag.PrjGenericArity, span, "%s takes no generic arguments", e.Name)
			return types.NoTypeID, false
		}
		return t, true
	}
	decl, ok := rs.declared[e.Name]
	if !ok {
		rs.errorf(diag.PrjUnknownType, span, "unknown type %s", e.Name)
		return types.NoTypeID, false
	}
	if len(e.Args) != len(decl.Generics) {
		rs.errorf(diag.PrjGenericArity, span, "%s expects %d generic arguments, got %d", e.Name, len(decl.Generics), len(e.Args))
		return types.NoTypeID, false
	}
	if len(e.Args) == 0 {
		return decl.ID, true
	}
	args, ok := rs.resolveList(e.Args, env, span)
	if !ok {
		return types.NoTypeID, false
	}
	return rs.in.InternBound(decl.ID, args), true
}
