package types

import (
	"meridian/internal/source"
)

// DeclKind distinguishes the nominal declaration forms.
type DeclKind uint8

const (
	DeclStruct DeclKind = iota + 1
	DeclEnum
	DeclClass
)

func (k DeclKind) String() string {
	switch k {
	case DeclStruct:
		return "struct"
	case DeclEnum:
		return "enum"
	case DeclClass:
		return "class"
	}
	return "invalid"
}

// GenericParam is one generic parameter of a declaration. Each protocol in
// Requirements becomes one witness-table argument.
type GenericParam struct {
	Name         string
	Type         TypeID
	Requirements []string
}

// NominalDecl is a declared struct, enum or class as semantic analysis
// hands it to layout.
type NominalDecl struct {
	ID     TypeID
	Name   string
	Module string
	Kind   DeclKind
	Span   source.Span

	Members  []Member
	Generics []GenericParam

	// Superclass is a class or a bound generic class; NoTypeID for roots.
	Superclass TypeID
	Resilient  bool
	// Foreign marks classes whose storage and dispatch belong to the
	// foreign runtime.
	Foreign   bool
	Protocols []string
}

func (d *NominalDecl) IsGeneric() bool {
	return d != nil && len(d.Generics) > 0
}

func (d *NominalDecl) IsClass() bool {
	return d != nil && d.Kind == DeclClass
}

// NumWitnessTables is the total count of protocol requirements across all
// generic parameters.
func (d *NominalDecl) NumWitnessTables() int {
	n := 0
	for _, g := range d.Generics {
		n += len(g.Requirements)
	}
	return n
}

// GenericArgCount is the number of metadata cells the declaration's generic
// signature occupies: parameters first, then witness tables.
func (d *NominalDecl) GenericArgCount() int {
	return len(d.Generics) + d.NumWitnessTables()
}

// StoredFields returns the fields that occupy storage, in declaration order.
func (d *NominalDecl) StoredFields() []*Field {
	var out []*Field
	for _, m := range d.Members {
		if f, ok := m.(*Field); ok && f.Stored {
			out = append(out, f)
		}
	}
	return out
}

func (d *NominalDecl) Fields() []*Field {
	var out []*Field
	for _, m := range d.Members {
		if f, ok := m.(*Field); ok {
			out = append(out, f)
		}
	}
	return out
}

func (d *NominalDecl) Methods() []*Method {
	var out []*Method
	for _, m := range d.Members {
		if fn, ok := m.(*Method); ok {
			out = append(out, fn)
		}
	}
	return out
}

func (d *NominalDecl) Cases() []*Case {
	var out []*Case
	for _, m := range d.Members {
		if c, ok := m.(*Case); ok {
			out = append(out, c)
		}
	}
	return out
}

// StoredFieldIndex returns the position of the named stored field.
func (d *NominalDecl) StoredFieldIndex(name string) (int, bool) {
	for i, f := range d.StoredFields() {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}

// MethodByName finds a method declared directly on d.
func (d *NominalDecl) MethodByName(name string) (*Method, bool) {
	for _, m := range d.Methods() {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// RegisterNominal assigns the declaration a TypeID and allocates its
// generic parameter types.
func (in *Interner) RegisterNominal(decl *NominalDecl) TypeID {
	kind := KindStruct
	switch decl.Kind {
	case DeclEnum:
		kind = KindEnum
	case DeclClass:
		kind = KindClass
	}
	in.nominals = append(in.nominals, decl)
	id := in.internRaw(Type{Kind: kind, Payload: slotOf(len(in.nominals)-1, "nominal")})
	decl.ID = id
	for i := range decl.Generics {
		decl.Generics[i].Type = in.RegisterGenericParam(id, i, decl.Generics[i].Name)
	}
	if _, taken := in.byName[decl.Name]; !taken {
		in.byName[decl.Name] = id
	}
	return id
}

// Nominal returns the declaration behind a struct, enum or class TypeID.
func (in *Interner) Nominal(id TypeID) (*NominalDecl, bool) {
	tt, ok := in.Lookup(id)
	if !ok || !tt.Kind.IsNominal() || tt.Payload == 0 || int(tt.Payload) >= len(in.nominals) {
		return nil, false
	}
	return in.nominals[tt.Payload], true
}

// NominalOf resolves both plain nominal types and bound generics to their
// declaration. For bound generics args holds the applied arguments.
func (in *Interner) NominalOf(id TypeID) (decl *NominalDecl, args []TypeID, ok bool) {
	if b, isBound := in.Bound(id); isBound {
		decl, ok = in.Nominal(b.Base)
		return decl, b.Args, ok
	}
	decl, ok = in.Nominal(id)
	return decl, nil, ok
}

// LookupNominal finds a declaration by name.
func (in *Interner) LookupNominal(name string) (TypeID, bool) {
	id, ok := in.byName[name]
	return id, ok
}

// Nominals returns every registered declaration in registration order.
func (in *Interner) Nominals() []*NominalDecl {
	return in.nominals[1:]
}
