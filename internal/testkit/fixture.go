package testkit

import (
	"meridian/internal/types"
)

// Fixture builds declarations directly in an interner, standing in for the
// manifest loader in unit tests.
type Fixture struct {
	Types  *types.Interner
	Module string
}

func New() *Fixture {
	return &Fixture{Types: types.NewInterner(), Module: "Main"}
}

func (f *Fixture) B() types.Builtins {
	return f.Types.Builtins()
}

// Declare registers an empty declaration with the given generic parameter
// names. Requirements can be attached afterwards through Require.
func (f *Fixture) Declare(kind types.DeclKind, name string, generics ...string) *types.NominalDecl {
	decl := &types.NominalDecl{Name: name, Kind: kind, Module: f.Module}
	for _, g := range generics {
		decl.Generics = append(decl.Generics, types.GenericParam{Name: g})
	}
	f.Types.RegisterNominal(decl)
	return decl
}

func (f *Fixture) Class(name string, super types.TypeID, generics ...string) *types.NominalDecl {
	decl := f.Declare(types.DeclClass, name, generics...)
	decl.Superclass = super
	return decl
}

func (f *Fixture) Struct(name string, generics ...string) *types.NominalDecl {
	return f.Declare(types.DeclStruct, name, generics...)
}

func (f *Fixture) Enum(name string, generics ...string) *types.NominalDecl {
	return f.Declare(types.DeclEnum, name, generics...)
}

// Param is the TypeID of decl's i-th generic parameter.
func (f *Fixture) Param(decl *types.NominalDecl, i int) types.TypeID {
	return decl.Generics[i].Type
}

// Require adds protocol requirements to decl's i-th generic parameter.
func (f *Fixture) Require(decl *types.NominalDecl, i int, protocols ...string) {
	decl.Generics[i].Requirements = append(decl.Generics[i].Requirements, protocols...)
}

// Bind applies decl to args.
func (f *Fixture) Bind(decl *types.NominalDecl, args ...types.TypeID) types.TypeID {
	return f.Types.InternBound(decl.ID, args)
}

func (f *Fixture) Field(owner *types.NominalDecl, name string, t types.TypeID) *types.Field {
	field := &types.Field{Name: name, Type: t, Stored: true}
	f.Types.AddMember(owner.ID, field)
	return field
}

func (f *Fixture) Computed(owner *types.NominalDecl, name string, t types.TypeID) *types.Field {
	field := &types.Field{Name: name, Type: t}
	f.Types.AddMember(owner.ID, field)
	return field
}

// Method adds a single-level method with the given parameter types.
func (f *Fixture) Method(owner *types.NominalDecl, name string, params []types.TypeID, result types.TypeID) *types.Method {
	m := &types.Method{Name: name, Sig: types.Signature{Params: [][]types.TypeID{params}, Result: result}}
	if result == types.NoTypeID {
		m.Sig.Result = f.B().Unit
	}
	f.Types.AddMember(owner.ID, m)
	return m
}

// Override adds a method overriding base.
func (f *Fixture) Override(owner *types.NominalDecl, base *types.Method, params []types.TypeID, result types.TypeID) *types.Method {
	m := f.Method(owner, base.Name, params, result)
	m.Overrides = base.ID
	return m
}

func (f *Fixture) Case(owner *types.NominalDecl, name string, payload types.TypeID) *types.Case {
	c := &types.Case{Name: name, Payload: payload}
	f.Types.AddMember(owner.ID, c)
	return c
}
