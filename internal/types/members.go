package types

import "meridian/internal/source"

// MethodID identifies a registered method.
type MethodID uint32

// NoMethodID marks the absence of a method.
const NoMethodID MethodID = 0

// Member is one entry of a declaration body: *Field, *Method or *Case.
type Member interface {
	MemberName() string
	MemberSpan() source.Span
	member()
}

// Field is a stored or computed property.
type Field struct {
	Name string
	Type TypeID
	// Stored is false for computed properties, which take no storage.
	Stored   bool
	Exposed  bool
	Readonly bool
	Span     source.Span
}

// Signature is a curried parameter list after the implicit self level.
type Signature struct {
	Params [][]TypeID
	Result TypeID
}

// Method is an instance or static method.
type Method struct {
	ID       MethodID
	Owner    TypeID
	Name     string
	Selector string
	Sig      Signature
	Static   bool
	Final    bool
	// Overrides is the method this one replaces in a superclass.
	Overrides MethodID
	Exposed   bool
	Optional  bool
	Span      source.Span
}

// Case is an enum case with an optional payload (NoTypeID when empty).
type Case struct {
	Name    string
	Payload TypeID
	Span    source.Span
}

func (f *Field) MemberName() string      { return f.Name }
func (f *Field) MemberSpan() source.Span { return f.Span }
func (*Field) member()                   {}

func (m *Method) MemberName() string      { return m.Name }
func (m *Method) MemberSpan() source.Span { return m.Span }
func (*Method) member()                   {}

func (c *Case) MemberName() string      { return c.Name }
func (c *Case) MemberSpan() source.Span { return c.Span }
func (*Case) member()                   {}

// AddMember appends m to the declaration owning it. Methods receive a
// MethodID and their Owner.
func (in *Interner) AddMember(owner TypeID, m Member) {
	decl, ok := in.Nominal(owner)
	if !ok {
		panic("types: AddMember on a non-nominal type")
	}
	if fn, isMethod := m.(*Method); isMethod {
		fn.Owner = owner
		in.RegisterMethod(fn)
	}
	decl.Members = append(decl.Members, m)
}

// RegisterMethod assigns a MethodID to m. Category and protocol methods
// are registered without joining a nominal member list.
func (in *Interner) RegisterMethod(m *Method) MethodID {
	in.methods = append(in.methods, m)
	m.ID = MethodID(slotOf(len(in.methods)-1, "method"))
	return m.ID
}

// Method returns the method registered under id.
func (in *Interner) Method(id MethodID) (*Method, bool) {
	if id == NoMethodID || int(id) >= len(in.methods) {
		return nil, false
	}
	return in.methods[id], true
}
