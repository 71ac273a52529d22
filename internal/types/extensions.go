package types

import "meridian/internal/source"

// CategoryDecl adds methods and computed properties to an existing class
// from some defining unit.
type CategoryDecl struct {
	Class     TypeID
	Unit      string
	Members   []Member
	Protocols []string
	Span      source.Span
}

// ProtocolDecl is a protocol visible to the foreign runtime.
type ProtocolDecl struct {
	Name     string
	Module   string
	Inherits []string
	Members  []Member
	Span     source.Span
}
