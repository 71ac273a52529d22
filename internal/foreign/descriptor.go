package foreign

import (
	"meridian/internal/types"
)

// Class flags of the foreign runtime's read-only class data.
const (
	FlagMeta          uint32 = 0x1
	FlagRoot          uint32 = 0x2
	FlagHasDestructor uint32 = 0x4
	FlagHidden        uint32 = 0x10
	FlagCompiledByRC  uint32 = 0x80
)

// Ivar is one instance variable record.
type Ivar struct {
	Name string
	// OffsetSymbol is the cell holding the ivar's offset; the foreign
	// runtime rewrites it when it slides instance storage.
	OffsetSymbol string
	Offset       int
	Size         int32
	Align        int32
}

// Method is one method list entry.
type Method struct {
	Selector string
	Types    string
	Impl     string
	Static   bool
	Optional bool
}

// Property is one property list entry.
type Property struct {
	Name       string
	Attributes string
}

// Descriptor is what the foreign runtime learns about one entity.
type Descriptor struct {
	Role Role
	// Name is the class, category or protocol name.
	Name string
	// Class is the extended class of a category.
	Class *types.NominalDecl

	Flags         uint32
	InstanceStart uint32
	InstanceSize  uint32

	// Class-only.
	Decl *types.NominalDecl
	// ClassRef addresses the class object: the native metadata record at
	// its address point.
	ClassRef       string
	ClassRefAddend int64
	SuperRef       string
	SuperAddend    int64
	SuperMetaclass string
	RootMetaclass  string
	// SuperPending is set when the superclass is a generic instantiation
	// that exists only at runtime. The metaclass's superclass word is left
	// null and the loader points it at the instantiated superclass's
	// metaclass when it realizes the class.
	SuperPending bool

	Ivars      []Ivar
	Instance   []Method
	Static     []Method
	OptInst    []Method
	OptStatic  []Method
	Properties []Property
	Protocols  []string

	// Symbol is the encoded descriptor; set by encoding.
	Symbol string
}

// members is the immutable result of folding a member list.
type members struct {
	ivars      []Ivar
	instance   []Method
	static     []Method
	optInst    []Method
	optStatic  []Method
	properties []Property
}

// withMethod returns a copy of acc with m appended to the list its kind
// selects.
func (acc members) withMethod(m Method, split bool) members {
	switch {
	case split && m.Optional && m.Static:
		acc.optStatic = append(acc.optStatic[:len(acc.optStatic):len(acc.optStatic)], m)
	case split && m.Optional:
		acc.optInst = append(acc.optInst[:len(acc.optInst):len(acc.optInst)], m)
	case m.Static:
		acc.static = append(acc.static[:len(acc.static):len(acc.static)], m)
	default:
		acc.instance = append(acc.instance[:len(acc.instance):len(acc.instance)], m)
	}
	return acc
}

func (acc members) withIvar(iv Ivar) members {
	acc.ivars = append(acc.ivars[:len(acc.ivars):len(acc.ivars)], iv)
	return acc
}

func (acc members) withProperty(p Property) members {
	acc.properties = append(acc.properties[:len(acc.properties):len(acc.properties)], p)
	return acc
}

// fold threads acc through step for every member in order.
func fold(list []types.Member, acc members, step func(members, types.Member) members) members {
	for _, m := range list {
		acc = step(acc, m)
	}
	return acc
}

func (d *Descriptor) apply(acc members) {
	d.Ivars = acc.ivars
	d.Instance = acc.instance
	d.Static = acc.static
	d.OptInst = acc.optInst
	d.OptStatic = acc.optStatic
	d.Properties = acc.properties
}
