package mangle

import "fmt"

// Names of foreign runtime descriptors. The foreign runtime locates
// classes and categories by these prefixes.
const (
	foreignClass     = "_FRN_CLASS_$_"
	foreignMetaclass = "_FRN_METACLASS_$_"
	foreignIvar      = "_FRN_IVAR_$_"
	foreignProtocol  = "_FRN_PROTOCOL_$_"
	foreignCategory  = "_FRN_$_CATEGORY_"

	// RootMetaclass ends every native metaclass chain without a
	// foreign-origin ancestor.
	RootMetaclass = "_FRN_METACLASS_$_MeridianObject"
	// RootClass is the foreign root every native root class reports as its
	// superclass.
	RootClass = "_FRN_CLASS_$_MeridianObject"
	// EmptyCache is the shared empty method cache.
	EmptyCache = "_frn_empty_cache"
)

func ForeignClass(name string) string     { return foreignClass + name }
func ForeignMetaclass(name string) string { return foreignMetaclass + name }
func ForeignProtocol(name string) string  { return foreignProtocol + name }

// ForeignClassRO is the read-only data of a class or, with meta, of its
// metaclass.
func ForeignClassRO(name string, meta bool) string {
	if meta {
		return "_FRN_METACLASS_RO_$_" + name
	}
	return "_FRN_CLASS_RO_$_" + name
}

func ForeignIvar(class, field string) string {
	return foreignIvar + class + "." + field
}

func ForeignCategory(class, category string) string {
	return foreignCategory + class + "_$_" + category
}

// ForeignList names a method, ivar, property or protocol list owned by
// the descriptor named owner.
func ForeignList(kind, owner string) string {
	return "_FRN_$_" + kind + "_" + owner
}

// PoolString names the n-th pooled string of a kind.
func PoolString(kind string, n int) string {
	return fmt.Sprintf("l_FRN_%s_%d", kind, n)
}
