package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Manifest loading
	PrjInfo             Code = 1000
	PrjBadManifest      Code = 1001
	PrjUnknownType      Code = 1002
	PrjDuplicateType    Code = 1003
	PrjDuplicateMember  Code = 1004
	PrjBadTypeExpr      Code = 1005
	PrjUnknownOverride  Code = 1006
	PrjBadSuperclass    Code = 1007
	PrjBadKind          Code = 1008
	PrjGenericArity     Code = 1009
	PrjUnknownProtocol  Code = 1010
	PrjImportFailed     Code = 1011
	PrjCategoryStorage  Code = 1012
	PrjMemberNotAllowed Code = 1013
	PrjUnknownTarget    Code = 1014
	PrjImportCycle      Code = 1015
	PrjUnknownKey       Code = 1016

	// Layout
	LayInfo                  Code = 2000
	LayRecursiveType         Code = 2001
	LayCircularInheritance   Code = 2002
	LayMissingGenericArgs    Code = 2003
	LayDynamicUnsupported    Code = 2004
	LayArraySizeOverflow     Code = 2005
	LaySuperclassUnsupported Code = 2006

	// Dispatch tables
	VtbInfo             Code = 3000
	VtbOverrideMismatch Code = 3001

	// Foreign runtime descriptors
	FrnInfo           Code = 4000
	FrnIvarSizeLimit  Code = 4001
	FrnIvarNotFixed   Code = 4002
	FrnInstanceTooBig Code = 4003

	// Emission
	EmtInfo          Code = 5000
	EmtRecordFailed  Code = 5001
	EmtArtifactWrite Code = 5002
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	PrjInfo:             "Manifest information",
	PrjBadManifest:      "Malformed manifest",
	PrjUnknownType:      "Unknown type name",
	PrjDuplicateType:    "Duplicate type declaration",
	PrjDuplicateMember:  "Duplicate member",
	PrjBadTypeExpr:      "Malformed type expression",
	PrjUnknownOverride:  "Override target not found",
	PrjBadSuperclass:    "Superclass is not a class",
	PrjBadKind:          "Unknown declaration kind",
	PrjGenericArity:     "Wrong number of generic arguments",
	PrjUnknownProtocol:  "Unknown protocol",
	PrjImportFailed:     "Imported manifest could not be loaded",
	PrjCategoryStorage:  "Category cannot add stored properties",
	PrjMemberNotAllowed: "Member not allowed for this declaration kind",
	PrjUnknownTarget:    "Unknown target",
	PrjImportCycle:      "Manifest import cycle",
	PrjUnknownKey:       "Unknown manifest key",

	LayInfo:                  "Layout information",
	LayRecursiveType:         "Recursive value type has infinite size",
	LayCircularInheritance:   "Circular class inheritance",
	LayMissingGenericArgs:    "Generic type used without arguments",
	LayDynamicUnsupported:    "Dynamic layout is not supported here",
	LayArraySizeOverflow:     "Array size overflows the address space",
	LaySuperclassUnsupported: "Generic superclass arguments are too complex",

	VtbInfo:             "Dispatch table information",
	VtbOverrideMismatch: "Override needs its own dispatch slot",

	FrnInfo:           "Foreign runtime information",
	FrnIvarSizeLimit:  "Instance variable too large for the foreign runtime",
	FrnIvarNotFixed:   "Instance variable has no fixed layout",
	FrnInstanceTooBig: "Instance size too large for the foreign runtime",

	EmtInfo:          "Emission information",
	EmtRecordFailed:  "Metadata record could not be emitted",
	EmtArtifactWrite: "Artifact could not be written",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("LAY%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("VTB%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("FRN%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("EMT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
