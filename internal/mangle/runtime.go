package mangle

// Entry points of the native runtime that finish metadata instantiation.
const (
	RuntimeInitStructFieldOffsets = "meridian_initStructFieldOffsets"
	RuntimeInitEnumPayloadSize    = "meridian_initEnumPayloadSize"
	RuntimeInitClassMetadata      = "meridian_initClassMetadata"
	RuntimeRegisterForeignClass   = "meridian_registerForeignClass"
	RuntimeAllocateMetadata       = "meridian_allocateGenericMetadata"
)
