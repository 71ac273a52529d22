package foreign

import (
	"meridian/internal/mangle"
	"meridian/internal/objdata"
)

// encoder lays descriptors out in the foreign runtime's binary format.
// Every pointer field is relocated; empty lists are null pointers.
type encoder struct {
	b   *Builder
	ptr int
}

func (e *encoder) writer(symbol string) *objdata.Writer {
	return objdata.NewWriter(symbol, objdata.SectionForeign, e.ptr)
}

func (e *encoder) add(w *objdata.Writer) string {
	blob := w.Finish()
	e.b.Module.Add(blob)
	return blob.Symbol
}

func (e *encoder) listHeader(w *objdata.Writer, elemSize, count int) {
	w.I32(int32(elemSize)).I32(int32(count))
}

// methodList encodes {int32 elemSize, int32 count, {name, types, imp}...}.
func (e *encoder) methodList(kind, owner string, list []Method) string {
	if len(list) == 0 {
		return ""
	}
	w := e.writer(mangle.ForeignList(kind, owner))
	e.listHeader(w, 3*e.ptr, len(list))
	for _, m := range list {
		w.Ptr(e.b.pool.intern(poolMethodName, m.Selector), 0)
		w.Ptr(e.b.pool.intern(poolMethodType, m.Types), 0)
		w.Ptr(m.Impl, 0)
	}
	return e.add(w)
}

// ivarList encodes {int32 elemSize, int32 count, {offset, name, type,
// int32 size, int32 align}...}. The type encoding is always null.
func (e *encoder) ivarList(owner string, list []Ivar) string {
	if len(list) == 0 {
		return ""
	}
	w := e.writer(mangle.ForeignList("IVARS", owner))
	e.listHeader(w, 3*e.ptr+8, len(list))
	for _, iv := range list {
		w.Ptr(iv.OffsetSymbol, 0)
		w.Ptr(e.b.pool.intern(poolMethodName, iv.Name), 0)
		w.Null()
		w.I32(iv.Size).I32(iv.Align)
	}
	return e.add(w)
}

func (e *encoder) propertyList(kind, owner string, list []Property) string {
	if len(list) == 0 {
		return ""
	}
	w := e.writer(mangle.ForeignList(kind, owner))
	e.listHeader(w, 2*e.ptr, len(list))
	for _, p := range list {
		w.Ptr(e.b.pool.intern(poolPropName, p.Name), 0)
		w.Ptr(e.b.pool.intern(poolPropAttr, p.Attributes), 0)
	}
	return e.add(w)
}

// protocolList encodes {intptr count, protocol pointers...}.
func (e *encoder) protocolList(owner string, names []string) string {
	if len(names) == 0 {
		return ""
	}
	w := e.writer(mangle.ForeignList("PROTOCOLS", owner))
	w.Word(uint64(len(names)))
	for _, n := range names {
		w.Ptr(mangle.ForeignProtocol(n), 0)
	}
	return e.add(w)
}

// classObjectWords is the size of a class object: isa, superclass,
// cache, vtable, data.
const classObjectWords = 5

func (e *encoder) classRO(symbol string, flags, start, size uint32, name, methods, protocols, ivars, properties string) string {
	w := e.writer(symbol)
	w.U32(flags).U32(start).U32(size)
	if e.ptr == 8 {
		w.U32(0)
	}
	w.Null()
	w.Ptr(name, 0)
	w.Ptr(methods, 0)
	w.Ptr(protocols, 0)
	w.Ptr(ivars, 0)
	w.Null()
	w.Ptr(properties, 0)
	return e.add(w)
}

// class encodes the read-only data of a native class and its metaclass.
// The class object itself is the metadata record; its data word points at
// the returned read-only data.
func (e *encoder) class(d *Descriptor) string {
	name := e.b.pool.intern(poolClassName, d.Name)
	protocols := e.protocolList(d.Name, d.Protocols)

	ro := e.classRO(mangle.ForeignClassRO(d.Name, false), d.Flags, d.InstanceStart, d.InstanceSize,
		name,
		e.methodList("INSTANCE_METHODS", d.Name, d.Instance),
		protocols,
		e.ivarList(d.Name, d.Ivars),
		e.propertyList("PROPERTIES", d.Name, d.Properties))

	metaSize := uint32(classObjectWords * e.ptr)
	metaRO := e.classRO(mangle.ForeignClassRO(d.Name, true), d.Flags|FlagMeta, metaSize, metaSize,
		name,
		e.methodList("CLASS_METHODS", d.Name, d.Static),
		protocols, "", "")

	meta := e.writer(mangle.ForeignMetaclass(d.Name))
	meta.Ptr(d.RootMetaclass, 0)
	if d.SuperPending {
		meta.Null()
	} else {
		meta.Ptr(d.SuperMetaclass, 0)
	}
	meta.Ptr(mangle.EmptyCache, 0)
	meta.Null()
	meta.Ptr(metaRO, 0)
	e.add(meta)
	return ro
}

// category encodes {name, class, instance methods, class methods,
// protocols, properties}.
func (e *encoder) category(d *Descriptor) string {
	owner := d.Class.Name + "_$_" + d.Name
	instance := e.methodList("CATEGORY_INSTANCE_METHODS", owner, d.Instance)
	static := e.methodList("CATEGORY_CLASS_METHODS", owner, d.Static)
	protocols := e.protocolList(owner, d.Protocols)
	properties := e.propertyList("CATEGORY_PROPERTIES", owner, d.Properties)

	w := e.writer(mangle.ForeignCategory(d.Class.Name, d.Name))
	w.Ptr(e.b.pool.intern(poolClassName, d.Name), 0)
	w.Ptr(d.ClassRef, d.ClassRefAddend)
	w.Ptr(instance, 0)
	w.Ptr(static, 0)
	w.Ptr(protocols, 0)
	w.Ptr(properties, 0)
	return e.add(w)
}

// protocolWords is the number of pointer fields before the two u32
// trailer fields of a protocol record.
const protocolWords = 8

// protocol encodes {isa, name, protocols, instance methods, class
// methods, optional instance methods, optional class methods, properties,
// u32 size, u32 flags}.
func (e *encoder) protocol(d *Descriptor) string {
	owner := "P_" + d.Name
	protocols := e.protocolList(owner, d.Protocols)
	inst := e.methodList("PROTOCOL_INSTANCE_METHODS", owner, d.Instance)
	static := e.methodList("PROTOCOL_CLASS_METHODS", owner, d.Static)
	optInst := e.methodList("PROTOCOL_OPT_INSTANCE_METHODS", owner, d.OptInst)
	optStatic := e.methodList("PROTOCOL_OPT_CLASS_METHODS", owner, d.OptStatic)
	properties := e.propertyList("PROTOCOL_PROPERTIES", owner, d.Properties)

	w := e.writer(mangle.ForeignProtocol(d.Name))
	w.Null()
	w.Ptr(e.b.pool.intern(poolClassName, d.Name), 0)
	w.Ptr(protocols, 0)
	w.Ptr(inst, 0)
	w.Ptr(static, 0)
	w.Ptr(optInst, 0)
	w.Ptr(optStatic, 0)
	w.Ptr(properties, 0)
	w.U32(uint32(protocolWords*e.ptr + 8)).U32(0)
	return e.add(w)
}
