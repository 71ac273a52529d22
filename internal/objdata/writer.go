package objdata

import (
	"encoding/binary"

	"meridian/internal/diag"
)

// Writer appends fields to a blob in order. Relocations are recorded in
// offset order since fields are only ever appended.
type Writer struct {
	blob *Blob
}

func NewWriter(symbol string, section Section, ptrSize int) *Writer {
	diag.Assert(ptrSize == 4 || ptrSize == 8, "unsupported pointer size %d", ptrSize)
	return &Writer{blob: &Blob{Symbol: symbol, Section: section, Align: ptrSize, PtrSize: ptrSize}}
}

func (w *Writer) Offset() int {
	return len(w.blob.Bytes)
}

func (w *Writer) PtrSize() int {
	return w.blob.PtrSize
}

func (w *Writer) U8(v uint8) *Writer {
	w.blob.Bytes = append(w.blob.Bytes, v)
	return w
}

func (w *Writer) U16(v uint16) *Writer {
	w.blob.Bytes = binary.LittleEndian.AppendUint16(w.blob.Bytes, v)
	return w
}

func (w *Writer) U32(v uint32) *Writer {
	w.blob.Bytes = binary.LittleEndian.AppendUint32(w.blob.Bytes, v)
	return w
}

func (w *Writer) I32(v int32) *Writer {
	return w.U32(uint32(v))
}

func (w *Writer) U64(v uint64) *Writer {
	w.blob.Bytes = binary.LittleEndian.AppendUint64(w.blob.Bytes, v)
	return w
}

// Word appends a pointer-sized integer.
func (w *Writer) Word(v uint64) *Writer {
	if w.blob.PtrSize == 4 {
		diag.Assert(v <= 0xFFFFFFFF, "word %#x does not fit a 32-bit target", v)
		return w.U32(uint32(v))
	}
	return w.U64(v)
}

// Ptr appends a relocated pointer slot. An empty symbol writes null.
func (w *Writer) Ptr(symbol string, addend int64) *Writer {
	if symbol != "" {
		w.blob.Relocs = append(w.blob.Relocs, Reloc{Offset: w.Offset(), Symbol: symbol, Addend: addend})
	}
	return w.Word(0)
}

func (w *Writer) Null() *Writer {
	return w.Word(0)
}

// Pad appends zero bytes until the offset is a multiple of align.
func (w *Writer) Pad(align int) *Writer {
	for align > 1 && w.Offset()%align != 0 {
		w.blob.Bytes = append(w.blob.Bytes, 0)
	}
	return w
}

// Finish returns the blob; the writer must not be used afterwards.
func (w *Writer) Finish() *Blob {
	b := w.blob
	w.blob = nil
	return b
}
