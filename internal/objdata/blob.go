// Package objdata holds emitted data as little-endian byte blobs with
// symbolic relocations.
package objdata

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// Section groups blobs the way the object file lays them out.
type Section string

const (
	SectionData     Section = "data"
	SectionConst    Section = "const"
	SectionCString  Section = "cstring"
	SectionMetadata Section = "metadata"
	SectionForeign  Section = "foreign"
)

// Reloc asks the linker to store the address of Symbol plus Addend into
// the pointer-sized slot at Offset.
type Reloc struct {
	Offset int    `msgpack:"off"`
	Symbol string `msgpack:"sym"`
	Addend int64  `msgpack:"add,omitempty"`
}

// Blob is one emitted global.
type Blob struct {
	Symbol  string  `msgpack:"sym"`
	Section Section `msgpack:"sec"`
	Align   int     `msgpack:"align"`
	// Local blobs are not visible outside their unit.
	Local    bool    `msgpack:"local,omitempty"`
	Constant bool    `msgpack:"const,omitempty"`
	Bytes    []byte  `msgpack:"bytes"`
	Relocs   []Reloc `msgpack:"relocs,omitempty"`
	// PtrSize is the width of every relocated slot.
	PtrSize int `msgpack:"ptr"`
}

// Len is the blob size in bytes.
func (b *Blob) Len() int {
	return len(b.Bytes)
}

// RelocAt returns the relocation stored at off.
func (b *Blob) RelocAt(off int) (Reloc, bool) {
	i, found := slices.BinarySearchFunc(b.Relocs, off, func(r Reloc, off int) int {
		return r.Offset - off
	})
	if !found {
		return Reloc{}, false
	}
	return b.Relocs[i], true
}

// U32At reads a little-endian uint32.
func (b *Blob) U32At(off int) uint32 {
	return binary.LittleEndian.Uint32(b.Bytes[off:])
}

// WordAt reads a pointer-sized little-endian word.
func (b *Blob) WordAt(off int) uint64 {
	if b.PtrSize == 4 {
		return uint64(binary.LittleEndian.Uint32(b.Bytes[off:]))
	}
	return binary.LittleEndian.Uint64(b.Bytes[off:])
}

func (b *Blob) String() string {
	return fmt.Sprintf("%s (%s, %d bytes, %d relocs)", b.Symbol, b.Section, len(b.Bytes), len(b.Relocs))
}

// CString builds a NUL-terminated string blob.
func CString(symbol, s string) *Blob {
	data := make([]byte, 0, len(s)+1)
	data = append(data, s...)
	data = append(data, 0)
	return &Blob{Symbol: symbol, Section: SectionCString, Align: 1, Local: true, Constant: true, Bytes: data}
}
