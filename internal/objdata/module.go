package objdata

import (
	"maps"
	"slices"

	"meridian/internal/diag"
)

// Module is the set of blobs one unit emits.
type Module struct {
	blobs []*Blob
	index map[string]int
}

func NewModule() *Module {
	return &Module{index: make(map[string]int)}
}

// Add registers b. Defining the same symbol twice is a consistency failure.
func (m *Module) Add(b *Blob) *Blob {
	if _, dup := m.index[b.Symbol]; dup {
		diag.ICE("symbol %s defined twice", b.Symbol)
	}
	m.index[b.Symbol] = len(m.blobs)
	m.blobs = append(m.blobs, b)
	return b
}

// Intern adds b unless a blob with the same symbol exists, returning the
// stored blob.
func (m *Module) Intern(b *Blob) *Blob {
	if i, ok := m.index[b.Symbol]; ok {
		return m.blobs[i]
	}
	return m.Add(b)
}

func (m *Module) Lookup(symbol string) (*Blob, bool) {
	i, ok := m.index[symbol]
	if !ok {
		return nil, false
	}
	return m.blobs[i], true
}

// Blobs returns every blob in definition order.
func (m *Module) Blobs() []*Blob {
	return m.blobs
}

// Undefined lists relocation targets no blob of the module defines,
// sorted by name.
func (m *Module) Undefined() []string {
	missing := make(map[string]struct{})
	for _, b := range m.blobs {
		for _, r := range b.Relocs {
			if _, ok := m.index[r.Symbol]; !ok {
				missing[r.Symbol] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(missing))
}
