package layout

import (
	"meridian/internal/diag"
	"meridian/internal/types"
)

type cacheEntry struct {
	Layout TypeLayout
	Err    *LayoutError
}

type cache struct {
	byType    map[types.TypeID]*cacheEntry
	hierarchy map[types.TypeID][]Node
}

func newCache() *cache {
	return &cache{
		byType:    make(map[types.TypeID]*cacheEntry, 256),
		hierarchy: make(map[types.TypeID][]Node, 32),
	}
}

func (c *cache) get(id types.TypeID) (*cacheEntry, bool) {
	if c == nil {
		return nil, false
	}
	entry, ok := c.byType[id]
	return entry, ok
}

// put stores the one and only result for id.
func (c *cache) put(id types.TypeID, entry *cacheEntry) {
	if _, dup := c.byType[id]; dup {
		diag.ICE("layout of type#%d computed twice", id)
	}
	c.byType[id] = entry
}
