// Package foreign builds the descriptors the foreign object runtime loads
// for classes, categories and protocols, and encodes them bit-exactly.
package foreign

import (
	"strconv"
	"sync"
)

type categoryKey struct {
	class string
	unit  string
}

// Context is state shared by every unit of one compilation run. It is
// safe for concurrent use.
type Context struct {
	mu         sync.Mutex
	categories map[categoryKey]int
}

func NewContext() *Context {
	return &Context{categories: make(map[categoryKey]int)}
}

// CategoryName names the next category unit defines on class: the unit
// name itself, then the unit name suffixed with 1, 2, ...
func (c *Context) CategoryName(class, unit string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := categoryKey{class: class, unit: unit}
	n := c.categories[key]
	c.categories[key] = n + 1
	if n == 0 {
		return unit
	}
	return unit + strconv.Itoa(n)
}
