// Package refcount provides a local, concurrent reference counter for
// object ids. It implements the store's reference-count oracle contract:
// attach a Counter to a store and object retention follows the counts kept
// here instead of the read-and-remove protocol.
package refcount

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/taskforge/ostore/lib/objstore"
)

// Counter tracks per-id reference counts.
//
// Thread-safety: all methods are safe for concurrent use; updates to one id
// are atomic read-modify-write operations on the underlying map.
type Counter struct {
	counts *xsync.MapOf[objstore.ObjectID, int64]
}

var _ objstore.IRefCounter = (*Counter)(nil)

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{
		counts: xsync.NewMapOf[objstore.ObjectID, int64](),
	}
}

// AddReference increments the count for id and returns the new count.
func (c *Counter) AddReference(id objstore.ObjectID) int64 {
	n, _ := c.counts.Compute(id, func(old int64, _ bool) (int64, bool) {
		return old + 1, false
	})
	return n
}

// RemoveReference decrements the count for id and returns the new count.
// The entry is dropped when the count reaches zero; removing a reference
// that was never added is a no-op returning zero.
func (c *Counter) RemoveReference(id objstore.ObjectID) int64 {
	n, _ := c.counts.Compute(id, func(old int64, loaded bool) (int64, bool) {
		if !loaded || old <= 1 {
			return 0, true
		}
		return old - 1, false
	})
	return n
}

// HasReference reports whether id still has a positive count.
func (c *Counter) HasReference(id objstore.ObjectID) bool {
	n, ok := c.counts.Load(id)
	return ok && n > 0
}

// Count returns the current count for id.
func (c *Counter) Count(id objstore.ObjectID) int64 {
	n, _ := c.counts.Load(id)
	return n
}

// Size returns the number of ids with a positive count.
func (c *Counter) Size() int {
	return c.counts.Size()
}
