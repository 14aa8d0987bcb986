package ingestdomain

import "sync"

// SegmentCache holds segment names looked up during one ingestion run.
// Misses are remembered so an unknown segment is only requested once.
type SegmentCache struct {
	mu      sync.Mutex
	names   map[int64]string
	missing map[int64]struct{}
}

// NewSegmentCache returns an empty cache.
func NewSegmentCache() *SegmentCache {
	return &SegmentCache{
		names:   make(map[int64]string),
		missing: make(map[int64]struct{}),
	}
}

// Lookup returns the cached name and whether the segment has been seen at all
// (either resolved or recorded as missing).
func (c *SegmentCache) Lookup(id int64) (name string, seen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.names[id]; ok {
		return name, true
	}
	_, miss := c.missing[id]
	return "", miss
}

// Store records a resolved name.
func (c *SegmentCache) Store(id int64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[id] = name
	delete(c.missing, id)
}

// MarkMissing records that a name could not be resolved.
func (c *SegmentCache) MarkMissing(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.names[id]; !ok {
		c.missing[id] = struct{}{}
	}
}

// Len returns the number of resolved names.
func (c *SegmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.names)
}
