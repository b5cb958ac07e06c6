package cache

// NextLevel is the level below a cache in the hierarchy.
type NextLevel interface {
	// Fill services a line fill and returns its latency in cycles.
	Fill(blockAddr uint64, size int) uint64
	// Writeback accepts a dirty line evicted from the level above.
	Writeback(blockAddr uint64, size int)
}

// Fill lets a Cache serve as the next level of another cache.
func (c *Cache) Fill(blockAddr uint64, size int) uint64 {
	return c.Read(blockAddr, size).Latency
}

// Writeback lets a Cache absorb evictions from the level above.
func (c *Cache) Writeback(blockAddr uint64, size int) {
	c.Write(blockAddr, size)
}
