// Package cache models set-associative caches on top of Akita's tag
// directory.
//
// The caches here track tags only. Data always lives in emulator memory, so
// attaching a hierarchy never changes what a program computes; it only
// produces hit, miss and cycle statistics.
package cache

import (
	"fmt"
	"math/bits"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config is the geometry and timing of one cache level. Sizes are in
// bytes, latencies in cycles.
type Config struct {
	Size          int    `json:"size"`
	Associativity int    `json:"associativity"`
	BlockSize     int    `json:"block_size"`
	HitLatency    uint64 `json:"hit_latency"`

	// MissLatency applies only to a level with nothing below it.
	MissLatency uint64 `json:"miss_latency"`
}

// DefaultL1IConfig returns default configuration for L1 instruction cache:
// 32KB, 8-way, 64B lines.
func DefaultL1IConfig() Config {
	return Config{
		Size:          32 * 1024, // 32KB
		Associativity: 8,         // 8-way
		BlockSize:     64,        // 64B cache line
		HitLatency:    1,         // 1 cycle
		MissLatency:   20,        // straight to memory
	}
}

// DefaultL1DConfig returns default configuration for L1 data cache:
// 32KB, 8-way, 64B lines.
func DefaultL1DConfig() Config {
	return Config{
		Size:          32 * 1024, // 32KB
		Associativity: 8,         // 8-way
		BlockSize:     64,        // 64B cache line
		HitLatency:    3,         // 3-cycle load-to-use latency
		MissLatency:   20,        // straight to memory
	}
}

// DefaultL2Config returns default configuration for a unified L2 cache:
// 512KB, 8-way, 64B lines.
func DefaultL2Config() Config {
	return Config{
		Size:          512 * 1024, // 512KB
		Associativity: 8,          // 8-way
		BlockSize:     64,         // 64B cache line
		HitLatency:    12,         // ~12 cycles
		MissLatency:   100,        // DRAM
	}
}

// Validate checks that the geometry describes at least one set of
// power-of-two sized lines.
func (c Config) Validate() error {
	if c.BlockSize <= 0 || bits.OnesCount(uint(c.BlockSize)) != 1 {
		return fmt.Errorf("block size must be a positive power of two, got %d", c.BlockSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be positive, got %d", c.Associativity)
	}
	if c.Size <= 0 || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size %d is not a multiple of associativity*block size (%d)",
			c.Size, c.Associativity*c.BlockSize)
	}
	return nil
}

// NumSets returns the number of sets for this geometry.
func (c Config) NumSets() int {
	return c.Size / (c.Associativity * c.BlockSize)
}

// AccessResult describes one Read or Write.
type AccessResult struct {
	Hit     bool // every line touched hit
	Latency uint64

	Evicted     bool
	EvictedAddr uint64 // block address of the victim
	Writeback   bool   // the victim was dirty
}

// Statistics are running counters for one level.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
	Cycles     uint64
}

// HitRate returns hits / (hits + misses), or 0 before any access.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache represents one cache level using an Akita tag directory.
type Cache struct {
	name      string
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics

	// nil for a last-level cache
	next NextLevel
}

// New creates a new cache with the given configuration. A nil next means
// misses are served by memory at the configured miss latency.
func New(name string, config Config, next NextLevel) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("cache %s: %w", name, err)
	}

	return &Cache{
		name:   name,
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		next: next,
	}, nil
}

// Name returns the level name used in reports.
func (c *Cache) Name() string {
	return c.name
}

func (c *Cache) Config() Config {
	return c.config
}

// Stats returns a copy of the counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats zeroes the counters and keeps resident lines.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return addr &^ uint64(c.config.BlockSize-1)
}

// Read performs a cache read of size bytes at addr.
func (c *Cache) Read(addr uint64, size int) AccessResult {
	c.stats.Reads++
	return c.access(addr, size, false)
}

// Write performs a cache write of size bytes at addr.
// Uses write-allocate policy: on miss, the block is filled, then dirtied.
func (c *Cache) Write(addr uint64, size int) AccessResult {
	c.stats.Writes++
	return c.access(addr, size, true)
}

// access touches every line covered by [addr, addr+size). Misaligned
// accesses may span two lines.
func (c *Cache) access(addr uint64, size int, isWrite bool) AccessResult {
	if size < 1 {
		size = 1
	}

	first := c.blockAddr(addr)
	last := c.blockAddr(addr + uint64(size) - 1)

	result := c.touch(first, isWrite)
	if last != first {
		second := c.touch(last, isWrite)
		result.Hit = result.Hit && second.Hit
		if second.Latency > result.Latency {
			result.Latency = second.Latency
		}
		if second.Evicted {
			result.Evicted = true
			result.EvictedAddr = second.EvictedAddr
			result.Writeback = result.Writeback || second.Writeback
		}
	}

	c.stats.Cycles += result.Latency
	return result
}

func (c *Cache) touch(blockAddr uint64, isWrite bool) AccessResult {
	block := c.directory.Lookup(0, blockAddr) // PID=0, single address space

	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block) // Update LRU
		if isWrite {
			block.IsDirty = true
		}
		return AccessResult{Hit: true, Latency: c.config.HitLatency}
	}

	c.stats.Misses++
	return c.handleMiss(blockAddr, isWrite)
}

// handleMiss allocates a block for blockAddr, evicting the LRU victim.
func (c *Cache) handleMiss(blockAddr uint64, isWrite bool) AccessResult {
	result := AccessResult{Latency: c.config.MissLatency}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag // Tag stores block-aligned address

		if victim.IsDirty {
			c.stats.Writebacks++
			result.Writeback = true
			if c.next != nil {
				c.next.Writeback(victim.Tag, c.config.BlockSize)
			}
		}
	}

	if c.next != nil {
		result.Latency = c.config.HitLatency + c.next.Fill(blockAddr, c.config.BlockSize)
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = isWrite

	c.directory.Visit(victim) // Update LRU

	return result
}

// Contains reports whether the line holding addr is resident.
func (c *Cache) Contains(addr uint64) bool {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	return block != nil && block.IsValid
}

// Invalidate drops the line holding addr without writing it back.
func (c *Cache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes dirty lines to the next level and empties the cache.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
				if c.next != nil {
					c.next.Writeback(block.Tag, c.config.BlockSize)
				}
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset empties the cache and zeroes the counters. Dirty lines are
// discarded.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
