package cache

import (
	"fmt"
	"io"

	"github.com/xlab/treeprint"

	"github.com/sarchlab/rvsim/emu"
)

// HierarchyConfig describes split L1 caches with an optional unified L2.
type HierarchyConfig struct {
	L1I Config  `json:"l1i"`
	L1D Config  `json:"l1d"`
	L2  *Config `json:"l2,omitempty"`
}

// DefaultHierarchyConfig returns split L1 caches without an L2.
func DefaultHierarchyConfig() HierarchyConfig {
	return HierarchyConfig{
		L1I: DefaultL1IConfig(),
		L1D: DefaultL1DConfig(),
	}
}

// Hierarchy routes bus accesses to an instruction and a data cache. It
// implements emu.AccessObserver.
type Hierarchy struct {
	l1i *Cache
	l1d *Cache
	l2  *Cache
}

var _ emu.AccessObserver = (*Hierarchy)(nil)

// NewHierarchy builds the caches described by config.
func NewHierarchy(config HierarchyConfig) (*Hierarchy, error) {
	h := &Hierarchy{}

	var next NextLevel
	if config.L2 != nil {
		l2, err := New("L2", *config.L2, nil)
		if err != nil {
			return nil, err
		}
		h.l2 = l2
		next = l2
	}

	l1i, err := New("L1I", config.L1I, next)
	if err != nil {
		return nil, err
	}
	l1d, err := New("L1D", config.L1D, next)
	if err != nil {
		return nil, err
	}
	h.l1i = l1i
	h.l1d = l1d

	return h, nil
}

// ObserveAccess routes fetches to L1I and loads and stores to L1D.
func (h *Hierarchy) ObserveAccess(kind emu.AccessKind, addr uint64, size int) {
	switch kind {
	case emu.AccessFetch:
		h.l1i.Read(addr, size)
	case emu.AccessLoad:
		h.l1d.Read(addr, size)
	case emu.AccessStore:
		h.l1d.Write(addr, size)
	}
}

// L1I returns the instruction cache.
func (h *Hierarchy) L1I() *Cache {
	return h.l1i
}

// L1D returns the data cache.
func (h *Hierarchy) L1D() *Cache {
	return h.l1d
}

// L2 returns the unified L2, or nil if none is configured.
func (h *Hierarchy) L2() *Cache {
	return h.l2
}

// Caches returns every level, L1s first.
func (h *Hierarchy) Caches() []*Cache {
	caches := []*Cache{h.l1i, h.l1d}
	if h.l2 != nil {
		caches = append(caches, h.l2)
	}
	return caches
}

// Cycles returns the memory cycles spent by accesses entering at L1.
// L2 cycles are already folded into L1 miss latencies.
func (h *Hierarchy) Cycles() uint64 {
	return h.l1i.Stats().Cycles + h.l1d.Stats().Cycles
}

// Reset invalidates every level and clears statistics.
func (h *Hierarchy) Reset() {
	for _, c := range h.Caches() {
		c.Reset()
	}
}

// WriteReport prints per-level statistics.
func (h *Hierarchy) WriteReport(w io.Writer) error {
	for _, c := range h.Caches() {
		s := c.Stats()
		_, err := fmt.Fprintf(w,
			"%-4s reads=%d writes=%d hits=%d misses=%d hit_rate=%.2f%% evictions=%d writebacks=%d cycles=%d\n",
			c.Name(), s.Reads, s.Writes, s.Hits, s.Misses, s.HitRate()*100,
			s.Evictions, s.Writebacks, s.Cycles)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "total memory cycles=%d\n", h.Cycles())
	return err
}

// Layout renders the hierarchy as a tree rooted at main memory, each level
// listed under the level it fills from.
func (h *Hierarchy) Layout() string {
	tree := treeprint.NewWithRoot("memory")

	parent := tree
	if h.l2 != nil {
		parent = tree.AddBranch(describe(h.l2))
	}
	parent.AddNode(describe(h.l1i))
	parent.AddNode(describe(h.l1d))

	return tree.String()
}

func describe(c *Cache) string {
	cfg := c.Config()
	return fmt.Sprintf("%s %dKB %d-way %dB lines, hit=%d miss=%d",
		c.Name(), cfg.Size/1024, cfg.Associativity, cfg.BlockSize,
		cfg.HitLatency, cfg.MissLatency)
}
