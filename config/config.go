// Package config holds the run configuration for the rvsim driver.
//
// A Config is read from JSON. Fields absent from the file keep their
// defaults, and command-line flags are applied on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
	"github.com/sarchlab/rvsim/trace"
)

// TraceConfig controls the asynchronous instruction trace.
type TraceConfig struct {
	Enabled        bool   `json:"enabled"`
	BufferSize     int    `json:"buffer_size"`
	Disassemble    bool   `json:"disassemble"`
	CloseTimeoutMS uint64 `json:"close_timeout_ms"`
}

// CloseTimeout returns the shutdown bound as a duration.
func (t TraceConfig) CloseTimeout() time.Duration {
	return time.Duration(t.CloseTimeoutMS) * time.Millisecond
}

// CacheConfig controls the observational cache model.
type CacheConfig struct {
	Enabled   bool                  `json:"enabled"`
	Hierarchy cache.HierarchyConfig `json:"hierarchy"`
}

// TimingConfig controls the latency estimator.
type TimingConfig struct {
	Enabled   bool                  `json:"enabled"`
	Latencies *latency.TimingConfig `json:"latencies"`
}

// Config is the complete run configuration.
type Config struct {
	MemorySize      uint64 `json:"memory_size"`
	BaseAddress     uint64 `json:"base_address"`
	MaxInstructions uint64 `json:"max_instructions"`
	DumpRegisters   bool   `json:"dump_registers"`
	Verbose         bool   `json:"verbose"`

	// HostRoot is a host directory the guest may open files in. Empty
	// disables openat.
	HostRoot string `json:"host_root"`

	Trace  TraceConfig  `json:"trace"`
	Cache  CacheConfig  `json:"cache"`
	Timing TimingConfig `json:"timing"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		MemorySize:  emu.DefaultMemorySize,
		BaseAddress: emu.DefaultBaseAddress,
		Trace: TraceConfig{
			BufferSize:     trace.DefaultBufferSize,
			Disassemble:    true,
			CloseTimeoutMS: 1000,
		},
		Cache: CacheConfig{
			Hierarchy: cache.DefaultHierarchyConfig(),
		},
		Timing: TimingConfig{
			Latencies: latency.DefaultTimingConfig(),
		},
	}
}

// LoadConfig loads a Config from a JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.MemorySize == 0 {
		return fmt.Errorf("memory_size must be > 0")
	}
	if c.BaseAddress+c.MemorySize < c.BaseAddress {
		return fmt.Errorf("memory_size 0x%x overflows base_address 0x%x",
			c.MemorySize, c.BaseAddress)
	}
	if c.Trace.BufferSize < 0 {
		return fmt.Errorf("trace.buffer_size must be >= 0")
	}

	if c.Cache.Enabled {
		h := c.Cache.Hierarchy
		if err := h.L1I.Validate(); err != nil {
			return fmt.Errorf("cache.hierarchy.l1i: %w", err)
		}
		if err := h.L1D.Validate(); err != nil {
			return fmt.Errorf("cache.hierarchy.l1d: %w", err)
		}
		if h.L2 != nil {
			if err := h.L2.Validate(); err != nil {
				return fmt.Errorf("cache.hierarchy.l2: %w", err)
			}
		}
	}

	if c.Timing.Enabled {
		if c.Timing.Latencies == nil {
			return fmt.Errorf("timing.latencies must be set when timing is enabled")
		}
		if err := c.Timing.Latencies.Validate(); err != nil {
			return fmt.Errorf("timing.latencies: %w", err)
		}
	}

	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Cache.Hierarchy.L2 != nil {
		l2 := *c.Cache.Hierarchy.L2
		clone.Cache.Hierarchy.L2 = &l2
	}
	if c.Timing.Latencies != nil {
		clone.Timing.Latencies = c.Timing.Latencies.Clone()
	}
	return &clone
}
