package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values for RV64I instruction classes.
// Values describe a simple in-order scalar core.
type TimingConfig struct {
	// ALULatency is the execution latency for integer computational
	// instructions, including LUI and AUIPC. Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the base execution latency for conditional branches
	// and jumps. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// RedirectPenalty is the additional cycles lost when a jump does not
	// fall through to PC+4. Default: 2 cycles (fetch bubble).
	RedirectPenalty uint64 `json:"redirect_penalty"`

	// MispredictPenalty is the additional cycles lost when a conditional
	// branch resolves against its prediction. Default: 3 cycles.
	MispredictPenalty uint64 `json:"mispredict_penalty"`

	// Predictor sizes the branch predictor tables.
	Predictor PredictorConfig `json:"predictor"`

	// LoadLatency is the latency for load operations assuming L1 cache hit.
	// Default: 2 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the latency for store operations. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// CSRLatency is the latency for Zicsr instructions. Default: 2 cycles.
	CSRLatency uint64 `json:"csr_latency"`

	// FenceLatency is the latency for FENCE and FENCE.I. Default: 1 cycle.
	FenceLatency uint64 `json:"fence_latency"`

	// SyscallLatency is the latency for ECALL and EBREAK.
	// Default: 1 cycle (handling is external).
	SyscallLatency uint64 `json:"syscall_latency"`
}

// DefaultTimingConfig returns a TimingConfig with default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:        1,
		BranchLatency:     1,
		RedirectPenalty:   2,
		MispredictPenalty: 3,
		Predictor:         DefaultPredictorConfig(),
		LoadLatency:       2,
		StoreLatency:      1,
		CSRLatency:        2,
		FenceLatency:      1,
		SyscallLatency:    1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from
// the file keep their defaults.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0). Penalties may
// be zero.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.CSRLatency == 0 {
		return fmt.Errorf("csr_latency must be > 0")
	}
	if c.FenceLatency == 0 {
		return fmt.Errorf("fence_latency must be > 0")
	}
	if c.SyscallLatency == 0 {
		return fmt.Errorf("syscall_latency must be > 0")
	}
	return c.Predictor.Validate()
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
