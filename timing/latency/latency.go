// Package latency provides a first-order instruction timing model for the
// functional emulator.
//
// Latencies are configured via TimingConfig. An Estimator attached to the
// emulator as a tracer accumulates an estimated cycle count per run.
package latency

import (
	"github.com/sarchlab/rvsim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given instruction.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch {
	case t.IsControlTransfer(inst):
		return t.config.BranchLatency
	case t.IsLoadOp(inst):
		return t.config.LoadLatency
	case t.IsStoreOp(inst):
		return t.config.StoreLatency
	}

	switch inst.Op {
	case insts.OpFENCE, insts.OpFENCEI:
		return t.config.FenceLatency
	case insts.OpECALL, insts.OpEBREAK:
		return t.config.SyscallLatency
	case insts.OpCSRRW, insts.OpCSRRS, insts.OpCSRRC,
		insts.OpCSRRWI, insts.OpCSRRSI, insts.OpCSRRCI:
		return t.config.CSRLatency
	default:
		return t.config.ALULatency
	}
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	return inst != nil && inst.Opcode == insts.OpcodeLoad
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	return inst != nil && inst.Opcode == insts.OpcodeStore
}

// IsBranchOp returns true if the instruction is a conditional branch.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	return inst != nil && inst.Opcode == insts.OpcodeBranch
}

// IsControlTransfer returns true for conditional branches and jumps.
func (t *Table) IsControlTransfer(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Opcode {
	case insts.OpcodeBranch, insts.OpcodeJAL, insts.OpcodeJALR:
		return true
	default:
		return false
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
