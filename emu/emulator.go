// Package emu provides functional RV64I emulation.
package emu

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"

	"github.com/sarchlab/rvsim/insts"
)

// StepResult is the outcome of one Step. At most one of Exited,
// Breakpoint and Err is set.
type StepResult struct {
	// Exited means an exit or exit_group syscall ran.
	Exited bool

	ExitCode int64

	// Breakpoint is true if an EBREAK stopped execution. The PC still
	// points at the EBREAK.
	Breakpoint bool

	// Err is a machine fault or the instruction limit.
	Err error
}

// Stopped reports whether the run cannot continue past this step.
func (r StepResult) Stopped() bool {
	return r.Exited || r.Breakpoint || r.Err != nil
}

// Tracer receives one event per retired instruction. Implementations must
// not block.
type Tracer interface {
	TraceInstruction(pc uint64, word uint32, regs [NumRegisters]uint64)
}

// Emulator executes RV64I instructions functionally.
type Emulator struct {
	regFile        *RegFile
	csrs           *CSRFile
	memory         *Memory
	bus            *Bus
	decoder        *insts.Decoder
	syscallHandler SyscallHandler

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit
	systemUnit *SystemUnit

	// Memory map
	baseAddr   uint64
	memorySize uint64

	// I/O
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	hostRoot *os.Root

	logger   log.Logger
	tracers  []Tracer
	observer AccessObserver

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption configures an Emulator in NewEmulator.
type EmulatorOption func(*Emulator)

// WithMemorySize sets the size of DRAM in bytes.
func WithMemorySize(size uint64) EmulatorOption {
	return func(e *Emulator) {
		e.memorySize = size
	}
}

// WithBaseAddress sets the bus address DRAM is mapped at.
func WithBaseAddress(base uint64) EmulatorOption {
	return func(e *Emulator) {
		e.baseAddr = base
	}
}

// WithStdin sets the reader backing the read syscall.
func WithStdin(r io.Reader) EmulatorOption {
	return func(e *Emulator) {
		e.stdin = r
	}
}

// WithStdout sets where guest writes to fd 1 go.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStderr sets where guest writes to fd 2 go.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithHostRoot lets the default syscall handler open files inside root.
func WithHostRoot(root *os.Root) EmulatorOption {
	return func(e *Emulator) {
		e.hostRoot = root
	}
}

// WithSyscallHandler replaces the default Linux syscall handler. The
// stdio and host root options then have no effect.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
	}
}

// WithMaxInstructions bounds the number of retired instructions. Zero
// means unbounded.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithLogger sets the logger. The default is the root logger.
func WithLogger(logger log.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithTracer attaches an instruction tracer. Tracers are called in the
// order they were attached.
func WithTracer(tracer Tracer) EmulatorOption {
	return func(e *Emulator) {
		e.tracers = append(e.tracers, tracer)
	}
}

// WithAccessObserver attaches an observer to the bus.
func WithAccessObserver(observer AccessObserver) EmulatorOption {
	return func(e *Emulator) {
		e.observer = observer
	}
}

// NewEmulator creates a new RV64I emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile:    &RegFile{},
		csrs:       NewCSRFile(),
		decoder:    insts.NewDecoder(),
		baseAddr:   DefaultBaseAddress,
		memorySize: DefaultMemorySize,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}

	// Apply options first (may set the memory map and I/O)
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = log.Root()
	}

	e.memory = NewMemory(e.memorySize)
	e.bus = NewBus(e.baseAddr, e.memory)
	if e.observer != nil {
		e.bus.SetObserver(e.observer)
	}

	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile, e.bus)
	e.branchUnit = NewBranchUnit(e.regFile)
	e.systemUnit = NewSystemUnit(e.regFile, e.csrs)

	if e.syscallHandler == nil {
		handler := NewDefaultSyscallHandler(e.regFile, e.bus, e.stdout, e.stderr)
		handler.SetStdin(e.stdin)
		if e.hostRoot != nil {
			handler.SetFileSystem(e.hostRoot)
		}
		e.syscallHandler = handler
	}

	e.resetRegisters()

	return e
}

func (e *Emulator) resetRegisters() {
	*e.regFile = RegFile{}
	e.regFile.PC = e.baseAddr
	e.regFile.WriteReg(RegSP, e.baseAddr+e.memorySize-1)
}

// RegFile returns the live register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// CSRs returns the emulator's control and status registers.
func (e *Emulator) CSRs() *CSRFile {
	return e.csrs
}

// Memory returns the backing store behind the bus.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// Bus returns the emulator's bus.
func (e *Emulator) Bus() *Bus {
	return e.bus
}

// InstructionCount returns the number of retired instructions.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// SetPC sets the address of the next instruction.
func (e *Emulator) SetPC(pc uint64) {
	e.regFile.PC = pc
}

// LoadProgram copies a flat image to the base address and points the PC
// at it.
func (e *Emulator) LoadProgram(image []byte) error {
	if err := e.memory.LoadImage(image); err != nil {
		return err
	}
	e.regFile.PC = e.baseAddr
	return nil
}

// LoadSegment copies data to a bus address. The PC is unchanged.
func (e *Emulator) LoadSegment(addr uint64, data []byte) error {
	if err := e.bus.WriteBytes(addr, data); err != nil {
		return fmt.Errorf("loading %d bytes at 0x%X: %w", len(data), addr, err)
	}
	return nil
}

// Reset clears registers, CSRs, memory and the instruction count.
func (e *Emulator) Reset() {
	e.memory.Clear()
	*e.csrs = CSRFile{}
	e.instructionCount = 0
	e.resetRegisters()
}

// Close releases host resources held by the syscall handler, such as
// files the guest left open.
func (e *Emulator) Close() error {
	if c, ok := e.syscallHandler.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Step fetches, executes and retires one instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{
			Err: fmt.Errorf("after %d instructions: %w", e.instructionCount, ErrMaxInstructions),
		}
	}

	pc := e.regFile.PC

	// 1. Fetch
	word, err := e.bus.Fetch(pc)
	if err != nil {
		return e.fault(pc, 0, fmt.Errorf("fetch at 0x%X: %w", pc, err))
	}

	// 2. Decode and execute
	effect, err := e.Execute(word)
	if err != nil {
		return e.fault(pc, word, fmt.Errorf("execute 0x%08X at 0x%X: %w", word, pc, err))
	}

	e.instructionCount++

	if len(e.tracers) > 0 {
		regs := e.regFile.Snapshot()
		for _, t := range e.tracers {
			t.TraceInstruction(pc, word, regs)
		}
	}

	switch effect {
	case SideEffectSyscall:
		return e.executeECALL(pc)
	case SideEffectBreakpoint:
		e.logger.Debug("Breakpoint", "pc", hexutil.Uint64(pc))
		return StepResult{Breakpoint: true}
	}

	return StepResult{}
}

func (e *Emulator) fault(pc uint64, word uint32, err error) StepResult {
	e.logger.Debug("Execution fault", "pc", hexutil.Uint64(pc), "word", hexutil.Uint64(word), "err", err)
	return StepResult{Err: err}
}

// executeECALL services a syscall. The return address is the next
// instruction.
func (e *Emulator) executeECALL(pc uint64) StepResult {
	e.regFile.PC = pc + 4

	syscallResult, err := e.syscallHandler.Handle()
	if err != nil {
		return e.fault(pc, 0, fmt.Errorf("syscall %d at 0x%X: %w", e.regFile.ReadReg(RegA7), pc, err))
	}

	return StepResult{
		Exited:   syscallResult.Exited,
		ExitCode: syscallResult.ExitCode,
	}
}

// Run executes instructions until the program exits, hits a breakpoint,
// faults, or ctx is cancelled. A cancelled run reports ctx.Err().
func (e *Emulator) Run(ctx context.Context) StepResult {
	e.logger.Debug("Run started", "pc", hexutil.Uint64(e.regFile.PC))

	var result StepResult
	for {
		select {
		case <-ctx.Done():
			result = StepResult{Err: ctx.Err()}
		default:
			result = e.Step()
		}
		if result.Stopped() {
			break
		}
	}

	e.logger.Debug("Run stopped",
		"instructions", e.instructionCount,
		"pc", hexutil.Uint64(e.regFile.PC),
		"exited", result.Exited,
		"breakpoint", result.Breakpoint)

	return result
}

// Execute decodes and executes one instruction word at the current PC and
// applies its side effect. On error the PC is unchanged.
func (e *Emulator) Execute(word uint32) (SideEffect, error) {
	inst, err := e.decoder.Decode(word)
	if err != nil {
		return SideEffectNone, err
	}

	effect, err := e.execute(inst)
	if err != nil {
		return SideEffectNone, err
	}

	if effect == SideEffectNone {
		e.regFile.PC += uint64(inst.Size())
	}

	return effect, nil
}

// execute dispatches a decoded instruction to its unit.
func (e *Emulator) execute(inst *insts.Instruction) (SideEffect, error) {
	switch inst.Format {
	case insts.FormatB:
		e.branchUnit.Branch(BranchCond(inst.Funct3), inst.Rs1, inst.Rs2, inst.Imm)
		return SideEffectSkipPCIncrease, nil
	case insts.FormatJ:
		e.branchUnit.JAL(inst.Rd, inst.Imm)
		return SideEffectSkipPCIncrease, nil
	case insts.FormatS:
		return SideEffectNone, e.executeStore(inst)
	}

	switch inst.Op {
	case insts.OpJALR:
		e.branchUnit.JALR(inst.Rd, inst.Rs1, inst.Imm)
		return SideEffectSkipPCIncrease, nil
	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLD,
		insts.OpLBU, insts.OpLHU, insts.OpLWU:
		return SideEffectNone, e.executeLoad(inst)
	case insts.OpFENCE, insts.OpFENCEI:
		// Memory is coherent and instructions are fetched from it directly.
		return SideEffectNone, nil
	case insts.OpECALL:
		return SideEffectSyscall, nil
	case insts.OpEBREAK:
		return SideEffectBreakpoint, nil
	case insts.OpCSRRW, insts.OpCSRRS, insts.OpCSRRC,
		insts.OpCSRRWI, insts.OpCSRRSI, insts.OpCSRRCI:
		e.executeCSR(inst)
		return SideEffectNone, nil
	}

	if !e.executeALU(inst) {
		return SideEffectNone, fmt.Errorf("no handler for %s", inst.Op)
	}

	return SideEffectNone, nil
}

// executeALU executes integer computational instructions. It reports
// false if inst is not one.
func (e *Emulator) executeALU(inst *insts.Instruction) bool {
	rd, rs1, rs2, imm, shamt := inst.Rd, inst.Rs1, inst.Rs2, inst.Imm, inst.Shamt

	switch inst.Op {
	case insts.OpADDI:
		e.alu.ADDI(rd, rs1, imm)
	case insts.OpSLTI:
		e.alu.SLTI(rd, rs1, imm)
	case insts.OpSLTIU:
		e.alu.SLTIU(rd, rs1, imm)
	case insts.OpXORI:
		e.alu.XORI(rd, rs1, imm)
	case insts.OpORI:
		e.alu.ORI(rd, rs1, imm)
	case insts.OpANDI:
		e.alu.ANDI(rd, rs1, imm)
	case insts.OpSLLI:
		e.alu.SLLI(rd, rs1, shamt)
	case insts.OpSRLI:
		e.alu.SRLI(rd, rs1, shamt)
	case insts.OpSRAI:
		e.alu.SRAI(rd, rs1, shamt)
	case insts.OpADDIW:
		e.alu.ADDIW(rd, rs1, imm)
	case insts.OpSLLIW:
		e.alu.SLLIW(rd, rs1, shamt)
	case insts.OpSRLIW:
		e.alu.SRLIW(rd, rs1, shamt)
	case insts.OpSRAIW:
		e.alu.SRAIW(rd, rs1, shamt)
	case insts.OpLUI:
		e.alu.LUI(rd, imm)
	case insts.OpAUIPC:
		e.alu.AUIPC(rd, imm)
	case insts.OpADD:
		e.alu.ADD(rd, rs1, rs2)
	case insts.OpSUB:
		e.alu.SUB(rd, rs1, rs2)
	case insts.OpSLL:
		e.alu.SLL(rd, rs1, rs2)
	case insts.OpSLT:
		e.alu.SLT(rd, rs1, rs2)
	case insts.OpSLTU:
		e.alu.SLTU(rd, rs1, rs2)
	case insts.OpXOR:
		e.alu.XOR(rd, rs1, rs2)
	case insts.OpSRL:
		e.alu.SRL(rd, rs1, rs2)
	case insts.OpSRA:
		e.alu.SRA(rd, rs1, rs2)
	case insts.OpOR:
		e.alu.OR(rd, rs1, rs2)
	case insts.OpAND:
		e.alu.AND(rd, rs1, rs2)
	case insts.OpADDW:
		e.alu.ADDW(rd, rs1, rs2)
	case insts.OpSUBW:
		e.alu.SUBW(rd, rs1, rs2)
	case insts.OpSLLW:
		e.alu.SLLW(rd, rs1, rs2)
	case insts.OpSRLW:
		e.alu.SRLW(rd, rs1, rs2)
	case insts.OpSRAW:
		e.alu.SRAW(rd, rs1, rs2)
	default:
		return false
	}

	return true
}

// executeLoad executes LOAD instructions.
func (e *Emulator) executeLoad(inst *insts.Instruction) error {
	rd, rs1, imm := inst.Rd, inst.Rs1, inst.Imm

	switch inst.Op {
	case insts.OpLB:
		return e.lsu.LB(rd, rs1, imm)
	case insts.OpLH:
		return e.lsu.LH(rd, rs1, imm)
	case insts.OpLW:
		return e.lsu.LW(rd, rs1, imm)
	case insts.OpLD:
		return e.lsu.LD(rd, rs1, imm)
	case insts.OpLBU:
		return e.lsu.LBU(rd, rs1, imm)
	case insts.OpLHU:
		return e.lsu.LHU(rd, rs1, imm)
	default:
		return e.lsu.LWU(rd, rs1, imm)
	}
}

// executeStore executes STORE instructions.
func (e *Emulator) executeStore(inst *insts.Instruction) error {
	rs1, rs2, imm := inst.Rs1, inst.Rs2, inst.Imm

	switch inst.Op {
	case insts.OpSB:
		return e.lsu.SB(rs1, rs2, imm)
	case insts.OpSH:
		return e.lsu.SH(rs1, rs2, imm)
	case insts.OpSW:
		return e.lsu.SW(rs1, rs2, imm)
	default:
		return e.lsu.SD(rs1, rs2, imm)
	}
}

// executeCSR executes Zicsr instructions. The immediate forms carry zimm
// in the rs1 field.
func (e *Emulator) executeCSR(inst *insts.Instruction) {
	rd, rs1, csr := inst.Rd, inst.Rs1, inst.CSR

	switch inst.Op {
	case insts.OpCSRRW:
		e.systemUnit.CSRRW(rd, rs1, csr)
	case insts.OpCSRRS:
		e.systemUnit.CSRRS(rd, rs1, csr)
	case insts.OpCSRRC:
		e.systemUnit.CSRRC(rd, rs1, csr)
	case insts.OpCSRRWI:
		e.systemUnit.CSRRWI(rd, rs1, csr)
	case insts.OpCSRRSI:
		e.systemUnit.CSRRSI(rd, rs1, csr)
	case insts.OpCSRRCI:
		e.systemUnit.CSRRCI(rd, rs1, csr)
	}
}
