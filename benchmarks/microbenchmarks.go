// Package benchmarks provides RV64I microbenchmarks and a harness that runs
// them through the emulator with the latency and cache models attached.
package benchmarks

import "github.com/sarchlab/rvsim/emu"

// Temporaries used by the benchmark programs.
const (
	regT0 uint8 = 5
	regT1 uint8 = 6
	regT2 uint8 = 7
	regS2 uint8 = 18
)

// exitSetup prepares a7 for the exit syscall that ends every benchmark.
func exitSetup(e *emu.Emulator) error {
	e.RegFile().WriteReg(emu.RegA7, emu.SyscallExit)
	return nil
}

// dataSetup prepares the exit syscall and points t0 at the data region.
func dataSetup(e *emu.Emulator) error {
	e.RegFile().WriteReg(emu.RegA7, emu.SyscallExit)
	e.RegFile().WriteReg(regT0, DataAddress(e))
	return nil
}

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific CPU characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		mixedOperations(),
		matrixOperations(),
		countedLoop(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		countedLoop(),
		matrixOperations(),
		branchTaken(),
	}
}

// 1. Arithmetic Sequential - Tests ALU throughput with independent operations
func arithmeticSequential() Benchmark {
	instrs := make([]uint32, 0, 21)
	for i := 0; i < 20; i++ {
		rd := emu.RegA0 + uint8(i%5)
		instrs = append(instrs, EncodeADDI(rd, rd, 1))
	}
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 independent ADDI operations - measures ALU throughput",
		Setup:        exitSetup,
		Program:      BuildProgram(instrs...),
		ExpectedExit: 4, // a0 is incremented every fifth instruction
	}
}

// 2. Dependency Chain - Tests instruction latency with RAW hazards
func dependencyChain() Benchmark {
	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs (a0 = a0 + 1) - measures back-to-back latency",
		Setup:        exitSetup,
		Program:      buildDependencyChain(20),
		ExpectedExit: 20,
	}
}

func buildDependencyChain(n int) []byte {
	instrs := make([]uint32, 0, n+1)
	for i := 0; i < n; i++ {
		instrs = append(instrs, EncodeADDI(emu.RegA0, emu.RegA0, 1))
	}
	instrs = append(instrs, EncodeECALL())
	return BuildProgram(instrs...)
}

// 3. Memory Sequential - Tests cache/memory performance
func memorySequential() Benchmark {
	instrs := []uint32{EncodeADDI(emu.RegA0, 0, 42)}
	for i := int32(0); i < 10; i++ {
		instrs = append(instrs,
			EncodeSD(emu.RegA0, regT0, 8*i),
			EncodeLD(emu.RegA0, regT0, 8*i),
		)
	}
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "10 store/load pairs to sequential doublewords - measures memory latency",
		Setup:        dataSetup,
		Program:      BuildProgram(instrs...),
		ExpectedExit: 42,
	}
}

// 4. Function Calls - Tests JAL/RET overhead
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "5 function calls (JAL + RET pairs) - measures call overhead",
		Setup:       exitSetup,
		Program: BuildProgram(
			// main: call add_one 5 times
			EncodeJAL(emu.RegRA, 24), // add_one is 6 instructions ahead
			EncodeJAL(emu.RegRA, 20),
			EncodeJAL(emu.RegRA, 16),
			EncodeJAL(emu.RegRA, 12),
			EncodeJAL(emu.RegRA, 8),
			EncodeECALL(),

			// add_one
			EncodeADDI(emu.RegA0, emu.RegA0, 1),
			EncodeRET(),
		),
		ExpectedExit: 5,
	}
}

// 5. Branch Taken - Tests unconditional jump overhead
func branchTaken() Benchmark {
	instrs := make([]uint32, 0, 16)
	for i := 0; i < 5; i++ {
		instrs = append(instrs,
			EncodeJAL(0, 8),              // skip next instr
			EncodeADDI(regT1, regT1, 99), // skipped
			EncodeADDI(emu.RegA0, emu.RegA0, 1),
		)
	}
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:         "branch_taken",
		Description:  "5 unconditional jumps (JAL forward) - measures redirect overhead",
		Setup:        exitSetup,
		Program:      BuildProgram(instrs...),
		ExpectedExit: 5,
	}
}

// 6. Mixed Operations - Combination of ALU, memory, and calls
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "Mix of ADD, SD/LD, and JAL - realistic workload characteristics",
		Setup:       dataSetup,
		Program: BuildProgram(
			// Iteration 1: compute, store, load, call
			EncodeADDI(regT1, emu.RegA0, 10),
			EncodeSD(regT1, regT0, 0),
			EncodeLD(regT2, regT0, 0),
			EncodeADD(emu.RegA0, emu.RegA0, regT2),
			EncodeJAL(emu.RegRA, 44), // add_five

			// Iteration 2
			EncodeADDI(regT1, emu.RegA0, 10),
			EncodeSD(regT1, regT0, 8),
			EncodeLD(regT2, regT0, 8),
			EncodeADD(emu.RegA0, emu.RegA0, regT2),
			EncodeJAL(emu.RegRA, 24),

			// Iteration 3
			EncodeADDI(regT1, emu.RegA0, 10),
			EncodeSD(regT1, regT0, 16),
			EncodeLD(regT2, regT0, 16),
			EncodeADD(emu.RegA0, emu.RegA0, regT2),

			EncodeECALL(),

			// add_five
			EncodeADDI(emu.RegA0, emu.RegA0, 5),
			EncodeRET(),
		),
		// iter1: a0=0, t1=10, a0=10, call +5 → a0=15
		// iter2: t1=25, a0=40, call +5 → a0=45
		// iter3: t1=55, a0=100
		ExpectedExit: 100,
	}
}

// 7. Matrix Operations - Tests computation with memory access pattern
func matrixOperations() Benchmark {
	a := []uint64{10, 20, 30, 40}
	b := []uint64{1, 2, 3, 4}

	instrs := make([]uint32, 0, 24)
	// Load A into s2-s5 and B into s6-s9
	for i := uint8(0); i < 4; i++ {
		instrs = append(instrs, EncodeLD(regS2+i, regT0, int32(8*i)))
	}
	for i := uint8(0); i < 4; i++ {
		instrs = append(instrs, EncodeLD(regS2+4+i, regT1, int32(8*i)))
	}
	// C[i] = A[i] + B[i] into x26-x29
	for i := uint8(0); i < 4; i++ {
		instrs = append(instrs, EncodeADD(regS2+8+i, regS2+i, regS2+4+i))
	}
	for i := uint8(0); i < 4; i++ {
		instrs = append(instrs, EncodeSD(regS2+8+i, regT2, int32(8*i)))
	}
	instrs = append(instrs,
		EncodeADD(emu.RegA0, regS2+8, regS2+9),
		EncodeADD(emu.RegA0, emu.RegA0, regS2+10),
		EncodeADD(emu.RegA0, emu.RegA0, regS2+11),
		EncodeECALL(),
	)

	return Benchmark{
		Name:        "matrix_operations",
		Description: "Matrix-style load/compute/store pattern - tests memory access",
		Setup: func(e *emu.Emulator) error {
			data := DataAddress(e)
			regs := e.RegFile()
			regs.WriteReg(emu.RegA7, emu.SyscallExit)
			regs.WriteReg(regT0, data)       // A
			regs.WriteReg(regT1, data+0x100) // B
			regs.WriteReg(regT2, data+0x200) // C

			bus := e.Bus()
			for i := range a {
				if err := bus.Store64(data+uint64(8*i), a[i]); err != nil {
					return err
				}
				if err := bus.Store64(data+0x100+uint64(8*i), b[i]); err != nil {
					return err
				}
			}
			return nil
		},
		Program:      BuildProgram(instrs...),
		ExpectedExit: 110, // 11 + 22 + 33 + 44
	}
}

// 8. Counted Loop - for i := 0; i < 10; i++ { sum += i }
func countedLoop() Benchmark {
	return Benchmark{
		Name:        "counted_loop",
		Description: "10-iteration counted loop with a backward BLT - tests loop patterns",
		Setup:       exitSetup,
		Program: BuildProgram(
			EncodeADDI(regT0, 0, 0),  // i = 0
			EncodeADDI(regT1, 0, 10), // n = 10
			// loop:
			EncodeADD(emu.RegA0, emu.RegA0, regT0), // sum += i
			EncodeADDI(regT0, regT0, 1),            // i++
			EncodeBLT(regT0, regT1, -8),            // i < n
			EncodeECALL(),
		),
		ExpectedExit: 45,
	}
}
