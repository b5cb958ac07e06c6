// Package insts provides RV64I instruction definitions and decoding.
//
// This package implements decoding of RISC-V machine code into structured
// instruction representations. It supports:
//   - Integer register-immediate and register-register operations (RV64I),
//     including the 32-bit word variants
//   - Upper-immediate instructions: LUI, AUIPC
//   - Loads and stores of 1, 2, 4 and 8 bytes
//   - Control transfer: JAL, JALR and the conditional branches
//   - FENCE, ECALL, EBREAK and the Zicsr instructions
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode(0x00A50513) // ADDI a0, a0, 10
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Imm)
package insts
