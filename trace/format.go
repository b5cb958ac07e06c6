package trace

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/arch/riscv64/riscv64asm"
)

// ABINames are the calling-convention names of x0-x31.
var ABINames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// FormatRegisters renders the register file four registers per line.
func FormatRegisters(regs [32]uint64) string {
	var sb strings.Builder

	for i := 0; i < len(regs); i += 4 {
		for j := i; j < i+4; j++ {
			if j > i {
				sb.WriteByte('\t')
			}
			fmt.Fprintf(&sb, "x%02d(%-4s)=0x%016x", j, ABINames[j], regs[j])
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

// Disassemble returns the GNU assembler syntax of an instruction word, or
// "unknown" if it cannot be decoded.
func Disassemble(word uint32) string {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], word)

	inst, err := riscv64asm.Decode(buf[:])
	if err != nil {
		return "unknown"
	}

	return riscv64asm.GNUSyntax(inst)
}
