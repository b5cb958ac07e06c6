package insts

var opNames = [...]string{
	OpUnknown: "unknown",
	OpADDI:    "addi",
	OpSLTI:    "slti",
	OpSLTIU:   "sltiu",
	OpXORI:    "xori",
	OpORI:     "ori",
	OpANDI:    "andi",
	OpSLLI:    "slli",
	OpSRLI:    "srli",
	OpSRAI:    "srai",
	OpADDIW:   "addiw",
	OpSLLIW:   "slliw",
	OpSRLIW:   "srliw",
	OpSRAIW:   "sraiw",
	OpLUI:     "lui",
	OpAUIPC:   "auipc",
	OpADD:     "add",
	OpSUB:     "sub",
	OpSLL:     "sll",
	OpSLT:     "slt",
	OpSLTU:    "sltu",
	OpXOR:     "xor",
	OpSRL:     "srl",
	OpSRA:     "sra",
	OpOR:      "or",
	OpAND:     "and",
	OpADDW:    "addw",
	OpSUBW:    "subw",
	OpSLLW:    "sllw",
	OpSRLW:    "srlw",
	OpSRAW:    "sraw",
	OpLB:      "lb",
	OpLH:      "lh",
	OpLW:      "lw",
	OpLD:      "ld",
	OpLBU:     "lbu",
	OpLHU:     "lhu",
	OpLWU:     "lwu",
	OpSB:      "sb",
	OpSH:      "sh",
	OpSW:      "sw",
	OpSD:      "sd",
	OpJAL:     "jal",
	OpJALR:    "jalr",
	OpBEQ:     "beq",
	OpBNE:     "bne",
	OpBLT:     "blt",
	OpBGE:     "bge",
	OpBLTU:    "bltu",
	OpBGEU:    "bgeu",
	OpFENCE:   "fence",
	OpFENCEI:  "fence.i",
	OpECALL:   "ecall",
	OpEBREAK:  "ebreak",
	OpCSRRW:   "csrrw",
	OpCSRRS:   "csrrs",
	OpCSRRC:   "csrrc",
	OpCSRRWI:  "csrrwi",
	OpCSRRSI:  "csrrsi",
	OpCSRRCI:  "csrrci",
}

// String returns the lower-case assembler mnemonic of the operation.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

var formatNames = [...]string{
	FormatUnknown: "?",
	FormatR:       "R",
	FormatI:       "I",
	FormatS:       "S",
	FormatB:       "B",
	FormatU:       "U",
	FormatJ:       "J",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "?"
}
