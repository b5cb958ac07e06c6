// Package emu provides functional RV64I emulation.
package emu

// SideEffect tells the dispatcher how to proceed after a handler returns.
type SideEffect uint8

// Operation side effects.
const (
	// SideEffectNone advances the PC by the instruction width.
	SideEffectNone SideEffect = iota

	// SideEffectSkipPCIncrease leaves the PC where the handler put it.
	SideEffectSkipPCIncrease

	// SideEffectBreakpoint reports an EBREAK to the caller.
	SideEffectBreakpoint

	// SideEffectSyscall reports an ECALL to the caller.
	SideEffectSyscall
)

func (s SideEffect) String() string {
	switch s {
	case SideEffectNone:
		return "none"
	case SideEffectSkipPCIncrease:
		return "skip-pc-increase"
	case SideEffectBreakpoint:
		return "breakpoint"
	case SideEffectSyscall:
		return "syscall"
	default:
		return "unknown"
	}
}
