package latency

import (
	"github.com/sarchlab/rvsim/insts"
)

// Stats summarizes the work seen by an Estimator.
type Stats struct {
	Instructions   uint64
	Cycles         uint64
	Loads          uint64
	Stores         uint64
	Branches       uint64
	Jumps          uint64
	Mispredictions uint64
	Redirects      uint64
	Undecodable    uint64
}

// CPI returns cycles per instruction, or 0 before any instruction retires.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// pendingKind classifies the previous instruction's control flow.
type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingBranch
	pendingJump
)

// Estimator accumulates estimated cycles for retired instructions. It
// satisfies emu.Tracer, so it can be attached with emu.WithTracer.
//
// Control flow is resolved when the next instruction retires: a
// conditional branch is charged the mispredict penalty when the predictor
// would have fetched from the wrong PC, and a jump is charged the
// redirect penalty when its target is not PC+4.
type Estimator struct {
	table     *Table
	decoder   *insts.Decoder
	predictor *Predictor
	stats     Stats

	pending    pendingKind
	pendingPC  uint64
	prediction Prediction
}

// NewEstimator creates an Estimator backed by the given table.
func NewEstimator(table *Table) *Estimator {
	if table == nil {
		table = NewTable()
	}
	return &Estimator{
		table:     table,
		decoder:   insts.NewDecoder(),
		predictor: NewPredictor(table.config.Predictor),
	}
}

// TraceInstruction records one retired instruction.
func (e *Estimator) TraceInstruction(pc uint64, word uint32, _ [32]uint64) {
	e.resolve(pc)

	e.stats.Instructions++

	inst, err := e.decoder.Decode(word)
	if err != nil {
		e.stats.Undecodable++
		e.stats.Cycles++
		return
	}

	e.stats.Cycles += e.table.GetLatency(inst)

	switch {
	case e.table.IsLoadOp(inst):
		e.stats.Loads++
	case e.table.IsStoreOp(inst):
		e.stats.Stores++
	case e.table.IsBranchOp(inst):
		e.stats.Branches++
		e.pending = pendingBranch
		e.pendingPC = pc
		e.prediction = e.predictor.Predict(pc)
	case e.table.IsControlTransfer(inst):
		e.stats.Jumps++
		e.pending = pendingJump
		e.pendingPC = pc
	}
}

// resolve settles the previous control transfer now that its successor
// is known.
func (e *Estimator) resolve(next uint64) {
	taken := next != e.pendingPC+4

	switch e.pending {
	case pendingBranch:
		if !e.prediction.Correct(taken, next) {
			e.stats.Mispredictions++
			e.stats.Cycles += e.table.config.MispredictPenalty
		}
		e.predictor.Update(e.pendingPC, taken, next)
	case pendingJump:
		if taken {
			e.stats.Redirects++
			e.stats.Cycles += e.table.config.RedirectPenalty
		}
	}

	e.pending = pendingNone
}

// Stats returns a snapshot of the accumulated statistics.
func (e *Estimator) Stats() Stats {
	return e.stats
}

// Predictor returns the branch predictor driving mispredict accounting.
func (e *Estimator) Predictor() *Predictor {
	return e.predictor
}

// Reset clears all accumulated statistics and predictor state.
func (e *Estimator) Reset() {
	e.stats = Stats{}
	e.pending = pendingNone
	e.pendingPC = 0
	e.prediction = Prediction{}
	e.predictor.Reset()
}
