package latency

import (
	"fmt"
	"math/bits"
)

// PredictorConfig sizes the branch predictor tables.
type PredictorConfig struct {
	// BHTSize is the number of 2-bit counters. Must be a power of 2.
	BHTSize uint32 `json:"bht_size"`
	// BTBSize is the number of target buffer entries. Must be a power of 2.
	BTBSize uint32 `json:"btb_size"`
}

// DefaultPredictorConfig returns a 1024-entry BHT and a 256-entry BTB.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		BHTSize: 1024,
		BTBSize: 256,
	}
}

// Validate checks that both table sizes are powers of two.
func (c PredictorConfig) Validate() error {
	if bits.OnesCount32(c.BHTSize) != 1 {
		return fmt.Errorf("predictor.bht_size must be a power of two, got %d", c.BHTSize)
	}
	if bits.OnesCount32(c.BTBSize) != 1 {
		return fmt.Errorf("predictor.btb_size must be a power of two, got %d", c.BTBSize)
	}
	return nil
}

// PredictorStats holds branch predictor statistics.
type PredictorStats struct {
	Predictions    uint64
	Correct        uint64
	Mispredictions uint64
	BTBHits        uint64
	BTBMisses      uint64
}

// Accuracy returns the fraction of correct predictions as a percentage.
func (s PredictorStats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// Prediction is the predictor's guess for one branch.
type Prediction struct {
	Taken       bool
	Target      uint64
	TargetKnown bool
}

// Correct reports whether the prediction fetches from the actual next PC.
func (p Prediction) Correct(taken bool, next uint64) bool {
	if p.Taken != taken {
		return false
	}
	return !taken || (p.TargetKnown && p.Target == next)
}

type btbEntry struct {
	valid  bool
	pc     uint64
	target uint64
}

// Predictor is a bimodal predictor (2-bit saturating counters) with a
// direct-mapped branch target buffer.
//
// Counter states: 0 strongly not taken, 1 weakly not taken, 2 weakly
// taken, 3 strongly taken.
type Predictor struct {
	bht   []uint8
	btb   []btbEntry
	stats PredictorStats
}

// NewPredictor creates a predictor. Zero sizes fall back to the defaults.
func NewPredictor(config PredictorConfig) *Predictor {
	defaults := DefaultPredictorConfig()
	if config.BHTSize == 0 {
		config.BHTSize = defaults.BHTSize
	}
	if config.BTBSize == 0 {
		config.BTBSize = defaults.BTBSize
	}

	p := &Predictor{
		bht: make([]uint8, config.BHTSize),
		btb: make([]btbEntry, config.BTBSize),
	}
	p.Reset()
	return p
}

func (p *Predictor) bhtIndex(pc uint64) uint64 {
	return (pc >> 2) & uint64(len(p.bht)-1)
}

func (p *Predictor) btbIndex(pc uint64) uint64 {
	return (pc >> 2) & uint64(len(p.btb)-1)
}

// Predict returns the prediction for the branch at pc.
func (p *Predictor) Predict(pc uint64) Prediction {
	pred := Prediction{Taken: p.bht[p.bhtIndex(pc)] >= 2}

	entry := p.btb[p.btbIndex(pc)]
	if entry.valid && entry.pc == pc {
		pred.Target = entry.target
		pred.TargetKnown = true
		p.stats.BTBHits++
	} else {
		p.stats.BTBMisses++
	}

	p.stats.Predictions++
	return pred
}

// Update trains the predictor with the resolved outcome of the branch at
// pc. Direction accuracy is tracked here; target misses are not counted.
func (p *Predictor) Update(pc uint64, taken bool, target uint64) {
	idx := p.bhtIndex(pc)
	counter := p.bht[idx]

	if (counter >= 2) == taken {
		p.stats.Correct++
	} else {
		p.stats.Mispredictions++
	}

	switch {
	case taken && counter < 3:
		p.bht[idx] = counter + 1
	case !taken && counter > 0:
		p.bht[idx] = counter - 1
	}

	if taken {
		p.btb[p.btbIndex(pc)] = btbEntry{valid: true, pc: pc, target: target}
	}
}

// Stats returns the predictor statistics.
func (p *Predictor) Stats() PredictorStats {
	return p.stats
}

// Reset restores every counter to weakly taken and clears the BTB.
func (p *Predictor) Reset() {
	for i := range p.bht {
		p.bht[i] = 2
	}
	clear(p.btb)
	p.stats = PredictorStats{}
}
