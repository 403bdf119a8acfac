package optimization

import (
	"math"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

// Individual represents a candidate solution in the genetic algorithm
type Individual struct {
	Candidate *params.Configuration
	Fitness   float64
	Results   *backtest.BacktestResults
	evaluated bool
}

// NewIndividual creates an unevaluated individual owning candidate
func NewIndividual(candidate *params.Configuration) *Individual {
	return &Individual{
		Candidate: candidate,
		Fitness:   math.Inf(-1),
	}
}

// Evaluated reports whether the fitness is current
func (i *Individual) Evaluated() bool {
	return i.evaluated
}

// SetEvaluation stores the outcome of an evaluation; nil marks the candidate invalid
func (i *Individual) SetEvaluation(ev *Evaluation) {
	i.evaluated = true
	if ev == nil {
		i.Fitness = math.Inf(-1)
		i.Results = nil
		return
	}
	i.Fitness = ev.Fitness
	i.Results = ev.Results
}

// Copy creates a deep copy of this individual
func (i *Individual) Copy() *Individual {
	return &Individual{
		Candidate: i.Candidate.Clone(),
		Fitness:   i.Fitness,
		Results:   i.Results,
		evaluated: i.evaluated,
	}
}

// Reset resets the fitness and results for re-evaluation
func (i *Individual) Reset() {
	i.Fitness = math.Inf(-1)
	i.Results = nil
	i.evaluated = false
}
