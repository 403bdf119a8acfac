package optimization

import (
	"time"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// SampledResult is one ranked valid candidate
type SampledResult struct {
	Rank          int                       `json:"rank"`
	Candidate     []params.Descriptor       `json:"candidate"`
	Configuration *params.Configuration     `json:"-"`
	Fitness       float64                   `json:"fitness"`
	Results       *backtest.BacktestResults `json:"results"`
}

// OptimizationResult is the outcome of one optimization. BestResult is nil when no candidate was valid.
type OptimizationResult struct {
	RunID             string                    `json:"run_id"`
	Method            Method                    `json:"method"`
	StrategyName      string                    `json:"strategy_name,omitempty"`
	BestCandidate     []params.Descriptor       `json:"best_candidate"`
	BestConfiguration *params.Configuration     `json:"-"`
	BestFitness       float64                   `json:"best_fitness"`
	BestResult        *backtest.BacktestResults `json:"best_result"`
	SampledResults    []SampledResult           `json:"sampled_results"`
	TotalCombinations uint64                    `json:"total_combinations"`
	Timeframe         types.Timeframe           `json:"timeframe"`
	Evaluations       int                       `json:"evaluations"`
	RecoveredErrors   int                       `json:"recovered_errors"`
	ErrorsByCategory  map[string]int            `json:"errors_by_category,omitempty"`
	Seed              int64                     `json:"seed"`
	Duration          time.Duration             `json:"duration"`
}

// Empty reports whether no valid candidate was found
func (r *OptimizationResult) Empty() bool {
	return r.BestResult == nil
}

// buildResult ranks the pool: the top evaluation becomes the best, the rest the sample
func buildResult(r *run, runID string, timeframe types.Timeframe, elapsed time.Duration) *OptimizationResult {
	result := &OptimizationResult{
		RunID:             runID,
		Method:            r.config.Method,
		BestCandidate:     []params.Descriptor{},
		SampledResults:    []SampledResult{},
		TotalCombinations: r.base.PermutationCount(),
		Timeframe:         timeframe,
		Evaluations:       r.tally.evaluations,
		RecoveredErrors:   r.tally.stats.TotalErrors,
		Seed:              r.seed,
		Duration:          elapsed,
	}
	if len(r.tally.stats.ErrorsByCategory) > 0 {
		result.ErrorsByCategory = make(map[string]int, len(r.tally.stats.ErrorsByCategory))
		for cat, n := range r.tally.stats.ErrorsByCategory {
			result.ErrorsByCategory[string(cat)] = n
		}
	}

	ranked := r.tally.pool.Ranked()
	if len(ranked) == 0 {
		return result
	}

	best := ranked[0]
	result.BestCandidate = best.Candidate.Describe()
	result.BestConfiguration = best.Candidate
	result.BestFitness = best.Fitness
	result.BestResult = best.Results

	rest := ranked[1:]
	if len(rest) > r.config.SampleSize {
		rest = rest[:r.config.SampleSize]
	}
	for i, ev := range rest {
		result.SampledResults = append(result.SampledResults, SampledResult{
			Rank:          i + 2,
			Candidate:     ev.Candidate.Describe(),
			Configuration: ev.Candidate,
			Fitness:       ev.Fitness,
			Results:       ev.Results,
		})
	}
	return result
}
