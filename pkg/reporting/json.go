package reporting

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/validation"
)

// DefaultJSONFormatter implements JSON output functionality
type DefaultJSONFormatter struct{}

// NewDefaultJSONFormatter creates a new JSON formatter
func NewDefaultJSONFormatter() *DefaultJSONFormatter {
	return &DefaultJSONFormatter{}
}

// FormatResult renders the optimization result as indented JSON. Non-finite metrics
// are clamped to ±math.MaxFloat64 (NaN becomes 0) since JSON has no infinity.
func (f *DefaultJSONFormatter) FormatResult(result *optimization.OptimizationResult) ([]byte, error) {
	return json.MarshalIndent(sanitizeResult(result), "", "  ")
}

// WriteResultJSON writes the optimization result to path
func (f *DefaultJSONFormatter) WriteResultJSON(result *optimization.OptimizationResult, path string) error {
	data, err := f.FormatResult(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return writeFile(path, data)
}

// WriteWalkForwardJSON writes the walk-forward summary to path
func (f *DefaultJSONFormatter) WriteWalkForwardJSON(summary *validation.Summary, path string) error {
	if summary == nil {
		return fmt.Errorf("no walk-forward summary to write")
	}
	c := *summary
	c.ReturnDegradation = finite(c.ReturnDegradation)
	c.Folds = make([]validation.FoldResult, len(summary.Folds))
	for i, fold := range summary.Folds {
		fold.TrainFitness = finite(fold.TrainFitness)
		fold.TrainResults = sanitizeBacktest(fold.TrainResults)
		fold.TestResults = sanitizeBacktest(fold.TestResults)
		c.Folds[i] = fold
	}
	return WriteJSON(&c, path)
}

// WriteJSON writes any value as indented JSON
func WriteJSON(v interface{}, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

func sanitizeBacktest(r *backtest.BacktestResults) *backtest.BacktestResults {
	if r == nil {
		return nil
	}
	c := *r
	c.NetProfit = finite(c.NetProfit)
	c.TotalReturn = finite(c.TotalReturn)
	c.MaxDrawdown = finite(c.MaxDrawdown)
	c.SharpeRatio = finite(c.SharpeRatio)
	c.ProfitFactor = finite(c.ProfitFactor)
	c.WinRate = finite(c.WinRate)
	c.EndBalance = finite(c.EndBalance)
	return &c
}

func sanitizeResult(result *optimization.OptimizationResult) *optimization.OptimizationResult {
	if result == nil {
		return nil
	}
	c := *result
	c.BestFitness = finite(c.BestFitness)
	c.BestResult = sanitizeBacktest(c.BestResult)
	c.SampledResults = make([]optimization.SampledResult, len(result.SampledResults))
	for i, s := range result.SampledResults {
		s.Fitness = finite(s.Fitness)
		s.Results = sanitizeBacktest(s.Results)
		c.SampledResults[i] = s
	}
	return &c
}
