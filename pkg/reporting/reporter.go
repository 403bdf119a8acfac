package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/validation"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	json    *DefaultJSONFormatter
	paths   *DefaultPathManager
	codec   *params.Codec
}

var _ Reporter = (*DefaultReporter)(nil)

// NewDefaultReporter creates a reporter writing under root; codec encodes candidate files
func NewDefaultReporter(root string, codec *params.Codec) *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		json:    NewDefaultJSONFormatter(),
		paths:   NewDefaultPathManager(root),
		codec:   codec,
	}
}

// Console output methods
func (r *DefaultReporter) OutputResults(w io.Writer, results *backtest.BacktestResults) {
	r.console.OutputResults(w, results)
}

func (r *DefaultReporter) OutputOptimization(w io.Writer, result *optimization.OptimizationResult, symbol string) {
	r.console.OutputOptimization(w, result, symbol)
}

func (r *DefaultReporter) OutputWalkForward(w io.Writer, summary *validation.Summary) {
	r.console.OutputWalkForward(w, summary)
}

// File output methods
func (r *DefaultReporter) WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	return r.csv.WriteTradesCSV(results, path)
}

func (r *DefaultReporter) WriteSamplesXLSX(result *optimization.OptimizationResult, path string) error {
	return r.excel.WriteSamplesXLSX(result, path)
}

func (r *DefaultReporter) WriteResultJSON(result *optimization.OptimizationResult, path string) error {
	return r.json.WriteResultJSON(result, path)
}

func (r *DefaultReporter) WriteBestConfigYAML(result *optimization.OptimizationResult, path string) error {
	return WriteBestConfigYAML(result, path)
}

func (r *DefaultReporter) WriteCandidateBinary(cfg *params.Configuration, path string) error {
	return WriteCandidateBinary(r.codec, cfg, path)
}

func (r *DefaultReporter) WriteWalkForwardJSON(summary *validation.Summary, path string) error {
	return r.json.WriteWalkForwardJSON(summary, path)
}

// Path management methods
func (r *DefaultReporter) GetDefaultOutputDir(symbol, interval string) string {
	return r.paths.GetDefaultOutputDir(symbol, interval)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// ReportingManager provides a high-level interface for all reporting needs
type ReportingManager struct {
	reporter *DefaultReporter
	config   ReportingConfig
	out      io.Writer
}

// NewReportingManager creates a new reporting manager with configuration
func NewReportingManager(config ReportingConfig, codec *params.Codec) *ReportingManager {
	return &ReportingManager{
		reporter: NewDefaultReporter(config.OutputDirectory, codec),
		config:   config,
		out:      os.Stdout,
	}
}

// WithOutput redirects console output
func (m *ReportingManager) WithOutput(w io.Writer) *ReportingManager {
	m.out = w
	return m
}

// ReportOptimization prints the result and writes the enabled files to
// <output>/<SYMBOL>_<interval>. It returns the paths written.
func (m *ReportingManager) ReportOptimization(result *optimization.OptimizationResult, symbol, interval string) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputOptimization(m.out, result, symbol)
	}
	if !m.config.EnableFiles {
		return nil, nil
	}

	outputDir := m.reporter.GetDefaultOutputDir(symbol, interval)
	var written []string
	write := func(name string, fn func(path string) error) error {
		path := filepath.Join(outputDir, name)
		if err := fn(path); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if m.config.JSONEnabled {
		if err := write(ResultFile, func(p string) error { return m.reporter.WriteResultJSON(result, p) }); err != nil {
			return written, err
		}
	}
	if m.config.ExcelEnabled {
		if err := write(SamplesFile, func(p string) error { return m.reporter.WriteSamplesXLSX(result, p) }); err != nil {
			return written, err
		}
	}
	if result.Empty() {
		return written, nil
	}

	if m.config.YAMLEnabled {
		if err := write(BestConfigFile, func(p string) error { return m.reporter.WriteBestConfigYAML(result, p) }); err != nil {
			return written, err
		}
	}
	if m.config.BinaryEnabled && result.BestConfiguration != nil {
		if err := write(BestCandidateFile, func(p string) error { return m.reporter.WriteCandidateBinary(result.BestConfiguration, p) }); err != nil {
			return written, err
		}
	}
	if m.config.CSVEnabled {
		if err := write(BestTradesFile, func(p string) error { return m.reporter.WriteTradesCSV(result.BestResult, p) }); err != nil {
			return written, err
		}
	}
	return written, nil
}

// ReportBacktest prints a single backtest, used when replaying a saved candidate
func (m *ReportingManager) ReportBacktest(results *backtest.BacktestResults, symbol, interval string) (string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputResults(m.out, results)
	}
	if !m.config.EnableFiles || !m.config.CSVEnabled {
		return "", nil
	}
	path := filepath.Join(m.reporter.GetDefaultOutputDir(symbol, interval), "replay_trades.csv")
	if err := m.reporter.WriteTradesCSV(results, path); err != nil {
		return "", fmt.Errorf("failed to write replay trades: %w", err)
	}
	return path, nil
}

// ReportWalkForward prints the walk-forward summary and writes walk_forward.json
func (m *ReportingManager) ReportWalkForward(summary *validation.Summary, symbol, interval string) (string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputWalkForward(m.out, summary)
	}
	if !m.config.EnableFiles || !m.config.JSONEnabled {
		return "", nil
	}
	path := filepath.Join(m.reporter.GetDefaultOutputDir(symbol, interval), WalkForwardFile)
	if err := m.reporter.WriteWalkForwardJSON(summary, path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", WalkForwardFile, err)
	}
	return path, nil
}
