package reporting

// Package reporting writes optimization outcomes to the console and to result files

import (
	"io"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/validation"
)

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResults(w io.Writer, results *backtest.BacktestResults)
	OutputOptimization(w io.Writer, result *optimization.OptimizationResult, symbol string)
	OutputWalkForward(w io.Writer, summary *validation.Summary)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(results *backtest.BacktestResults, path string) error
	WriteSamplesXLSX(result *optimization.OptimizationResult, path string) error
	WriteResultJSON(result *optimization.OptimizationResult, path string) error
	WriteBestConfigYAML(result *optimization.OptimizationResult, path string) error
	WriteCandidateBinary(cfg *params.Configuration, path string) error
	WriteWalkForwardJSON(summary *validation.Summary, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(symbol, interval string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle        int
	CurrencyStyle      int
	PercentStyle       int
	NumberStyle        int
	BaseStyle          int
	RedCurrencyStyle   int
	GreenCurrencyStyle int
	BestRowStyle       int
}

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool
	EnableFiles     bool
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
	YAMLEnabled     bool
	BinaryEnabled   bool
}

// DefaultReportingConfig enables every output under dir
func DefaultReportingConfig(dir string) ReportingConfig {
	return ReportingConfig{
		EnableConsole:   true,
		EnableFiles:     true,
		OutputDirectory: dir,
		ExcelEnabled:    true,
		CSVEnabled:      true,
		JSONEnabled:     true,
		YAMLEnabled:     true,
		BinaryEnabled:   true,
	}
}
