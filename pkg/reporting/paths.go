package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRoot is the directory results are written under when none is configured
const DefaultRoot = "results"

// Output file names inside a run directory
const (
	ResultFile        = "result.json"
	BestConfigFile    = "best_config.yaml"
	BestCandidateFile = "best_candidate.bin"
	SamplesFile       = "samples.xlsx"
	BestTradesFile    = "best_trades.csv"
	WalkForwardFile   = "walk_forward.json"
)

// DefaultPathManager implements path management functionality
type DefaultPathManager struct {
	root string
}

// NewDefaultPathManager creates a path manager rooted at root
func NewDefaultPathManager(root string) *DefaultPathManager {
	if root == "" {
		root = DefaultRoot
	}
	return &DefaultPathManager{root: root}
}

// GetDefaultOutputDir returns <root>/<SYMBOL>_<interval>
func (p *DefaultPathManager) GetDefaultOutputDir(symbol, interval string) string {
	return OutputDir(p.root, symbol, interval)
}

// EnsureDirectoryExists creates the parent directory of path
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// OutputDir joins root with the normalized <SYMBOL>_<interval> directory name
func OutputDir(root, symbol, interval string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	i := strings.ToLower(strings.TrimSpace(interval))
	if s == "" {
		s = "UNKNOWN"
	}
	if i == "" {
		i = "unknown"
	}
	if root == "" {
		root = DefaultRoot
	}
	return filepath.Join(root, fmt.Sprintf("%s_%s", s, i))
}

// DefaultOutputDir returns the run directory under DefaultRoot
func DefaultOutputDir(symbol, interval string) string {
	return OutputDir(DefaultRoot, symbol, interval)
}
