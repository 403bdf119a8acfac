package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func float(v float64) *float64 {
	return &v
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := NewDefaultOptimizerConfig()
	require.NoError(t, cfg.Validate())

	engineConfig, err := cfg.BacktestEngineConfig()
	require.NoError(t, err)
	assert.Equal(t, types.Timeframe1h, engineConfig.Timeframe)
	assert.Equal(t, cfg.Account.InitialBalance, engineConfig.InitialBalance)
	assert.Equal(t, cfg.Backtest.WarmupBars, engineConfig.WarmupBars)

	base, err := cfg.BuildConfiguration(params.DefaultRegistry())
	require.NoError(t, err)
	entries := base.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, params.RoleTrend, entries[0].Role)
	assert.Equal(t, "trend", entries[0].Set.Name())
	assert.Equal(t, params.RoleRiskManagement, entries[1].Role)

	assert.Equal(t, filepath.Join("results", "BTCUSDT_1h"), cfg.ResultsDir())
}

func TestLoad_YAMLWithEnvironmentOverrides(t *testing.T) {
	path := writeFile(t, "optimizer.yaml", `
data:
  file: bars.csv
  symbol: ethusdt
  interval: 4h
  start: "2024-01-01"
  end: "2024-03-31"
backtest:
  warmup_bars: 50
  inactivity_period: 168h
search:
  method: ga
  population_size: 30
indicators:
  - kind: ema_cross
    name: fast
    fields:
      fast_period: {min: 5, max: 20, step: 5, value: 10}
  - kind: volume_spike
  - kind: percent_risk
    role: risk
validation:
  enable: true
  rolling: true
  train_days: 60
`)
	t.Setenv("OPTIMIZER_SEARCH_GENERATIONS", "7")
	t.Setenv("OPTIMIZER_ACCOUNT_LEVERAGE", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bars.csv", cfg.Data.File)
	assert.Equal(t, SourceCSV, cfg.Data.Source, "unset keys keep their defaults")
	assert.Equal(t, 50, cfg.Backtest.WarmupBars)
	assert.Equal(t, 7*24*time.Hour, cfg.Backtest.InactivityPeriod)
	assert.Equal(t, optimization.MethodGenetic, cfg.Search.Method)
	assert.Equal(t, 30, cfg.Search.PopulationSize)
	assert.Equal(t, 7, cfg.Search.Generations)
	assert.Equal(t, 3.0, cfg.Account.Leverage)
	assert.True(t, cfg.Validation.Enable)
	assert.Equal(t, 60, cfg.Validation.TrainDays)
	assert.Equal(t, 30, cfg.Validation.TestDays, "unset validation keys keep their defaults")
	assert.Equal(t, filepath.Join("results", "ETHUSDT_4h"), cfg.ResultsDir())

	start, end, err := cfg.DateRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 2024, end.Year())
	assert.Equal(t, time.March, end.Month())
	assert.Equal(t, 31, end.Day())
	assert.Equal(t, 23, end.Hour(), "the end date is inclusive")

	base, err := cfg.BuildConfiguration(params.DefaultRegistry())
	require.NoError(t, err)
	entries := base.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, params.RoleVolume, entries[1].Role)

	fast := entries[0].Set.FieldAt(0)
	assert.Equal(t, params.FieldFastPeriod, fast.Name)
	assert.Equal(t, []float64{5, 20, 5, 10}, []float64{fast.Min, fast.Max, fast.Step, fast.Value})
	assert.Equal(t, 4, fast.GridPoints())
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "optimizer.json", `{
		"data": {"source": "bybit", "symbol": "SOLUSDT", "limit": 500},
		"search": {"method": "exhaustive", "max_combinations": 500}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourceBybit, cfg.Data.Source)
	assert.Equal(t, 500, cfg.Data.Limit)
	assert.Equal(t, optimization.MethodExhaustive, cfg.Search.Method)
	assert.Equal(t, uint64(500), cfg.Search.MaxCombinations)
	assert.Equal(t, DefaultIndicators(), cfg.Indicators)
}

func TestLoad_WithoutFileUsesEnvironment(t *testing.T) {
	t.Setenv("OPTIMIZER_SEARCH_METHOD", "pso")
	t.Setenv("OPTIMIZER_SEARCH_SEED", "99")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, optimization.MethodSwarm, cfg.Search.Method)
	assert.Equal(t, int64(99), cfg.Search.Seed)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, IsConfigError(err))

	path := writeFile(t, "bad.yaml", "search:\n  method: hill-climb\n")
	_, err = Load(path)
	assert.True(t, IsConfigError(err))
}

func TestLoadEnvFiles(t *testing.T) {
	const key = "OPTIMIZER_DATA_SYMBOL"
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeFile(t, "test.env", key+"=adausdt\n")
	require.NoError(t, LoadEnvFiles(filepath.Join(t.TempDir(), "none.env"), path))
	assert.Equal(t, "adausdt", os.Getenv(key))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "adausdt", cfg.Data.Symbol)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *OptimizerConfig)
		field  string
	}{
		{"unknown source", func(c *OptimizerConfig) { c.Data.Source = "ftp" }, "data.source"},
		{"bybit without symbol", func(c *OptimizerConfig) { c.Data.Source = SourceBybit; c.Data.Symbol = "" }, "data.symbol"},
		{"bad interval", func(c *OptimizerConfig) { c.Data.Interval = "7x" }, "data.interval"},
		{"bad date", func(c *OptimizerConfig) { c.Data.Start = "01/02/2024" }, "data.start"},
		{"end before start", func(c *OptimizerConfig) { c.Data.Start = "2024-02-01"; c.Data.End = "2024-01-01" }, "data.end"},
		{"unknown kind", func(c *OptimizerConfig) { c.Indicators[0].Kind = "rsi" }, "indicators[0].kind"},
		{"role mismatch", func(c *OptimizerConfig) { c.Indicators[1].Role = "volume" }, "indicators[1].role"},
		{"unknown field", func(c *OptimizerConfig) {
			c.Indicators[0].Fields = map[string]FieldOverride{"length": {Value: float(3)}}
		}, "indicators[0].fields"},
		{"value outside range", func(c *OptimizerConfig) {
			c.Indicators[0].Fields = map[string]FieldOverride{params.FieldFastPeriod: {Value: float(500)}}
		}, "indicators[0].fields"},
		{"inverted range", func(c *OptimizerConfig) {
			c.Indicators[0].Fields = map[string]FieldOverride{params.FieldFastPeriod: {Min: float(30), Max: float(10)}}
		}, "indicators[0].fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultOptimizerConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsConfigError(err))

			var optErr *opterrors.OptimizerError
			require.ErrorAs(t, err, &optErr)
			assert.Equal(t, tt.field, optErr.Context["field"])
		})
	}
}

func TestValidate_DelegatedSections(t *testing.T) {
	cfg := NewDefaultOptimizerConfig()
	cfg.Account.Leverage = 0.5
	assert.True(t, IsConfigError(cfg.Validate()))

	cfg = NewDefaultOptimizerConfig()
	cfg.Search.Iterations = 0
	assert.True(t, IsConfigError(cfg.Validate()))

	// a risk indicator alone is not a strategy
	cfg = NewDefaultOptimizerConfig()
	cfg.Indicators = cfg.Indicators[1:]
	assert.True(t, IsConfigError(cfg.Validate()))

	cfg = NewDefaultOptimizerConfig()
	cfg.Indicators = nil
	assert.True(t, IsConfigError(cfg.Validate()))

	cfg = NewDefaultOptimizerConfig()
	cfg.Validation.Enable = true
	cfg.Validation.SplitRatio = 1.5
	assert.True(t, IsConfigError(cfg.Validate()))
}
