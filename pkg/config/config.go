package config

// Package config loads the optimizer settings from defaults, a config file and the environment

import (
	"fmt"
	"strings"
	"time"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/reporting"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/validation"
)

// Common configuration constants
const (
	DefaultSymbol   = "BTCUSDT"
	DefaultInterval = "1h"
	DefaultDataRoot = "data"
	DefaultExchange = "bybit"
	DefaultCategory = "linear"
	DefaultLimit    = 1000
	ResultsDir      = "results"
	LogsDir         = "logs"

	SourceCSV   = "csv"
	SourceBybit = "bybit"

	// DateLayout is the accepted format of data.start and data.end
	DateLayout = "2006-01-02"
)

// OptimizerConfig is the complete configuration of one optimization run
type OptimizerConfig struct {
	Data       DataConfig                      `mapstructure:"data" json:"data" yaml:"data"`
	Account    AccountConfig                   `mapstructure:"account" json:"account" yaml:"account"`
	Backtest   BacktestConfig                  `mapstructure:"backtest" json:"backtest" yaml:"backtest"`
	Search     optimization.OptimizationConfig `mapstructure:"search" json:"search" yaml:"search"`
	Indicators []IndicatorConfig               `mapstructure:"indicators" json:"indicators" yaml:"indicators"`
	Validation validation.Config               `mapstructure:"validation" json:"validation" yaml:"validation"`
	Output     OutputConfig                    `mapstructure:"output" json:"output" yaml:"output"`
}

// DataConfig selects the bar history
type DataConfig struct {
	// Source is csv or bybit
	Source   string `mapstructure:"source" json:"source" yaml:"source"`
	File     string `mapstructure:"file" json:"file,omitempty" yaml:"file,omitempty"`
	Root     string `mapstructure:"root" json:"root" yaml:"root"`
	Exchange string `mapstructure:"exchange" json:"exchange" yaml:"exchange"`
	Category string `mapstructure:"category" json:"category" yaml:"category"`
	Symbol   string `mapstructure:"symbol" json:"symbol" yaml:"symbol"`
	Interval string `mapstructure:"interval" json:"interval" yaml:"interval"`
	Start    string `mapstructure:"start" json:"start,omitempty" yaml:"start,omitempty"`
	End      string `mapstructure:"end" json:"end,omitempty" yaml:"end,omitempty"`
	// Period keeps only the most recent history, 0 keeps all
	Period time.Duration `mapstructure:"period" json:"period,omitempty" yaml:"period,omitempty"`
	// Limit is the number of bars fetched from the exchange
	Limit   int  `mapstructure:"limit" json:"limit" yaml:"limit"`
	Testnet bool `mapstructure:"testnet" json:"testnet" yaml:"testnet"`
}

// AccountConfig holds the simulated account
type AccountConfig struct {
	InitialBalance float64 `mapstructure:"initial_balance" json:"initial_balance" yaml:"initial_balance"`
	Leverage       float64 `mapstructure:"leverage" json:"leverage" yaml:"leverage"`
	FeeRate        float64 `mapstructure:"fee_rate" json:"fee_rate" yaml:"fee_rate"`
	PositionSize   float64 `mapstructure:"position_size" json:"position_size" yaml:"position_size"`
}

// BacktestConfig holds the replay settings
type BacktestConfig struct {
	MaxConcurrentTrades  int           `mapstructure:"max_concurrent_trades" json:"max_concurrent_trades" yaml:"max_concurrent_trades"`
	WarmupBars           int           `mapstructure:"warmup_bars" json:"warmup_bars" yaml:"warmup_bars"`
	InactivityPeriod     time.Duration `mapstructure:"inactivity_period" json:"inactivity_period" yaml:"inactivity_period"`
	LiquidationThreshold float64       `mapstructure:"liquidation_threshold" json:"liquidation_threshold" yaml:"liquidation_threshold"`
}

// IndicatorConfig names one indicator of the strategy and overrides its searched ranges
type IndicatorConfig struct {
	Kind   string                   `mapstructure:"kind" json:"kind" yaml:"kind"`
	Name   string                   `mapstructure:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Role   string                   `mapstructure:"role" json:"role,omitempty" yaml:"role,omitempty"`
	Fields map[string]FieldOverride `mapstructure:"fields" json:"fields,omitempty" yaml:"fields,omitempty"`
}

// FieldOverride replaces parts of a field's range; nil parts keep the registry default
type FieldOverride struct {
	Value *float64 `mapstructure:"value" json:"value,omitempty" yaml:"value,omitempty"`
	Min   *float64 `mapstructure:"min" json:"min,omitempty" yaml:"min,omitempty"`
	Max   *float64 `mapstructure:"max" json:"max,omitempty" yaml:"max,omitempty"`
	Step  *float64 `mapstructure:"step" json:"step,omitempty" yaml:"step,omitempty"`
}

// OutputConfig controls where results go
type OutputConfig struct {
	Dir         string `mapstructure:"dir" json:"dir" yaml:"dir"`
	LogDir      string `mapstructure:"log_dir" json:"log_dir" yaml:"log_dir"`
	ConsoleOnly bool   `mapstructure:"console_only" json:"console_only" yaml:"console_only"`
	MetricsAddr string `mapstructure:"metrics_addr" json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// NewDefaultOptimizerConfig returns the settings used when nothing is configured:
// an ema_cross trend with atr_risk levels on hourly BTCUSDT bars
func NewDefaultOptimizerConfig() *OptimizerConfig {
	bt := backtest.DefaultConfig()
	return &OptimizerConfig{
		Data: DataConfig{
			Source:   SourceCSV,
			Root:     DefaultDataRoot,
			Exchange: DefaultExchange,
			Category: DefaultCategory,
			Symbol:   DefaultSymbol,
			Interval: DefaultInterval,
			Limit:    DefaultLimit,
		},
		Account: AccountConfig{
			InitialBalance: bt.InitialBalance,
			Leverage:       bt.Leverage,
			FeeRate:        bt.FeeRate,
			PositionSize:   bt.PositionSize,
		},
		Backtest: BacktestConfig{
			MaxConcurrentTrades:  bt.MaxConcurrentTrades,
			WarmupBars:           bt.WarmupBars,
			InactivityPeriod:     bt.InactivityPeriod,
			LiquidationThreshold: bt.LiquidationThreshold,
		},
		Search:     optimization.GetDefaultOptimizationConfig(),
		Indicators: DefaultIndicators(),
		Validation: validation.DefaultConfig(),
		Output: OutputConfig{
			Dir:    ResultsDir,
			LogDir: LogsDir,
		},
	}
}

// DefaultIndicators is the strategy searched when the config names none
func DefaultIndicators() []IndicatorConfig {
	return []IndicatorConfig{
		{Kind: "ema_cross", Name: "trend", Role: "trend"},
		{Kind: "atr_risk", Name: "risk", Role: "risk"},
	}
}

// Timeframe parses the data interval
func (c *OptimizerConfig) Timeframe() (types.Timeframe, error) {
	return types.ParseTimeframe(c.Data.Interval)
}

// BacktestEngineConfig assembles the engine settings from the account and backtest sections
func (c *OptimizerConfig) BacktestEngineConfig() (backtest.Config, error) {
	tf, err := c.Timeframe()
	if err != nil {
		return backtest.Config{}, configError("data.interval", err.Error())
	}
	return backtest.Config{
		InitialBalance:       c.Account.InitialBalance,
		Leverage:             c.Account.Leverage,
		FeeRate:              c.Account.FeeRate,
		PositionSize:         c.Account.PositionSize,
		MaxConcurrentTrades:  c.Backtest.MaxConcurrentTrades,
		WarmupBars:           c.Backtest.WarmupBars,
		InactivityPeriod:     c.Backtest.InactivityPeriod,
		Timeframe:            tf,
		LiquidationThreshold: c.Backtest.LiquidationThreshold,
	}, nil
}

// DateRange parses data.start and data.end. Zero times mean unbounded; the end date is inclusive.
func (c *OptimizerConfig) DateRange() (start, end time.Time, err error) {
	if s := strings.TrimSpace(c.Data.Start); s != "" {
		if start, err = time.Parse(DateLayout, s); err != nil {
			return time.Time{}, time.Time{}, configError("data.start", fmt.Sprintf("expected %s, got %q", DateLayout, s))
		}
	}
	if s := strings.TrimSpace(c.Data.End); s != "" {
		if end, err = time.Parse(DateLayout, s); err != nil {
			return time.Time{}, time.Time{}, configError("data.end", fmt.Sprintf("expected %s, got %q", DateLayout, s))
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	return start, end, nil
}

// ResultsDir returns <output.dir>/<SYMBOL>_<interval>
func (c *OptimizerConfig) ResultsDir() string {
	dir := c.Output.Dir
	if dir == "" {
		dir = ResultsDir
	}
	return reporting.OutputDir(dir, c.Data.Symbol, c.Data.Interval)
}
