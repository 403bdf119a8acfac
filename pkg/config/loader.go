package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
)

// EnvPrefix prefixes every environment override, e.g. OPTIMIZER_SEARCH_ITERATIONS
const EnvPrefix = "OPTIMIZER"

// LoadEnvFiles loads .env style files into the process environment. Missing files are skipped;
// variables already set in the environment win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Printf("⚠️ Environment file %s not found, using system environment", path)
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return opterrors.WrapError(err, opterrors.ErrorCategoryConfiguration, "config", "LoadEnvFiles").
				WithContext("path", path)
		}
	}
	return nil
}

// Load reads the defaults, then the config file at path (JSON or YAML by extension, skipped when
// path is empty), then OPTIMIZER_* environment overrides, and validates the result
func Load(path string) (*OptimizerConfig, error) {
	v := viper.New()
	setDefaults(v, NewDefaultOptimizerConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, opterrors.WrapError(err, opterrors.ErrorCategoryConfiguration, "config", "Load").
				WithContext("path", path)
		}
	}

	cfg := NewDefaultOptimizerConfig()
	cfg.Indicators = nil
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, opterrors.WrapError(err, opterrors.ErrorCategoryConfiguration, "config", "Load")
	}
	if len(cfg.Indicators) == 0 {
		cfg.Indicators = DefaultIndicators()
	}

	method, err := optimization.ParseMethod(string(cfg.Search.Method))
	if err != nil {
		return nil, err
	}
	cfg.Search.Method = method

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can override it during Unmarshal
func setDefaults(v *viper.Viper, d *OptimizerConfig) {
	defaults := map[string]interface{}{
		"data.source":   d.Data.Source,
		"data.file":     d.Data.File,
		"data.root":     d.Data.Root,
		"data.exchange": d.Data.Exchange,
		"data.category": d.Data.Category,
		"data.symbol":   d.Data.Symbol,
		"data.interval": d.Data.Interval,
		"data.start":    d.Data.Start,
		"data.end":      d.Data.End,
		"data.period":   d.Data.Period,
		"data.limit":    d.Data.Limit,
		"data.testnet":  d.Data.Testnet,

		"account.initial_balance": d.Account.InitialBalance,
		"account.leverage":        d.Account.Leverage,
		"account.fee_rate":        d.Account.FeeRate,
		"account.position_size":   d.Account.PositionSize,

		"backtest.max_concurrent_trades": d.Backtest.MaxConcurrentTrades,
		"backtest.warmup_bars":           d.Backtest.WarmupBars,
		"backtest.inactivity_period":     d.Backtest.InactivityPeriod,
		"backtest.liquidation_threshold": d.Backtest.LiquidationThreshold,

		"search.method":                string(d.Search.Method),
		"search.iterations":            d.Search.Iterations,
		"search.instances":             d.Search.Instances,
		"search.initial_temperature":   d.Search.InitialTemperature,
		"search.final_temperature":     d.Search.FinalTemperature,
		"search.swarm_size":            d.Search.SwarmSize,
		"search.inertia":               d.Search.Inertia,
		"search.cognitive":             d.Search.Cognitive,
		"search.social":                d.Search.Social,
		"search.bool_flip_probability": d.Search.BoolFlipProbability,
		"search.population_size":       d.Search.PopulationSize,
		"search.generations":           d.Search.Generations,
		"search.mutation_rate":         d.Search.MutationRate,
		"search.crossover_rate":        d.Search.CrossoverRate,
		"search.elite_size":            d.Search.EliteSize,
		"search.tournament_size":       d.Search.TournamentSize,
		"search.max_combinations":      d.Search.MaxCombinations,
		"search.max_workers":           d.Search.MaxWorkers,
		"search.sample_size":           d.Search.SampleSize,
		"search.max_drawdown":          d.Search.MaxDrawdown,
		"search.seed":                  d.Search.Seed,

		"validation.enable":      d.Validation.Enable,
		"validation.rolling":     d.Validation.Rolling,
		"validation.split_ratio": d.Validation.SplitRatio,
		"validation.train_days":  d.Validation.TrainDays,
		"validation.test_days":   d.Validation.TestDays,
		"validation.roll_days":   d.Validation.RollDays,

		"output.dir":          d.Output.Dir,
		"output.log_dir":      d.Output.LogDir,
		"output.console_only": d.Output.ConsoleOnly,
		"output.metrics_addr": d.Output.MetricsAddr,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func configError(field, message string) error {
	return opterrors.NewConfigurationError("config", "Validate", fmt.Sprintf("%s: %s", field, message)).
		WithContext("field", field)
}
