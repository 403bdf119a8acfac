package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ducminhle1904/crypto-strategy-optimizer/cmd/common"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/exchange/bybit"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/logger"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/monitoring"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/strategy"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/config"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/data"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/reporting"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/validation"
)

// Exit codes
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitCancelled = 130
)

// multiLogger fans log lines out to the console and the run log file
type multiLogger []optimization.Logger

func (m multiLogger) Info(format string, args ...interface{}) {
	for _, l := range m {
		l.Info(format, args...)
	}
}

func (m multiLogger) Warning(format string, args ...interface{}) {
	for _, l := range m {
		l.Warning(format, args...)
	}
}

func (m multiLogger) Error(format string, args ...interface{}) {
	for _, l := range m {
		l.Error(format, args...)
	}
}

// run is main without the process exit
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if common.CheckHelpAndVersion(stdout, opts.fs, opts.Common, newUsage()) {
		return exitOK
	}

	console := common.NewConsole(stdout)
	console.Silent = *opts.Common.Silent
	console.ShowEmojis = !*opts.Common.NoEmojis

	if err := execute(ctx, opts, console); err != nil {
		if opterrors.HasCategory(err, opterrors.ErrorCategoryCancelled) || errors.Is(err, context.Canceled) {
			console.Warning("Cancelled: %v", err)
			return exitCancelled
		}
		console.Error("%v", err)
		return exitFailure
	}
	return exitOK
}

func execute(ctx context.Context, opts *Options, console *common.Console) error {
	if err := config.LoadEnvFiles(*opts.Common.EnvFile); err != nil {
		return err
	}
	cfg, err := config.Load(*opts.Common.ConfigFile)
	if err != nil {
		return err
	}
	opts.Apply(cfg)
	method, err := optimization.ParseMethod(string(cfg.Search.Method))
	if err != nil {
		return err
	}
	cfg.Search.Method = method
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry := params.DefaultRegistry()
	base, err := cfg.BuildConfiguration(registry)
	if err != nil {
		return err
	}

	if opts.CountOnly {
		fmt.Fprintf(console.Writer(), "%d\n", base.PermutationCount())
		return nil
	}

	engineConfig, err := cfg.BacktestEngineConfig()
	if err != nil {
		return err
	}
	engine, err := backtest.NewBacktestEngine(engineConfig)
	if err != nil {
		return err
	}

	console.Header(fmt.Sprintf("%s %s %s", cfg.Data.Symbol, cfg.Data.Interval, cfg.Search.Method))
	bars, err := loadBars(ctx, cfg)
	if err != nil {
		return err
	}
	console.Info("Loaded %d bars from %s to %s", len(bars),
		bars[0].Timestamp.Format(time.RFC3339), bars[len(bars)-1].Timestamp.Format(time.RFC3339))

	codec := params.NewCodec(registry)
	reports := reporting.NewReportingManager(reportingConfig(cfg), codec).WithOutput(console.Writer())

	if opts.Replay != "" {
		return replay(ctx, opts.Replay, codec, engine, bars, reports, cfg, console)
	}

	log := multiLogger{console}
	var fileLog *logger.Logger
	if !cfg.Output.ConsoleOnly {
		fileLog, err = logger.NewLogger(cfg.Output.LogDir, cfg.Data.Symbol, cfg.Data.Interval)
		if err != nil {
			return err
		}
		defer fileLog.Close()
		log = append(log, fileLog)
		console.Info("Logging to %s", fileLog.GetLogPath())
	}

	health := monitoring.NewHealthChecker()
	if cfg.Output.MetricsAddr != "" {
		stop := serveMonitoring(cfg.Output.MetricsAddr, health, console)
		defer stop()
	}

	optimizer, err := optimization.NewOptimizer(cfg.Search, base, engine, bars,
		optimization.WithLogger(log),
		optimization.WithProgress(progressPrinter(console, health)),
	)
	if err != nil {
		return err
	}

	result, err := optimizer.Optimize(ctx)
	health.Finish(err)
	if err != nil {
		if fileLog != nil {
			fileLog.LogError("optimization", err)
		}
		return err
	}
	if fileLog != nil {
		fileLog.LogBestResult(result.StrategyName, result.BestFitness, result.BestResult)
	}

	written, err := reports.ReportOptimization(result, cfg.Data.Symbol, cfg.Data.Interval)
	if err != nil {
		return err
	}
	for _, path := range written {
		console.Success("Wrote %s", path)
	}

	if cfg.Validation.Enable {
		return walkForward(ctx, cfg, base, engine, bars, log, reports, console)
	}
	return nil
}

// walkForward re-optimizes every training window quietly and backtests its winner on the
// bars that follow
func walkForward(ctx context.Context, cfg *config.OptimizerConfig, base *params.Configuration, engine *backtest.BacktestEngine,
	bars []types.OHLCV, log optimization.Logger, reports *reporting.ReportingManager, console *common.Console) error {
	warmup := engine.Config().WarmupBars
	splitter := validation.NewSplitter(warmup+50, warmup+10)

	optimize := func(ctx context.Context, train []types.OHLCV) (*optimization.OptimizationResult, error) {
		o, err := optimization.NewOptimizer(cfg.Search, base, engine, train,
			optimization.WithLogger(optimization.NopLogger()))
		if err != nil {
			return nil, err
		}
		return o.Optimize(ctx)
	}
	backtestFold := func(ctx context.Context, candidate *params.Configuration, test []types.OHLCV) (*backtest.BacktestResults, error) {
		strat, err := strategy.Build(candidate)
		if err != nil {
			return nil, err
		}
		return engine.Run(ctx, test, strat)
	}

	summary, err := validation.NewValidator(cfg.Validation, splitter, optimize, backtestFold).
		WithLogger(log).
		Validate(ctx, bars)
	if err != nil {
		return err
	}
	path, err := reports.ReportWalkForward(summary, cfg.Data.Symbol, cfg.Data.Interval)
	if err != nil {
		return err
	}
	if path != "" {
		console.Success("Wrote %s", path)
	}
	return nil
}

func reportingConfig(cfg *config.OptimizerConfig) reporting.ReportingConfig {
	rc := reporting.DefaultReportingConfig(cfg.Output.Dir)
	rc.EnableFiles = !cfg.Output.ConsoleOnly
	return rc
}

// loadBars reads the configured history from a CSV file or from Bybit
func loadBars(ctx context.Context, cfg *config.OptimizerConfig) ([]types.OHLCV, error) {
	start, end, err := cfg.DateRange()
	if err != nil {
		return nil, err
	}
	window := data.Window{Start: start, End: end, Period: cfg.Data.Period}

	if strings.EqualFold(cfg.Data.Source, config.SourceBybit) {
		tf, err := cfg.Timeframe()
		if err != nil {
			return nil, err
		}
		client := bybit.NewClient(bybit.Config{Testnet: cfg.Data.Testnet})
		provider, err := bybit.NewKlineProvider(client, bybit.KlineProviderConfig{
			Category:  cfg.Data.Category,
			Timeframe: tf,
			Limit:     cfg.Data.Limit,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return nil, err
		}
		return data.NewDataManagerWithProvider(provider).Load(ctx, cfg.Data.Symbol, window)
	}

	manager := data.NewDataManager().WithLocator(&data.DefaultFileLocator{PreferredCategory: cfg.Data.Category})
	file := cfg.Data.File
	if file == "" {
		file = manager.FindDataFile(cfg.Data.Root, cfg.Data.Exchange, cfg.Data.Symbol, cfg.Data.Interval)
		if file == "" {
			return nil, opterrors.NewConfigurationError("optimize", "loadBars",
				fmt.Sprintf("no candles file for %s %s under %s", cfg.Data.Symbol, cfg.Data.Interval, cfg.Data.Root))
		}
	}
	return manager.Load(ctx, file, window)
}

// loadCandidate reads a stored candidate. Decode errors keep their category; an unreadable
// file is a configuration error.
func loadCandidate(codec *params.Codec, path string) (*params.Configuration, error) {
	candidate, err := reporting.ReadCandidateBinary(codec, path)
	if err != nil {
		if opterrors.CategoryOf(err) != "" {
			return nil, err
		}
		return nil, opterrors.WrapError(err, opterrors.ErrorCategoryConfiguration, "optimize", "replay").
			WithContext("path", path)
	}
	return candidate, nil
}

// replay backtests a stored candidate once
func replay(ctx context.Context, path string, codec *params.Codec, engine *backtest.BacktestEngine, bars []types.OHLCV,
	reports *reporting.ReportingManager, cfg *config.OptimizerConfig, console *common.Console) error {
	candidate, err := loadCandidate(codec, path)
	if err != nil {
		return err
	}
	strat, err := strategy.Build(candidate)
	if err != nil {
		return err
	}
	console.Info("Replaying %s", strat.GetName())

	results, err := engine.Run(ctx, bars, strat)
	if err != nil {
		return err
	}
	written, err := reports.ReportBacktest(results, cfg.Data.Symbol, cfg.Data.Interval)
	if err != nil {
		return err
	}
	if written != "" {
		console.Success("Wrote %s", written)
	}
	return nil
}

// progressPrinter feeds the health checker and prints every 10% of the budget
func progressPrinter(console *common.Console, health *monitoring.HealthChecker) optimization.ProgressFunc {
	lastDecile := -1
	return func(current, total int) {
		health.Progress(current, total)
		if total <= 0 {
			return
		}
		decile := current * 10 / total
		if decile > lastDecile {
			lastDecile = decile
			console.Info("Progress %d/%d (%d%%)", current, total, decile*10)
		}
	}
}

// serveMonitoring exposes /metrics and /health until the returned stop function is called
func serveMonitoring(addr string, health *monitoring.HealthChecker, console *common.Console) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/health", health)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			console.Warning("Monitoring server stopped: %v", err)
		}
	}()
	console.Info("Serving metrics on %s/metrics", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
}
