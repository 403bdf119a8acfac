package main

import (
	"flag"
	"io"
	"time"

	"github.com/ducminhle1904/crypto-strategy-optimizer/cmd/common"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/config"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
)

const appName = "optimize"

// Options holds the parsed command line. Overrides are only applied for flags that were set.
type Options struct {
	Common *common.CommonFlags

	DataFile    string
	Source      string
	Symbol      string
	Interval    string
	Start       string
	End         string
	Period      time.Duration
	Limit       int
	Method      string
	Iterations  int
	Seed        int64
	Workers     int
	MetricsAddr string
	OutputDir   string
	Replay      string
	CountOnly   bool
	WalkForward bool

	set map[string]bool
	fs  *flag.FlagSet
}

// IsSet reports whether the flag was given on the command line
func (o *Options) IsSet(name string) bool {
	return o.set[name]
}

func newUsage() *common.UsageFormatter {
	return common.NewUsageFormatter(appName, "search indicator parameters for the best backtest").
		AddExample("optimize -data data/bybit/linear/BTCUSDT/60/candles.csv -method sa -iterations 5000",
			"Simulated annealing on a local CSV history").
		AddExample("optimize -source bybit -symbol ETHUSDT -interval 4h -method pso -seed 42",
			"Particle swarm on klines fetched from Bybit").
		AddExample("optimize -config optimizer.yaml -count-only",
			"Print the size of the configured search space").
		AddExample("optimize -data candles.csv -replay results/BTCUSDT_1h/best_candidate.bin",
			"Backtest a saved candidate once").
		AddExample("optimize -config optimizer.yaml -walk-forward",
			"Optimize, then check the parameters on unseen bars")
}

// parseFlags parses args into Options. errOut receives flag errors.
func parseFlags(args []string, errOut io.Writer) (*Options, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(errOut)

	o := &Options{Common: common.RegisterCommonFlags(fs), fs: fs}
	fs.StringVar(&o.DataFile, "data", "", "CSV file with OHLCV bars")
	fs.StringVar(&o.Source, "source", "", "Data source: csv or bybit")
	fs.StringVar(&o.Symbol, "symbol", "", "Trading symbol, e.g. BTCUSDT")
	fs.StringVar(&o.Interval, "interval", "", "Bar timeframe, e.g. 5m, 1h, 4h")
	fs.StringVar(&o.Start, "start", "", "First day of history (YYYY-MM-DD)")
	fs.StringVar(&o.End, "end", "", "Last day of history (YYYY-MM-DD, inclusive)")
	fs.DurationVar(&o.Period, "period", 0, "Keep only the most recent period of history, e.g. 720h")
	fs.IntVar(&o.Limit, "limit", 0, "Bars fetched from the exchange")
	fs.StringVar(&o.Method, "method", "", "Search method: annealing (sa), swarm (pso), exhaustive (grid), genetic (ga)")
	fs.IntVar(&o.Iterations, "iterations", 0, "Iteration budget per search instance")
	fs.Int64Var(&o.Seed, "seed", 0, "Random seed, 0 picks one from the clock")
	fs.IntVar(&o.Workers, "workers", 0, "Maximum concurrent backtests, 0 uses all CPUs")
	fs.StringVar(&o.MetricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address, e.g. :9090")
	fs.StringVar(&o.OutputDir, "output", "", "Results root directory")
	fs.StringVar(&o.Replay, "replay", "", "Backtest the candidate stored in this .bin file instead of searching")
	fs.BoolVar(&o.CountOnly, "count-only", false, "Print the number of combinations and exit")
	fs.BoolVar(&o.WalkForward, "walk-forward", false, "Validate the search on out-of-sample windows after optimizing")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	v := common.NewFlagValidator().
		ValidateChoice("source", o.Source, []string{config.SourceCSV, config.SourceBybit}).
		ValidateFile("data", o.DataFile, false).
		ValidateFile("replay", o.Replay, false)
	if o.IsSet("iterations") {
		v.ValidateInt("iterations", o.Iterations, 1, 1<<30)
	}
	if o.IsSet("workers") {
		v.ValidateInt("workers", o.Workers, 0, 4096)
	}
	if o.IsSet("limit") {
		v.ValidateInt("limit", o.Limit, 1, 1<<24)
	}
	if o.Method != "" {
		if _, err := optimization.ParseMethod(o.Method); err != nil {
			v.AddError(err.Error())
		}
	}
	if o.Replay != "" && o.CountOnly {
		v.AddError("replay and count-only cannot be combined")
	}
	if err := v.GetError(); err != nil {
		return nil, err
	}
	return o, nil
}

// Apply copies the flags that were set onto cfg
func (o *Options) Apply(cfg *config.OptimizerConfig) {
	if o.IsSet("data") {
		cfg.Data.File = o.DataFile
		if !o.IsSet("source") {
			cfg.Data.Source = config.SourceCSV
		}
	}
	if o.IsSet("source") {
		cfg.Data.Source = o.Source
	}
	if o.IsSet("symbol") {
		cfg.Data.Symbol = o.Symbol
	}
	if o.IsSet("interval") {
		cfg.Data.Interval = o.Interval
	}
	if o.IsSet("start") {
		cfg.Data.Start = o.Start
	}
	if o.IsSet("end") {
		cfg.Data.End = o.End
	}
	if o.IsSet("period") {
		cfg.Data.Period = o.Period
	}
	if o.IsSet("limit") {
		cfg.Data.Limit = o.Limit
	}
	if o.IsSet("method") {
		cfg.Search.Method = optimization.Method(o.Method)
	}
	if o.IsSet("iterations") {
		cfg.Search.Iterations = o.Iterations
		cfg.Search.Generations = o.Iterations
	}
	if o.IsSet("seed") {
		cfg.Search.Seed = o.Seed
	}
	if o.IsSet("workers") {
		cfg.Search.MaxWorkers = o.Workers
	}
	if o.IsSet("metrics-addr") {
		cfg.Output.MetricsAddr = o.MetricsAddr
	}
	if o.IsSet("output") {
		cfg.Output.Dir = o.OutputDir
	}
	if o.IsSet("walk-forward") {
		cfg.Validation.Enable = o.WalkForward
	}
	if *o.Common.ConsoleOnly {
		cfg.Output.ConsoleOnly = true
	}
}
