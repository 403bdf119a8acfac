package reporting

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/validation"
)

// DefaultConsoleReporter renders results as tables
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a new console reporter
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// OutputResults prints the metrics of one backtest
func (r *DefaultConsoleReporter) OutputResults(w io.Writer, results *backtest.BacktestResults) {
	if results == nil {
		return
	}
	t := newTable(w, "📊 BACKTEST RESULTS")
	t.AppendRows([]table.Row{
		{"💰 Initial Balance", FormatMoney(results.StartBalance)},
		{"💰 Final Balance", FormatMoney(results.EndBalance)},
		{"💵 Net Profit", FormatMoney(results.NetProfit)},
		{"📈 Total Return", FormatPercent(results.TotalReturn * 100)},
		{"📉 Max Drawdown", FormatPercent(results.MaxDrawdown)},
		{"📊 Sharpe Ratio", FormatRatio(results.SharpeRatio)},
		{"💹 Profit Factor", FormatRatio(results.ProfitFactor)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🔄 Total Trades", results.TotalTrades},
		{"✅ Winning Trades", results.WinningTrades},
		{"❌ Losing Trades", results.LosingTrades},
		{"🎯 Win Rate", FormatPercent(results.WinRate * 100)},
		{"⬆️ Long / ⬇️ Short", fmt.Sprintf("%d / %d", results.LongTrades, results.ShortTrades)},
		{"🧾 Commission", FormatMoney(results.TotalCommission)},
		{"⏱️ Trading Activity", FormatPercent(results.TradingActivity)},
		{"📏 Bars Processed", results.BarsProcessed},
	})
	if results.TerminatedEarly {
		t.AppendSeparator()
		t.AppendRow(table.Row{"⚠️ Terminated", results.TerminationReason})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
	})
	t.Render()
}

// OutputOptimization prints the run summary, the best candidate, its backtest and the ranked sample
func (r *DefaultConsoleReporter) OutputOptimization(w io.Writer, result *optimization.OptimizationResult, symbol string) {
	if result == nil {
		return
	}

	summary := newTable(w, "🔍 OPTIMIZATION SUMMARY")
	summary.AppendRows([]table.Row{
		{"Run ID", result.RunID},
		{"Method", string(result.Method)},
		{"Strategy", result.StrategyName},
		{"Symbol", symbol},
		{"Timeframe", string(result.Timeframe)},
		{"Seed", result.Seed},
		{"Combinations", result.TotalCombinations},
		{"Evaluations", result.Evaluations},
		{"Recovered Errors", result.RecoveredErrors},
		{"Duration", result.Duration.Round(time.Millisecond).String()},
	})
	if !result.Empty() {
		summary.AppendSeparator()
		summary.AppendRow(table.Row{"🏆 Best Fitness", FormatRatio(result.BestFitness)})
	}
	summary.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
	})
	summary.Render()

	if result.Empty() {
		fmt.Fprintln(w, "❌ No valid candidate was found")
		r.outputErrors(w, result.ErrorsByCategory)
		return
	}

	best := newTable(w, "🏆 BEST PARAMETERS")
	best.AppendHeader(table.Row{"Indicator", "Role", "Field", "Value", "Range"})
	for _, d := range result.BestCandidate {
		best.AppendRow(table.Row{d.Indicator, d.Role, d.Field, FormatValue(d), FormatRange(d)})
	}
	best.Render()

	r.OutputResults(w, result.BestResult)

	if len(result.SampledResults) > 0 {
		samples := newTable(w, "📋 RANKED SAMPLE")
		samples.AppendHeader(table.Row{"#", "Fitness", "Net Profit", "Return", "Max DD", "Trades", "Win Rate", "PF"})
		for _, s := range result.SampledResults {
			if s.Results == nil {
				continue
			}
			samples.AppendRow(table.Row{
				s.Rank,
				FormatRatio(s.Fitness),
				FormatMoney(s.Results.NetProfit),
				FormatPercent(s.Results.TotalReturn * 100),
				FormatPercent(s.Results.MaxDrawdown),
				s.Results.TotalTrades,
				FormatPercent(s.Results.WinRate * 100),
				FormatRatio(s.Results.ProfitFactor),
			})
		}
		samples.Render()
	}

	r.outputErrors(w, result.ErrorsByCategory)
}

// OutputWalkForward prints one row per fold and the overfitting verdict
func (r *DefaultConsoleReporter) OutputWalkForward(w io.Writer, summary *validation.Summary) {
	if summary == nil {
		return
	}

	folds := newTable(w, fmt.Sprintf("🔄 WALK-FORWARD VALIDATION (%s)", summary.Mode))
	folds.AppendHeader(table.Row{"Fold", "Train", "Test", "Train Return", "Test Return", "Train DD", "Test DD", "Test Trades"})
	for _, f := range summary.Folds {
		train := fmt.Sprintf("%s → %s", f.TrainStart.Format("2006-01-02"), f.TrainEnd.Format("2006-01-02"))
		test := fmt.Sprintf("%s → %s", f.TestStart.Format("2006-01-02"), f.TestEnd.Format("2006-01-02"))
		if !f.Evaluated() {
			folds.AppendRow(table.Row{f.Fold, train, test, "skipped", "", "", "", ""})
			continue
		}
		folds.AppendRow(table.Row{
			f.Fold, train, test,
			FormatPercent(f.TrainResults.TotalReturn * 100),
			FormatPercent(f.TestResults.TotalReturn * 100),
			FormatPercent(f.TrainResults.MaxDrawdown),
			FormatPercent(f.TestResults.MaxDrawdown),
			f.TestResults.TotalTrades,
		})
	}
	folds.Render()

	verdict := "✅ ROBUST"
	switch summary.OverfittingRisk {
	case validation.RiskHigh:
		verdict = "⚠️ HIGH OVERFITTING RISK"
	case validation.RiskModerate:
		verdict = "⚠️ MODERATE OVERFITTING"
	}

	t := newTable(w, "📊 WALK-FORWARD SUMMARY")
	t.AppendRows([]table.Row{
		{"Folds", fmt.Sprintf("%d (%d skipped)", len(summary.Folds), summary.SkippedFolds)},
		{"Train Return", fmt.Sprintf("%s ± %s", FormatPercent(summary.AverageTrainReturn), FormatPercent(summary.TrainReturnStdDev))},
		{"Test Return", fmt.Sprintf("%s ± %s", FormatPercent(summary.AverageTestReturn), FormatPercent(summary.TestReturnStdDev))},
		{"Train Drawdown", FormatPercent(summary.AverageTrainDrawdown)},
		{"Test Drawdown", FormatPercent(summary.AverageTestDrawdown)},
		{"Return Degradation", FormatPercent(summary.ReturnDegradation)},
		{"Verdict", verdict},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
	})
	t.Render()
}

func (r *DefaultConsoleReporter) outputErrors(w io.Writer, errs map[string]int) {
	if len(errs) == 0 {
		return
	}
	categories := make([]string, 0, len(errs))
	for c := range errs {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	t := newTable(w, "⚠️ RECOVERED ERRORS")
	t.AppendHeader(table.Row{"Category", "Count"})
	for _, c := range categories {
		t.AppendRow(table.Row{c, errs[c]})
	}
	t.Render()
}

// FormatMoney renders a dollar amount with two decimals
func FormatMoney(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return FormatRatio(v)
	}
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// FormatPercent renders a value that is already in percent
func FormatPercent(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return FormatRatio(v)
	}
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

// FormatRatio renders a unitless metric, spelling out the non-finite cases
func FormatRatio(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	}
	return decimal.NewFromFloat(v).StringFixed(4)
}

// FormatValue renders a descriptor value according to its field type
func FormatValue(d params.Descriptor) string {
	switch d.Type {
	case params.FieldInt.String():
		return strconv.Itoa(int(d.Value))
	case params.FieldBool.String():
		return strconv.FormatBool(d.Value != 0)
	}
	return strconv.FormatFloat(d.Value, 'f', -1, 64)
}

// FormatRange renders the searched range of a descriptor
func FormatRange(d params.Descriptor) string {
	if d.Type == params.FieldBool.String() {
		return "{false, true}"
	}
	return fmt.Sprintf("[%s, %s] step %s",
		strconv.FormatFloat(d.Min, 'f', -1, 64),
		strconv.FormatFloat(d.Max, 'f', -1, 64),
		strconv.FormatFloat(d.Step, 'f', -1, 64))
}
