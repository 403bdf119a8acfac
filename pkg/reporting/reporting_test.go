package reporting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/strategy"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/validation"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func candidate(t *testing.T) *params.Configuration {
	t.Helper()
	reg := params.DefaultRegistry()
	trend, err := reg.NewSet("ema_cross", "fast_slow")
	require.NoError(t, err)
	risk, err := reg.NewSet("atr_risk", "atr")
	require.NoError(t, err)
	return params.NewConfiguration(
		params.Entry{Role: params.RoleTrend, Set: trend},
		params.Entry{Role: params.RoleRiskManagement, Set: risk},
	)
}

func backtestResults() *backtest.BacktestResults {
	return &backtest.BacktestResults{
		StartBalance:    10000,
		EndBalance:      10080,
		NetProfit:       80,
		TotalReturn:     0.008,
		MaxDrawdown:     1.5,
		SharpeRatio:     0.9,
		ProfitFactor:    3,
		WinRate:         0.5,
		TotalTrades:     2,
		WinningTrades:   1,
		LosingTrades:    1,
		LongTrades:      1,
		ShortTrades:     1,
		TotalCommission: 4.8,
		BarsProcessed:   500,
		StartTime:       start,
		EndTime:         start.Add(500 * time.Hour),
		Trades: []backtest.Trade{
			{
				ID: 1, Direction: strategy.DirectionLong,
				EntryTime: start.Add(10 * time.Hour), ExitTime: start.Add(20 * time.Hour),
				EntryPrice: 100, ExitPrice: 106, StopLoss: 96, TakeProfit: 106,
				Quantity: 100, Margin: 2000, PnL: 120, Commission: 2.4, ExitReason: backtest.ExitTakeProfit,
			},
			{
				ID: 2, Direction: strategy.DirectionShort,
				EntryTime: start.Add(30 * time.Hour), ExitTime: start.Add(35 * time.Hour),
				EntryPrice: 104, ExitPrice: 108, StopLoss: 108, TakeProfit: 98,
				Quantity: 10, Margin: 208, PnL: -40, Commission: 2.4, ExitReason: backtest.ExitStopLoss,
			},
		},
	}
}

func optimizationResult(t *testing.T) *optimization.OptimizationResult {
	t.Helper()
	cfg := candidate(t)
	best := backtestResults()
	second := backtestResults()
	second.NetProfit = -15
	second.ProfitFactor = math.Inf(1)
	return &optimization.OptimizationResult{
		RunID:             "run-1",
		Method:            optimization.MethodAnnealing,
		StrategyName:      "fast_slow+atr",
		BestCandidate:     cfg.Describe(),
		BestConfiguration: cfg,
		BestFitness:       0.42,
		BestResult:        best,
		SampledResults: []optimization.SampledResult{
			{Rank: 1, Candidate: cfg.Describe(), Configuration: cfg, Fitness: 0.42, Results: best},
			{Rank: 2, Candidate: cfg.Describe(), Configuration: cfg, Fitness: math.Inf(-1), Results: second},
		},
		TotalCombinations: cfg.PermutationCount(),
		Timeframe:         types.Timeframe1h,
		Evaluations:       200,
		RecoveredErrors:   3,
		ErrorsByCategory:  map[string]int{"INVALID_RESULT": 3},
		Seed:              7,
		Duration:          1500 * time.Millisecond,
	}
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "$1234.50", FormatMoney(1234.5))
	assert.Equal(t, "-$12.50", FormatMoney(-12.5))
	assert.Equal(t, "$0.00", FormatMoney(0))
	assert.Equal(t, "12.50%", FormatPercent(12.5))
	assert.Equal(t, "0.2500", FormatRatio(0.25))
	assert.Equal(t, "∞", FormatRatio(math.Inf(1)))
	assert.Equal(t, "-∞", FormatMoney(math.Inf(-1)))
	assert.Equal(t, "n/a", FormatPercent(math.NaN()))

	assert.Equal(t, "12", FormatValue(params.Descriptor{Type: "int", Value: 12}))
	assert.Equal(t, "true", FormatValue(params.Descriptor{Type: "bool", Value: 1}))
	assert.Equal(t, "0.85", FormatValue(params.Descriptor{Type: "float", Value: 0.85}))
	assert.Equal(t, "[5, 50] step 1", FormatRange(params.Descriptor{Type: "int", Min: 5, Max: 50, Step: 1}))
	assert.Equal(t, "{false, true}", FormatRange(params.Descriptor{Type: "bool", Max: 1, Step: 1}))
}

func TestOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("results", "BTCUSDT_1h"), DefaultOutputDir(" btcusdt ", "1H"))
	assert.Equal(t, filepath.Join("out", "UNKNOWN_unknown"), OutputDir("out", "", ""))
	assert.Equal(t, filepath.Join("results", "ETHUSDT_4h"), NewDefaultPathManager("").GetDefaultOutputDir("ethusdt", "4h"))
}

func TestConsoleReporter_OutputOptimization(t *testing.T) {
	var buf bytes.Buffer
	NewDefaultConsoleReporter().OutputOptimization(&buf, optimizationResult(t), "BTCUSDT")
	out := buf.String()

	assert.Contains(t, out, "OPTIMIZATION SUMMARY")
	assert.Contains(t, out, "BEST PARAMETERS")
	assert.Contains(t, out, "fast_slow")
	assert.Contains(t, out, "take_profit_mult")
	assert.Contains(t, out, "BACKTEST RESULTS")
	assert.Contains(t, out, "$10080.00")
	assert.Contains(t, out, "RANKED SAMPLE")
	assert.Contains(t, out, "INVALID_RESULT")

	buf.Reset()
	empty := &optimization.OptimizationResult{Method: optimization.MethodSwarm, BestFitness: math.Inf(-1)}
	NewDefaultConsoleReporter().OutputOptimization(&buf, empty, "BTCUSDT")
	assert.Contains(t, buf.String(), "No valid candidate")
	assert.NotContains(t, buf.String(), "BEST PARAMETERS")
}

func TestWriteResultJSON_ClampsNonFiniteMetrics(t *testing.T) {
	result := optimizationResult(t)
	path := filepath.Join(t.TempDir(), "nested", ResultFile)
	require.NoError(t, NewDefaultJSONFormatter().WriteResultJSON(result, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded struct {
		RunID          string              `json:"run_id"`
		BestFitness    float64             `json:"best_fitness"`
		BestCandidate  []params.Descriptor `json:"best_candidate"`
		SampledResults []struct {
			Fitness float64                  `json:"fitness"`
			Results backtest.BacktestResults `json:"results"`
		} `json:"sampled_results"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, 0.42, decoded.BestFitness)
	assert.Len(t, decoded.BestCandidate, 6)
	require.Len(t, decoded.SampledResults, 2)
	assert.Equal(t, -math.MaxFloat64, decoded.SampledResults[1].Fitness)
	assert.Equal(t, math.MaxFloat64, decoded.SampledResults[1].Results.ProfitFactor)

	assert.True(t, math.IsInf(result.SampledResults[1].Fitness, -1), "the result itself is untouched")
}

func TestBestConfigYAML(t *testing.T) {
	result := optimizationResult(t)
	doc := NewBestConfigDocument(result)
	require.Len(t, doc.Indicators, 2)
	assert.Equal(t, "ema_cross", doc.Indicators[0].Kind)
	assert.Equal(t, "trend", doc.Indicators[0].Role)
	assert.Equal(t, "atr_risk", doc.Indicators[1].Kind)
	assert.Equal(t, "risk", doc.Indicators[1].Role)
	assert.Equal(t, FieldDocument{Value: 12, Min: 5, Max: 50, Step: 1}, doc.Indicators[0].Fields[params.FieldFastPeriod])

	path := filepath.Join(t.TempDir(), BestConfigFile)
	require.NoError(t, WriteBestConfigYAML(result, path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded BestConfigDocument
	require.NoError(t, yaml.Unmarshal(raw, &decoded))
	assert.Equal(t, doc, decoded)
}

func TestCandidateBinary_RoundTrip(t *testing.T) {
	cfg := candidate(t)
	require.NoError(t, cfg.Entries()[0].Set.Set(params.FieldFastPeriod, 20))
	codec := params.NewCodec(params.DefaultRegistry())

	path := filepath.Join(t.TempDir(), BestCandidateFile)
	require.NoError(t, WriteCandidateBinary(codec, cfg, path))
	decoded, err := ReadCandidateBinary(codec, path)
	require.NoError(t, err)
	assert.True(t, cfg.Equal(decoded))

	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0644))
	_, err = ReadCandidateBinary(codec, path)
	assert.Error(t, err)
	assert.Error(t, WriteCandidateBinary(codec, nil, path))
}

func TestWriteTradesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades", BestTradesFile)
	require.NoError(t, WriteTradesCSV(backtestResults(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, tradeColumns, rows[0])
	assert.Equal(t, "LONG", rows[1][1])
	assert.Equal(t, "2024-03-01 10:00:00", rows[1][2])
	assert.Equal(t, "$120.00", rows[1][10])
	assert.Equal(t, "W", rows[1][13])
	assert.Equal(t, "-$40.00", rows[2][10])
	assert.Equal(t, backtest.ExitStopLoss, rows[2][12])
	assert.Equal(t, "L", rows[2][13])
	assert.Contains(t, rows[3][13], "total_pnl=$80.00")

	assert.Error(t, WriteTradesCSV(nil, path))
}

func TestWriteSamplesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), SamplesFile)
	require.NoError(t, NewDefaultExcelReporter().WriteSamplesXLSX(optimizationResult(t), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{SummarySheet, SamplesSheet, BestTradesSheet}, fx.GetSheetList())

	samples, err := fx.GetRows(SamplesSheet)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, sampleColumns, samples[0])
	assert.Contains(t, samples[1][len(sampleColumns)-1], "fast_slow.fast_period=12")

	trades, err := fx.GetRows(BestTradesSheet)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, "SHORT", trades[2][1])

	method, err := fx.GetCellValue(SummarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, string(optimization.MethodAnnealing), method)
}

func TestReportingManager_ReportOptimization(t *testing.T) {
	dir := t.TempDir()
	codec := params.NewCodec(params.DefaultRegistry())
	var buf bytes.Buffer
	manager := NewReportingManager(DefaultReportingConfig(dir), codec).WithOutput(&buf)

	written, err := manager.ReportOptimization(optimizationResult(t), "btcusdt", "1h")
	require.NoError(t, err)

	runDir := filepath.Join(dir, "BTCUSDT_1h")
	assert.ElementsMatch(t, []string{
		filepath.Join(runDir, ResultFile),
		filepath.Join(runDir, SamplesFile),
		filepath.Join(runDir, BestConfigFile),
		filepath.Join(runDir, BestCandidateFile),
		filepath.Join(runDir, BestTradesFile),
	}, written)
	for _, p := range written {
		assert.FileExists(t, p)
	}
	assert.Contains(t, buf.String(), "BEST PARAMETERS")

	decoded, err := ReadCandidateBinary(codec, filepath.Join(runDir, BestCandidateFile))
	require.NoError(t, err)
	assert.Equal(t, "fast_slow", decoded.Entries()[0].Set.Name())
}

func TestReportingManager_EmptyResultAndConsoleOnly(t *testing.T) {
	dir := t.TempDir()
	codec := params.NewCodec(params.DefaultRegistry())
	var buf bytes.Buffer
	manager := NewReportingManager(DefaultReportingConfig(dir), codec).WithOutput(&buf)

	empty := &optimization.OptimizationResult{RunID: "run-2", Method: optimization.MethodExhaustive, BestFitness: math.Inf(-1)}
	written, err := manager.ReportOptimization(empty, "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Len(t, written, 2, "only the result and the workbook are written without a best candidate")

	cfg := DefaultReportingConfig(dir)
	cfg.EnableFiles = false
	written, err = NewReportingManager(cfg, codec).WithOutput(&buf).ReportOptimization(optimizationResult(t), "ETHUSDT", "4h")
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.NoDirExists(t, filepath.Join(dir, "ETHUSDT_4h"))

	path, err := NewReportingManager(DefaultReportingConfig(dir), codec).WithOutput(&buf).ReportBacktest(backtestResults(), "ETHUSDT", "4h")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestReportingManager_ReportWalkForward(t *testing.T) {
	trained := backtestResults()
	trained.ProfitFactor = math.Inf(1)
	summary := &validation.Summary{
		Mode: validation.ModeRolling,
		Folds: []validation.FoldResult{
			{
				Fold: 1, TrainStart: start, TrainEnd: start.AddDate(0, 0, 10),
				TestStart: start.AddDate(0, 0, 10), TestEnd: start.AddDate(0, 0, 15),
				TrainBars: 240, TestBars: 120,
				BestCandidate: candidate(t).Describe(),
				TrainFitness:  1.2,
				TrainResults:  trained,
				TestResults:   backtestResults(),
			},
			{Fold: 2, TrainStart: start.AddDate(0, 0, 5), TestStart: start.AddDate(0, 0, 15)},
		},
		SkippedFolds:       1,
		AverageTrainReturn: 0.8,
		AverageTestReturn:  0.8,
		OverfittingRisk:    validation.RiskModerate,
	}

	dir := t.TempDir()
	var buf bytes.Buffer
	manager := NewReportingManager(DefaultReportingConfig(dir), params.NewCodec(params.DefaultRegistry())).WithOutput(&buf)
	path, err := manager.ReportWalkForward(summary, "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "BTCUSDT_1h", WalkForwardFile), path)

	out := buf.String()
	assert.Contains(t, out, "WALK-FORWARD VALIDATION (rolling)")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "MODERATE OVERFITTING")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded struct {
		Mode  string `json:"mode"`
		Folds []struct {
			TrainResults *struct {
				ProfitFactor float64 `json:"profit_factor"`
			} `json:"train_results"`
		} `json:"folds"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, validation.ModeRolling, decoded.Mode)
	require.Len(t, decoded.Folds, 2)
	assert.Equal(t, math.MaxFloat64, decoded.Folds[0].TrainResults.ProfitFactor)
	assert.Nil(t, decoded.Folds[1].TrainResults)
	assert.True(t, math.IsInf(summary.Folds[0].TrainResults.ProfitFactor, 1), "the summary itself is not modified")
}
