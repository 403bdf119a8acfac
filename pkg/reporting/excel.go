package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

// Sheet names of the samples workbook
const (
	SummarySheet    = "Summary"
	SamplesSheet    = "Samples"
	BestTradesSheet = "Best Trades"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteSamplesXLSX writes the run summary, the ranked sample and the trades of the best candidate
func (r *DefaultExcelReporter) WriteSamplesXLSX(result *optimization.OptimizationResult, path string) error {
	if result == nil {
		return fmt.Errorf("no optimization result to write")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), SummarySheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(SamplesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(BestTradesSheet); err != nil {
		return err
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, SummarySheet, result, styles); err != nil {
		return err
	}
	if err := r.writeSamplesSheet(fx, SamplesSheet, result, styles); err != nil {
		return err
	}
	var best *backtest.BacktestResults
	if !result.Empty() {
		best = result.BestResult
	}
	if err := r.writeTradesSheet(fx, BestTradesSheet, best, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

var lightBorder = []excelize.Border{
	{Type: "left", Color: "E0E0E0", Style: 1},
	{Type: "right", Color: "E0E0E0", Style: 1},
	{Type: "bottom", Color: "E0E0E0", Style: 1},
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	// Dark slate header with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.NumberStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: lightBorder})
	if err != nil {
		return styles, err
	}

	styles.RedCurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Font:      &excelize.Font{Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.GreenCurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Font:      &excelize.Font{Color: "008000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    lightBorder,
	})
	if err != nil {
		return styles, err
	}

	// Light green fill marks the best candidate
	styles.BestRowStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"E6FFE6"},
			Pattern: 1,
		},
		Border: lightBorder,
	})
	if err != nil {
		return styles, err
	}

	return styles, nil
}

// writeRow writes values starting at column A; styles[i] applies to values[i] when non-zero
func writeRow(fx *excelize.File, sheet string, row int, values []interface{}, styles []int) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if i < len(styles) && styles[i] != 0 {
			if err := fx.SetCellStyle(sheet, cell, cell, styles[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeHeader(fx *excelize.File, sheet string, row int, headers []string, style int) error {
	values := make([]interface{}, len(headers))
	styles := make([]int, len(headers))
	for i, h := range headers {
		values[i] = h
		styles[i] = style
	}
	return writeRow(fx, sheet, row, values, styles)
}

func setColumnWidths(fx *excelize.File, sheet string, widths []float64) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := fx.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, result *optimization.OptimizationResult, styles ExcelStyles) error {
	if err := setColumnWidths(fx, sheet, []float64{22, 18, 12, 16, 40}); err != nil {
		return err
	}
	if err := writeHeader(fx, sheet, 1, []string{"Setting", "Value"}, styles.HeaderStyle); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Run ID", result.RunID},
		{"Method", string(result.Method)},
		{"Strategy", result.StrategyName},
		{"Timeframe", string(result.Timeframe)},
		{"Seed", result.Seed},
		{"Combinations", result.TotalCombinations},
		{"Evaluations", result.Evaluations},
		{"Recovered Errors", result.RecoveredErrors},
		{"Duration", result.Duration.String()},
		{"Best Fitness", FormatRatio(result.BestFitness)},
	}
	row := 2
	for _, values := range rows {
		if err := writeRow(fx, sheet, row, values, []int{styles.BaseStyle, styles.BaseStyle}); err != nil {
			return err
		}
		row++
	}

	// Best candidate parameters below the run settings
	row++
	if err := writeHeader(fx, sheet, row, []string{"Indicator", "Role", "Field", "Value", "Range"}, styles.HeaderStyle); err != nil {
		return err
	}
	row++
	for _, d := range result.BestCandidate {
		values := []interface{}{d.Indicator, d.Role, d.Field, FormatValue(d), FormatRange(d)}
		if err := writeRow(fx, sheet, row, values, []int{styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle}); err != nil {
			return err
		}
		row++
	}
	return nil
}

var sampleColumns = []string{
	"Rank", "Fitness", "Net Profit", "Return", "Max Drawdown", "Win Rate",
	"Trades", "Profit Factor", "Sharpe", "Commission", "Liquidated", "Parameters",
}

func (r *DefaultExcelReporter) writeSamplesSheet(fx *excelize.File, sheet string, result *optimization.OptimizationResult, styles ExcelStyles) error {
	if err := setColumnWidths(fx, sheet, []float64{8, 12, 14, 12, 14, 12, 10, 14, 10, 14, 12, 60}); err != nil {
		return err
	}
	if err := writeHeader(fx, sheet, 1, sampleColumns, styles.HeaderStyle); err != nil {
		return err
	}
	if err := fx.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	row := 2
	for _, s := range result.SampledResults {
		if s.Results == nil {
			continue
		}
		res := s.Results
		profitStyle := styles.GreenCurrencyStyle
		if res.NetProfit < 0 {
			profitStyle = styles.RedCurrencyStyle
		}
		values := []interface{}{
			s.Rank,
			finite(s.Fitness),
			res.NetProfit,
			res.TotalReturn,
			res.MaxDrawdown / 100,
			res.WinRate,
			res.TotalTrades,
			finite(res.ProfitFactor),
			finite(res.SharpeRatio),
			res.TotalCommission,
			res.Liquidated,
			describeCandidate(s.Candidate),
		}
		rowStyles := []int{
			styles.BaseStyle, styles.NumberStyle, profitStyle, styles.PercentStyle, styles.PercentStyle, styles.PercentStyle,
			styles.BaseStyle, styles.NumberStyle, styles.NumberStyle, styles.CurrencyStyle, styles.BaseStyle, styles.BaseStyle,
		}
		if s.Rank == 1 {
			rowStyles[0] = styles.BestRowStyle
		}
		if err := writeRow(fx, sheet, row, values, rowStyles); err != nil {
			return err
		}
		row++
	}

	if row > 2 {
		lastCol, err := excelize.ColumnNumberToName(len(sampleColumns))
		if err != nil {
			return err
		}
		return fx.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, row-1), []excelize.AutoFilterOptions{})
	}
	return nil
}

var tradeSheetColumns = []string{
	"ID", "Direction", "Entry Time", "Exit Time", "Entry Price", "Exit Price",
	"Stop Loss", "Take Profit", "Quantity", "Margin", "PnL", "Commission", "Exit Reason",
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, results *backtest.BacktestResults, styles ExcelStyles) error {
	if err := setColumnWidths(fx, sheet, []float64{6, 10, 20, 20, 12, 12, 12, 12, 12, 12, 12, 12, 14}); err != nil {
		return err
	}
	if err := writeHeader(fx, sheet, 1, tradeSheetColumns, styles.HeaderStyle); err != nil {
		return err
	}
	if results == nil {
		return nil
	}

	row := 2
	for _, t := range results.Trades {
		pnlStyle := styles.GreenCurrencyStyle
		if t.PnL < 0 {
			pnlStyle = styles.RedCurrencyStyle
		}
		values := []interface{}{
			t.ID,
			t.Direction.String(),
			t.EntryTime.Format(csvTimeLayout),
			t.ExitTime.Format(csvTimeLayout),
			t.EntryPrice,
			t.ExitPrice,
			t.StopLoss,
			t.TakeProfit,
			t.Quantity,
			t.Margin,
			t.PnL,
			t.Commission,
			t.ExitReason,
		}
		rowStyles := []int{
			styles.BaseStyle, styles.BaseStyle, styles.BaseStyle, styles.BaseStyle,
			styles.NumberStyle, styles.NumberStyle, styles.NumberStyle, styles.NumberStyle, styles.NumberStyle,
			styles.CurrencyStyle, pnlStyle, styles.CurrencyStyle, styles.BaseStyle,
		}
		if err := writeRow(fx, sheet, row, values, rowStyles); err != nil {
			return err
		}
		row++
	}
	return nil
}

// describeCandidate renders a candidate as "name.field=value" pairs
func describeCandidate(descriptors []params.Descriptor) string {
	parts := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		parts = append(parts, fmt.Sprintf("%s.%s=%s", d.Indicator, d.Field, FormatValue(d)))
	}
	return strings.Join(parts, " ")
}
