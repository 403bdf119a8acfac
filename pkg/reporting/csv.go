package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
)

const csvTimeLayout = "2006-01-02 15:04:05"

var tradeColumns = []string{
	"ID",
	"Direction",
	"Entry_Time",
	"Exit_Time",
	"Entry_Price",
	"Exit_Price",
	"Stop_Loss",
	"Take_Profit",
	"Quantity",
	"Margin_$",
	"PnL_$",
	"Commission_$",
	"Exit_Reason",
	"Win_Loss",
}

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteTradesCSV writes one row per closed trade followed by a summary row
func (r *DefaultCSVReporter) WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	if results == nil {
		return fmt.Errorf("no backtest results to write")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tradeColumns); err != nil {
		return err
	}

	var totalPnL, totalCommission float64
	for _, t := range results.Trades {
		totalPnL += t.PnL
		totalCommission += t.Commission

		winLoss := "W"
		if t.PnL < 0 {
			winLoss = "L"
		}
		row := []string{
			strconv.Itoa(t.ID),
			t.Direction.String(),
			t.EntryTime.Format(csvTimeLayout),
			t.ExitTime.Format(csvTimeLayout),
			formatPrice(t.EntryPrice),
			formatPrice(t.ExitPrice),
			formatPrice(t.StopLoss),
			formatPrice(t.TakeProfit),
			strconv.FormatFloat(t.Quantity, 'f', 8, 64),
			FormatMoney(t.Margin),
			FormatMoney(t.PnL),
			FormatMoney(t.Commission),
			t.ExitReason,
			winLoss,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	summary := make([]string, len(tradeColumns))
	summary[len(summary)-1] = fmt.Sprintf("SUMMARY: total_pnl=%s; commission=%s; trades=%d; win_rate=%s",
		FormatMoney(totalPnL), FormatMoney(totalCommission), len(results.Trades), FormatPercent(results.WinRate*100))
	if err := w.Write(summary); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}

// WriteTradesCSV writes trades with the default CSV reporter
func WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	return NewDefaultCSVReporter().WriteTradesCSV(results, path)
}
