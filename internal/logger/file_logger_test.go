package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
)

func TestLogger_WritesSession(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, "BTCUSDT", "1h")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(l.GetLogPath()))
	assert.Contains(t, filepath.Base(l.GetLogPath()), "BTCUSDT_1h_")

	l.Info("starting %s", "annealing")
	l.Warning("skipped %d candidates", 3)
	l.LogError("evaluate", errors.New("boom"))
	l.LogBestResult("ema_cross+atr_risk", 4.5, &backtest.BacktestResults{NetProfit: 120, TotalTrades: 7})
	l.LogBestResult("none", 0, nil)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "closing twice is harmless")

	content, err := os.ReadFile(l.GetLogPath())
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "OPTIMIZATION SESSION STARTED")
	assert.Contains(t, text, "[INFO] starting annealing")
	assert.Contains(t, text, "[WARN] skipped 3 candidates")
	assert.Contains(t, text, "[ERROR] evaluate: boom")
	assert.Contains(t, text, "ema_cross+atr_risk")
	assert.Contains(t, text, "No valid candidate found")
	assert.Contains(t, text, "OPTIMIZATION SESSION ENDED")
}
