package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
)

// Logger represents a file logger for one optimization run
type Logger struct {
	symbol   string
	interval string
	logFile  *os.File
	logger   *log.Logger
	mu       sync.Mutex
	logDir   string
	started  time.Time
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelResult  LogLevel = "RESULT"
)

// NewLogger creates a new file logger for the specified symbol and interval under logDir
func NewLogger(logDir, symbol, interval string) (*Logger, error) {
	if logDir == "" {
		logDir = "logs"
	}
	// Create log directory if it doesn't exist
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	started := time.Now()
	logPath := filepath.Join(logDir, logFileName(symbol, interval, started))

	// Open or create log file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		symbol:   symbol,
		interval: interval,
		logFile:  file,
		logger:   log.New(file, "", 0),
		logDir:   logDir,
		started:  started,
	}

	// Write session start header
	l.writeSessionHeader()

	return l, nil
}

func logFileName(symbol, interval string, t time.Time) string {
	return fmt.Sprintf("%s_%s_%s.log", symbol, interval, t.Format("2006-01-02"))
}

// writeSessionHeader writes a session start header to the log
func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 OPTIMIZATION SESSION STARTED
================================================================================
Symbol: %s | Interval: %s
Started: %s
Log File: %s
================================================================================
`, l.symbol, l.interval, l.started.Format("2006-01-02 15:04:05"),
		logFileName(l.symbol, l.interval, l.started))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Result logs a result line
func (l *Logger) Result(format string, args ...interface{}) {
	l.Log(LogLevelResult, format, args...)
}

// LogBestResult logs the summary of the winning backtest
func (l *Logger) LogBestResult(strategyName string, fitness float64, r *backtest.BacktestResults) {
	if r == nil {
		l.Warning("No valid candidate found")
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.logger.Println(fmt.Sprintf(`
[%s] [RESULT] ==================== BEST CANDIDATE ====================
🏆 Strategy: %s | Fitness: %.4f
💰 Net Profit: $%.2f (%.2f%%) | Final Balance: $%.2f
📊 Trades: %d | Win Rate: %.2f%% | Profit Factor: %.2f
📉 Max Drawdown: %.2f%% | Sharpe: %.2f
=================================================================`,
		timestamp, strategyName, fitness,
		r.NetProfit, r.TotalReturn*100, r.EndBalance,
		r.TotalTrades, r.WinRate*100, r.ProfitFactor,
		r.MaxDrawdown, r.SharpeRatio))
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}

	// Write session end header
	footer := fmt.Sprintf(`
================================================================================
🛑 OPTIMIZATION SESSION ENDED
================================================================================
Ended: %s | Elapsed: %s
================================================================================

`, time.Now().Format("2006-01-02 15:04:05"), time.Since(l.started).Round(time.Second))
	l.logger.Print(footer)

	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	return filepath.Join(l.logDir, logFileName(l.symbol, l.interval, l.started))
}
