package data

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// CandlesFile is the file name of a downloaded bar history
const CandlesFile = "candles.csv"

// DefaultFileLocator finds bar files laid out as
// {root}/{exchange}/{category}/{SYMBOL}/{interval minutes}/candles.csv
type DefaultFileLocator struct {
	// PreferredCategory is tried before the exchange's other categories
	PreferredCategory string
}

// NewDefaultFileLocator creates a new default file locator
func NewDefaultFileLocator() *DefaultFileLocator {
	return &DefaultFileLocator{}
}

// ConvertIntervalToMinutes converts "5m", "1h", "4h" to "5", "60", "240".
// Unknown intervals are returned unchanged.
func (f *DefaultFileLocator) ConvertIntervalToMinutes(interval string) string {
	if _, err := strconv.Atoi(interval); err == nil {
		return interval
	}
	tf, err := types.ParseTimeframe(interval)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(interval))
	}
	return strconv.Itoa(int(tf.Duration().Minutes()))
}

// FindDataFile returns the first existing candles file, or "" if none is found
func (f *DefaultFileLocator) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	symbol = strings.ToUpper(symbol)
	intervalMinutes := f.ConvertIntervalToMinutes(interval)

	var categories []string
	if f.PreferredCategory != "" {
		categories = append(categories, f.PreferredCategory)
	}
	switch strings.ToLower(exchange) {
	case "bybit":
		categories = append(categories, "linear", "spot", "inverse")
	default:
		categories = append(categories, "spot", "futures", "linear", "inverse")
	}

	var attemptedPaths []string
	seen := make(map[string]bool)
	for _, category := range categories {
		if seen[category] {
			continue
		}
		seen[category] = true

		path := filepath.Join(dataRoot, exchange, category, symbol, intervalMinutes, CandlesFile)
		attemptedPaths = append(attemptedPaths, path)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	log.Printf("⚠️ No data file found for %s %s %s in:", exchange, symbol, interval)
	for _, path := range attemptedPaths {
		log.Printf("   - %s", path)
	}
	return ""
}
