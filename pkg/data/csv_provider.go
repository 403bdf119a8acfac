package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// CSVProvider implements DataProvider for CSV files
type CSVProvider struct {
	format CSVColumnMapping
}

// NewCSVProvider creates a new CSV data provider with default format
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{
		format: DefaultCSVFormat,
	}
}

// NewCSVProviderWithFormat creates a new CSV data provider with custom format
func NewCSVProviderWithFormat(format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{
		format: format,
	}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads bars from a CSV file. A header row is detected and skipped;
// malformed rows are logged and skipped.
func (p *CSVProvider) LoadData(ctx context.Context, source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, opterrors.WrapError(err, opterrors.ErrorCategoryConfiguration, "data", "LoadData").
			WithContext("path", source)
	}
	defer file.Close()

	return p.read(ctx, file)
}

func (p *CSVProvider) read(ctx context.Context, r io.Reader) ([]types.OHLCV, error) {
	format := p.format
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var data []types.OHLCV
	lineNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return nil, opterrors.NewConfigurationError("data", "LoadData",
				fmt.Sprintf("error reading CSV at line %d: %v", lineNum, err))
		}
		if lineNum%10000 == 0 && ctx.Err() != nil {
			return nil, opterrors.NewCancelledError("data", "LoadData", ctx.Err())
		}

		if len(record) < format.MinColumns {
			log.Printf("⚠️ Insufficient columns at line %d (expected %d, got %d), skipping", lineNum, format.MinColumns, len(record))
			continue
		}

		timestamp, err := parseTimestamp(record[format.TimestampCol], format.DateFormat)
		if err != nil {
			if lineNum == 1 {
				continue // header
			}
			log.Printf("⚠️ Invalid timestamp '%s' at line %d, skipping: %v", record[format.TimestampCol], lineNum, err)
			continue
		}

		var values [5]float64
		cols := [5]int{format.OpenCol, format.HighCol, format.LowCol, format.CloseCol, format.VolumeCol}
		valid := true
		for i, col := range cols {
			values[i], err = strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				log.Printf("⚠️ Invalid number '%s' at line %d, skipping: %v", record[col], lineNum, err)
				valid = false
				break
			}
		}
		if !valid {
			continue
		}

		candle := types.OHLCV{
			Timestamp: timestamp,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		}
		if err := validateCandle(candle); err != nil {
			log.Printf("⚠️ %v at line %d, skipping", err, lineNum)
			continue
		}
		data = append(data, candle)
	}

	return data, nil
}

// parseTimestamp accepts the configured layout, RFC3339 or Unix seconds/milliseconds
func parseTimestamp(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if layout != "" {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Parse(time.RFC3339, s)
}

func validateCandle(c types.OHLCV) error {
	switch {
	case c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0:
		return fmt.Errorf("prices must be positive")
	case c.High < c.Low:
		return fmt.Errorf("high (%.4f) cannot be less than low (%.4f)", c.High, c.Low)
	case c.High < c.Open || c.High < c.Close:
		return fmt.Errorf("high (%.4f) must be >= open (%.4f) and close (%.4f)", c.High, c.Open, c.Close)
	case c.Low > c.Open || c.Low > c.Close:
		return fmt.Errorf("low (%.4f) must be <= open (%.4f) and close (%.4f)", c.Low, c.Open, c.Close)
	case c.Volume < 0:
		return fmt.Errorf("volume must not be negative")
	}
	return nil
}

// ValidateData validates the integrity of loaded data
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	return ValidateBars(data)
}

// ValidateBars checks every candle and the strictly increasing timestamp order
func ValidateBars(data []types.OHLCV) error {
	if len(data) == 0 {
		return opterrors.NewConfigurationError("data", "ValidateData", "no data provided")
	}

	for i, candle := range data {
		if err := validateCandle(candle); err != nil {
			return opterrors.NewConfigurationError("data", "ValidateData",
				fmt.Sprintf("invalid price data at index %d: %v", i, err))
		}
		if i > 0 && !candle.Timestamp.After(data[i-1].Timestamp) {
			return opterrors.NewConfigurationError("data", "ValidateData",
				fmt.Sprintf("invalid timestamp sequence at index %d: timestamps must strictly increase", i))
		}
	}

	return nil
}
