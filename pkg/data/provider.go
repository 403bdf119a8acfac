package data

import (
	"context"
	"fmt"
	"log"
	"time"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// Window restricts the loaded history. Zero values are unbounded.
type Window struct {
	Start  time.Time
	End    time.Time
	Period time.Duration
}

// DataManager combines loading, cleaning and validation of bar histories
type DataManager struct {
	provider DataProvider
	filter   *DefaultDataFilter
	locator  FileLocator
}

// NewDataManager creates a data manager reading cached CSV files
func NewDataManager() *DataManager {
	return NewDataManagerWithProvider(NewCachedProvider(NewCSVProvider()))
}

// NewDataManagerWithProvider creates a data manager with a custom provider
func NewDataManagerWithProvider(provider DataProvider) *DataManager {
	return &DataManager{
		provider: provider,
		filter:   NewDefaultDataFilter(),
		locator:  NewDefaultFileLocator(),
	}
}

// WithLocator replaces the file locator
func (dm *DataManager) WithLocator(locator FileLocator) *DataManager {
	dm.locator = locator
	return dm
}

// Load reads the source, orders it by time, drops duplicate timestamps, applies the window
// and validates the result. The returned bars strictly increase in time.
func (dm *DataManager) Load(ctx context.Context, source string, window Window) ([]types.OHLCV, error) {
	raw, err := dm.provider.LoadData(ctx, source)
	if err != nil {
		return nil, err
	}

	bars := dm.Prepare(raw, window)
	if len(bars) == 0 {
		return nil, opterrors.NewConfigurationError("data", "Load",
			fmt.Sprintf("no bars left in %s after filtering (%d loaded)", source, len(raw)))
	}
	if err := dm.provider.ValidateData(bars); err != nil {
		return nil, err
	}

	log.Printf("📊 %d bars from %s to %s (%s)", len(bars),
		bars[0].Timestamp.Format(time.RFC3339), bars[len(bars)-1].Timestamp.Format(time.RFC3339), dm.provider.GetName())
	return bars, nil
}

// Prepare sorts, de-duplicates and windows raw bars
func (dm *DataManager) Prepare(raw []types.OHLCV, window Window) []types.OHLCV {
	bars := dm.filter.SortByTimestamp(raw)
	bars = dm.filter.RemoveDuplicates(bars)
	bars = dm.filter.FilterByDateRange(bars, window.Start, window.End)
	return dm.filter.FilterByPeriod(bars, window.Period)
}

// FindDataFile locates a downloaded bar file
func (dm *DataManager) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	return dm.locator.FindDataFile(dataRoot, exchange, symbol, interval)
}

// GetProvider returns the underlying data provider
func (dm *DataManager) GetProvider() DataProvider {
	return dm.provider
}
