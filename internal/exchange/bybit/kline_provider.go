package bybit

import (
	"context"
	"fmt"
	"log"
	"time"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/data"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// KlineProviderConfig selects the history fetched by a KlineProvider
type KlineProviderConfig struct {
	Category  string
	Timeframe types.Timeframe
	// Limit caps the number of bars; paging stops earlier when Start is reached
	Limit int
	Start time.Time
	End   time.Time
}

// KlineProvider loads bar histories from the Bybit kline endpoint. The source passed
// to LoadData is the symbol.
type KlineProvider struct {
	client   *Client
	config   KlineProviderConfig
	interval KlineInterval
	now      func() time.Time
}

var _ data.DataProvider = (*KlineProvider)(nil)

// NewKlineProvider validates the settings and creates a provider
func NewKlineProvider(client *Client, config KlineProviderConfig) (*KlineProvider, error) {
	interval, err := IntervalFor(config.Timeframe)
	if err != nil {
		return nil, opterrors.NewConfigurationError("bybit", "NewKlineProvider", err.Error())
	}
	if config.Limit <= 0 {
		return nil, opterrors.NewConfigurationError("bybit", "NewKlineProvider",
			fmt.Sprintf("limit must be positive, got %d", config.Limit))
	}
	if config.Category == "" {
		config.Category = "linear"
	}
	return &KlineProvider{
		client:   client,
		config:   config,
		interval: interval,
		now:      time.Now,
	}, nil
}

// GetName returns the name of the data provider
func (p *KlineProvider) GetName() string {
	return fmt.Sprintf("Bybit %s klines (%s)", p.config.Category, p.client.GetEnvironment())
}

// LoadData pages backwards from the end time until the limit or the start time is reached
func (p *KlineProvider) LoadData(ctx context.Context, symbol string) ([]types.OHLCV, error) {
	end := p.config.End
	if end.IsZero() {
		end = p.now()
	}

	var pages [][]Kline
	total := 0
	for total < p.config.Limit {
		if ctx.Err() != nil {
			return nil, opterrors.NewCancelledError("bybit", "LoadData", ctx.Err())
		}

		limit := p.config.Limit - total
		if limit > MaxKlineLimit {
			limit = MaxKlineLimit
		}
		params := KlineParams{
			Category: p.config.Category,
			Symbol:   symbol,
			Interval: p.interval,
			End:      &end,
			Limit:    limit,
		}
		if !p.config.Start.IsZero() {
			start := p.config.Start
			params.Start = &start
		}

		page, err := p.client.GetKlines(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, opterrors.NewCancelledError("bybit", "LoadData", err)
			}
			return nil, opterrors.WrapError(err, opterrors.ErrorCategoryConfiguration, "bybit", "LoadData").
				WithContext("symbol", symbol)
		}
		if len(page) == 0 {
			break
		}
		pages = append(pages, page)
		total += len(page)

		oldest := page[0].StartTime
		if len(page) < limit || (!p.config.Start.IsZero() && !oldest.After(p.config.Start)) {
			break
		}
		end = oldest.Add(-time.Millisecond)
	}

	bars := make([]types.OHLCV, 0, total)
	for i := len(pages) - 1; i >= 0; i-- {
		for _, k := range pages[i] {
			bars = append(bars, k.OHLCV())
		}
	}
	log.Printf("📥 Fetched %d %s %s klines from Bybit", len(bars), symbol, p.config.Timeframe)
	return bars, nil
}

// ValidateData applies the shared bar checks
func (p *KlineProvider) ValidateData(bars []types.OHLCV) error {
	return data.ValidateBars(bars)
}
