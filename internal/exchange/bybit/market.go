package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// MaxKlineLimit is the largest page the kline endpoint returns
const MaxKlineLimit = 1000

// KlineInterval represents the time interval for kline data
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval3m  KlineInterval = "3"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval2h  KlineInterval = "120"
	Interval4h  KlineInterval = "240"
	Interval6h  KlineInterval = "360"
	Interval12h KlineInterval = "720"
	Interval1d  KlineInterval = "D"
	Interval1w  KlineInterval = "W"
)

var timeframeIntervals = map[types.Timeframe]KlineInterval{
	types.Timeframe1m:  Interval1m,
	types.Timeframe3m:  Interval3m,
	types.Timeframe5m:  Interval5m,
	types.Timeframe15m: Interval15m,
	types.Timeframe30m: Interval30m,
	types.Timeframe1h:  Interval1h,
	types.Timeframe2h:  Interval2h,
	types.Timeframe4h:  Interval4h,
	types.Timeframe6h:  Interval6h,
	types.Timeframe12h: Interval12h,
	types.Timeframe1d:  Interval1d,
	types.Timeframe1w:  Interval1w,
}

// IntervalFor maps a timeframe to the Bybit interval code
func IntervalFor(tf types.Timeframe) (KlineInterval, error) {
	if iv, ok := timeframeIntervals[tf]; ok {
		return iv, nil
	}
	return "", fmt.Errorf("timeframe %q has no Bybit interval", tf)
}

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Category string        // "spot", "linear", "inverse"
	Symbol   string        // Trading pair symbol (e.g., "BTCUSDT")
	Interval KlineInterval // Time interval
	Start    *time.Time    // Start time (optional)
	End      *time.Time    // End time (optional)
	Limit    int           // Number of records to return (max 1000, default 200)
}

// GetKlines fetches one page of klines, oldest first
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]Kline, error) {
	if params.Category == "" {
		params.Category = "linear"
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > MaxKlineLimit {
		params.Limit = MaxKlineLimit
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if params.Start != nil {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if params.End != nil {
		reqParams["end"] = params.End.UnixMilli()
	}

	var klines []Kline
	err := c.RetryWithConfig(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		result, err := c.getKline(ctx, reqParams)
		if err != nil {
			return err
		}
		klines, err = parseKlineResponse(result)
		return err
	}, c.retry)
	if err != nil {
		return nil, WrapAPIError("get klines", err)
	}
	return klines, nil
}

// parseKlineResponse parses the API response into Kline structs sorted by start time
func parseKlineResponse(response interface{}) ([]Kline, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type %T", response)
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	var result klineResult
	if err := json.Unmarshal(resultBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	klines := make([]Kline, 0, len(result.List))
	for _, item := range result.List {
		if len(item) < 7 {
			continue
		}
		klines = append(klines, Kline{
			StartTime:  time.UnixMilli(parseInt64(item[0])).UTC(),
			OpenPrice:  parseFloat64(item[1]),
			HighPrice:  parseFloat64(item[2]),
			LowPrice:   parseFloat64(item[3]),
			ClosePrice: parseFloat64(item[4]),
			Volume:     parseFloat64(item[5]),
			Turnover:   parseFloat64(item[6]),
		})
	}
	sort.Slice(klines, func(i, j int) bool {
		return klines[i].StartTime.Before(klines[j].StartTime)
	})
	return klines, nil
}

// OHLCV converts a kline to a bar
func (k Kline) OHLCV() types.OHLCV {
	return types.OHLCV{
		Timestamp: k.StartTime,
		Open:      k.OpenPrice,
		High:      k.HighPrice,
		Low:       k.LowPrice,
		Close:     k.ClosePrice,
		Volume:    k.Volume,
	}
}
