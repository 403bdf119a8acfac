package bybit

import (
	"context"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/safety"
)

// DefaultRequestsPerSecond stays well below the public market data limit
const DefaultRequestsPerSecond = 10

// requestFunc performs one public market request and returns the raw server response
type requestFunc func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Client is a read-only Bybit market data client
type Client struct {
	httpClient *bybit_api.Client
	getKline   requestFunc
	retry      RetryConfig
	limiter    *safety.RateLimiter
	testnet    bool
}

// Config holds the configuration for the Bybit client. Market data needs no API keys.
type Config struct {
	Testnet bool
	Retry   *RetryConfig
	// RequestsPerSecond paces requests, 0 uses DefaultRequestsPerSecond
	RequestsPerSecond float64
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	baseURL := bybit_api.MAINNET
	if config.Testnet {
		baseURL = bybit_api.TESTNET
	}

	httpClient := bybit_api.NewBybitHttpClient("", "", bybit_api.WithBaseURL(baseURL))

	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	c := &Client{
		httpClient: httpClient,
		retry:      DefaultRetryConfig(),
		limiter:    safety.NewRateLimiter("bybit-market", int(rps), rps),
		testnet:    config.Testnet,
	}
	if config.Retry != nil {
		c.retry = *config.Retry
	}
	c.getKline = func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		res, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	return c
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	if c.testnet {
		return "testnet"
	}
	return "mainnet"
}
