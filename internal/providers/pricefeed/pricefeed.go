// Package pricefeed fetches spot quotes for the tracked symbol universe.
package pricefeed

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/alitto/pond/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/metrics"
)

const (
	DefaultBaseURL     = "https://api.binance.com"
	defaultConcurrency = 4
)

// DefaultSymbols maps generic symbols to their feed pairs
var DefaultSymbols = map[string]string{
	"ETH":  "ETHUSDT",
	"BTC":  "BTCUSDT",
	"PEPE": "PEPEUSDT",
	"LINK": "LINKUSDT",
}

// Quote is the latest price of one symbol in USD
type Quote struct {
	Symbol           string          `json:"symbol"`
	FeedSymbol       string          `json:"feedSymbol"`
	Price            decimal.Decimal `json:"price"`
	Change24h        decimal.Decimal `json:"change24h"`
	ChangePercent24h decimal.Decimal `json:"changePercent24h"`
	// Available is false when the lookup failed and Price is zero
	Available bool `json:"available"`
}

// Config holds the price feed configuration
type Config struct {
	BaseURL string
	// Symbols maps a generic symbol (ETH) to its feed symbol (ETHUSDT)
	Symbols     map[string]string
	Concurrency int
}

// PriceFeed defines the interface for fetching quotes
//
//go:generate mockgen -source=pricefeed.go -destination=../../mocks/pricefeed.go -package=mocks -mock_names=PriceFeed=MockPriceFeed
type PriceFeed interface {
	// Quotes returns one quote per configured symbol, ordered by symbol.
	// A symbol whose lookup fails gets a zero price; only ctx errors fail the call.
	Quotes(ctx context.Context) ([]Quote, error)
	// Symbols returns the configured generic symbols, sorted
	Symbols() []string
	// Close stops the worker pool
	Close()
}

// ticker24h is the subset of /api/v3/ticker/24hr used here
type ticker24h struct {
	Symbol             string          `json:"symbol"`
	LastPrice          decimal.Decimal `json:"lastPrice"`
	PriceChange        decimal.Decimal `json:"priceChange"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
}

type binanceFeed struct {
	http    adapter.HTTPClient
	baseURL string
	symbols map[string]string
	pool    pond.ResultPool[Quote]
}

// NewBinanceFeed creates a price feed backed by the Binance public REST API
func NewBinanceFeed(httpClient adapter.HTTPClient, cfg Config) PriceFeed {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	source := cfg.Symbols
	if len(source) == 0 {
		source = DefaultSymbols
	}
	// viper lowercases map keys
	symbols := make(map[string]string, len(source))
	for k, v := range source {
		symbols[strings.ToUpper(strings.TrimSpace(k))] = strings.ToUpper(strings.TrimSpace(v))
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &binanceFeed{
		http:    httpClient,
		baseURL: baseURL,
		symbols: symbols,
		pool:    pond.NewResultPool[Quote](concurrency),
	}
}

// Symbols returns the generic symbols, sorted
func (f *binanceFeed) Symbols() []string {
	out := make([]string, 0, len(f.symbols))
	for s := range f.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Quotes fetches every symbol concurrently
func (f *binanceFeed) Quotes(ctx context.Context) ([]Quote, error) {
	symbols := f.Symbols()

	group := f.pool.NewGroupContext(ctx)
	for _, symbol := range symbols {
		group.Submit(func() Quote {
			return f.quote(ctx, symbol)
		})
	}

	quotes, err := group.Wait()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
	return quotes, nil
}

func (f *binanceFeed) quote(ctx context.Context, symbol string) Quote {
	feedSymbol := f.symbols[symbol]
	q := Quote{Symbol: symbol, FeedSymbol: feedSymbol}

	endpoint := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", f.baseURL, url.QueryEscape(feedSymbol))
	var t ticker24h
	if err := f.http.Get(ctx, endpoint, &t); err != nil {
		metrics.PriceFetchErrors.WithLabelValues(symbol).Inc()
		logger.ErrorCtx(ctx, fmt.Errorf("failed to fetch price: %w", err),
			zap.String("symbol", symbol),
			zap.String("feed_symbol", feedSymbol),
		)
		return q
	}

	q.Price = t.LastPrice
	q.Change24h = t.PriceChange
	q.ChangePercent24h = t.PriceChangePercent
	q.Available = true
	return q
}

// Close stops the pool and waits for running lookups
func (f *binanceFeed) Close() {
	f.pool.StopAndWait()
}
