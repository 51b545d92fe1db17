package pricefeed_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/mocks"
	"github.com/feral-file/ff-flow/internal/providers/pricefeed"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var tickers = map[string]string{
	"ETHUSDT":  `{"symbol":"ETHUSDT","lastPrice":"3000.50","priceChange":"-20.00","priceChangePercent":"-0.66"}`,
	"BTCUSDT":  `{"symbol":"BTCUSDT","lastPrice":"65000.00","priceChange":"1000.00","priceChangePercent":"1.56"}`,
	"LINKUSDT": `{"symbol":"LINKUSDT","lastPrice":"14.25","priceChange":"0.25","priceChangePercent":"1.79"}`,
}

func fakeTicker(_ context.Context, url string, result interface{}) error {
	_, query, _ := strings.Cut(url, "?symbol=")
	body, ok := tickers[query]
	if !ok {
		return errors.New("unexpected status code 400: invalid symbol")
	}
	return json.Unmarshal([]byte(body), result)
}

func TestBinanceFeed_Quotes(t *testing.T) {
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(fakeTicker).
		Times(4)

	feed := pricefeed.NewBinanceFeed(httpClient, pricefeed.Config{BaseURL: "https://prices.test/", Concurrency: 2})
	defer feed.Close()

	quotes, err := feed.Quotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 4)

	symbols := make([]string, 0, len(quotes))
	for _, q := range quotes {
		symbols = append(symbols, q.Symbol)
	}
	assert.Equal(t, []string{"BTC", "ETH", "LINK", "PEPE"}, symbols)

	eth := quotes[1]
	assert.True(t, eth.Available)
	assert.Equal(t, "ETHUSDT", eth.FeedSymbol)
	assert.True(t, decimal.RequireFromString("3000.5").Equal(eth.Price))
	assert.True(t, decimal.RequireFromString("-0.66").Equal(eth.ChangePercent24h))

	pepe := quotes[3]
	assert.False(t, pepe.Available, "a failed symbol is reported with zero price")
	assert.True(t, pepe.Price.IsZero())
}

func TestBinanceFeed_RequestURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Get(gomock.Any(), "https://prices.test/api/v3/ticker/24hr?symbol=ETHUSDT", gomock.Any()).
		DoAndReturn(fakeTicker)

	// lowercase keys as produced by viper
	feed := pricefeed.NewBinanceFeed(httpClient, pricefeed.Config{
		BaseURL: "https://prices.test",
		Symbols: map[string]string{"eth": "ethusdt"},
	})
	defer feed.Close()

	assert.Equal(t, []string{"ETH"}, feed.Symbols())

	quotes, err := feed.Quotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "ETH", quotes[0].Symbol)
}

func TestBinanceFeed_DefaultSymbols(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := pricefeed.NewBinanceFeed(mocks.NewMockHTTPClient(ctrl), pricefeed.Config{})
	defer feed.Close()

	assert.Equal(t, []string{"BTC", "ETH", "LINK", "PEPE"}, feed.Symbols())
}

func TestBinanceFeed_CancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(context.Canceled).AnyTimes()

	feed := pricefeed.NewBinanceFeed(httpClient, pricefeed.Config{Symbols: map[string]string{"ETH": "ETHUSDT"}})
	defer feed.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := feed.Quotes(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
