package portfolio_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/mocks"
	"github.com/feral-file/ff-flow/internal/portfolio"
	"github.com/feral-file/ff-flow/internal/providers/pricefeed"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(v decimal.Decimal) *decimal.Decimal {
	return &v
}

func TestValue(t *testing.T) {
	holdings := []domain.Holding{
		{Symbol: "BTC", Amount: d("0.01")},
		{Symbol: "DOGE", Amount: d("1000")},
		{Symbol: "ETH", Amount: d("0.5")},
	}
	quotes := []pricefeed.Quote{
		{Symbol: "BTC", Price: d("65000"), Available: true},
		{Symbol: "ETH", Price: d("3000.10"), Available: true},
		{Symbol: "PEPE", Price: decimal.Zero},
	}

	v := portfolio.Value(holdings, quotes)

	require.Len(t, v.Positions, 3)
	assert.True(t, d("650").Equal(v.Positions[0].Value))
	assert.True(t, v.Positions[1].Value.IsZero(), "unquoted symbol counts as zero")
	assert.True(t, d("1500.05").Equal(v.Positions[2].Value))
	assert.True(t, d("2150.05").Equal(v.Total))
}

func TestValue_Empty(t *testing.T) {
	v := portfolio.Value(nil, nil)
	assert.Empty(t, v.Positions)
	assert.True(t, v.Total.IsZero())
}

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		raw     string
		value   string
		percent bool
		wantErr bool
	}{
		{raw: "5000", value: "5000"},
		{raw: "$5,000", value: "5000"},
		{raw: "1000.50", value: "1000.5"},
		{raw: "+10%", value: "10", percent: true},
		{raw: "-10%", value: "-10", percent: true},
		{raw: "10 %", value: "10", percent: true},
		{raw: "", wantErr: true},
		{raw: "soon", wantErr: true},
		{raw: "%", wantErr: true},
		{raw: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			th, err := portfolio.ParseThreshold(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidThreshold)
				return
			}
			require.NoError(t, err)
			assert.True(t, d(tt.value).Equal(th.Value), "got %s", th.Value)
			assert.Equal(t, tt.percent, th.Percent)
		})
	}
}

func TestChangePercent(t *testing.T) {
	change, err := portfolio.ChangePercent(d("1150"), d("1000"))
	require.NoError(t, err)
	assert.True(t, d("15").Equal(change))

	change, err = portfolio.ChangePercent(d("900"), d("1000"))
	require.NoError(t, err)
	assert.True(t, d("-10").Equal(change))

	_, err = portfolio.ChangePercent(d("900"), decimal.Zero)
	assert.ErrorIs(t, err, portfolio.ErrMissingBaseline)
}

func TestEvaluate_Percentage(t *testing.T) {
	baseline := d("1000")
	tests := []struct {
		name      string
		threshold string
		total     string
		fired     bool
		change    string
	}{
		{name: "above threshold", threshold: "+10%", total: "1150", fired: true, change: "15"},
		{name: "below threshold", threshold: "+10%", total: "1090", fired: false, change: "9"},
		{name: "exactly at threshold", threshold: "10%", total: "1100", fired: true, change: "10"},
		{name: "drop past negative threshold", threshold: "-10%", total: "880", fired: true, change: "-12"},
		{name: "drop checked by magnitude", threshold: "+10%", total: "850", fired: true, change: "-15"},
		{name: "small drop", threshold: "-10%", total: "950", fired: false, change: "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := &domain.PortfolioAlert{
				Kind:          domain.AlertKindPortfolioValue,
				Threshold:     tt.threshold,
				BaselineValue: ptr(baseline),
			}
			ev, err := portfolio.Evaluate(alert, d(tt.total))
			require.NoError(t, err)
			assert.Equal(t, tt.fired, ev.Fired)
			require.NotNil(t, ev.ChangePercent)
			assert.True(t, d(tt.change).Equal(*ev.ChangePercent), "got %s", ev.ChangePercent)
		})
	}
}

func TestEvaluate_Absolute(t *testing.T) {
	alert := &domain.PortfolioAlert{Kind: domain.AlertKindPortfolioValue, Threshold: "$5,000"}

	ev, err := portfolio.Evaluate(alert, d("5000"))
	require.NoError(t, err)
	assert.True(t, ev.Fired)
	assert.Nil(t, ev.ChangePercent)

	ev, err = portfolio.Evaluate(alert, d("4999.99"))
	require.NoError(t, err)
	assert.False(t, ev.Fired)
}

func TestEvaluate_Errors(t *testing.T) {
	t.Run("missing baseline", func(t *testing.T) {
		_, err := portfolio.Evaluate(&domain.PortfolioAlert{Threshold: "10%"}, d("100"))
		assert.ErrorIs(t, err, portfolio.ErrMissingBaseline)
	})

	t.Run("zero baseline", func(t *testing.T) {
		_, err := portfolio.Evaluate(&domain.PortfolioAlert{Threshold: "10%", BaselineValue: ptr(decimal.Zero)}, d("100"))
		assert.ErrorIs(t, err, portfolio.ErrMissingBaseline)
	})

	t.Run("unparseable threshold", func(t *testing.T) {
		ev, err := portfolio.Evaluate(&domain.PortfolioAlert{Threshold: "lots"}, d("100"))
		assert.ErrorIs(t, err, domain.ErrInvalidThreshold)
		assert.False(t, ev.Fired)
	})
}

func TestService_Snapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	ps := mocks.NewMockPortfolioStore(ctrl)
	feed := mocks.NewMockPriceFeed(ctrl)

	ps.EXPECT().GetHoldings(gomock.Any()).Return([]domain.Holding{{Symbol: "ETH", Amount: d("2")}}, nil)
	feed.EXPECT().Quotes(gomock.Any()).Return([]pricefeed.Quote{{Symbol: "ETH", Price: d("500"), Available: true}}, nil)

	v, err := portfolio.NewService(ps, feed).Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, d("1000").Equal(v.Total))
}

func TestService_SnapshotErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	ps := mocks.NewMockPortfolioStore(ctrl)
	feed := mocks.NewMockPriceFeed(ctrl)
	svc := portfolio.NewService(ps, feed)

	ps.EXPECT().GetHoldings(gomock.Any()).Return(nil, errors.New("db down"))
	_, err := svc.Snapshot(context.Background())
	assert.ErrorContains(t, err, "db down")

	ps.EXPECT().GetHoldings(gomock.Any()).Return(nil, nil)
	feed.EXPECT().Quotes(gomock.Any()).Return(nil, context.Canceled)
	_, err = svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}
