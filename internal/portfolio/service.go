package portfolio

import (
	"context"
	"fmt"

	"github.com/feral-file/ff-flow/internal/metrics"
	"github.com/feral-file/ff-flow/internal/providers/pricefeed"
	"github.com/feral-file/ff-flow/internal/store"
)

// Service produces priced snapshots of the tracked portfolio
//
//go:generate mockgen -source=service.go -destination=../mocks/portfolio.go -package=mocks -mock_names=Service=MockPortfolioService
type Service interface {
	// Snapshot loads the holdings, fetches quotes and values them
	Snapshot(ctx context.Context) (*Valuation, error)
}

type service struct {
	store store.PortfolioStore
	feed  pricefeed.PriceFeed
}

// NewService creates a portfolio service
func NewService(s store.PortfolioStore, feed pricefeed.PriceFeed) Service {
	return &service{store: s, feed: feed}
}

func (s *service) Snapshot(ctx context.Context) (*Valuation, error) {
	holdings, err := s.store.GetHoldings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	quotes, err := s.feed.Quotes(ctx)
	if err != nil {
		return nil, err
	}

	v := Value(holdings, quotes)
	metrics.PortfolioValue.Set(v.Total.InexactFloat64())
	return &v, nil
}
