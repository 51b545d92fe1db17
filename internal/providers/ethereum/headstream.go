package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/metrics"
)

const headBufferSize = 64

// Head is a new chain head as announced by the node
type Head struct {
	Number     uint64
	Hash       string
	Time       time.Time
	ObservedAt time.Time
}

// StreamConfig holds the resubscription backoff
type StreamConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HeadStream is a pull-based view over a new-head subscription
//
//go:generate mockgen -source=headstream.go -destination=../../mocks/headstream.go -package=mocks -mock_names=HeadStream=MockHeadStream
type HeadStream interface {
	// Next blocks until the next head arrives. A dropped subscription is
	// re-established with exponential backoff; only ctx ends the wait.
	Next(ctx context.Context) (*Head, error)
	// Close unsubscribes
	Close()
}

type headStream struct {
	client adapter.EthClient
	config StreamConfig
	clock  adapter.Clock

	mu      sync.Mutex
	sub     ethereum.Subscription
	headers chan *types.Header
}

// NewHeadStream creates a head stream. The subscription is opened lazily on the first Next.
func NewHeadStream(client adapter.EthClient, cfg StreamConfig, clock adapter.Clock) HeadStream {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 30 * time.Second
	}
	return &headStream{
		client:  client,
		config:  cfg,
		clock:   clock,
		headers: make(chan *types.Header, headBufferSize),
	}
}

// Next returns the next head
func (s *headStream) Next(ctx context.Context) (*Head, error) {
	for {
		sub, err := s.subscription(ctx)
		if err != nil {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			logger.WarnCtx(ctx, "Head subscription dropped, resubscribing", zap.Error(err))
			metrics.Resubscriptions.Inc()
			s.drop(sub)

		case h := <-s.headers:
			if h == nil || h.Number == nil {
				continue
			}
			return &Head{
				Number:     h.Number.Uint64(),
				Hash:       h.Hash().Hex(),
				Time:       time.Unix(int64(h.Time), 0).UTC(), //nolint:gosec,G115
				ObservedAt: s.clock.Now().UTC(),
			}, nil
		}
	}
}

// subscription returns the live subscription, opening one with backoff when needed
func (s *headStream) subscription(ctx context.Context) (ethereum.Subscription, error) {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	if sub != nil {
		return sub, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.InitialInterval
	b.MaxInterval = s.config.MaxInterval
	b.MaxElapsedTime = 0 // retry until ctx is done

	attempt := 0
	op := func() error {
		attempt++
		sub, err := s.client.SubscribeNewHead(ctx, s.headers)
		if err != nil {
			logger.WarnCtx(ctx, "Failed to subscribe to new heads",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		s.mu.Lock()
		s.sub = sub
		s.mu.Unlock()
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrSubscriptionFailed, err)
	}

	logger.InfoCtx(ctx, "Subscribed to new heads", zap.Int("attempts", attempt))

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub, nil
}

func (s *headStream) drop(sub ethereum.Subscription) {
	sub.Unsubscribe()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == sub {
		s.sub = nil
	}
}

// Close unsubscribes from new heads
func (s *headStream) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
		logger.Info("Unsubscribed from new heads")
	}
}
