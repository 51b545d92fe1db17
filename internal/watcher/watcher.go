package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/metrics"
	"github.com/feral-file/ff-flow/internal/providers/ethereum"
)

// Config holds the configuration for the chain watcher
type Config struct {
	ChainID domain.Chain
}

// BlockHandler processes one fetched block. It must not return before every
// transaction in the block is fully handled.
//
//go:generate mockgen -source=watcher.go -destination=../mocks/watcher.go -package=mocks -mock_names=BlockHandler=MockBlockHandler,Watcher=MockWatcher
type BlockHandler interface {
	HandleBlock(ctx context.Context, block *domain.Block)
}

// Watcher defines the interface for the chain watcher
type Watcher interface {
	// Run consumes heads until ctx is cancelled or the stream fails for good
	Run(ctx context.Context) error
	// LastBlock returns the number of the last block handed to the handler
	LastBlock() uint64
	// Close closes the head stream
	Close()
}

type watcher struct {
	stream  ethereum.HeadStream
	source  ethereum.BlockSource
	handler BlockHandler
	config  Config

	lastBlock atomic.Uint64
}

// NewWatcher creates a new chain watcher
func NewWatcher(
	stream ethereum.HeadStream,
	source ethereum.BlockSource,
	handler BlockHandler,
	cfg Config,
) Watcher {
	return &watcher{
		stream:  stream,
		source:  source,
		handler: handler,
		config:  cfg,
	}
}

// Run handles blocks one at a time in head order
func (w *watcher) Run(ctx context.Context) error {
	chain := zap.String("chain", string(w.config.ChainID))

	if latest, err := w.source.LatestBlock(ctx); err != nil {
		logger.WarnCtx(ctx, "Failed to read latest block", chain, zap.Error(err))
	} else {
		logger.InfoCtx(ctx, "Starting from latest block", chain, logger.Block(latest))
	}

	for {
		head, err := w.stream.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("head stream failed: %w", err)
		}

		block, err := w.source.FetchBlock(ctx, head.Number)
		if err != nil {
			// No retry: the block is skipped
			metrics.BlockFetchErrors.Inc()
			logger.ErrorCtx(ctx, err, chain, logger.Block(head.Number))
			continue
		}

		block.ObservedAt = head.ObservedAt
		for _, tx := range block.Transactions {
			tx.ObservedAt = head.ObservedAt
		}

		logger.DebugCtx(ctx, "Handling block",
			chain,
			logger.Block(block.Number),
			zap.Int("transactions", len(block.Transactions)),
		)

		w.handler.HandleBlock(ctx, block)

		w.lastBlock.Store(block.Number)
		metrics.LatestBlock.Set(float64(block.Number))
		metrics.BlocksProcessed.Inc()
	}
}

// LastBlock returns the last handled block number
func (w *watcher) LastBlock() uint64 {
	return w.lastBlock.Load()
}

// Close closes the head stream
func (w *watcher) Close() {
	w.stream.Close()
}
