package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
)

// BlockSource fetches full blocks and normalizes their transactions
//
//go:generate mockgen -source=block_source.go -destination=../../mocks/block_source.go -package=mocks -mock_names=BlockSource=MockBlockSource
type BlockSource interface {
	// FetchBlock returns the block with its value transfers in block order.
	// Contract creations are dropped.
	FetchBlock(ctx context.Context, number uint64) (*domain.Block, error)
	// LatestBlock returns the current head number
	LatestBlock(ctx context.Context) (uint64, error)
}

type blockSource struct {
	client adapter.EthClient
	chain  domain.Chain
	signer types.Signer
	clock  adapter.Clock
}

// NewBlockSource creates a block source for a CAIP-2 chain such as "eip155:1"
func NewBlockSource(client adapter.EthClient, chain domain.Chain, clock adapter.Clock) (BlockSource, error) {
	chainID, err := ChainID(chain)
	if err != nil {
		return nil, err
	}
	return &blockSource{
		client: client,
		chain:  chain,
		signer: types.LatestSignerForChainID(chainID),
		clock:  clock,
	}, nil
}

// FetchBlock fetches the block by number
func (s *blockSource) FetchBlock(ctx context.Context, number uint64) (*domain.Block, error) {
	b, err := s.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", number, err)
	}

	observed := s.clock.Now().UTC()
	blockTime := time.Unix(int64(b.Time()), 0).UTC() //nolint:gosec,G115
	block := &domain.Block{
		Chain:      s.chain,
		Number:     b.NumberU64(),
		Hash:       b.Hash().Hex(),
		Time:       blockTime,
		ObservedAt: observed,
	}

	for i, tx := range b.Transactions() {
		if tx.To() == nil {
			continue
		}

		from, err := s.sender(ctx, tx, b.Hash(), uint(i)) //nolint:gosec,G115
		if err != nil {
			logger.WarnCtx(ctx, "Failed to recover transaction sender",
				logger.Block(block.Number),
				logger.TxHash(tx.Hash().Hex()),
				zap.Error(err),
			)
		}

		block.Transactions = append(block.Transactions, &domain.Transaction{
			Chain:       s.chain,
			Hash:        tx.Hash().Hex(),
			From:        from,
			To:          tx.To().Hex(),
			Value:       new(big.Int).Set(tx.Value()),
			BlockNumber: block.Number,
			BlockTime:   blockTime,
			ObservedAt:  observed,
		})
	}

	return block, nil
}

// sender recovers the signer locally and falls back to the node
func (s *blockSource) sender(ctx context.Context, tx *types.Transaction, blockHash common.Hash, index uint) (string, error) {
	addr, err := types.Sender(s.signer, tx)
	if err == nil {
		return addr.Hex(), nil
	}

	addr, rpcErr := s.client.TransactionSender(ctx, tx, blockHash, index)
	if rpcErr != nil {
		return "", fmt.Errorf("local recovery: %v, rpc: %w", err, rpcErr)
	}
	return addr.Hex(), nil
}

// LatestBlock returns the latest block number
func (s *blockSource) LatestBlock(ctx context.Context) (uint64, error) {
	header, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// ChainID extracts the numeric EIP-155 chain id from a CAIP-2 chain
func ChainID(chain domain.Chain) (*big.Int, error) {
	ns, ref, ok := strings.Cut(string(chain), ":")
	if !ok || ns != "eip155" {
		return nil, fmt.Errorf("unsupported chain %q", chain)
	}
	id, ok := new(big.Int).SetString(ref, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id in %q", chain)
	}
	return id, nil
}
