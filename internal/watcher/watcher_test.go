package watcher_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/mocks"
	"github.com/feral-file/ff-flow/internal/providers/ethereum"
	"github.com/feral-file/ff-flow/internal/watcher"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// finiteStream yields the given heads and then ends with err
type finiteStream struct {
	heads  []*ethereum.Head
	err    error
	closed bool
}

func (s *finiteStream) Next(ctx context.Context) (*ethereum.Head, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.heads) == 0 {
		return nil, s.err
	}
	h := s.heads[0]
	s.heads = s.heads[1:]
	return h, nil
}

func (s *finiteStream) Close() { s.closed = true }

func heads(numbers ...uint64) []*ethereum.Head {
	out := make([]*ethereum.Head, 0, len(numbers))
	for i, n := range numbers {
		out = append(out, &ethereum.Head{Number: n, ObservedAt: testNow.Add(time.Duration(i) * time.Second)})
	}
	return out
}

func block(number uint64) *domain.Block {
	return &domain.Block{
		Number: number,
		Transactions: []*domain.Transaction{
			{Hash: "0xa", To: "0x01", Value: big.NewInt(1), BlockNumber: number},
			{Hash: "0xb", To: "0x02", Value: big.NewInt(2), BlockNumber: number},
		},
	}
}

func TestWatcher_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockBlockSource(ctrl)
	handler := mocks.NewMockBlockHandler(ctrl)

	stream := &finiteStream{heads: heads(10, 11, 12), err: context.Canceled}
	w := watcher.NewWatcher(stream, source, handler, watcher.Config{ChainID: domain.ChainEthereumMainnet})

	source.EXPECT().LatestBlock(gomock.Any()).Return(uint64(9), nil)

	var handled []uint64
	gomock.InOrder(
		source.EXPECT().FetchBlock(gomock.Any(), uint64(10)).Return(block(10), nil),
		handler.EXPECT().HandleBlock(gomock.Any(), gomock.Any()).Do(func(_ context.Context, b *domain.Block) {
			handled = append(handled, b.Number)
			assert.Equal(t, testNow, b.ObservedAt)
			for _, tx := range b.Transactions {
				assert.Equal(t, testNow, tx.ObservedAt)
			}
		}),
		source.EXPECT().FetchBlock(gomock.Any(), uint64(11)).Return(nil, errors.New("rpc timeout")),
		source.EXPECT().FetchBlock(gomock.Any(), uint64(12)).Return(block(12), nil),
		handler.EXPECT().HandleBlock(gomock.Any(), gomock.Any()).Do(func(_ context.Context, b *domain.Block) {
			handled = append(handled, b.Number)
			assert.Equal(t, testNow.Add(2*time.Second), b.ObservedAt)
		}),
	)

	err := w.Run(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []uint64{10, 12}, handled, "a failed fetch skips only that block")
	assert.Equal(t, uint64(12), w.LastBlock())

	w.Close()
	assert.True(t, stream.closed)
}

func TestWatcher_Run_StreamFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockBlockSource(ctrl)
	handler := mocks.NewMockBlockHandler(ctrl)

	stream := &finiteStream{err: domain.ErrSubscriptionFailed}
	w := watcher.NewWatcher(stream, source, handler, watcher.Config{ChainID: domain.ChainEthereumMainnet})

	source.EXPECT().LatestBlock(gomock.Any()).Return(uint64(0), errors.New("node down"))

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSubscriptionFailed)
	assert.Equal(t, uint64(0), w.LastBlock())
}

func TestWatcher_Run_CancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockBlockSource(ctrl)
	handler := mocks.NewMockBlockHandler(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := &finiteStream{heads: heads(1)}
	w := watcher.NewWatcher(stream, source, handler, watcher.Config{})

	source.EXPECT().LatestBlock(gomock.Any()).Return(uint64(1), nil)

	assert.ErrorIs(t, w.Run(ctx), context.Canceled)
}
