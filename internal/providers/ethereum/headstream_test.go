package ethereum_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/mocks"
	flowethereum "github.com/feral-file/ff-flow/internal/providers/ethereum"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeSubscription is a controllable ethereum.Subscription
type fakeSubscription struct {
	errCh chan error
	once  sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{errCh: make(chan error, 1)}
}

func (f *fakeSubscription) Err() <-chan error { return f.errCh }

func (f *fakeSubscription) Unsubscribe() {
	f.once.Do(func() { close(f.errCh) })
}

type testStreamMocks struct {
	ctrl   *gomock.Controller
	client *mocks.MockEthClient
	clock  *mocks.MockClock
	stream flowethereum.HeadStream
}

func setupStream(t *testing.T) *testStreamMocks {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockEthClient(ctrl)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(testNow).AnyTimes()

	stream := flowethereum.NewHeadStream(client, flowethereum.StreamConfig{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}, clock)
	t.Cleanup(stream.Close)

	return &testStreamMocks{ctrl: ctrl, client: client, clock: clock, stream: stream}
}

func header(number int64) *types.Header {
	return &types.Header{Number: big.NewInt(number), Time: uint64(1714564800 + number)}
}

func subscribeWith(sub ethereum.Subscription, heads ...*types.Header) func(context.Context, chan<- *types.Header) (ethereum.Subscription, error) {
	return func(_ context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
		for _, h := range heads {
			ch <- h
		}
		return sub, nil
	}
}

func TestHeadStream_Next(t *testing.T) {
	m := setupStream(t)
	ctx := context.Background()

	m.client.EXPECT().SubscribeNewHead(gomock.Any(), gomock.Any()).
		DoAndReturn(subscribeWith(newFakeSubscription(), header(10), nil, header(11))).
		Times(1)

	first, err := m.stream.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), first.Number)
	assert.Equal(t, time.Unix(1714564810, 0).UTC(), first.Time)
	assert.Equal(t, testNow, first.ObservedAt)
	assert.NotEmpty(t, first.Hash)

	second, err := m.stream.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), second.Number, "nil heads are skipped")
}

func TestHeadStream_ResubscribesAfterDrop(t *testing.T) {
	m := setupStream(t)
	ctx := context.Background()

	dropped := newFakeSubscription()
	dropped.errCh <- errors.New("websocket closed")

	gomock.InOrder(
		m.client.EXPECT().SubscribeNewHead(gomock.Any(), gomock.Any()).DoAndReturn(subscribeWith(dropped)),
		m.client.EXPECT().SubscribeNewHead(gomock.Any(), gomock.Any()).Return(nil, errors.New("dial refused")),
		m.client.EXPECT().SubscribeNewHead(gomock.Any(), gomock.Any()).Return(nil, errors.New("dial refused")),
		m.client.EXPECT().SubscribeNewHead(gomock.Any(), gomock.Any()).DoAndReturn(subscribeWith(newFakeSubscription(), header(42))),
	)

	head, err := m.stream.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), head.Number)
}

func TestHeadStream_ContextEndsRetries(t *testing.T) {
	m := setupStream(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	m.client.EXPECT().SubscribeNewHead(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("node down")).
		MinTimes(1)

	_, err := m.stream.Next(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHeadStream_ContextCancelledWhileWaiting(t *testing.T) {
	m := setupStream(t)
	ctx, cancel := context.WithCancel(context.Background())

	m.client.EXPECT().SubscribeNewHead(gomock.Any(), gomock.Any()).
		DoAndReturn(subscribeWith(newFakeSubscription()))

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := m.stream.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
