package ethereum_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/mocks"
	flowethereum "github.com/feral-file/ff-flow/internal/providers/ethereum"
)

var (
	watchedAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	fallbackFrom = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func buildTestBlock(t *testing.T) (*types.Block, common.Address) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	mainnet := types.LatestSignerForChainID(big.NewInt(1))

	transfer := types.MustSignNewTx(key, mainnet, &types.LegacyTx{
		Nonce:    0,
		To:       &watchedAddr,
		Value:    big.NewInt(1_500_000_000_000_000_000),
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
	creation := types.MustSignNewTx(key, mainnet, &types.LegacyTx{
		Nonce:    1,
		Value:    big.NewInt(0),
		Gas:      100000,
		GasPrice: big.NewInt(1),
		Data:     []byte{0x60, 0x00},
	})
	// signed for another chain so local recovery fails
	foreign := types.MustSignNewTx(key, types.LatestSignerForChainID(big.NewInt(5)), &types.DynamicFeeTx{
		ChainID:   big.NewInt(5),
		Nonce:     2,
		To:        &watchedAddr,
		Value:     big.NewInt(7),
		Gas:       21000,
		GasFeeCap: big.NewInt(2),
		GasTipCap: big.NewInt(1),
	})

	block := types.NewBlockWithHeader(&types.Header{
		Number: big.NewInt(100),
		Time:   1714564800,
	}).WithBody(types.Body{Transactions: []*types.Transaction{transfer, creation, foreign}})

	return block, from
}

func TestBlockSource_FetchBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockEthClient(ctrl)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(testNow).AnyTimes()

	block, from := buildTestBlock(t)

	client.EXPECT().BlockByNumber(gomock.Any(), big.NewInt(100)).Return(block, nil)
	client.EXPECT().TransactionSender(gomock.Any(), gomock.Any(), block.Hash(), uint(2)).Return(fallbackFrom, nil)

	source, err := flowethereum.NewBlockSource(client, domain.ChainEthereumMainnet, clock)
	require.NoError(t, err)

	got, err := source.FetchBlock(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, uint64(100), got.Number)
	assert.Equal(t, block.Hash().Hex(), got.Hash)
	assert.Equal(t, time.Unix(1714564800, 0).UTC(), got.Time)
	assert.Equal(t, testNow, got.ObservedAt)

	require.Len(t, got.Transactions, 2, "contract creation is dropped")

	first := got.Transactions[0]
	assert.Equal(t, from.Hex(), first.From)
	assert.Equal(t, watchedAddr.Hex(), first.To)
	assert.Equal(t, "1.5", first.ValueEther())
	assert.Equal(t, uint64(100), first.BlockNumber)
	assert.Equal(t, domain.ChainEthereumMainnet, first.Chain)

	second := got.Transactions[1]
	assert.Equal(t, fallbackFrom.Hex(), second.From, "sender falls back to the node")
	assert.Equal(t, int64(7), second.Value.Int64())
}

func TestBlockSource_SenderUnrecoverable(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockEthClient(ctrl)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(testNow).AnyTimes()

	block, _ := buildTestBlock(t)
	client.EXPECT().BlockByNumber(gomock.Any(), gomock.Any()).Return(block, nil)
	client.EXPECT().TransactionSender(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(common.Address{}, errors.New("not found"))

	source, err := flowethereum.NewBlockSource(client, domain.ChainEthereumMainnet, clock)
	require.NoError(t, err)

	got, err := source.FetchBlock(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, got.Transactions, 2)
	assert.Empty(t, got.Transactions[1].From)
	assert.Equal(t, watchedAddr.Hex(), got.Transactions[1].To)
}

func TestBlockSource_FetchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockEthClient(ctrl)
	clock := mocks.NewMockClock(ctrl)

	client.EXPECT().BlockByNumber(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

	source, err := flowethereum.NewBlockSource(client, domain.ChainEthereumMainnet, clock)
	require.NoError(t, err)

	_, err = source.FetchBlock(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get block 5")
}

func TestBlockSource_LatestBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockEthClient(ctrl)
	clock := mocks.NewMockClock(ctrl)

	client.EXPECT().HeaderByNumber(gomock.Any(), nil).Return(&types.Header{Number: big.NewInt(77)}, nil)

	source, err := flowethereum.NewBlockSource(client, domain.ChainBaseMainnet, clock)
	require.NoError(t, err)

	n, err := source.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(77), n)
}

func TestChainID(t *testing.T) {
	tests := []struct {
		chain    domain.Chain
		expected int64
		wantErr  bool
	}{
		{chain: domain.ChainEthereumMainnet, expected: 1},
		{chain: domain.ChainEthereumSepolia, expected: 11155111},
		{chain: domain.ChainBaseMainnet, expected: 8453},
		{chain: "tezos:mainnet", wantErr: true},
		{chain: "eip155:abc", wantErr: true},
		{chain: "eip155", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.chain), func(t *testing.T) {
			id, err := flowethereum.ChainID(tt.chain)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id.Int64())
		})
	}
}
