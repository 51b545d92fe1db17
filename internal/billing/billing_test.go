package billing_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-flow/internal/billing"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/mocks"
	"github.com/feral-file/ff-flow/internal/providers/ethereum"
	"github.com/feral-file/ff-flow/internal/store"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const (
	payer   = "0x00000000000000000000000000000000000000aa"
	payee   = "0x3333333333333333333333333333333333333333"
	paidTx  = "0x1111111111111111111111111111111111111111111111111111111111111111"
	otherTx = "0x2222222222222222222222222222222222222222222222222222222222222222"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testBillingMocks struct {
	ctrl     *gomock.Controller
	verifier *mocks.MockPaymentVerifier
	store    store.Store
	service  billing.Service
}

func setupTestBilling(t *testing.T, paymentAddress string) *testBillingMocks {
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(testNow).AnyTimes()

	tm := &testBillingMocks{
		ctrl:     ctrl,
		verifier: mocks.NewMockPaymentVerifier(ctrl),
		store:    store.NewMemoryStore(),
	}
	svc, err := billing.NewService(billing.Config{
		PaymentAddress: paymentAddress,
		Prices: map[domain.Plan]decimal.Decimal{
			domain.PlanMonthly:   decimal.RequireFromString("0.1"),
			domain.PlanBimonthly: decimal.RequireFromString("0.18"),
		},
	}, tm.verifier, tm.store, clock)
	require.NoError(t, err)
	tm.service = svc
	return tm
}

func weiFor(eth string) *big.Int {
	return decimal.RequireFromString(eth).Shift(18).BigInt()
}

func TestUpgrade_Success(t *testing.T) {
	tm := setupTestBilling(t, payee)
	ctx := context.Background()

	tm.verifier.EXPECT().VerifyPayment(gomock.Any(), ethereum.Payment{
		TxHash: paidTx,
		From:   payer,
		To:     payee,
		Amount: weiFor("0.18"),
	}).Return(nil)

	price := decimal.RequireFromString("0.18")
	u, err := tm.service.Upgrade(ctx, payer, billing.UpgradeRequest{
		Plan:     domain.PlanBimonthly,
		TxHash:   paidTx,
		PriceETH: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PlanBimonthly, u.Plan)
	require.NotNil(t, u.PlanExpiresAt)
	assert.True(t, u.PlanExpiresAt.Equal(testNow.AddDate(0, 2, 0)))

	stored, err := tm.store.GetUser(ctx, payer)
	require.NoError(t, err)
	assert.Equal(t, []string{paidTx}, stored.PaymentTxHashes)
}

func TestUpgrade_ReplayedTransaction(t *testing.T) {
	tm := setupTestBilling(t, payee)
	ctx := context.Background()

	tm.verifier.EXPECT().VerifyPayment(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	_, err := tm.service.Upgrade(ctx, payer, billing.UpgradeRequest{Plan: domain.PlanMonthly, TxHash: paidTx})
	require.NoError(t, err)

	_, err = tm.service.Upgrade(ctx, payer, billing.UpgradeRequest{Plan: domain.PlanMonthly, TxHash: paidTx})
	assert.ErrorIs(t, err, domain.ErrPaymentNotVerified)

	stored, err := tm.store.GetUser(ctx, payer)
	require.NoError(t, err)
	assert.True(t, stored.PlanExpiresAt.Equal(testNow.AddDate(0, 1, 0)))
}

func TestUpgrade_Rejections(t *testing.T) {
	wrongPrice := decimal.RequireFromString("0.01")

	tests := []struct {
		name    string
		address string
		req     billing.UpgradeRequest
		setup   func(tm *testBillingMocks)
		wantErr error
	}{
		{
			name:    "billing disabled",
			req:     billing.UpgradeRequest{Plan: domain.PlanMonthly, TxHash: paidTx},
			wantErr: domain.ErrBillingDisabled,
		},
		{
			name:    "unknown plan",
			address: payee,
			req:     billing.UpgradeRequest{Plan: domain.PlanFree, TxHash: paidTx},
			wantErr: domain.ErrUnknownPlan,
		},
		{
			name:    "client price mismatch",
			address: payee,
			req:     billing.UpgradeRequest{Plan: domain.PlanMonthly, TxHash: paidTx, PriceETH: &wrongPrice},
			wantErr: domain.ErrPaymentNotVerified,
		},
		{
			name:    "payment not verified",
			address: payee,
			req:     billing.UpgradeRequest{Plan: domain.PlanMonthly, TxHash: otherTx},
			setup: func(tm *testBillingMocks) {
				tm.verifier.EXPECT().VerifyPayment(gomock.Any(), gomock.Any()).Return(domain.ErrPaymentNotVerified)
			},
			wantErr: domain.ErrPaymentNotVerified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestBilling(t, tt.address)
			if tt.setup != nil {
				tt.setup(tm)
			}

			_, err := tm.service.Upgrade(context.Background(), payer, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)

			stored, err := tm.store.GetUser(context.Background(), payer)
			require.NoError(t, err)
			assert.Equal(t, domain.PlanFree, stored.Plan)
			assert.Empty(t, stored.PaymentTxHashes)
		})
	}
}

func TestUpgrade_NodeFailure(t *testing.T) {
	tm := setupTestBilling(t, payee)
	tm.verifier.EXPECT().VerifyPayment(gomock.Any(), gomock.Any()).Return(errors.New("dial tcp: timeout"))

	_, err := tm.service.Upgrade(context.Background(), payer, billing.UpgradeRequest{Plan: domain.PlanMonthly, TxHash: paidTx})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPaymentNotVerified)
}

func TestNewService_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)

	_, err := billing.NewService(billing.Config{PaymentAddress: "not-an-address"}, nil, store.NewMemoryStore(), clock)
	assert.Error(t, err)

	_, err = billing.NewService(billing.Config{
		PaymentAddress: payee,
		Prices:         map[domain.Plan]decimal.Decimal{domain.PlanMonthly: decimal.Zero},
	}, nil, store.NewMemoryStore(), clock)
	assert.Error(t, err)

	svc, err := billing.NewService(billing.Config{}, nil, store.NewMemoryStore(), clock)
	require.NoError(t, err)
	assert.False(t, svc.Enabled())
}
