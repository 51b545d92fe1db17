// Package billing sells paid plans against on-chain ETH payments.
package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/providers/ethereum"
	"github.com/feral-file/ff-flow/internal/store"
)

const weiDecimals = 18

// Config holds the payment address and the ETH price of each paid plan
type Config struct {
	PaymentAddress string
	Prices         map[domain.Plan]decimal.Decimal
}

// UpgradeRequest is a user's claim that a transaction paid for a plan
type UpgradeRequest struct {
	Plan   domain.Plan
	TxHash string
	// PriceETH is the price the client showed, nil when it sent none
	PriceETH *decimal.Decimal
}

// Service defines the interface for plan upgrades
//
//go:generate mockgen -source=billing.go -destination=../mocks/billing.go -package=mocks -mock_names=Service=MockBillingService
type Service interface {
	// Enabled reports whether a payment address is configured
	Enabled() bool
	// Upgrade verifies the payment and moves the user onto the plan
	Upgrade(ctx context.Context, address string, req UpgradeRequest) (*domain.User, error)
}

type service struct {
	cfg      Config
	verifier ethereum.PaymentVerifier
	users    store.UserStore
	clock    adapter.Clock
}

// NewService creates a billing service, validating the configured prices
func NewService(cfg Config, verifier ethereum.PaymentVerifier, users store.UserStore, clock adapter.Clock) (Service, error) {
	if cfg.PaymentAddress != "" && !common.IsHexAddress(cfg.PaymentAddress) {
		return nil, fmt.Errorf("invalid payment address %q", cfg.PaymentAddress)
	}
	for plan, price := range cfg.Prices {
		if plan.Months() == 0 {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPlan, plan)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("price of plan %q must be positive", plan)
		}
	}
	return &service{
		cfg:      cfg,
		verifier: verifier,
		users:    users,
		clock:    clock,
	}, nil
}

func (s *service) Enabled() bool {
	return s.cfg.PaymentAddress != "" && s.verifier != nil
}

func (s *service) Upgrade(ctx context.Context, address string, req UpgradeRequest) (*domain.User, error) {
	if !s.Enabled() {
		return nil, domain.ErrBillingDisabled
	}
	price, ok := s.cfg.Prices[req.Plan]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPlan, req.Plan)
	}
	if req.PriceETH != nil && !req.PriceETH.Equal(price) {
		return nil, fmt.Errorf("%w: plan %s costs %s ETH, not %s", domain.ErrPaymentNotVerified, req.Plan, price, req.PriceETH)
	}

	address = domain.NormalizeAddress(address)
	err := s.verifier.VerifyPayment(ctx, ethereum.Payment{
		TxHash: req.TxHash,
		From:   address,
		To:     s.cfg.PaymentAddress,
		Amount: price.Shift(weiDecimals).BigInt(),
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	u, err := s.users.UpdateUser(ctx, address, func(u *domain.User) error {
		if err := u.RedeemPayment(strings.ToLower(req.TxHash)); err != nil {
			return err
		}
		return u.UpgradePlan(req.Plan, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade plan: %w", err)
	}

	logger.InfoCtx(ctx, "Plan upgraded",
		logger.User(address),
		logger.TxHash(req.TxHash),
		zap.String("plan", string(req.Plan)),
		zap.Timep("expires_at", u.PlanExpiresAt),
	)
	return u, nil
}
