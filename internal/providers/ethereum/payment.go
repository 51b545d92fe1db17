package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
)

// Payment is the transfer a plan upgrade expects to find on chain
type Payment struct {
	TxHash string
	From   string
	To     string
	Amount *big.Int
}

// PaymentVerifier checks plan payments against the chain
//
//go:generate mockgen -source=payment.go -destination=../../mocks/payment.go -package=mocks -mock_names=PaymentVerifier=MockPaymentVerifier
type PaymentVerifier interface {
	// VerifyPayment returns domain.ErrPaymentNotVerified unless the transaction is mined,
	// succeeded, was sent by From to To and carries exactly Amount wei.
	// Node failures are returned as is.
	VerifyPayment(ctx context.Context, p Payment) error
}

type paymentVerifier struct {
	client adapter.EthClient
	signer types.Signer
}

// NewPaymentVerifier creates a verifier for a CAIP-2 chain such as "eip155:1"
func NewPaymentVerifier(client adapter.EthClient, chain domain.Chain) (PaymentVerifier, error) {
	chainID, err := ChainID(chain)
	if err != nil {
		return nil, err
	}
	return &paymentVerifier{
		client: client,
		signer: types.LatestSignerForChainID(chainID),
	}, nil
}

func (v *paymentVerifier) VerifyPayment(ctx context.Context, p Payment) error {
	raw, err := hexutil.Decode(p.TxHash)
	if err != nil || len(raw) != common.HashLength {
		return fmt.Errorf("%w: malformed transaction hash %q", domain.ErrPaymentNotVerified, p.TxHash)
	}
	hash := common.BytesToHash(raw)

	tx, pending, err := v.client.TransactionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("%w: transaction %s not found", domain.ErrPaymentNotVerified, p.TxHash)
		}
		return fmt.Errorf("failed to get transaction %s: %w", p.TxHash, err)
	}
	if pending {
		return fmt.Errorf("%w: transaction %s is pending", domain.ErrPaymentNotVerified, p.TxHash)
	}

	receipt, err := v.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("%w: transaction %s has no receipt", domain.ErrPaymentNotVerified, p.TxHash)
		}
		return fmt.Errorf("failed to get receipt %s: %w", p.TxHash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: transaction %s failed", domain.ErrPaymentNotVerified, p.TxHash)
	}

	if tx.To() == nil || !domain.SameAddress(tx.To().Hex(), p.To) {
		return fmt.Errorf("%w: transaction %s was not sent to the payment address", domain.ErrPaymentNotVerified, p.TxHash)
	}
	if p.Amount == nil || tx.Value().Cmp(p.Amount) != 0 {
		return fmt.Errorf("%w: transaction %s value %s does not match the plan price", domain.ErrPaymentNotVerified, p.TxHash, tx.Value())
	}

	from, err := types.Sender(v.signer, tx)
	if err != nil {
		return fmt.Errorf("%w: cannot recover sender of %s: %v", domain.ErrPaymentNotVerified, p.TxHash, err)
	}
	if !domain.SameAddress(from.Hex(), p.From) {
		return fmt.Errorf("%w: transaction %s was not sent by %s", domain.ErrPaymentNotVerified, p.TxHash, p.From)
	}

	logger.InfoCtx(ctx, "Payment verified",
		logger.TxHash(p.TxHash),
		logger.User(p.From),
		zap.String("amount", p.Amount.String()),
	)
	return nil
}
