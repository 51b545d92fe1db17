package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// Transaction is the normalized view of an on-chain transaction
type Transaction struct {
	Chain       Chain     `json:"chain"`
	Hash        string    `json:"hash"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Value       *big.Int  `json:"value"`
	BlockNumber uint64    `json:"blockNumber"`
	BlockTime   time.Time `json:"blockTime"`
	ObservedAt  time.Time `json:"observedAt"`
}

// ValueEther formats the wei value in ether without trailing zeros
func (t *Transaction) ValueEther() string {
	if t == nil || t.Value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(t.Value, -etherDecimals).String()
}

// Block is a fetched block with its transactions in block order
type Block struct {
	Chain        Chain
	Number       uint64
	Hash         string
	Time         time.Time
	ObservedAt   time.Time
	Transactions []*Transaction
}
