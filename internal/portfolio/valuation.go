// Package portfolio values the tracked holdings and evaluates portfolio alert thresholds.
package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/providers/pricefeed"
)

// Position is a holding priced at its latest quote
type Position struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
	Value  decimal.Decimal `json:"value"`
}

// Valuation is a priced snapshot of the portfolio
type Valuation struct {
	Positions []Position        `json:"positions"`
	Quotes    []pricefeed.Quote `json:"quotes"`
	Total     decimal.Decimal   `json:"total"`
}

// Value prices every holding. A holding whose symbol has no quote counts as zero.
func Value(holdings []domain.Holding, quotes []pricefeed.Quote) Valuation {
	prices := make(map[string]decimal.Decimal, len(quotes))
	for _, q := range quotes {
		prices[q.Symbol] = q.Price
	}

	v := Valuation{
		Positions: make([]Position, 0, len(holdings)),
		Quotes:    quotes,
		Total:     decimal.Zero,
	}
	for _, h := range holdings {
		price := prices[h.Symbol]
		value := h.Amount.Mul(price)
		v.Positions = append(v.Positions, Position{
			Symbol: h.Symbol,
			Amount: h.Amount,
			Price:  price,
			Value:  value,
		})
		v.Total = v.Total.Add(value)
	}
	return v
}
