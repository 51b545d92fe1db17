package portfolio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-flow/internal/domain"
)

// ErrMissingBaseline is returned when a percentage alert has no usable baseline
var ErrMissingBaseline = errors.New("percentage alert has no baseline")

var hundred = decimal.NewFromInt(100)

// Threshold is a parsed alert threshold
type Threshold struct {
	Value   decimal.Decimal
	Percent bool
}

// ParseThreshold parses "5000", "$5,000", "+10%" or "-10 %".
// Everything except digits, '.' and '-' is ignored.
func ParseThreshold(raw string) (Threshold, error) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return Threshold{}, fmt.Errorf("%w: %q", domain.ErrInvalidThreshold, raw)
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Threshold{}, fmt.Errorf("%w: %q", domain.ErrInvalidThreshold, raw)
	}

	return Threshold{Value: value, Percent: strings.Contains(raw, "%")}, nil
}

// IsPercentThreshold reports whether a raw threshold is relative to a baseline
func IsPercentThreshold(raw string) bool {
	return strings.Contains(raw, "%")
}

// ChangePercent returns (total - baseline) / baseline * 100
func ChangePercent(total, baseline decimal.Decimal) (decimal.Decimal, error) {
	if baseline.IsZero() {
		return decimal.Zero, ErrMissingBaseline
	}
	return total.Sub(baseline).Div(baseline).Mul(hundred), nil
}

// Evaluation is the result of checking one alert against a portfolio total
type Evaluation struct {
	Fired     bool
	Threshold Threshold
	// ChangePercent is set for percentage alerts only
	ChangePercent *decimal.Decimal
}

// Evaluate checks an alert against the current total.
// Absolute alerts fire when total >= threshold. Percentage alerts fire when
// |change since baseline| >= |threshold|.
func Evaluate(alert *domain.PortfolioAlert, total decimal.Decimal) (Evaluation, error) {
	th, err := ParseThreshold(alert.Threshold)
	if err != nil {
		return Evaluation{}, err
	}

	if !th.Percent {
		return Evaluation{Fired: total.GreaterThanOrEqual(th.Value), Threshold: th}, nil
	}

	if alert.BaselineValue == nil {
		return Evaluation{Threshold: th}, ErrMissingBaseline
	}
	change, err := ChangePercent(total, *alert.BaselineValue)
	if err != nil {
		return Evaluation{Threshold: th}, err
	}

	return Evaluation{
		Fired:         change.Abs().GreaterThanOrEqual(th.Value.Abs()),
		Threshold:     th,
		ChangePercent: &change,
	}, nil
}
