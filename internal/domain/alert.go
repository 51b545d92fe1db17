package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertKind is the evaluation strategy of a portfolio alert
type AlertKind string

const (
	AlertKindPortfolioValue AlertKind = "portfolio_value"
	AlertKindPriceTarget    AlertKind = "price_target"
	AlertKindStopLoss       AlertKind = "stop_loss"
	AlertKindAllocation     AlertKind = "allocation"
	AlertKindDailySummary   AlertKind = "daily_summary"
)

// Valid reports whether the alert kind is known
func (k AlertKind) Valid() bool {
	switch k {
	case AlertKindPortfolioValue, AlertKindPriceTarget, AlertKindStopLoss, AlertKindAllocation, AlertKindDailySummary:
		return true
	}
	return false
}

// AlertStatus is the lifecycle status of a portfolio alert
type AlertStatus string

const (
	AlertStatusActive AlertStatus = "active"
	AlertStatusPaused AlertStatus = "paused"
)

// PortfolioAlert fires when the portfolio value crosses a threshold.
// A triggered alert stays active and can fire again on the next evaluation.
type PortfolioAlert struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	UserAddress   string           `json:"userAddress,omitempty"`
	Description   string           `json:"description,omitempty"`
	Kind          AlertKind        `json:"kind"`
	Threshold     string           `json:"threshold"`
	BaselineValue *decimal.Decimal `json:"baselineValue,omitempty"`
	Status        AlertStatus      `json:"status"`
	Action        ActionSpec       `json:"action"`
	LastTriggered *time.Time       `json:"lastTriggered,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// IsActive reports whether the alert takes part in evaluation
func (a *PortfolioAlert) IsActive() bool {
	return a.Status == AlertStatusActive
}

// Clone returns a deep copy of the alert
func (a *PortfolioAlert) Clone() *PortfolioAlert {
	if a == nil {
		return nil
	}
	c := *a
	if a.BaselineValue != nil {
		b := *a.BaselineValue
		c.BaselineValue = &b
	}
	if a.LastTriggered != nil {
		t := *a.LastTriggered
		c.LastTriggered = &t
	}
	return &c
}

// Holding is an amount of a symbol in the tracked portfolio
type Holding struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}
