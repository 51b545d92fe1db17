package schema

import (
	"github.com/shopspring/decimal"
)

// Holding represents the holdings table - the tracked portfolio
type Holding struct {
	// Symbol is the upper-case asset symbol, e.g. ETH
	Symbol string          `gorm:"column:symbol;primaryKey;type:varchar(16)"`
	Amount decimal.Decimal `gorm:"column:amount;not null;type:numeric(38,18)"`
}

// TableName specifies the table name for the Holding model
func (Holding) TableName() string {
	return "holdings"
}
