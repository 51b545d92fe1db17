package schema

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PortfolioAlert represents the portfolio_alerts table
type PortfolioAlert struct {
	ID          string `gorm:"column:id;primaryKey;type:varchar(64)"`
	Name        string `gorm:"column:name;not null;type:text"`
	UserAddress string `gorm:"column:user_address;not null;default:'';type:varchar(42)"`
	Description string `gorm:"column:description;not null;default:'';type:text"`
	// Kind is the evaluation strategy (portfolio_value, price_target, ...)
	Kind string `gorm:"column:kind;not null;type:varchar(32)"`
	// Threshold is the raw user input, e.g. "$1,000" or "5%"
	Threshold string `gorm:"column:threshold;not null;type:text"`
	// BaselineValue is the portfolio value captured when the alert was created
	BaselineValue decimal.NullDecimal `gorm:"column:baseline_value;type:numeric(38,18)"`
	// Status is active or paused
	Status string `gorm:"column:status;not null;default:'active';type:varchar(16);index:idx_portfolio_alerts_status"`
	// Action is the JSON encoded action spec
	Action        datatypes.JSON `gorm:"column:action;not null;type:jsonb"`
	LastTriggered *time.Time     `gorm:"column:last_triggered;type:timestamptz"`
	CreatedAt     time.Time      `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the PortfolioAlert model
func (PortfolioAlert) TableName() string {
	return "portfolio_alerts"
}
