package schema

import (
	"time"

	"gorm.io/datatypes"
)

// User represents the users table - profiles keyed by wallet address
type User struct {
	// Address is the lowercase wallet address
	Address string `gorm:"column:address;primaryKey;type:varchar(42)"`
	// Name is the optional display name
	Name string `gorm:"column:name;not null;default:'';type:text"`
	// Settings is the JSON encoded notification preferences and integrations
	Settings datatypes.JSON `gorm:"column:settings;not null;type:jsonb"`
	// NotificationRules is a JSON array of user defined rules
	NotificationRules datatypes.JSON `gorm:"column:notification_rules;not null;type:jsonb"`
	Executions        int64          `gorm:"column:executions;not null;default:0"`
	Workflows         int64          `gorm:"column:workflows;not null;default:0"`
	APICalls          int64          `gorm:"column:api_calls;not null;default:0"`
	// Plan is free, monthly or bimonthly
	Plan          string     `gorm:"column:plan;not null;default:'free';type:varchar(16)"`
	PlanExpiresAt *time.Time `gorm:"column:plan_expires_at;type:timestamptz"`
	// APIKey is empty until the user asks for one
	APIKey string `gorm:"column:api_key;not null;default:'';type:varchar(64);index:idx_users_api_key"`
	// PaymentTxHashes is a JSON array of redeemed upgrade payments
	PaymentTxHashes datatypes.JSON `gorm:"column:payment_tx_hashes;type:jsonb"`
	CreatedAt       time.Time      `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
