package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Workflow represents the workflows table - trigger to action bindings owned by a user
type Workflow struct {
	// ID is the client supplied workflow identifier
	ID string `gorm:"column:id;primaryKey;type:varchar(64)"`
	// Name is the display name used in notifications
	Name string `gorm:"column:name;not null;type:text"`
	// Description is free text shown in the dashboard
	Description string `gorm:"column:description;not null;default:'';type:text"`
	// UserAddress is the lowercase wallet address of the owner
	UserAddress string `gorm:"column:user_address;not null;type:varchar(42);index:idx_workflows_user_address"`
	// TriggerKind is the trigger category (eth_transfer, nft_purchase, ...)
	TriggerKind string `gorm:"column:trigger_kind;not null;type:varchar(32)"`
	// SourceAddress is the watched address for transfer triggers
	SourceAddress string `gorm:"column:source_address;not null;default:'';type:varchar(42)"`
	// Action is the JSON encoded action spec
	Action datatypes.JSON `gorm:"column:action;not null;type:jsonb"`
	// Message is the optional JSON encoded message template
	Message datatypes.JSON `gorm:"column:message;type:jsonb"`
	NotificationRuleID string `gorm:"column:notification_rule_id;not null;default:'';type:varchar(64)"`
	PortfolioAlertID   string `gorm:"column:portfolio_alert_id;not null;default:'';type:varchar(64);index:idx_workflows_portfolio_alert_id"`
	// IsActive indicates whether the workflow takes part in matching
	IsActive bool `gorm:"column:is_active;not null;index:idx_workflows_is_active"`
	// ExecutionCount is the number of recorded executions
	ExecutionCount         int64   `gorm:"column:execution_count;not null;default:0"`
	PreviousExecutionCount *int64  `gorm:"column:previous_execution_count"`
	SuccessRate            float64 `gorm:"column:success_rate;not null;default:0"`
	// ResponseTimes is a JSON array of response times in milliseconds
	ResponseTimes datatypes.JSON `gorm:"column:response_times;not null;type:jsonb"`
	// ExecutionTimestamps is a JSON array of RFC 3339 execution times
	ExecutionTimestamps datatypes.JSON `gorm:"column:execution_timestamps;not null;type:jsonb"`
	LastTriggered       *time.Time     `gorm:"column:last_triggered;type:timestamptz"`
	CreatedAt           time.Time      `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Workflow model
func (Workflow) TableName() string {
	return "workflows"
}
