package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Template represents the templates table - reusable workflow blueprints
type Template struct {
	ID          string `gorm:"column:id;primaryKey;type:varchar(64)"`
	UserAddress string `gorm:"column:user_address;not null;type:varchar(42);index:idx_templates_user_address"`
	Name        string `gorm:"column:name;not null;type:text"`
	Description string `gorm:"column:description;not null;default:'';type:text"`
	Category    string `gorm:"column:category;not null;type:varchar(16)"`
	TriggerKind string `gorm:"column:trigger_kind;not null;type:varchar(32)"`
	Channel     string `gorm:"column:channel;not null;type:varchar(16)"`
	IsPublic    bool   `gorm:"column:is_public;not null;default:false"`
	IsPremium   bool   `gorm:"column:is_premium;not null;default:false"`
	// Tags is a JSON array of strings
	Tags           datatypes.JSON `gorm:"column:tags;not null;type:jsonb"`
	MessageSubject string         `gorm:"column:message_subject;not null;default:'';type:text"`
	MessageBody    string         `gorm:"column:message_body;not null;default:'';type:text"`
	UsageCount     int64          `gorm:"column:usage_count;not null;default:0"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Template model
func (Template) TableName() string {
	return "templates"
}
