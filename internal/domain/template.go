package domain

import (
	"slices"
	"time"
)

// TemplateCategory groups templates in the gallery
type TemplateCategory string

const (
	TemplateCategoryDeFi   TemplateCategory = "defi"
	TemplateCategoryNFT    TemplateCategory = "nft"
	TemplateCategoryGaming TemplateCategory = "gaming"
	TemplateCategoryDAO    TemplateCategory = "dao"
	TemplateCategoryCustom TemplateCategory = "custom"
)

// Valid reports whether the category is known
func (c TemplateCategory) Valid() bool {
	switch c {
	case TemplateCategoryDeFi, TemplateCategoryNFT, TemplateCategoryGaming, TemplateCategoryDAO, TemplateCategoryCustom:
		return true
	}
	return false
}

// Template is a reusable workflow blueprint owned by a user
type Template struct {
	ID          string           `json:"id"`
	UserAddress string           `json:"userAddress"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    TemplateCategory `json:"category"`
	TriggerKind TriggerKind      `json:"triggerType"`
	Channel     Channel          `json:"actionType"`
	IsPublic    bool             `json:"isPublic"`
	IsPremium   bool             `json:"isPremium"`
	Tags        []string         `json:"tags"`
	Message     MessageTemplate  `json:"message"`
	UsageCount  int64            `json:"usageCount"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Clone returns a deep copy of the template
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := *t
	c.Tags = slices.Clone(t.Tags)
	return &c
}
