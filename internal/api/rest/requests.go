package rest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/portfolio"
)

// WorkflowRequest is the body of POST and PUT /api/workflows
type WorkflowRequest struct {
	Name               string                  `json:"name"`
	Description        string                  `json:"description"`
	UserAddress        string                  `json:"userAddress"`
	Trigger            domain.TriggerSpec      `json:"trigger"`
	Action             domain.ActionSpec       `json:"action"`
	Message            *domain.MessageTemplate `json:"message"`
	NotificationRuleID string                  `json:"notificationRuleId"`
	PortfolioAlertID   string                  `json:"portfolioAlertId"`
	IsActive           *bool                   `json:"isActive"`
}

// Validate checks the workflow definition
func (r *WorkflowRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if !r.Trigger.Kind.Valid() {
		return fmt.Errorf("unsupported trigger kind %q", r.Trigger.Kind)
	}
	if r.Trigger.Kind == domain.TriggerPortfolioAlert {
		if r.PortfolioAlertID == "" {
			return errors.New("portfolioAlertId is required for portfolio_alert triggers")
		}
	} else if !domain.IsEthereumAddress(r.Trigger.SourceAddress) {
		return errors.New("trigger.sourceAddress must be an Ethereum address")
	}
	if r.Action.Channel != "" && !r.Action.Channel.Valid() {
		return fmt.Errorf("unsupported channel %q", r.Action.Channel)
	}
	return nil
}

// apply copies the definition onto w. Counters are left alone.
func (r *WorkflowRequest) apply(w *domain.Workflow) {
	w.Name = strings.TrimSpace(r.Name)
	w.Description = r.Description
	w.Trigger = r.Trigger
	w.Action = r.Action
	w.Message = r.Message
	w.NotificationRuleID = r.NotificationRuleID
	w.PortfolioAlertID = r.PortfolioAlertID
	if r.IsActive != nil {
		w.IsActive = *r.IsActive
	}
}

// NotificationPreferencesPatch switches individual preferences. Nil fields are left unchanged.
type NotificationPreferencesPatch struct {
	Email           *bool `json:"email"`
	Discord         *bool `json:"discord"`
	Webhook         *bool `json:"webhook"`
	ExecutionAlerts *bool `json:"executionAlerts"`
	FailureAlerts   *bool `json:"failureAlerts"`
	WeeklyReports   *bool `json:"weeklyReports"`
}

func (p *NotificationPreferencesPatch) apply(n *domain.NotificationPreferences) {
	setIf(&n.Email, p.Email)
	setIf(&n.Discord, p.Discord)
	setIf(&n.Webhook, p.Webhook)
	setIf(&n.ExecutionAlerts, p.ExecutionAlerts)
	setIf(&n.FailureAlerts, p.FailureAlerts)
	setIf(&n.WeeklyReports, p.WeeklyReports)
}

// IntegrationsPatch updates individual channel endpoints. An empty string clears one.
type IntegrationsPatch struct {
	Discord    *string `json:"discord"`
	Email      *string `json:"email"`
	WebhookURL *string `json:"webhookUrl"`
}

func (p *IntegrationsPatch) apply(i *domain.Integrations) {
	setIf(&i.Discord, trimmed(p.Discord))
	setIf(&i.Email, trimmed(p.Email))
	setIf(&i.WebhookURL, trimmed(p.WebhookURL))
}

// UserSettingsRequest is the body of PUT /api/users/:address/settings.
// Only the fields present in the body change.
type UserSettingsRequest struct {
	Name          *string                       `json:"name"`
	Notifications *NotificationPreferencesPatch `json:"notifications"`
	Integrations  *IntegrationsPatch            `json:"integrations"`
}

func (r *UserSettingsRequest) apply(u *domain.User) {
	setIf(&u.Name, trimmed(r.Name))
	if r.Notifications != nil {
		r.Notifications.apply(&u.Settings.Notifications)
	}
	if r.Integrations != nil {
		r.Integrations.apply(&u.Settings.Integrations)
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// RuleRequest is the body of POST /api/users/:address/rules
type RuleRequest struct {
	Name    string             `json:"name"`
	Trigger domain.RuleTrigger `json:"trigger"`
	Action  domain.RuleAction  `json:"action"`
	Message string             `json:"message"`
}

// Validate checks the rule
func (r *RuleRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if err := validateRuleTrigger(r.Trigger); err != nil {
		return err
	}
	return validateRuleAction(r.Action)
}

func validateRuleTrigger(trigger domain.RuleTrigger) error {
	if trigger != domain.RuleTriggerWorkflowSucceeds && trigger != domain.RuleTriggerWorkflowFails {
		return fmt.Errorf("unsupported rule trigger %q", trigger)
	}
	return nil
}

func validateRuleAction(action domain.RuleAction) error {
	if action.Channel() == "" {
		return fmt.Errorf("unsupported rule action %q", action)
	}
	return nil
}

// RuleUpdateRequest is the body of PUT /api/users/:address/rules/:ruleId
type RuleUpdateRequest struct {
	Name    *string             `json:"name"`
	Trigger *domain.RuleTrigger `json:"trigger"`
	Action  *domain.RuleAction  `json:"action"`
	Message *string             `json:"message"`
}

// Validate checks the fields present in the body
func (r *RuleUpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name must not be empty")
	}
	if r.Trigger != nil {
		if err := validateRuleTrigger(*r.Trigger); err != nil {
			return err
		}
	}
	if r.Action != nil {
		return validateRuleAction(*r.Action)
	}
	return nil
}

func (r *RuleUpdateRequest) apply(rule *domain.NotificationRule) {
	setIf(&rule.Name, trimmed(r.Name))
	setIf(&rule.Trigger, r.Trigger)
	setIf(&rule.Action, r.Action)
	setIf(&rule.Message, r.Message)
}

// AlertRequest is the body of POST /api/alerts
type AlertRequest struct {
	Name          string            `json:"name"`
	UserAddress   string            `json:"userAddress"`
	Description   string            `json:"description"`
	Kind          domain.AlertKind  `json:"kind"`
	Threshold     string            `json:"threshold"`
	BaselineValue *decimal.Decimal  `json:"baselineValue"`
	Action        domain.ActionSpec `json:"action"`
}

// Validate checks the alert definition
func (r *AlertRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.Kind == "" {
		r.Kind = domain.AlertKindPortfolioValue
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("unsupported alert kind %q", r.Kind)
	}
	if _, err := portfolio.ParseThreshold(r.Threshold); err != nil {
		return err
	}
	if portfolio.IsPercentThreshold(r.Threshold) && r.BaselineValue != nil && !r.BaselineValue.IsPositive() {
		return errors.New("baselineValue must be positive for a percentage threshold")
	}
	if !r.Action.Channel.Valid() {
		return fmt.Errorf("unsupported channel %q", r.Action.Channel)
	}
	return nil
}

// AlertStatusRequest is the body of PATCH /api/alerts/:id/status
type AlertStatusRequest struct {
	Status domain.AlertStatus `json:"status"`
}

// Validate checks the status
func (r *AlertStatusRequest) Validate() error {
	if r.Status != domain.AlertStatusActive && r.Status != domain.AlertStatusPaused {
		return fmt.Errorf("unsupported status %q", r.Status)
	}
	return nil
}

// HoldingsRequest is the body of PUT /api/portfolio/holdings
type HoldingsRequest struct {
	Holdings []domain.Holding `json:"holdings"`
}

// Validate checks every holding
func (r *HoldingsRequest) Validate() error {
	for _, h := range r.Holdings {
		if strings.TrimSpace(h.Symbol) == "" {
			return errors.New("holding symbol is required")
		}
		if h.Amount.IsNegative() {
			return fmt.Errorf("holding amount for %s must not be negative", h.Symbol)
		}
	}
	return nil
}

// TemplateRequest is the body of POST /api/templates
type TemplateRequest struct {
	UserAddress string                  `json:"userAddress"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Category    domain.TemplateCategory `json:"category"`
	TriggerKind domain.TriggerKind      `json:"triggerType"`
	Channel     domain.Channel          `json:"actionType"`
	IsPublic    bool                    `json:"isPublic"`
	IsPremium   bool                    `json:"isPremium"`
	Tags        []string                `json:"tags"`
	Message     domain.MessageTemplate  `json:"message"`
}

// Validate checks the template definition, defaulting the category to custom
func (r *TemplateRequest) Validate() error {
	if !domain.IsEthereumAddress(r.UserAddress) {
		return errors.New("userAddress must be an Ethereum address")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.Category == "" {
		r.Category = domain.TemplateCategoryCustom
	}
	return validateTemplate(r.Category, r.TriggerKind, r.Channel)
}

func validateTemplate(category domain.TemplateCategory, kind domain.TriggerKind, ch domain.Channel) error {
	if !category.Valid() {
		return fmt.Errorf("unsupported template category %q", category)
	}
	if !kind.Valid() {
		return fmt.Errorf("unsupported trigger type %q", kind)
	}
	if !ch.Valid() {
		return fmt.Errorf("unsupported action type %q", ch)
	}
	return nil
}

// usageCountIncrement is the only usageCount value PUT /api/templates/:id accepts
const usageCountIncrement = "increment"

// TemplateUpdateRequest is the body of PUT /api/templates/:id. The owner cannot change.
type TemplateUpdateRequest struct {
	Name        *string                  `json:"name"`
	Description *string                  `json:"description"`
	Category    *domain.TemplateCategory `json:"category"`
	TriggerKind *domain.TriggerKind      `json:"triggerType"`
	Channel     *domain.Channel          `json:"actionType"`
	IsPublic    *bool                    `json:"isPublic"`
	IsPremium   *bool                    `json:"isPremium"`
	Tags        []string                 `json:"tags"`
	Message     *domain.MessageTemplate  `json:"message"`
	UsageCount  *string                  `json:"usageCount"`
}

// Validate checks the fields present in the body
func (r *TemplateUpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name must not be empty")
	}
	if r.Category != nil && !r.Category.Valid() {
		return fmt.Errorf("unsupported template category %q", *r.Category)
	}
	if r.TriggerKind != nil && !r.TriggerKind.Valid() {
		return fmt.Errorf("unsupported trigger type %q", *r.TriggerKind)
	}
	if r.Channel != nil && !r.Channel.Valid() {
		return fmt.Errorf("unsupported action type %q", *r.Channel)
	}
	if r.UsageCount != nil && *r.UsageCount != usageCountIncrement {
		return fmt.Errorf("usageCount only accepts %q", usageCountIncrement)
	}
	return nil
}

func (r *TemplateUpdateRequest) apply(t *domain.Template) {
	setIf(&t.Name, trimmed(r.Name))
	setIf(&t.Description, r.Description)
	setIf(&t.Category, r.Category)
	setIf(&t.TriggerKind, r.TriggerKind)
	setIf(&t.Channel, r.Channel)
	setIf(&t.IsPublic, r.IsPublic)
	setIf(&t.IsPremium, r.IsPremium)
	setIf(&t.Message, r.Message)
	if r.Tags != nil {
		t.Tags = r.Tags
	}
	if r.UsageCount != nil {
		t.UsageCount++
	}
}

// UpgradePlanRequest is the body of POST /api/users/:address/upgrade-plan
type UpgradePlanRequest struct {
	PlanID     domain.Plan      `json:"planId"`
	TxHash     string           `json:"txHash"`
	PriceInEth *decimal.Decimal `json:"priceInEth"`
}

// Validate checks that a plan and a transaction were named
func (r *UpgradePlanRequest) Validate() error {
	if r.PlanID == "" {
		return errors.New("planId is required")
	}
	if strings.TrimSpace(r.TxHash) == "" {
		return errors.New("txHash is required")
	}
	return nil
}
