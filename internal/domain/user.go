package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"
)

// RuleTrigger is the outcome a notification rule listens for
type RuleTrigger string

const (
	RuleTriggerWorkflowSucceeds RuleTrigger = "workflowSucceeds"
	RuleTriggerWorkflowFails    RuleTrigger = "workflowFails"
)

// Matches reports whether the trigger applies to the outcome
func (t RuleTrigger) Matches(o Outcome) bool {
	return (t == RuleTriggerWorkflowSucceeds && o == OutcomeSuccess) ||
		(t == RuleTriggerWorkflowFails && o == OutcomeFailure)
}

// RuleAction is the channel a notification rule sends on
type RuleAction string

const (
	RuleActionSendDiscord RuleAction = "sendDiscord"
	RuleActionSendEmail   RuleAction = "sendEmail"
)

// Channel maps the rule action onto a dispatcher channel
func (a RuleAction) Channel() Channel {
	switch a {
	case RuleActionSendDiscord:
		return ChannelDiscord
	case RuleActionSendEmail:
		return ChannelEmail
	}
	return ""
}

// NotificationRule is a user owned override of the default channel policy
type NotificationRule struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Trigger RuleTrigger `json:"trigger"`
	Action  RuleAction  `json:"action"`
	Message string      `json:"message"`
}

// NotificationPreferences holds per-channel and per-category switches
type NotificationPreferences struct {
	Email           bool `json:"email"`
	Discord         bool `json:"discord"`
	Webhook         bool `json:"webhook"`
	ExecutionAlerts bool `json:"executionAlerts"`
	FailureAlerts   bool `json:"failureAlerts"`
	WeeklyReports   bool `json:"weeklyReports"`
}

// Enabled reports whether the user turned the channel on
func (p NotificationPreferences) Enabled(ch Channel) bool {
	switch ch {
	case ChannelDiscord:
		return p.Discord
	case ChannelEmail:
		return p.Email
	case ChannelWebhook:
		return p.Webhook
	}
	return false
}

// Integrations holds the user's channel endpoints
type Integrations struct {
	Discord    string `json:"discord,omitempty"`
	Email      string `json:"email,omitempty"`
	WebhookURL string `json:"webhookUrl,omitempty"`
}

// Endpoint returns the user's endpoint for a channel
func (i Integrations) Endpoint(ch Channel) string {
	switch ch {
	case ChannelDiscord:
		return i.Discord
	case ChannelEmail:
		return i.Email
	case ChannelWebhook:
		return i.WebhookURL
	}
	return ""
}

// UserSettings groups notification preferences and integrations
type UserSettings struct {
	Notifications NotificationPreferences `json:"notifications"`
	Integrations  Integrations            `json:"integrations"`
}

// Usage holds the user's aggregate counters
type Usage struct {
	Executions int64 `json:"executions"`
	Workflows  int64 `json:"workflows"`
	APICalls   int64 `json:"apiCalls"`
}

// Plan is the subscription tier of a user
type Plan string

const (
	PlanFree      Plan = "free"
	PlanMonthly   Plan = "monthly"
	PlanBimonthly Plan = "bimonthly"
)

// Months returns the length of a paid plan, 0 for anything else
func (p Plan) Months() int {
	switch p {
	case PlanMonthly:
		return 1
	case PlanBimonthly:
		return 2
	}
	return 0
}

// User is keyed by its lowercase wallet address
type User struct {
	Address           string             `json:"address"`
	Name              string             `json:"name,omitempty"`
	Settings          UserSettings       `json:"settings"`
	NotificationRules []NotificationRule `json:"notificationRules"`
	Usage             Usage              `json:"usage"`
	Plan              Plan               `json:"plan"`
	PlanExpiresAt     *time.Time         `json:"planExpiresAt,omitempty"`
	// APIKey is only returned by the api-key routes
	APIKey string `json:"-"`
	// PaymentTxHashes lists the transactions already redeemed for upgrades
	PaymentTxHashes []string  `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewUser returns a user with the default settings
func NewUser(address string, now time.Time) *User {
	return &User{
		Address: NormalizeAddress(address),
		Settings: UserSettings{
			Notifications: NotificationPreferences{
				Email:           true,
				ExecutionAlerts: true,
				FailureAlerts:   true,
			},
		},
		NotificationRules: []NotificationRule{},
		Plan:              PlanFree,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// NewAPIKey returns a random 48 character hex key
func NewAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// UpgradePlan switches to a paid plan that expires the given number of months from now
func (u *User) UpgradePlan(plan Plan, now time.Time) error {
	months := plan.Months()
	if months == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	expires := now.AddDate(0, months, 0)
	u.Plan = plan
	u.PlanExpiresAt = &expires
	return nil
}

// RedeemPayment records a payment transaction, rejecting one that was already used
func (u *User) RedeemPayment(txHash string) error {
	txHash = strings.ToLower(txHash)
	if slices.Contains(u.PaymentTxHashes, txHash) {
		return fmt.Errorf("%w: transaction %s was already redeemed", ErrPaymentNotVerified, txHash)
	}
	u.PaymentTxHashes = append(u.PaymentTxHashes, txHash)
	return nil
}

// Rule looks up a notification rule by id
func (u *User) Rule(id string) *NotificationRule {
	if u == nil || id == "" {
		return nil
	}
	for i := range u.NotificationRules {
		if u.NotificationRules[i].ID == id {
			r := u.NotificationRules[i]
			return &r
		}
	}
	return nil
}

// DisplayName returns the profile name, the address, or "User"
func (u *User) DisplayName() string {
	if u == nil {
		return "User"
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Address != "" {
		return u.Address
	}
	return "User"
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.NotificationRules = slices.Clone(u.NotificationRules)
	c.PaymentTxHashes = slices.Clone(u.PaymentTxHashes)
	if u.PlanExpiresAt != nil {
		t := *u.PlanExpiresAt
		c.PlanExpiresAt = &t
	}
	return &c
}
