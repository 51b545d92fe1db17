package domain

import (
	"slices"
	"time"
)

// TriggerKind is the kind of on-chain activity a workflow reacts to
type TriggerKind string

const (
	TriggerNativeTransfer TriggerKind = "eth_transfer"
	TriggerNFTPurchase    TriggerKind = "nft_purchase"
	TriggerContractEvent  TriggerKind = "contract_event"
	TriggerPortfolioAlert TriggerKind = "portfolio_alert"
)

// Valid reports whether the trigger kind is known
func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerNativeTransfer, TriggerNFTPurchase, TriggerContractEvent, TriggerPortfolioAlert:
		return true
	}
	return false
}

// Label returns the human readable category used in notification templates
func (k TriggerKind) Label() string {
	switch k {
	case TriggerNativeTransfer:
		return "ETH Transfer"
	case TriggerNFTPurchase:
		return "NFT Purchase"
	case TriggerContractEvent:
		return "Contract Event"
	case TriggerPortfolioAlert:
		return "Portfolio Alert"
	}
	return ""
}

// TriggerSpec describes when a workflow fires
type TriggerSpec struct {
	Kind          TriggerKind `json:"kind"`
	SourceAddress string      `json:"sourceAddress"`
}

// ActionSpec describes where a workflow (or alert) sends its notification
type ActionSpec struct {
	Channel        Channel `json:"channel"`
	DiscordWebhook string  `json:"discordWebhook,omitempty"`
	Email          string  `json:"email,omitempty"`
	WebhookURL     string  `json:"webhookUrl,omitempty"`
}

// Endpoint returns the channel specific parameter configured on the action
func (a ActionSpec) Endpoint(ch Channel) string {
	switch ch {
	case ChannelDiscord:
		return a.DiscordWebhook
	case ChannelEmail:
		return a.Email
	case ChannelWebhook:
		return a.WebhookURL
	}
	return ""
}

// MessageTemplate is an optional subject/body pair with {{path}} placeholders
type MessageTemplate struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

// Workflow binds a trigger to a notification action
type Workflow struct {
	ID                     string           `json:"id"`
	Name                   string           `json:"name"`
	Description            string           `json:"description,omitempty"`
	UserAddress            string           `json:"userAddress"`
	Trigger                TriggerSpec      `json:"trigger"`
	Action                 ActionSpec       `json:"action"`
	Message                *MessageTemplate `json:"message,omitempty"`
	NotificationRuleID     string           `json:"notificationRuleId,omitempty"`
	PortfolioAlertID       string           `json:"portfolioAlertId,omitempty"`
	IsActive               bool             `json:"isActive"`
	ExecutionCount         int64            `json:"executionCount"`
	PreviousExecutionCount *int64           `json:"previousExecutionCount,omitempty"`
	SuccessRate            float64          `json:"successRate"`
	ResponseTimesMs        []int64          `json:"responseTimes"`
	ExecutionTimestamps    []time.Time      `json:"executionTimestamps"`
	LastTriggered          *time.Time       `json:"lastTriggered,omitempty"`
	CreatedAt              time.Time        `json:"createdAt"`
	UpdatedAt              time.Time        `json:"updatedAt"`
}

// RecordExecution applies one execution to the counters.
// The pre-increment count is captured into PreviousExecutionCount only the first time.
func (w *Workflow) RecordExecution(at time.Time, responseTime *time.Duration) {
	if w.PreviousExecutionCount == nil {
		prev := w.ExecutionCount
		w.PreviousExecutionCount = &prev
	}
	w.ExecutionCount++
	w.SuccessRate = 100
	w.ExecutionTimestamps = append(w.ExecutionTimestamps, at)
	if responseTime != nil {
		w.ResponseTimesMs = append(w.ResponseTimesMs, responseTime.Milliseconds())
	}
	triggered := at
	w.LastTriggered = &triggered
	w.UpdatedAt = at
}

// Clone returns a deep copy of the workflow
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	c := *w
	if w.Message != nil {
		m := *w.Message
		c.Message = &m
	}
	if w.PreviousExecutionCount != nil {
		p := *w.PreviousExecutionCount
		c.PreviousExecutionCount = &p
	}
	if w.LastTriggered != nil {
		t := *w.LastTriggered
		c.LastTriggered = &t
	}
	c.ResponseTimesMs = slices.Clone(w.ResponseTimesMs)
	c.ExecutionTimestamps = slices.Clone(w.ExecutionTimestamps)
	return &c
}
