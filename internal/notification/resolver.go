// Package notification decides which messages a workflow run or a portfolio alert produces.
// Resolution is pure: it reads only its input and never performs I/O.
package notification

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/notifier"
	"github.com/feral-file/ff-flow/internal/template"
	"github.com/feral-file/ff-flow/internal/webhook"
)

const (
	footerText = "Powered by Web3Flow"

	colorSuccess = 16776960
	colorFailure = 15548997
	colorAlert   = 3447003
)

// Input is everything the resolver needs for a workflow run
type Input struct {
	Outcome  domain.Outcome
	Workflow *domain.Workflow
	// User is nil when the workflow has no owner record
	User *domain.User
	// Tx is the matched transaction, nil when there is none
	Tx *domain.Transaction
	// Err is the failure reason for OutcomeFailure
	Err error
	Now time.Time
}

// AlertInput is everything the resolver needs for a fired portfolio alert
type AlertInput struct {
	Alert         *domain.PortfolioAlert
	User          *domain.User
	Total         decimal.Decimal
	ChangePercent *decimal.Decimal
	Now           time.Time
}

// Plan is the outcome of resolution
type Plan struct {
	Messages []notifier.Message
	// RuleID is set when a custom rule handled the outcome
	RuleID string
	// Issues are configuration problems. They never stop resolution.
	Issues []error
	// Reason explains an empty plan
	Reason string
}

// Empty reports whether nothing will be sent
func (p Plan) Empty() bool {
	return len(p.Messages) == 0
}

// Resolve plans the notifications for one workflow outcome.
// A matching custom rule excludes the default path.
func Resolve(in Input) Plan {
	var plan Plan
	w := in.Workflow
	if w == nil {
		plan.Reason = "no workflow"
		return plan
	}

	if w.NotificationRuleID != "" && in.User != nil {
		rule := in.User.Rule(w.NotificationRuleID)
		switch {
		case rule == nil:
			plan.Issues = append(plan.Issues, fmt.Errorf("%w: %s", domain.ErrRuleNotFound, w.NotificationRuleID))
		case rule.Trigger.Matches(in.Outcome):
			return resolveRule(in, rule)
		}
	}

	if in.User == nil {
		plan.Reason = "no user record"
		return plan
	}

	prefs := in.User.Settings.Notifications
	switch in.Outcome {
	case domain.OutcomeFailure:
		if !prefs.FailureAlerts {
			plan.Reason = "failure alerts disabled"
			return plan
		}
	default:
		if !prefs.ExecutionAlerts {
			plan.Reason = "execution alerts disabled"
			return plan
		}
	}

	ctx := BuildContext(in)
	for _, ch := range domain.Channels {
		if !prefs.Enabled(ch) {
			continue
		}
		target := firstNonEmpty(in.User.Settings.Integrations.Endpoint(ch), w.Action.Endpoint(ch))
		if target == "" {
			plan.Issues = append(plan.Issues, fmt.Errorf("%w: %s", domain.ErrMissingEndpoint, ch))
			continue
		}

		var msg notifier.Message
		if in.Outcome == domain.OutcomeFailure {
			msg = failureMessage(ch, in)
		} else {
			msg = successMessage(ch, in, ctx)
		}
		msg.Channel = ch
		msg.Target = target
		msg.WorkflowID = w.ID
		plan.Messages = append(plan.Messages, msg)
	}

	if plan.Empty() && plan.Reason == "" {
		plan.Reason = "no channel enabled"
	}
	return plan
}

func resolveRule(in Input, rule *domain.NotificationRule) Plan {
	plan := Plan{RuleID: rule.ID}
	w := in.Workflow

	ch := rule.Action.Channel()
	if ch == "" {
		plan.Issues = append(plan.Issues, fmt.Errorf("%w: rule action %q", domain.ErrUnsupportedChannel, rule.Action))
		plan.Reason = "rule action unsupported"
		return plan
	}

	target := firstNonEmpty(in.User.Settings.Integrations.Endpoint(ch), w.Action.Endpoint(ch))
	if target == "" {
		plan.Issues = append(plan.Issues, fmt.Errorf("%w: %s for rule %s", domain.ErrMissingEndpoint, ch, rule.ID))
		plan.Reason = "rule endpoint missing"
		return plan
	}

	text := template.Render(rule.Message, BuildContext(in))
	msg := notifier.Message{
		Channel:    ch,
		Target:     target,
		Text:       text,
		WorkflowID: w.ID,
	}
	if ch == domain.ChannelEmail {
		msg.Subject = "Notification for " + w.Name
		msg.HTML = toHTML(text)
	}
	plan.Messages = append(plan.Messages, msg)
	return plan
}

func successMessage(ch domain.Channel, in Input, ctx template.Context) notifier.Message {
	w := in.Workflow
	tx := in.Tx
	if tx == nil {
		tx = &domain.Transaction{}
	}

	body := ""
	subject := ""
	if w.Message != nil {
		body = template.Render(w.Message.Body, ctx)
		subject = template.Render(w.Message.Subject, ctx)
	}
	amount := tx.ValueEther()
	timestamp := in.Now.UTC().Format(time.RFC3339)

	switch ch {
	case domain.ChannelDiscord:
		if body != "" {
			return notifier.Message{Text: body}
		}
		return notifier.Message{Embeds: []notifier.Embed{{
			Title: "🔔 Transfer Detected: " + w.Name,
			Color: colorSuccess,
			Fields: []notifier.EmbedField{
				{Name: "To", Value: "`" + tx.To + "`"},
				{Name: "From", Value: "`" + tx.From + "`"},
				{Name: "Amount", Value: "**" + amount + " ETH**", Inline: true},
				{Name: "Transaction Hash", Value: "`" + tx.Hash + "`"},
			},
			Footer:    &notifier.EmbedFooter{Text: footerText},
			Timestamp: timestamp,
		}}}

	case domain.ChannelEmail:
		if subject == "" {
			subject = "Workflow Executed: " + w.Name
		}
		if body == "" {
			body = fmt.Sprintf("Your workflow %q was triggered.\nFrom: %s\nTo: %s\nAmount: %s ETH\nTransaction: %s",
				w.Name, tx.From, tx.To, amount, tx.Hash)
		}
		return notifier.Message{Subject: subject, Text: body, HTML: toHTML(body)}

	default:
		return notifier.Message{Subject: subject, Text: body, Payload: WebhookPayload{
			WorkflowName: w.Name,
			Status:       webhook.StatusSuccess,
			TxHash:       tx.Hash,
			From:         tx.From,
			To:           tx.To,
			Amount:       amount,
			Message:      body,
			Timestamp:    timestamp,
		}}
	}
}

func failureMessage(ch domain.Channel, in Input) notifier.Message {
	w := in.Workflow
	reason := "unknown error"
	if in.Err != nil {
		reason = in.Err.Error()
	}
	summary := fmt.Sprintf("Your workflow %q failed to execute.", w.Name)
	details := "Error: " + reason
	timestamp := in.Now.UTC().Format(time.RFC3339)

	switch ch {
	case domain.ChannelDiscord:
		return notifier.Message{Embeds: []notifier.Embed{{
			Title: "🚨 Workflow Failure: " + w.Name,
			Color: colorFailure,
			Fields: []notifier.EmbedField{
				{Name: "Message", Value: summary},
				{Name: "Details", Value: "```" + details + "```"},
			},
			Footer:    &notifier.EmbedFooter{Text: footerText},
			Timestamp: timestamp,
		}}}

	case domain.ChannelEmail:
		text := summary + "\n" + details
		return notifier.Message{Subject: "Workflow Failure: " + w.Name, Text: text, HTML: toHTML(text)}

	default:
		return notifier.Message{Payload: WebhookPayload{
			WorkflowName: w.Name,
			Status:       webhook.StatusFailed,
			Error:        reason,
			Timestamp:    timestamp,
		}}
	}
}

// ResolveAlert plans the single message of a fired portfolio alert.
// The alert's own endpoint wins over the owner's integration.
func ResolveAlert(in AlertInput) Plan {
	var plan Plan
	a := in.Alert
	if a == nil {
		plan.Reason = "no alert"
		return plan
	}

	ch := a.Action.Channel
	if !ch.Valid() {
		plan.Issues = append(plan.Issues, fmt.Errorf("%w: %q", domain.ErrUnsupportedChannel, ch))
		plan.Reason = "alert channel unsupported"
		return plan
	}

	var integrations domain.Integrations
	if in.User != nil {
		integrations = in.User.Settings.Integrations
	}
	target := firstNonEmpty(a.Action.Endpoint(ch), integrations.Endpoint(ch))
	if target == "" {
		plan.Issues = append(plan.Issues, fmt.Errorf("%w: %s for alert %s", domain.ErrMissingEndpoint, ch, a.ID))
		plan.Reason = "alert endpoint missing"
		return plan
	}

	ctx := BuildAlertContext(in)
	text := template.Render(a.Description, ctx)
	if strings.TrimSpace(a.Description) == "" {
		text = fmt.Sprintf("Portfolio alert %q triggered. Total value: $%s (threshold %s).",
			a.Name, ctx["total_value"], a.Threshold)
		if in.ChangePercent != nil {
			text += fmt.Sprintf(" Change since baseline: %s%%.", ctx["change_percent"])
		}
	}
	timestamp := in.Now.UTC().Format(time.RFC3339)

	msg := notifier.Message{Channel: ch, Target: target, AlertID: a.ID}
	switch ch {
	case domain.ChannelDiscord:
		fields := []notifier.EmbedField{
			{Name: "Total Value", Value: "$" + in.Total.StringFixed(2), Inline: true},
			{Name: "Threshold", Value: a.Threshold, Inline: true},
		}
		if in.ChangePercent != nil {
			fields = append(fields, notifier.EmbedField{Name: "Change", Value: in.ChangePercent.StringFixed(2) + "%", Inline: true})
		}
		msg.Embeds = []notifier.Embed{{
			Title:       "📈 Portfolio Alert: " + a.Name,
			Description: text,
			Color:       colorAlert,
			Fields:      fields,
			Footer:      &notifier.EmbedFooter{Text: footerText},
			Timestamp:   timestamp,
		}}
	case domain.ChannelEmail:
		msg.Subject = "Portfolio Alert: " + a.Name
		msg.Text = text
		msg.HTML = toHTML(text)
	case domain.ChannelWebhook:
		payload := AlertWebhookPayload{
			AlertName:  a.Name,
			Status:     "triggered",
			TotalValue: in.Total.StringFixed(2),
			Threshold:  a.Threshold,
			Message:    text,
			Timestamp:  timestamp,
		}
		if in.ChangePercent != nil {
			payload.ChangePercent = in.ChangePercent.StringFixed(2)
		}
		msg.Payload = payload
	}

	plan.Messages = append(plan.Messages, msg)
	return plan
}

// WebhookPayload is the generic webhook body of a workflow run
type WebhookPayload struct {
	WorkflowName string `json:"workflowName"`
	Status       string `json:"status"`
	TxHash       string `json:"txHash,omitempty"`
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Error        string `json:"error,omitempty"`
	Message      string `json:"message,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// AlertWebhookPayload is the generic webhook body of a portfolio alert
type AlertWebhookPayload struct {
	AlertName     string `json:"alertName"`
	Status        string `json:"status"`
	TotalValue    string `json:"totalValue"`
	ChangePercent string `json:"changePercent,omitempty"`
	Threshold     string `json:"threshold"`
	Message       string `json:"message,omitempty"`
	Timestamp     string `json:"timestamp"`
}

func toHTML(text string) string {
	return "<p>" + strings.ReplaceAll(html.EscapeString(text), "\n", "<br>") + "</p>"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
