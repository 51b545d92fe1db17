package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/webhook"
)

// WebhookNotifier posts the JSON payload to a user supplied URL
type WebhookNotifier struct {
	http          adapter.HTTPClient
	clock         adapter.Clock
	secret        string
	allowInsecure bool
}

// NewWebhookNotifier creates a generic webhook transport.
// An empty secret sends unsigned requests.
func NewWebhookNotifier(httpClient adapter.HTTPClient, clock adapter.Clock, secret string, allowInsecure bool) *WebhookNotifier {
	return &WebhookNotifier{
		http:          httpClient,
		clock:         clock,
		secret:        secret,
		allowInsecure: allowInsecure,
	}
}

// Channel returns webhook
func (n *WebhookNotifier) Channel() domain.Channel {
	return domain.ChannelWebhook
}

// Send posts msg.Payload to msg.Target
func (n *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	if err := validateURL(msg.Target, n.allowInsecure); err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}

	payload := msg.Payload
	if payload == nil {
		payload = map[string]string{"subject": msg.Subject, "text": msg.Text}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var headers map[string]string
	if n.secret != "" {
		headers = webhook.SignPayload(n.secret, body, n.clock.Now()).Headers()
	}

	if _, err := n.http.PostJSON(ctx, msg.Target, body, headers); err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	return nil
}
