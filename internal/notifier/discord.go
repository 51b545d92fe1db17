package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/domain"
)

type discordPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// DiscordNotifier posts messages to Discord incoming webhooks
type DiscordNotifier struct {
	http          adapter.HTTPClient
	allowInsecure bool
}

// NewDiscordNotifier creates a Discord transport
func NewDiscordNotifier(httpClient adapter.HTTPClient, allowInsecure bool) *DiscordNotifier {
	return &DiscordNotifier{http: httpClient, allowInsecure: allowInsecure}
}

// Channel returns discord
func (n *DiscordNotifier) Channel() domain.Channel {
	return domain.ChannelDiscord
}

// Send posts {content} or {embeds} to the webhook URL in msg.Target
func (n *DiscordNotifier) Send(ctx context.Context, msg Message) error {
	if err := validateURL(msg.Target, n.allowInsecure); err != nil {
		return fmt.Errorf("invalid discord webhook: %w", err)
	}

	payload := discordPayload{Embeds: msg.Embeds}
	if len(msg.Embeds) == 0 {
		if msg.Text == "" {
			return fmt.Errorf("discord message has neither content nor embeds")
		}
		payload.Content = msg.Text
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	if _, err := n.http.PostJSON(ctx, msg.Target, body, nil); err != nil {
		return fmt.Errorf("discord webhook request failed: %w", err)
	}
	return nil
}
