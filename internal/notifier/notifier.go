// Package notifier delivers planned notifications over Discord, email and generic webhooks.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/metrics"
)

// DefaultTimeout bounds a single channel call
const DefaultTimeout = 10 * time.Second

// EmbedField is one name/value row of a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter is the footer line of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// Embed is a Discord rich message
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// Message is one planned delivery
type Message struct {
	Channel domain.Channel
	// Target is the Discord or webhook URL, or the email recipient
	Target  string
	Subject string
	// Text is the Discord content or the plain text email body
	Text string
	// HTML is the optional HTML alternative of an email
	HTML   string
	Embeds []Embed
	// Payload is marshalled as the generic webhook body
	Payload any

	// WorkflowID and AlertID only tag logs and metrics
	WorkflowID string
	AlertID    string
}

// Result is the outcome of one delivery
type Result struct {
	Message  Message
	Err      error
	Duration time.Duration
}

// Notifier is the interface for a single channel transport
//
//go:generate mockgen -source=notifier.go -destination=../mocks/notifier.go -package=mocks -mock_names=Notifier=MockNotifier,Dispatcher=MockDispatcher
type Notifier interface {
	// Channel returns the channel served by this transport
	Channel() domain.Channel
	// Send delivers a single message
	Send(ctx context.Context, msg Message) error
}

// Dispatcher routes planned messages to the registered transports
type Dispatcher interface {
	// Register adds or replaces the transport of a channel
	Register(n Notifier)
	// Dispatch sends the messages in order and never returns an error.
	// Every message yields one Result.
	Dispatch(ctx context.Context, msgs []Message) []Result
}

type dispatcher struct {
	mu        sync.RWMutex
	notifiers map[domain.Channel]Notifier
	timeout   time.Duration
}

// NewDispatcher creates a dispatcher with a per-message timeout
func NewDispatcher(timeout time.Duration, notifiers ...Notifier) Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &dispatcher{
		notifiers: make(map[domain.Channel]Notifier),
		timeout:   timeout,
	}
	for _, n := range notifiers {
		d.Register(n)
	}
	return d
}

func (d *dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Channel()] = n
}

func (d *dispatcher) get(ch domain.Channel) (Notifier, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.notifiers[ch]
	return n, ok
}

func (d *dispatcher) Dispatch(ctx context.Context, msgs []Message) []Result {
	results := make([]Result, 0, len(msgs))
	for _, msg := range msgs {
		results = append(results, d.send(ctx, msg))
	}
	return results
}

func (d *dispatcher) send(ctx context.Context, msg Message) Result {
	channel := string(msg.Channel)
	fields := []zap.Field{logger.Channel(channel)}
	if msg.WorkflowID != "" {
		fields = append(fields, logger.Workflow(msg.WorkflowID))
	}
	if msg.AlertID != "" {
		fields = append(fields, logger.Alert(msg.AlertID))
	}

	n, ok := d.get(msg.Channel)
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrUnsupportedChannel, channel)
		metrics.NotificationsFailed.WithLabelValues(channel).Inc()
		logger.ErrorCtx(ctx, err, fields...)
		return Result{Message: msg, Err: err}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := n.Send(sendCtx, msg)
	elapsed := time.Since(start)
	metrics.NotificationDuration.WithLabelValues(channel).Observe(elapsed.Seconds())

	if err != nil {
		metrics.NotificationsFailed.WithLabelValues(channel).Inc()
		logger.ErrorCtx(ctx, fmt.Errorf("failed to send %s notification: %w", channel, err), fields...)
		return Result{Message: msg, Err: err, Duration: elapsed}
	}

	metrics.NotificationsSent.WithLabelValues(channel).Inc()
	logger.InfoCtx(ctx, "Notification sent", append(fields, zap.Duration("duration", elapsed))...)
	return Result{Message: msg, Duration: elapsed}
}

// JoinErrors combines the delivery errors, or returns nil
func JoinErrors(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Message.Channel, r.Err))
		}
	}
	return errors.Join(errs...)
}

// validateURL requires an absolute http(s) URL, and https unless insecure is allowed
func validateURL(raw string, allowInsecure bool) error {
	if raw == "" {
		return domain.ErrMissingEndpoint
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if allowInsecure {
			return nil
		}
		return fmt.Errorf("URL must use HTTPS")
	}
	return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
}
