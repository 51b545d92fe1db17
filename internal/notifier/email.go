package notifier

import (
	"context"
	"fmt"
	"mime"
	"net/mail"
	"strings"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/domain"
)

// EmailConfig holds the envelope settings of outgoing mail
type EmailConfig struct {
	From     string // sender address
	FromName string // optional display name
}

// Validate validates the email configuration
func (c EmailConfig) Validate() error {
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	if _, err := mail.ParseAddress(c.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	return nil
}

// EmailNotifier submits messages to an SMTP relay
type EmailNotifier struct {
	config EmailConfig
	sender adapter.SMTPSender
	clock  adapter.Clock
}

// NewEmailNotifier creates an email transport
func NewEmailNotifier(config EmailConfig, sender adapter.SMTPSender, clock adapter.Clock) (*EmailNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}
	return &EmailNotifier{config: config, sender: sender, clock: clock}, nil
}

// Channel returns email
func (n *EmailNotifier) Channel() domain.Channel {
	return domain.ChannelEmail
}

// Send mails msg to msg.Target
func (n *EmailNotifier) Send(ctx context.Context, msg Message) error {
	if msg.Target == "" {
		return fmt.Errorf("email recipient: %w", domain.ErrMissingEndpoint)
	}
	to, err := mail.ParseAddress(msg.Target)
	if err != nil {
		return fmt.Errorf("invalid email recipient: %w", err)
	}

	raw := n.buildMIMEMessage(to.Address, msg.Subject, msg.Text, msg.HTML)
	if err := n.sender.SendMail(ctx, n.config.From, []string{to.Address}, raw); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildMIMEMessage builds a plain text message, or multipart/alternative when html is set
func (n *EmailNotifier) buildMIMEMessage(to, subject, plainBody, htmlBody string) []byte {
	from := (&mail.Address{Name: n.config.FromName, Address: n.config.From}).String()

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject)))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", n.clock.Now().Format("Mon, 02 Jan 2006 15:04:05 -0700")))
	msg.WriteString("MIME-Version: 1.0\r\n")

	if htmlBody == "" {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(plainBody)
		msg.WriteString("\r\n")
		return []byte(msg.String())
	}

	boundary := fmt.Sprintf("----=_Part_%d", n.clock.Now().UnixNano())
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(plainBody)
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return []byte(msg.String())
}
