package adapter

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/logger"
)

const smtpDialTimeout = 30 * time.Second

// SMTPConfig holds the relay connection settings
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	UseTLS      bool // implicit TLS, usually port 465
	UseStartTLS bool // upgrade with STARTTLS when the server offers it
}

// SMTPSender defines an interface for submitting a prepared message to a relay
//
//go:generate mockgen -source=smtp.go -destination=../mocks/smtp.go -package=mocks -mock_names=SMTPSender=MockSMTPSender
type SMTPSender interface {
	// SendMail submits msg from the envelope sender to every recipient
	SendMail(ctx context.Context, from string, to []string, msg []byte) error
}

// RealSMTPSender implements SMTPSender using net/smtp
type RealSMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(cfg SMTPConfig) SMTPSender {
	return &RealSMTPSender{config: cfg}
}

// SendMail dials the relay, authenticates and writes the message
func (s *RealSMTPSender) SendMail(ctx context.Context, from string, to []string, msg []byte) error {
	client, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Debug("failed to close SMTP client", zap.Error(err))
		}
	}()

	if s.config.Username != "" && s.config.Password != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data: %w", err)
	}

	return client.Quit()
}

func (s *RealSMTPSender) connect(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	tlsConfig := &tls.Config{ServerName: s.config.Host, MinVersion: tls.VersionTLS12}

	dialer := &net.Dialer{Timeout: smtpDialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	if s.config.UseTLS {
		conn, err := (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, s.config.Host)
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if s.config.UseStartTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}

	return client, nil
}
