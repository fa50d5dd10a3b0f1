package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"waste-fleet-monitor/internal/config"
	"waste-fleet-monitor/internal/logger"
)

// MailSender delivers a plain text email.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MailClient sends through an SMTP relay with PLAIN auth.
type MailClient struct {
	cfg  config.SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailClient(cfg config.SMTPConfig) *MailClient {
	return &MailClient{cfg: cfg, send: smtp.SendMail}
}

func (c *MailClient) Send(ctx context.Context, to, subject, body string) error {
	if c.cfg.Host == "" {
		logger.Debug("SMTP is not configured, skipping email", zap.String("to", to))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if c.cfg.User != "" {
		auth = smtp.PlainAuth("", c.cfg.User, c.cfg.Password, c.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	if err := c.send(addr, auth, c.cfg.From, []string{to}, composeMail(c.cfg.From, to, subject, body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func composeMail(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + strings.ReplaceAll(subject, "\n", " ") + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
