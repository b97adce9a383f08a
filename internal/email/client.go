// Package email sends plain text notification emails over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/config"
)

// Client delivers messages through one SMTP relay.
type Client struct {
	host      string
	port      int
	user      string
	password  string
	fromName  string
	fromEmail string
}

// NewClient validates the SMTP settings and returns a Client.
func NewClient(cfg config.SMTPConfig) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is empty")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("sender address is empty")
	}
	port := cfg.Port
	if port <= 0 {
		port = 587
	}
	return &Client{
		host:      cfg.Host,
		port:      port,
		user:      cfg.User,
		password:  cfg.Password,
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
	}, nil
}

func (c *Client) message(to, subject, body string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if c.fromName != "" {
		if err := m.FromFormat(c.fromName, c.fromEmail); err != nil {
			return nil, fmt.Errorf("set sender: %w", err)
		}
	} else if err := m.From(c.fromEmail); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)
	return m, nil
}

// Send delivers one plain text email.  Errors carry the relay address but
// never the credentials.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	m, err := c.message(to, subject, body)
	if err != nil {
		return err
	}
	opts := []mail.Option{
		mail.WithPort(c.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTLSConfig(&tls.Config{ServerName: c.host}),
	}
	if c.user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.user),
			mail.WithPassword(c.password),
		)
	}
	client, err := mail.NewClient(c.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client (host=%s port=%d): %w", c.host, c.port, err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail (host=%s port=%d): %w", c.host, c.port, err)
	}
	return nil
}
