package email

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/Alijeyrad/counsel_backend/config"
)

// productName signs every template.
const productName = "Counsel"

const defaultSMTPTimeout = 30 * time.Second

type Client struct {
	enabled bool
	from    string
	timeout time.Duration
	dialer  *gomail.Dialer
}

func New(cfg config.EmailConfig) (*Client, error) {
	from := strings.TrimSpace(cfg.From)
	if cfg.Enabled && from == "" {
		return nil, ErrInvalidMessage{Reason: "email.from is required when email is enabled"}
	}

	s := cfg.SMTP
	d := gomail.NewDialer(s.Host, s.Port, s.Username, s.Password)
	// use_tls means implicit TLS (port 465); otherwise gomail upgrades with
	// STARTTLS when the server offers it.
	d.SSL = s.UseTLS
	d.TLSConfig = &tls.Config{ServerName: s.Host, MinVersion: tls.VersionTLS12}

	timeout := defaultSMTPTimeout
	if s.TimeoutSeconds > 0 {
		timeout = time.Duration(s.TimeoutSeconds) * time.Second
	}

	return &Client{enabled: cfg.Enabled, from: from, timeout: timeout, dialer: d}, nil
}

// AppName is the product name used in message templates.
func (c *Client) AppName() string { return productName }

// Send delivers m, giving up at the sooner of ctx's deadline and the SMTP
// timeout.
func (c *Client) Send(ctx context.Context, m Message) error {
	if !c.enabled {
		return ErrDisabled{}
	}

	msg, err := buildMessage(c.from, m)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return ErrSend{Provider: "smtp", Err: err}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from string, m Message) (*gomail.Message, error) {
	if from == "" {
		return nil, ErrInvalidMessage{Reason: "from is required"}
	}
	to := cleanAddrs(m.To)
	if len(to) == 0 {
		return nil, ErrInvalidMessage{Reason: "at least one recipient is required"}
	}
	subj := strings.TrimSpace(m.Subject)
	if subj == "" {
		return nil, ErrInvalidMessage{Reason: "subject is required"}
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subj)

	hasText := strings.TrimSpace(m.TextBody) != ""
	hasHTML := strings.TrimSpace(m.HTMLBody) != ""
	switch {
	case hasText && hasHTML:
		msg.SetBody("text/plain", m.TextBody)
		msg.AddAlternative("text/html", m.HTMLBody)
	case hasHTML:
		msg.SetBody("text/html", m.HTMLBody)
	case hasText:
		msg.SetBody("text/plain", m.TextBody)
	default:
		return nil, ErrInvalidMessage{Reason: "a text or HTML body is required"}
	}
	return msg, nil
}

func cleanAddrs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
