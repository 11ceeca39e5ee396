package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"eventease/internal/config"
	appLog "eventease/internal/log"
)

// SMTPTransport sends messages through an SMTP relay, one connection per
// message.
type SMTPTransport struct {
	from     string
	fromName string
	client   *gomail.Client
}

// NewSMTPTransport builds a transport from the smtp config section.
func NewSMTPTransport(cfg config.SMTPConfig, timeout time.Duration) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is empty")
	}
	policy, err := tlsPolicy(cfg.TLSPolicy)
	if err != nil {
		return nil, err
	}
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(policy),
	}
	if timeout > 0 {
		opts = append(opts, gomail.WithTimeout(timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPTransport{from: cfg.From, fromName: cfg.FromName, client: client}, nil
}

func tlsPolicy(s string) (gomail.TLSPolicy, error) {
	switch s {
	case "", "mandatory":
		return gomail.TLSMandatory, nil
	case "opportunistic":
		return gomail.TLSOpportunistic, nil
	case "none":
		return gomail.NoTLS, nil
	default:
		return gomail.TLSMandatory, fmt.Errorf("unknown smtp tls policy %q", s)
	}
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m, err := buildMessage(t.fromName, t.from, msg)
	if err != nil {
		return err
	}
	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	appLog.Debug("smtp sent", "to", describe(msg), "subject", msg.Subject)
	return nil
}

func buildMessage(fromName, from string, msg Message) (*gomail.Msg, error) {
	if msg.To == "" {
		return nil, ErrNoRecipient
	}
	m := gomail.NewMsg()
	if err := m.FromFormat(fromName, from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	if a := msg.Attachment; a != nil {
		err := m.AttachReader(a.Filename, bytes.NewReader(a.Data),
			gomail.WithFileContentType(gomail.ContentType(a.ContentType)))
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	return m, nil
}
