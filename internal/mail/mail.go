// Package mail moves invitation messages to guests.
package mail

import (
	"context"
	"errors"
	"fmt"
	"sync"

	appLog "eventease/internal/log"
)

var (
	// ErrNoRecipient is returned for a message without a To address.
	ErrNoRecipient = errors.New("message has no recipient")
	// ErrNotDelivered is returned by a holding LogTransport: the message was
	// logged but nothing left the process.
	ErrNotDelivered = errors.New("no mail server configured; message logged, not delivered")
)

// Attachment is a file carried by a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing email.
type Message struct {
	To         string
	ToName     string
	Subject    string
	Body       string
	Attachment *Attachment
}

// Transport delivers a message. A nil error means the message was accepted
// for delivery; it must respect ctx cancellation.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// LogTransport logs messages instead of sending them and keeps the last
// ones for inspection. It is used when no SMTP host is configured.
type LogTransport struct {
	mu   sync.Mutex
	sent []Message
	keep int
	hold bool
}

// NewLogTransport keeps up to keep messages; zero keeps none. Logged
// messages count as delivered.
func NewLogTransport(keep int) *LogTransport {
	return &LogTransport{keep: keep}
}

// NewHoldingTransport logs messages and fails every send with
// ErrNotDelivered, so nothing is marked sent until a real server is set up.
func NewHoldingTransport() *LogTransport {
	return &LogTransport{hold: true}
}

func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return ErrNoRecipient
	}
	attachment := ""
	size := 0
	if msg.Attachment != nil {
		attachment = msg.Attachment.Filename
		size = len(msg.Attachment.Data)
	}
	appLog.Info("mail (log transport)", "to", msg.To, "subject", msg.Subject, "attachment", attachment, "bytes", size, "held", t.hold)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.keep > 0 {
		t.sent = append(t.sent, msg)
		if len(t.sent) > t.keep {
			t.sent = t.sent[len(t.sent)-t.keep:]
		}
	}
	if t.hold {
		return ErrNotDelivered
	}
	return nil
}

// Sent returns a copy of the retained messages, oldest first.
func (t *LogTransport) Sent() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.sent...)
}

func describe(msg Message) string {
	if msg.ToName == "" {
		return msg.To
	}
	return fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
}
