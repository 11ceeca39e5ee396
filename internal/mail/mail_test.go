package mail

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/internal/config"
)

func sampleMessage() Message {
	return Message{
		To:      "gabe@example.com",
		ToName:  "Gabe",
		Subject: "Invitation: Sam Birthday",
		Body:    "You are invited.",
		Attachment: &Attachment{
			Filename:    "invite.ics",
			ContentType: "text/calendar",
			Data:        []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
		},
	}
}

func TestLogTransport_KeepsRecentMessages(t *testing.T) {
	tr := NewLogTransport(2)
	ctx := context.Background()

	for _, to := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		msg := sampleMessage()
		msg.To = to
		require.NoError(t, tr.Send(ctx, msg))
	}
	sent := tr.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "b@example.com", sent[0].To)
	assert.Equal(t, "c@example.com", sent[1].To)

	assert.ErrorIs(t, tr.Send(ctx, Message{}), ErrNoRecipient)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, tr.Send(cancelled, sampleMessage()), context.Canceled)
}

func TestHoldingTransport_NeverReportsDelivery(t *testing.T) {
	tr := NewHoldingTransport()
	ctx := context.Background()

	assert.ErrorIs(t, tr.Send(ctx, sampleMessage()), ErrNotDelivered)
	assert.ErrorIs(t, tr.Send(ctx, Message{}), ErrNoRecipient)
	assert.Empty(t, tr.Sent())
}

func TestBuildMessage(t *testing.T) {
	m, err := buildMessage("EventEase", "no-reply@eventease.local", sampleMessage())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Subject: Invitation: Sam Birthday")
	assert.Contains(t, out, "gabe@example.com")
	assert.Contains(t, out, "no-reply@eventease.local")
	assert.Contains(t, out, "text/calendar")
	assert.Contains(t, out, "invite.ics")

	_, err = buildMessage("EventEase", "no-reply@eventease.local", Message{Subject: "x"})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestNewSMTPTransport(t *testing.T) {
	cfg := config.DefaultConfig().SMTP

	_, err := NewSMTPTransport(cfg, time.Second)
	assert.Error(t, err, "empty host")

	cfg.Host = "smtp.example.com"
	cfg.Username = "user"
	cfg.Password = "pass"
	tr, err := NewSMTPTransport(cfg, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "no-reply@eventease.local", tr.from)

	cfg.TLSPolicy = "sometimes"
	_, err = NewSMTPTransport(cfg, time.Second)
	assert.Error(t, err)
}
