package mailer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/digest/internal/models"
)

func TestBuild(t *testing.T) {
	m, err := Build(models.Message{
		From:    "noreply@example.org",
		Bcc:     []string{"anna@example.org", "mod@example.org"},
		Subject: "New comments",
		HTML:    "<p>hallo</p>",
		Text:    "hallo",
	})
	require.NoError(t, err)

	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"noreply@example.org", "anna@example.org", "mod@example.org"}, rcpts)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Subject: New comments")
	assert.Contains(t, out, "text/html")
	assert.Contains(t, out, "text/plain")
}

func TestBuild_InvalidAddress(t *testing.T) {
	_, err := Build(models.Message{From: "noreply@example.org", Bcc: []string{"not an address"}})
	assert.Error(t, err)

	_, err = Build(models.Message{From: "", Bcc: []string{"a@example.org"}})
	assert.Error(t, err)
}

func TestSend_RejectsInvalidMessageBeforeDialing(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: 1})

	err := s.Send(context.Background(), models.Message{From: "bad address"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sender")
}

func TestLogSender(t *testing.T) {
	l := LogSender{Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	assert.NoError(t, l.Send(context.Background(), models.Message{Subject: "x"}))
}
