package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/delordemm1/go-identity-core/internal/notification/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEmail struct {
	to, subject, html, text string
}

type recordingSender struct {
	sent []sentEmail
	err  error
}

func (r *recordingSender) Send(_ context.Context, to, subject, html, text string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentEmail{to, subject, html, text})
	return nil
}

func newTestMailer(t *testing.T, sender EmailSender) *Mailer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := NewMailer(Config{
		AppName:            "Identity",
		BaseURL:            "https://id.example.com/",
		SupportEmail:       "help@example.com",
		VerificationTTL:    24 * time.Hour,
		PasswordResetTTL:   time.Hour,
		ParentalConsentTTL: 7 * 24 * time.Hour,
	}, templates.NewEngine(templates.Config{}, log), sender, log)
	require.NoError(t, err)
	return m
}

func TestMailerSendVerification(t *testing.T) {
	sender := &recordingSender{}
	m := newTestMailer(t, sender)

	require.NoError(t, m.SendVerification(context.Background(), "ada@example.com", "Ada", "tok+en"))
	require.Len(t, sender.sent, 1)

	got := sender.sent[0]
	assert.Equal(t, "ada@example.com", got.to)
	assert.NotEmpty(t, got.subject)
	assert.Contains(t, got.text, "https://id.example.com/verify-email?token=tok%2Ben")
	assert.Contains(t, got.text, "1 day")
}

func TestMailerSendParentalConsentGoesToParent(t *testing.T) {
	sender := &recordingSender{}
	m := newTestMailer(t, sender)

	require.NoError(t, m.SendParentalConsent(context.Background(), "parent@example.com", "Sam", "Alex", "abc"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "parent@example.com", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].text, "/parental-consent?token=abc")
	assert.Contains(t, sender.sent[0].text, "7 days")
}

func TestMailerPropagatesSenderError(t *testing.T) {
	sender := &recordingSender{err: errors.New("relay down")}
	m := newTestMailer(t, sender)

	err := m.SendPasswordReset(context.Background(), "ada@example.com", "Ada", "abc")
	assert.ErrorContains(t, err, "relay down")
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "1 hour", humanize(time.Hour))
	assert.Equal(t, "3 hours", humanize(3*time.Hour))
	assert.Equal(t, "7 days", humanize(7*24*time.Hour))
	assert.Equal(t, "30 minutes", humanize(30*time.Minute))
	assert.Equal(t, "", humanize(0))
}
