package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/delordemm1/go-identity-core/internal/notification/templates"
)

// EmailSender delivers a rendered email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// Config holds the values shared by every outbound email.
type Config struct {
	AppName      string
	BaseURL      string
	SupportEmail string

	VerificationTTL    time.Duration
	PasswordResetTTL   time.Duration
	ParentalConsentTTL time.Duration
}

// Mailer renders account emails and hands them to an EmailSender.
type Mailer struct {
	cfg    Config
	engine *templates.Engine
	sender EmailSender
	log    *slog.Logger
}

// NewMailer creates a Mailer. Templates are preloaded so a broken one fails here.
func NewMailer(cfg Config, engine *templates.Engine, sender EmailSender, log *slog.Logger) (*Mailer, error) {
	if err := engine.Preload(templates.Welcome, templates.VerifyEmail, templates.PasswordReset, templates.ParentalConsent); err != nil {
		return nil, fmt.Errorf("preload email templates: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Mailer{cfg: cfg, engine: engine, sender: sender, log: log}, nil
}

func (m *Mailer) SendWelcome(ctx context.Context, to, firstName string) error {
	out, err := templates.Render(ctx, m.engine, templates.Welcome, templates.WelcomeData{
		AppName:      m.cfg.AppName,
		FirstName:    firstName,
		SupportEmail: m.cfg.SupportEmail,
	})
	if err != nil {
		return err
	}
	return m.deliver(ctx, to, templates.Welcome.ID(), out)
}

func (m *Mailer) SendVerification(ctx context.Context, to, firstName, token string) error {
	out, err := templates.Render(ctx, m.engine, templates.VerifyEmail, templates.VerifyEmailData{
		AppName:      m.cfg.AppName,
		FirstName:    firstName,
		Link:         m.link("/verify-email", token),
		Token:        token,
		ExpiresIn:    humanize(m.cfg.VerificationTTL),
		SupportEmail: m.cfg.SupportEmail,
	})
	if err != nil {
		return err
	}
	return m.deliver(ctx, to, templates.VerifyEmail.ID(), out)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, firstName, token string) error {
	out, err := templates.Render(ctx, m.engine, templates.PasswordReset, templates.PasswordResetData{
		AppName:      m.cfg.AppName,
		FirstName:    firstName,
		Link:         m.link("/reset-password", token),
		Token:        token,
		ExpiresIn:    humanize(m.cfg.PasswordResetTTL),
		SupportEmail: m.cfg.SupportEmail,
	})
	if err != nil {
		return err
	}
	return m.deliver(ctx, to, templates.PasswordReset.ID(), out)
}

// SendParentalConsent asks a parent or guardian to approve a minor's account.
func (m *Mailer) SendParentalConsent(ctx context.Context, parentEmail, parentName, childName, token string) error {
	out, err := templates.Render(ctx, m.engine, templates.ParentalConsent, templates.ParentalConsentData{
		AppName:      m.cfg.AppName,
		ParentName:   parentName,
		ChildName:    childName,
		Link:         m.link("/parental-consent", token),
		Token:        token,
		ExpiresIn:    humanize(m.cfg.ParentalConsentTTL),
		SupportEmail: m.cfg.SupportEmail,
	})
	if err != nil {
		return err
	}
	return m.deliver(ctx, parentEmail, templates.ParentalConsent.ID(), out)
}

func (m *Mailer) deliver(ctx context.Context, to, scenario string, out templates.Rendered) error {
	if err := m.sender.Send(ctx, to, out.Subject, out.EmailHTML, out.EmailText); err != nil {
		m.log.Error("failed to send email", "scenario", scenario, "to", to, "error", err)
		return fmt.Errorf("send %s: %w", scenario, err)
	}
	m.log.Info("email dispatched", "scenario", scenario, "to", to)
	return nil
}

func (m *Mailer) link(path, token string) string {
	return m.cfg.BaseURL + path + "?token=" + url.QueryEscape(token)
}

func humanize(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d%(24*time.Hour) == 0:
		n := int(d / (24 * time.Hour))
		if n == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", n)
	case d%time.Hour == 0:
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", n)
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}
