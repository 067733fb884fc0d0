package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	mail "github.com/xhit/go-simple-mail/v2"
)

// SMTPConfig holds the connection settings for an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// smtpEmailSender sends through an SMTP relay guarded by a circuit breaker,
// so a dead relay fails fast instead of stalling every request that emails.
type smtpEmailSender struct {
	client  *mail.SMTPServer
	from    string
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

// NewSMTPEmailSender creates a new sender that uses an SMTP server.
func NewSMTPEmailSender(cfg SMTPConfig, log *slog.Logger) EmailSender {
	server := mail.NewSMTPClient()
	server.Host = cfg.Host
	server.Port = cfg.Port
	server.Username = cfg.Username
	server.Password = cfg.Password
	server.Encryption = mail.EncryptionSTARTTLS
	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("smtp circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &smtpEmailSender{
		client:  server,
		from:    cfg.From,
		breaker: cb,
		log:     log,
	}
}

func (s *smtpEmailSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.send(to, subject, htmlBody, textBody)
	})
	return err
}

func (s *smtpEmailSender) send(to, subject, htmlBody, textBody string) error {
	smtpClient, err := s.client.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer smtpClient.Close()

	email := mail.NewMSG()
	email.SetFrom(s.from).AddTo(to).SetSubject(subject)
	switch {
	case htmlBody != "":
		email.SetBody(mail.TextHTML, htmlBody)
		if textBody != "" {
			email.AddAlternative(mail.TextPlain, textBody)
		}
	default:
		email.SetBody(mail.TextPlain, textBody)
	}
	if email.Error != nil {
		return fmt.Errorf("build email: %w", email.Error)
	}

	if err = email.Send(smtpClient); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.Info("email sent via smtp", "to", to)
	return nil
}

// logEmailSender writes emails to the log instead of sending them. Used in development.
type logEmailSender struct {
	log *slog.Logger
}

// NewLogEmailSender returns an EmailSender that only logs.
func NewLogEmailSender(log *slog.Logger) EmailSender {
	return &logEmailSender{log: log}
}

func (s *logEmailSender) Send(_ context.Context, to, subject, _, textBody string) error {
	s.log.Info("email (not sent)", "to", to, "subject", subject, "body", textBody)
	return nil
}
