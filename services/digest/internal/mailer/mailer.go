// Package mailer delivers digest mails over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/digest/internal/models"
)

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTP sends messages through one server.
type SMTP struct {
	cfg SMTPConfig
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	return &SMTP{cfg: cfg}
}

// Build turns a digest message into a MIME mail. Recipients go to Bcc so
// subscribers do not see each other.
func Build(msg models.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	if err := m.To(msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	if err := m.Bcc(msg.Bcc...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}

// Send dials the server and delivers msg.
func (s *SMTP) Send(ctx context.Context, msg models.Message) error {
	m, err := Build(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{mail.WithPort(s.cfg.Port)}
	if s.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send via %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	return nil
}

// LogSender logs messages instead of sending them.
type LogSender struct {
	Log *slog.Logger
}

func (l LogSender) Send(_ context.Context, msg models.Message) error {
	l.Log.Info("mail not sent", "subject", msg.Subject, "bcc", msg.Bcc, "bytes", len(msg.HTML))
	l.Log.Debug("mail body", "text", msg.Text)
	return nil
}
