// Package email sends the one-time codes used by sign-up, email change and
// password recovery.
package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

type Service interface {
	SendVerification(ctx context.Context, to, code string) error
	SendEmailChange(ctx context.Context, to, code string) error
	SendPasswordReset(ctx context.Context, to, code string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether an SMTP host is set.
func (c Config) Configured() bool {
	return c.Host != ""
}

// sender is the part of gomail.Dialer the mailer uses.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	from   string
	dialer sender
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, code string) error {
	return m.send(ctx, to, "Confirm your email",
		fmt.Sprintf("Your EchoCare verification code is %s.\n\nEnter it in the app to confirm your account.", code))
}

func (m *SMTPMailer) SendEmailChange(ctx context.Context, to, code string) error {
	return m.send(ctx, to, "Confirm your new email",
		fmt.Sprintf("Your EchoCare email change code is %s.", code))
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, code string) error {
	return m.send(ctx, to, "Reset your password",
		fmt.Sprintf("Your EchoCare password reset code is %s.\n\nIf you did not ask for a reset you can ignore this email.", code))
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	log.Info().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}

// LogMailer writes codes to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) SendVerification(ctx context.Context, to, code string) error {
	log.Warn().Str("to", to).Str("code", code).Msg("SMTP not configured, verification code logged")
	return nil
}

func (LogMailer) SendEmailChange(ctx context.Context, to, code string) error {
	log.Warn().Str("to", to).Str("code", code).Msg("SMTP not configured, email change code logged")
	return nil
}

func (LogMailer) SendPasswordReset(ctx context.Context, to, code string) error {
	log.Warn().Str("to", to).Str("code", code).Msg("SMTP not configured, reset code logged")
	return nil
}

// New returns an SMTP mailer, or a LogMailer when SMTP is not configured.
func New(cfg Config) Service {
	if !cfg.Configured() {
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}
