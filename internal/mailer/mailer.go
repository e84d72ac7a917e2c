// Package mailer sends transactional and report mail over SMTP.
package mailer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/supervitec/field-movement-api/internal/config"
)

// Mailer wraps an SMTP client. A zero-configured Mailer (empty host)
// is disabled: Send methods log and return nil so the callers that
// treat mail as best-effort keep working in environments without an
// SMTP relay. Callers that need delivery confirmation check Enabled.
type Mailer struct {
	cfg    config.SMTPConfig
	client *mail.Client
	log    zerolog.Logger
}

// New builds a Mailer from SMTP configuration. Returns a disabled
// Mailer when no host is configured.
func New(cfg config.SMTPConfig, log zerolog.Logger) (*Mailer, error) {
	m := &Mailer{cfg: cfg, log: log}
	if cfg.Host == "" {
		log.Warn().Msg("smtp host not configured, outbound mail disabled")
		return m, nil
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	m.client = client
	return m, nil
}

// Enabled reports whether the mailer can actually deliver.
func (m *Mailer) Enabled() bool { return m != nil && m.client != nil }

func (m *Mailer) send(msg *mail.Msg) error {
	if !m.Enabled() {
		m.log.Debug().Msg("mail disabled, message dropped")
		return nil
	}
	return m.client.DialAndSend(msg)
}

func (m *Mailer) newMsg(to, subject string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, err
	}
	if err := msg.To(to); err != nil {
		return nil, err
	}
	msg.Subject(subject)
	return msg, nil
}

// SendPasswordReset mails a recovery link built from the frontend base
// URL and the one-time token.
func (m *Mailer) SendPasswordReset(to, name, frontendURL, token string) error {
	msg, err := m.newMsg(to, "Password recovery")
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/reset-password?token=%s", frontendURL, token)
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Hello %s,\n\nA password reset was requested for your account. "+
			"Use the link below within the next hour:\n\n%s\n\n"+
			"If you did not request this, ignore this message.\n", name, link))
	return m.send(msg)
}

// SendMonthlyReport mails the monthly movements workbook to each
// configured recipient.
func (m *Mailer) SendMonthlyReport(recipients []string, period string, xlsx []byte) error {
	for _, to := range recipients {
		msg, err := m.newMsg(to, "Monthly movement report "+period)
		if err != nil {
			return err
		}
		msg.SetBodyString(mail.TypeTextPlain,
			"Attached is the consolidated movement report for "+period+".\n")
		if err := msg.AttachReader("movements-"+period+".xlsx", bytes.NewReader(xlsx)); err != nil {
			return err
		}
		if err := m.send(msg); err != nil {
			return err
		}
	}
	return nil
}

// SendInactivityNotice nudges a field worker who has not recorded any
// movement recently.
func (m *Mailer) SendInactivityNotice(to, name string, since time.Time) error {
	msg, err := m.newMsg(to, "We miss your activity reports")
	if err != nil {
		return err
	}
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Hello %s,\n\nNo movements have been recorded on your account since %s. "+
			"Remember to register your field activity in the app.\n",
		name, since.Format("2006-01-02")))
	return m.send(msg)
}
