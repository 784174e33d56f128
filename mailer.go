package amyrose

import (
	"github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// Mailer sends transactional mail over SMTP. Sends are fire and forget from
// the core's perspective: failures are surfaced, never retried, and missing
// credentials fail fast at call time.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg SMTPConfig) *Mailer {
	m := &Mailer{from: cfg.From}
	if cfg.Host != "" {
		dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		dialer.SSL = cfg.TLS
		m.dialer = dialer
	}
	return m
}

// Send delivers one message. Unconfigured transports error immediately.
func (m *Mailer) Send(to, subject, body string) error {
	if m.dialer == nil || m.from == "" {
		return errors.New("smtp credentials not found", errors.CategoryOperation)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "could not send email")
	}
	return nil
}
