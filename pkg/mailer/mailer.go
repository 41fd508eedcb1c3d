package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/hometownhq/hometown-backend/config"
	"github.com/hometownhq/hometown-backend/pkg/logger"
)

// Mailer delivers a single HTML message. Implementations may fail
// independently of the caller's own outcome; callers decide what a failed
// delivery means for them.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// New picks the transport from configuration: real SMTP when credentials
// are present, a log-only stub otherwise (test/dev mode).
func New(cfg config.SMTPConfig) Mailer {
	if cfg.User == "" || cfg.Password == "" {
		logger.Info("SMTP credentials absent, using log-only mail transport", nil)
		return &logMailer{from: cfg.From}
	}
	logger.Info("Using SMTP mail transport", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
	})
	return &smtpMailer{cfg: cfg}
}

type smtpMailer struct {
	cfg config.SMTPConfig
}

func (m *smtpMailer) Send(to, subject, htmlBody string) error {
	message := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		m.cfg.From, to, subject, htmlBody,
	))

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	addr := m.cfg.Host + ":" + m.cfg.Port

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// logMailer logs instead of sending. Used when no SMTP credentials are
// configured so local development never emails real people.
type logMailer struct {
	from string
}

func (m *logMailer) Send(to, subject, htmlBody string) error {
	logger.Info("[DEV MODE] Mail not sent, logging instead", map[string]interface{}{
		"from":    m.from,
		"to":      to,
		"subject": subject,
		"body":    htmlBody,
	})
	return nil
}
