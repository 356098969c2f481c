// Package mail delivers outbound notifications
package mail

import (
	"fmt"
	"log"
	"net/smtp"
)

// Mailer is a one-way notification sink. Callers dispatch and move on;
// delivery confirmation is never consumed.
type Mailer interface {
	SendPasswordReset(to, resetLink string) error
}

// SMTPConfig holds the credentials for an SMTP relay
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer sends mail through a plain-auth SMTP relay
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTP-backed mailer
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendPasswordReset mails the reset link to the given address
func (m *SMTPMailer) SendPasswordReset(to, resetLink string) error {
	if m.cfg.Username == "" || m.cfg.Password == "" {
		return fmt.Errorf("smtp credentials not configured")
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	subject := "Reset your CoinFlow password"
	body := fmt.Sprintf(`Hello,

Click the link below to reset your password:

%s

This link will expire in 15 minutes.

If you didn't request this, please ignore this email.
`, resetLink)

	message := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"\r\n"+
			"%s\r\n",
		m.cfg.FromName, from, to, subject, body))

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := smtp.SendMail(addr, auth, from, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogMailer logs reset links instead of sending anything. Used in
// development when no SMTP credentials are configured.
type LogMailer struct{}

// SendPasswordReset logs the link and reports success
func (LogMailer) SendPasswordReset(to, resetLink string) error {
	log.Printf("password reset for %s: %s", to, resetLink)
	return nil
}
