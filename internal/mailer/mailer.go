package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pmiaudio/audiobook-api/internal/config"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

// Mailer sends transactional email over SMTP
type Mailer struct {
	cfg config.EmailConfig
}

// New creates a mailer from config
func New(cfg config.EmailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send renders and delivers the message for an email job
func (m *Mailer) Send(job *models.EmailJob) error {
	subject, body, err := m.render(job)
	if err != nil {
		return err
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", m.cfg.From),
		fmt.Sprintf("To: %s", job.To),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{job.To}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (m *Mailer) render(job *models.EmailJob) (subject, body string, err error) {
	switch job.Type {
	case models.EmailWelcome:
		subject = "Welcome to PMI Audio"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour account is ready. Pick a book and start listening.\n\nThe PMI Audio team\n",
			job.Name)
	case models.EmailPasswordReset:
		resetURL := fmt.Sprintf("%s/reset-password/%s", m.cfg.FrontendURL, job.Token)
		subject = "Reset your password"
		body = fmt.Sprintf(
			"Hi %s,\n\nWe received a request to reset your password. Use the link below within the next hour:\n\n%s\n\nIf you did not request this, you can ignore this email.\n",
			job.Name, resetURL)
	default:
		return "", "", fmt.Errorf("unknown email job type: %s", job.Type)
	}
	return subject, body, nil
}
