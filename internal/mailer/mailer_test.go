package mailer

import (
	"strings"
	"testing"

	"github.com/pmiaudio/audiobook-api/internal/config"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

func testMailer() *Mailer {
	return New(config.EmailConfig{
		From:        "no-reply@pmiaudio.test",
		FrontendURL: "https://app.pmiaudio.test",
	})
}

func TestRender_Welcome(t *testing.T) {
	m := testMailer()

	subject, body, err := m.render(&models.EmailJob{
		Type: models.EmailWelcome,
		To:   "meera@example.com",
		Name: "Meera",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if subject != "Welcome to PMI Audio" {
		t.Errorf("unexpected subject: %s", subject)
	}
	if !strings.Contains(body, "Hi Meera,") {
		t.Errorf("body missing greeting: %s", body)
	}
}

func TestRender_PasswordReset(t *testing.T) {
	m := testMailer()

	subject, body, err := m.render(&models.EmailJob{
		Type:  models.EmailPasswordReset,
		To:    "meera@example.com",
		Name:  "Meera",
		Token: "abc123",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if subject != "Reset your password" {
		t.Errorf("unexpected subject: %s", subject)
	}
	if !strings.Contains(body, "https://app.pmiaudio.test/reset-password/abc123") {
		t.Errorf("body missing reset link: %s", body)
	}
}

func TestRender_UnknownType(t *testing.T) {
	m := testMailer()

	_, _, err := m.render(&models.EmailJob{Type: "newsletter"})
	if err == nil {
		t.Fatal("expected error for unknown job type")
	}
}
