package models

import (
	"time"
)

// EmailJobType identifies the template an email job renders
type EmailJobType string

const (
	EmailWelcome       EmailJobType = "welcome"
	EmailPasswordReset EmailJobType = "password_reset"
)

// EmailJob is a queued transactional email. Delivery is fire-and-forget
// from the API's point of view; the worker owns retries.
type EmailJob struct {
	ID        string       `json:"id"`
	Type      EmailJobType `json:"type"`
	To        string       `json:"to"`
	Name      string       `json:"name"`
	Token     string       `json:"token,omitempty"` // raw reset token; the worker builds the link
	CreatedAt time.Time    `json:"created_at"`
}
