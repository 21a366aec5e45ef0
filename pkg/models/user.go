package models

import (
	"time"
)

// User represents an account holder
type User struct {
	ID             string     `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	Role           UserRole   `json:"role" db:"role"`
	ProfilePicture string     `json:"profile_picture" db:"profile_picture"`
	RefreshToken   string     `json:"-" db:"refresh_token"`
	ResetTokenHash string     `json:"-" db:"reset_token_hash"`
	ResetExpires   *time.Time `json:"-" db:"reset_expires"`
	Preferences    Preferences  `json:"preferences"`
	Subscription   Subscription `json:"subscription"`
	Stats          UserStats    `json:"stats"`
	LastLogin      *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// UserRole represents user roles
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Preferences holds per-user playback and display settings
type Preferences struct {
	PreferredGenres []string `json:"preferred_genres"`
	PlaybackSpeed   float64  `json:"playback_speed"`
	AutoPlayNext    bool     `json:"auto_play_next"`
	DarkMode        bool     `json:"dark_mode"`
	FontSize        string   `json:"font_size"`
	HighContrast    bool     `json:"high_contrast"`
}

// Subscription describes the user's plan
type Subscription struct {
	Type      string     `json:"type"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	AutoRenew bool       `json:"auto_renew"`
}

// UserStats holds aggregate listening counters
type UserStats struct {
	BooksCompleted     int `json:"books_completed"`
	TotalListeningTime int `json:"total_listening_time"` // minutes
}

// Subscription tier constants
const (
	SubscriptionFree     = "free"
	SubscriptionPremium  = "premium"
	SubscriptionLifetime = "lifetime"
)

// IsAdmin reports whether the user can perform catalog writes
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
