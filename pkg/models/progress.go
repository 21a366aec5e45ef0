package models

import (
	"time"
)

// Progress is the per-(user, book) playback state record
type Progress struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	BookID          string     `json:"book_id" db:"book_id"`
	CurrentChapter  int        `json:"current_chapter" db:"current_chapter"`
	CurrentPosition float64    `json:"current_position" db:"current_position"` // seconds within the chapter/file
	TotalPlayed     float64    `json:"total_played" db:"total_played"`         // cumulative seconds
	PlaybackSpeed   float64    `json:"playback_speed" db:"playback_speed"`
	IsCompleted     bool       `json:"is_completed" db:"is_completed"`
	CompletionDate  *time.Time `json:"completion_date,omitempty" db:"completion_date"`
	LastPlayedAt    time.Time  `json:"last_played_at" db:"last_played_at"`
	Bookmarks       []Bookmark `json:"bookmarks"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Bookmark marks a position within a book with an optional note
type Bookmark struct {
	ID        string    `json:"id" db:"id"`
	Position  float64   `json:"position" db:"position"` // seconds
	Note      string    `json:"note" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LibraryEntry pairs a progress record with its book summary
type LibraryEntry struct {
	Progress
	Book BookSummary `json:"book"`
}

// ListeningStats is the aggregate view returned by the stats endpoint
type ListeningStats struct {
	TotalBooks         int          `json:"total_books"`
	CompletedBooks     int          `json:"completed_books"`
	InProgressBooks    int          `json:"in_progress_books"`
	TotalListeningTime int          `json:"total_listening_time"` // minutes
	UserStats          UserStats    `json:"user_stats"`
	Preferences        Preferences  `json:"preferences"`
	Subscription       Subscription `json:"subscription"`
}

// Pagination is the envelope attached to paginated listings
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
