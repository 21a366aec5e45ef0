package models

import (
	"time"
)

// Review is a per-(user, book) rating with an optional comment
type Review struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	BookID    string    `json:"book_id" db:"book_id"`
	Rating    int       `json:"rating" db:"rating"` // 1..5
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Playlist is a named, user-owned collection of books
type Playlist struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	BookIDs     []string  `json:"book_ids"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
