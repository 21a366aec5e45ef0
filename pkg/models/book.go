package models

import (
	"time"
)

// Author represents a book author
type Author struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Bio   string `json:"bio,omitempty" db:"bio"`
	Photo string `json:"photo,omitempty" db:"photo"`
}

// Genre represents a catalog genre
type Genre struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
	Color       string `json:"color,omitempty" db:"color"`
}

// Chapter is a titled sub-segment of a book with its own audio reference
type Chapter struct {
	Title     string  `json:"title" db:"title"`
	AudioFile string  `json:"audio_file" db:"audio_file"`
	Duration  float64 `json:"duration" db:"duration"` // minutes
}

// Book represents an audiobook. Authors and genres are always returned
// denormalized; chapters are ordered by position.
type Book struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Authors     []Author   `json:"authors"`
	Genres      []Genre    `json:"genres"`
	Narrator    string     `json:"narrator" db:"narrator"`
	Duration    int        `json:"duration" db:"duration"` // minutes
	AudioFile   string     `json:"audio_file,omitempty" db:"audio_file"`
	CoverImage  string     `json:"cover_image" db:"cover_image"`
	Chapters    []Chapter  `json:"chapters"`
	Rating      float64    `json:"rating" db:"rating"`
	TotalPlays  int        `json:"total_plays" db:"total_plays"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	ReleaseDate *time.Time `json:"release_date,omitempty" db:"release_date"`
	Language    string     `json:"language" db:"language"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// BookSummary is the trimmed book shape embedded in library entries
type BookSummary struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	CoverImage string   `json:"cover_image"`
	Duration   int      `json:"duration"`
	Narrator   string   `json:"narrator"`
	Rating     float64  `json:"rating"`
	Authors    []string `json:"authors"`
}

// DefaultLanguage is applied when a book is created without a language tag
const DefaultLanguage = "ml"
