package database

import (
	"context"
	"fmt"
)

// Schema statements executed at startup. Every table uses IF NOT EXISTS so
// repeated boots are safe; uniqueness constraints back the upsert paths.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		profile_picture TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		reset_token_hash TEXT NOT NULL DEFAULT '',
		reset_expires TIMESTAMPTZ,
		playback_speed DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		auto_play_next BOOLEAN NOT NULL DEFAULT TRUE,
		dark_mode BOOLEAN NOT NULL DEFAULT FALSE,
		font_size TEXT NOT NULL DEFAULT 'medium',
		high_contrast BOOLEAN NOT NULL DEFAULT FALSE,
		subscription_type TEXT NOT NULL DEFAULT 'free',
		subscription_start TIMESTAMPTZ,
		subscription_end TIMESTAMPTZ,
		auto_renew BOOLEAN NOT NULL DEFAULT FALSE,
		books_completed INTEGER NOT NULL DEFAULT 0,
		total_listening_time INTEGER NOT NULL DEFAULT 0,
		last_login TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS authors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		bio TEXT NOT NULL DEFAULT '',
		photo TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS genres (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		narrator TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		audio_file TEXT NOT NULL DEFAULT '',
		cover_image TEXT NOT NULL DEFAULT '',
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_plays INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		release_date TIMESTAMPTZ,
		language TEXT NOT NULL DEFAULT 'ml',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS chapters (
		book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		audio_file TEXT NOT NULL,
		duration DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (book_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS book_authors (
		book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		author_id TEXT NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		PRIMARY KEY (book_id, author_id)
	)`,
	`CREATE TABLE IF NOT EXISTS book_genres (
		book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		genre_id TEXT NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		PRIMARY KEY (book_id, genre_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_preferred_genres (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		genre_id TEXT NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		PRIMARY KEY (user_id, genre_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		current_chapter INTEGER NOT NULL DEFAULT 0,
		current_position DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_played DOUBLE PRECISION NOT NULL DEFAULT 0,
		playback_speed DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		is_completed BOOLEAN NOT NULL DEFAULT FALSE,
		completion_date TIMESTAMPTZ,
		last_played_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, book_id)
	)`,
	`CREATE TABLE IF NOT EXISTS bookmarks (
		id TEXT PRIMARY KEY,
		progress_id TEXT NOT NULL REFERENCES user_progress(id) ON DELETE CASCADE,
		position DOUBLE PRECISION NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, book_id)
	)`,
	`CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS playlist_books (
		playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
		book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		PRIMARY KEY (playlist_id, book_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_active ON books (is_active, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_user_progress_user ON user_progress (user_id, last_played_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_users_refresh_token ON users (refresh_token)`,
	`CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users (reset_token_hash)`,
}

// Migrate creates the schema if it does not exist
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
