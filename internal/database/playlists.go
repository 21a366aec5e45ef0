package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

// CreatePlaylist inserts a playlist with its initial book list
func (r *Repository) CreatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	if playlist.ID == "" {
		playlist.ID = uuid.New().String()
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO playlists (id, user_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		playlist.ID, playlist.UserID, playlist.Name, playlist.Description,
	).Scan(&playlist.CreatedAt, &playlist.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	if err := replacePlaylistBooks(ctx, tx, playlist.ID, playlist.BookIDs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetPlaylist retrieves a playlist owned by the user
func (r *Repository) GetPlaylist(ctx context.Context, userID, playlistID string) (*models.Playlist, error) {
	query := `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM playlists
		WHERE id = $1 AND user_id = $2
	`

	var p models.Playlist
	err := r.db.Pool.QueryRow(ctx, query, playlistID, userID).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	p.BookIDs, err = r.playlistBookIDs(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// ListPlaylists returns the user's playlists with their book lists
func (r *Repository) ListPlaylists(ctx context.Context, userID string) ([]models.Playlist, error) {
	query := `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM playlists
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range playlists {
		playlists[i].BookIDs, err = r.playlistBookIDs(ctx, playlists[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return playlists, nil
}

// UpdatePlaylist replaces the playlist's metadata and book list
func (r *Repository) UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE playlists
		SET name = $3, description = $4, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	err = tx.QueryRow(ctx, query,
		playlist.ID, playlist.UserID, playlist.Name, playlist.Description,
	).Scan(&playlist.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("playlist %s: %w", playlist.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM playlist_books WHERE playlist_id = $1`, playlist.ID); err != nil {
		return fmt.Errorf("failed to clear playlist books: %w", err)
	}
	if err := replacePlaylistBooks(ctx, tx, playlist.ID, playlist.BookIDs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeletePlaylist removes a playlist owned by the user
func (r *Repository) DeletePlaylist(ctx context.Context, userID, playlistID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM playlists WHERE id = $1 AND user_id = $2`, playlistID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}

	return nil
}

func (r *Repository) playlistBookIDs(ctx context.Context, playlistID string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT book_id FROM playlist_books WHERE playlist_id = $1 ORDER BY position ASC`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist books: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan book id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func replacePlaylistBooks(ctx context.Context, tx pgx.Tx, playlistID string, bookIDs []string) error {
	for i, bookID := range bookIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO playlist_books (playlist_id, book_id, position) VALUES ($1, $2, $3)
			 ON CONFLICT (playlist_id, book_id) DO NOTHING`,
			playlistID, bookID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert playlist book: %w", err)
		}
	}
	return nil
}
