package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

// UpsertAuthor finds or creates an author by name. The no-op DO UPDATE makes
// the RETURNING clause fire on conflict, so concurrent upserts of the same
// name all resolve to the one row.
func (r *Repository) UpsertAuthor(ctx context.Context, name string) (string, error) {
	query := `
		INSERT INTO authors (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	var id string
	if err := r.db.Pool.QueryRow(ctx, query, uuid.New().String(), name).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to upsert author: %w", err)
	}

	return id, nil
}

// UpsertGenre finds or creates a genre by name
func (r *Repository) UpsertGenre(ctx context.Context, name string) (string, error) {
	query := `
		INSERT INTO genres (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	var id string
	if err := r.db.Pool.QueryRow(ctx, query, uuid.New().String(), name).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to upsert genre: %w", err)
	}

	return id, nil
}

// GetAuthorsByIDs returns authors keyed by ID
func (r *Repository) GetAuthorsByIDs(ctx context.Context, ids []string) (map[string]models.Author, error) {
	query := `SELECT id, name, bio, photo FROM authors WHERE id = ANY($1)`

	rows, err := r.db.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get authors: %w", err)
	}
	defer rows.Close()

	authors := make(map[string]models.Author)
	for rows.Next() {
		var a models.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Bio, &a.Photo); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors[a.ID] = a
	}

	return authors, rows.Err()
}

// GetGenresByIDs returns genres keyed by ID
func (r *Repository) GetGenresByIDs(ctx context.Context, ids []string) (map[string]models.Genre, error) {
	query := `SELECT id, name, description, color FROM genres WHERE id = ANY($1)`

	rows, err := r.db.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get genres: %w", err)
	}
	defer rows.Close()

	genres := make(map[string]models.Genre)
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Color); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres[g.ID] = g
	}

	return genres, rows.Err()
}

// GetGenreByName retrieves a genre by its natural key
func (r *Repository) GetGenreByName(ctx context.Context, name string) (*models.Genre, error) {
	query := `SELECT id, name, description, color FROM genres WHERE name = $1`

	var g models.Genre
	err := r.db.Pool.QueryRow(ctx, query, name).Scan(&g.ID, &g.Name, &g.Description, &g.Color)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("genre %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get genre: %w", err)
	}

	return &g, nil
}

// ListGenres returns all genres ordered by name
func (r *Repository) ListGenres(ctx context.Context) ([]models.Genre, error) {
	query := `SELECT id, name, description, color FROM genres ORDER BY name ASC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	defer rows.Close()

	var genres []models.Genre
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Color); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, g)
	}

	return genres, rows.Err()
}
