package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

// UpsertReview writes the user's review for a book, replacing any earlier
// one, then refreshes the book's aggregate rating in the same transaction.
func (r *Repository) UpsertReview(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO reviews (id, user_id, book_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, book_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment
		RETURNING id, created_at
	`

	err = tx.QueryRow(ctx, query,
		review.ID, review.UserID, review.BookID, review.Rating, review.Comment,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert review: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE books
		SET rating = (SELECT COALESCE(avg(rating), 0) FROM reviews WHERE book_id = $1),
		    updated_at = now()
		WHERE id = $1`, review.BookID)
	if err != nil {
		return fmt.Errorf("failed to refresh book rating: %w", err)
	}

	return tx.Commit(ctx)
}

// ListReviews returns a book's reviews, newest first
func (r *Repository) ListReviews(ctx context.Context, bookID string) ([]models.Review, error) {
	query := `
		SELECT id, user_id, book_id, rating, comment, created_at
		FROM reviews
		WHERE book_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var rev models.Review
		if err := rows.Scan(&rev.ID, &rev.UserID, &rev.BookID, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rev)
	}

	return reviews, rows.Err()
}

// DeleteReview removes the user's review and refreshes the book rating
func (r *Repository) DeleteReview(ctx context.Context, userID, bookID string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM reviews WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("review for book %s: %w", bookID, ErrNotFound)
	}

	_, err = tx.Exec(ctx, `
		UPDATE books
		SET rating = (SELECT COALESCE(avg(rating), 0) FROM reviews WHERE book_id = $1),
		    updated_at = now()
		WHERE id = $1`, bookID)
	if err != nil {
		return fmt.Errorf("failed to refresh book rating: %w", err)
	}

	return tx.Commit(ctx)
}
