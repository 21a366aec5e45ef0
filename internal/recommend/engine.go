package recommend

import (
	"context"

	"github.com/pmiaudio/audiobook-api/pkg/models"
)

const DefaultLimit = 10

// Store is the subset of the repository the engine needs
type Store interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListListenedBookIDs(ctx context.Context, userID string) ([]string, error)
	ListBooksByGenres(ctx context.Context, genreIDs, excludeIDs []string, limit int) ([]*models.Book, error)
	ListPopularBooks(ctx context.Context, excludeIDs []string, limit int) ([]*models.Book, error)
}

// Engine produces per-user book recommendations: genre matches first,
// backfilled with popular titles, never repeating anything the user
// already has in their library.
type Engine struct {
	store Store
}

// NewEngine creates the recommendation engine
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Recommend returns up to limit active books for the user
func (e *Engine) Recommend(ctx context.Context, userID string, limit int) ([]*models.Book, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	excluded, err := e.store.ListListenedBookIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var matched []*models.Book
	if len(user.Preferences.PreferredGenres) > 0 {
		matched, err = e.store.ListBooksByGenres(ctx, user.Preferences.PreferredGenres, excluded, limit)
		if err != nil {
			return nil, err
		}
	}

	if len(matched) >= limit {
		return matched[:limit], nil
	}

	// Backfill with popular titles, excluding both the library and the
	// genre matches already selected.
	exclude := make([]string, 0, len(excluded)+len(matched))
	exclude = append(exclude, excluded...)
	for _, b := range matched {
		exclude = append(exclude, b.ID)
	}

	popular, err := e.store.ListPopularBooks(ctx, exclude, limit-len(matched))
	if err != nil {
		return nil, err
	}

	return append(matched, popular...), nil
}
