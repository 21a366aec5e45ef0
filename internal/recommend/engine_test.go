package recommend

import (
	"context"
	"testing"

	"github.com/pmiaudio/audiobook-api/internal/database"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

type fakeStore struct {
	user     *models.User
	listened []string
	byGenre  []*models.Book
	popular  []*models.Book

	genreExcludes   []string
	popularExcludes []string
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, database.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeStore) ListListenedBookIDs(ctx context.Context, userID string) ([]string, error) {
	return f.listened, nil
}

func (f *fakeStore) ListBooksByGenres(ctx context.Context, genreIDs, excludeIDs []string, limit int) ([]*models.Book, error) {
	f.genreExcludes = excludeIDs
	books := excludeBooks(f.byGenre, excludeIDs)
	if len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

func (f *fakeStore) ListPopularBooks(ctx context.Context, excludeIDs []string, limit int) ([]*models.Book, error) {
	f.popularExcludes = excludeIDs
	books := excludeBooks(f.popular, excludeIDs)
	if len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

func excludeBooks(books []*models.Book, excludeIDs []string) []*models.Book {
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var out []*models.Book
	for _, b := range books {
		if !excluded[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

func book(id string) *models.Book {
	return &models.Book{ID: id, Title: id, IsActive: true}
}

func TestEngine_GenreMatches(t *testing.T) {
	store := &fakeStore{
		user: &models.User{
			ID:          "user-1",
			Preferences: models.Preferences{PreferredGenres: []string{"genre-1"}},
		},
		byGenre: []*models.Book{book("b1"), book("b2"), book("b3")},
	}

	engine := NewEngine(store)

	books, err := engine.Recommend(context.Background(), "user-1", 3)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if len(books) != 3 {
		t.Errorf("Expected 3 recommendations, got %d", len(books))
	}
}

func TestEngine_ExcludesLibrary(t *testing.T) {
	store := &fakeStore{
		user: &models.User{
			ID:          "user-1",
			Preferences: models.Preferences{PreferredGenres: []string{"genre-1"}},
		},
		listened: []string{"b1"},
		byGenre:  []*models.Book{book("b1"), book("b2")},
		popular:  []*models.Book{book("b1"), book("b4")},
	}

	engine := NewEngine(store)

	books, err := engine.Recommend(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	for _, b := range books {
		if b.ID == "b1" {
			t.Error("A book already in the library must never be recommended")
		}
	}
}

func TestEngine_PopularBackfill(t *testing.T) {
	store := &fakeStore{
		user: &models.User{
			ID:          "user-1",
			Preferences: models.Preferences{PreferredGenres: []string{"genre-1"}},
		},
		byGenre: []*models.Book{book("b1")},
		popular: []*models.Book{book("b1"), book("b2"), book("b3"), book("b4")},
	}

	engine := NewEngine(store)

	books, err := engine.Recommend(context.Background(), "user-1", 3)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if len(books) != 3 {
		t.Fatalf("Expected 3 recommendations, got %d", len(books))
	}

	// Genre matches come first, then the backfill without duplicates
	if books[0].ID != "b1" {
		t.Errorf("Genre match should lead, got %s", books[0].ID)
	}

	seen := make(map[string]bool)
	for _, b := range books {
		if seen[b.ID] {
			t.Errorf("Duplicate recommendation %s", b.ID)
		}
		seen[b.ID] = true
	}

	// The backfill query must have been told about the genre matches
	found := false
	for _, id := range store.popularExcludes {
		if id == "b1" {
			found = true
		}
	}
	if !found {
		t.Error("Backfill should exclude already-selected books")
	}
}

func TestEngine_NoPreferredGenres(t *testing.T) {
	store := &fakeStore{
		user:    &models.User{ID: "user-1"},
		popular: []*models.Book{book("b1"), book("b2")},
	}

	engine := NewEngine(store)

	books, err := engine.Recommend(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	// No genre preferences: straight to popular titles
	if len(books) != 2 {
		t.Errorf("Expected 2 popular recommendations, got %d", len(books))
	}
}

func TestEngine_MissingUser(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	if _, err := engine.Recommend(context.Background(), "missing", 5); err == nil {
		t.Error("Recommend for a missing user should fail")
	}
}

func TestEngine_DefaultLimit(t *testing.T) {
	var popular []*models.Book
	for i := 0; i < 20; i++ {
		popular = append(popular, book(string(rune('a'+i))))
	}
	store := &fakeStore{
		user:    &models.User{ID: "user-1"},
		popular: popular,
	}

	engine := NewEngine(store)

	books, err := engine.Recommend(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if len(books) != DefaultLimit {
		t.Errorf("Expected the default limit of %d, got %d", DefaultLimit, len(books))
	}
}
