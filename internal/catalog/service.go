package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pmiaudio/audiobook-api/internal/cache"
	"github.com/pmiaudio/audiobook-api/internal/database"
	"github.com/pmiaudio/audiobook-api/internal/logging"
	"github.com/pmiaudio/audiobook-api/internal/metrics"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

var ErrTitleRequired = errors.New("title is required")

const (
	DefaultShelfLimit = 10

	bookCacheTTL  = 10 * time.Minute
	shelfCacheTTL = 5 * time.Minute
)

// Store is the subset of the repository the catalog needs
type Store interface {
	CreateBook(ctx context.Context, book *models.Book, authorIDs, genreIDs []string) error
	UpdateBook(ctx context.Context, id string, upd database.BookUpdate) error
	DeleteBook(ctx context.Context, id string) error
	GetBook(ctx context.Context, id string) (*models.Book, error)
	ListActiveBooks(ctx context.Context) ([]*models.Book, error)
	FeaturedBooks(ctx context.Context, limit int) ([]*models.Book, error)
	NewReleases(ctx context.Context, limit int) ([]*models.Book, error)
	UpsertAuthor(ctx context.Context, name string) (string, error)
	UpsertGenre(ctx context.Context, name string) (string, error)
	ListGenres(ctx context.Context) ([]models.Genre, error)
}

// BookInput carries a create request. Authors and Genres accept either a
// list or a single comma-separated string, matching what clients send.
type BookInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Authors     []string         `json:"authors"`
	Genres      []string         `json:"genres"`
	Narrator    string           `json:"narrator"`
	Duration    int              `json:"duration"`
	AudioFile   string           `json:"audioFile"`
	CoverImage  string           `json:"coverImage"`
	Chapters    []models.Chapter `json:"chapters"`
	Language    string           `json:"language"`
	Rating      float64          `json:"rating"`
	ReleaseDate *time.Time       `json:"releaseDate"`
}

// BookPatch carries a partial update; nil fields are left unchanged
type BookPatch struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Authors     *[]string         `json:"authors"`
	Genres      *[]string         `json:"genres"`
	Narrator    *string           `json:"narrator"`
	Duration    *int              `json:"duration"`
	AudioFile   *string           `json:"audioFile"`
	CoverImage  *string           `json:"coverImage"`
	Chapters    *[]models.Chapter `json:"chapters"`
	Language    *string           `json:"language"`
	Rating      *float64          `json:"rating"`
	IsActive    *bool             `json:"isActive"`
	ReleaseDate *time.Time        `json:"releaseDate"`
}

// Service implements catalog reads and admin writes with a Redis layer
// over the hot read paths.
type Service struct {
	store  Store
	cache  *cache.Cache
	logger *logging.Logger
}

// NewService creates the catalog service. cache may be nil, in which
// case every read goes to the database.
func NewService(store Store, c *cache.Cache, logger *logging.Logger) *Service {
	return &Service{store: store, cache: c, logger: logger}
}

// SplitNames normalizes a taxonomy name list: each element may itself be
// a comma-separated string; results are trimmed with empties dropped,
// input order preserved.
func SplitNames(raw []string) []string {
	var names []string
	for _, field := range raw {
		for _, name := range strings.Split(field, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// ResolveAuthorNames upserts author names and returns their IDs in input order
func (s *Service) ResolveAuthorNames(ctx context.Context, raw []string) ([]string, error) {
	var ids []string
	for _, name := range SplitNames(raw) {
		id, err := s.store.UpsertAuthor(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ResolveGenreNames upserts genre names and returns their IDs in input order
func (s *Service) ResolveGenreNames(ctx context.Context, raw []string) ([]string, error) {
	var ids []string
	for _, name := range SplitNames(raw) {
		id, err := s.store.UpsertGenre(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CreateBook validates and stores a new book
func (s *Service) CreateBook(ctx context.Context, input BookInput) (*models.Book, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	authorIDs, err := s.ResolveAuthorNames(ctx, input.Authors)
	if err != nil {
		return nil, err
	}
	genreIDs, err := s.ResolveGenreNames(ctx, input.Genres)
	if err != nil {
		return nil, err
	}

	chapters := input.Chapters
	// Books ingested with a single flat audio file still get a chapter
	// list, so the player has one code path.
	if len(chapters) == 0 && input.AudioFile != "" {
		chapters = []models.Chapter{{
			Title:     "Chapter 1",
			AudioFile: input.AudioFile,
			Duration:  float64(input.Duration),
		}}
	}

	duration := input.Duration
	if duration == 0 {
		for _, ch := range chapters {
			duration += int(ch.Duration)
		}
	}

	book := &models.Book{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Narrator:    input.Narrator,
		Duration:    duration,
		AudioFile:   input.AudioFile,
		CoverImage:  input.CoverImage,
		Chapters:    chapters,
		Language:    input.Language,
		Rating:      input.Rating,
		ReleaseDate: input.ReleaseDate,
	}

	if err := s.store.CreateBook(ctx, book, authorIDs, genreIDs); err != nil {
		return nil, err
	}

	s.invalidate(ctx, book.ID)

	return s.store.GetBook(ctx, book.ID)
}

// UpdateBook applies a partial update and returns the refreshed book
func (s *Service) UpdateBook(ctx context.Context, id string, patch BookPatch) (*models.Book, error) {
	upd := database.BookUpdate{
		Title:       patch.Title,
		Description: patch.Description,
		Narrator:    patch.Narrator,
		Duration:    patch.Duration,
		AudioFile:   patch.AudioFile,
		CoverImage:  patch.CoverImage,
		Rating:      patch.Rating,
		IsActive:    patch.IsActive,
		ReleaseDate: patch.ReleaseDate,
		Language:    patch.Language,
		Chapters:    patch.Chapters,
	}

	if patch.Authors != nil {
		ids, err := s.ResolveAuthorNames(ctx, *patch.Authors)
		if err != nil {
			return nil, err
		}
		upd.AuthorIDs = &ids
	}
	if patch.Genres != nil {
		ids, err := s.ResolveGenreNames(ctx, *patch.Genres)
		if err != nil {
			return nil, err
		}
		upd.GenreIDs = &ids
	}

	if err := s.store.UpdateBook(ctx, id, upd); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)

	return s.store.GetBook(ctx, id)
}

// DeleteBook removes a book and its join rows
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	if err := s.store.DeleteBook(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

// GetBook returns a book with authors, genres and chapters attached
func (s *Service) GetBook(ctx context.Context, id string) (*models.Book, error) {
	if s.cache != nil {
		if book, err := s.cache.GetBook(ctx, id); err == nil && book != nil {
			metrics.RecordCacheAccess("book", true)
			return book, nil
		}
		metrics.RecordCacheAccess("book", false)
	}

	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetBook(ctx, book, bookCacheTTL); err != nil {
			s.logger.WithError(err).WithBookID(id).Warn("Failed to cache book")
		}
	}

	return book, nil
}

// ListBooks returns the active catalog, newest first
func (s *Service) ListBooks(ctx context.Context) ([]*models.Book, error) {
	return s.store.ListActiveBooks(ctx)
}

// Featured returns the top-rated shelf
func (s *Service) Featured(ctx context.Context, limit int) ([]*models.Book, error) {
	if limit <= 0 {
		limit = DefaultShelfLimit
	}
	return s.shelf(ctx, "featured", limit, s.store.FeaturedBooks)
}

// NewReleases returns the recent-release shelf
func (s *Service) NewReleases(ctx context.Context, limit int) ([]*models.Book, error) {
	if limit <= 0 {
		limit = DefaultShelfLimit
	}
	return s.shelf(ctx, "new-releases", limit, s.store.NewReleases)
}

// ListGenres returns all genres
func (s *Service) ListGenres(ctx context.Context) ([]models.Genre, error) {
	return s.store.ListGenres(ctx)
}

func (s *Service) shelf(ctx context.Context, name string, limit int, load func(context.Context, int) ([]*models.Book, error)) ([]*models.Book, error) {
	// Only the default-limit listing is cached; odd limits pass through
	cacheable := s.cache != nil && limit == DefaultShelfLimit

	if cacheable {
		if books, err := s.cache.GetShelf(ctx, name); err == nil && books != nil {
			metrics.RecordCacheAccess("shelf", true)
			return books, nil
		}
		metrics.RecordCacheAccess("shelf", false)
	}

	books, err := load(ctx, limit)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.SetShelf(ctx, name, books, shelfCacheTTL); err != nil {
			s.logger.WithError(err).WithField("shelf", name).Warn("Failed to cache shelf")
		}
	}

	return books, nil
}

func (s *Service) invalidate(ctx context.Context, bookID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteBook(ctx, bookID); err != nil {
		s.logger.WithError(err).WithBookID(bookID).Warn("Failed to invalidate book cache")
	}
	if err := s.cache.InvalidateShelves(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate shelf cache")
	}
}
