package progress

import (
	"context"
	"math"

	"github.com/pmiaudio/audiobook-api/internal/database"
	"github.com/pmiaudio/audiobook-api/internal/logging"
	"github.com/pmiaudio/audiobook-api/internal/metrics"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

const (
	completionThreshold = 0.9

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Store is the subset of the repository the tracker needs
type Store interface {
	CreateProgressIfAbsent(ctx context.Context, userID, bookID string) (bool, error)
	GetProgress(ctx context.Context, userID, bookID string) (*models.Progress, error)
	UpdateProgress(ctx context.Context, userID, bookID string, upd database.ProgressUpdate) (*models.Progress, error)
	MarkCompleted(ctx context.Context, userID, bookID string) (bool, error)
	GetBookPlayback(ctx context.Context, id string) (*database.BookPlayback, error)
	IncrementTotalPlays(ctx context.Context, id string) error
	AddBookmark(ctx context.Context, userID, bookID string, position float64, note string) (*models.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, bookmarkID string) error
	Library(ctx context.Context, userID string, filter database.LibraryFilter, limit, offset int) ([]models.LibraryEntry, int, error)
	ListeningTotals(ctx context.Context, userID string) (total, completed, inProgress int, playedSeconds float64, err error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Tracker owns playback-progress state: creation on first open, partial
// updates and the completion transition.
type Tracker struct {
	store  Store
	logger *logging.Logger
}

// NewTracker creates the progress tracker
func NewTracker(store Store, logger *logging.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// GetOrCreate returns the progress record for the pair, creating the
// default record on first open. A creation counts as a play.
func (t *Tracker) GetOrCreate(ctx context.Context, userID, bookID string) (*models.Progress, error) {
	// Surface NotFound for missing books before touching progress
	if _, err := t.store.GetBookPlayback(ctx, bookID); err != nil {
		return nil, err
	}

	created, err := t.store.CreateProgressIfAbsent(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	if created {
		metrics.RecordPlay()
		if err := t.store.IncrementTotalPlays(ctx, bookID); err != nil {
			t.logger.WithError(err).WithBookID(bookID).Warn("Failed to count play")
		}
	}

	return t.store.GetProgress(ctx, userID, bookID)
}

// Get returns the progress record without creating one
func (t *Tracker) Get(ctx context.Context, userID, bookID string) (*models.Progress, error) {
	return t.store.GetProgress(ctx, userID, bookID)
}

// Update applies the present fields and runs completion detection on
// the updated state. Returns NotFound when no record exists.
func (t *Tracker) Update(ctx context.Context, userID, bookID string, upd database.ProgressUpdate) (*models.Progress, error) {
	progress, err := t.store.UpdateProgress(ctx, userID, bookID, upd)
	if err != nil {
		return nil, err
	}

	if progress.IsCompleted {
		return progress, nil
	}

	playback, err := t.store.GetBookPlayback(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if !reachedEnd(progress, playback) {
		return progress, nil
	}

	transitioned, err := t.store.MarkCompleted(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if transitioned {
		metrics.RecordCompletion()
		return t.store.GetProgress(ctx, userID, bookID)
	}

	return progress, nil
}

// reachedEnd reports whether the position is within the completion
// threshold of the end of the last chapter. Books without a chapter
// list are treated as one chapter spanning the whole duration.
func reachedEnd(p *models.Progress, pb *database.BookPlayback) bool {
	lastChapter := 0
	if n := len(pb.ChapterDurations); n > 0 {
		lastChapter = n - 1
	}
	if p.CurrentChapter != lastChapter {
		return false
	}

	var durationSeconds float64
	if p.CurrentChapter >= 0 && p.CurrentChapter < len(pb.ChapterDurations) {
		durationSeconds = pb.ChapterDurations[p.CurrentChapter] * 60
	} else {
		durationSeconds = float64(pb.Duration) * 60
	}

	return p.CurrentPosition >= completionThreshold*durationSeconds
}

// AddBookmark attaches a bookmark to the pair's progress record
func (t *Tracker) AddBookmark(ctx context.Context, userID, bookID string, position float64, note string) (*models.Bookmark, error) {
	return t.store.AddBookmark(ctx, userID, bookID, position, note)
}

// DeleteBookmark removes a bookmark owned by the user
func (t *Tracker) DeleteBookmark(ctx context.Context, userID, bookmarkID string) error {
	return t.store.DeleteBookmark(ctx, userID, bookmarkID)
}

// Library returns a page of the user's library with its envelope
func (t *Tracker) Library(ctx context.Context, userID string, page, limit int, filter database.LibraryFilter) ([]models.LibraryEntry, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	entries, total, err := t.store.Library(ctx, userID, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}

	return entries, models.Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

// Stats aggregates the user's listening totals with their profile blocks
func (t *Tracker) Stats(ctx context.Context, userID string) (*models.ListeningStats, error) {
	user, err := t.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, completed, inProgress, playedSeconds, err := t.store.ListeningTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.ListeningStats{
		TotalBooks:         total,
		CompletedBooks:     completed,
		InProgressBooks:    inProgress,
		TotalListeningTime: int(math.Round(playedSeconds / 60)),
		UserStats:          user.Stats,
		Preferences:        user.Preferences,
		Subscription:       user.Subscription,
	}, nil
}
