package progress

import (
	"context"
	"testing"
	"time"

	"github.com/pmiaudio/audiobook-api/internal/database"
	"github.com/pmiaudio/audiobook-api/internal/logging"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

type pairKey struct {
	userID string
	bookID string
}

type fakeStore struct {
	progress  map[pairKey]*models.Progress
	playbacks map[string]*database.BookPlayback
	users     map[string]*models.User
	plays     map[string]int
	completed map[string]int // per user
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		progress:  make(map[pairKey]*models.Progress),
		playbacks: make(map[string]*database.BookPlayback),
		users:     make(map[string]*models.User),
		plays:     make(map[string]int),
		completed: make(map[string]int),
	}
}

func (f *fakeStore) CreateProgressIfAbsent(ctx context.Context, userID, bookID string) (bool, error) {
	key := pairKey{userID, bookID}
	if _, ok := f.progress[key]; ok {
		return false, nil
	}
	f.progress[key] = &models.Progress{
		ID:            userID + ":" + bookID,
		UserID:        userID,
		BookID:        bookID,
		PlaybackSpeed: 1.0,
		LastPlayedAt:  time.Now(),
	}
	return true, nil
}

func (f *fakeStore) GetProgress(ctx context.Context, userID, bookID string) (*models.Progress, error) {
	if p, ok := f.progress[pairKey{userID, bookID}]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) UpdateProgress(ctx context.Context, userID, bookID string, upd database.ProgressUpdate) (*models.Progress, error) {
	p, ok := f.progress[pairKey{userID, bookID}]
	if !ok {
		return nil, database.ErrNotFound
	}
	if upd.CurrentChapter != nil {
		p.CurrentChapter = *upd.CurrentChapter
	}
	if upd.CurrentPosition != nil {
		p.CurrentPosition = *upd.CurrentPosition
	}
	if upd.TotalPlayed != nil {
		p.TotalPlayed = *upd.TotalPlayed
	}
	if upd.PlaybackSpeed != nil {
		p.PlaybackSpeed = *upd.PlaybackSpeed
	}
	p.LastPlayedAt = time.Now()
	copied := *p
	return &copied, nil
}

func (f *fakeStore) MarkCompleted(ctx context.Context, userID, bookID string) (bool, error) {
	p, ok := f.progress[pairKey{userID, bookID}]
	if !ok || p.IsCompleted {
		return false, nil
	}
	now := time.Now()
	p.IsCompleted = true
	p.CompletionDate = &now
	f.completed[userID]++
	return true, nil
}

func (f *fakeStore) GetBookPlayback(ctx context.Context, id string) (*database.BookPlayback, error) {
	if pb, ok := f.playbacks[id]; ok {
		return pb, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) IncrementTotalPlays(ctx context.Context, id string) error {
	f.plays[id]++
	return nil
}

func (f *fakeStore) AddBookmark(ctx context.Context, userID, bookID string, position float64, note string) (*models.Bookmark, error) {
	if _, ok := f.progress[pairKey{userID, bookID}]; !ok {
		return nil, database.ErrNotFound
	}
	return &models.Bookmark{ID: "bm-1", Position: position, Note: note, CreatedAt: time.Now()}, nil
}

func (f *fakeStore) DeleteBookmark(ctx context.Context, userID, bookmarkID string) error {
	return nil
}

func (f *fakeStore) Library(ctx context.Context, userID string, filter database.LibraryFilter, limit, offset int) ([]models.LibraryEntry, int, error) {
	var all []models.LibraryEntry
	for key, p := range f.progress {
		if key.userID != userID {
			continue
		}
		switch filter {
		case database.LibraryCompleted:
			if !p.IsCompleted {
				continue
			}
		case database.LibraryInProgress:
			if p.IsCompleted || p.CurrentPosition == 0 {
				continue
			}
		}
		all = append(all, models.LibraryEntry{Progress: *p, Book: models.BookSummary{ID: key.bookID}})
	}

	total := len(all)
	if offset > total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeStore) ListeningTotals(ctx context.Context, userID string) (total, completed, inProgress int, playedSeconds float64, err error) {
	for key, p := range f.progress {
		if key.userID != userID {
			continue
		}
		total++
		if p.IsCompleted {
			completed++
		} else if p.CurrentPosition > 0 {
			inProgress++
		}
		playedSeconds += p.TotalPlayed
	}
	return
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func testTracker(t *testing.T, store Store) *Tracker {
	t.Helper()
	logger, err := logging.NewDefaultLogger()
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return NewTracker(store, logger)
}

func ptrInt(v int) *int           { return &v }
func ptrFloat(v float64) *float64 { return &v }

func TestTracker_GetOrCreate(t *testing.T) {
	store := newFakeStore()
	store.playbacks["book-1"] = &database.BookPlayback{Duration: 120}
	tracker := testTracker(t, store)

	ctx := context.Background()

	p, err := tracker.GetOrCreate(ctx, "user-1", "book-1")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if p.CurrentChapter != 0 || p.CurrentPosition != 0 || p.IsCompleted {
		t.Errorf("New progress should start at defaults, got %+v", p)
	}

	if store.plays["book-1"] != 1 {
		t.Errorf("First open should count one play, got %d", store.plays["book-1"])
	}

	// Second open is idempotent and does not count another play
	if _, err := tracker.GetOrCreate(ctx, "user-1", "book-1"); err != nil {
		t.Fatalf("Second GetOrCreate failed: %v", err)
	}

	if store.plays["book-1"] != 1 {
		t.Errorf("Repeated open should not count another play, got %d", store.plays["book-1"])
	}
}

func TestTracker_GetOrCreate_MissingBook(t *testing.T) {
	tracker := testTracker(t, newFakeStore())

	if _, err := tracker.GetOrCreate(context.Background(), "user-1", "missing"); err == nil {
		t.Error("GetOrCreate should fail for a missing book")
	}
}

func TestTracker_Update_NoAutoCreate(t *testing.T) {
	store := newFakeStore()
	store.playbacks["book-1"] = &database.BookPlayback{Duration: 120}
	tracker := testTracker(t, store)

	_, err := tracker.Update(context.Background(), "user-1", "book-1",
		database.ProgressUpdate{CurrentPosition: ptrFloat(10)})
	if err != database.ErrNotFound {
		t.Errorf("Update without a record should return NotFound, got %v", err)
	}
}

func TestTracker_Completion_LastChapter(t *testing.T) {
	store := newFakeStore()
	// 3 chapters, last one 40 minutes = 2400 seconds
	store.playbacks["book-1"] = &database.BookPlayback{
		Duration:         120,
		ChapterDurations: []float64{40, 40, 40},
	}
	tracker := testTracker(t, store)

	ctx := context.Background()

	if _, err := tracker.GetOrCreate(ctx, "user-1", "book-1"); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	// Deep into chapter 1: not complete
	p, err := tracker.Update(ctx, "user-1", "book-1",
		database.ProgressUpdate{CurrentChapter: ptrInt(1), CurrentPosition: ptrFloat(2300)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if p.IsCompleted {
		t.Error("Progress on a middle chapter must not complete")
	}

	// Last chapter but before the 90% threshold (0.9 * 2400 = 2160)
	p, err = tracker.Update(ctx, "user-1", "book-1",
		database.ProgressUpdate{CurrentChapter: ptrInt(2), CurrentPosition: ptrFloat(2000)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if p.IsCompleted {
		t.Error("Position below the threshold must not complete")
	}

	// Crossing the threshold on the last chapter completes
	p, err = tracker.Update(ctx, "user-1", "book-1",
		database.ProgressUpdate{CurrentPosition: ptrFloat(2200)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !p.IsCompleted {
		t.Fatal("Crossing the threshold on the last chapter should complete")
	}
	if p.CompletionDate == nil {
		t.Error("Completion date should be set")
	}

	if store.completed["user-1"] != 1 {
		t.Errorf("Completion should increment the counter once, got %d", store.completed["user-1"])
	}

	// Further updates never double count
	if _, err := tracker.Update(ctx, "user-1", "book-1",
		database.ProgressUpdate{CurrentPosition: ptrFloat(2350)}); err != nil {
		t.Fatalf("Update after completion failed: %v", err)
	}

	if store.completed["user-1"] != 1 {
		t.Errorf("Completed book must not count twice, got %d", store.completed["user-1"])
	}
}

func TestTracker_Completion_NoChapters(t *testing.T) {
	store := newFakeStore()
	// No chapter list: the whole book is the last chapter, 100 min = 6000s
	store.playbacks["book-1"] = &database.BookPlayback{Duration: 100}
	tracker := testTracker(t, store)

	ctx := context.Background()

	if _, err := tracker.GetOrCreate(ctx, "user-1", "book-1"); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	p, err := tracker.Update(ctx, "user-1", "book-1",
		database.ProgressUpdate{CurrentPosition: ptrFloat(5400)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if !p.IsCompleted {
		t.Error("90% of the book duration should complete a chapterless book")
	}
}

func TestTracker_Library_Pagination(t *testing.T) {
	store := newFakeStore()
	tracker := testTracker(t, store)

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		bookID := string(rune('a' + i))
		store.playbacks[bookID] = &database.BookPlayback{Duration: 60}
		if _, err := tracker.GetOrCreate(ctx, "user-1", bookID); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
	}

	entries, pagination, err := tracker.Library(ctx, "user-1", 1, 2, database.LibraryAll)
	if err != nil {
		t.Fatalf("Library failed: %v", err)
	}

	if len(entries) != 2 {
		t.Errorf("Expected 2 entries on the first page, got %d", len(entries))
	}

	if pagination.Total != 5 || pagination.Pages != 3 {
		t.Errorf("Expected total 5 over 3 pages, got %+v", pagination)
	}

	// Out-of-range page returns an empty list, not an error
	entries, pagination, err = tracker.Library(ctx, "user-1", 9, 2, database.LibraryAll)
	if err != nil {
		t.Fatalf("Library failed: %v", err)
	}
	if len(entries) != 0 || pagination.Total != 5 {
		t.Errorf("Out-of-range page should be empty with the real total, got %d/%+v", len(entries), pagination)
	}
}

func TestTracker_Stats(t *testing.T) {
	store := newFakeStore()
	store.users["user-1"] = &models.User{
		ID:    "user-1",
		Stats: models.UserStats{BooksCompleted: 1},
		Preferences: models.Preferences{
			PlaybackSpeed: 1.5,
		},
		Subscription: models.Subscription{Type: models.SubscriptionFree},
	}
	store.playbacks["book-1"] = &database.BookPlayback{Duration: 60}
	store.playbacks["book-2"] = &database.BookPlayback{Duration: 60}
	tracker := testTracker(t, store)

	ctx := context.Background()

	if _, err := tracker.GetOrCreate(ctx, "user-1", "book-1"); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if _, err := tracker.GetOrCreate(ctx, "user-1", "book-2"); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	// 90 seconds listened on book-1, in progress
	if _, err := tracker.Update(ctx, "user-1", "book-1",
		database.ProgressUpdate{CurrentPosition: ptrFloat(90), TotalPlayed: ptrFloat(90)}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := tracker.Stats(ctx, "user-1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.TotalBooks != 2 || stats.InProgressBooks != 1 || stats.CompletedBooks != 0 {
		t.Errorf("Unexpected totals: %+v", stats)
	}

	// 90 seconds rounds to 2 minutes
	if stats.TotalListeningTime != 2 {
		t.Errorf("Expected 2 minutes listening time, got %d", stats.TotalListeningTime)
	}

	if stats.Preferences.PlaybackSpeed != 1.5 {
		t.Errorf("Preferences block should be attached, got %+v", stats.Preferences)
	}

	// Missing user
	if _, err := tracker.Stats(ctx, "missing"); err == nil {
		t.Error("Stats for a missing user should fail")
	}
}
