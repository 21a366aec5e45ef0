package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

const progressColumns = `id, user_id, book_id, current_chapter, current_position, total_played,
	playback_speed, is_completed, completion_date, last_played_at, created_at, updated_at`

// ProgressUpdate is the explicit optional-field update record for a progress
// row. A nil field means "no change"; last_played_at always refreshes.
type ProgressUpdate struct {
	CurrentChapter  *int
	CurrentPosition *float64
	TotalPlayed     *float64
	PlaybackSpeed   *float64
}

func scanProgress(row pgx.Row) (*models.Progress, error) {
	var p models.Progress
	err := row.Scan(
		&p.ID, &p.UserID, &p.BookID, &p.CurrentChapter, &p.CurrentPosition, &p.TotalPlayed,
		&p.PlaybackSpeed, &p.IsCompleted, &p.CompletionDate, &p.LastPlayedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProgress retrieves the progress record for a (user, book) pair
func (r *Repository) GetProgress(ctx context.Context, userID, bookID string) (*models.Progress, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_progress WHERE user_id = $1 AND book_id = $2`, progressColumns)

	progress, err := scanProgress(r.db.Pool.QueryRow(ctx, query, userID, bookID))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("progress for book %s: %w", bookID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	progress.Bookmarks, err = r.listBookmarks(ctx, progress.ID)
	if err != nil {
		return nil, err
	}

	return progress, nil
}

// CreateProgressIfAbsent inserts a default progress record for the pair.
// The unique (user_id, book_id) index makes this idempotent under
// concurrency: the losing insert is a no-op and the caller re-reads.
// Returns whether a new record was created.
func (r *Repository) CreateProgressIfAbsent(ctx context.Context, userID, bookID string) (bool, error) {
	query := `
		INSERT INTO user_progress (id, user_id, book_id, last_played_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, book_id) DO NOTHING
	`

	tag, err := r.db.Pool.Exec(ctx, query, uuid.New().String(), userID, bookID)
	if err != nil {
		return false, fmt.Errorf("failed to create progress: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// UpdateProgress applies the present fields and refreshes last_played_at.
// Returns ErrNotFound when no record exists; this path never auto-creates.
func (r *Repository) UpdateProgress(ctx context.Context, userID, bookID string, upd ProgressUpdate) (*models.Progress, error) {
	set := []string{"last_played_at = now()", "updated_at = now()"}
	args := []interface{}{userID, bookID}

	add := func(col string, val interface{}) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.CurrentChapter != nil {
		add("current_chapter", *upd.CurrentChapter)
	}
	if upd.CurrentPosition != nil {
		add("current_position", *upd.CurrentPosition)
	}
	if upd.TotalPlayed != nil {
		add("total_played", *upd.TotalPlayed)
	}
	if upd.PlaybackSpeed != nil {
		add("playback_speed", *upd.PlaybackSpeed)
	}

	query := fmt.Sprintf(`
		UPDATE user_progress SET %s
		WHERE user_id = $1 AND book_id = $2
		RETURNING %s`, strings.Join(set, ", "), progressColumns)

	progress, err := scanProgress(r.db.Pool.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("progress for book %s: %w", bookID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}

	return progress, nil
}

// MarkCompleted sets the completed flag with a compare-and-set guard and, only
// when this call performed the transition, increments the user's completed
// counter in the same transaction. Returns whether the transition happened,
// so retried or duplicate requests never double count.
func (r *Repository) MarkCompleted(ctx context.Context, userID, bookID string) (bool, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE user_progress
		SET is_completed = TRUE, completion_date = now(), updated_at = now()
		WHERE user_id = $1 AND book_id = $2 AND is_completed = FALSE`,
		userID, bookID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already completed (or no record); nothing to count
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET books_completed = books_completed + 1, updated_at = now() WHERE id = $1`,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to increment completed counter: %w", err)
	}

	return true, tx.Commit(ctx)
}

// ListListenedBookIDs returns every book the user has a progress record for
func (r *Repository) ListListenedBookIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT book_id FROM user_progress WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list listened books: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan book id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// LibraryFilter narrows library listings by completion state
type LibraryFilter string

const (
	LibraryAll        LibraryFilter = ""
	LibraryCompleted  LibraryFilter = "completed"
	LibraryInProgress LibraryFilter = "in-progress"
)

// Library returns the user's progress records joined with book summaries,
// most recently played first, plus the unpaginated total.
func (r *Repository) Library(ctx context.Context, userID string, filter LibraryFilter, limit, offset int) ([]models.LibraryEntry, int, error) {
	where := "p.user_id = $1"
	switch filter {
	case LibraryCompleted:
		where += " AND p.is_completed = TRUE"
	case LibraryInProgress:
		where += " AND p.is_completed = FALSE AND p.current_position > 0"
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM user_progress p WHERE %s`, where)
	if err := r.db.Pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count library: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s,
		       b.id, b.title, b.cover_image, b.duration, b.narrator, b.rating
		FROM user_progress p
		JOIN books b ON b.id = p.book_id
		WHERE %s
		ORDER BY p.last_played_at DESC
		LIMIT $2 OFFSET $3`, prefixColumns("p", progressColumns), where)

	rows, err := r.db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list library: %w", err)
	}
	defer rows.Close()

	var entries []models.LibraryEntry
	bookIDs := []string{}
	for rows.Next() {
		var e models.LibraryEntry
		err := rows.Scan(
			&e.ID, &e.UserID, &e.BookID, &e.CurrentChapter, &e.CurrentPosition, &e.TotalPlayed,
			&e.PlaybackSpeed, &e.IsCompleted, &e.CompletionDate, &e.LastPlayedAt, &e.CreatedAt, &e.UpdatedAt,
			&e.Book.ID, &e.Book.Title, &e.Book.CoverImage, &e.Book.Duration, &e.Book.Narrator, &e.Book.Rating,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan library entry: %w", err)
		}
		entries = append(entries, e)
		bookIDs = append(bookIDs, e.Book.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadLibraryAuthors(ctx, entries, bookIDs); err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *Repository) loadLibraryAuthors(ctx context.Context, entries []models.LibraryEntry, bookIDs []string) error {
	if len(entries) == 0 {
		return nil
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT ba.book_id, a.name
		FROM book_authors ba
		JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id = ANY($1)
		ORDER BY ba.position ASC`, bookIDs)
	if err != nil {
		return fmt.Errorf("failed to load library authors: %w", err)
	}
	defer rows.Close()

	names := make(map[string][]string)
	for rows.Next() {
		var bookID, name string
		if err := rows.Scan(&bookID, &name); err != nil {
			return fmt.Errorf("failed to scan author name: %w", err)
		}
		names[bookID] = append(names[bookID], name)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range entries {
		entries[i].Book.Authors = names[entries[i].Book.ID]
	}
	return nil
}

// ListeningTotals aggregates the user's progress rows for the stats endpoint
func (r *Repository) ListeningTotals(ctx context.Context, userID string) (total, completed, inProgress int, playedSeconds float64, err error) {
	query := `
		SELECT count(*),
		       count(*) FILTER (WHERE is_completed),
		       count(*) FILTER (WHERE NOT is_completed AND current_position > 0),
		       COALESCE(sum(total_played), 0)
		FROM user_progress
		WHERE user_id = $1
	`

	err = r.db.Pool.QueryRow(ctx, query, userID).Scan(&total, &completed, &inProgress, &playedSeconds)
	if err != nil {
		err = fmt.Errorf("failed to aggregate listening totals: %w", err)
	}
	return
}

// AddBookmark attaches a bookmark to the pair's progress record
func (r *Repository) AddBookmark(ctx context.Context, userID, bookID string, position float64, note string) (*models.Bookmark, error) {
	query := `
		INSERT INTO bookmarks (id, progress_id, position, note)
		SELECT $1, id, $2, $3 FROM user_progress WHERE user_id = $4 AND book_id = $5
		RETURNING id, position, note, created_at
	`

	var b models.Bookmark
	err := r.db.Pool.QueryRow(ctx, query, uuid.New().String(), position, note, userID, bookID).
		Scan(&b.ID, &b.Position, &b.Note, &b.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("progress for book %s: %w", bookID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add bookmark: %w", err)
	}

	return &b, nil
}

// DeleteBookmark removes a bookmark owned by the user
func (r *Repository) DeleteBookmark(ctx context.Context, userID, bookmarkID string) error {
	query := `
		DELETE FROM bookmarks
		WHERE id = $1 AND progress_id IN (SELECT id FROM user_progress WHERE user_id = $2)
	`

	tag, err := r.db.Pool.Exec(ctx, query, bookmarkID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bookmark %s: %w", bookmarkID, ErrNotFound)
	}

	return nil
}

func (r *Repository) listBookmarks(ctx context.Context, progressID string) ([]models.Bookmark, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, position, note, created_at FROM bookmarks WHERE progress_id = $1 ORDER BY created_at ASC`,
		progressID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := []models.Bookmark{}
	for rows.Next() {
		var b models.Bookmark
		if err := rows.Scan(&b.ID, &b.Position, &b.Note, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}

	return bookmarks, rows.Err()
}
