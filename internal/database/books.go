package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

const bookColumns = `id, title, description, narrator, duration, audio_file, cover_image,
	rating, total_plays, is_active, release_date, language, created_at, updated_at`

// BookUpdate is the explicit optional-field update record for a book.
// A nil field means "no change".
type BookUpdate struct {
	Title       *string
	Description *string
	Narrator    *string
	Duration    *int
	AudioFile   *string
	CoverImage  *string
	Rating      *float64
	IsActive    *bool
	ReleaseDate *time.Time
	Language    *string
	AuthorIDs   *[]string
	GenreIDs    *[]string
	Chapters    *[]models.Chapter
}

func scanBook(row pgx.Row) (*models.Book, error) {
	var b models.Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Description, &b.Narrator, &b.Duration, &b.AudioFile, &b.CoverImage,
		&b.Rating, &b.TotalPlays, &b.IsActive, &b.ReleaseDate, &b.Language, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook inserts a book with its chapters and taxonomy references
func (r *Repository) CreateBook(ctx context.Context, book *models.Book, authorIDs, genreIDs []string) error {
	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	if book.Language == "" {
		book.Language = models.DefaultLanguage
	}
	book.IsActive = true

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO books (id, title, description, narrator, duration, audio_file, cover_image,
		                   rating, total_plays, is_active, release_date, language)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		book.ID, book.Title, book.Description, book.Narrator, book.Duration,
		book.AudioFile, book.CoverImage, book.Rating, book.TotalPlays,
		book.IsActive, book.ReleaseDate, book.Language,
	).Scan(&book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}

	if err := replaceChapters(ctx, tx, book.ID, book.Chapters); err != nil {
		return err
	}
	if err := replaceJoinRows(ctx, tx, "book_authors", "author_id", book.ID, authorIDs); err != nil {
		return err
	}
	if err := replaceJoinRows(ctx, tx, "book_genres", "genre_id", book.ID, genreIDs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateBook applies the present fields of upd and returns ErrNotFound when
// the book does not exist.
func (r *Repository) UpdateBook(ctx context.Context, id string, upd BookUpdate) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	set := []string{"updated_at = now()"}
	args := []interface{}{id}

	add := func(col string, val interface{}) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Narrator != nil {
		add("narrator", *upd.Narrator)
	}
	if upd.Duration != nil {
		add("duration", *upd.Duration)
	}
	if upd.AudioFile != nil {
		add("audio_file", *upd.AudioFile)
	}
	if upd.CoverImage != nil {
		add("cover_image", *upd.CoverImage)
	}
	if upd.Rating != nil {
		add("rating", *upd.Rating)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.ReleaseDate != nil {
		add("release_date", *upd.ReleaseDate)
	}
	if upd.Language != nil {
		add("language", *upd.Language)
	}

	query := fmt.Sprintf(`UPDATE books SET %s WHERE id = $1`, strings.Join(set, ", "))
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}

	if upd.Chapters != nil {
		if err := replaceChapters(ctx, tx, id, *upd.Chapters); err != nil {
			return err
		}
	}
	if upd.AuthorIDs != nil {
		if err := replaceJoinRows(ctx, tx, "book_authors", "author_id", id, *upd.AuthorIDs); err != nil {
			return err
		}
	}
	if upd.GenreIDs != nil {
		if err := replaceJoinRows(ctx, tx, "book_genres", "genre_id", id, *upd.GenreIDs); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// DeleteBook removes the book; join rows and chapters cascade
func (r *Repository) DeleteBook(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetBook retrieves a book with denormalized authors, genres and chapters
func (r *Repository) GetBook(ctx context.Context, id string) (*models.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = $1`, bookColumns)

	book, err := scanBook(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	if err := r.loadBookRelations(ctx, []*models.Book{book}); err != nil {
		return nil, err
	}

	return book, nil
}

// ListActiveBooks returns active books sorted newest first
func (r *Repository) ListActiveBooks(ctx context.Context) ([]*models.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE is_active = TRUE ORDER BY created_at DESC`, bookColumns)
	return r.queryBooks(ctx, query)
}

// FeaturedBooks returns active books ranked by rating then popularity
func (r *Repository) FeaturedBooks(ctx context.Context, limit int) ([]*models.Book, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM books
		WHERE is_active = TRUE
		ORDER BY rating DESC, total_plays DESC
		LIMIT $1`, bookColumns)
	return r.queryBooks(ctx, query, limit)
}

// NewReleases returns active books by release date, newest first
func (r *Repository) NewReleases(ctx context.Context, limit int) ([]*models.Book, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM books
		WHERE is_active = TRUE
		ORDER BY release_date DESC NULLS LAST, created_at DESC
		LIMIT $1`, bookColumns)
	return r.queryBooks(ctx, query, limit)
}

// ListBooksByGenres returns active books intersecting the genre set, minus
// the excluded IDs, ranked by rating then popularity.
func (r *Repository) ListBooksByGenres(ctx context.Context, genreIDs, excludeIDs []string, limit int) ([]*models.Book, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM books b
		JOIN book_genres bg ON bg.book_id = b.id
		WHERE bg.genre_id = ANY($1)
		  AND NOT (b.id = ANY($2))
		  AND b.is_active = TRUE
		ORDER BY b.rating DESC, b.total_plays DESC
		LIMIT $3`, prefixColumns("b", bookColumns))
	return r.queryBooks(ctx, query, genreIDs, excludeIDs, limit)
}

// ListPopularBooks returns active books minus the excluded IDs, ranked by
// popularity then rating.
func (r *Repository) ListPopularBooks(ctx context.Context, excludeIDs []string, limit int) ([]*models.Book, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM books
		WHERE NOT (id = ANY($1)) AND is_active = TRUE
		ORDER BY total_plays DESC, rating DESC
		LIMIT $2`, bookColumns)
	return r.queryBooks(ctx, query, excludeIDs, limit)
}

// BookPlayback is the duration information needed for completion detection
type BookPlayback struct {
	Duration         int       // minutes, flat/legacy
	ChapterDurations []float64 // minutes, ordered by position
}

// GetBookPlayback returns the book's flat duration and chapter durations
func (r *Repository) GetBookPlayback(ctx context.Context, id string) (*BookPlayback, error) {
	var pb BookPlayback
	err := r.db.Pool.QueryRow(ctx, `SELECT duration FROM books WHERE id = $1`, id).Scan(&pb.Duration)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book playback: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT duration FROM chapters WHERE book_id = $1 ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter durations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d float64
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan chapter duration: %w", err)
		}
		pb.ChapterDurations = append(pb.ChapterDurations, d)
	}

	return &pb, rows.Err()
}

// IncrementTotalPlays bumps the play counter
func (r *Repository) IncrementTotalPlays(ctx context.Context, id string) error {
	query := `UPDATE books SET total_plays = total_plays + 1, updated_at = now() WHERE id = $1`
	if _, err := r.db.Pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment total plays: %w", err)
	}
	return nil
}

func (r *Repository) queryBooks(ctx context.Context, query string, args ...interface{}) ([]*models.Book, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadBookRelations(ctx, books); err != nil {
		return nil, err
	}

	return books, nil
}

// loadBookRelations attaches authors, genres and chapters to the given books
func (r *Repository) loadBookRelations(ctx context.Context, books []*models.Book) error {
	if len(books) == 0 {
		return nil
	}

	ids := make([]string, 0, len(books))
	byID := make(map[string]*models.Book, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
		byID[b.ID] = b
		b.Authors = []models.Author{}
		b.Genres = []models.Genre{}
		b.Chapters = []models.Chapter{}
	}

	authorRows, err := r.db.Pool.Query(ctx, `
		SELECT ba.book_id, a.id, a.name, a.bio, a.photo
		FROM book_authors ba
		JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id = ANY($1)
		ORDER BY ba.position ASC`, ids)
	if err != nil {
		return fmt.Errorf("failed to load authors: %w", err)
	}
	defer authorRows.Close()
	for authorRows.Next() {
		var bookID string
		var a models.Author
		if err := authorRows.Scan(&bookID, &a.ID, &a.Name, &a.Bio, &a.Photo); err != nil {
			return fmt.Errorf("failed to scan author: %w", err)
		}
		byID[bookID].Authors = append(byID[bookID].Authors, a)
	}
	if err := authorRows.Err(); err != nil {
		return err
	}

	genreRows, err := r.db.Pool.Query(ctx, `
		SELECT bg.book_id, g.id, g.name, g.description, g.color
		FROM book_genres bg
		JOIN genres g ON g.id = bg.genre_id
		WHERE bg.book_id = ANY($1)
		ORDER BY bg.position ASC`, ids)
	if err != nil {
		return fmt.Errorf("failed to load genres: %w", err)
	}
	defer genreRows.Close()
	for genreRows.Next() {
		var bookID string
		var g models.Genre
		if err := genreRows.Scan(&bookID, &g.ID, &g.Name, &g.Description, &g.Color); err != nil {
			return fmt.Errorf("failed to scan genre: %w", err)
		}
		byID[bookID].Genres = append(byID[bookID].Genres, g)
	}
	if err := genreRows.Err(); err != nil {
		return err
	}

	chapterRows, err := r.db.Pool.Query(ctx, `
		SELECT book_id, title, audio_file, duration
		FROM chapters
		WHERE book_id = ANY($1)
		ORDER BY position ASC`, ids)
	if err != nil {
		return fmt.Errorf("failed to load chapters: %w", err)
	}
	defer chapterRows.Close()
	for chapterRows.Next() {
		var bookID string
		var c models.Chapter
		if err := chapterRows.Scan(&bookID, &c.Title, &c.AudioFile, &c.Duration); err != nil {
			return fmt.Errorf("failed to scan chapter: %w", err)
		}
		byID[bookID].Chapters = append(byID[bookID].Chapters, c)
	}
	return chapterRows.Err()
}

func replaceChapters(ctx context.Context, tx pgx.Tx, bookID string, chapters []models.Chapter) error {
	if _, err := tx.Exec(ctx, `DELETE FROM chapters WHERE book_id = $1`, bookID); err != nil {
		return fmt.Errorf("failed to clear chapters: %w", err)
	}
	for i, c := range chapters {
		_, err := tx.Exec(ctx,
			`INSERT INTO chapters (book_id, position, title, audio_file, duration) VALUES ($1, $2, $3, $4, $5)`,
			bookID, i, c.Title, c.AudioFile, c.Duration,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chapter: %w", err)
		}
	}
	return nil
}

func replaceJoinRows(ctx context.Context, tx pgx.Tx, table, column, bookID string, ids []string) error {
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE book_id = $1`, table), bookID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	for i, id := range ids {
		_, err := tx.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s (book_id, %s, position) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, table, column),
			bookID, id, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// prefixColumns qualifies a comma-separated column list with a table alias
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
