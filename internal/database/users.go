package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

const userColumns = `id, name, email, password_hash, role, profile_picture,
	refresh_token, reset_token_hash, reset_expires,
	playback_speed, auto_play_next, dark_mode, font_size, high_contrast,
	subscription_type, subscription_start, subscription_end, auto_renew,
	books_completed, total_listening_time, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.ProfilePicture,
		&user.RefreshToken, &user.ResetTokenHash, &user.ResetExpires,
		&user.Preferences.PlaybackSpeed, &user.Preferences.AutoPlayNext, &user.Preferences.DarkMode,
		&user.Preferences.FontSize, &user.Preferences.HighContrast,
		&user.Subscription.Type, &user.Subscription.StartDate, &user.Subscription.EndDate, &user.Subscription.AutoRenew,
		&user.Stats.BooksCompleted, &user.Stats.TotalListeningTime,
		&user.LastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user record
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Preferences.PlaybackSpeed == 0 {
		user.Preferences.PlaybackSpeed = 1.0
	}
	if user.Preferences.FontSize == "" {
		user.Preferences.FontSize = "medium"
	}
	if user.Subscription.Type == "" {
		user.Subscription.Type = models.SubscriptionFree
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, role, profile_picture,
		                   refresh_token, playback_speed, font_size, subscription_type, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.ProfilePicture,
		user.RefreshToken, user.Preferences.PlaybackSpeed, user.Preferences.FontSize,
		user.Subscription.Type, user.LastLogin,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Preferences.PreferredGenres, err = r.GetPreferredGenreIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, email))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserByRefreshToken retrieves the user holding the given refresh token
func (r *Repository) GetUserByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE refresh_token = $1 AND refresh_token <> ''`, userColumns)

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, token))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("refresh token: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by refresh token: %w", err)
	}

	return user, nil
}

// GetUserByResetToken retrieves the user holding an unexpired reset token digest
func (r *Repository) GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users
		WHERE reset_token_hash = $1 AND reset_token_hash <> '' AND reset_expires > now()`, userColumns)

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, tokenHash))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("reset token: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}

	return user, nil
}

// SetRefreshToken stores the single active refresh token and stamps last_login.
// Prior refresh tokens are implicitly invalidated by the overwrite.
func (r *Repository) SetRefreshToken(ctx context.Context, userID, token string) error {
	query := `
		UPDATE users
		SET refresh_token = $2, last_login = now(), updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, token)
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	return nil
}

// ClearRefreshToken invalidates the user's refresh token (logout)
func (r *Repository) ClearRefreshToken(ctx context.Context, userID string) error {
	query := `UPDATE users SET refresh_token = '', updated_at = now() WHERE id = $1`

	if _, err := r.db.Pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	return nil
}

// SetResetToken stores the hashed password-reset token with its expiry
func (r *Repository) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	query := `
		UPDATE users
		SET reset_token_hash = $2, reset_expires = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, tokenHash, expires)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	return nil
}

// ResetPassword replaces the password hash, clears reset state and rotates
// the refresh token in one statement.
func (r *Repository) ResetPassword(ctx context.Context, userID, passwordHash, refreshToken string) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token_hash = '', reset_expires = NULL,
		    refresh_token = $3, last_login = now(), updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, passwordHash, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	return nil
}

// GetPreferredGenreIDs returns the user's preferred genre IDs in stored order
func (r *Repository) GetPreferredGenreIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT genre_id FROM user_preferred_genres
		WHERE user_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get preferred genres: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan genre id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// SetPreferredGenres replaces the user's preferred genre list
func (r *Repository) SetPreferredGenres(ctx context.Context, userID string, genreIDs []string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM user_preferred_genres WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear preferred genres: %w", err)
	}

	for i, genreID := range genreIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO user_preferred_genres (user_id, genre_id, position) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, genre_id) DO NOTHING`,
			userID, genreID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert preferred genre: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// UpdatePreferences updates the user's playback and display settings
func (r *Repository) UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) error {
	query := `
		UPDATE users
		SET playback_speed = $2, auto_play_next = $3, dark_mode = $4,
		    font_size = $5, high_contrast = $6, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID,
		prefs.PlaybackSpeed, prefs.AutoPlayNext, prefs.DarkMode, prefs.FontSize, prefs.HighContrast)
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	return nil
}
