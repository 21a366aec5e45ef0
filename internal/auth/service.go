package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pmiaudio/audiobook-api/internal/config"
	"github.com/pmiaudio/audiobook-api/internal/database"
	"github.com/pmiaudio/audiobook-api/internal/logging"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

var (
	ErrEmailInUse          = errors.New("email already in use")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
)

// UserStore is the subset of the repository the auth service needs
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByRefreshToken(ctx context.Context, token string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	ClearRefreshToken(ctx context.Context, userID string) error
	SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error
	ResetPassword(ctx context.Context, userID, passwordHash, refreshToken string) error
}

// EmailPublisher queues transactional email jobs
type EmailPublisher interface {
	PublishEmail(ctx context.Context, job *models.EmailJob) error
}

// ProfileVerifier resolves an OAuth access token to a profile
type ProfileVerifier interface {
	Verify(ctx context.Context, accessToken string) (*GoogleProfile, error)
}

// TokenPair is the issued access/refresh token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service implements signup, login, token refresh and password recovery
type Service struct {
	store    UserStore
	tokens   *TokenManager
	emails   EmailPublisher
	verifier ProfileVerifier
	cfg      config.AuthConfig
	logger   *logging.Logger
}

// NewService creates the auth service
func NewService(store UserStore, tokens *TokenManager, emails EmailPublisher, verifier ProfileVerifier,
	cfg config.AuthConfig, logger *logging.Logger) *Service {
	return &Service{
		store:    store,
		tokens:   tokens,
		emails:   emails,
		verifier: verifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Signup registers a new account and signs it in
func (s *Service) Signup(ctx context.Context, name, email, password string) (*models.User, *TokenPair, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, nil, ErrEmailInUse
		}
		return nil, nil, err
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.queueEmail(ctx, &models.EmailJob{
		Type: models.EmailWelcome,
		To:   user.Email,
		Name: user.Name,
	})

	return user, pair, nil
}

// Login authenticates a password account
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// GoogleSignIn verifies a Google access token and finds or creates the
// matching account. Created accounts get a random placeholder password,
// so password login stays closed until the user sets one via reset.
func (s *Service) GoogleSignIn(ctx context.Context, accessToken string) (*models.User, *TokenPair, error) {
	profile, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("google verification failed: %w", err)
	}

	user, err := s.store.GetUserByEmail(ctx, profile.Email)
	if errors.Is(err, database.ErrNotFound) {
		user, err = s.createGoogleUser(ctx, profile)
	}
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

func (s *Service) createGoogleUser(ctx context.Context, profile *GoogleProfile) (*models.User, error) {
	placeholder, err := randomToken()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(placeholder), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
	}

	user := &models.User{
		Name:           profile.Name,
		Email:          profile.Email,
		PasswordHash:   string(hash),
		ProfilePicture: profile.Picture,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.queueEmail(ctx, &models.EmailJob{
		Type: models.EmailWelcome,
		To:   user.Email,
		Name: user.Name,
	})

	return user, nil
}

// Refresh rotates the token pair. The presented token must both match
// the single token stored on the user row and still verify; an expired
// stored token is cleared so it cannot be retried.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	user, err := s.store.GetUserByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, err
	}

	if _, err := s.tokens.ParseRefreshToken(refreshToken); err != nil {
		if clearErr := s.store.ClearRefreshToken(ctx, user.ID); clearErr != nil {
			s.logger.WithError(clearErr).WithUserID(user.ID).Error("Failed to clear expired refresh token")
		}
		return nil, nil, ErrInvalidRefreshToken
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Logout invalidates the user's refresh token
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.store.ClearRefreshToken(ctx, userID)
}

// ForgotPassword issues a reset token and queues the reset email.
// Unknown addresses succeed silently so the endpoint cannot be used to
// probe which emails have accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := randomToken()
	if err != nil {
		return err
	}

	expires := time.Now().Add(s.cfg.ResetTokenTTL)
	if err := s.store.SetResetToken(ctx, user.ID, hashToken(token), expires); err != nil {
		return err
	}

	s.queueEmail(ctx, &models.EmailJob{
		Type:  models.EmailPasswordReset,
		To:    user.Email,
		Name:  user.Name,
		Token: token,
	})

	return nil
}

// ResetPassword consumes a reset token, replaces the password and signs
// the user in with a fresh token pair.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (*models.User, *TokenPair, error) {
	user, err := s.store.GetUserByResetToken(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, ErrInvalidResetToken
		}
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.store.ResetPassword(ctx, user.ID, string(hash), refreshToken); err != nil {
		return nil, nil, err
	}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return user, &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.store.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// queueEmail publishes fire-and-forget; a broker outage must not fail
// the auth request that triggered the email.
func (s *Service) queueEmail(ctx context.Context, job *models.EmailJob) {
	if s.emails == nil {
		return
	}
	if err := s.emails.PublishEmail(ctx, job); err != nil {
		s.logger.WithError(err).WithField("email_type", string(job.Type)).Error("Failed to queue email")
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
