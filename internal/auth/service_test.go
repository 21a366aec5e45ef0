package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
	"github.com/pmiaudio/audiobook-api/internal/config"
	"github.com/pmiaudio/audiobook-api/internal/database"
	"github.com/pmiaudio/audiobook-api/internal/logging"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

type fakeStore struct {
	users map[string]*models.User // keyed by ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*models.User)}
}

func (f *fakeStore) CreateUser(ctx context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return fmt.Errorf("email %s: %w", user.Email, database.ErrDuplicate)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) GetUserByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	for _, u := range f.users {
		if u.RefreshToken == token && token != "" {
			return u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	for _, u := range f.users {
		if u.ResetTokenHash == tokenHash && tokenHash != "" &&
			u.ResetExpires != nil && u.ResetExpires.After(time.Now()) {
			return u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	u, ok := f.users[userID]
	if !ok {
		return database.ErrNotFound
	}
	u.RefreshToken = token
	return nil
}

func (f *fakeStore) ClearRefreshToken(ctx context.Context, userID string) error {
	if u, ok := f.users[userID]; ok {
		u.RefreshToken = ""
	}
	return nil
}

func (f *fakeStore) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	u, ok := f.users[userID]
	if !ok {
		return database.ErrNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetExpires = &expires
	return nil
}

func (f *fakeStore) ResetPassword(ctx context.Context, userID, passwordHash, refreshToken string) error {
	u, ok := f.users[userID]
	if !ok {
		return database.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetExpires = nil
	u.RefreshToken = refreshToken
	return nil
}

type fakeEmails struct {
	jobs []*models.EmailJob
}

func (f *fakeEmails) PublishEmail(ctx context.Context, job *models.EmailJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeVerifier struct {
	profile *GoogleProfile
	err     error
}

func (f *fakeVerifier) Verify(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	return f.profile, f.err
}

func testService(t *testing.T, store *fakeStore, emails *fakeEmails, verifier ProfileVerifier) *Service {
	t.Helper()

	cfg := config.AuthConfig{
		JWTSecret:        "test-access-secret",
		JWTRefreshSecret: "test-refresh-secret",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  168 * time.Hour,
		ResetTokenTTL:    1 * time.Hour,
	}

	logger, err := logging.NewDefaultLogger()
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	return NewService(store, NewTokenManager(cfg), emails, verifier, cfg, logger)
}

func TestService_Signup(t *testing.T) {
	store := newFakeStore()
	emails := &fakeEmails{}
	svc := testService(t, store, emails, nil)

	ctx := context.Background()

	user, pair, err := svc.Signup(ctx, "Anju", "anju@example.com", "secret123")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	if user.ID == "" {
		t.Error("Signed up user should have an ID")
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("Signup should issue a token pair")
	}

	if user.PasswordHash == "secret123" {
		t.Error("Password must be stored hashed")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")); err != nil {
		t.Errorf("Stored hash should match the password: %v", err)
	}

	// Refresh token is persisted on the user row
	if store.users[user.ID].RefreshToken != pair.RefreshToken {
		t.Error("Refresh token should be stored on the user")
	}

	// Welcome email queued
	if len(emails.jobs) != 1 || emails.jobs[0].Type != models.EmailWelcome {
		t.Errorf("Expected one welcome email job, got %v", emails.jobs)
	}
}

func TestService_Signup_DuplicateEmail(t *testing.T) {
	store := newFakeStore()
	svc := testService(t, store, &fakeEmails{}, nil)

	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "Anju", "anju@example.com", "secret123"); err != nil {
		t.Fatalf("First signup failed: %v", err)
	}

	_, _, err := svc.Signup(ctx, "Other", "anju@example.com", "different")
	if err != ErrEmailInUse {
		t.Errorf("Expected ErrEmailInUse, got %v", err)
	}
}

func TestService_Login(t *testing.T) {
	store := newFakeStore()
	svc := testService(t, store, &fakeEmails{}, nil)

	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "Anju", "anju@example.com", "secret123"); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	user, pair, err := svc.Login(ctx, "anju@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if user.Email != "anju@example.com" {
		t.Errorf("Unexpected user: %s", user.Email)
	}

	if pair.AccessToken == "" {
		t.Error("Login should issue an access token")
	}

	// Wrong password
	if _, _, err := svc.Login(ctx, "anju@example.com", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}

	// Unknown email maps to the same error
	if _, _, err := svc.Login(ctx, "nobody@example.com", "secret123"); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_GoogleSignIn(t *testing.T) {
	store := newFakeStore()
	emails := &fakeEmails{}
	verifier := &fakeVerifier{profile: &GoogleProfile{
		Sub:     "google-sub-1",
		Email:   "anju@example.com",
		Name:    "Anju",
		Picture: "https://example.com/anju.jpg",
	}}
	svc := testService(t, store, emails, verifier)

	ctx := context.Background()

	// First sign-in creates the account
	user, pair, err := svc.GoogleSignIn(ctx, "google-access-token")
	if err != nil {
		t.Fatalf("GoogleSignIn failed: %v", err)
	}

	if user.ProfilePicture != "https://example.com/anju.jpg" {
		t.Errorf("Profile picture should come from Google, got %s", user.ProfilePicture)
	}

	if pair.RefreshToken == "" {
		t.Error("GoogleSignIn should issue a token pair")
	}

	// Second sign-in finds the same account
	again, _, err := svc.GoogleSignIn(ctx, "google-access-token")
	if err != nil {
		t.Fatalf("Second GoogleSignIn failed: %v", err)
	}

	if again.ID != user.ID {
		t.Error("Repeated Google sign-in should resolve to the same account")
	}

	if len(store.users) != 1 {
		t.Errorf("Expected a single account, got %d", len(store.users))
	}
}

func TestService_Refresh(t *testing.T) {
	store := newFakeStore()
	svc := testService(t, store, &fakeEmails{}, nil)

	ctx := context.Background()

	_, pair, err := svc.Signup(ctx, "Anju", "anju@example.com", "secret123")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	user, rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if rotated.AccessToken == "" || rotated.RefreshToken == "" {
		t.Error("Refresh should issue a new pair")
	}

	// The rotated token is now the stored one
	if store.users[user.ID].RefreshToken != rotated.RefreshToken {
		t.Error("Rotated refresh token should be stored")
	}

	// Garbage token
	if _, _, err := svc.Refresh(ctx, "garbage"); err != ErrInvalidRefreshToken {
		t.Errorf("Expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestService_Refresh_AfterLogout(t *testing.T) {
	store := newFakeStore()
	svc := testService(t, store, &fakeEmails{}, nil)

	ctx := context.Background()

	user, pair, err := svc.Signup(ctx, "Anju", "anju@example.com", "secret123")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// The token still verifies cryptographically but no longer matches
	// the stored one, so it must be rejected.
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); err != ErrInvalidRefreshToken {
		t.Errorf("Expected ErrInvalidRefreshToken after logout, got %v", err)
	}
}

func TestService_PasswordReset(t *testing.T) {
	store := newFakeStore()
	emails := &fakeEmails{}
	svc := testService(t, store, emails, nil)

	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "Anju", "anju@example.com", "secret123"); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	emails.jobs = nil

	if err := svc.ForgotPassword(ctx, "anju@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}

	if len(emails.jobs) != 1 || emails.jobs[0].Type != models.EmailPasswordReset {
		t.Fatalf("Expected one reset email job, got %v", emails.jobs)
	}

	token := emails.jobs[0].Token
	if token == "" {
		t.Fatal("Reset email job should carry the raw token")
	}

	user, pair, err := svc.ResetPassword(ctx, token, "newsecret")
	if err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if pair.AccessToken == "" {
		t.Error("ResetPassword should sign the user in")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(store.users[user.ID].PasswordHash), []byte("newsecret")); err != nil {
		t.Errorf("New password should be stored: %v", err)
	}

	// Token is single use
	if _, _, err := svc.ResetPassword(ctx, token, "again"); err != ErrInvalidResetToken {
		t.Errorf("Expected ErrInvalidResetToken on reuse, got %v", err)
	}
}

func TestService_ForgotPassword_UnknownEmail(t *testing.T) {
	store := newFakeStore()
	emails := &fakeEmails{}
	svc := testService(t, store, emails, nil)

	// Unknown addresses succeed silently and send nothing
	if err := svc.ForgotPassword(context.Background(), "nobody@example.com"); err != nil {
		t.Errorf("ForgotPassword for unknown email should not error: %v", err)
	}

	if len(emails.jobs) != 0 {
		t.Error("No email should be queued for unknown addresses")
	}
}
