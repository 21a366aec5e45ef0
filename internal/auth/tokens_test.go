package auth

import (
	"testing"
	"time"

	"github.com/pmiaudio/audiobook-api/internal/config"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

func testTokenManager() *TokenManager {
	return NewTokenManager(config.AuthConfig{
		JWTSecret:        "test-access-secret",
		JWTRefreshSecret: "test-refresh-secret",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  168 * time.Hour,
	})
}

func TestTokenManager_AccessToken(t *testing.T) {
	tm := testTokenManager()
	user := &models.User{ID: "user-1", Role: models.RoleAdmin}

	token, err := tm.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	claims, err := tm.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken failed: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("Expected user ID user-1, got %s", claims.UserID)
	}

	if claims.Role != "admin" {
		t.Errorf("Expected role admin, got %s", claims.Role)
	}
}

func TestTokenManager_SeparateSecrets(t *testing.T) {
	tm := testTokenManager()
	user := &models.User{ID: "user-1", Role: models.RoleUser}

	refresh, err := tm.GenerateRefreshToken(user)
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}

	// A refresh token must not verify as an access token
	if _, err := tm.ParseAccessToken(refresh); err == nil {
		t.Error("Refresh token should not parse as an access token")
	}

	if _, err := tm.ParseRefreshToken(refresh); err != nil {
		t.Errorf("Refresh token should parse with the refresh secret: %v", err)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager(config.AuthConfig{
		JWTSecret:        "test-access-secret",
		JWTRefreshSecret: "test-refresh-secret",
		AccessTokenTTL:   -1 * time.Minute,
		RefreshTokenTTL:  168 * time.Hour,
	})

	token, err := tm.GenerateAccessToken(&models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := tm.ParseAccessToken(token); err == nil {
		t.Error("Expired token should not validate")
	}
}

func TestTokenManager_Garbage(t *testing.T) {
	tm := testTokenManager()

	if _, err := tm.ParseAccessToken("not-a-token"); err == nil {
		t.Error("Garbage input should not validate")
	}
}
