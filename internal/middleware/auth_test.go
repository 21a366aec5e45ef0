package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/pmiaudio/audiobook-api/internal/auth"
	"github.com/pmiaudio/audiobook-api/internal/config"
	"github.com/pmiaudio/audiobook-api/internal/database"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

type fakeLoader struct {
	users map[string]*models.User
}

func (f *fakeLoader) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func testSetup() (*auth.TokenManager, *fakeLoader) {
	tokens := auth.NewTokenManager(config.AuthConfig{
		JWTSecret:        "test-secret",
		JWTRefreshSecret: "test-refresh-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  time.Hour,
	})
	loader := &fakeLoader{users: map[string]*models.User{
		"user-1":  {ID: "user-1", Role: models.RoleUser},
		"admin-1": {ID: "admin-1", Role: models.RoleAdmin},
	}}
	return tokens, loader
}

func TestAuthenticated_Rejections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, loader := testSetup()

	tests := []struct {
		name   string
		header string
	}{
		{"Missing authorization header", ""},
		{"Invalid format", "InvalidToken"},
		{"Garbage token", "Bearer garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			c.Request = req

			Authenticated(tokens, loader)(c)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthenticated_ValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, loader := testSetup()

	token, err := tokens.GenerateAccessToken(loader.users["user-1"])
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c.Request = req

	Authenticated(tokens, loader)(c)

	assert.False(t, c.IsAborted())

	userID, exists := GetUserID(c)
	assert.True(t, exists)
	assert.Equal(t, "user-1", userID)

	user, exists := GetUser(c)
	assert.True(t, exists)
	assert.Equal(t, models.RoleUser, user.Role)
}

func TestAuthenticated_DeletedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, loader := testSetup()

	// Token for an account that no longer exists
	token, err := tokens.GenerateAccessToken(&models.User{ID: "ghost"})
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c.Request = req

	Authenticated(tokens, loader)(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, loader := testSetup()

	router := gin.New()
	router.Use(Authenticated(tokens, loader))
	router.POST("/admin", AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	adminToken, err := tokens.GenerateAccessToken(loader.users["admin-1"])
	assert.NoError(t, err)
	userToken, err := tokens.GenerateAccessToken(loader.users["user-1"])
	assert.NoError(t, err)

	// Admin passes
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Regular user gets 403
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Admin access required")
}
