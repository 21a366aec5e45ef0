package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pmiaudio/audiobook-api/internal/auth"
	"github.com/pmiaudio/audiobook-api/internal/catalog"
	"github.com/pmiaudio/audiobook-api/internal/config"
	"github.com/pmiaudio/audiobook-api/internal/database"
	"github.com/pmiaudio/audiobook-api/internal/logging"
	"github.com/pmiaudio/audiobook-api/internal/metrics"
	"github.com/pmiaudio/audiobook-api/internal/middleware"
	"github.com/pmiaudio/audiobook-api/internal/progress"
	"github.com/pmiaudio/audiobook-api/internal/recommend"
	"github.com/pmiaudio/audiobook-api/internal/upload"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

// userStore covers the repository operations handlers call directly,
// outside the domain services.
type userStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) error
	SetPreferredGenres(ctx context.Context, userID string, genreIDs []string) error
	UpsertReview(ctx context.Context, review *models.Review) error
	ListReviews(ctx context.Context, bookID string) ([]models.Review, error)
	DeleteReview(ctx context.Context, userID, bookID string) error
	CreatePlaylist(ctx context.Context, playlist *models.Playlist) error
	GetPlaylist(ctx context.Context, userID, playlistID string) (*models.Playlist, error)
	ListPlaylists(ctx context.Context, userID string) ([]models.Playlist, error)
	UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error
	DeletePlaylist(ctx context.Context, userID, playlistID string) error
	Health(ctx context.Context) error
}

// objectStore is the storage surface the upload and file handlers use
type objectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
}

type API struct {
	repo        userStore
	auth        *auth.Service
	catalog     *catalog.Service
	tracker     *progress.Tracker
	recommender *recommend.Engine
	storage     objectStore
	tokens      *auth.TokenManager
	logger      *logging.Logger
}

func setupRouter(api *API, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(api.logger))
	router.Use(middleware.Metrics())
	if cfg.Tracing.Enabled {
		router.Use(middleware.Tracing())
	}

	router.GET("/health", api.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	api.registerRoutes(router.Group("/api/v1"), limiter)
	// Flat aliases kept for the existing frontend
	api.registerRoutes(router.Group(""), limiter)

	return router
}

func (api *API) registerRoutes(g *gin.RouterGroup, limiter *middleware.RateLimiter) {
	authenticated := middleware.Authenticated(api.tokens, api.repo)
	limited := middleware.RateLimit(limiter)
	adminOnly := middleware.AdminOnly()

	authGroup := g.Group("/auth")
	{
		authGroup.POST("/signup", limited, api.signup)
		authGroup.POST("/login", limited, api.login)
		authGroup.POST("/google", limited, api.googleSignIn)
		authGroup.POST("/refresh-token", limited, api.refreshToken)
		authGroup.POST("/logout", authenticated, api.logout)
		authGroup.POST("/forgot-password", limited, api.forgotPassword)
		authGroup.POST("/reset-password", limited, api.resetPassword)

		authGroup.POST("/upload/audio", authenticated, adminOnly, api.uploadAudio)
		authGroup.POST("/upload/cover", authenticated, adminOnly, api.uploadCover)
		authGroup.GET("/files/*path", api.serveFile)
	}

	books := g.Group("/books")
	{
		books.GET("", api.listBooks)
		books.GET("/featured", api.featuredBooks)
		books.GET("/new-releases", api.newReleases)
		books.GET("/:id", api.getBook)
		books.GET("/:id/reviews", api.listReviews)

		books.POST("", authenticated, adminOnly, api.createBook)
		books.PUT("/:id", authenticated, adminOnly, api.updateBook)
		books.DELETE("/:id", authenticated, adminOnly, api.deleteBook)

		books.POST("/:id/reviews", authenticated, api.upsertReview)
		books.DELETE("/:id/reviews", authenticated, api.deleteReview)
	}

	g.GET("/genres", api.listGenres)

	users := g.Group("/users", authenticated, limited)
	{
		users.GET("/progress/:bookId", api.getProgress)
		users.PUT("/progress/:bookId", api.updateProgress)
		users.POST("/progress/:bookId/bookmarks", api.addBookmark)
		users.DELETE("/bookmarks/:id", api.deleteBookmark)

		users.GET("/library", api.library)
		users.GET("/stats", api.stats)
		users.GET("/recommendations", api.recommendations)
		users.PUT("/preferences", api.updatePreferences)

		users.GET("/playlists", api.listPlaylists)
		users.POST("/playlists", api.createPlaylist)
		users.GET("/playlists/:id", api.getPlaylist)
		users.PUT("/playlists/:id", api.updatePlaylist)
		users.DELETE("/playlists/:id", api.deletePlaylist)
	}
}

func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.repo.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// respondError maps service errors onto HTTP statuses. Anything not in
// the taxonomy is logged in full and reported as a generic 500.
func (api *API) respondError(c *gin.Context, err error) {
	var typeErr *upload.ErrUnsupportedType

	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, auth.ErrEmailInUse),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidResetToken),
		errors.Is(err, catalog.ErrTitleRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &typeErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": typeErr.Error()})
	default:
		metrics.RecordError("api", "internal")
		api.logger.WithError(err).
			WithField("method", c.Request.Method).
			WithField("path", c.Request.URL.Path).
			Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
