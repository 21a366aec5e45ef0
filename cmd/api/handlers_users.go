package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pmiaudio/audiobook-api/internal/database"
	"github.com/pmiaudio/audiobook-api/internal/middleware"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

func (api *API) getProgress(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	progress, err := api.tracker.GetOrCreate(c.Request.Context(), userID, c.Param("bookId"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

func (api *API) updateProgress(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req struct {
		Chapter     *int     `json:"chapter"`
		Position    *float64 `json:"position"`
		TotalPlayed *float64 `json:"totalPlayed"`
		Speed       *float64 `json:"speed"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upd := database.ProgressUpdate{
		CurrentChapter:  req.Chapter,
		CurrentPosition: req.Position,
		TotalPlayed:     req.TotalPlayed,
		PlaybackSpeed:   req.Speed,
	}

	progress, err := api.tracker.Update(c.Request.Context(), userID, c.Param("bookId"), upd)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

func (api *API) addBookmark(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req struct {
		Position float64 `json:"position"`
		Note     string  `json:"note"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookmark, err := api.tracker.AddBookmark(c.Request.Context(), userID, c.Param("bookId"), req.Position, req.Note)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bookmark)
}

func (api *API) deleteBookmark(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := api.tracker.DeleteBookmark(c.Request.Context(), userID, c.Param("id")); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Bookmark deleted"})
}

func (api *API) library(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	filter := database.LibraryFilter(c.Query("status"))
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 0)

	entries, pagination, err := api.tracker.Library(c.Request.Context(), userID, page, limit, filter)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"library":    entries,
		"pagination": pagination,
	})
}

func (api *API) stats(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	stats, err := api.tracker.Stats(c.Request.Context(), userID)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (api *API) recommendations(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	books, err := api.recommender.Recommend(c.Request.Context(), userID, queryInt(c, "limit", 0))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"books": books})
}

func (api *API) updatePreferences(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	user, _ := middleware.GetUser(c)

	var req struct {
		PreferredGenres *[]string `json:"preferred_genres"`
		PlaybackSpeed   *float64  `json:"playback_speed"`
		AutoPlayNext    *bool     `json:"auto_play_next"`
		DarkMode        *bool     `json:"dark_mode"`
		FontSize        *string   `json:"font_size"`
		HighContrast    *bool     `json:"high_contrast"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs := user.Preferences
	if req.PlaybackSpeed != nil {
		prefs.PlaybackSpeed = *req.PlaybackSpeed
	}
	if req.AutoPlayNext != nil {
		prefs.AutoPlayNext = *req.AutoPlayNext
	}
	if req.DarkMode != nil {
		prefs.DarkMode = *req.DarkMode
	}
	if req.FontSize != nil {
		prefs.FontSize = *req.FontSize
	}
	if req.HighContrast != nil {
		prefs.HighContrast = *req.HighContrast
	}

	if err := api.repo.UpdatePreferences(c.Request.Context(), userID, prefs); err != nil {
		api.respondError(c, err)
		return
	}

	if req.PreferredGenres != nil {
		if err := api.repo.SetPreferredGenres(c.Request.Context(), userID, *req.PreferredGenres); err != nil {
			api.respondError(c, err)
			return
		}
		prefs.PreferredGenres = *req.PreferredGenres
	} else {
		prefs.PreferredGenres = user.Preferences.PreferredGenres
	}

	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func (api *API) listPlaylists(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	playlists, err := api.repo.ListPlaylists(c.Request.Context(), userID)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playlists": playlists})
}

func (api *API) createPlaylist(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		BookIDs     []string `json:"book_ids"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	playlist := &models.Playlist{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		BookIDs:     req.BookIDs,
	}

	if err := api.repo.CreatePlaylist(c.Request.Context(), playlist); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, playlist)
}

func (api *API) getPlaylist(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	playlist, err := api.repo.GetPlaylist(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, playlist)
}

func (api *API) updatePlaylist(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		BookIDs     []string `json:"book_ids"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	playlist := &models.Playlist{
		ID:          c.Param("id"),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		BookIDs:     req.BookIDs,
	}

	if err := api.repo.UpdatePlaylist(c.Request.Context(), playlist); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, playlist)
}

func (api *API) deletePlaylist(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := api.repo.DeletePlaylist(c.Request.Context(), userID, c.Param("id")); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Playlist deleted"})
}
