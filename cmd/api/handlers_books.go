package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pmiaudio/audiobook-api/internal/catalog"
	"github.com/pmiaudio/audiobook-api/internal/middleware"
	"github.com/pmiaudio/audiobook-api/pkg/models"
)

func (api *API) listBooks(c *gin.Context) {
	books, err := api.catalog.ListBooks(c.Request.Context())
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"books": books})
}

func (api *API) featuredBooks(c *gin.Context) {
	books, err := api.catalog.Featured(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"books": books})
}

func (api *API) newReleases(c *gin.Context) {
	books, err := api.catalog.NewReleases(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"books": books})
}

func (api *API) getBook(c *gin.Context) {
	book, err := api.catalog.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

func (api *API) createBook(c *gin.Context) {
	var input catalog.BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := api.catalog.CreateBook(c.Request.Context(), input)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, book)
}

func (api *API) updateBook(c *gin.Context) {
	var patch catalog.BookPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := api.catalog.UpdateBook(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

func (api *API) deleteBook(c *gin.Context) {
	if err := api.catalog.DeleteBook(c.Request.Context(), c.Param("id")); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Book deleted"})
}

func (api *API) listGenres(c *gin.Context) {
	genres, err := api.catalog.ListGenres(c.Request.Context())
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"genres": genres})
}

func (api *API) listReviews(c *gin.Context) {
	reviews, err := api.repo.ListReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (api *API) upsertReview(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req struct {
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Comment string `json:"comment"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review := &models.Review{
		UserID:  userID,
		BookID:  c.Param("id"),
		Rating:  req.Rating,
		Comment: req.Comment,
	}

	if err := api.repo.UpsertReview(c.Request.Context(), review); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

func (api *API) deleteReview(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := api.repo.DeleteReview(c.Request.Context(), userID, c.Param("id")); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review deleted"})
}

// queryInt parses an integer query parameter, falling back on absence
// or garbage.
func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
