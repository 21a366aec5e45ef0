package main

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pmiaudio/audiobook-api/internal/metrics"
	"github.com/pmiaudio/audiobook-api/internal/storage"
	"github.com/pmiaudio/audiobook-api/internal/upload"
)

func (api *API) uploadAudio(c *gin.Context) {
	api.handleUpload(c, upload.KindAudio, "audio")
}

func (api *API) uploadCover(c *gin.Context) {
	api.handleUpload(c, upload.KindCover, "cover")
}

// handleUpload validates the multipart file against the kind's
// allow-list, stores it under the kind's prefix and returns the
// relative object key clients persist on book records.
func (api *API) handleUpload(c *gin.Context, kind upload.Kind, field string) {
	header, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if err := upload.Validate(kind, header.Filename, contentType); err != nil {
		metrics.RecordUpload(string(kind), "rejected", 0)
		api.respondError(c, err)
		return
	}

	file, err := header.Open()
	if err != nil {
		api.respondError(c, err)
		return
	}
	defer file.Close()

	if contentType == "" {
		contentType = storage.ContentType(header.Filename)
	}

	objectName := upload.ObjectName(kind, header.Filename)
	if err := api.storage.Upload(c.Request.Context(), objectName, file, header.Size, contentType); err != nil {
		metrics.RecordUpload(string(kind), "failure", header.Size)
		api.respondError(c, err)
		return
	}

	metrics.RecordUpload(string(kind), "success", header.Size)
	c.JSON(http.StatusCreated, gin.H{
		"file":      objectName,
		"size":      header.Size,
		"mime_type": contentType,
	})
}

func (api *API) serveFile(c *gin.Context) {
	objectName := strings.TrimPrefix(c.Param("path"), "/")
	if objectName == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	object, err := api.storage.Download(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	defer object.Close()

	c.Header("Content-Type", storage.ContentType(objectName))
	if _, err := io.Copy(c.Writer, object); err != nil {
		// Headers are gone by now; log and drop the connection
		api.logger.WithError(err).WithField("object", objectName).Error("Failed to stream object")
		c.Abort()
	}
}
