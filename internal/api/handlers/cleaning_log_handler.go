// server/internal/api/handlers/cleaning_log_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartbin-api-server/internal/api/middleware"
	"smartbin-api-server/internal/models"
	"smartbin-api-server/internal/services"
)

// maxPhotoSize bounds proof photo uploads.
const maxPhotoSize = 10 << 20

type CleaningLogHandler struct {
	Logs *services.CleaningLogService
}

// GetAllCleaningLogs supports ?binId= to narrow to one bin.
func (h *CleaningLogHandler) GetAllCleaningLogs(c *gin.Context) {
	var (
		logs []models.CleaningLog
		err  error
	)
	if binID := c.Query("binId"); binID != "" {
		logs, err = h.Logs.ListByBin(c.Request.Context(), binID)
	} else {
		logs, err = h.Logs.List(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []models.CleaningLog{}
	}
	c.JSON(http.StatusOK, logs)
}

func (h *CleaningLogHandler) GetCleaningLogByID(c *gin.Context) {
	entry, err := h.Logs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *CleaningLogHandler) CreateCleaningLog(c *gin.Context) {
	req, ok := bindCleaningLog(c)
	if !ok {
		return
	}
	entry, err := h.Logs.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// LogCleaning records an emptied bin and puts it back into service.
func (h *CleaningLogHandler) LogCleaning(c *gin.Context) {
	req, ok := bindCleaningLog(c)
	if !ok {
		return
	}
	entry, err := h.Logs.LogCleaning(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// bindCleaningLog defaults the crew member to the caller.
func bindCleaningLog(c *gin.Context) (services.CleaningLogInput, bool) {
	var req services.CleaningLogInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return req, false
	}
	if req.UserID == "" {
		req.UserID = middleware.UserID(c)
	}
	return req, true
}

// UploadPhoto expects a multipart form with a "photo" file field.
func (h *CleaningLogHandler) UploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoSize)
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Photo is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Photo file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	entry, err := h.Logs.AttachPhoto(c.Request.Context(), c.Param("id"), file, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *CleaningLogHandler) DeleteCleaningLog(c *gin.Context) {
	if err := h.Logs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cleaning log deleted successfully"})
}
