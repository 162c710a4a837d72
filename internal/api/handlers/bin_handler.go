// server/internal/api/handlers/bin_handler.go
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/models"
	"smartbin-api-server/internal/services"
	"smartbin-api-server/internal/telemetry"
)

// Ingester runs one sample through the telemetry pipeline.
type Ingester interface {
	Ingest(ctx context.Context, source, binID string, sample models.Telemetry) (*telemetry.Result, error)
}

type BinHandler struct {
	Bins     *services.BinService
	Pipeline Ingester
}

type UpdateStatusRequest struct {
	Status models.BinStatus `json:"status" binding:"required"`
}

// GetAllBins supports ?status= and ?minFillLevel= filters.
func (h *BinHandler) GetAllBins(c *gin.Context) {
	filter := services.BinFilter{Status: models.BinStatus(c.Query("status"))}
	if raw := c.Query("minFillLevel"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperror.Validation("minFillLevel must be an integer"))
			return
		}
		filter.MinFillLevel = &level
	}

	bins, err := h.Bins.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if bins == nil {
		bins = []models.Bin{}
	}
	c.JSON(http.StatusOK, bins)
}

func (h *BinHandler) GetBinByID(c *gin.Context) {
	bin, err := h.Bins.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bin)
}

func (h *BinHandler) CreateBin(c *gin.Context) {
	var req services.BinInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	bin, err := h.Bins.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bin)
}

func (h *BinHandler) UpdateBin(c *gin.Context) {
	var req services.BinInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	bin, err := h.Bins.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bin)
}

func (h *BinHandler) UpdateBinStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	bin, err := h.Bins.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bin)
}

func (h *BinHandler) DeleteBin(c *gin.Context) {
	if err := h.Bins.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bin deleted successfully"})
}

// PostTelemetry ingests one sample through the same pipeline as the MQTT feed.
func (h *BinHandler) PostTelemetry(c *gin.Context) {
	var sample models.Telemetry
	if err := c.ShouldBindJSON(&sample); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.Pipeline.Ingest(c.Request.Context(), telemetry.SourceHTTP, c.Param("id"), sample)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetBinHistory returns the newest ?limit= samples, oldest first.
func (h *BinHandler) GetBinHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, apperror.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	history, err := h.Bins.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *BinHandler) SeedBins(c *gin.Context) {
	count, err := strconv.Atoi(c.Param("count"))
	if err != nil {
		respondError(c, apperror.Validation("count must be an integer"))
		return
	}

	bins, err := h.Bins.Seed(c.Request.Context(), count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"seeded": len(bins), "bins": bins})
}
