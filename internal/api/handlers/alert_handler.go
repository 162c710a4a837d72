// server/internal/api/handlers/alert_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartbin-api-server/internal/models"
	"smartbin-api-server/internal/services"
)

type AlertHandler struct {
	Alerts *services.AlertService
}

type CreateAlertRequest struct {
	BinID       string               `json:"binId" binding:"required"`
	Type        models.AlertType     `json:"type" binding:"required"`
	Severity    models.AlertSeverity `json:"severity" binding:"required"`
	Message     string               `json:"message"`
	ValueAtTime string               `json:"valueAtTime"`
}

func (h *AlertHandler) GetAllAlerts(c *gin.Context) {
	alerts, err := h.Alerts.ListAll(c.Request.Context())
	respondAlerts(c, alerts, err)
}

func (h *AlertHandler) GetActiveAlerts(c *gin.Context) {
	alerts, err := h.Alerts.ListActive(c.Request.Context())
	respondAlerts(c, alerts, err)
}

func (h *AlertHandler) GetAlertsByBin(c *gin.Context) {
	alerts, err := h.Alerts.ListByBin(c.Request.Context(), c.Param("binId"))
	respondAlerts(c, alerts, err)
}

func respondAlerts(c *gin.Context, alerts []models.Alert, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}

// CreateAlert lets staff raise an alert by hand.
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	alert, err := h.Alerts.Create(c.Request.Context(), models.Alert{
		BinID:       req.BinID,
		Type:        req.Type,
		Severity:    req.Severity,
		Message:     req.Message,
		ValueAtTime: req.ValueAtTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	alert, err := h.Alerts.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	if err := h.Alerts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alert deleted successfully"})
}
