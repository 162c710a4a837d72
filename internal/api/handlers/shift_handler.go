// server/internal/api/handlers/shift_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartbin-api-server/internal/api/middleware"
	"smartbin-api-server/internal/models"
	"smartbin-api-server/internal/services"
)

type ShiftHandler struct {
	Shifts *services.ShiftLogService
}

type StartShiftRequest struct {
	UserID string `json:"userId"`
}

func (h *ShiftHandler) GetAllShifts(c *gin.Context) {
	shifts, err := h.Shifts.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if shifts == nil {
		shifts = []models.ShiftLog{}
	}
	c.JSON(http.StatusOK, shifts)
}

func (h *ShiftHandler) GetShiftByID(c *gin.Context) {
	shift, err := h.Shifts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shift)
}

// StartShift opens a shift for userId, or for the caller when omitted.
func (h *ShiftHandler) StartShift(c *gin.Context) {
	var req StartShiftRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if req.UserID == "" {
		req.UserID = middleware.UserID(c)
	}

	shift, err := h.Shifts.Start(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shift)
}

func (h *ShiftHandler) EndShift(c *gin.Context) {
	var req services.EndShiftInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	shift, err := h.Shifts.End(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shift)
}

func (h *ShiftHandler) DeleteShift(c *gin.Context) {
	if err := h.Shifts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Shift deleted successfully"})
}
