package handler

import (
	"net/http"
	"strconv"

	"presence-track/internal/model"
	"presence-track/internal/service"

	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	svc *service.LocationService
}

func NewLocationHandler(svc *service.LocationService) *LocationHandler {
	return &LocationHandler{svc: svc}
}

// GET /api/location-analytics?location=1&date=2026-08-30
func (h *LocationHandler) Analytics(c *gin.Context) {
	locID, err := strconv.ParseUint(c.Query("location"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location"})
		return
	}
	day := c.Query("date")
	if day == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}
	a, err := h.svc.Analytics(c.Request.Context(), uint(locID), day)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// POST /api/location-analytics/recompute?location=1&date=2026-08-30
func (h *LocationHandler) Recompute(c *gin.Context) {
	locID, err := strconv.ParseUint(c.Query("location"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location"})
		return
	}
	day := c.Query("date")
	if day == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}
	a, err := h.svc.Rollup(c.Request.Context(), uint(locID), day)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GET /api/movements?employee=1&date=2026-08-30
func (h *LocationHandler) Movements(c *gin.Context) {
	empID, err := strconv.ParseUint(c.Query("employee"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee"})
		return
	}
	day := c.Query("date")
	if day == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}
	ms, err := h.svc.MovementsForEmployee(c.Request.Context(), uint(empID), day)
	if err != nil {
		writeError(c, err)
		return
	}
	if ms == nil {
		ms = []model.LocationMovement{}
	}
	c.JSON(http.StatusOK, ms)
}

// POST /api/task-assignments
func (h *LocationHandler) AssignTask(c *gin.Context) {
	var req model.TaskAssignment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.svc.AssignTask(c.Request.Context(), &req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// POST /api/task-assignments/:id/complete
func (h *LocationHandler) CompleteTask(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	t, err := h.svc.CompleteTask(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
