package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"presence-track/internal/model"
	"presence-track/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	events     *service.EventService
	attendance *service.AttendanceService
	locations  *service.LocationService
}

func NewEventHandler(ev *service.EventService, at *service.AttendanceService, loc *service.LocationService) *EventHandler {
	return &EventHandler{events: ev, attendance: at, locations: loc}
}

// POST /api/events  body: {"employee_id":1,"type":"CLOCK_IN",...}
//
// A successful append also refreshes the employee-day's attendance record
// and movement set, so reads after a write see current projections.
func (h *EventHandler) Append(c *gin.Context) {
	var req model.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	ev, err := h.events.Append(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	day := model.DayOf(ev.Timestamp)
	if _, err := h.attendance.Touch(c.Request.Context(), ev.EmployeeID, day); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.locations.DeriveMovements(c.Request.Context(), ev.EmployeeID, day); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ev)
}

// GET /api/status?employee=1
func (h *EventHandler) Status(c *gin.Context) {
	id, err := strconv.ParseUint(c.Query("employee"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee"})
		return
	}
	resp, err := h.events.CurrentStatus(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/status/bulk?employees=1,2,3
func (h *EventHandler) StatusBulk(c *gin.Context) {
	raw := c.Query("employees")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "employees is required"})
		return
	}
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id " + part})
			return
		}
		ids = append(ids, uint(id))
	}
	resp, err := h.events.CurrentStatusBulk(c.Request.Context(), ids)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/events/summary?date=2026-08-30
func (h *EventHandler) Summary(c *gin.Context) {
	day := c.Query("date")
	if day == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}
	sum, err := h.events.DaySummary(c.Request.Context(), day)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// writeError maps the service error taxonomy to status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidTimestamp):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrDuplicateSubmission):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
