package handler

import (
	"net/http"
	"strconv"

	"presence-track/internal/service"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	svc *service.AnalyticsService
}

func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// GET /api/analytics/patterns?from=&to=&department=
func (h *AnalyticsHandler) Patterns(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}
	resp, err := h.svc.Patterns(c.Request.Context(), from, to, c.Query("department"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/analytics/forecast?metric=attendance_score&horizon=7
func (h *AnalyticsHandler) Forecast(c *gin.Context) {
	horizon := 0
	if raw := c.Query("horizon"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid horizon"})
			return
		}
		horizon = n
	}
	resp, err := h.svc.Forecast(c.Request.Context(), c.Query("metric"), horizon)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
