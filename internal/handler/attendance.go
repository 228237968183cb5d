package handler

import (
	"net/http"
	"strconv"
	"strings"

	"presence-track/internal/model"
	"presence-track/internal/service"

	"github.com/gin-gonic/gin"
)

type AttendanceHandler struct {
	svc *service.AttendanceService
}

func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

// PATCH /api/attendance-records  body: {"edits":[{...}],"actor":"..."}
//
// Applies atomically per employee-day; the response enumerates both the
// updated records and any employee-days whose whole sub-batch was rejected.
func (h *AttendanceHandler) Patch(c *gin.Context) {
	var req model.BatchEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	res, err := h.svc.ApplyBatch(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if len(res.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, res)
}

// GET /api/attendance-records?employee=&date=   one materialized record
// GET /api/attendance-records?from=&to=&employees=   range listing
func (h *AttendanceHandler) List(c *gin.Context) {
	if emp, date := c.Query("employee"), c.Query("date"); emp != "" && date != "" {
		id, err := strconv.ParseUint(emp, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee"})
			return
		}
		rec, err := h.svc.Get(c.Request.Context(), uint(id), date)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
		return
	}

	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}
	var ids []uint
	if raw := c.Query("employees"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id " + part})
				return
			}
			ids = append(ids, uint(id))
		}
	}
	records, err := h.svc.ListRange(c.Request.Context(), from, to, ids)
	if err != nil {
		writeError(c, err)
		return
	}
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, records)
}
