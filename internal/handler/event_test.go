package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"presence-track/internal/cache"
	"presence-track/internal/config"
	"presence-track/internal/model"
	"presence-track/internal/service"
	"presence-track/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.Stores) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stores := store.NewMemStores()
	emp := model.Employee{ID: 1, GivenName: "Ada", Surname: "Byron", Active: true}
	require.NoError(t, stores.Employees.Create(context.Background(), &emp))

	eventSvc := service.NewEventService(stores, cache.NewMemory(time.Minute), 2*time.Second, 30*time.Second)
	attendanceSvc := service.NewAttendanceService(stores, config.AttendanceConfig{
		LateAfter: "09:00", EarlyBefore: "17:00", FullDayHours: 7.5,
	})
	locationSvc := service.NewLocationService(stores)

	eventH := NewEventHandler(eventSvc, attendanceSvc, locationSvc)
	attendanceH := NewAttendanceHandler(attendanceSvc)

	r := gin.New()
	r.POST("/api/events", eventH.Append)
	r.GET("/api/status", eventH.Status)
	r.PATCH("/api/attendance-records", attendanceH.Patch)
	r.GET("/api/attendance-records", attendanceH.List)
	return r, stores
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAppendAndStatusRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/events", gin.H{"employee_id": 1, "type": "CLOCK_IN"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ev model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, model.EventClockIn, ev.Type)

	w = doJSON(t, r, http.MethodGet, "/api/status?employee=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.ClockedIn, resp.Status)
}

func TestAppendDuplicateIsConflict(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/events", gin.H{"employee_id": 1, "type": "CLOCK_IN"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/events", gin.H{"employee_id": 1, "type": "CLOCK_IN"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAppendFutureTimestampIsBadRequest(t *testing.T) {
	r, _ := newTestRouter(t)

	future := time.Now().UTC().Add(10 * time.Minute).Format(time.RFC3339)
	w := doJSON(t, r, http.MethodPost, "/api/events", gin.H{
		"employee_id": 1, "type": "CLOCK_IN", "timestamp": future,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppendUnknownEmployeeIsNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/events", gin.H{"employee_id": 99, "type": "CLOCK_IN"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAppendRefreshesAttendanceRecord(t *testing.T) {
	r, stores := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/events", gin.H{"employee_id": 1, "type": "CLOCK_IN"})
	require.Equal(t, http.StatusCreated, w.Code)

	day := model.DayOf(time.Now().UTC())
	rec, err := stores.Records.Get(context.Background(), 1, day)
	require.NoError(t, err)
	assert.NotNil(t, rec.ArrivalTime)
	assert.Equal(t, model.StatusIncomplete, rec.Status)
}

func TestGetSingleAttendanceRecord(t *testing.T) {
	r, _ := newTestRouter(t)
	day := model.DayOf(time.Now().UTC())

	w := doJSON(t, r, http.MethodGet, "/api/attendance-records?employee=1&date="+day, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "no record before any touch")

	w = doJSON(t, r, http.MethodPost, "/api/events", gin.H{"employee_id": 1, "type": "CLOCK_IN"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/attendance-records?employee=1&date="+day, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec model.AttendanceRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, uint(1), rec.EmployeeID)
	assert.NotNil(t, rec.ArrivalTime)
}

func TestPatchPartialFailureIsMultiStatus(t *testing.T) {
	r, _ := newTestRouter(t)

	day := model.DayOf(time.Now().UTC())
	w := doJSON(t, r, http.MethodPatch, "/api/attendance-records", gin.H{
		"edits": []gin.H{
			{"employee_id": 1, "day": day, "field": "standup", "value": "YES"},
			{"employee_id": 2, "day": day, "field": "standup", "value": "MAYBE"},
		},
	})
	require.Equal(t, http.StatusMultiStatus, w.Code)

	var res model.BatchEditResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Updated, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, uint(2), res.Failed[0].EmployeeID)
}
