package handler

import (
	"net/http"
	"strconv"

	"presence-track/internal/model"
	"presence-track/internal/store"

	"github.com/gin-gonic/gin"
)

// AdminHandler covers the minimal reference-data CRUD the tracking API
// needs: employees and locations.
type AdminHandler struct {
	employees store.EmployeeStore
	locations store.LocationStore
}

func NewAdminHandler(s *store.Stores) *AdminHandler {
	return &AdminHandler{employees: s.Employees, locations: s.Locations}
}

// POST /api/employees
func (h *AdminHandler) CreateEmployee(c *gin.Context) {
	var req model.Employee
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.Active = true
	if err := h.employees.Create(c.Request.Context(), &req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// GET /api/employees?department=
func (h *AdminHandler) ListEmployees(c *gin.Context) {
	emps, err := h.employees.List(c.Request.Context(), c.Query("department"))
	if err != nil {
		writeError(c, err)
		return
	}
	if emps == nil {
		emps = []model.Employee{}
	}
	c.JSON(http.StatusOK, emps)
}

// GET /api/employees/:id
func (h *AdminHandler) GetEmployee(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	emp, err := h.employees.Get(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

// POST /api/locations
func (h *AdminHandler) CreateLocation(c *gin.Context) {
	var req model.Location
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.Active = true
	if err := h.locations.Create(c.Request.Context(), &req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// GET /api/locations
func (h *AdminHandler) ListLocations(c *gin.Context) {
	locs, err := h.locations.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if locs == nil {
		locs = []model.Location{}
	}
	c.JSON(http.StatusOK, locs)
}
