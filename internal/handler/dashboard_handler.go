package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pointwatch/swtd-api/internal/middleware"
	"github.com/pointwatch/swtd-api/internal/models"
	"github.com/pointwatch/swtd-api/internal/service"
	appErrors "github.com/pointwatch/swtd-api/pkg/errors"
	"github.com/pointwatch/swtd-api/pkg/response"
)

// DashboardHandler handles compliance dashboard endpoints.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Employee godoc
// @Summary Employee dashboard
// @Description Point totals, clearance state, and submission history for one employee
// @Tags Dashboards
// @Produce json
// @Param id path string true "Employee ID"
// @Param term_id query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboards/employees/{id} [get]
func (h *DashboardHandler) Employee(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	termID := c.Query("term_id")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term_id required"))
		return
	}

	employeeID := c.Param("id")
	if claims.Role == models.RoleStaff && employeeID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	board, err := h.service.Employee(c.Request.Context(), employeeID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, board, nil)
}

// Department godoc
// @Summary Department dashboard
// @Description Per-member clearance roster for one department and term
// @Tags Dashboards
// @Produce json
// @Param id path string true "Department ID"
// @Param term_id query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboards/departments/{id} [get]
func (h *DashboardHandler) Department(c *gin.Context) {
	termID := c.Query("term_id")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term_id required"))
		return
	}

	board, cacheHit, err := h.service.Department(c.Request.Context(), c.Param("id"), termID)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	response.JSON(c, http.StatusOK, board, nil, meta)
}

// HR godoc
// @Summary Institution dashboard
// @Description Institution-wide compliance rates per department for one term
// @Tags Dashboards
// @Produce json
// @Param term_id query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboards/hr [get]
func (h *DashboardHandler) HR(c *gin.Context) {
	termID := c.Query("term_id")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term_id required"))
		return
	}

	board, cacheHit, err := h.service.HR(c.Request.Context(), termID)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	response.JSON(c, http.StatusOK, board, nil, meta)
}
