package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pointwatch/swtd-api/internal/points"
	"github.com/pointwatch/swtd-api/internal/service"
	appErrors "github.com/pointwatch/swtd-api/pkg/errors"
	"github.com/pointwatch/swtd-api/pkg/response"
)

// ClearanceHandler handles clearance decision and override endpoints.
type ClearanceHandler struct {
	service *service.ClearanceService
}

// NewClearanceHandler creates a new clearance handler.
func NewClearanceHandler(svc *service.ClearanceService) *ClearanceHandler {
	return &ClearanceHandler{service: svc}
}

// Decision godoc
// @Summary Clearance decision
// @Description Compute the authoritative clearance verdict for an employee and term
// @Tags Clearance
// @Produce json
// @Param id path string true "Employee ID"
// @Param term_id query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clearance/{id} [get]
func (h *ClearanceHandler) Decision(c *gin.Context) {
	termID := c.Query("term_id")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term_id required"))
		return
	}

	decision, err := h.service.Decision(c.Request.Context(), c.Param("id"), termID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, decision, nil)
}

// Grant godoc
// @Summary Grant clearance override
// @Description Mark an employee cleared for a term regardless of points
// @Tags Clearance
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param term_id query string true "Term ID"
// @Param payload body service.OverrideRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clearance/{id}/grant [post]
func (h *ClearanceHandler) Grant(c *gin.Context) {
	h.override(c, h.service.Grant)
}

// Revoke godoc
// @Summary Revoke clearance
// @Description Mark an employee NOT cleared for a term regardless of points
// @Tags Clearance
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param term_id query string true "Term ID"
// @Param payload body service.OverrideRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clearance/{id}/revoke [post]
func (h *ClearanceHandler) Revoke(c *gin.Context) {
	h.override(c, h.service.Revoke)
}

// ClearOverride godoc
// @Summary Remove clearance override
// @Description Remove an explicit override, restoring the computed verdict
// @Tags Clearance
// @Produce json
// @Param id path string true "Employee ID"
// @Param term_id query string true "Term ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clearance/{id}/override [delete]
func (h *ClearanceHandler) ClearOverride(c *gin.Context) {
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

	if err := h.service.ClearOverride(c.Request.Context(), claims.UserID, c.Param("id"), termID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

type overrideFunc func(ctx context.Context, adminID, employeeID, termID string, req service.OverrideRequest) (*points.ClearanceDecision, error)

func (h *ClearanceHandler) override(c *gin.Context, apply overrideFunc) {
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

	var req service.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}

	decision, err := apply(c.Request.Context(), claims.UserID, c.Param("id"), termID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, decision, nil)
}
