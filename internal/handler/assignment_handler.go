package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
	"github.com/hostelhq/maintenance-api/pkg/response"
)

type assignmentService interface {
	Reassign(ctx context.Context, requestID string, req dto.ReassignRequest, actorID string) (*models.Assignment, error)
	CloseOut(ctx context.Context, requestID string, actualHours float64, rating *int, note *string) (*models.Assignment, error)
	History(ctx context.Context, requestID string) ([]models.Assignment, error)
}

// AssignmentHandler exposes assignment history and hand-over endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler builds a new handler.
func NewAssignmentHandler(service assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

// History godoc
// @Summary List the assignment trail of a request
// @Tags Assignments
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/assignments [get]
func (h *AssignmentHandler) History(c *gin.Context) {
	assignments, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Reassign godoc
// @Summary Replace the active assignee
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReassignRequest true "Reassignment payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/reassign [post]
func (h *AssignmentHandler) Reassign(c *gin.Context) {
	var req dto.ReassignRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reassignment payload"))
		return
	}
	assignment, err := h.service.Reassign(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// CloseOut godoc
// @Summary Close the active assignment without a completion record
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.CloseOutAssignmentRequest true "Close-out payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/assignments/close [post]
func (h *AssignmentHandler) CloseOut(c *gin.Context) {
	var req dto.CloseOutAssignmentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid close-out payload"))
		return
	}
	assignment, err := h.service.CloseOut(c.Request.Context(), c.Param("id"), req.ActualHours, req.QualityRating, req.CompletionNote)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}
