package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
	"github.com/hostelhq/maintenance-api/pkg/export"
	"github.com/hostelhq/maintenance-api/pkg/response"
)

type workflowService interface {
	Create(ctx context.Context, req dto.CreateRequestRequest, actorID string) (*models.MaintenanceRequest, error)
	Get(ctx context.Context, requestID string) (*models.MaintenanceRequest, error)
	List(ctx context.Context, query dto.RequestQuery) ([]models.MaintenanceRequest, error)
	History(ctx context.Context, requestID string) ([]models.StatusHistoryEntry, error)
	Transition(ctx context.Context, requestID string, req dto.TransitionRequest, actorID string) (*models.MaintenanceRequest, error)
	Assign(ctx context.Context, requestID string, req dto.AssignRequest, pool []models.Candidate, actorID string) (*models.MaintenanceRequest, error)
	Delete(ctx context.Context, requestID string, actorID string) error
}

// RequestHandler exposes the maintenance request lifecycle endpoints.
type RequestHandler struct {
	service  workflowService
	exporter *export.CSVExporter
}

// NewRequestHandler builds a new handler.
func NewRequestHandler(service workflowService, exporter *export.CSVExporter) *RequestHandler {
	return &RequestHandler{service: service, exporter: exporter}
}

// Create godoc
// @Summary Open a maintenance request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var req dto.CreateRequestRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}
	request, err := h.service.Create(c.Request.Context(), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List maintenance requests
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	var query dto.RequestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid listing filters"))
		return
	}
	requests, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Export godoc
// @Summary Export maintenance requests as CSV
// @Tags Requests
// @Produce text/csv
// @Success 200 {string} string
// @Router /requests/export [get]
func (h *RequestHandler) Export(c *gin.Context) {
	var query dto.RequestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid listing filters"))
		return
	}
	requests, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	data := export.Dataset{
		Headers: []string{"request_number", "hostel_id", "title", "category", "issue_type", "priority", "status", "estimated_cost", "assigned_to", "created_at"},
	}
	for i := range requests {
		r := &requests[i]
		assignedTo := ""
		if r.AssignedTo != nil {
			assignedTo = *r.AssignedTo
		}
		data.Rows = append(data.Rows, map[string]string{
			"request_number": r.RequestNumber,
			"hostel_id":      r.HostelID,
			"title":          r.Title,
			"category":       string(r.Category),
			"issue_type":     string(r.IssueType),
			"priority":       string(r.Priority),
			"status":         string(r.Status),
			"estimated_cost": r.EstimatedCost.StringFixed(2),
			"assigned_to":    assignedTo,
			"created_at":     r.CreatedAt.Format(time.RFC3339),
		})
	}

	payload, err := h.exporter.Render(data)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
		return
	}
	filename := h.exporter.Filename("maintenance-requests", time.Now().UTC())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

// Get godoc
// @Summary Get a maintenance request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// History godoc
// @Summary Get the status trail of a request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/history [get]
func (h *RequestHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Transition godoc
// @Summary Move a request to a new status
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/transition [post]
func (h *RequestHandler) Transition(c *gin.Context) {
	var req dto.TransitionRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}
	request, err := h.service.Transition(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Assign godoc
// @Summary Assign a request to staff or a vendor
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AssignPayload true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/assign [post]
func (h *RequestHandler) Assign(c *gin.Context) {
	var req dto.AssignPayload
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	request, err := h.service.Assign(c.Request.Context(), c.Param("id"), req.AssignRequest, req.Pool, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Delete godoc
// @Summary Soft-delete a terminal request
// @Tags Requests
// @Param id path string true "Request ID"
// @Success 204
// @Router /requests/{id} [delete]
func (h *RequestHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorIDFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
