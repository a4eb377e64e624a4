package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
	"github.com/hostelhq/maintenance-api/pkg/response"
)

type approvalService interface {
	Get(ctx context.Context, approvalID string) (*models.ApprovalRecord, error)
	ListByRequest(ctx context.Context, requestID string) ([]models.ApprovalRecord, error)
	Decide(ctx context.Context, approvalID string, req dto.DecideApprovalRequest, actorID string) (*models.ApprovalRecord, error)
	Escalate(ctx context.Context, approvalID string, req dto.EscalateApprovalRequest, actorID string) (*models.ApprovalRecord, error)
	ListOverdue(ctx context.Context, hostelID string, olderThan time.Duration) ([]models.ApprovalRecord, error)
}

// ApprovalHandler exposes the approval workflow endpoints.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler builds a new handler.
func NewApprovalHandler(service approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// Get godoc
// @Summary Get an approval record
// @Tags Approvals
// @Produce json
// @Param id path string true "Approval ID"
// @Success 200 {object} response.Envelope
// @Router /approvals/{id} [get]
func (h *ApprovalHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// ListByRequest godoc
// @Summary List approval records for a request
// @Tags Approvals
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/approvals [get]
func (h *ApprovalHandler) ListByRequest(c *gin.Context) {
	records, err := h.service.ListByRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Decide godoc
// @Summary Approve or reject an open approval
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval ID"
// @Param payload body dto.DecideApprovalRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /approvals/{id}/decision [post]
func (h *ApprovalHandler) Decide(c *gin.Context) {
	var req dto.DecideApprovalRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	record, err := h.service.Decide(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Escalate godoc
// @Summary Escalate an open approval to the next level
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval ID"
// @Param payload body dto.EscalateApprovalRequest true "Escalation payload"
// @Success 200 {object} response.Envelope
// @Router /approvals/{id}/escalate [post]
func (h *ApprovalHandler) Escalate(c *gin.Context) {
	var req dto.EscalateApprovalRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid escalation payload"))
		return
	}
	record, err := h.service.Escalate(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// ListOverdue godoc
// @Summary List approvals pending past the response deadline
// @Tags Approvals
// @Produce json
// @Param hostelId query string false "Hostel ID"
// @Param olderThan query string false "Age cutoff, e.g. 72h"
// @Success 200 {object} response.Envelope
// @Router /approvals/overdue [get]
func (h *ApprovalHandler) ListOverdue(c *gin.Context) {
	var olderThan time.Duration
	if raw := c.Query("olderThan"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "olderThan must be a positive duration"))
			return
		}
		olderThan = parsed
	}
	records, err := h.service.ListOverdue(c.Request.Context(), c.Query("hostelId"), olderThan)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
