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

type costService interface {
	RecordActual(ctx context.Context, requestID string, req dto.RecordCostRequest, actorID string) (*models.CostRecord, error)
	GetByRequest(ctx context.Context, requestID string) (*models.CostRecord, error)
	ListOverBudget(ctx context.Context, hostelID string) ([]models.CostRecord, error)
}

// CostHandler exposes the cost ledger endpoints.
type CostHandler struct {
	service  costService
	exporter *export.CSVExporter
}

// NewCostHandler builds a new handler.
func NewCostHandler(service costService, exporter *export.CSVExporter) *CostHandler {
	return &CostHandler{service: service, exporter: exporter}
}

// Record godoc
// @Summary Record the actual spend for a request
// @Tags Costs
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RecordCostRequest true "Cost payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/costs [put]
func (h *CostHandler) Record(c *gin.Context) {
	var req dto.RecordCostRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cost payload"))
		return
	}
	record, err := h.service.RecordActual(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Get godoc
// @Summary Get the cost record of a request
// @Tags Costs
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/costs [get]
func (h *CostHandler) Get(c *gin.Context) {
	record, err := h.service.GetByRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// ListOverBudget godoc
// @Summary List requests that spent over their approved budget
// @Tags Costs
// @Produce json
// @Param hostelId query string false "Hostel ID"
// @Success 200 {object} response.Envelope
// @Router /costs/over-budget [get]
func (h *CostHandler) ListOverBudget(c *gin.Context) {
	records, err := h.service.ListOverBudget(c.Request.Context(), c.Query("hostelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ExportOverBudget godoc
// @Summary Export over-budget cost records as CSV
// @Tags Costs
// @Produce text/csv
// @Param hostelId query string false "Hostel ID"
// @Success 200 {string} string
// @Router /costs/over-budget/export [get]
func (h *CostHandler) ExportOverBudget(c *gin.Context) {
	records, err := h.service.ListOverBudget(c.Request.Context(), c.Query("hostelId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	data := export.Dataset{
		Headers: []string{"request_id", "estimated_cost", "approved_cost", "actual_cost", "variance", "variance_percent", "recorded_by", "updated_at"},
	}
	for i := range records {
		r := &records[i]
		data.Rows = append(data.Rows, map[string]string{
			"request_id":       r.RequestID,
			"estimated_cost":   r.EstimatedCost.StringFixed(2),
			"approved_cost":    r.ApprovedCost.StringFixed(2),
			"actual_cost":      r.ActualCost.StringFixed(2),
			"variance":         r.Variance.StringFixed(2),
			"variance_percent": fmt.Sprintf("%.2f", r.VariancePercent),
			"recorded_by":      r.RecordedBy,
			"updated_at":       r.UpdatedAt.Format(time.RFC3339),
		})
	}

	payload, err := h.exporter.Render(data)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
		return
	}
	filename := h.exporter.Filename("over-budget", time.Now().UTC())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}
