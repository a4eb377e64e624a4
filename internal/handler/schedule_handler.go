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

type scheduleService interface {
	Create(ctx context.Context, req dto.CreateScheduleRequest, actorID string) (*models.Schedule, error)
	Get(ctx context.Context, scheduleID string) (*models.Schedule, error)
	ListByHostel(ctx context.Context, hostelID string) ([]models.Schedule, error)
	Executions(ctx context.Context, scheduleID string) ([]models.ScheduleExecution, error)
	RecordExecution(ctx context.Context, scheduleID string, req dto.RecordExecutionRequest, actorID string) (*models.ScheduleExecution, error)
	SetActive(ctx context.Context, scheduleID string, active bool) error
	Sweep(ctx context.Context) (int, error)
}

// ScheduleHandler exposes the preventive-maintenance schedule endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler builds a new handler.
func NewScheduleHandler(service scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// Create godoc
// @Summary Register a preventive-maintenance schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// List godoc
// @Summary List schedules for a hostel
// @Tags Schedules
// @Produce json
// @Param hostelId query string true "Hostel ID"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	hostelID := c.Query("hostelId")
	if hostelID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "hostelId is required"))
		return
	}
	schedules, err := h.service.ListByHostel(c.Request.Context(), hostelID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Get godoc
// @Summary Get a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Executions godoc
// @Summary List executions of a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/executions [get]
func (h *ScheduleHandler) Executions(c *gin.Context) {
	executions, err := h.service.Executions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, executions, nil)
}

// RecordExecution godoc
// @Summary Record one run of a schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.RecordExecutionRequest true "Execution payload"
// @Success 201 {object} response.Envelope
// @Router /schedules/{id}/executions [post]
func (h *ScheduleHandler) RecordExecution(c *gin.Context) {
	var req dto.RecordExecutionRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid execution payload"))
		return
	}
	execution, err := h.service.RecordExecution(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, execution)
}

// SetActive godoc
// @Summary Pause or resume a schedule
// @Tags Schedules
// @Accept json
// @Param id path string true "Schedule ID"
// @Param payload body dto.SetScheduleActiveRequest true "Active flag"
// @Success 204
// @Router /schedules/{id}/active [patch]
func (h *ScheduleHandler) SetActive(c *gin.Context) {
	var req dto.SetScheduleActiveRequest
	if err := bindJSON(c, &req); err != nil || req.Active == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active flag is required"))
		return
	}
	if err := h.service.SetActive(c.Request.Context(), c.Param("id"), *req.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Sweep godoc
// @Summary Generate requests for all due schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /scheduler/sweep [post]
func (h *ScheduleHandler) Sweep(c *gin.Context) {
	created, err := h.service.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"created": created}, nil)
}
