package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/pkg/response"
)

type dashboardService interface {
	Overview(ctx context.Context, hostelID string) (*models.DashboardOverview, error)
	Invalidate(ctx context.Context, hostelID string)
}

type bottleneckDetector interface {
	DetectBottlenecks(ctx context.Context, hostelID string) (*models.BottleneckReport, error)
}

// DashboardHandler exposes the workload overview and bottleneck diagnostics.
type DashboardHandler struct {
	service  dashboardService
	detector bottleneckDetector
}

// NewDashboardHandler builds a new handler.
func NewDashboardHandler(service dashboardService, detector bottleneckDetector) *DashboardHandler {
	return &DashboardHandler{service: service, detector: detector}
}

// Overview godoc
// @Summary Get the hostel workload overview
// @Tags Dashboard
// @Produce json
// @Param hostelId query string false "Hostel ID, omit for all hostels"
// @Success 200 {object} response.Envelope
// @Router /dashboard/overview [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context(), c.Query("hostelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// Bottlenecks godoc
// @Summary Run the workflow bottleneck diagnostics
// @Tags Dashboard
// @Produce json
// @Param hostelId query string false "Hostel ID, omit for all hostels"
// @Success 200 {object} response.Envelope
// @Router /dashboard/bottlenecks [get]
func (h *DashboardHandler) Bottlenecks(c *gin.Context) {
	report, err := h.detector.DetectBottlenecks(c.Request.Context(), c.Query("hostelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Invalidate godoc
// @Summary Drop the cached overview so the next read rebuilds
// @Tags Dashboard
// @Param hostelId query string false "Hostel ID, omit for all hostels"
// @Success 204
// @Router /dashboard/invalidate [post]
func (h *DashboardHandler) Invalidate(c *gin.Context) {
	h.service.Invalidate(c.Request.Context(), c.Query("hostelId"))
	response.NoContent(c)
}
