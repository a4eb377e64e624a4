package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hostelhq/maintenance-api/internal/models"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
	"github.com/hostelhq/maintenance-api/pkg/response"
)

type hostelStore interface {
	GetByID(ctx context.Context, id string) (*models.Hostel, error)
	List(ctx context.Context) ([]models.Hostel, error)
}

// HostelHandler exposes the hostel reference data.
type HostelHandler struct {
	store hostelStore
}

// NewHostelHandler builds a new handler.
func NewHostelHandler(store hostelStore) *HostelHandler {
	return &HostelHandler{store: store}
}

// List godoc
// @Summary List hostels
// @Tags Hostels
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /hostels [get]
func (h *HostelHandler) List(c *gin.Context) {
	hostels, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hostels"))
		return
	}
	response.JSON(c, http.StatusOK, hostels, nil)
}

// Get godoc
// @Summary Get a hostel with its approval thresholds
// @Tags Hostels
// @Produce json
// @Param id path string true "Hostel ID"
// @Success 200 {object} response.Envelope
// @Router /hostels/{id} [get]
func (h *HostelHandler) Get(c *gin.Context) {
	hostel, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "hostel not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hostel"))
		return
	}
	response.JSON(c, http.StatusOK, hostel, nil)
}
