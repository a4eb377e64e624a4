package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/middleware"
	"github.com/hostelhq/maintenance-api/internal/models"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
	"github.com/hostelhq/maintenance-api/pkg/export"
)

type workflowServiceMock struct {
	createResp     *models.MaintenanceRequest
	createErr      error
	listResp       []models.MaintenanceRequest
	transitionErr  error
	transitionResp *models.MaintenanceRequest
}

func (m *workflowServiceMock) Create(ctx context.Context, req dto.CreateRequestRequest, actorID string) (*models.MaintenanceRequest, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createResp, nil
}

func (m *workflowServiceMock) Get(ctx context.Context, requestID string) (*models.MaintenanceRequest, error) {
	return m.createResp, nil
}

func (m *workflowServiceMock) List(ctx context.Context, query dto.RequestQuery) ([]models.MaintenanceRequest, error) {
	return m.listResp, nil
}

func (m *workflowServiceMock) History(ctx context.Context, requestID string) ([]models.StatusHistoryEntry, error) {
	return nil, nil
}

func (m *workflowServiceMock) Transition(ctx context.Context, requestID string, req dto.TransitionRequest, actorID string) (*models.MaintenanceRequest, error) {
	if m.transitionErr != nil {
		return nil, m.transitionErr
	}
	return m.transitionResp, nil
}

func (m *workflowServiceMock) Assign(ctx context.Context, requestID string, req dto.AssignRequest, pool []models.Candidate, actorID string) (*models.MaintenanceRequest, error) {
	return m.createResp, nil
}

func (m *workflowServiceMock) Delete(ctx context.Context, requestID string, actorID string) error {
	return nil
}

func testActor(c *gin.Context) {
	c.Set(middleware.ContextActorKey, &models.ActorClaims{ActorID: "warden-1", Role: models.RoleWarden})
}

func TestRequestHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&workflowServiceMock{}, export.NewCSVExporter())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/requests", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	testActor(c)

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &workflowServiceMock{createResp: &models.MaintenanceRequest{
		ID:            "req-1",
		RequestNumber: "MNT-2024-05-0001",
		Status:        models.StatusApproved,
	}}
	handler := NewRequestHandler(mock, export.NewCSVExporter())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.CreateRequestRequest{
		HostelID:      "6f1b9f2e-54d1-4c8f-9a43-1f0b5a2f9e10",
		Title:         "Leaking tap in common washroom",
		Description:   "Continuous drip from the corner basin tap",
		Category:      models.CategoryPlumbing,
		IssueType:     models.IssueBreakdown,
		Priority:      models.PriorityMedium,
		EstimatedCost: decimal.NewFromInt(250),
	})
	req, _ := http.NewRequest(http.MethodPost, "/requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	testActor(c)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.MaintenanceRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "MNT-2024-05-0001", envelope.Data.RequestNumber)
}

func TestRequestHandlerTransitionConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &workflowServiceMock{transitionErr: appErrors.InvalidTransition("COMPLETED", "IN_PROGRESS")}
	handler := NewRequestHandler(mock, export.NewCSVExporter())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.TransitionRequest{ToStatus: models.StatusInProgress})
	req, _ := http.NewRequest(http.MethodPost, "/requests/req-1/transition", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	testActor(c)

	handler.Transition(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, envelope.Error.Code)
}

func TestRequestHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	assignee := "staff-1"
	mock := &workflowServiceMock{listResp: []models.MaintenanceRequest{{
		RequestNumber: "MNT-2024-05-0001",
		HostelID:      "h-1",
		Title:         "Corridor light flickering",
		Category:      models.CategoryElectrical,
		IssueType:     models.IssueRoutine,
		Priority:      models.PriorityLow,
		Status:        models.StatusAssigned,
		EstimatedCost: decimal.NewFromInt(120),
		AssignedTo:    &assignee,
	}}}
	handler := NewRequestHandler(mock, export.NewCSVExporter())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/requests/export", nil)
	c.Request = req
	testActor(c)

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "request_number")
	assert.Contains(t, w.Body.String(), "MNT-2024-05-0001")
}
