package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
)

type approvalServiceMock struct {
	decideErr error
	overdue   []models.ApprovalRecord
}

func (m *approvalServiceMock) Get(ctx context.Context, approvalID string) (*models.ApprovalRecord, error) {
	return nil, appErrors.ErrNotFound
}

func (m *approvalServiceMock) ListByRequest(ctx context.Context, requestID string) ([]models.ApprovalRecord, error) {
	return nil, nil
}

func (m *approvalServiceMock) Decide(ctx context.Context, approvalID string, req dto.DecideApprovalRequest, actorID string) (*models.ApprovalRecord, error) {
	if m.decideErr != nil {
		return nil, m.decideErr
	}
	return &models.ApprovalRecord{ID: approvalID}, nil
}

func (m *approvalServiceMock) Escalate(ctx context.Context, approvalID string, req dto.EscalateApprovalRequest, actorID string) (*models.ApprovalRecord, error) {
	return &models.ApprovalRecord{ID: approvalID}, nil
}

func (m *approvalServiceMock) ListOverdue(ctx context.Context, hostelID string, olderThan time.Duration) ([]models.ApprovalRecord, error) {
	return m.overdue, nil
}

func TestApprovalHandlerDecideAlreadyProcessed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &approvalServiceMock{decideErr: appErrors.Clone(appErrors.ErrAlreadyProcessed, "")}
	handler := NewApprovalHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.DecideApprovalRequest{Approved: true})
	req, _ := http.NewRequest(http.MethodPost, "/approvals/apr-1/decision", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "apr-1"}}
	testActor(c)

	handler.Decide(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrAlreadyProcessed.Code, envelope.Error.Code)
}

func TestApprovalHandlerOverdueRejectsBadDuration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApprovalHandler(&approvalServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/approvals/overdue?olderThan=tomorrow", nil)
	c.Request = req
	testActor(c)

	handler.ListOverdue(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
