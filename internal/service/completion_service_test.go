package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/pkg/config"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
)

var completionNow = time.Date(2024, time.July, 20, 15, 0, 0, 0, time.UTC)

// transitionerStub enforces the request state machine the way the workflow
// engine does, without pulling the whole engine into these tests.
type transitionerStub struct {
	requests *requestRepoStub
}

func (t *transitionerStub) Transition(ctx context.Context, requestID string, req dto.TransitionRequest, actorID string) (*models.MaintenanceRequest, error) {
	request, err := t.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "maintenance request not found")
	}
	if !models.CanTransition(request.Status, req.ToStatus) {
		return nil, appErrors.InvalidTransition(string(request.Status), string(req.ToStatus))
	}
	t.requests.requests[requestID].Status = req.ToStatus
	request.Status = req.ToStatus
	return request, nil
}

type completionEnv struct {
	svc         *CompletionService
	completions *completionRepoStub
	requests    *requestRepoStub
	assignments *assignmentRepoStub
	costs       *costRepoStub
	sequences   *sequenceStub
	renderer    *rendererStub
	storage     *storageStub
	emitter     *emitterStub
}

func newCompletionEnv(t *testing.T) *completionEnv {
	t.Helper()
	completions := newCompletionRepoStub()
	requests := newRequestRepoStub()
	assignments := newAssignmentRepoStub()
	costs := newCostRepoStub()
	sequences := newSequenceStub()
	renderer := &rendererStub{}
	storage := newStorageStub()
	emitter := &emitterStub{}

	clock := FixedClock{Instant: completionNow}
	costSvc := NewCostService(costs, requests, newApprovalRepoStub(), &auditStub{}, config.CostConfig{ComponentTolerance: 1.00, MaterialTolerance: 0.01}, clock, nil)
	assignSvc := NewAssignmentService(assignments, requests, &auditStub{}, clock, nil)

	svc := NewCompletionService(
		completions,
		requests,
		newHostelRepoStub(&models.Hostel{ID: "h-1", Name: "North Block"}),
		&transitionerStub{requests: requests},
		assignSvc,
		costSvc,
		sequences,
		renderer,
		storage,
		&auditStub{},
		emitter,
		config.CostConfig{ComponentTolerance: 1.00, MaterialTolerance: 0.01},
		config.CertificatesConfig{IssuerName: "HostelHQ Maintenance"},
		clock,
		nil,
	)
	return &completionEnv{
		svc:         svc,
		completions: completions,
		requests:    requests,
		assignments: assignments,
		costs:       costs,
		sequences:   sequences,
		renderer:    renderer,
		storage:     storage,
		emitter:     emitter,
	}
}

func (e *completionEnv) seedInProgress(t *testing.T) *models.MaintenanceRequest {
	t.Helper()
	request := &models.MaintenanceRequest{
		HostelID:      "h-1",
		RequestNumber: "MNT-2024-07-0001",
		Status:        models.StatusInProgress,
		EstimatedCost: decimal.RequireFromString("1000"),
	}
	require.NoError(t, e.requests.Create(context.Background(), request))
	return request
}

func validCompleteRequest() dto.CompleteWorkRequest {
	return dto.CompleteWorkRequest{
		WorkNotes:  "Replaced the corroded inlet valve and flushed both lines",
		LaborHours: 3.5,
		Materials: []dto.MaterialItemRequest{
			{
				Name:      "Inlet valve",
				Quantity:  decimal.NewFromInt(2),
				UnitCost:  decimal.RequireFromString("150"),
				TotalCost: decimal.RequireFromString("300"),
			},
		},
		Costs: dto.RecordCostRequest{
			ActualCost: decimal.RequireFromString("800"),
			Materials:  decimal.RequireFromString("300"),
			Labor:      decimal.RequireFromString("500"),
		},
	}
}

func TestComplete(t *testing.T) {
	env := newCompletionEnv(t)
	request := env.seedInProgress(t)

	assignSvc := NewAssignmentService(env.assignments, env.requests, &auditStub{}, FixedClock{Instant: completionNow}, nil)
	_, err := assignSvc.Assign(context.Background(), request, dto.AssignRequest{AssigneeID: "staff-a", EstimatedHours: 4}, "supervisor-1")
	require.NoError(t, err)

	record, err := env.svc.Complete(context.Background(), request.ID, validCompleteRequest(), "staff-a")
	require.NoError(t, err)
	require.Equal(t, request.ID, record.RequestID)
	require.Len(t, record.Materials, 1)
	require.True(t, record.ActualCost.Equal(decimal.RequireFromString("800")))

	stored, err := env.requests.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, stored.Status)

	// The active assignment is closed with the stated labor hours.
	_, err = env.assignments.GetActiveByRequest(context.Background(), request.ID, "")
	require.ErrorIs(t, err, sql.ErrNoRows)

	// The cost ledger carries the same actuals.
	cost, err := env.costs.GetByRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.True(t, cost.ActualCost.Equal(decimal.RequireFromString("800")))

	require.Len(t, env.emitter.byType(models.EventRequestCompleted), 1)
}

func TestCompleteWithoutActiveAssignment(t *testing.T) {
	env := newCompletionEnv(t)
	request := env.seedInProgress(t)

	// No assignment seeded: completion still goes through.
	_, err := env.svc.Complete(context.Background(), request.ID, validCompleteRequest(), "staff-a")
	require.NoError(t, err)
}

func TestCompleteRejectsShortWorkNotes(t *testing.T) {
	env := newCompletionEnv(t)
	request := env.seedInProgress(t)

	req := validCompleteRequest()
	req.WorkNotes = "done."
	_, err := env.svc.Complete(context.Background(), request.ID, req, "staff-a")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCompleteRejectsNonPositiveLaborHours(t *testing.T) {
	env := newCompletionEnv(t)
	request := env.seedInProgress(t)

	req := validCompleteRequest()
	req.LaborHours = 0
	_, err := env.svc.Complete(context.Background(), request.ID, req, "staff-a")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCompleteRejectsMaterialLineMismatch(t *testing.T) {
	env := newCompletionEnv(t)
	request := env.seedInProgress(t)

	req := validCompleteRequest()
	req.Materials = []dto.MaterialItemRequest{{
		Name:      "PVC pipe",
		Quantity:  decimal.NewFromInt(10),
		UnitCost:  decimal.RequireFromString("5.00"),
		TotalCost: decimal.RequireFromString("40.00"),
	}}
	req.Costs.Materials = decimal.RequireFromString("40.00")

	_, err := env.svc.Complete(context.Background(), request.ID, req, "staff-a")
	require.True(t, appErrors.Is(err, appErrors.ErrCostMismatch))
}

func TestCompleteRejectsAggregateMaterialMismatch(t *testing.T) {
	env := newCompletionEnv(t)
	request := env.seedInProgress(t)

	req := validCompleteRequest()
	// Lines sum to 300 but the breakdown claims 305.
	req.Costs.Materials = decimal.RequireFromString("305")
	req.Costs.Labor = decimal.RequireFromString("495")

	_, err := env.svc.Complete(context.Background(), request.ID, req, "staff-a")
	require.True(t, appErrors.Is(err, appErrors.ErrCostMismatch))
}

func TestCompleteCostMismatchLeavesRequestRecoverable(t *testing.T) {
	env := newCompletionEnv(t)
	request := env.seedInProgress(t)

	assignSvc := NewAssignmentService(env.assignments, env.requests, &auditStub{}, FixedClock{Instant: completionNow}, nil)
	_, err := assignSvc.Assign(context.Background(), request, dto.AssignRequest{AssigneeID: "staff-a", EstimatedHours: 4}, "supervisor-1")
	require.NoError(t, err)

	// Components sum to 400 against an actual of 800.
	req := validCompleteRequest()
	req.Costs.Labor = decimal.RequireFromString("100")

	_, err = env.svc.Complete(context.Background(), request.ID, req, "staff-a")
	require.True(t, appErrors.Is(err, appErrors.ErrCostMismatch))

	// The failed completion must not strand the request in terminal state.
	stored, err := env.requests.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, stored.Status)

	_, err = env.completions.GetByRequest(context.Background(), request.ID)
	require.ErrorIs(t, err, sql.ErrNoRows)

	// The assignment stays open, so the work can still be finished.
	active, err := env.assignments.GetActiveByRequest(context.Background(), request.ID, "")
	require.NoError(t, err)
	require.Equal(t, "staff-a", active.AssigneeID)

	fixed := validCompleteRequest()
	_, err = env.svc.Complete(context.Background(), request.ID, fixed, "staff-a")
	require.NoError(t, err)
}

func TestCompleteRequiresInProgressRequest(t *testing.T) {
	env := newCompletionEnv(t)
	request := &models.MaintenanceRequest{
		HostelID:      "h-1",
		Status:        models.StatusAssigned,
		EstimatedCost: decimal.RequireFromString("1000"),
	}
	require.NoError(t, env.requests.Create(context.Background(), request))

	_, err := env.svc.Complete(context.Background(), request.ID, validCompleteRequest(), "staff-a")
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestCompleteTwiceConflicts(t *testing.T) {
	env := newCompletionEnv(t)
	request := env.seedInProgress(t)

	_, err := env.svc.Complete(context.Background(), request.ID, validCompleteRequest(), "staff-a")
	require.NoError(t, err)

	_, err = env.svc.Complete(context.Background(), request.ID, validCompleteRequest(), "staff-a")
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func (e *completionEnv) seedCompletion(t *testing.T) *models.CompletionRecord {
	t.Helper()
	request := e.seedInProgress(t)
	record, err := e.svc.Complete(context.Background(), request.ID, validCompleteRequest(), "staff-a")
	require.NoError(t, err)
	return record
}

func TestRecordQualityCheck(t *testing.T) {
	env := newCompletionEnv(t)
	completion := env.seedCompletion(t)

	check, err := env.svc.RecordQualityCheck(context.Background(), completion.ID, dto.QualityCheckRequest{
		Passed: true,
		Checklist: models.Checklist{
			{Item: "no leaks under pressure", Passed: true, Critical: true},
			{Item: "area cleaned up", Passed: true},
		},
	}, "supervisor-1")
	require.NoError(t, err)
	require.True(t, check.Passed)
	require.Len(t, check.Checklist, 2)
}

func TestQualityCheckCriticalFailureForcesFail(t *testing.T) {
	env := newCompletionEnv(t)
	completion := env.seedCompletion(t)

	_, err := env.svc.RecordQualityCheck(context.Background(), completion.ID, dto.QualityCheckRequest{
		Passed: true,
		Checklist: models.Checklist{
			{Item: "no leaks under pressure", Passed: false, Critical: true},
		},
	}, "supervisor-1")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestQualityCheckReworkRules(t *testing.T) {
	env := newCompletionEnv(t)
	completion := env.seedCompletion(t)
	future := completionNow.Add(48 * time.Hour)
	past := completionNow.Add(-time.Hour)

	// Rework on a passed check is contradictory.
	_, err := env.svc.RecordQualityCheck(context.Background(), completion.ID, dto.QualityCheckRequest{
		Passed:         true,
		Checklist:      models.Checklist{{Item: "paint finish", Passed: true}},
		ReworkRequired: true,
		ReworkDetails:  "repaint the patch",
		ReworkDeadline: &future,
	}, "supervisor-1")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))

	// Rework needs details.
	_, err = env.svc.RecordQualityCheck(context.Background(), completion.ID, dto.QualityCheckRequest{
		Passed:         false,
		Checklist:      models.Checklist{{Item: "paint finish", Passed: false}},
		ReworkRequired: true,
		ReworkDeadline: &future,
	}, "supervisor-1")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))

	// Rework deadline must be in the future.
	_, err = env.svc.RecordQualityCheck(context.Background(), completion.ID, dto.QualityCheckRequest{
		Passed:         false,
		Checklist:      models.Checklist{{Item: "paint finish", Passed: false}},
		ReworkRequired: true,
		ReworkDetails:  "repaint the patch",
		ReworkDeadline: &past,
	}, "supervisor-1")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))

	check, err := env.svc.RecordQualityCheck(context.Background(), completion.ID, dto.QualityCheckRequest{
		Passed:         false,
		Checklist:      models.Checklist{{Item: "paint finish", Passed: false}},
		ReworkRequired: true,
		ReworkDetails:  "repaint the patch",
		ReworkDeadline: &future,
	}, "supervisor-1")
	require.NoError(t, err)
	require.True(t, check.ReworkRequired)
	require.Equal(t, "repaint the patch", *check.ReworkDetails)
}

func validCertificateRequest() dto.IssueCertificateRequest {
	return dto.IssueCertificateRequest{
		WorkSummary:      "Inlet valve replacement verified under pressure",
		WorkStartDate:    completionNow.Add(-72 * time.Hour),
		VerificationDate: completionNow,
		VerifiedBy:       "supervisor-1",
	}
}

func TestIssueCertificate(t *testing.T) {
	env := newCompletionEnv(t)
	completion := env.seedCompletion(t)

	cert, err := env.svc.IssueCertificate(context.Background(), completion.ID, validCertificateRequest(), "admin-1")
	require.NoError(t, err)
	require.Equal(t, "CERT-2024-07-0001", cert.CertificateNumber)
	require.Equal(t, completionNow, cert.IssueDate)
	require.NotNil(t, cert.FilePath)
	require.Contains(t, *cert.FilePath, cert.CertificateNumber)

	require.Len(t, env.renderer.rendered, 1)
	require.Equal(t, "North Block", env.renderer.rendered[0].HostelName)
	require.Contains(t, env.storage.saved, cert.CertificateNumber+".pdf")
	require.Len(t, env.emitter.byType(models.EventCertificateIssued), 1)
}

func TestIssueCertificateSequencePerMonth(t *testing.T) {
	env := newCompletionEnv(t)

	first := env.seedCompletion(t)
	second := env.seedCompletion(t)

	certA, err := env.svc.IssueCertificate(context.Background(), first.ID, validCertificateRequest(), "admin-1")
	require.NoError(t, err)
	certB, err := env.svc.IssueCertificate(context.Background(), second.ID, validCertificateRequest(), "admin-1")
	require.NoError(t, err)
	require.Equal(t, "CERT-2024-07-0001", certA.CertificateNumber)
	require.Equal(t, "CERT-2024-07-0002", certB.CertificateNumber)
}

func TestIssueCertificateDateOrdering(t *testing.T) {
	env := newCompletionEnv(t)
	completion := env.seedCompletion(t)

	req := validCertificateRequest()
	req.WorkStartDate = completionNow.Add(time.Hour)
	_, err := env.svc.IssueCertificate(context.Background(), completion.ID, req, "admin-1")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation), "work start after completion")

	req = validCertificateRequest()
	req.VerificationDate = completionNow.Add(-time.Hour)
	_, err = env.svc.IssueCertificate(context.Background(), completion.ID, req, "admin-1")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation), "verification before completion")

	req = validCertificateRequest()
	req.VerificationDate = completionNow.Add(time.Hour)
	_, err = env.svc.IssueCertificate(context.Background(), completion.ID, req, "admin-1")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation), "verification after issue")
}

func TestIssueCertificateWarranty(t *testing.T) {
	env := newCompletionEnv(t)
	completion := env.seedCompletion(t)

	req := validCertificateRequest()
	req.WarrantyApplies = true
	_, err := env.svc.IssueCertificate(context.Background(), completion.ID, req, "admin-1")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation), "months are required")

	req.WarrantyMonths = 6
	_, err = env.svc.IssueCertificate(context.Background(), completion.ID, req, "admin-1")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation), "terms are required")

	req.WarrantyTerms = "covers parts and labor for the replaced valve"
	cert, err := env.svc.IssueCertificate(context.Background(), completion.ID, req, "admin-1")
	require.NoError(t, err)
	require.Equal(t, 6, *cert.WarrantyMonths)
	require.Equal(t, completionNow.Add(6*30*24*time.Hour), *cert.WarrantyUntil)
}

func TestCompletionFreezesAfterCertificate(t *testing.T) {
	env := newCompletionEnv(t)
	completion := env.seedCompletion(t)

	_, err := env.svc.IssueCertificate(context.Background(), completion.ID, validCertificateRequest(), "admin-1")
	require.NoError(t, err)

	_, err = env.svc.IssueCertificate(context.Background(), completion.ID, validCertificateRequest(), "admin-1")
	require.True(t, appErrors.Is(err, appErrors.ErrConflict), "one certificate per completion")

	_, err = env.svc.RecordQualityCheck(context.Background(), completion.ID, dto.QualityCheckRequest{
		Passed:    true,
		Checklist: models.Checklist{{Item: "final sweep", Passed: true}},
	}, "supervisor-1")
	require.True(t, appErrors.Is(err, appErrors.ErrConflict), "no checks after the certificate")
}
