package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/pkg/config"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
)

var workflowNow = time.Date(2024, time.March, 12, 11, 0, 0, 0, time.UTC)

type workflowEnv struct {
	svc         *WorkflowService
	requests    *requestRepoStub
	hostels     *hostelRepoStub
	approvals   *approvalRepoStub
	assignments *assignmentRepoStub
	sequences   *sequenceStub
	emitter     *emitterStub
	audit       *auditStub
}

func newWorkflowEnv(t *testing.T, cfg config.ApprovalConfig) *workflowEnv {
	t.Helper()
	requests := newRequestRepoStub()
	hostels := newHostelRepoStub(&models.Hostel{ID: "h-1", Name: "North Block", AutoApproveEnabled: true})
	approvals := newApprovalRepoStub()
	assignments := newAssignmentRepoStub()
	sequences := newSequenceStub()
	emitter := &emitterStub{}
	audit := &auditStub{}
	clock := FixedClock{Instant: workflowNow}

	approvalSvc := NewApprovalService(approvals, requests, audit, emitter, cfg, clock, nil)
	assignmentSvc := NewAssignmentService(assignments, requests, audit, clock, nil)
	svc := NewWorkflowService(
		requests,
		hostels,
		sequences,
		NewThresholdPolicy(cfg),
		approvalSvc,
		assignmentSvc,
		audit,
		emitter,
		cfg,
		clock,
		nil,
	)
	return &workflowEnv{
		svc:         svc,
		requests:    requests,
		hostels:     hostels,
		approvals:   approvals,
		assignments: assignments,
		sequences:   sequences,
		emitter:     emitter,
		audit:       audit,
	}
}

func defaultWorkflowConfig() config.ApprovalConfig {
	return config.ApprovalConfig{
		ResponseDeadline:     48 * time.Hour,
		OverdueAfter:         72 * time.Hour,
		PendingBottleneckAge: 72 * time.Hour,
		DefaultAutoBelow:     500,
		DefaultSupervisorCap: 5000,
		DefaultAdminAbove:    5000,
		AutoApproveEnabled:   true,
		RetroactiveEmergency: true,
	}
}

func createRequest(cost string) dto.CreateRequestRequest {
	return dto.CreateRequestRequest{
		HostelID:      "h-1",
		Title:         "Leaking tap in washroom",
		Description:   "Constant drip from the second floor washroom tap",
		Category:      models.CategoryPlumbing,
		IssueType:     models.IssueBreakdown,
		Priority:      models.PriorityMedium,
		EstimatedCost: decimal.RequireFromString(cost),
	}
}

func TestCreateAutoApproved(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	request, err := env.svc.Create(context.Background(), createRequest("200"), "warden-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, request.Status)
	require.False(t, request.RequiresApproval)
	require.Equal(t, "MNT-2024-03-0001", request.RequestNumber)

	// No approval record exists; the trail shows the auto move.
	records, err := env.approvals.ListByRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Empty(t, records)

	history, err := env.svc.History(context.Background(), request.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "auto-approved below threshold", *history[1].Notes)

	created := env.emitter.byType(models.EventRequestCreated)
	require.Len(t, created, 1)
	require.Equal(t, "auto", created[0].Payload["approvalLevel"])
}

func TestCreateSupervisorGated(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	request, err := env.svc.Create(context.Background(), createRequest("2000"), "warden-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, request.Status)
	require.True(t, request.RequiresApproval)

	records, err := env.approvals.ListByRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, models.ApprovalSupervisor, records[0].ApprovalLevel)
	require.False(t, records[0].Retroactive)
}

func TestCreateAdminGated(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	request, err := env.svc.Create(context.Background(), createRequest("8000"), "warden-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, request.Status)

	records, err := env.approvals.ListByRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, models.ApprovalAdmin, records[0].ApprovalLevel)
}

func TestCreateEmergencySkipsGateWithRetroactiveRecord(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	req := createRequest("8000")
	req.IssueType = models.IssueEmergency
	req.Priority = models.PriorityLow
	req.Justification = "main water line burst"

	request, err := env.svc.Create(context.Background(), req, "warden-1")
	require.NoError(t, err)
	require.Equal(t, models.PriorityCritical, request.Priority, "emergencies are forced to critical")
	require.False(t, request.RequiresApproval, "emergencies never wait for sign-off")

	records, err := env.approvals.ListByRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].Retroactive)
	require.Equal(t, models.ApprovalAdmin, records[0].ApprovalLevel)
}

func TestCreateEmergencyWithoutRetroactivePolicy(t *testing.T) {
	cfg := defaultWorkflowConfig()
	cfg.RetroactiveEmergency = false
	env := newWorkflowEnv(t, cfg)

	req := createRequest("8000")
	req.IssueType = models.IssueEmergency

	request, err := env.svc.Create(context.Background(), req, "warden-1")
	require.NoError(t, err)

	records, err := env.approvals.ListByRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Empty(t, records, "retroactive paper trail is policy gated")
}

func TestCreateValidation(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	req := createRequest("100")
	req.HostelID = "missing"
	_, err := env.svc.Create(context.Background(), req, "warden-1")
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = env.svc.Create(context.Background(), createRequest("-100"), "warden-1")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRequestNumbersCountPerHostelAndMonth(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())
	env.hostels.hostels["h-2"] = &models.Hostel{ID: "h-2", Name: "South Block", AutoApproveEnabled: true}

	first, err := env.svc.Create(context.Background(), createRequest("100"), "warden-1")
	require.NoError(t, err)
	second, err := env.svc.Create(context.Background(), createRequest("100"), "warden-1")
	require.NoError(t, err)
	require.Equal(t, "MNT-2024-03-0001", first.RequestNumber)
	require.Equal(t, "MNT-2024-03-0002", second.RequestNumber)

	other := createRequest("100")
	other.HostelID = "h-2"
	third, err := env.svc.Create(context.Background(), other, "warden-1")
	require.NoError(t, err)
	require.Equal(t, "MNT-2024-03-0001", third.RequestNumber, "each hostel counts independently")
}

func (e *workflowEnv) seedRequest(t *testing.T, status models.RequestStatus) *models.MaintenanceRequest {
	t.Helper()
	request := &models.MaintenanceRequest{
		HostelID:      "h-1",
		Status:        status,
		Priority:      models.PriorityMedium,
		EstimatedCost: decimal.RequireFromString("100"),
	}
	require.NoError(t, e.requests.Create(context.Background(), request))
	return request
}

func TestTransitionEdgeTable(t *testing.T) {
	statuses := []models.RequestStatus{
		models.StatusPending, models.StatusApproved, models.StatusAssigned,
		models.StatusInProgress, models.StatusOnHold, models.StatusCompleted,
		models.StatusCancelled, models.StatusRejected,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			if from == to {
				continue
			}
			env := newWorkflowEnv(t, defaultWorkflowConfig())
			request := env.seedRequest(t, from)

			_, err := env.svc.Transition(context.Background(), request.ID, dto.TransitionRequest{
				ToStatus: to,
				Notes:    "moving as part of the rollout plan",
			}, "supervisor-1")

			if models.CanTransition(from, to) {
				require.NoError(t, err, "%s -> %s should be legal", from, to)
			} else {
				require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition), "%s -> %s should be rejected", from, to)
			}
		}
	}
}

func TestTransitionRequiresNotesForHaltingMoves(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	for from, to := range map[models.RequestStatus]models.RequestStatus{
		models.StatusPending:  models.StatusRejected,
		models.StatusAssigned: models.StatusOnHold,
		models.StatusApproved: models.StatusCancelled,
	} {
		request := env.seedRequest(t, from)
		_, err := env.svc.Transition(context.Background(), request.ID, dto.TransitionRequest{ToStatus: to, Notes: "  "}, "supervisor-1")
		require.True(t, appErrors.Is(err, appErrors.ErrValidation), "%s -> %s needs notes", from, to)

		_, err = env.svc.Transition(context.Background(), request.ID, dto.TransitionRequest{ToStatus: to, Notes: "vendor unavailable"}, "supervisor-1")
		require.NoError(t, err)
	}
}

func TestTransitionUnknownStatus(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())
	request := env.seedRequest(t, models.StatusPending)

	_, err := env.svc.Transition(context.Background(), request.ID, dto.TransitionRequest{ToStatus: "ARCHIVED"}, "supervisor-1")
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestTransitionStampsLifecycleTimes(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())
	request := env.seedRequest(t, models.StatusAssigned)

	assignmentSvc := NewAssignmentService(env.assignments, env.requests, env.audit, FixedClock{Instant: workflowNow}, nil)
	_, err := assignmentSvc.Assign(context.Background(), request, dto.AssignRequest{AssigneeID: "staff-a"}, "supervisor-1")
	require.NoError(t, err)

	moved, err := env.svc.Transition(context.Background(), request.ID, dto.TransitionRequest{ToStatus: models.StatusInProgress}, "staff-a")
	require.NoError(t, err)
	require.Equal(t, workflowNow, *moved.StartedAt)

	active, err := env.assignments.GetActiveByRequest(context.Background(), request.ID, "")
	require.NoError(t, err)
	require.Equal(t, workflowNow, *active.StartedAt, "the assignment is stamped on first start")

	moved, err = env.svc.Transition(context.Background(), request.ID, dto.TransitionRequest{ToStatus: models.StatusCompleted}, "staff-a")
	require.NoError(t, err)
	require.Equal(t, workflowNow, *moved.CompletedAt)
}

func TestAssignFromApproved(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())
	request := env.seedRequest(t, models.StatusApproved)

	moved, err := env.svc.Assign(context.Background(), request.ID, dto.AssignRequest{
		AssigneeID:     "staff-a",
		EstimatedHours: 3,
	}, nil, "supervisor-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusAssigned, moved.Status)
	require.Equal(t, "staff-a", *moved.AssignedTo)
	require.Len(t, env.emitter.byType(models.EventRequestAssigned), 1)
}

func TestAssignBlockedWhileApprovalPending(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	request, err := env.svc.Create(context.Background(), createRequest("2000"), "warden-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, request.Status)

	_, err = env.svc.Assign(context.Background(), request.ID, dto.AssignRequest{AssigneeID: "staff-a"}, nil, "supervisor-1")
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestAssignUngatedPendingRequest(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	req := createRequest("8000")
	req.IssueType = models.IssueEmergency
	request, err := env.svc.Create(context.Background(), req, "warden-1")
	require.NoError(t, err)

	moved, err := env.svc.Assign(context.Background(), request.ID, dto.AssignRequest{AssigneeID: "staff-a"}, nil, "supervisor-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusAssigned, moved.Status)
}

func TestAssignRejectsActiveWork(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())
	request := env.seedRequest(t, models.StatusInProgress)

	_, err := env.svc.Assign(context.Background(), request.ID, dto.AssignRequest{AssigneeID: "staff-a"}, nil, "supervisor-1")
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestAssignPicksLeastLoadedCandidate(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())
	request := env.seedRequest(t, models.StatusApproved)

	pool := []models.Candidate{
		candidate("staff-a", 3, 12),
		candidate("staff-b", 1, 4),
		candidate("staff-c", 2, 8),
	}
	setLoads(env.assignments, pool...)

	moved, err := env.svc.Assign(context.Background(), request.ID, dto.AssignRequest{}, pool, "supervisor-1")
	require.NoError(t, err)
	require.Equal(t, "staff-b", *moved.AssignedTo)
}

func TestDeleteOnlyTerminalRequests(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	active := env.seedRequest(t, models.StatusInProgress)
	err := env.svc.Delete(context.Background(), active.ID, "admin-1")
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))

	done := env.seedRequest(t, models.StatusCompleted)
	require.NoError(t, env.svc.Delete(context.Background(), done.ID, "admin-1"))

	_, err = env.svc.Get(context.Background(), done.ID)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound), "soft-deleted rows disappear from reads")
}

func TestDetectBottlenecks(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	// An unassigned critical request.
	urgent := &models.MaintenanceRequest{
		HostelID: "h-1",
		Status:   models.StatusPending,
		Priority: models.PriorityCritical,
	}
	require.NoError(t, env.requests.Create(context.Background(), urgent))

	// An assigned request past its deadline.
	assignedTo := "staff-a"
	missed := workflowNow.Add(-24 * time.Hour)
	late := &models.MaintenanceRequest{
		HostelID:   "h-1",
		Status:     models.StatusInProgress,
		Priority:   models.PriorityMedium,
		AssignedTo: &assignedTo,
		Deadline:   &missed,
	}
	require.NoError(t, env.requests.Create(context.Background(), late))

	// An approval open far beyond the bottleneck age.
	require.NoError(t, env.approvals.Create(context.Background(), &models.ApprovalRecord{
		RequestID:   "req-x",
		RequestedAt: workflowNow.Add(-100 * time.Hour),
	}))

	report, err := env.svc.DetectBottlenecks(context.Background(), "h-1")
	require.NoError(t, err)
	require.Len(t, report.Findings, 3)

	kinds := map[models.BottleneckKind]models.BottleneckFinding{}
	for _, finding := range report.Findings {
		kinds[finding.Kind] = finding
	}
	require.Equal(t, models.SeverityCritical, kinds[models.BottleneckUnassignedUrgent].Severity)
	require.Equal(t, models.SeverityCritical, kinds[models.BottleneckPastDeadline].Severity)
	require.Equal(t, models.SeverityWarning, kinds[models.BottleneckStaleApproval].Severity)
	require.Contains(t, kinds[models.BottleneckUnassignedUrgent].RequestIDs, urgent.ID)
	require.Contains(t, kinds[models.BottleneckPastDeadline].RequestIDs, late.ID)
}

func TestDetectBottlenecksCleanReport(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	report, err := env.svc.DetectBottlenecks(context.Background(), "h-1")
	require.NoError(t, err)
	require.Empty(t, report.Findings)
	require.Equal(t, workflowNow, report.GeneratedAt)
}

func TestCreateFromSchedule(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	due := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	schedule := &models.Schedule{
		ID:            "sch-1",
		HostelID:      "h-1",
		Title:         "Quarterly pest control",
		Description:   "Full building pest control round",
		Category:      models.CategoryCleaning,
		Priority:      models.PriorityMedium,
		Recurrence:    models.RecurQuarterly,
		EstimatedCost: decimal.RequireFromString("300"),
		NextDueDate:   due,
		CreatedBy:     "admin-1",
	}

	request, err := env.svc.CreateFromSchedule(context.Background(), schedule)
	require.NoError(t, err)
	require.Equal(t, models.IssuePreventive, request.IssueType)
	require.Equal(t, "sch-1", *request.ScheduleID)
	require.Equal(t, due, *request.Deadline)
	require.Equal(t, "admin-1", request.RequestedBy)
	require.Equal(t, models.StatusApproved, request.Status, "cheap scheduled work auto-approves")
}

func TestCreateFromScheduleGatedCost(t *testing.T) {
	env := newWorkflowEnv(t, defaultWorkflowConfig())

	schedule := &models.Schedule{
		ID:            "sch-2",
		HostelID:      "h-1",
		Title:         "Annual rewiring inspection",
		Recurrence:    models.RecurAnnual,
		EstimatedCost: decimal.RequireFromString("7000"),
		NextDueDate:   workflowNow,
		CreatedBy:     "admin-1",
	}

	request, err := env.svc.CreateFromSchedule(context.Background(), schedule)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, request.Status)
	require.True(t, request.RequiresApproval)

	records, err := env.approvals.ListByRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, models.ApprovalAdmin, records[0].ApprovalLevel)
}
