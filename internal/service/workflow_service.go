package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/internal/repository"
	"github.com/hostelhq/maintenance-api/pkg/config"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
)

type workflowRequestStore interface {
	Create(ctx context.Context, request *models.MaintenanceRequest) error
	GetByID(ctx context.Context, id string) (*models.MaintenanceRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error
	SoftDelete(ctx context.Context, id string) error
	AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
	ListStatusHistory(ctx context.Context, requestID string) ([]models.StatusHistoryEntry, error)
	ListUnassignedUrgent(ctx context.Context, hostelID string) ([]models.MaintenanceRequest, error)
	ListPastDeadline(ctx context.Context, hostelID string, now time.Time) ([]models.MaintenanceRequest, error)
}

type workflowHostelStore interface {
	GetByID(ctx context.Context, id string) (*models.Hostel, error)
}

type approvalOpener interface {
	Open(ctx context.Context, request *models.MaintenanceRequest, level models.ApprovalLevel, justification string, retroactive bool) (*models.ApprovalRecord, error)
	ListOverdue(ctx context.Context, hostelID string, olderThan time.Duration) ([]models.ApprovalRecord, error)
}

type workflowAssigner interface {
	PickAssignee(ctx context.Context, pool []models.Candidate, requiredSkill string, exclude []string) (*models.Candidate, error)
	Assign(ctx context.Context, request *models.MaintenanceRequest, req dto.AssignRequest, actorID string) (*models.Assignment, error)
	MarkStarted(ctx context.Context, requestID string, startedAt time.Time) error
}

// WorkflowService is the top-level orchestrator. It owns the request state
// machine, gates creation through the threshold policy and hands work to the
// approval and assignment services.
type WorkflowService struct {
	requests    workflowRequestStore
	hostels     workflowHostelStore
	sequences   sequenceAllocator
	threshold   *ThresholdPolicy
	approvals   approvalOpener
	assignments workflowAssigner
	audit       auditLogger
	emitter     EventEmitter
	clock       Clock
	cfg         config.ApprovalConfig
	logger      *zap.Logger
}

// NewWorkflowService constructs the engine.
func NewWorkflowService(
	requests workflowRequestStore,
	hostels workflowHostelStore,
	sequences sequenceAllocator,
	threshold *ThresholdPolicy,
	approvals approvalOpener,
	assignments workflowAssigner,
	audit auditLogger,
	emitter EventEmitter,
	cfg config.ApprovalConfig,
	clock Clock,
	logger *zap.Logger,
) *WorkflowService {
	if clock == nil {
		clock = SystemClock()
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		requests:    requests,
		hostels:     hostels,
		sequences:   sequences,
		threshold:   threshold,
		approvals:   approvals,
		assignments: assignments,
		audit:       audit,
		emitter:     emitter,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
	}
}

// Create opens a new maintenance request. The threshold policy decides the
// approval level; auto-approvable requests move to APPROVED immediately.
// Emergencies are forced to CRITICAL priority and skip the approval gate;
// when their cost would have demanded admin sign-off, a retroactive approval
// record is opened for the paper trail without blocking the work.
func (s *WorkflowService) Create(ctx context.Context, req dto.CreateRequestRequest, actorID string) (*models.MaintenanceRequest, error) {
	hostel, err := s.hostels.GetByID(ctx, req.HostelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hostel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hostel")
	}
	if req.EstimatedCost.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "estimated cost cannot be negative")
	}

	emergency := req.IssueType == models.IssueEmergency
	priority := req.Priority
	if emergency {
		priority = models.PriorityCritical
	}

	thresholds := s.threshold.Resolve(hostel)
	level := s.threshold.LevelFor(req.EstimatedCost, thresholds)

	now := s.clock.Now()
	number, err := s.nextRequestNumber(ctx, hostel.ID, now)
	if err != nil {
		return nil, err
	}

	request := &models.MaintenanceRequest{
		RequestNumber:    number,
		HostelID:         hostel.ID,
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		Category:         req.Category,
		IssueType:        req.IssueType,
		Priority:         priority,
		Status:           models.StatusPending,
		EstimatedCost:    req.EstimatedCost,
		RequiresApproval: !emergency && level != models.ApprovalAuto,
		RequestedBy:      actorID,
		Deadline:         req.Deadline,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.RoomNumber != "" {
		room := req.RoomNumber
		request.RoomNumber = &room
	}
	if req.Area != "" {
		area := req.Area
		request.Area = &area
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}
	s.appendHistory(ctx, request.ID, "", models.StatusPending, actorID, "")

	switch {
	case emergency:
		if s.cfg.RetroactiveEmergency && level == models.ApprovalAdmin {
			if _, err := s.approvals.Open(ctx, request, models.ApprovalAdmin, req.Justification, true); err != nil {
				s.logger.Sugar().Warnw("failed to open retroactive approval", "request_id", request.ID, "error", err)
			}
		}
	case level == models.ApprovalAuto:
		if err := s.autoApprove(ctx, request, actorID, now); err != nil {
			return nil, err
		}
	default:
		if _, err := s.approvals.Open(ctx, request, level, req.Justification, false); err != nil {
			return nil, err
		}
	}

	s.emitAudit(ctx, &models.AuditLog{
		ActorID:    &actorID,
		Action:     models.AuditActionRequestCreate,
		Resource:   "maintenance_request",
		ResourceID: &request.ID,
	})
	s.emitter.Emit(ctx, models.DomainEvent{
		Type:      models.EventRequestCreated,
		RequestID: request.ID,
		HostelID:  request.HostelID,
		Actor:     actorID,
		Payload: map[string]interface{}{
			"requestNumber": request.RequestNumber,
			"priority":      string(request.Priority),
			"approvalLevel": string(level),
		},
		OccurredAt: now,
	})
	return request, nil
}

// CreateFromSchedule spawns a preventive-maintenance request for a due
// schedule. Scheduled work never carries the emergency override.
func (s *WorkflowService) CreateFromSchedule(ctx context.Context, schedule *models.Schedule) (*models.MaintenanceRequest, error) {
	hostel, err := s.hostels.GetByID(ctx, schedule.HostelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hostel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hostel")
	}

	thresholds := s.threshold.Resolve(hostel)
	level := s.threshold.LevelFor(schedule.EstimatedCost, thresholds)

	now := s.clock.Now()
	number, err := s.nextRequestNumber(ctx, hostel.ID, now)
	if err != nil {
		return nil, err
	}

	due := schedule.NextDueDate
	request := &models.MaintenanceRequest{
		RequestNumber:    number,
		HostelID:         schedule.HostelID,
		Title:            schedule.Title,
		Description:      schedule.Description,
		Category:         schedule.Category,
		IssueType:        models.IssuePreventive,
		Priority:         schedule.Priority,
		Status:           models.StatusPending,
		EstimatedCost:    schedule.EstimatedCost,
		RequiresApproval: level != models.ApprovalAuto,
		RequestedBy:      schedule.CreatedBy,
		ScheduleID:       &schedule.ID,
		Deadline:         &due,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create scheduled request")
	}
	s.appendHistory(ctx, request.ID, "", models.StatusPending, schedule.CreatedBy, "generated from schedule "+schedule.ID)

	if level == models.ApprovalAuto {
		if err := s.autoApprove(ctx, request, schedule.CreatedBy, now); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.approvals.Open(ctx, request, level, "", false); err != nil {
			return nil, err
		}
	}
	return request, nil
}

// Transition moves a request along the legal-edge table. Moves into
// REJECTED, ON_HOLD or CANCELLED demand a non-blank note. The underlying
// update pins the expected current status, so concurrent movers lose cleanly.
func (s *WorkflowService) Transition(ctx context.Context, requestID string, req dto.TransitionRequest, actorID string) (*models.MaintenanceRequest, error) {
	if !models.ValidStatus(req.ToStatus) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(req.ToStatus))
	}
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	from := request.Status
	if !models.CanTransition(from, req.ToStatus) {
		return nil, appErrors.InvalidTransition(string(from), string(req.ToStatus))
	}
	notes := strings.TrimSpace(req.Notes)
	if models.TransitionRequiresNotes(req.ToStatus) && notes == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "notes are required when moving to "+string(req.ToStatus))
	}

	now := s.clock.Now()
	params := repository.UpdateStatusParams{
		ID:         requestID,
		FromStatus: from,
		ToStatus:   req.ToStatus,
		UpdatedAt:  now,
	}
	switch req.ToStatus {
	case models.StatusInProgress:
		if request.StartedAt == nil {
			params.StartedAt = &now
		}
	case models.StatusCompleted:
		params.CompletedAt = &now
	}

	if err := s.requests.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
	}
	s.appendHistory(ctx, requestID, from, req.ToStatus, actorID, notes)

	if req.ToStatus == models.StatusInProgress && request.StartedAt == nil {
		if err := s.assignments.MarkStarted(ctx, requestID, now); err != nil {
			s.logger.Sugar().Warnw("failed to stamp assignment start", "request_id", requestID, "error", err)
		}
	}

	request.Status = req.ToStatus
	request.UpdatedAt = now
	if params.StartedAt != nil {
		request.StartedAt = params.StartedAt
	}
	if params.CompletedAt != nil {
		request.CompletedAt = params.CompletedAt
	}

	s.emitAudit(ctx, &models.AuditLog{
		ActorID:    &actorID,
		Action:     models.AuditActionRequestTransition,
		Resource:   "maintenance_request",
		ResourceID: &requestID,
	})
	s.emitter.Emit(ctx, models.DomainEvent{
		Type:      models.EventRequestTransition,
		RequestID: requestID,
		HostelID:  request.HostelID,
		Actor:     actorID,
		Payload: map[string]interface{}{
			"from": string(from),
			"to":   string(req.ToStatus),
		},
		OccurredAt: now,
	})
	return request, nil
}

// Assign hands a request to an assignee and moves it to ASSIGNED. Legal only
// from PENDING or APPROVED; a gated request must clear its approval first.
// With no explicit assignee the balancer picks the least-loaded candidate
// from the pool.
func (s *WorkflowService) Assign(ctx context.Context, requestID string, req dto.AssignRequest, pool []models.Candidate, actorID string) (*models.MaintenanceRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	from := request.Status
	if from != models.StatusPending && from != models.StatusApproved {
		return nil, appErrors.InvalidTransition(string(from), string(models.StatusAssigned))
	}
	if from == models.StatusPending && request.RequiresApproval {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request is waiting for approval")
	}

	if req.AssigneeID == "" {
		candidate, err := s.assignments.PickAssignee(ctx, pool, req.RequiredSkill, nil)
		if err != nil {
			return nil, err
		}
		req.AssigneeID = candidate.AssigneeID
		if req.AssigneeKind == "" {
			req.AssigneeKind = candidate.Kind
		}
	}

	assignment, err := s.assignments.Assign(ctx, request, req, actorID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.requests.UpdateStatus(ctx, repository.UpdateStatusParams{
		ID:         requestID,
		FromStatus: from,
		ToStatus:   models.StatusAssigned,
		AssignedTo: &assignment.AssigneeID,
		AssignedAt: &now,
		Deadline:   req.Deadline,
		UpdatedAt:  now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move request to ASSIGNED")
	}
	s.appendHistory(ctx, requestID, from, models.StatusAssigned, actorID, "assigned to "+assignment.AssigneeID)

	request.Status = models.StatusAssigned
	request.AssignedTo = &assignment.AssigneeID
	request.AssignedAt = &now
	if req.Deadline != nil {
		request.Deadline = req.Deadline
	}
	request.UpdatedAt = now

	s.emitter.Emit(ctx, models.DomainEvent{
		Type:      models.EventRequestAssigned,
		RequestID: requestID,
		HostelID:  request.HostelID,
		Actor:     actorID,
		Payload: map[string]interface{}{
			"assigneeId":   assignment.AssigneeID,
			"assigneeKind": string(assignment.AssigneeKind),
		},
		OccurredAt: now,
	})
	return request, nil
}

// Get returns a request by id.
func (s *WorkflowService) Get(ctx context.Context, requestID string) (*models.MaintenanceRequest, error) {
	return s.getRequest(ctx, requestID)
}

// List returns requests matching the filter.
func (s *WorkflowService) List(ctx context.Context, query dto.RequestQuery) ([]models.MaintenanceRequest, error) {
	requests, err := s.requests.List(ctx, models.RequestFilter{
		HostelID:    query.HostelID,
		Status:      query.Status,
		Priority:    query.Priority,
		Category:    query.Category,
		AssignedTo:  query.AssignedTo,
		RequestedBy: query.RequestedBy,
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

// History returns the status trail of a request.
func (s *WorkflowService) History(ctx context.Context, requestID string) ([]models.StatusHistoryEntry, error) {
	entries, err := s.requests.ListStatusHistory(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list status history")
	}
	return entries, nil
}

// Delete soft-deletes a terminal request. Rows are never physically removed.
func (s *WorkflowService) Delete(ctx context.Context, requestID string, actorID string) error {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if !request.Terminal() {
		return appErrors.Clone(appErrors.ErrConflict, "only terminal requests can be deleted")
	}
	if err := s.requests.SoftDelete(ctx, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "maintenance request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete request")
	}
	s.emitAudit(ctx, &models.AuditLog{
		ActorID:    &actorID,
		Action:     models.AuditActionRequestTransition,
		Resource:   "maintenance_request",
		ResourceID: &requestID,
	})
	return nil
}

// DetectBottlenecks runs the read-only workflow diagnostics: unassigned
// urgent requests, requests past deadline, and approvals pending beyond the
// configured age. Findings are reported, never raised as errors.
func (s *WorkflowService) DetectBottlenecks(ctx context.Context, hostelID string) (*models.BottleneckReport, error) {
	now := s.clock.Now()
	report := &models.BottleneckReport{
		HostelID:    hostelID,
		Findings:    []models.BottleneckFinding{},
		GeneratedAt: now,
	}

	unassigned, err := s.requests.ListUnassignedUrgent(ctx, hostelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan unassigned requests")
	}
	if len(unassigned) > 0 {
		severity := models.SeverityWarning
		for _, request := range unassigned {
			if request.Priority == models.PriorityCritical {
				severity = models.SeverityCritical
				break
			}
		}
		report.Findings = append(report.Findings, models.BottleneckFinding{
			Kind:       models.BottleneckUnassignedUrgent,
			Severity:   severity,
			Count:      len(unassigned),
			Message:    fmt.Sprintf("%d urgent requests have no assignee", len(unassigned)),
			RequestIDs: requestIDs(unassigned),
		})
	}

	overdue, err := s.requests.ListPastDeadline(ctx, hostelID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan overdue requests")
	}
	if len(overdue) > 0 {
		report.Findings = append(report.Findings, models.BottleneckFinding{
			Kind:       models.BottleneckPastDeadline,
			Severity:   models.SeverityCritical,
			Count:      len(overdue),
			Message:    fmt.Sprintf("%d requests are past their deadline", len(overdue)),
			RequestIDs: requestIDs(overdue),
		})
	}

	stale, err := s.approvals.ListOverdue(ctx, hostelID, s.cfg.PendingBottleneckAge)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		ids := make([]string, 0, len(stale))
		for _, record := range stale {
			ids = append(ids, record.RequestID)
		}
		report.Findings = append(report.Findings, models.BottleneckFinding{
			Kind:       models.BottleneckStaleApproval,
			Severity:   models.SeverityWarning,
			Count:      len(stale),
			Message:    fmt.Sprintf("%d approvals have waited beyond %s", len(stale), s.cfg.PendingBottleneckAge),
			RequestIDs: ids,
		})
	}
	return report, nil
}

func (s *WorkflowService) autoApprove(ctx context.Context, request *models.MaintenanceRequest, actorID string, now time.Time) error {
	err := s.requests.UpdateStatus(ctx, repository.UpdateStatusParams{
		ID:         request.ID,
		FromStatus: models.StatusPending,
		ToStatus:   models.StatusApproved,
		UpdatedAt:  now,
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to auto-approve request")
	}
	s.appendHistory(ctx, request.ID, models.StatusPending, models.StatusApproved, actorID, "auto-approved below threshold")
	request.Status = models.StatusApproved
	request.UpdatedAt = now
	return nil
}

func (s *WorkflowService) getRequest(ctx context.Context, requestID string) (*models.MaintenanceRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "maintenance request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

// nextRequestNumber allocates the monthly sequence for a hostel. The counter
// scope carries the hostel id, so numbers stay unique per hostel and month.
func (s *WorkflowService) nextRequestNumber(ctx context.Context, hostelID string, now time.Time) (string, error) {
	scope := fmt.Sprintf("MNT-%s-%04d-%02d", hostelID, now.Year(), int(now.Month()))
	seq, err := s.sequences.Next(ctx, scope)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate request number")
	}
	return fmt.Sprintf("MNT-%04d-%02d-%04d", now.Year(), int(now.Month()), seq), nil
}

func (s *WorkflowService) appendHistory(ctx context.Context, requestID string, from, to models.RequestStatus, actorID, notes string) {
	entry := &models.StatusHistoryEntry{
		RequestID:  requestID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actorID,
		CreatedAt:  s.clock.Now(),
	}
	if notes != "" {
		entry.Notes = &notes
	}
	if err := s.requests.AppendStatusHistory(ctx, entry); err != nil {
		s.logger.Sugar().Warnw("failed to append status history", "request_id", requestID, "error", err)
	}
}

func requestIDs(requests []models.MaintenanceRequest) []string {
	ids := make([]string, 0, len(requests))
	for _, request := range requests {
		ids = append(ids, request.ID)
	}
	return ids
}

func (s *WorkflowService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("failed to write audit log", "action", log.Action, "error", err)
	}
}
