package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/internal/repository"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
)

type assignmentStore interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetActiveByRequest(ctx context.Context, requestID string, kind models.AssigneeKind) (*models.Assignment, error)
	ListByRequest(ctx context.Context, requestID string) ([]models.Assignment, error)
	Deactivate(ctx context.Context, id string, reason string) error
	Complete(ctx context.Context, params repository.CompleteParams) error
	MarkStarted(ctx context.Context, requestID string, startedAt time.Time) error
	ActiveLoads(ctx context.Context, assigneeIDs []string) (map[string]models.Candidate, error)
}

type assignmentRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error
}

// AssignmentService balances maintenance work across staff and vendors.
// Assignment rows are append-only; reassignment closes the old row.
type AssignmentService struct {
	assignments assignmentStore
	requests    assignmentRequestStore
	audit       auditLogger
	clock       Clock
	logger      *zap.Logger
}

// NewAssignmentService constructs the balancer.
func NewAssignmentService(assignments assignmentStore, requests assignmentRequestStore, audit auditLogger, clock Clock, logger *zap.Logger) *AssignmentService {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		assignments: assignments,
		requests:    requests,
		audit:       audit,
		clock:       clock,
		logger:      logger,
	}
}

// PickAssignee selects the least-loaded eligible candidate. Load figures in
// the pool are refreshed from the live assignment table before ranking, so a
// stale caller snapshot cannot skew the balance. Ties break on fewest active
// assignments, then fewest outstanding hours, then lowest assignee id, which
// keeps the choice deterministic.
func (s *AssignmentService) PickAssignee(ctx context.Context, pool []models.Candidate, requiredSkill string, exclude []string) (*models.Candidate, error) {
	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}
	eligible := make([]models.Candidate, 0, len(pool))
	for _, candidate := range pool {
		if _, skip := excluded[candidate.AssigneeID]; skip {
			continue
		}
		if requiredSkill != "" && !hasSkill(candidate.Skills, requiredSkill) {
			continue
		}
		eligible = append(eligible, candidate)
	}
	if len(eligible) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no eligible candidates for assignment")
	}

	ids := make([]string, 0, len(eligible))
	for _, candidate := range eligible {
		ids = append(ids, candidate.AssigneeID)
	}
	loads, err := s.assignments.ActiveLoads(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignee workloads")
	}
	for i := range eligible {
		if load, ok := loads[eligible[i].AssigneeID]; ok {
			eligible[i].ActiveCount = load.ActiveCount
			eligible[i].OutstandingHours = load.OutstandingHours
		} else {
			eligible[i].ActiveCount = 0
			eligible[i].OutstandingHours = 0
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.ActiveCount != b.ActiveCount {
			return a.ActiveCount < b.ActiveCount
		}
		if a.OutstandingHours != b.OutstandingHours {
			return a.OutstandingHours < b.OutstandingHours
		}
		return a.AssigneeID < b.AssigneeID
	})
	best := eligible[0]
	return &best, nil
}

// Assign records a fresh assignment row for the request. The caller is
// responsible for the request status move; this only tracks who holds the
// work.
func (s *AssignmentService) Assign(ctx context.Context, request *models.MaintenanceRequest, req dto.AssignRequest, actorID string) (*models.Assignment, error) {
	if req.AssigneeID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee id is required")
	}
	kind := req.AssigneeKind
	if kind == "" {
		kind = models.AssigneeStaff
	}

	assignment := &models.Assignment{
		RequestID:      request.ID,
		AssigneeID:     req.AssigneeID,
		AssigneeKind:   kind,
		AssignedBy:     actorID,
		EstimatedHours: req.EstimatedHours,
		Deadline:       req.Deadline,
		IsActive:       true,
		AssignedAt:     s.clock.Now(),
	}
	if req.QuotedAmount != nil {
		assignment.QuotedAmount = decimal.NullDecimal{Decimal: *req.QuotedAmount, Valid: true}
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	s.emitAudit(ctx, &models.AuditLog{
		ActorID:    &actorID,
		Action:     models.AuditActionRequestAssign,
		Resource:   "assignment",
		ResourceID: &assignment.ID,
	})
	return assignment, nil
}

// Reassign closes the active assignment and opens a new one, preserving the
// full hand-over history. Allowed while the request still holds active work.
func (s *AssignmentService) Reassign(ctx context.Context, requestID string, req dto.ReassignRequest, actorID string) (*models.Assignment, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "maintenance request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	switch request.Status {
	case models.StatusAssigned, models.StatusInProgress, models.StatusOnHold:
	default:
		return nil, appErrors.Clone(appErrors.ErrConflict, "request has no reassignable work in status "+string(request.Status))
	}

	current, err := s.assignments.GetActiveByRequest(ctx, requestID, "")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active assignment to replace")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active assignment")
	}
	if current.AssigneeID == req.AssigneeID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request is already assigned to this assignee")
	}

	if err := s.assignments.Deactivate(ctx, current.ID, req.Reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment was already closed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close previous assignment")
	}

	now := s.clock.Now()
	replacement := &models.Assignment{
		RequestID:      requestID,
		AssigneeID:     req.AssigneeID,
		AssigneeKind:   req.AssigneeKind,
		AssignedBy:     actorID,
		EstimatedHours: req.EstimatedHours,
		Deadline:       req.Deadline,
		IsActive:       true,
		AssignedAt:     now,
	}
	if replacement.EstimatedHours == 0 {
		replacement.EstimatedHours = current.EstimatedHours
	}
	if replacement.Deadline == nil {
		replacement.Deadline = current.Deadline
	}
	if err := s.assignments.Create(ctx, replacement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create replacement assignment")
	}

	err = s.requests.UpdateStatus(ctx, repository.UpdateStatusParams{
		ID:         requestID,
		FromStatus: request.Status,
		ToStatus:   request.Status,
		AssignedTo: &req.AssigneeID,
		UpdatedAt:  now,
	})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move request to new assignee")
	}

	s.emitAudit(ctx, &models.AuditLog{
		ActorID:    &actorID,
		Action:     models.AuditActionRequestAssign,
		Resource:   "assignment",
		ResourceID: &replacement.ID,
	})
	return replacement, nil
}

// MarkStarted stamps the active assignment when work begins.
func (s *AssignmentService) MarkStarted(ctx context.Context, requestID string, startedAt time.Time) error {
	err := s.assignments.MarkStarted(ctx, requestID, startedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark assignment started")
	}
	return nil
}

// CloseOut completes the active assignment with actuals and an optional
// quality rating. Double completion reports a conflict.
func (s *AssignmentService) CloseOut(ctx context.Context, requestID string, actualHours float64, rating *int, note *string) (*models.Assignment, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quality rating must be between 1 and 5")
	}
	current, err := s.assignments.GetActiveByRequest(ctx, requestID, "")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active assignment for request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active assignment")
	}
	now := s.clock.Now()
	err = s.assignments.Complete(ctx, repository.CompleteParams{
		ID:            current.ID,
		ActualHours:   actualHours,
		QualityRating: rating,
		Note:          note,
		CompletedAt:   now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already completed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete assignment")
	}
	current.IsActive = false
	current.IsCompleted = true
	current.ActualHours = &actualHours
	current.QualityRating = rating
	current.CompletionNote = note
	current.CompletedAt = &now
	return current, nil
}

// History returns every assignment a request ever had, newest first.
func (s *AssignmentService) History(ctx context.Context, requestID string) ([]models.Assignment, error) {
	assignments, err := s.assignments.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

func hasSkill(skills []string, required string) bool {
	for _, skill := range skills {
		if skill == required {
			return true
		}
	}
	return false
}

func (s *AssignmentService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("failed to write audit log", "action", log.Action, "error", err)
	}
}
