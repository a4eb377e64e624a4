package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/internal/repository"
	"github.com/hostelhq/maintenance-api/pkg/config"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
)

type approvalStore interface {
	Create(ctx context.Context, record *models.ApprovalRecord) error
	GetByID(ctx context.Context, id string) (*models.ApprovalRecord, error)
	GetOpenByRequest(ctx context.Context, requestID string) (*models.ApprovalRecord, error)
	ListByRequest(ctx context.Context, requestID string) ([]models.ApprovalRecord, error)
	Resolve(ctx context.Context, params repository.ResolveParams) error
	Escalate(ctx context.Context, id string, newLevel models.ApprovalLevel, reason string, escalatedAt time.Time, newDeadline time.Time) error
	ListOpenOlderThan(ctx context.Context, cutoff time.Time, hostelID string) ([]models.ApprovalRecord, error)
}

type approvalRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error
	AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
}

// ApprovalService runs the human sign-off cycle for costed requests.
// A request holds at most one open approval at a time; decisions are
// first-writer-wins and never overwritten.
type ApprovalService struct {
	approvals approvalStore
	requests  approvalRequestStore
	audit     auditLogger
	emitter   EventEmitter
	clock     Clock
	cfg       config.ApprovalConfig
	logger    *zap.Logger
}

// NewApprovalService constructs the approval workflow.
func NewApprovalService(approvals approvalStore, requests approvalRequestStore, audit auditLogger, emitter EventEmitter, cfg config.ApprovalConfig, clock Clock, logger *zap.Logger) *ApprovalService {
	if clock == nil {
		clock = SystemClock()
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		approvals: approvals,
		requests:  requests,
		audit:     audit,
		emitter:   emitter,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Open creates a pending approval record for the request at the given level.
// Retroactive records document emergency spend after the fact and never gate
// the request's progress.
func (s *ApprovalService) Open(ctx context.Context, request *models.MaintenanceRequest, level models.ApprovalLevel, justification string, retroactive bool) (*models.ApprovalRecord, error) {
	if _, err := s.approvals.GetOpenByRequest(ctx, request.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request already has an open approval")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open approvals")
	}

	now := s.clock.Now()
	record := &models.ApprovalRecord{
		RequestID:     request.ID,
		RequestedBy:   request.RequestedBy,
		EstimatedCost: request.EstimatedCost,
		ApprovalLevel: level,
		Retroactive:   retroactive,
		RequestedAt:   now,
		Deadline:      now.Add(s.cfg.ResponseDeadline),
	}
	if justification != "" {
		record.Justification = &justification
	}
	if err := s.approvals.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create approval")
	}

	s.emitAudit(ctx, &models.AuditLog{
		ActorID:    &record.RequestedBy,
		Action:     models.AuditActionApprovalOpen,
		Resource:   "approval",
		ResourceID: &record.ID,
	})
	s.emitter.Emit(ctx, models.DomainEvent{
		Type:      models.EventApprovalOpened,
		RequestID: request.ID,
		HostelID:  request.HostelID,
		Actor:     record.RequestedBy,
		Payload: map[string]interface{}{
			"approvalId": record.ID,
			"level":      string(level),
			"deadline":   record.Deadline,
		},
		OccurredAt: now,
	})
	return record, nil
}

// Decide records an approve or reject decision. Only the first decision on a
// record sticks; any later attempt reports ALREADY_PROCESSED. An approval
// moves the request PENDING to APPROVED; a rejection requires a reason and
// moves it to REJECTED.
func (s *ApprovalService) Decide(ctx context.Context, approvalID string, req dto.DecideApprovalRequest, actorID string) (*models.ApprovalRecord, error) {
	record, err := s.approvals.GetByID(ctx, approvalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "approval not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval")
	}
	if record.Resolved() {
		return nil, appErrors.ErrAlreadyProcessed
	}
	if !req.Approved && req.Reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection requires a reason")
	}
	if req.ApprovedAmount != nil && req.ApprovedAmount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approved amount cannot be negative")
	}

	now := s.clock.Now()
	params := repository.ResolveParams{
		ID:                approvalID,
		Approved:          req.Approved,
		DecidedBy:         actorID,
		AllowResubmission: req.AllowResubmission,
		DecidedAt:         now,
	}
	if req.Reason != "" {
		params.DecisionReason = &req.Reason
	}
	if req.Conditions != "" {
		params.Conditions = &req.Conditions
	}
	if req.Approved {
		amount := record.EstimatedCost
		if req.ApprovedAmount != nil {
			amount = *req.ApprovedAmount
		}
		params.ApprovedAmount = decimal.NullDecimal{Decimal: amount, Valid: true}
	}

	if err := s.approvals.Resolve(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyProcessed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve approval")
	}

	record.Approved = &req.Approved
	record.DecidedBy = &actorID
	record.DecidedAt = &now
	record.ApprovedAmount = params.ApprovedAmount
	record.DecisionReason = params.DecisionReason
	record.Conditions = params.Conditions
	record.AllowResubmission = req.AllowResubmission

	if !record.Retroactive {
		if err := s.applyDecisionToRequest(ctx, record, req, actorID, now); err != nil {
			return nil, err
		}
	}

	if payload, err := json.Marshal(record); err == nil {
		s.emitAudit(ctx, &models.AuditLog{
			ActorID:    &actorID,
			Action:     models.AuditActionApprovalResolve,
			Resource:   "approval",
			ResourceID: &record.ID,
			NewValues:  payload,
		})
	}
	s.emitter.Emit(ctx, models.DomainEvent{
		Type:      models.EventApprovalResolved,
		RequestID: record.RequestID,
		Actor:     actorID,
		Payload: map[string]interface{}{
			"approvalId": record.ID,
			"approved":   req.Approved,
		},
		OccurredAt: now,
	})
	return record, nil
}

// applyDecisionToRequest moves the gated request along with the decision.
// The request may have been cancelled meanwhile; that is surfaced, not
// silently swallowed.
func (s *ApprovalService) applyDecisionToRequest(ctx context.Context, record *models.ApprovalRecord, req dto.DecideApprovalRequest, actorID string, now time.Time) error {
	to := models.StatusApproved
	if !req.Approved {
		to = models.StatusRejected
	}
	err := s.requests.UpdateStatus(ctx, repository.UpdateStatusParams{
		ID:         record.RequestID,
		FromStatus: models.StatusPending,
		ToStatus:   to,
		UpdatedAt:  now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "request left PENDING before the decision applied")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move request")
	}
	entry := &models.StatusHistoryEntry{
		RequestID:  record.RequestID,
		FromStatus: models.StatusPending,
		ToStatus:   to,
		Actor:      actorID,
		CreatedAt:  now,
	}
	if req.Reason != "" {
		entry.Notes = &req.Reason
	}
	if err := s.requests.AppendStatusHistory(ctx, entry); err != nil {
		s.logger.Sugar().Warnw("failed to append status history", "request_id", record.RequestID, "error", err)
	}
	return nil
}

// Escalate raises an open approval to a higher level and restarts its
// response deadline. Admin approvals have nowhere further to go.
func (s *ApprovalService) Escalate(ctx context.Context, approvalID string, req dto.EscalateApprovalRequest, actorID string) (*models.ApprovalRecord, error) {
	record, err := s.approvals.GetByID(ctx, approvalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "approval not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval")
	}
	if record.Resolved() {
		return nil, appErrors.ErrAlreadyProcessed
	}
	if record.ApprovalLevel == models.ApprovalAdmin {
		return nil, appErrors.Clone(appErrors.ErrConflict, "approval is already at the admin level")
	}
	if record.EscalatedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "approval was already escalated")
	}

	now := s.clock.Now()
	deadline := now.Add(s.cfg.ResponseDeadline)
	if err := s.approvals.Escalate(ctx, approvalID, models.ApprovalAdmin, req.Reason, now, deadline); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "approval was resolved or escalated concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to escalate approval")
	}

	record.ApprovalLevel = models.ApprovalAdmin
	record.EscalatedAt = &now
	record.EscalationReason = &req.Reason
	record.Deadline = deadline

	s.emitAudit(ctx, &models.AuditLog{
		ActorID:    &actorID,
		Action:     models.AuditActionApprovalEscalate,
		Resource:   "approval",
		ResourceID: &record.ID,
	})
	s.emitter.Emit(ctx, models.DomainEvent{
		Type:      models.EventApprovalEscalated,
		RequestID: record.RequestID,
		Actor:     actorID,
		Payload: map[string]interface{}{
			"approvalId": record.ID,
			"reason":     req.Reason,
		},
		OccurredAt: now,
	})
	return record, nil
}

// ListOverdue returns open approvals older than the given age, counting from
// the last escalation when one happened. A zero age falls back to the
// configured default.
func (s *ApprovalService) ListOverdue(ctx context.Context, hostelID string, olderThan time.Duration) ([]models.ApprovalRecord, error) {
	if olderThan <= 0 {
		olderThan = s.cfg.OverdueAfter
	}
	cutoff := s.clock.Now().Add(-olderThan)
	records, err := s.approvals.ListOpenOlderThan(ctx, cutoff, hostelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue approvals")
	}
	return records, nil
}

// Get returns one approval record.
func (s *ApprovalService) Get(ctx context.Context, approvalID string) (*models.ApprovalRecord, error) {
	record, err := s.approvals.GetByID(ctx, approvalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "approval not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval")
	}
	return record, nil
}

// ListByRequest returns the full approval history for a request.
func (s *ApprovalService) ListByRequest(ctx context.Context, requestID string) ([]models.ApprovalRecord, error) {
	records, err := s.approvals.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approvals")
	}
	return records, nil
}

func (s *ApprovalService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("failed to write audit log", "action", log.Action, "error", err)
	}
}
