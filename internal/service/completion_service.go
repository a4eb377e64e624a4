package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/pkg/config"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
	"github.com/hostelhq/maintenance-api/pkg/export"
)

type completionStore interface {
	Create(ctx context.Context, record *models.CompletionRecord) error
	GetByID(ctx context.Context, id string) (*models.CompletionRecord, error)
	GetByRequest(ctx context.Context, requestID string) (*models.CompletionRecord, error)
	CreateQualityCheck(ctx context.Context, check *models.QualityCheck) error
	ListQualityChecks(ctx context.Context, completionID string) ([]models.QualityCheck, error)
	CreateCertificate(ctx context.Context, cert *models.Certificate) error
	GetCertificateByCompletion(ctx context.Context, completionID string) (*models.Certificate, error)
	GetCertificateByID(ctx context.Context, id string) (*models.Certificate, error)
}

type completionRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.MaintenanceRequest, error)
}

type completionHostelStore interface {
	GetByID(ctx context.Context, id string) (*models.Hostel, error)
}

type requestTransitioner interface {
	Transition(ctx context.Context, requestID string, req dto.TransitionRequest, actorID string) (*models.MaintenanceRequest, error)
}

type assignmentCloser interface {
	CloseOut(ctx context.Context, requestID string, actualHours float64, rating *int, note *string) (*models.Assignment, error)
}

type costRecorder interface {
	ValidateBreakdown(req dto.RecordCostRequest) error
	RecordActual(ctx context.Context, requestID string, req dto.RecordCostRequest, actorID string) (*models.CostRecord, error)
}

type sequenceAllocator interface {
	Next(ctx context.Context, scope string) (int, error)
}

type certificateRenderer interface {
	Render(doc export.CertificateDocument) ([]byte, error)
}

type certificateStorage interface {
	Save(filename string, data []byte) (string, error)
}

// CompletionService records terminal work, quality checks and certificates.
// A request gets exactly one completion record; the record freezes once a
// certificate has been issued.
type CompletionService struct {
	completions  completionStore
	requests     completionRequestStore
	hostels      completionHostelStore
	transitioner requestTransitioner
	assignments  assignmentCloser
	costs        costRecorder
	sequences    sequenceAllocator
	renderer     certificateRenderer
	storage      certificateStorage
	audit        auditLogger
	emitter      EventEmitter
	clock        Clock
	materialTol  decimal.Decimal
	aggregateTol decimal.Decimal
	issuerName   string
	logger       *zap.Logger
}

// NewCompletionService constructs the completion recorder.
func NewCompletionService(
	completions completionStore,
	requests completionRequestStore,
	hostels completionHostelStore,
	transitioner requestTransitioner,
	assignments assignmentCloser,
	costs costRecorder,
	sequences sequenceAllocator,
	renderer certificateRenderer,
	storage certificateStorage,
	audit auditLogger,
	emitter EventEmitter,
	costCfg config.CostConfig,
	certCfg config.CertificatesConfig,
	clock Clock,
	logger *zap.Logger,
) *CompletionService {
	if clock == nil {
		clock = SystemClock()
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionService{
		completions:  completions,
		requests:     requests,
		hostels:      hostels,
		transitioner: transitioner,
		assignments:  assignments,
		costs:        costs,
		sequences:    sequences,
		renderer:     renderer,
		storage:      storage,
		audit:        audit,
		emitter:      emitter,
		clock:        clock,
		materialTol:  decimal.NewFromFloat(costCfg.MaterialTolerance),
		aggregateTol: decimal.NewFromFloat(costCfg.ComponentTolerance),
		issuerName:   certCfg.IssuerName,
		logger:       logger,
	}
}

// Complete records the terminal work for an in-progress request, closes the
// active assignment, reconciles the cost ledger and moves the request to
// COMPLETED.
func (s *CompletionService) Complete(ctx context.Context, requestID string, req dto.CompleteWorkRequest, actorID string) (*models.CompletionRecord, error) {
	if len(strings.TrimSpace(req.WorkNotes)) < 20 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "work notes must be at least 20 characters")
	}
	if req.LaborHours <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "labor hours must be positive")
	}
	materials, err := s.validateMaterials(req.Materials, req.Costs.Materials)
	if err != nil {
		return nil, err
	}
	if err := s.costs.ValidateBreakdown(req.Costs); err != nil {
		return nil, err
	}

	if _, err := s.completions.GetByRequest(ctx, requestID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request already has a completion record")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check completion record")
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "maintenance request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.Status != models.StatusInProgress {
		return nil, appErrors.InvalidTransition(string(request.Status), string(models.StatusCompleted))
	}

	note := strings.TrimSpace(req.WorkNotes)
	if _, err := s.assignments.CloseOut(ctx, requestID, req.LaborHours, nil, &note); err != nil {
		if !appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		s.logger.Sugar().Warnw("completed request without active assignment", "request_id", requestID)
	}

	if _, err := s.costs.RecordActual(ctx, requestID, req.Costs, actorID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &models.CompletionRecord{
		RequestID:   requestID,
		CompletedBy: actorID,
		WorkNotes:   note,
		LaborHours:  req.LaborHours,
		Materials:   materials,
		ActualCost:  req.Costs.ActualCost,
		CompletedAt: now,
		CreatedAt:   now,
	}
	if err := s.completions.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create completion record")
	}

	// The terminal move comes last: every earlier step can fail and leave the
	// request recoverable in IN_PROGRESS, but nothing moves a request out of
	// COMPLETED.
	if _, err := s.transitioner.Transition(ctx, requestID, dto.TransitionRequest{ToStatus: models.StatusCompleted}, actorID); err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(record); err == nil {
		s.emitAudit(ctx, &models.AuditLog{
			ActorID:    &actorID,
			Action:     models.AuditActionCompletionRecord,
			Resource:   "completion",
			ResourceID: &record.ID,
			NewValues:  payload,
		})
	}
	s.emitter.Emit(ctx, models.DomainEvent{
		Type:       models.EventRequestCompleted,
		RequestID:  requestID,
		HostelID:   request.HostelID,
		Actor:      actorID,
		OccurredAt: now,
	})
	return record, nil
}

// validateMaterials checks every line's quantity times unit cost against its
// stated total, and the aggregate against the materials component of the
// cost breakdown.
func (s *CompletionService) validateMaterials(items []dto.MaterialItemRequest, materialsComponent decimal.Decimal) (models.MaterialItems, error) {
	materials := make(models.MaterialItems, 0, len(items))
	aggregate := decimal.Zero
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("material %d: name is required", i+1))
		}
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("material %d: quantity must be positive", i+1))
		}
		if item.UnitCost.IsNegative() || item.TotalCost.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("material %d: costs cannot be negative", i+1))
		}
		expected := item.Quantity.Mul(item.UnitCost)
		if expected.Sub(item.TotalCost).Abs().GreaterThan(s.materialTol) {
			return nil, appErrors.Clone(appErrors.ErrCostMismatch,
				fmt.Sprintf("material %d: quantity x unit cost is %s, stated total is %s", i+1, expected.StringFixed(2), item.TotalCost.StringFixed(2)))
		}
		aggregate = aggregate.Add(item.TotalCost)
		materials = append(materials, models.MaterialItem{
			Name:      strings.TrimSpace(item.Name),
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
			TotalCost: item.TotalCost,
		})
	}
	if aggregate.Sub(materialsComponent).Abs().GreaterThan(s.aggregateTol) {
		return nil, appErrors.Clone(appErrors.ErrCostMismatch,
			fmt.Sprintf("material lines sum to %s but the materials component states %s", aggregate.StringFixed(2), materialsComponent.StringFixed(2)))
	}
	return materials, nil
}

// RecordQualityCheck inspects a completion. A checklist item marked both
// critical and failed forces the overall result to failed; rework demands
// details, a future deadline and a failed result.
func (s *CompletionService) RecordQualityCheck(ctx context.Context, completionID string, req dto.QualityCheckRequest, actorID string) (*models.QualityCheck, error) {
	completion, err := s.getCompletion(ctx, completionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotCertified(ctx, completion.ID); err != nil {
		return nil, err
	}

	for _, item := range req.Checklist {
		if item.Critical && !item.Passed && req.Passed {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				"quality check cannot pass while a critical checklist item failed: "+item.Item)
		}
	}
	now := s.clock.Now()
	if req.ReworkRequired {
		if req.Passed {
			return nil, appErrors.Clone(appErrors.ErrValidation, "rework cannot be required on a passed check")
		}
		if strings.TrimSpace(req.ReworkDetails) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "rework details are required")
		}
		if req.ReworkDeadline == nil || !req.ReworkDeadline.After(now) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "rework deadline must be in the future")
		}
	}

	check := &models.QualityCheck{
		CompletionID:   completion.ID,
		CheckedBy:      actorID,
		Passed:         req.Passed,
		Checklist:      req.Checklist,
		ReworkRequired: req.ReworkRequired,
		ReworkDeadline: req.ReworkDeadline,
		CheckedAt:      now,
	}
	if req.ReworkRequired {
		details := strings.TrimSpace(req.ReworkDetails)
		check.ReworkDetails = &details
	}
	if err := s.completions.CreateQualityCheck(ctx, check); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create quality check")
	}

	if payload, err := json.Marshal(check); err == nil {
		s.emitAudit(ctx, &models.AuditLog{
			ActorID:    &actorID,
			Action:     models.AuditActionQualityCheck,
			Resource:   "quality_check",
			ResourceID: &check.ID,
			NewValues:  payload,
		})
	}
	return check, nil
}

// IssueCertificate issues the completion certificate, renders the PDF and
// stores it. Dates must order workStart <= completion <= verification <=
// issue; at most one certificate exists per completion.
func (s *CompletionService) IssueCertificate(ctx context.Context, completionID string, req dto.IssueCertificateRequest, actorID string) (*models.Certificate, error) {
	completion, err := s.getCompletion(ctx, completionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotCertified(ctx, completion.ID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	completionDate := completion.CompletedAt
	if req.WorkStartDate.After(completionDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "work start date must not be after the completion date")
	}
	if req.VerificationDate.Before(completionDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "verification date must not be before the completion date")
	}
	if req.VerificationDate.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "verification date must not be after the issue date")
	}

	cert := &models.Certificate{
		CompletionID:     completion.ID,
		WorkSummary:      strings.TrimSpace(req.WorkSummary),
		WorkStartDate:    req.WorkStartDate,
		CompletionDate:   completionDate,
		VerificationDate: req.VerificationDate,
		IssueDate:        now,
		IssuedBy:         actorID,
		VerifiedBy:       req.VerifiedBy,
		WarrantyApplies:  req.WarrantyApplies,
		CreatedAt:        now,
	}
	if req.WarrantyApplies {
		if req.WarrantyMonths < 1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "warranty months are required when warranty applies")
		}
		if strings.TrimSpace(req.WarrantyTerms) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "warranty terms are required when warranty applies")
		}
		months := req.WarrantyMonths
		terms := strings.TrimSpace(req.WarrantyTerms)
		until := completionDate.Add(time.Duration(months) * 30 * 24 * time.Hour)
		cert.WarrantyMonths = &months
		cert.WarrantyTerms = &terms
		cert.WarrantyUntil = &until
	}

	number, err := s.nextCertificateNumber(ctx, now)
	if err != nil {
		return nil, err
	}
	cert.CertificateNumber = number

	request, err := s.requests.GetByID(ctx, completion.RequestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request for certificate")
	}
	hostelName := request.HostelID
	if hostel, err := s.hostels.GetByID(ctx, request.HostelID); err == nil {
		hostelName = hostel.Name
	}

	pdfBytes, err := s.renderer.Render(export.CertificateDocument{
		CertificateNumber: cert.CertificateNumber,
		RequestNumber:     request.RequestNumber,
		HostelName:        hostelName,
		WorkSummary:       cert.WorkSummary,
		CompletedBy:       completion.CompletedBy,
		VerifiedBy:        cert.VerifiedBy,
		WorkStartDate:     cert.WorkStartDate,
		CompletionDate:    cert.CompletionDate,
		VerificationDate:  cert.VerificationDate,
		IssueDate:         cert.IssueDate,
		WarrantyUntil:     cert.WarrantyUntil,
		IssuerName:        s.issuerName,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	path, err := s.storage.Save(cert.CertificateNumber+".pdf", pdfBytes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store certificate")
	}
	cert.FilePath = &path

	if err := s.completions.CreateCertificate(ctx, cert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create certificate")
	}

	s.emitAudit(ctx, &models.AuditLog{
		ActorID:    &actorID,
		Action:     models.AuditActionCertificateIssue,
		Resource:   "certificate",
		ResourceID: &cert.ID,
	})
	s.emitter.Emit(ctx, models.DomainEvent{
		Type:      models.EventCertificateIssued,
		RequestID: completion.RequestID,
		HostelID:  request.HostelID,
		Actor:     actorID,
		Payload: map[string]interface{}{
			"certificateNumber": cert.CertificateNumber,
		},
		OccurredAt: now,
	})
	return cert, nil
}

// GetByRequest returns the completion record for a request.
func (s *CompletionService) GetByRequest(ctx context.Context, requestID string) (*models.CompletionRecord, error) {
	record, err := s.completions.GetByRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "completion record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion record")
	}
	return record, nil
}

// QualityChecks returns all checks recorded against a completion.
func (s *CompletionService) QualityChecks(ctx context.Context, completionID string) ([]models.QualityCheck, error) {
	checks, err := s.completions.ListQualityChecks(ctx, completionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quality checks")
	}
	return checks, nil
}

// Certificate returns the certificate issued for a completion, if any.
func (s *CompletionService) Certificate(ctx context.Context, completionID string) (*models.Certificate, error) {
	cert, err := s.completions.GetCertificateByCompletion(ctx, completionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return cert, nil
}

func (s *CompletionService) getCompletion(ctx context.Context, completionID string) (*models.CompletionRecord, error) {
	completion, err := s.completions.GetByID(ctx, completionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "completion record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion record")
	}
	return completion, nil
}

// ensureNotCertified enforces post-certificate immutability.
func (s *CompletionService) ensureNotCertified(ctx context.Context, completionID string) error {
	_, err := s.completions.GetCertificateByCompletion(ctx, completionID)
	if err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "completion already has a certificate issued")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check certificate")
	}
	return nil
}

func (s *CompletionService) nextCertificateNumber(ctx context.Context, now time.Time) (string, error) {
	scope := fmt.Sprintf("CERT-%04d-%02d", now.Year(), int(now.Month()))
	seq, err := s.sequences.Next(ctx, scope)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate certificate number")
	}
	return fmt.Sprintf("%s-%04d", scope, seq), nil
}

func (s *CompletionService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("failed to write audit log", "action", log.Action, "error", err)
	}
}
