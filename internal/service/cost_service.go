package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/pkg/config"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
)

type costStore interface {
	Upsert(ctx context.Context, record *models.CostRecord) error
	GetByRequest(ctx context.Context, requestID string) (*models.CostRecord, error)
	ListOverBudget(ctx context.Context, hostelID string) ([]models.CostRecord, error)
}

type costRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.MaintenanceRequest, error)
}

type costApprovalStore interface {
	ListByRequest(ctx context.Context, requestID string) ([]models.ApprovalRecord, error)
}

// CostService reconciles actual maintenance spend against approved budgets.
type CostService struct {
	costs     costStore
	requests  costRequestStore
	approvals costApprovalStore
	audit     auditLogger
	clock     Clock
	tolerance decimal.Decimal
	logger    *zap.Logger
}

// NewCostService constructs the cost ledger.
func NewCostService(costs costStore, requests costRequestStore, approvals costApprovalStore, audit auditLogger, cfg config.CostConfig, clock Clock, logger *zap.Logger) *CostService {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CostService{
		costs:     costs,
		requests:  requests,
		approvals: approvals,
		audit:     audit,
		clock:     clock,
		tolerance: decimal.NewFromFloat(cfg.ComponentTolerance),
		logger:    logger,
	}
}

// RecordActual writes or replaces the cost record for a request. The
// component breakdown must sum to the actual cost within the configured
// tolerance, and no component may be negative.
func (s *CostService) RecordActual(ctx context.Context, requestID string, req dto.RecordCostRequest, actorID string) (*models.CostRecord, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "maintenance request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	components := breakdownComponents(req)
	if err := s.validate(req.ActualCost, components); err != nil {
		return nil, err
	}

	approved, err := s.approvedCost(ctx, request)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &models.CostRecord{
		RequestID:     requestID,
		EstimatedCost: request.EstimatedCost,
		ApprovedCost:  approved,
		ActualCost:    req.ActualCost,
		RecordedBy:    actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	record.SetComponents(components)
	record.Variance = req.ActualCost.Sub(approved)
	record.VariancePercent = variancePercent(record.Variance, approved)
	record.WithinBudget = req.ActualCost.LessThanOrEqual(approved)

	if err := s.costs.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record cost")
	}

	if payload, err := json.Marshal(record); err == nil {
		s.emitAudit(ctx, &models.AuditLog{
			ActorID:    &actorID,
			Action:     models.AuditActionCostRecord,
			Resource:   "cost_record",
			ResourceID: &requestID,
			NewValues:  payload,
		})
	}
	if !record.WithinBudget {
		s.logger.Sugar().Warnw("request over budget",
			"request_id", requestID,
			"approved", approved.String(),
			"actual", req.ActualCost.String(),
			"variance_percent", record.VariancePercent,
		)
	}
	return record, nil
}

// GetByRequest returns the cost record for a request.
func (s *CostService) GetByRequest(ctx context.Context, requestID string) (*models.CostRecord, error) {
	record, err := s.costs.GetByRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cost record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cost record")
	}
	return record, nil
}

// ListOverBudget returns cost records whose actuals exceeded the approved
// budget, optionally scoped to one hostel.
func (s *CostService) ListOverBudget(ctx context.Context, hostelID string) ([]models.CostRecord, error) {
	records, err := s.costs.ListOverBudget(ctx, hostelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list over-budget records")
	}
	return records, nil
}

// ValidateBreakdown runs the component-sum and negativity rules on a cost
// payload without touching storage, so callers can reject bad payloads
// before making any state change of their own.
func (s *CostService) ValidateBreakdown(req dto.RecordCostRequest) error {
	return s.validate(req.ActualCost, breakdownComponents(req))
}

func breakdownComponents(req dto.RecordCostRequest) models.CostComponents {
	return models.CostComponents{
		Materials: req.Materials,
		Labor:     req.Labor,
		Vendor:    req.Vendor,
		Other:     req.Other,
		Tax:       req.Tax,
	}
}

func (s *CostService) validate(actual decimal.Decimal, components models.CostComponents) error {
	if actual.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "actual cost cannot be negative")
	}
	for _, part := range []decimal.Decimal{components.Materials, components.Labor, components.Vendor, components.Other, components.Tax} {
		if part.IsNegative() {
			return appErrors.Clone(appErrors.ErrValidation, "cost components cannot be negative")
		}
	}
	diff := components.Sum().Sub(actual).Abs()
	if diff.GreaterThan(s.tolerance) {
		return appErrors.Clone(appErrors.ErrCostMismatch,
			"component breakdown differs from actual cost by "+diff.StringFixed(2))
	}
	return nil
}

// approvedCost resolves the budget to reconcile against: the amount granted
// on the latest approved record when one exists, the estimate otherwise.
func (s *CostService) approvedCost(ctx context.Context, request *models.MaintenanceRequest) (decimal.Decimal, error) {
	records, err := s.approvals.ListByRequest(ctx, request.ID)
	if err != nil {
		return decimal.Zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approvals")
	}
	for _, record := range records {
		if record.Approved != nil && *record.Approved {
			if record.ApprovedAmount.Valid {
				return record.ApprovedAmount.Decimal, nil
			}
			return record.EstimatedCost, nil
		}
	}
	return request.EstimatedCost, nil
}

// variancePercent reads as 0 against a zero approved budget; there is no
// meaningful percentage of nothing.
func variancePercent(variance, approved decimal.Decimal) float64 {
	if approved.IsZero() {
		return 0
	}
	pct, _ := variance.Div(approved).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return pct
}

func (s *CostService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("failed to write audit log", "action", log.Action, "error", err)
	}
}
