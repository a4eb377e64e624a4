package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/hostelhq/maintenance-api/internal/models"
)

const approvalColumns = `id, request_id, requested_by, estimated_cost, justification, approval_level,
       approved, approved_amount, conditions, decided_by, decision_reason, allow_resubmission,
       retroactive, requested_at, deadline, decided_at, escalated_at, escalation_reason`

// ApprovalRepository persists approval records.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create inserts a new approval record.
func (r *ApprovalRepository) Create(ctx context.Context, record *models.ApprovalRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RequestedAt.IsZero() {
		record.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approval_records
	(id, request_id, requested_by, estimated_cost, justification, approval_level, approved,
	 approved_amount, conditions, decided_by, decision_reason, allow_resubmission, retroactive,
	 requested_at, deadline, decided_at, escalated_at, escalation_reason)
	VALUES (:id, :request_id, :requested_by, :estimated_cost, :justification, :approval_level, :approved,
	 :approved_amount, :conditions, :decided_by, :decision_reason, :allow_resubmission, :retroactive,
	 :requested_at, :deadline, :decided_at, :escalated_at, :escalation_reason)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create approval record: %w", err)
	}
	return nil
}

// GetByID fetches an approval record by identifier.
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.ApprovalRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM approval_records WHERE id = $1`, approvalColumns)
	var record models.ApprovalRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetOpenByRequest returns the unresolved approval for a request, if any.
// At most one open approval exists per request at a time.
func (r *ApprovalRepository) GetOpenByRequest(ctx context.Context, requestID string) (*models.ApprovalRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM approval_records
WHERE request_id = $1 AND approved IS NULL ORDER BY requested_at DESC LIMIT 1`, approvalColumns)
	var record models.ApprovalRecord
	if err := r.db.GetContext(ctx, &record, query, requestID); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByRequest returns all approval cycles for a request, oldest first.
func (r *ApprovalRepository) ListByRequest(ctx context.Context, requestID string) ([]models.ApprovalRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM approval_records
WHERE request_id = $1 ORDER BY requested_at ASC`, approvalColumns)
	var records []models.ApprovalRecord
	if err := r.db.SelectContext(ctx, &records, query, requestID); err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	return records, nil
}

// ResolveParams carries the decision columns.
type ResolveParams struct {
	ID                string
	Approved          bool
	DecidedBy         string
	DecisionReason    *string
	ApprovedAmount    decimal.NullDecimal
	Conditions        *string
	AllowResubmission bool
	DecidedAt         time.Time
}

// Resolve records an approve/reject decision. The WHERE approved IS NULL
// clause serialises concurrent resolutions: only the first writer wins, any
// later call sees sql.ErrNoRows.
func (r *ApprovalRepository) Resolve(ctx context.Context, params ResolveParams) error {
	const query = `UPDATE approval_records
SET approved = :approved, decided_by = :decided_by, decision_reason = :decision_reason,
    approved_amount = :approved_amount, conditions = :conditions,
    allow_resubmission = :allow_resubmission, decided_at = :decided_at
WHERE id = :id AND approved IS NULL`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                 params.ID,
		"approved":           params.Approved,
		"decided_by":         params.DecidedBy,
		"decision_reason":    params.DecisionReason,
		"approved_amount":    params.ApprovedAmount,
		"conditions":         params.Conditions,
		"allow_resubmission": params.AllowResubmission,
		"decided_at":         params.DecidedAt,
	})
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check approval resolve rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Escalate raises the required level of a still-open approval and resets the
// response deadline. Permitted once: a second escalation sees sql.ErrNoRows.
func (r *ApprovalRepository) Escalate(ctx context.Context, id string, newLevel models.ApprovalLevel, reason string, escalatedAt time.Time, newDeadline time.Time) error {
	const query = `UPDATE approval_records
SET approval_level = $2, escalation_reason = $3, escalated_at = $4, deadline = $5
WHERE id = $1 AND approved IS NULL AND escalated_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, newLevel, reason, escalatedAt, newDeadline)
	if err != nil {
		return fmt.Errorf("escalate approval: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check approval escalate rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListOpenOlderThan returns unresolved approvals whose clock anchor (the
// escalation time when present, otherwise the request time) is before cutoff.
func (r *ApprovalRepository) ListOpenOlderThan(ctx context.Context, cutoff time.Time, hostelID string) ([]models.ApprovalRecord, error) {
	builder := strings.Builder{}
	args := []interface{}{cutoff}
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM approval_records a`, prefixColumns(approvalColumns, "a")))
	builder.WriteString(` WHERE a.approved IS NULL AND COALESCE(a.escalated_at, a.requested_at) < $1`)
	if hostelID != "" {
		args = append(args, hostelID)
		builder.WriteString(fmt.Sprintf(` AND EXISTS (SELECT 1 FROM maintenance_requests mr
WHERE mr.id = a.request_id AND mr.hostel_id = $%d AND mr.deleted_at IS NULL)`, len(args)))
	}
	builder.WriteString(" ORDER BY a.requested_at ASC")

	var records []models.ApprovalRecord
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list overdue approvals: %w", err)
	}
	return records, nil
}

func prefixColumns(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
