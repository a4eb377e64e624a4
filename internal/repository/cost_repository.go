package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hostelhq/maintenance-api/internal/models"
)

const costColumns = `id, request_id, estimated_cost, approved_cost, actual_cost, materials_cost,
       labor_cost, vendor_cost, other_cost, tax_cost, variance, variance_percent,
       within_budget, recorded_by, created_at, updated_at`

// CostRepository persists cost records, one per request.
type CostRepository struct {
	db *sqlx.DB
}

// NewCostRepository constructs the repository.
func NewCostRepository(db *sqlx.DB) *CostRepository {
	return &CostRepository{db: db}
}

// Upsert writes the cost record, replacing the previous reconciliation for
// the request if one exists.
func (r *CostRepository) Upsert(ctx context.Context, record *models.CostRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO cost_records
	(id, request_id, estimated_cost, approved_cost, actual_cost, materials_cost, labor_cost,
	 vendor_cost, other_cost, tax_cost, variance, variance_percent, within_budget, recorded_by,
	 created_at, updated_at)
	VALUES (:id, :request_id, :estimated_cost, :approved_cost, :actual_cost, :materials_cost, :labor_cost,
	 :vendor_cost, :other_cost, :tax_cost, :variance, :variance_percent, :within_budget, :recorded_by,
	 :created_at, :updated_at)
	ON CONFLICT (request_id)
	DO UPDATE SET actual_cost = EXCLUDED.actual_cost, approved_cost = EXCLUDED.approved_cost,
	              materials_cost = EXCLUDED.materials_cost, labor_cost = EXCLUDED.labor_cost,
	              vendor_cost = EXCLUDED.vendor_cost, other_cost = EXCLUDED.other_cost,
	              tax_cost = EXCLUDED.tax_cost, variance = EXCLUDED.variance,
	              variance_percent = EXCLUDED.variance_percent, within_budget = EXCLUDED.within_budget,
	              recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert cost record: %w", err)
	}
	return nil
}

// GetByRequest returns the cost record for a request.
func (r *CostRepository) GetByRequest(ctx context.Context, requestID string) (*models.CostRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM cost_records WHERE request_id = $1`, costColumns)
	var record models.CostRecord
	if err := r.db.GetContext(ctx, &record, query, requestID); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListOverBudget returns cost records that exceeded their approved budget.
func (r *CostRepository) ListOverBudget(ctx context.Context, hostelID string) ([]models.CostRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM cost_records c
WHERE c.within_budget = FALSE`, prefixColumns(costColumns, "c"))
	args := []interface{}{}
	if hostelID != "" {
		args = append(args, hostelID)
		query += ` AND EXISTS (SELECT 1 FROM maintenance_requests mr
WHERE mr.id = c.request_id AND mr.hostel_id = $1 AND mr.deleted_at IS NULL)`
	}
	query += " ORDER BY c.updated_at DESC"

	var records []models.CostRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list over-budget cost records: %w", err)
	}
	return records, nil
}
