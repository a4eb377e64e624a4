package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hostelhq/maintenance-api/internal/models"
)

const completionColumns = `id, request_id, completed_by, work_notes, labor_hours, materials,
       actual_cost, completed_at, created_at`

const certificateColumns = `id, completion_id, certificate_number, work_summary, work_start_date,
       completion_date, verification_date, issue_date, issued_by, verified_by, warranty_applies,
       warranty_months, warranty_terms, warranty_until, file_path, created_at`

// CompletionRepository persists completion records, quality checks and certificates.
type CompletionRepository struct {
	db *sqlx.DB
}

// NewCompletionRepository constructs the repository.
func NewCompletionRepository(db *sqlx.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// Create inserts the terminal work record. The unique index on request_id
// enforces exactly one completion per request.
func (r *CompletionRepository) Create(ctx context.Context, record *models.CompletionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO completion_records
	(id, request_id, completed_by, work_notes, labor_hours, materials, actual_cost, completed_at, created_at)
	VALUES (:id, :request_id, :completed_by, :work_notes, :labor_hours, :materials, :actual_cost, :completed_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create completion record: %w", err)
	}
	return nil
}

// GetByID fetches a completion record by identifier.
func (r *CompletionRepository) GetByID(ctx context.Context, id string) (*models.CompletionRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM completion_records WHERE id = $1`, completionColumns)
	var record models.CompletionRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByRequest fetches the completion record for a request.
func (r *CompletionRepository) GetByRequest(ctx context.Context, requestID string) (*models.CompletionRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM completion_records WHERE request_id = $1`, completionColumns)
	var record models.CompletionRecord
	if err := r.db.GetContext(ctx, &record, query, requestID); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateQualityCheck records an inspection outcome.
func (r *CompletionRepository) CreateQualityCheck(ctx context.Context, check *models.QualityCheck) error {
	if check.ID == "" {
		check.ID = uuid.NewString()
	}
	if check.CheckedAt.IsZero() {
		check.CheckedAt = time.Now().UTC()
	}
	const query = `INSERT INTO quality_checks
	(id, completion_id, checked_by, passed, checklist, rework_required, rework_details, rework_deadline, checked_at)
	VALUES (:id, :completion_id, :checked_by, :passed, :checklist, :rework_required, :rework_details, :rework_deadline, :checked_at)`
	if _, err := r.db.NamedExecContext(ctx, query, check); err != nil {
		return fmt.Errorf("create quality check: %w", err)
	}
	return nil
}

// ListQualityChecks returns the inspection history for a completion.
func (r *CompletionRepository) ListQualityChecks(ctx context.Context, completionID string) ([]models.QualityCheck, error) {
	const query = `SELECT id, completion_id, checked_by, passed, checklist, rework_required,
       rework_details, rework_deadline, checked_at
FROM quality_checks WHERE completion_id = $1 ORDER BY checked_at ASC`
	var checks []models.QualityCheck
	if err := r.db.SelectContext(ctx, &checks, query, completionID); err != nil {
		return nil, fmt.Errorf("list quality checks: %w", err)
	}
	return checks, nil
}

// CreateCertificate records an issued certificate.
func (r *CompletionRepository) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO certificates
	(id, completion_id, certificate_number, work_summary, work_start_date, completion_date,
	 verification_date, issue_date, issued_by, verified_by, warranty_applies, warranty_months,
	 warranty_terms, warranty_until, file_path, created_at)
	VALUES (:id, :completion_id, :certificate_number, :work_summary, :work_start_date, :completion_date,
	 :verification_date, :issue_date, :issued_by, :verified_by, :warranty_applies, :warranty_months,
	 :warranty_terms, :warranty_until, :file_path, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// GetCertificateByCompletion fetches the certificate for a completion, if issued.
func (r *CompletionRepository) GetCertificateByCompletion(ctx context.Context, completionID string) (*models.Certificate, error) {
	query := fmt.Sprintf(`SELECT %s FROM certificates WHERE completion_id = $1`, certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, completionID); err != nil {
		return nil, err
	}
	return &cert, nil
}

// GetCertificateByID fetches a certificate by identifier.
func (r *CompletionRepository) GetCertificateByID(ctx context.Context, id string) (*models.Certificate, error) {
	query := fmt.Sprintf(`SELECT %s FROM certificates WHERE id = $1`, certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		return nil, err
	}
	return &cert, nil
}
