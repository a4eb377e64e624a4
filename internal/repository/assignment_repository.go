package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hostelhq/maintenance-api/internal/models"
)

const assignmentColumns = `id, request_id, assignee_id, assignee_kind, assigned_by, estimated_hours,
       actual_hours, quoted_amount, deadline, is_active, is_completed, quality_rating,
       completion_note, reassign_reason, assigned_at, started_at, completed_at`

// AssignmentRepository persists assignment history. Rows are append-only.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts a new assignment row.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignments
	(id, request_id, assignee_id, assignee_kind, assigned_by, estimated_hours, actual_hours,
	 quoted_amount, deadline, is_active, is_completed, quality_rating, completion_note,
	 reassign_reason, assigned_at, started_at, completed_at)
	VALUES (:id, :request_id, :assignee_id, :assignee_kind, :assigned_by, :estimated_hours, :actual_hours,
	 :quoted_amount, :deadline, :is_active, :is_completed, :quality_rating, :completion_note,
	 :reassign_reason, :assigned_at, :started_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// GetByID fetches an assignment by identifier.
func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// GetActiveByRequest returns the active assignment, optionally narrowed to
// one assignee kind. An empty kind matches any.
func (r *AssignmentRepository) GetActiveByRequest(ctx context.Context, requestID string, kind models.AssigneeKind) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments
WHERE request_id = $1 AND is_active = TRUE AND is_completed = FALSE`, assignmentColumns)
	args := []interface{}{requestID}
	if kind != "" {
		query += ` AND assignee_kind = $2`
		args = append(args, kind)
	}
	query += ` ORDER BY assigned_at DESC LIMIT 1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, args...); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByRequest returns the full assignment history for a request, oldest first.
func (r *AssignmentRepository) ListByRequest(ctx context.Context, requestID string) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE request_id = $1 ORDER BY assigned_at ASC`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, requestID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// Deactivate retires an assignment during reassignment. The old row is
// retained for history, never rewritten beyond these flags.
func (r *AssignmentRepository) Deactivate(ctx context.Context, id string, reason string) error {
	const query = `UPDATE assignments SET is_active = FALSE, reassign_reason = $2
WHERE id = $1 AND is_active = TRUE AND is_completed = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("deactivate assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check assignment deactivate rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CompleteParams carries the completion columns for an assignment.
type CompleteParams struct {
	ID            string
	ActualHours   float64
	QualityRating *int
	Note          *string
	CompletedAt   time.Time
}

// Complete closes an active assignment. Conditional on the row still being
// active and not completed, so double completion sees sql.ErrNoRows.
func (r *AssignmentRepository) Complete(ctx context.Context, params CompleteParams) error {
	const query = `UPDATE assignments
SET is_completed = TRUE, is_active = FALSE, actual_hours = :actual_hours,
    quality_rating = :quality_rating, completion_note = :completion_note, completed_at = :completed_at
WHERE id = :id AND is_active = TRUE AND is_completed = FALSE`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":              params.ID,
		"actual_hours":    params.ActualHours,
		"quality_rating":  params.QualityRating,
		"completion_note": params.Note,
		"completed_at":    params.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("complete assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check assignment complete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkStarted stamps the work start time on the active assignment of a request.
func (r *AssignmentRepository) MarkStarted(ctx context.Context, requestID string, startedAt time.Time) error {
	const query = `UPDATE assignments SET started_at = $2
WHERE request_id = $1 AND is_active = TRUE AND is_completed = FALSE AND started_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, requestID, startedAt); err != nil {
		return fmt.Errorf("mark assignment started: %w", err)
	}
	return nil
}

// ActiveLoads aggregates current workload per assignee for the balancer.
// Only assignees carrying at least one active assignment appear; absent
// candidates are treated as zero-load by the caller.
func (r *AssignmentRepository) ActiveLoads(ctx context.Context, assigneeIDs []string) (map[string]models.Candidate, error) {
	if len(assigneeIDs) == 0 {
		return map[string]models.Candidate{}, nil
	}
	query, args, err := sqlx.In(`SELECT assignee_id, assignee_kind AS kind, COUNT(*) AS active_count,
       COALESCE(SUM(estimated_hours), 0) AS outstanding_hours
FROM assignments
WHERE is_active = TRUE AND is_completed = FALSE AND assignee_id IN (?)
GROUP BY assignee_id, assignee_kind`, assigneeIDs)
	if err != nil {
		return nil, fmt.Errorf("build active loads query: %w", err)
	}
	query = r.db.Rebind(query)

	var loads []models.Candidate
	if err := r.db.SelectContext(ctx, &loads, query, args...); err != nil {
		return nil, fmt.Errorf("aggregate active loads: %w", err)
	}
	result := make(map[string]models.Candidate, len(loads))
	for _, load := range loads {
		result[load.AssigneeID] = load
	}
	return result, nil
}
