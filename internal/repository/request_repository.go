package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hostelhq/maintenance-api/internal/models"
)

const requestColumns = `id, request_number, hostel_id, room_number, area, title, description,
       category, issue_type, priority, status, estimated_cost, requires_approval,
       requested_by, assigned_to, schedule_id, deadline, created_at, assigned_at,
       started_at, completed_at, updated_at, deleted_at`

// RequestRepository persists maintenance requests and their status history.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request row.
func (r *RequestRepository) Create(ctx context.Context, request *models.MaintenanceRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	const query = `INSERT INTO maintenance_requests
	(id, request_number, hostel_id, room_number, area, title, description, category, issue_type,
	 priority, status, estimated_cost, requires_approval, requested_by, assigned_to, schedule_id,
	 deadline, created_at, assigned_at, started_at, completed_at, updated_at, deleted_at)
	VALUES (:id, :request_number, :hostel_id, :room_number, :area, :title, :description, :category, :issue_type,
	 :priority, :status, :estimated_cost, :requires_approval, :requested_by, :assigned_to, :schedule_id,
	 :deadline, :created_at, :assigned_at, :started_at, :completed_at, :updated_at, :deleted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create maintenance request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier, excluding soft-deleted rows.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM maintenance_requests WHERE id = $1 AND deleted_at IS NULL`, requestColumns)
	var request models.MaintenanceRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter (latest first).
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM maintenance_requests`, requestColumns))

	conditions := []string{"deleted_at IS NULL"}
	if filter.HostelID != "" {
		args = append(args, filter.HostelID)
		conditions = append(conditions, fmt.Sprintf("hostel_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	builder.WriteString(" WHERE ")
	builder.WriteString(strings.Join(conditions, " AND "))
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.MaintenanceRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list maintenance requests: %w", err)
	}
	return requests, nil
}

// UpdateStatusParams groups columns stamped during a status move.
type UpdateStatusParams struct {
	ID          string
	FromStatus  models.RequestStatus
	ToStatus    models.RequestStatus
	AssignedTo  *string
	AssignedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Deadline    *time.Time
	UpdatedAt   time.Time
}

// UpdateStatus moves a request between statuses with a conditional update.
// The WHERE clause pins the expected current status, so a concurrent writer
// that moved the row first makes this return sql.ErrNoRows.
func (r *RequestRepository) UpdateStatus(ctx context.Context, params UpdateStatusParams) error {
	setParts := []string{"status = :to_status", "updated_at = :updated_at"}
	if params.AssignedTo != nil {
		setParts = append(setParts, "assigned_to = :assigned_to")
	}
	if params.AssignedAt != nil {
		setParts = append(setParts, "assigned_at = :assigned_at")
	}
	if params.StartedAt != nil {
		setParts = append(setParts, "started_at = :started_at")
	}
	if params.CompletedAt != nil {
		setParts = append(setParts, "completed_at = :completed_at")
	}
	if params.Deadline != nil {
		setParts = append(setParts, "deadline = :deadline")
	}
	query := fmt.Sprintf(`UPDATE maintenance_requests SET %s
WHERE id = :id AND status = :from_status AND deleted_at IS NULL`, strings.Join(setParts, ", "))

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":           params.ID,
		"from_status":  params.FromStatus,
		"to_status":    params.ToStatus,
		"assigned_to":  params.AssignedTo,
		"assigned_at":  params.AssignedAt,
		"started_at":   params.StartedAt,
		"completed_at": params.CompletedAt,
		"deadline":     params.Deadline,
		"updated_at":   params.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check request status update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete stamps the deletion timestamp without removing the row.
func (r *RequestRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE maintenance_requests SET deleted_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check request delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendStatusHistory records one status move.
func (r *RequestRepository) AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO request_status_history (id, request_id, from_status, to_status, actor, notes, created_at)
VALUES (:id, :request_id, :from_status, :to_status, :actor, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

// ListStatusHistory returns the status trail for a request, oldest first.
func (r *RequestRepository) ListStatusHistory(ctx context.Context, requestID string) ([]models.StatusHistoryEntry, error) {
	const query = `SELECT id, request_id, from_status, to_status, actor, notes, created_at
FROM request_status_history WHERE request_id = $1 ORDER BY created_at ASC`
	var entries []models.StatusHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, requestID); err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return entries, nil
}

// ListUnassignedUrgent returns open requests at or above HIGH priority with no assignee.
func (r *RequestRepository) ListUnassignedUrgent(ctx context.Context, hostelID string) ([]models.MaintenanceRequest, error) {
	builder := strings.Builder{}
	args := []interface{}{}
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM maintenance_requests
WHERE deleted_at IS NULL AND assigned_to IS NULL
  AND priority IN ('HIGH', 'CRITICAL')
  AND status IN ('PENDING', 'APPROVED')`, requestColumns))
	if hostelID != "" {
		args = append(args, hostelID)
		builder.WriteString(fmt.Sprintf(" AND hostel_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY created_at ASC")

	var requests []models.MaintenanceRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list unassigned urgent requests: %w", err)
	}
	return requests, nil
}

// ListPastDeadline returns non-completed requests whose deadline has elapsed.
func (r *RequestRepository) ListPastDeadline(ctx context.Context, hostelID string, now time.Time) ([]models.MaintenanceRequest, error) {
	builder := strings.Builder{}
	args := []interface{}{now}
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM maintenance_requests
WHERE deleted_at IS NULL AND deadline IS NOT NULL AND deadline < $1
  AND status NOT IN ('COMPLETED', 'CANCELLED', 'REJECTED')`, requestColumns))
	if hostelID != "" {
		args = append(args, hostelID)
		builder.WriteString(fmt.Sprintf(" AND hostel_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY deadline ASC")

	var requests []models.MaintenanceRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list past-deadline requests: %w", err)
	}
	return requests, nil
}

// CountByStatus aggregates live request counts per status, optionally for
// one hostel.
func (r *RequestRepository) CountByStatus(ctx context.Context, hostelID string) (map[models.RequestStatus]int, error) {
	builder := strings.Builder{}
	args := []interface{}{}
	builder.WriteString(`SELECT status, COUNT(*) AS total FROM maintenance_requests WHERE deleted_at IS NULL`)
	if hostelID != "" {
		args = append(args, hostelID)
		builder.WriteString(fmt.Sprintf(" AND hostel_id = $%d", len(args)))
	}
	builder.WriteString(" GROUP BY status")

	rows := []struct {
		Status models.RequestStatus `db:"status"`
		Total  int                  `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("count requests by status: %w", err)
	}
	counts := make(map[models.RequestStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// HasOpenForSchedule reports whether a schedule already has a live generated
// request, so a sweep does not open duplicates for the same due date.
func (r *RequestRepository) HasOpenForSchedule(ctx context.Context, scheduleID string) (bool, error) {
	const query = `SELECT EXISTS (
SELECT 1 FROM maintenance_requests
WHERE schedule_id = $1 AND deleted_at IS NULL
  AND status NOT IN ('COMPLETED', 'CANCELLED', 'REJECTED'))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, scheduleID); err != nil {
		return false, fmt.Errorf("check open schedule request: %w", err)
	}
	return exists, nil
}
