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

const scheduleColumns = `id, hostel_id, title, description, category, priority, recurrence,
       interval_days, anchor_day, estimated_cost, next_due_date, total_executions,
       successful_runs, is_active, created_by, created_at, updated_at`

// ScheduleRepository persists preventive-maintenance schedules and their runs.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a new schedule.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	const query = `INSERT INTO schedules
	(id, hostel_id, title, description, category, priority, recurrence, interval_days,
	 anchor_day, estimated_cost, next_due_date, total_executions, successful_runs, is_active,
	 created_by, created_at, updated_at)
	VALUES (:id, :hostel_id, :title, :description, :category, :priority, :recurrence, :interval_days,
	 :anchor_day, :estimated_cost, :next_due_date, :total_executions, :successful_runs, :is_active,
	 :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// GetByID fetches a schedule by identifier.
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1`, scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListDue returns active schedules due at or before now.
func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules
WHERE is_active = TRUE AND next_due_date <= $1 ORDER BY next_due_date ASC`, scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, now); err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	return schedules, nil
}

// ListByHostel returns schedules for a hostel, active first.
func (r *ScheduleRepository) ListByHostel(ctx context.Context, hostelID string) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules
WHERE hostel_id = $1 ORDER BY is_active DESC, next_due_date ASC`, scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, hostelID); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// CreateExecution records one run of a schedule.
func (r *ScheduleRepository) CreateExecution(ctx context.Context, execution *models.ScheduleExecution) error {
	if execution.ID == "" {
		execution.ID = uuid.NewString()
	}
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedule_executions
	(id, schedule_id, request_id, scheduled_date, execution_date, executed_by, completed,
	 was_on_time, days_delayed, notes, created_at)
	VALUES (:id, :schedule_id, :request_id, :scheduled_date, :execution_date, :executed_by, :completed,
	 :was_on_time, :days_delayed, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, execution); err != nil {
		return fmt.Errorf("create schedule execution: %w", err)
	}
	return nil
}

// ListExecutions returns the run history for a schedule, latest first.
func (r *ScheduleRepository) ListExecutions(ctx context.Context, scheduleID string) ([]models.ScheduleExecution, error) {
	const query = `SELECT id, schedule_id, request_id, scheduled_date, execution_date, executed_by,
       completed, was_on_time, days_delayed, notes, created_at
FROM schedule_executions WHERE schedule_id = $1 ORDER BY execution_date DESC`
	var executions []models.ScheduleExecution
	if err := r.db.SelectContext(ctx, &executions, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule executions: %w", err)
	}
	return executions, nil
}

// AdvanceParams carries the bookkeeping updated after a completed execution.
type AdvanceParams struct {
	ID          string
	NextDueDate time.Time
	Completed   bool
	UpdatedAt   time.Time
}

// Advance bumps execution totals and moves next_due_date forward. The
// WHERE clause refuses to move the due date backwards, keeping the
// strictly-advancing invariant even under concurrent sweeps.
func (r *ScheduleRepository) Advance(ctx context.Context, params AdvanceParams) error {
	successIncrement := 0
	if params.Completed {
		successIncrement = 1
	}
	const query = `UPDATE schedules
SET total_executions = total_executions + 1,
    successful_runs = successful_runs + $2,
    next_due_date = $3,
    updated_at = $4
WHERE id = $1 AND next_due_date < $3`
	result, err := r.db.ExecContext(ctx, query, params.ID, successIncrement, params.NextDueDate, params.UpdatedAt)
	if err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check schedule advance rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// BumpTotals counts an execution that did not complete, leaving the due
// date untouched.
func (r *ScheduleRepository) BumpTotals(ctx context.Context, id string, updatedAt time.Time) error {
	const query = `UPDATE schedules
SET total_executions = total_executions + 1, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, updatedAt)
	if err != nil {
		return fmt.Errorf("bump schedule totals: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check schedule totals rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetActive toggles a schedule without touching its execution history.
func (r *ScheduleRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE schedules SET is_active = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set schedule active: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check schedule active rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
