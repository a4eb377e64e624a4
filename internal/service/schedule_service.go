package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/internal/repository"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
)

type scheduleStore interface {
	Create(ctx context.Context, schedule *models.Schedule) error
	GetByID(ctx context.Context, id string) (*models.Schedule, error)
	ListDue(ctx context.Context, now time.Time) ([]models.Schedule, error)
	ListByHostel(ctx context.Context, hostelID string) ([]models.Schedule, error)
	CreateExecution(ctx context.Context, execution *models.ScheduleExecution) error
	ListExecutions(ctx context.Context, scheduleID string) ([]models.ScheduleExecution, error)
	Advance(ctx context.Context, params repository.AdvanceParams) error
	BumpTotals(ctx context.Context, id string, updatedAt time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
}

type scheduleRequestChecker interface {
	HasOpenForSchedule(ctx context.Context, scheduleID string) (bool, error)
}

// scheduleRequestCreator spawns a maintenance request for a due schedule.
type scheduleRequestCreator interface {
	CreateFromSchedule(ctx context.Context, schedule *models.Schedule) (*models.MaintenanceRequest, error)
}

// ScheduleService maintains preventive-maintenance recurrences. Due dates
// advance strictly; executed runs keep their history even after the schedule
// is switched off.
type ScheduleService struct {
	schedules scheduleStore
	requests  scheduleRequestChecker
	creator   scheduleRequestCreator
	audit     auditLogger
	emitter   EventEmitter
	clock     Clock
	logger    *zap.Logger
}

// NewScheduleService constructs the scheduler.
func NewScheduleService(schedules scheduleStore, requests scheduleRequestChecker, audit auditLogger, emitter EventEmitter, clock Clock, logger *zap.Logger) *ScheduleService {
	if clock == nil {
		clock = SystemClock()
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		schedules: schedules,
		requests:  requests,
		audit:     audit,
		emitter:   emitter,
		clock:     clock,
		logger:    logger,
	}
}

// SetRequestCreator wires the request factory used by the sweep. Set after
// construction because the workflow engine is built on top of this service.
func (s *ScheduleService) SetRequestCreator(creator scheduleRequestCreator) {
	s.creator = creator
}

const defaultCustomIntervalDays = 30

// NextDueDate computes the due date following current under the rule. Month
// based rules are calendar aware: they aim at anchorDay and clamp to the last
// day of shorter months, so a schedule anchored on the 31st returns to the
// 31st whenever the month has one.
func NextDueDate(current time.Time, rule models.RecurrenceRule, intervalDays *int, anchorDay int) time.Time {
	switch rule {
	case models.RecurDaily:
		return current.AddDate(0, 0, 1)
	case models.RecurWeekly:
		return current.AddDate(0, 0, 7)
	case models.RecurMonthly:
		return addMonthsClamped(current, 1, anchorDay)
	case models.RecurQuarterly:
		return addMonthsClamped(current, 3, anchorDay)
	case models.RecurSemiAnnual:
		return addMonthsClamped(current, 6, anchorDay)
	case models.RecurAnnual:
		return addMonthsClamped(current, 12, anchorDay)
	case models.RecurCustom:
		days := defaultCustomIntervalDays
		if intervalDays != nil && *intervalDays > 0 {
			days = *intervalDays
		}
		return current.AddDate(0, 0, days)
	default:
		return current.AddDate(0, 0, defaultCustomIntervalDays)
	}
}

func addMonthsClamped(t time.Time, months, anchorDay int) time.Time {
	if anchorDay <= 0 {
		anchorDay = t.Day()
	}
	year, month, _ := t.Date()
	month += time.Month(months)
	for month > 12 {
		month -= 12
		year++
	}
	day := anchorDay
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	hour, min, sec := t.Clock()
	return time.Date(year, month, day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Create registers a new preventive-maintenance schedule. The first due date
// is the start date and its day-of-month becomes the anchor for later
// advances.
func (s *ScheduleService) Create(ctx context.Context, req dto.CreateScheduleRequest, actorID string) (*models.Schedule, error) {
	if !models.ValidRecurrenceRule(req.Recurrence) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown recurrence rule "+string(req.Recurrence))
	}
	if req.Recurrence == models.RecurCustom && req.IntervalDays != nil && *req.IntervalDays <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "custom interval must be positive")
	}
	if req.StartDate.Before(s.clock.Now().AddDate(-1, 0, 0)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date is too far in the past")
	}

	schedule := &models.Schedule{
		HostelID:      req.HostelID,
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		Category:      req.Category,
		Priority:      req.Priority,
		Recurrence:    req.Recurrence,
		IntervalDays:  req.IntervalDays,
		AnchorDay:     req.StartDate.Day(),
		EstimatedCost: req.EstimatedCost,
		NextDueDate:   req.StartDate,
		IsActive:      true,
		CreatedBy:     actorID,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	return schedule, nil
}

// RecordExecution logs one run against the schedule's current due date. A
// completed run advances the due date from the execution date; an incomplete
// run only bumps the totals.
func (s *ScheduleService) RecordExecution(ctx context.Context, scheduleID string, req dto.RecordExecutionRequest, actorID string) (*models.ScheduleExecution, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	scheduledDate := schedule.NextDueDate
	execution := &models.ScheduleExecution{
		ScheduleID:    scheduleID,
		ScheduledDate: scheduledDate,
		ExecutionDate: req.ExecutionDate,
		ExecutedBy:    actorID,
		Completed:     req.Completed,
		WasOnTime:     !req.ExecutionDate.After(scheduledDate),
		DaysDelayed:   daysLate(scheduledDate, req.ExecutionDate),
	}
	if req.Notes != "" {
		notes := req.Notes
		execution.Notes = &notes
	}
	if req.RequestID != "" {
		requestID := req.RequestID
		execution.RequestID = &requestID
	}
	if err := s.schedules.CreateExecution(ctx, execution); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record execution")
	}

	now := s.clock.Now()
	if req.Completed {
		next := NextDueDate(req.ExecutionDate, schedule.Recurrence, schedule.IntervalDays, schedule.AnchorDay)
		err = s.schedules.Advance(ctx, repository.AdvanceParams{
			ID:          scheduleID,
			NextDueDate: next,
			Completed:   true,
			UpdatedAt:   now,
		})
		if err != nil && errors.Is(err, sql.ErrNoRows) {
			// A concurrent execution already advanced further; totals for
			// this run still need counting.
			err = s.schedules.BumpTotals(ctx, scheduleID, now)
		}
	} else {
		err = s.schedules.BumpTotals(ctx, scheduleID, now)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule totals")
	}

	s.emitAudit(ctx, &models.AuditLog{
		ActorID:    &actorID,
		Action:     models.AuditActionScheduleExecution,
		Resource:   "schedule",
		ResourceID: &scheduleID,
	})
	return execution, nil
}

// Sweep generates maintenance requests for every due schedule that does not
// already have a live generated request. Driven by an external trigger, once
// per invocation.
func (s *ScheduleService) Sweep(ctx context.Context) (int, error) {
	if s.creator == nil {
		return 0, appErrors.Clone(appErrors.ErrInternal, "sweep invoked without a request creator")
	}
	now := s.clock.Now()
	due, err := s.schedules.ListDue(ctx, now)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list due schedules")
	}

	created := 0
	for i := range due {
		schedule := due[i]
		open, err := s.requests.HasOpenForSchedule(ctx, schedule.ID)
		if err != nil {
			s.logger.Sugar().Warnw("sweep skipped schedule", "schedule_id", schedule.ID, "error", err)
			continue
		}
		if open {
			continue
		}
		request, err := s.creator.CreateFromSchedule(ctx, &schedule)
		if err != nil {
			s.logger.Sugar().Warnw("sweep failed to create request", "schedule_id", schedule.ID, "error", err)
			continue
		}
		created++
		s.emitter.Emit(ctx, models.DomainEvent{
			Type:      models.EventScheduleDue,
			RequestID: request.ID,
			HostelID:  schedule.HostelID,
			Payload: map[string]interface{}{
				"scheduleId": schedule.ID,
				"dueDate":    schedule.NextDueDate,
			},
			OccurredAt: now,
		})
	}
	return created, nil
}

// Get returns one schedule.
func (s *ScheduleService) Get(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// ListByHostel returns a hostel's schedules.
func (s *ScheduleService) ListByHostel(ctx context.Context, hostelID string) ([]models.Schedule, error) {
	schedules, err := s.schedules.ListByHostel(ctx, hostelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return schedules, nil
}

// Executions returns the run history of a schedule.
func (s *ScheduleService) Executions(ctx context.Context, scheduleID string) ([]models.ScheduleExecution, error) {
	executions, err := s.schedules.ListExecutions(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list executions")
	}
	return executions, nil
}

// SetActive switches a schedule on or off. History is retained either way.
func (s *ScheduleService) SetActive(ctx context.Context, scheduleID string, active bool) error {
	if err := s.schedules.SetActive(ctx, scheduleID, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	return nil
}

func daysLate(scheduled, executed time.Time) int {
	if !executed.After(scheduled) {
		return 0
	}
	return int(executed.Sub(scheduled).Hours() / 24)
}

func (s *ScheduleService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("failed to write audit log", "action", log.Action, "error", err)
	}
}
