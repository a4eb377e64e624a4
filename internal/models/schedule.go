package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurrenceRule names the supported preventive-maintenance cadences.
type RecurrenceRule string

const (
	RecurDaily      RecurrenceRule = "DAILY"
	RecurWeekly     RecurrenceRule = "WEEKLY"
	RecurMonthly    RecurrenceRule = "MONTHLY"
	RecurQuarterly  RecurrenceRule = "QUARTERLY"
	RecurSemiAnnual RecurrenceRule = "SEMI_ANNUAL"
	RecurAnnual     RecurrenceRule = "ANNUAL"
	RecurCustom     RecurrenceRule = "CUSTOM"
)

// ValidRecurrenceRule reports whether the value is a known rule.
func ValidRecurrenceRule(r RecurrenceRule) bool {
	switch r {
	case RecurDaily, RecurWeekly, RecurMonthly, RecurQuarterly, RecurSemiAnnual, RecurAnnual, RecurCustom:
		return true
	}
	return false
}

// Schedule is a preventive-maintenance recurrence definition.
// NextDueDate strictly advances after every completed execution.
type Schedule struct {
	ID              string          `db:"id" json:"id"`
	HostelID        string          `db:"hostel_id" json:"hostelId"`
	Title           string          `db:"title" json:"title"`
	Description     string          `db:"description" json:"description"`
	Category        RequestCategory `db:"category" json:"category"`
	Priority        RequestPriority `db:"priority" json:"priority"`
	Recurrence      RecurrenceRule  `db:"recurrence" json:"recurrence"`
	IntervalDays    *int            `db:"interval_days" json:"intervalDays,omitempty"`
	AnchorDay       int             `db:"anchor_day" json:"anchorDay"`
	EstimatedCost   decimal.Decimal `db:"estimated_cost" json:"estimatedCost"`
	NextDueDate     time.Time       `db:"next_due_date" json:"nextDueDate"`
	TotalExecutions int             `db:"total_executions" json:"totalExecutions"`
	SuccessfulRuns  int             `db:"successful_runs" json:"successfulRuns"`
	IsActive        bool            `db:"is_active" json:"isActive"`
	CreatedBy       string          `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// ScheduleExecution records one run of a schedule. Execution history is
// retained even after the schedule is deactivated.
type ScheduleExecution struct {
	ID            string    `db:"id" json:"id"`
	ScheduleID    string    `db:"schedule_id" json:"scheduleId"`
	RequestID     *string   `db:"request_id" json:"requestId,omitempty"`
	ScheduledDate time.Time `db:"scheduled_date" json:"scheduledDate"`
	ExecutionDate time.Time `db:"execution_date" json:"executionDate"`
	ExecutedBy    string    `db:"executed_by" json:"executedBy"`
	Completed     bool      `db:"completed" json:"completed"`
	WasOnTime     bool      `db:"was_on_time" json:"wasOnTime"`
	DaysDelayed   int       `db:"days_delayed" json:"daysDelayed"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
