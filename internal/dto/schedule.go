package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hostelhq/maintenance-api/internal/models"
)

// CreateScheduleRequest registers a preventive-maintenance recurrence.
type CreateScheduleRequest struct {
	HostelID      string                 `json:"hostelId" validate:"required,uuid4"`
	Title         string                 `json:"title" validate:"required,min=5,max=200"`
	Description   string                 `json:"description" validate:"required,min=10"`
	Category      models.RequestCategory `json:"category" validate:"required,request_category"`
	Priority      models.RequestPriority `json:"priority" validate:"required,request_priority"`
	Recurrence    models.RecurrenceRule  `json:"recurrence" validate:"required,recurrence_rule"`
	IntervalDays  *int                   `json:"intervalDays" validate:"omitempty,min=1,max=3650"`
	EstimatedCost decimal.Decimal        `json:"estimatedCost"`
	StartDate     time.Time              `json:"startDate" validate:"required"`
}

// SetScheduleActiveRequest pauses or resumes a schedule.
type SetScheduleActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// RecordExecutionRequest logs one run of a schedule.
type RecordExecutionRequest struct {
	ExecutionDate time.Time `json:"executionDate" validate:"required"`
	Completed     bool      `json:"completed"`
	Notes         string    `json:"notes" validate:"omitempty,max=1000"`
	RequestID     string    `json:"requestId" validate:"omitempty,uuid4"`
}
