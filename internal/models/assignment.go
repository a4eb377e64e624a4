package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssigneeKind distinguishes internal staff from external vendors.
type AssigneeKind string

const (
	AssigneeStaff  AssigneeKind = "STAFF"
	AssigneeVendor AssigneeKind = "VENDOR"
)

// Assignment links a request to an assignee. Records are append-only:
// reassignment deactivates the old row and inserts a new one.
type Assignment struct {
	ID             string              `db:"id" json:"id"`
	RequestID      string              `db:"request_id" json:"requestId"`
	AssigneeID     string              `db:"assignee_id" json:"assigneeId"`
	AssigneeKind   AssigneeKind        `db:"assignee_kind" json:"assigneeKind"`
	AssignedBy     string              `db:"assigned_by" json:"assignedBy"`
	EstimatedHours float64             `db:"estimated_hours" json:"estimatedHours"`
	ActualHours    *float64            `db:"actual_hours" json:"actualHours,omitempty"`
	QuotedAmount   decimal.NullDecimal `db:"quoted_amount" json:"quotedAmount,omitempty"`
	Deadline       *time.Time          `db:"deadline" json:"deadline,omitempty"`
	IsActive       bool                `db:"is_active" json:"isActive"`
	IsCompleted    bool                `db:"is_completed" json:"isCompleted"`
	QualityRating  *int                `db:"quality_rating" json:"qualityRating,omitempty"`
	CompletionNote *string             `db:"completion_note" json:"completionNote,omitempty"`
	ReassignReason *string             `db:"reassign_reason" json:"reassignReason,omitempty"`
	AssignedAt     time.Time           `db:"assigned_at" json:"assignedAt"`
	StartedAt      *time.Time          `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt    *time.Time          `db:"completed_at" json:"completedAt,omitempty"`
}

// Candidate is a balancer input: an eligible assignee with current load.
type Candidate struct {
	AssigneeID       string       `db:"assignee_id" json:"assigneeId"`
	Kind             AssigneeKind `db:"kind" json:"kind"`
	Skills           []string     `db:"-" json:"skills,omitempty"`
	ActiveCount      int          `db:"active_count" json:"activeCount"`
	OutstandingHours float64      `db:"outstanding_hours" json:"outstandingHours"`
}
