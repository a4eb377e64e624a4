package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus captures the maintenance request lifecycle.
type RequestStatus string

const (
	StatusPending    RequestStatus = "PENDING"
	StatusApproved   RequestStatus = "APPROVED"
	StatusAssigned   RequestStatus = "ASSIGNED"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusOnHold     RequestStatus = "ON_HOLD"
	StatusCompleted  RequestStatus = "COMPLETED"
	StatusCancelled  RequestStatus = "CANCELLED"
	StatusRejected   RequestStatus = "REJECTED"
)

// legalTransitions is the closed edge table for request status changes.
// COMPLETED, CANCELLED and REJECTED are terminal.
var legalTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:    {StatusApproved, StatusAssigned, StatusRejected, StatusCancelled},
	StatusApproved:   {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusOnHold, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusOnHold, StatusCancelled},
	StatusOnHold:     {StatusInProgress, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusRejected:   {},
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionRequiresNotes reports whether the target status demands an explanation.
func TransitionRequiresNotes(to RequestStatus) bool {
	switch to {
	case StatusRejected, StatusOnHold, StatusCancelled:
		return true
	}
	return false
}

// ValidStatus reports whether the value is a known status.
func ValidStatus(s RequestStatus) bool {
	_, ok := legalTransitions[s]
	return ok
}

// RequestPriority orders requests by urgency.
type RequestPriority string

const (
	PriorityLow      RequestPriority = "LOW"
	PriorityMedium   RequestPriority = "MEDIUM"
	PriorityHigh     RequestPriority = "HIGH"
	PriorityCritical RequestPriority = "CRITICAL"
)

var priorityRank = map[RequestPriority]int{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityCritical: 4,
}

// PriorityAtLeast reports whether p ranks at or above threshold.
func PriorityAtLeast(p, threshold RequestPriority) bool {
	return priorityRank[p] >= priorityRank[threshold]
}

// RequestCategory classifies the kind of maintenance work.
type RequestCategory string

const (
	CategoryElectrical RequestCategory = "ELECTRICAL"
	CategoryPlumbing   RequestCategory = "PLUMBING"
	CategoryCarpentry  RequestCategory = "CARPENTRY"
	CategoryCleaning   RequestCategory = "CLEANING"
	CategoryAppliance  RequestCategory = "APPLIANCE"
	CategoryStructural RequestCategory = "STRUCTURAL"
	CategoryOther      RequestCategory = "OTHER"
)

// IssueType distinguishes routine work from failures and emergencies.
type IssueType string

const (
	IssueRoutine    IssueType = "ROUTINE"
	IssueBreakdown  IssueType = "BREAKDOWN"
	IssuePreventive IssueType = "PREVENTIVE"
	IssueEmergency  IssueType = "EMERGENCY"
)

// MaintenanceRequest is the root aggregate of the workflow engine.
// Status moves only along legalTransitions; rows are soft-deleted, never removed.
type MaintenanceRequest struct {
	ID               string          `db:"id" json:"id"`
	RequestNumber    string          `db:"request_number" json:"requestNumber"`
	HostelID         string          `db:"hostel_id" json:"hostelId"`
	RoomNumber       *string         `db:"room_number" json:"roomNumber,omitempty"`
	Area             *string         `db:"area" json:"area,omitempty"`
	Title            string          `db:"title" json:"title"`
	Description      string          `db:"description" json:"description"`
	Category         RequestCategory `db:"category" json:"category"`
	IssueType        IssueType       `db:"issue_type" json:"issueType"`
	Priority         RequestPriority `db:"priority" json:"priority"`
	Status           RequestStatus   `db:"status" json:"status"`
	EstimatedCost    decimal.Decimal `db:"estimated_cost" json:"estimatedCost"`
	RequiresApproval bool            `db:"requires_approval" json:"requiresApproval"`
	RequestedBy      string          `db:"requested_by" json:"requestedBy"`
	AssignedTo       *string         `db:"assigned_to" json:"assignedTo,omitempty"`
	ScheduleID       *string         `db:"schedule_id" json:"scheduleId,omitempty"`
	Deadline         *time.Time      `db:"deadline" json:"deadline,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	AssignedAt       *time.Time      `db:"assigned_at" json:"assignedAt,omitempty"`
	StartedAt        *time.Time      `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt      *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
	DeletedAt        *time.Time      `db:"deleted_at" json:"-"`
}

// Terminal reports whether the request can no longer move.
func (r *MaintenanceRequest) Terminal() bool {
	return len(legalTransitions[r.Status]) == 0
}

// StatusHistoryEntry records one status move for the audit trail.
type StatusHistoryEntry struct {
	ID         string        `db:"id" json:"id"`
	RequestID  string        `db:"request_id" json:"requestId"`
	FromStatus RequestStatus `db:"from_status" json:"fromStatus"`
	ToStatus   RequestStatus `db:"to_status" json:"toStatus"`
	Actor      string        `db:"actor" json:"actor"`
	Notes      *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"createdAt"`
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	HostelID    string
	Status      []RequestStatus
	Priority    RequestPriority
	Category    RequestCategory
	AssignedTo  string
	RequestedBy string
	Limit       int
	Offset      int
}
