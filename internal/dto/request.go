package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hostelhq/maintenance-api/internal/models"
)

// CreateRequestRequest is the payload for opening a maintenance request.
type CreateRequestRequest struct {
	HostelID      string                 `json:"hostelId" validate:"required,uuid4"`
	RoomNumber    string                 `json:"roomNumber" validate:"omitempty,max=20"`
	Area          string                 `json:"area" validate:"omitempty,max=100"`
	Title         string                 `json:"title" validate:"required,min=5,max=200"`
	Description   string                 `json:"description" validate:"required,min=10"`
	Category      models.RequestCategory `json:"category" validate:"required,request_category"`
	IssueType     models.IssueType       `json:"issueType" validate:"required,issue_type"`
	Priority      models.RequestPriority `json:"priority" validate:"required,request_priority"`
	EstimatedCost decimal.Decimal        `json:"estimatedCost" validate:"required"`
	Justification string                 `json:"justification" validate:"omitempty,max=1000"`
	Deadline      *time.Time             `json:"deadline"`
}

// TransitionRequest moves a request to a new status.
type TransitionRequest struct {
	ToStatus models.RequestStatus `json:"toStatus" validate:"required,request_status"`
	Notes    string               `json:"notes" validate:"omitempty,max=1000"`
}

// AssignRequest picks an assignee for a request. When AssigneeID is empty
// the balancer chooses one from the candidate pool.
type AssignRequest struct {
	AssigneeID     string              `json:"assigneeId" validate:"omitempty"`
	AssigneeKind   models.AssigneeKind `json:"assigneeKind" validate:"omitempty,oneof=STAFF VENDOR"`
	EstimatedHours float64             `json:"estimatedHours" validate:"omitempty,gt=0"`
	QuotedAmount   *decimal.Decimal    `json:"quotedAmount"`
	Deadline       *time.Time          `json:"deadline"`
	RequiredSkill  string              `json:"requiredSkill"`
}

// AssignPayload is the HTTP shape of an assignment: the assignment input
// plus the candidate pool the balancer may choose from. The roster lives
// with the identity provider, so callers supply eligible candidates inline.
type AssignPayload struct {
	AssignRequest
	Pool []models.Candidate `json:"pool" validate:"omitempty,dive"`
}

// CloseOutAssignmentRequest finishes the active assignment without going
// through the completion flow, typically for vendor jobs invoiced separately.
type CloseOutAssignmentRequest struct {
	ActualHours    float64 `json:"actualHours" validate:"required,gt=0"`
	QualityRating  *int    `json:"qualityRating" validate:"omitempty,min=1,max=5"`
	CompletionNote *string `json:"completionNote" validate:"omitempty,max=1000"`
}

// ReassignRequest replaces the active assignee.
type ReassignRequest struct {
	AssigneeID     string              `json:"assigneeId" validate:"required"`
	AssigneeKind   models.AssigneeKind `json:"assigneeKind" validate:"required,oneof=STAFF VENDOR"`
	EstimatedHours float64             `json:"estimatedHours" validate:"omitempty,gt=0"`
	Reason         string              `json:"reason" validate:"required,min=5,max=500"`
	Deadline       *time.Time          `json:"deadline"`
}

// RequestQuery mirrors the listing filters exposed over HTTP.
type RequestQuery struct {
	HostelID    string                 `form:"hostelId"`
	Status      []models.RequestStatus `form:"status"`
	Priority    models.RequestPriority `form:"priority"`
	Category    models.RequestCategory `form:"category"`
	AssignedTo  string                 `form:"assignedTo"`
	RequestedBy string                 `form:"requestedBy"`
	Limit       int                    `form:"limit"`
	Offset      int                    `form:"offset"`
}
