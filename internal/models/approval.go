package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalLevel ranks who must sign off on a request.
type ApprovalLevel string

const (
	ApprovalAuto       ApprovalLevel = "auto"
	ApprovalSupervisor ApprovalLevel = "supervisor"
	ApprovalAdmin      ApprovalLevel = "admin"
)

var approvalRank = map[ApprovalLevel]int{
	ApprovalAuto:       0,
	ApprovalSupervisor: 1,
	ApprovalAdmin:      2,
}

// Rank returns the numeric ordering of the level.
func (l ApprovalLevel) Rank() int {
	return approvalRank[l]
}

// HigherThan reports whether l outranks other.
func (l ApprovalLevel) HigherThan(other ApprovalLevel) bool {
	return l.Rank() > other.Rank()
}

// ApprovalRecord is one approval cycle for a request.
// Approved is tri-state: nil pending, true approved, false rejected.
// Once resolved the record is immutable apart from escalation metadata.
type ApprovalRecord struct {
	ID                string              `db:"id" json:"id"`
	RequestID         string              `db:"request_id" json:"requestId"`
	RequestedBy       string              `db:"requested_by" json:"requestedBy"`
	EstimatedCost     decimal.Decimal     `db:"estimated_cost" json:"estimatedCost"`
	Justification     *string             `db:"justification" json:"justification,omitempty"`
	ApprovalLevel     ApprovalLevel       `db:"approval_level" json:"approvalLevel"`
	Approved          *bool               `db:"approved" json:"approved"`
	ApprovedAmount    decimal.NullDecimal `db:"approved_amount" json:"approvedAmount,omitempty"`
	Conditions        *string             `db:"conditions" json:"conditions,omitempty"`
	DecidedBy         *string             `db:"decided_by" json:"decidedBy,omitempty"`
	DecisionReason    *string             `db:"decision_reason" json:"decisionReason,omitempty"`
	AllowResubmission bool                `db:"allow_resubmission" json:"allowResubmission"`
	Retroactive       bool                `db:"retroactive" json:"retroactive"`
	RequestedAt       time.Time           `db:"requested_at" json:"requestedAt"`
	Deadline          time.Time           `db:"deadline" json:"deadline"`
	DecidedAt         *time.Time          `db:"decided_at" json:"decidedAt,omitempty"`
	EscalatedAt       *time.Time          `db:"escalated_at" json:"escalatedAt,omitempty"`
	EscalationReason  *string             `db:"escalation_reason" json:"escalationReason,omitempty"`
}

// Resolved reports whether a decision has been recorded.
func (a *ApprovalRecord) Resolved() bool {
	return a.Approved != nil
}

// OverdueAt reports whether the approval is still open past the given age at now.
func (a *ApprovalRecord) OverdueAt(now time.Time, age time.Duration) bool {
	if a.Resolved() {
		return false
	}
	anchor := a.RequestedAt
	if a.EscalatedAt != nil {
		anchor = *a.EscalatedAt
	}
	return now.Sub(anchor) > age
}
