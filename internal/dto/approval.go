package dto

import "github.com/shopspring/decimal"

// DecideApprovalRequest records an approve or reject decision.
type DecideApprovalRequest struct {
	Approved          bool             `json:"approved"`
	ApprovedAmount    *decimal.Decimal `json:"approvedAmount"`
	Conditions        string           `json:"conditions" validate:"omitempty,max=1000"`
	Reason            string           `json:"reason" validate:"omitempty,max=1000"`
	AllowResubmission bool             `json:"allowResubmission"`
}

// EscalateApprovalRequest raises an open approval to a higher level.
type EscalateApprovalRequest struct {
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}
