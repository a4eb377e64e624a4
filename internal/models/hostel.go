package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Hostel carries the per-hostel approval threshold configuration.
// Thresholds are nullable; requests for hostels without explicit values
// fall back to the service-wide defaults.
type Hostel struct {
	ID                 string              `db:"id" json:"id"`
	Name               string              `db:"name" json:"name"`
	Code               string              `db:"code" json:"code"`
	AutoApproveBelow   decimal.NullDecimal `db:"auto_approve_below" json:"autoApproveBelow,omitempty"`
	SupervisorLimit    decimal.NullDecimal `db:"supervisor_limit" json:"supervisorLimit,omitempty"`
	AdminRequiredAbove decimal.NullDecimal `db:"admin_required_above" json:"adminRequiredAbove,omitempty"`
	AutoApproveEnabled bool                `db:"auto_approve_enabled" json:"autoApproveEnabled"`
	IsActive           bool                `db:"is_active" json:"isActive"`
	CreatedAt          time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updatedAt"`
}

// ThresholdConfig is the resolved approval threshold set for one hostel.
type ThresholdConfig struct {
	AutoApproveBelow   decimal.Decimal
	SupervisorLimit    decimal.Decimal
	AdminRequiredAbove decimal.Decimal
	AutoApproveEnabled bool
}
