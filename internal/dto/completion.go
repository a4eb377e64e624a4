package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hostelhq/maintenance-api/internal/models"
)

// MaterialItemRequest is one line of consumed materials.
type MaterialItemRequest struct {
	Name      string          `json:"name" validate:"required,max=200"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	UnitCost  decimal.Decimal `json:"unitCost" validate:"required"`
	TotalCost decimal.Decimal `json:"totalCost" validate:"required"`
}

// CompleteWorkRequest closes out the work on a request. Costs carries the
// component breakdown that feeds the cost ledger.
type CompleteWorkRequest struct {
	WorkNotes  string                `json:"workNotes" validate:"required,min=20"`
	LaborHours float64               `json:"laborHours" validate:"required,gt=0"`
	Materials  []MaterialItemRequest `json:"materials" validate:"omitempty,dive"`
	Costs      RecordCostRequest     `json:"costs" validate:"required"`
}

// QualityCheckRequest inspects completed work.
type QualityCheckRequest struct {
	Passed         bool             `json:"passed"`
	Checklist      models.Checklist `json:"checklist" validate:"required,min=1"`
	ReworkRequired bool             `json:"reworkRequired"`
	ReworkDetails  string           `json:"reworkDetails" validate:"omitempty,max=1000"`
	ReworkDeadline *time.Time       `json:"reworkDeadline"`
}

// IssueCertificateRequest issues a completion certificate.
type IssueCertificateRequest struct {
	WorkSummary      string    `json:"workSummary" validate:"required,min=10,max=2000"`
	WorkStartDate    time.Time `json:"workStartDate" validate:"required"`
	VerificationDate time.Time `json:"verificationDate" validate:"required"`
	VerifiedBy       string    `json:"verifiedBy" validate:"required"`
	WarrantyApplies  bool      `json:"warrantyApplies"`
	WarrantyMonths   int       `json:"warrantyMonths" validate:"omitempty,min=1,max=120"`
	WarrantyTerms    string    `json:"warrantyTerms" validate:"omitempty,max=2000"`
}
