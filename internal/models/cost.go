package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostComponents breaks an actual cost into its parts.
// Their sum must match the stated actual cost within the configured tolerance.
type CostComponents struct {
	Materials decimal.Decimal `json:"materials"`
	Labor     decimal.Decimal `json:"labor"`
	Vendor    decimal.Decimal `json:"vendor"`
	Other     decimal.Decimal `json:"other"`
	Tax       decimal.Decimal `json:"tax"`
}

// Sum returns the component total.
func (c CostComponents) Sum() decimal.Decimal {
	return c.Materials.Add(c.Labor).Add(c.Vendor).Add(c.Other).Add(c.Tax)
}

// CostRecord reconciles a request's actual spend against its approved budget.
// Variance and WithinBudget are recomputed whenever the actual cost changes.
type CostRecord struct {
	ID              string          `db:"id" json:"id"`
	RequestID       string          `db:"request_id" json:"requestId"`
	EstimatedCost   decimal.Decimal `db:"estimated_cost" json:"estimatedCost"`
	ApprovedCost    decimal.Decimal `db:"approved_cost" json:"approvedCost"`
	ActualCost      decimal.Decimal `db:"actual_cost" json:"actualCost"`
	MaterialsCost   decimal.Decimal `db:"materials_cost" json:"materialsCost"`
	LaborCost       decimal.Decimal `db:"labor_cost" json:"laborCost"`
	VendorCost      decimal.Decimal `db:"vendor_cost" json:"vendorCost"`
	OtherCost       decimal.Decimal `db:"other_cost" json:"otherCost"`
	TaxCost         decimal.Decimal `db:"tax_cost" json:"taxCost"`
	Variance        decimal.Decimal `db:"variance" json:"variance"`
	VariancePercent float64         `db:"variance_percent" json:"variancePercent"`
	WithinBudget    bool            `db:"within_budget" json:"withinBudget"`
	RecordedBy      string          `db:"recorded_by" json:"recordedBy"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// Components assembles the component breakdown from the flat columns.
func (r *CostRecord) Components() CostComponents {
	return CostComponents{
		Materials: r.MaterialsCost,
		Labor:     r.LaborCost,
		Vendor:    r.VendorCost,
		Other:     r.OtherCost,
		Tax:       r.TaxCost,
	}
}

// SetComponents spreads the breakdown onto the flat columns.
func (r *CostRecord) SetComponents(c CostComponents) {
	r.MaterialsCost = c.Materials
	r.LaborCost = c.Labor
	r.VendorCost = c.Vendor
	r.OtherCost = c.Other
	r.TaxCost = c.Tax
}
