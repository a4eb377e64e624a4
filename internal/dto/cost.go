package dto

import "github.com/shopspring/decimal"

// RecordCostRequest reconciles actual spend against the approved budget.
type RecordCostRequest struct {
	ActualCost decimal.Decimal `json:"actualCost" validate:"required"`
	Materials  decimal.Decimal `json:"materials"`
	Labor      decimal.Decimal `json:"labor"`
	Vendor     decimal.Decimal `json:"vendor"`
	Other      decimal.Decimal `json:"other"`
	Tax        decimal.Decimal `json:"tax"`
}
