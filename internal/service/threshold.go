package service

import (
	"github.com/shopspring/decimal"

	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/pkg/config"
)

// ThresholdPolicy maps an estimated cost onto the approval level it needs.
// Per-hostel overrides win; anything a hostel leaves unset falls back to the
// service-wide defaults from configuration.
type ThresholdPolicy struct {
	defaults models.ThresholdConfig
}

// NewThresholdPolicy builds a policy with fallback thresholds from config.
func NewThresholdPolicy(cfg config.ApprovalConfig) *ThresholdPolicy {
	return &ThresholdPolicy{
		defaults: models.ThresholdConfig{
			AutoApproveBelow:   decimal.NewFromFloat(cfg.DefaultAutoBelow),
			SupervisorLimit:    decimal.NewFromFloat(cfg.DefaultSupervisorCap),
			AdminRequiredAbove: decimal.NewFromFloat(cfg.DefaultAdminAbove),
			AutoApproveEnabled: cfg.AutoApproveEnabled,
		},
	}
}

// Resolve merges a hostel's explicit thresholds with the defaults.
// A nil hostel resolves to the defaults untouched.
func (p *ThresholdPolicy) Resolve(hostel *models.Hostel) models.ThresholdConfig {
	resolved := p.defaults
	if hostel == nil {
		return resolved
	}
	if hostel.AutoApproveBelow.Valid {
		resolved.AutoApproveBelow = hostel.AutoApproveBelow.Decimal
	}
	if hostel.SupervisorLimit.Valid {
		resolved.SupervisorLimit = hostel.SupervisorLimit.Decimal
	}
	if hostel.AdminRequiredAbove.Valid {
		resolved.AdminRequiredAbove = hostel.AdminRequiredAbove.Decimal
	}
	resolved.AutoApproveEnabled = resolved.AutoApproveEnabled && hostel.AutoApproveEnabled
	return resolved
}

// LevelFor returns the approval level an estimated cost demands under the
// resolved thresholds. Costs exactly on a boundary take the stricter level.
func (p *ThresholdPolicy) LevelFor(cost decimal.Decimal, cfg models.ThresholdConfig) models.ApprovalLevel {
	switch {
	case cost.GreaterThanOrEqual(cfg.AdminRequiredAbove):
		return models.ApprovalAdmin
	case cost.LessThan(cfg.AutoApproveBelow) && cfg.AutoApproveEnabled:
		return models.ApprovalAuto
	default:
		return models.ApprovalSupervisor
	}
}

// RequiresApproval reports whether a cost needs a human decision before the
// request may advance.
func (p *ThresholdPolicy) RequiresApproval(cost decimal.Decimal, cfg models.ThresholdConfig) bool {
	return p.LevelFor(cost, cfg) != models.ApprovalAuto
}
