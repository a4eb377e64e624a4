package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/pkg/config"
)

func testApprovalConfig() config.ApprovalConfig {
	return config.ApprovalConfig{
		DefaultAutoBelow:     500,
		DefaultSupervisorCap: 5000,
		DefaultAdminAbove:    5000,
		AutoApproveEnabled:   true,
	}
}

func TestLevelForBoundaries(t *testing.T) {
	policy := NewThresholdPolicy(testApprovalConfig())
	cfg := policy.Resolve(nil)

	cases := []struct {
		cost  string
		level models.ApprovalLevel
	}{
		{"0", models.ApprovalAuto},
		{"499.99", models.ApprovalAuto},
		{"500", models.ApprovalSupervisor},
		{"500.01", models.ApprovalSupervisor},
		{"4999.99", models.ApprovalSupervisor},
		{"5000", models.ApprovalAdmin},
		{"80000", models.ApprovalAdmin},
	}
	for _, tc := range cases {
		cost := decimal.RequireFromString(tc.cost)
		require.Equal(t, tc.level, policy.LevelFor(cost, cfg), "cost %s", tc.cost)
	}
}

func TestLevelForMonotonic(t *testing.T) {
	policy := NewThresholdPolicy(testApprovalConfig())
	cfg := policy.Resolve(nil)

	costs := []string{"0", "100", "499.99", "500", "1200", "4999.99", "5000", "9000"}
	prev := -1
	for _, raw := range costs {
		level := policy.LevelFor(decimal.RequireFromString(raw), cfg)
		require.GreaterOrEqual(t, level.Rank(), prev, "level dropped at cost %s", raw)
		prev = level.Rank()
	}
}

func TestResolveHostelOverrides(t *testing.T) {
	policy := NewThresholdPolicy(testApprovalConfig())
	hostel := &models.Hostel{
		ID:                 "h-1",
		AutoApproveBelow:   decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		AdminRequiredAbove: decimal.NewNullDecimal(decimal.NewFromInt(20000)),
		AutoApproveEnabled: true,
	}

	cfg := policy.Resolve(hostel)
	require.True(t, cfg.AutoApproveBelow.Equal(decimal.NewFromInt(1000)))
	require.True(t, cfg.SupervisorLimit.Equal(decimal.NewFromInt(5000)), "unset override keeps the default")
	require.True(t, cfg.AdminRequiredAbove.Equal(decimal.NewFromInt(20000)))

	require.Equal(t, models.ApprovalAuto, policy.LevelFor(decimal.NewFromInt(999), cfg))
	require.Equal(t, models.ApprovalSupervisor, policy.LevelFor(decimal.NewFromInt(6000), cfg))
	require.Equal(t, models.ApprovalAdmin, policy.LevelFor(decimal.NewFromInt(20000), cfg))
}

func TestResolveAutoApproveDisabledByHostel(t *testing.T) {
	policy := NewThresholdPolicy(testApprovalConfig())
	hostel := &models.Hostel{ID: "h-1", AutoApproveEnabled: false}

	cfg := policy.Resolve(hostel)
	require.False(t, cfg.AutoApproveEnabled)
	require.Equal(t, models.ApprovalSupervisor, policy.LevelFor(decimal.NewFromInt(10), cfg))
	require.True(t, policy.RequiresApproval(decimal.NewFromInt(10), cfg))
}

func TestRequiresApproval(t *testing.T) {
	policy := NewThresholdPolicy(testApprovalConfig())
	cfg := policy.Resolve(nil)

	require.False(t, policy.RequiresApproval(decimal.NewFromInt(200), cfg))
	require.True(t, policy.RequiresApproval(decimal.NewFromInt(700), cfg))
	require.True(t, policy.RequiresApproval(decimal.NewFromInt(50000), cfg))
}
