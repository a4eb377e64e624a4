package models

import "time"

// BottleneckKind identifies which diagnostic produced a finding.
type BottleneckKind string

const (
	BottleneckUnassignedUrgent BottleneckKind = "UNASSIGNED_URGENT"
	BottleneckPastDeadline     BottleneckKind = "PAST_DEADLINE"
	BottleneckStaleApproval    BottleneckKind = "STALE_APPROVAL"
)

// BottleneckSeverity tags findings for dashboard display.
type BottleneckSeverity string

const (
	SeverityWarning  BottleneckSeverity = "WARNING"
	SeverityCritical BottleneckSeverity = "CRITICAL"
)

// BottleneckFinding is a read-only diagnostic, not an error.
type BottleneckFinding struct {
	Kind       BottleneckKind     `json:"kind"`
	Severity   BottleneckSeverity `json:"severity"`
	Count      int                `json:"count"`
	Message    string             `json:"message"`
	RequestIDs []string           `json:"requestIds,omitempty"`
}

// DashboardOverview is the cached hostel workload read model.
type DashboardOverview struct {
	HostelID        string                `json:"hostelId,omitempty"`
	StatusCounts    map[RequestStatus]int `json:"statusCounts"`
	OverBudgetCount int                   `json:"overBudgetCount"`
	DueSchedules    int                   `json:"dueSchedules"`
	Bottlenecks     []BottleneckFinding   `json:"bottlenecks"`
	GeneratedAt     time.Time             `json:"generatedAt"`
}

// BottleneckReport bundles the findings of one diagnostic sweep.
type BottleneckReport struct {
	HostelID    string              `json:"hostelId,omitempty"`
	Findings    []BottleneckFinding `json:"findings"`
	GeneratedAt time.Time           `json:"generatedAt"`
}
