package models

import "time"

// AuditAction constants represent workflow actions to be logged.
const (
	AuditActionRequestCreate     = "REQUEST_CREATE"
	AuditActionRequestTransition = "REQUEST_TRANSITION"
	AuditActionRequestAssign     = "REQUEST_ASSIGN"
	AuditActionApprovalOpen      = "APPROVAL_OPEN"
	AuditActionApprovalResolve   = "APPROVAL_RESOLVE"
	AuditActionApprovalEscalate  = "APPROVAL_ESCALATE"
	AuditActionCostRecord        = "COST_RECORD"
	AuditActionCompletionRecord  = "COMPLETION_RECORD"
	AuditActionQualityCheck      = "QUALITY_CHECK"
	AuditActionCertificateIssue  = "CERTIFICATE_ISSUE"
	AuditActionScheduleExecution = "SCHEDULE_EXECUTION"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actorId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
