package models

import "time"

// EventType names the domain events the engine emits. Delivery to external
// channels (email, push, SMS) is handled outside this service.
type EventType string

const (
	EventRequestCreated    EventType = "request.created"
	EventRequestTransition EventType = "request.transitioned"
	EventRequestAssigned   EventType = "request.assigned"
	EventApprovalOpened    EventType = "approval.opened"
	EventApprovalResolved  EventType = "approval.resolved"
	EventApprovalEscalated EventType = "approval.escalated"
	EventRequestCompleted  EventType = "request.completed"
	EventCertificateIssued EventType = "certificate.issued"
	EventScheduleDue       EventType = "schedule.due"
)

// DomainEvent is the engine's outbound notification payload.
type DomainEvent struct {
	Type       EventType              `json:"type"`
	RequestID  string                 `json:"requestId,omitempty"`
	HostelID   string                 `json:"hostelId,omitempty"`
	Actor      string                 `json:"actor,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}
