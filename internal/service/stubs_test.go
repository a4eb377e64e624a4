package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/internal/repository"
	"github.com/hostelhq/maintenance-api/pkg/export"
)

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = fmt.Sprintf("audit-%d", len(a.logs)+1)
	}
	a.logs = append(a.logs, log)
	return nil
}

type emitterStub struct {
	events []models.DomainEvent
}

func (e *emitterStub) Emit(ctx context.Context, event models.DomainEvent) {
	e.events = append(e.events, event)
}

func (e *emitterStub) byType(t models.EventType) []models.DomainEvent {
	var out []models.DomainEvent
	for _, event := range e.events {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}

type sequenceStub struct {
	counters map[string]int
}

func newSequenceStub() *sequenceStub {
	return &sequenceStub{counters: make(map[string]int)}
}

func (s *sequenceStub) Next(ctx context.Context, scope string) (int, error) {
	s.counters[scope]++
	return s.counters[scope], nil
}

type requestRepoStub struct {
	requests map[string]*models.MaintenanceRequest
	history  []models.StatusHistoryEntry
	nextID   int
}

func newRequestRepoStub() *requestRepoStub {
	return &requestRepoStub{requests: make(map[string]*models.MaintenanceRequest)}
}

func (r *requestRepoStub) Create(ctx context.Context, request *models.MaintenanceRequest) error {
	if request.ID == "" {
		r.nextID++
		request.ID = fmt.Sprintf("req-%d", r.nextID)
	}
	clone := *request
	r.requests[request.ID] = &clone
	return nil
}

func (r *requestRepoStub) GetByID(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	request, ok := r.requests[id]
	if !ok || request.DeletedAt != nil {
		return nil, sql.ErrNoRows
	}
	clone := *request
	return &clone, nil
}

func (r *requestRepoStub) List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, error) {
	var out []models.MaintenanceRequest
	for _, request := range r.requests {
		if request.DeletedAt != nil {
			continue
		}
		if filter.HostelID != "" && request.HostelID != filter.HostelID {
			continue
		}
		out = append(out, *request)
	}
	return out, nil
}

func (r *requestRepoStub) UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error {
	request, ok := r.requests[params.ID]
	if !ok || request.DeletedAt != nil || request.Status != params.FromStatus {
		return sql.ErrNoRows
	}
	request.Status = params.ToStatus
	request.UpdatedAt = params.UpdatedAt
	if params.AssignedTo != nil {
		request.AssignedTo = params.AssignedTo
	}
	if params.AssignedAt != nil {
		request.AssignedAt = params.AssignedAt
	}
	if params.StartedAt != nil {
		request.StartedAt = params.StartedAt
	}
	if params.CompletedAt != nil {
		request.CompletedAt = params.CompletedAt
	}
	if params.Deadline != nil {
		request.Deadline = params.Deadline
	}
	return nil
}

func (r *requestRepoStub) SoftDelete(ctx context.Context, id string) error {
	request, ok := r.requests[id]
	if !ok || request.DeletedAt != nil {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	request.DeletedAt = &now
	return nil
}

func (r *requestRepoStub) AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("hist-%d", len(r.history)+1)
	}
	r.history = append(r.history, *entry)
	return nil
}

func (r *requestRepoStub) ListStatusHistory(ctx context.Context, requestID string) ([]models.StatusHistoryEntry, error) {
	var out []models.StatusHistoryEntry
	for _, entry := range r.history {
		if entry.RequestID == requestID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *requestRepoStub) ListUnassignedUrgent(ctx context.Context, hostelID string) ([]models.MaintenanceRequest, error) {
	var out []models.MaintenanceRequest
	for _, request := range r.requests {
		if request.DeletedAt != nil || request.AssignedTo != nil {
			continue
		}
		if hostelID != "" && request.HostelID != hostelID {
			continue
		}
		if !models.PriorityAtLeast(request.Priority, models.PriorityHigh) {
			continue
		}
		if request.Status != models.StatusPending && request.Status != models.StatusApproved {
			continue
		}
		out = append(out, *request)
	}
	return out, nil
}

func (r *requestRepoStub) ListPastDeadline(ctx context.Context, hostelID string, now time.Time) ([]models.MaintenanceRequest, error) {
	var out []models.MaintenanceRequest
	for _, request := range r.requests {
		if request.DeletedAt != nil || request.Deadline == nil || request.Terminal() {
			continue
		}
		if hostelID != "" && request.HostelID != hostelID {
			continue
		}
		if request.Deadline.Before(now) {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (r *requestRepoStub) HasOpenForSchedule(ctx context.Context, scheduleID string) (bool, error) {
	for _, request := range r.requests {
		if request.DeletedAt != nil || request.ScheduleID == nil || request.Terminal() {
			continue
		}
		if *request.ScheduleID == scheduleID {
			return true, nil
		}
	}
	return false, nil
}

func (r *requestRepoStub) CountByStatus(ctx context.Context, hostelID string) (map[models.RequestStatus]int, error) {
	counts := make(map[models.RequestStatus]int)
	for _, request := range r.requests {
		if request.DeletedAt != nil {
			continue
		}
		if hostelID != "" && request.HostelID != hostelID {
			continue
		}
		counts[request.Status]++
	}
	return counts, nil
}

type hostelRepoStub struct {
	hostels map[string]*models.Hostel
}

func newHostelRepoStub(hostels ...*models.Hostel) *hostelRepoStub {
	stub := &hostelRepoStub{hostels: make(map[string]*models.Hostel)}
	for _, hostel := range hostels {
		stub.hostels[hostel.ID] = hostel
	}
	return stub
}

func (h *hostelRepoStub) GetByID(ctx context.Context, id string) (*models.Hostel, error) {
	hostel, ok := h.hostels[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *hostel
	return &clone, nil
}

type approvalRepoStub struct {
	records map[string]*models.ApprovalRecord
	nextID  int
}

func newApprovalRepoStub() *approvalRepoStub {
	return &approvalRepoStub{records: make(map[string]*models.ApprovalRecord)}
}

func (a *approvalRepoStub) Create(ctx context.Context, record *models.ApprovalRecord) error {
	if record.ID == "" {
		a.nextID++
		record.ID = fmt.Sprintf("apr-%d", a.nextID)
	}
	clone := *record
	a.records[record.ID] = &clone
	return nil
}

func (a *approvalRepoStub) GetByID(ctx context.Context, id string) (*models.ApprovalRecord, error) {
	record, ok := a.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (a *approvalRepoStub) GetOpenByRequest(ctx context.Context, requestID string) (*models.ApprovalRecord, error) {
	for _, record := range a.records {
		if record.RequestID == requestID && !record.Resolved() {
			clone := *record
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (a *approvalRepoStub) ListByRequest(ctx context.Context, requestID string) ([]models.ApprovalRecord, error) {
	var out []models.ApprovalRecord
	for _, record := range a.records {
		if record.RequestID == requestID {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (a *approvalRepoStub) Resolve(ctx context.Context, params repository.ResolveParams) error {
	record, ok := a.records[params.ID]
	if !ok || record.Resolved() {
		return sql.ErrNoRows
	}
	approved := params.Approved
	record.Approved = &approved
	record.DecidedBy = &params.DecidedBy
	record.DecidedAt = &params.DecidedAt
	record.DecisionReason = params.DecisionReason
	record.ApprovedAmount = params.ApprovedAmount
	record.Conditions = params.Conditions
	record.AllowResubmission = params.AllowResubmission
	return nil
}

func (a *approvalRepoStub) Escalate(ctx context.Context, id string, newLevel models.ApprovalLevel, reason string, escalatedAt time.Time, newDeadline time.Time) error {
	record, ok := a.records[id]
	if !ok || record.Resolved() || record.EscalatedAt != nil {
		return sql.ErrNoRows
	}
	record.ApprovalLevel = newLevel
	record.EscalationReason = &reason
	record.EscalatedAt = &escalatedAt
	record.Deadline = newDeadline
	return nil
}

func (a *approvalRepoStub) ListOpenOlderThan(ctx context.Context, cutoff time.Time, hostelID string) ([]models.ApprovalRecord, error) {
	var out []models.ApprovalRecord
	for _, record := range a.records {
		if record.Resolved() {
			continue
		}
		anchor := record.RequestedAt
		if record.EscalatedAt != nil {
			anchor = *record.EscalatedAt
		}
		if anchor.Before(cutoff) {
			out = append(out, *record)
		}
	}
	return out, nil
}

type assignmentRepoStub struct {
	assignments map[string]*models.Assignment
	loads       map[string]models.Candidate
	nextID      int
}

func newAssignmentRepoStub() *assignmentRepoStub {
	return &assignmentRepoStub{
		assignments: make(map[string]*models.Assignment),
		loads:       make(map[string]models.Candidate),
	}
}

func (a *assignmentRepoStub) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		a.nextID++
		assignment.ID = fmt.Sprintf("asn-%d", a.nextID)
	}
	clone := *assignment
	a.assignments[assignment.ID] = &clone
	return nil
}

func (a *assignmentRepoStub) GetActiveByRequest(ctx context.Context, requestID string, kind models.AssigneeKind) (*models.Assignment, error) {
	for _, assignment := range a.assignments {
		if assignment.RequestID != requestID || !assignment.IsActive || assignment.IsCompleted {
			continue
		}
		if kind != "" && assignment.AssigneeKind != kind {
			continue
		}
		clone := *assignment
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (a *assignmentRepoStub) ListByRequest(ctx context.Context, requestID string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, assignment := range a.assignments {
		if assignment.RequestID == requestID {
			out = append(out, *assignment)
		}
	}
	return out, nil
}

func (a *assignmentRepoStub) Deactivate(ctx context.Context, id string, reason string) error {
	assignment, ok := a.assignments[id]
	if !ok || !assignment.IsActive || assignment.IsCompleted {
		return sql.ErrNoRows
	}
	assignment.IsActive = false
	assignment.ReassignReason = &reason
	return nil
}

func (a *assignmentRepoStub) Complete(ctx context.Context, params repository.CompleteParams) error {
	assignment, ok := a.assignments[params.ID]
	if !ok || !assignment.IsActive || assignment.IsCompleted {
		return sql.ErrNoRows
	}
	assignment.IsActive = false
	assignment.IsCompleted = true
	assignment.ActualHours = &params.ActualHours
	assignment.QualityRating = params.QualityRating
	assignment.CompletionNote = params.Note
	assignment.CompletedAt = &params.CompletedAt
	return nil
}

func (a *assignmentRepoStub) MarkStarted(ctx context.Context, requestID string, startedAt time.Time) error {
	for _, assignment := range a.assignments {
		if assignment.RequestID == requestID && assignment.IsActive && !assignment.IsCompleted {
			assignment.StartedAt = &startedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (a *assignmentRepoStub) ActiveLoads(ctx context.Context, assigneeIDs []string) (map[string]models.Candidate, error) {
	out := make(map[string]models.Candidate)
	for _, id := range assigneeIDs {
		if load, ok := a.loads[id]; ok {
			out[id] = load
		}
	}
	return out, nil
}

type costRepoStub struct {
	records map[string]*models.CostRecord
	nextID  int
}

func newCostRepoStub() *costRepoStub {
	return &costRepoStub{records: make(map[string]*models.CostRecord)}
}

func (c *costRepoStub) Upsert(ctx context.Context, record *models.CostRecord) error {
	if existing, ok := c.records[record.RequestID]; ok {
		record.ID = existing.ID
	} else if record.ID == "" {
		c.nextID++
		record.ID = fmt.Sprintf("cost-%d", c.nextID)
	}
	clone := *record
	c.records[record.RequestID] = &clone
	return nil
}

func (c *costRepoStub) GetByRequest(ctx context.Context, requestID string) (*models.CostRecord, error) {
	record, ok := c.records[requestID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (c *costRepoStub) ListOverBudget(ctx context.Context, hostelID string) ([]models.CostRecord, error) {
	var out []models.CostRecord
	for _, record := range c.records {
		if !record.WithinBudget {
			out = append(out, *record)
		}
	}
	return out, nil
}

type completionRepoStub struct {
	completions  map[string]*models.CompletionRecord
	checks       []models.QualityCheck
	certificates map[string]*models.Certificate
	nextID       int
}

func newCompletionRepoStub() *completionRepoStub {
	return &completionRepoStub{
		completions:  make(map[string]*models.CompletionRecord),
		certificates: make(map[string]*models.Certificate),
	}
}

func (c *completionRepoStub) Create(ctx context.Context, record *models.CompletionRecord) error {
	if record.ID == "" {
		c.nextID++
		record.ID = fmt.Sprintf("cmp-%d", c.nextID)
	}
	clone := *record
	c.completions[record.ID] = &clone
	return nil
}

func (c *completionRepoStub) GetByID(ctx context.Context, id string) (*models.CompletionRecord, error) {
	record, ok := c.completions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (c *completionRepoStub) GetByRequest(ctx context.Context, requestID string) (*models.CompletionRecord, error) {
	for _, record := range c.completions {
		if record.RequestID == requestID {
			clone := *record
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (c *completionRepoStub) CreateQualityCheck(ctx context.Context, check *models.QualityCheck) error {
	if check.ID == "" {
		check.ID = fmt.Sprintf("qc-%d", len(c.checks)+1)
	}
	c.checks = append(c.checks, *check)
	return nil
}

func (c *completionRepoStub) ListQualityChecks(ctx context.Context, completionID string) ([]models.QualityCheck, error) {
	var out []models.QualityCheck
	for _, check := range c.checks {
		if check.CompletionID == completionID {
			out = append(out, check)
		}
	}
	return out, nil
}

func (c *completionRepoStub) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = fmt.Sprintf("crt-%d", len(c.certificates)+1)
	}
	clone := *cert
	c.certificates[cert.CompletionID] = &clone
	return nil
}

func (c *completionRepoStub) GetCertificateByCompletion(ctx context.Context, completionID string) (*models.Certificate, error) {
	cert, ok := c.certificates[completionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *cert
	return &clone, nil
}

func (c *completionRepoStub) GetCertificateByID(ctx context.Context, id string) (*models.Certificate, error) {
	for _, cert := range c.certificates {
		if cert.ID == id {
			clone := *cert
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

type scheduleRepoStub struct {
	schedules  map[string]*models.Schedule
	executions []models.ScheduleExecution
	nextID     int
}

func newScheduleRepoStub() *scheduleRepoStub {
	return &scheduleRepoStub{schedules: make(map[string]*models.Schedule)}
}

func (s *scheduleRepoStub) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		s.nextID++
		schedule.ID = fmt.Sprintf("sch-%d", s.nextID)
	}
	clone := *schedule
	s.schedules[schedule.ID] = &clone
	return nil
}

func (s *scheduleRepoStub) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, ok := s.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *schedule
	return &clone, nil
}

func (s *scheduleRepoStub) ListDue(ctx context.Context, now time.Time) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, schedule := range s.schedules {
		if schedule.IsActive && !schedule.NextDueDate.After(now) {
			out = append(out, *schedule)
		}
	}
	return out, nil
}

func (s *scheduleRepoStub) ListByHostel(ctx context.Context, hostelID string) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, schedule := range s.schedules {
		if schedule.HostelID == hostelID {
			out = append(out, *schedule)
		}
	}
	return out, nil
}

func (s *scheduleRepoStub) CreateExecution(ctx context.Context, execution *models.ScheduleExecution) error {
	if execution.ID == "" {
		execution.ID = fmt.Sprintf("exe-%d", len(s.executions)+1)
	}
	s.executions = append(s.executions, *execution)
	return nil
}

func (s *scheduleRepoStub) ListExecutions(ctx context.Context, scheduleID string) ([]models.ScheduleExecution, error) {
	var out []models.ScheduleExecution
	for _, execution := range s.executions {
		if execution.ScheduleID == scheduleID {
			out = append(out, execution)
		}
	}
	return out, nil
}

func (s *scheduleRepoStub) Advance(ctx context.Context, params repository.AdvanceParams) error {
	schedule, ok := s.schedules[params.ID]
	if !ok || !schedule.NextDueDate.Before(params.NextDueDate) {
		return sql.ErrNoRows
	}
	schedule.TotalExecutions++
	if params.Completed {
		schedule.SuccessfulRuns++
	}
	schedule.NextDueDate = params.NextDueDate
	schedule.UpdatedAt = params.UpdatedAt
	return nil
}

func (s *scheduleRepoStub) BumpTotals(ctx context.Context, id string, updatedAt time.Time) error {
	schedule, ok := s.schedules[id]
	if !ok {
		return sql.ErrNoRows
	}
	schedule.TotalExecutions++
	schedule.UpdatedAt = updatedAt
	return nil
}

func (s *scheduleRepoStub) SetActive(ctx context.Context, id string, active bool) error {
	schedule, ok := s.schedules[id]
	if !ok {
		return sql.ErrNoRows
	}
	schedule.IsActive = active
	return nil
}

type rendererStub struct {
	rendered []export.CertificateDocument
}

func (r *rendererStub) Render(doc export.CertificateDocument) ([]byte, error) {
	r.rendered = append(r.rendered, doc)
	return []byte("%PDF-1.4 stub"), nil
}

type storageStub struct {
	saved map[string][]byte
}

func newStorageStub() *storageStub {
	return &storageStub{saved: make(map[string][]byte)}
}

func (s *storageStub) Save(filename string, data []byte) (string, error) {
	s.saved[filename] = data
	return "/certificates/" + filename, nil
}
