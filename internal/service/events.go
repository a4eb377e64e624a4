package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/pkg/jobs"
)

// EventEmitter fans domain events out to interested consumers. Emission is
// fire-and-forget: a dropped event never fails the workflow operation that
// produced it.
type EventEmitter interface {
	Emit(ctx context.Context, event models.DomainEvent)
}

// NopEmitter discards all events.
type NopEmitter struct{}

// Emit implements EventEmitter.
func (NopEmitter) Emit(context.Context, models.DomainEvent) {}

// EventSink consumes dispatched events, typically bridging to an external
// notification channel.
type EventSink interface {
	Handle(ctx context.Context, event models.DomainEvent) error
}

// EventSinkFunc allows plain functions as sinks.
type EventSinkFunc func(ctx context.Context, event models.DomainEvent) error

// Handle implements EventSink.
func (f EventSinkFunc) Handle(ctx context.Context, event models.DomainEvent) error {
	return f(ctx, event)
}

// QueueEmitter dispatches events through a background worker queue so
// slow sinks never block request handling.
type QueueEmitter struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewQueueEmitter wires sinks behind a jobs queue. Call Start before use.
func NewQueueEmitter(cfg jobs.QueueConfig, logger *zap.Logger, sinks ...EventSink) *QueueEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &QueueEmitter{logger: logger}
	e.queue = jobs.NewQueue("domain-events", func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.DomainEvent)
		if !ok {
			logger.Sugar().Warnw("dropping malformed event payload", "job_id", job.ID)
			return nil
		}
		for _, sink := range sinks {
			if err := sink.Handle(ctx, event); err != nil {
				return err
			}
		}
		return nil
	}, cfg)
	return e
}

// Start launches the dispatch workers.
func (e *QueueEmitter) Start(ctx context.Context) {
	e.queue.Start(ctx)
}

// Stop drains the workers.
func (e *QueueEmitter) Stop() {
	e.queue.Stop()
}

// Emit implements EventEmitter.
func (e *QueueEmitter) Emit(ctx context.Context, event models.DomainEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	err := e.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(event.Type),
		Payload: event,
	})
	if err != nil {
		e.logger.Sugar().Warnw("event dropped", "type", event.Type, "request_id", event.RequestID, "error", err)
	}
}

// MetricsSink bumps the workflow counters for every dispatched event.
func MetricsSink(metrics *MetricsService) EventSink {
	return EventSinkFunc(func(_ context.Context, event models.DomainEvent) error {
		switch event.Type {
		case models.EventRequestCreated:
			priority, _ := event.Payload["priority"].(string)
			level, _ := event.Payload["approvalLevel"].(string)
			metrics.RecordRequestCreated(priority, level)
		case models.EventRequestTransition:
			from, _ := event.Payload["from"].(string)
			to, _ := event.Payload["to"].(string)
			metrics.RecordTransition(from, to)
		case models.EventApprovalResolved:
			approved, _ := event.Payload["approved"].(bool)
			metrics.RecordApprovalResolved(approved)
		case models.EventCertificateIssued:
			metrics.RecordCertificateIssued()
		case models.EventScheduleDue:
			metrics.RecordSweepGenerated(1)
		}
		return nil
	})
}

// LoggingSink writes every event to the structured log. Used as the default
// sink when no external notification channel is configured.
func LoggingSink(logger *zap.Logger) EventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return EventSinkFunc(func(_ context.Context, event models.DomainEvent) error {
		logger.Sugar().Infow("domain event",
			"type", event.Type,
			"request_id", event.RequestID,
			"hostel_id", event.HostelID,
			"actor", event.Actor,
		)
		return nil
	})
}
