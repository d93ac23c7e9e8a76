package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/pkg/jobs"
)

// EventPublisher delivers an encoded event to a subject. *nats.Conn satisfies it.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// EventService publishes grievance lifecycle events off the request path.
type EventService struct {
	publisher EventPublisher
	prefix    string
	queue     *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEventService builds the service and its worker queue. A nil publisher only logs events.
func NewEventService(publisher EventPublisher, prefix string, queueCfg jobs.QueueConfig, metrics *MetricsService, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EventService{publisher: publisher, prefix: prefix, metrics: metrics, logger: logger}
	queueCfg.Logger = logger
	queueCfg.OnResult = func(job jobs.Job, err error) {
		s.metrics.ObserveEvent(job.Type, err)
	}
	s.queue = jobs.NewQueue("grievance-events", s.deliver, queueCfg)
	return s
}

// Start launches the delivery workers.
func (s *EventService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for workers to exit.
func (s *EventService) Stop() {
	s.queue.Stop()
}

// Subject returns the subject an event type is published on.
func (s *EventService) Subject(eventType models.GrievanceEventType) string {
	if s.prefix == "" {
		return string(eventType)
	}
	return s.prefix + "." + string(eventType)
}

// Publish queues an event. Delivery problems are logged, never returned to the caller's intent.
func (s *EventService) Publish(event models.GrievanceEvent) {
	if s == nil {
		return
	}
	err := s.queue.Enqueue(jobs.Job{ID: event.ID, Type: string(event.Type), Payload: event})
	if err == nil {
		return
	}
	if errors.Is(err, jobs.ErrQueueFull) {
		s.logger.Warn("event dropped", zap.String("event", string(event.Type)), zap.String("grievance_id", event.GrievanceID))
	} else {
		s.logger.Error("event enqueue failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
	s.metrics.ObserveEvent(string(event.Type), err)
}

func (s *EventService) deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.GrievanceEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	if s.publisher == nil {
		s.logger.Info("grievance event",
			zap.String("event", string(event.Type)),
			zap.String("grievance_id", event.GrievanceID),
			zap.String("actor", event.ActorID),
			zap.String("status", string(event.Status)),
			zap.String("handler", event.Handler),
		)
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.publisher.Publish(s.Subject(event.Type), payload)
}
