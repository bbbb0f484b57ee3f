package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects событий жизненного цикла
const (
	GuidanceRequested        = "guidance.requested"
	GuidanceRescheduled      = "guidance.rescheduled"
	GuidanceCancelled        = "guidance.cancelled"
	GuidanceApproved         = "guidance.approved"
	GuidanceRejected         = "guidance.rejected"
	GuidanceSummarySubmitted = "guidance.summary_submitted"
	GuidanceCompleted        = "guidance.completed"
	GuidanceNotesUpdated     = "guidance.notes_updated"

	SupervisorRequestCreated   = "supervisor_request.created"
	SupervisorRequestApproved  = "supervisor_request.approved"
	SupervisorRequestRejected  = "supervisor_request.rejected"
	SupervisorRequestCancelled = "supervisor_request.cancelled"

	MilestoneProgressSubmitted = "milestone.progress_submitted"
	MilestoneValidated         = "milestone.validated"
)

// Event событие для внешнего сервиса уведомлений
type Event struct {
	EventType    string    `json:"event_type"`
	EntityID     uuid.UUID `json:"entity_id"`
	StudentID    uuid.UUID `json:"student_id,omitempty"`
	SupervisorID uuid.UUID `json:"supervisor_id,omitempty"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type NatsPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewNatsPublisher(natsURL string, logger *zap.Logger) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("thesis-tracker"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NatsPublisher{conn: nc, logger: logger}, nil
}

func (p *NatsPublisher) Publish(_ context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.Publish(event.EventType, eventJSON); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}

	p.logger.Debug("Published event",
		zap.String("subject", event.EventType),
		zap.String("entity_id", event.EntityID.String()))

	return nil
}

// Close сбрасывает буфер и закрывает соединение
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Failed to drain nats connection", zap.Error(err))
	}
}

// NopPublisher используется, когда NATS не настроен
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder запоминает опубликованные события, удобен в тестах и dev-режиме
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
	return nil
}

// Types возвращает типы записанных событий по порядку
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.Events))
	for i, ev := range r.Events {
		types[i] = ev.EventType
	}
	return types
}
