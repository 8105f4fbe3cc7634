package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/google/uuid"
)

// Event types published for every job lifecycle notification
const (
	EventSubmitted     = "deployment.submitted"
	EventStatusChanged = "deployment.status_changed"
	EventLogs          = "deployment.logs"
	EventFinished      = "deployment.finished"
)

// Publisher sends an encoded event under a routing key
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// Event is the message body written for each notification
type Event struct {
	ID             string    `json:"event_id"`
	Type           string    `json:"type"`
	JobID          string    `json:"job_id"`
	BatchID        string    `json:"batch_id,omitempty"`
	Workload       string    `json:"workload"`
	Operation      string    `json:"operation"`
	Target         string    `json:"target"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	ConsoleURL     string    `json:"console_url,omitempty"`
	Lines          []string  `json:"lines,omitempty"`
	Degraded       bool      `json:"degraded,omitempty"`
	Error          string    `json:"error,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// EventPublisher is an Observer that forwards notifications to a message
// broker. Publish failures are logged and dropped.
type EventPublisher struct {
	logger       *slog.Logger
	publisher    Publisher
	includeLines bool
}

// NewEventPublisher creates an event publisher. Log lines are only published
// when includeLines is set.
func NewEventPublisher(logger *slog.Logger, publisher Publisher, includeLines bool) *EventPublisher {
	return &EventPublisher{
		logger:       logger,
		publisher:    publisher,
		includeLines: includeLines,
	}
}

func (e *EventPublisher) JobSubmitted(ctx context.Context, job *domain.Job) {
	e.publish(ctx, newEvent(EventSubmitted, job))
}

func (e *EventPublisher) StatusChanged(ctx context.Context, job *domain.Job, previous string) {
	event := newEvent(EventStatusChanged, job)
	event.PreviousStatus = previous
	e.publish(ctx, event)
}

func (e *EventPublisher) LinesFetched(ctx context.Context, job *domain.Job, lines []string) {
	if !e.includeLines {
		return
	}
	event := newEvent(EventLogs, job)
	event.Lines = lines
	e.publish(ctx, event)
}

func (e *EventPublisher) JobFinished(ctx context.Context, job *domain.Job) {
	event := newEvent(EventFinished, job)
	event.Degraded = job.Degraded
	if job.Degraded {
		event.Error = job.LastError
	}
	e.publish(ctx, event)
}

func (e *EventPublisher) publish(ctx context.Context, event *Event) {
	body, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("Failed to encode event",
			slog.String("type", event.Type),
			slog.String("job_id", event.JobID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := e.publisher.Publish(ctx, event.Type+"."+event.Workload, body, "application/json"); err != nil {
		e.logger.Error("Failed to publish event",
			slog.String("type", event.Type),
			slog.String("job_id", event.JobID),
			slog.String("error", err.Error()),
		)
	}
}

func newEvent(eventType string, job *domain.Job) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		JobID:      job.ID,
		BatchID:    job.BatchID,
		Workload:   string(job.Workload),
		Operation:  string(job.Operation),
		Target:     job.Target,
		Status:     job.Status,
		ConsoleURL: job.ConsoleURL,
		OccurredAt: time.Now().UTC(),
	}
}
