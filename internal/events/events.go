// Package events publishes submission lifecycle notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/observability"
)

// Submission lifecycle event names.
const (
	SubmissionCreated  = "submission.created"
	SubmissionGraded   = "submission.graded"
	SubmissionReverted = "submission.reverted"
)

// SubmissionEvent is the payload published for every lifecycle change.
type SubmissionEvent struct {
	ID           string    `json:"id"`
	Event        string    `json:"event"`
	SubmissionID uint      `json:"submission_id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    *uint     `json:"student_id"`
	Graded       bool      `json:"graded"`
	Marks        *int      `json:"marks"`
	Status       string    `json:"status"`
	ActorID      uint      `json:"actor_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher delivers lifecycle events. Delivery is best effort; failures never
// reach the caller.
type Publisher interface {
	Publish(ctx context.Context, event SubmissionEvent)
}

// Subject joins the configured prefix and an event name.
func Subject(prefix, event string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return event
	}
	return prefix + "." + event
}

type natsPublisher struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
	now    func() time.Time
}

// NewNATSPublisher returns a publisher bound to conn. A nil connection yields a
// publisher that drops every event.
func NewNATSPublisher(conn *nats.Conn, prefix string, logger zerolog.Logger) Publisher {
	if conn == nil {
		return Noop()
	}
	return &natsPublisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.With().Str("component", "submission_events").Logger(),
		now:    time.Now,
	}
}

func (p *natsPublisher) Publish(_ context.Context, event SubmissionEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		observability.SubmissionEvents().WithLabelValues(event.Event, "error").Inc()
		p.logger.Warn().Err(err).Str("event", event.Event).Msg("failed to encode submission event")
		return
	}

	subject := Subject(p.prefix, event.Event)
	if err := p.conn.Publish(subject, payload); err != nil {
		observability.SubmissionEvents().WithLabelValues(event.Event, "error").Inc()
		p.logger.Warn().Err(err).Str("subject", subject).Uint("submission_id", event.SubmissionID).Msg("failed to publish submission event")
		return
	}

	observability.SubmissionEvents().WithLabelValues(event.Event, "published").Inc()
}

type noopPublisher struct{}

// Noop returns a publisher that discards events.
func Noop() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, SubmissionEvent) {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []SubmissionEvent
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, event SubmissionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []SubmissionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SubmissionEvent, len(r.events))
	copy(out, r.events)
	return out
}
