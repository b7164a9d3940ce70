package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sidukcapil/apiserver/types"
)

// ApplicationEventsChannel is the queue/topic application lifecycle events
// are published on.
const ApplicationEventsChannel = "application-events"

// Application lifecycle event names.
const (
	EventApplicationCreated   = "application.created"
	EventApplicationSubmitted = "application.submitted"
	EventApplicationProcessed = "application.status_changed"
	EventApplicationCancelled = "application.cancelled"
)

// Publisher sends a message to a named channel. Satisfied by mq.MQ.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ApplicationEvent is the payload published on application lifecycle changes.
type ApplicationEvent struct {
	Event             string                  `json:"event"`
	ApplicationID     int                     `json:"application_id"`
	ApplicationNumber string                  `json:"application_number"`
	ApplicationType   types.ApplicationType   `json:"application_type"`
	Status            types.ApplicationStatus `json:"status"`
	ApplicantID       int                     `json:"applicant_id"`
	OccurredAt        time.Time               `json:"occurred_at"`
}

// Notifier publishes application lifecycle events fire-and-forget.
// A nil Notifier is valid and publishes nothing.
type Notifier struct {
	publisher Publisher
}

func NewNotifier(publisher Publisher) *Notifier {
	return &Notifier{publisher: publisher}
}

// ApplicationEvent publishes a lifecycle event. Publish failures are logged
// and swallowed; notification problems never block the operation.
func (n *Notifier) ApplicationEvent(ctx context.Context, event string, app types.Application) {
	if n == nil || n.publisher == nil {
		return
	}

	payload := ApplicationEvent{
		Event:             event,
		ApplicationID:     app.ID,
		ApplicationNumber: app.ApplicationNumber,
		ApplicationType:   app.ApplicationType,
		Status:            app.Status,
		ApplicantID:       app.ApplicantID,
		OccurredAt:        time.Now(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("application event marshal failed", "event", event, "error", err)
		return
	}

	attrs := map[string]string{"event": event}
	if _, err := n.publisher.Publish(ctx, ApplicationEventsChannel, data, attrs); err != nil {
		slog.Warn("application event publish failed",
			"event", event,
			"application_id", app.ID,
			"error", err,
		)
	}
}
