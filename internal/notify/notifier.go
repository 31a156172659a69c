// Package notify publishes export lifecycle events for the email channel.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"resume-export/internal/shared/telemetry"
)

const EventExportReady = "export.ready"

// Event is published once an email-channel export reaches READY. The mailer
// that consumes it fetches the artifact by StorageKey.
type Event struct {
	Type       string    `json:"type"`
	ExportID   string    `json:"exportId"`
	UserID     string    `json:"userId"`
	StorageKey string    `json:"storageKey"`
	ExpiresAt  time.Time `json:"expiresAt"`
	OccurredAt time.Time `json:"occurredAt"`
	Version    int       `json:"version"`
}

// Notifier delivers events to the notification collaborator.
type Notifier interface {
	ExportReady(ctx context.Context, ev Event) error
}

// EncodeEvent returns the JSON representation of an event.
func EncodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent parses a JSON payload into an Event.
func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// LogNotifier only logs events. Used when no queue is configured.
type LogNotifier struct{}

var _ Notifier = LogNotifier{}

func (LogNotifier) ExportReady(ctx context.Context, ev Event) error {
	telemetry.Info("notify.export_ready", map[string]any{
		"export_id":   ev.ExportID,
		"user_id":     ev.UserID,
		"storage_key": ev.StorageKey,
		"expires_at":  ev.ExpiresAt,
	})
	return nil
}
