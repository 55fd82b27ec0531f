package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCredentialSaved   EventType = "credential_saved"
	EventCredentialCleared EventType = "credential_cleared"
	EventSessionExpired    EventType = "session_expired"
	EventBulkFallback      EventType = "bulk_fallback"
)

// Event is emitted by the gateway and the auth service.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// CredentialSavedPayload payload.
type CredentialSavedPayload struct {
	Scope string `json:"scope"`
}

// CredentialClearedPayload payload.
type CredentialClearedPayload struct {
	Reason string `json:"reason"`
}

// SessionExpiredPayload payload.
type SessionExpiredPayload struct {
	Method         string `json:"method"`
	Path           string `json:"path"`
	Status         int    `json:"status"`
	BackendMessage string `json:"backend_message,omitempty"`
}

// BulkFallbackPayload payload.
type BulkFallbackPayload struct {
	Resource string `json:"resource"`
	Count    int    `json:"count"`
	Reason   string `json:"reason"`
}
