package models

import (
	"time"

	"github.com/google/uuid"
)

// Actor identifies who (or what) triggered an audit event. The gateway and
// events sink are trusted upstream, unauthenticated collaborators from the
// core's point of view, so actor is always UNKNOWN today; the field exists
// because the events-sink wire format requires it.
type Actor struct {
	ID        string `json:"id"`
	ActorType string `json:"actorType"`
}

// CallbackURIUpdatedEvent is emitted to the external application-events sink
// whenever validateCallbackUrl persists a URL that differs from the box's
// previous callback URL.
type CallbackURIUpdatedEvent struct {
	EventID        uuid.UUID `json:"eventId"`
	ApplicationID  string    `json:"applicationId"`
	EventDateTime  time.Time `json:"eventDateTime"`
	OldCallbackURL string    `json:"oldCallbackUrl"`
	NewCallbackURL string    `json:"newCallbackUrl"`
	BoxID          uuid.UUID `json:"boxId"`
	BoxName        string    `json:"boxName"`
	Actor          Actor     `json:"actor"`
	EventType      string    `json:"eventType"`
}

const EventTypeCallbackURIUpdated = "PPNS_CALLBACK_URI_UPDATED"
