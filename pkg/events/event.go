package events

import "time"

// Event defines the contract for everything published on the sync bus.
type Event interface {
	// EventType returns the unique code for this event (e.g., "change.scores").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}
