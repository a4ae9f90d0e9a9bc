package websocket

import (
	"time"
)

// Message types on the wire. Clients speak JSON text frames; every frame
// carries a "type" discriminator.
const (
	TypeSubscribe     = "subscribe"
	TypePresence      = "presence"
	TypePing          = "ping"
	TypeSubscribed    = "subscribed"
	TypePresenceState = "presence_state"
	TypeChange        = "change"
	TypePong          = "pong"
)

type Envelope struct {
	Type string `json:"type"`
}

// SubscribeMessage attaches the session to a course scope. An empty
// participant list means "watch everything in the scope".
type SubscribeMessage struct {
	Type           string   `json:"type"`
	ScopeID        string   `json:"scopeId" validate:"required"`
	ParticipantIDs []string `json:"participantIds" validate:"omitempty,dive,required"`
}

type PresenceMessage struct {
	Type          string `json:"type"`
	AssessorID    string `json:"assessorId" validate:"required"`
	AssessorName  string `json:"assessorName" validate:"required"`
	ParticipantID string `json:"participantId" validate:"required"`
	ComponentID   string `json:"componentId"`
}

type SubscribedMessage struct {
	Type     string `json:"type"`
	CourseID string `json:"courseId"`
}

// PresenceRecord is the denormalized view of one assessor's focus that gets
// broadcast to every session in the scope.
type PresenceRecord struct {
	AssessorID    string    `json:"assessorId"`
	AssessorName  string    `json:"assessorName"`
	ParticipantID string    `json:"participantId"`
	ComponentID   string    `json:"componentId,omitempty"`
	LastSeenAt    time.Time `json:"lastSeenAt"`
}

type PresenceStateMessage struct {
	Type      string           `json:"type"`
	CourseID  string           `json:"courseId"`
	Assessors []PresenceRecord `json:"assessors"`
}

type ChangeMessage struct {
	Type      string                 `json:"type"`
	EventType string                 `json:"eventType"`
	Table     string                 `json:"table"`
	Record    map[string]interface{} `json:"record"`
	OldRecord map[string]interface{} `json:"oldRecord,omitempty"`
}
