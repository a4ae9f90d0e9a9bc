package syncclient

import "time"

// Wire frames, mirrored from the server's protocol. The client keeps its own
// copies so it can be vendored into tooling without dragging the server in.
const (
	typeSubscribe     = "subscribe"
	typePresence      = "presence"
	typePing          = "ping"
	typeSubscribed    = "subscribed"
	typePresenceState = "presence_state"
	typeChange        = "change"
	typePong          = "pong"
)

type envelope struct {
	Type string `json:"type"`
}

type subscribeFrame struct {
	Type           string   `json:"type"`
	ScopeID        string   `json:"scopeId"`
	ParticipantIDs []string `json:"participantIds,omitempty"`
}

type presenceFrame struct {
	Type          string `json:"type"`
	AssessorID    string `json:"assessorId"`
	AssessorName  string `json:"assessorName"`
	ParticipantID string `json:"participantId"`
	ComponentID   string `json:"componentId,omitempty"`
}

// Assessor is one remote editor as reported by the server's presence state.
type Assessor struct {
	AssessorID    string    `json:"assessorId"`
	AssessorName  string    `json:"assessorName"`
	ParticipantID string    `json:"participantId"`
	ComponentID   string    `json:"componentId,omitempty"`
	LastSeenAt    time.Time `json:"lastSeenAt"`
}

type presenceStateFrame struct {
	Type      string     `json:"type"`
	CourseID  string     `json:"courseId"`
	Assessors []Assessor `json:"assessors"`
}

type changeFrame struct {
	Type      string                 `json:"type"`
	EventType string                 `json:"eventType"`
	Table     string                 `json:"table"`
	Record    map[string]interface{} `json:"record"`
	OldRecord map[string]interface{} `json:"oldRecord,omitempty"`
}
