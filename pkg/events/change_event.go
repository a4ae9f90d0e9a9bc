package events

import "time"

type OperationKind string

const (
	OpInsert OperationKind = "INSERT"
	OpUpdate OperationKind = "UPDATE"
	OpDelete OperationKind = "DELETE"
)

// ChangeEvent describes one committed mutation on a watched table, as emitted
// by the database triggers and relayed by the change notifier.
type ChangeEvent struct {
	Table      string                 `json:"table"`
	Kind       OperationKind          `json:"type"`
	Record     map[string]interface{} `json:"record"`
	OldRecord  map[string]interface{} `json:"old_record,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e ChangeEvent) EventType() string {
	return "change." + e.Table
}

func (e ChangeEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"table":      e.Table,
		"type":       string(e.Kind),
		"record":     e.Record,
		"old_record": e.OldRecord,
	}
}

func (e ChangeEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// ScopeID extracts the course the mutated row belongs to. Empty when the
// trigger payload carries no course column.
func (e ChangeEvent) ScopeID() string {
	return e.stringField("course_id")
}

// TargetID extracts the participant the mutated row concerns. Empty when the
// row has no identifiable participant, in which case fan-out treats the event
// as scope-wide.
func (e ChangeEvent) TargetID() string {
	if id := e.stringField("participant_id"); id != "" {
		return id
	}
	if e.Table == "participants" {
		return e.stringField("id")
	}
	return ""
}

func (e ChangeEvent) stringField(key string) string {
	rec := e.Record
	if rec == nil {
		rec = e.OldRecord
	}
	if rec == nil {
		return ""
	}
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}
