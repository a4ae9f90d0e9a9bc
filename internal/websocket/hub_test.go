package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"assessment-sync-be/internal/config"
	"assessment-sync-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		MaxConnections: 100,
		MaxMessageSize: 64 * 1024,
		PresenceTTL:    60 * time.Second,
		PresenceSweep:  60 * time.Second,
	}
}

func newTestHub(t *testing.T, cfg config.SyncConfig) *Hub {
	t.Helper()
	return NewHub(cfg, nopLogger{})
}

func subscribed(t *testing.T, h *Hub, assessorID, scopeID string, watched ...string) *Session {
	t.Helper()
	s := newSession(h, nil, assessorID)
	require.NoError(t, h.Register(s))

	sub := &Subscription{ScopeID: scopeID}
	if len(watched) > 0 {
		sub.Watched = make(map[string]struct{}, len(watched))
		for _, id := range watched {
			sub.Watched[id] = struct{}{}
		}
	}
	s.mu.Lock()
	s.subscription = sub
	s.mu.Unlock()
	return s
}

func drainFrames(s *Session) [][]byte {
	var frames [][]byte
	for {
		select {
		case data := <-s.send:
			frames = append(frames, data)
		default:
			return frames
		}
	}
}

func TestRegisterShedsAtCapacity(t *testing.T) {
	cfg := testSyncConfig()
	cfg.MaxConnections = 2
	h := newTestHub(t, cfg)

	s1 := newSession(h, nil, "a1")
	s2 := newSession(h, nil, "a2")
	s3 := newSession(h, nil, "a3")

	require.NoError(t, h.Register(s1))
	require.NoError(t, h.Register(s2))
	assert.ErrorIs(t, h.Register(s3), ErrCapacity)
	assert.Equal(t, 2, h.Count())

	// A departure frees a slot immediately.
	h.Unregister(s1)
	assert.NoError(t, h.Register(s3))
	assert.Equal(t, 2, h.Count())
}

func TestBroadcastChangeFiltering(t *testing.T) {
	h := newTestHub(t, testSyncConfig())

	inScope := subscribed(t, h, "a1", "course-1")
	watching := subscribed(t, h, "a2", "course-1", "p-1")
	watchingOther := subscribed(t, h, "a3", "course-1", "p-2")
	otherScope := subscribed(t, h, "a4", "course-2")
	unsubscribed := newSession(h, nil, "a5")
	require.NoError(t, h.Register(unsubscribed))

	// The shape the migration trigger emits for a scores row: the raw columns
	// plus the course/participant context joined from the assessment.
	h.BroadcastChange(events.ChangeEvent{
		Table: "scores",
		Kind:  events.OpUpdate,
		Record: map[string]interface{}{
			"id":             "s-1",
			"assessment_id":  "as-1",
			"outcome_id":     "o-1",
			"value":          float64(85),
			"course_id":      "course-1",
			"participant_id": "p-1",
		},
	})

	assert.Len(t, drainFrames(inScope), 1, "empty watch-list receives everything in scope")
	assert.Len(t, drainFrames(watching), 1, "watcher of the target participant receives it")
	assert.Empty(t, drainFrames(watchingOther), "watcher of another participant does not")
	assert.Empty(t, drainFrames(otherScope), "other scope does not")
	assert.Empty(t, drainFrames(unsubscribed), "unsubscribed session does not")
}

func TestBroadcastChangeWithoutScopeIsDropped(t *testing.T) {
	h := newTestHub(t, testSyncConfig())

	sameCourse := subscribed(t, h, "a1", "course-1")
	excluding := subscribed(t, h, "a2", "course-1", "p-other")
	otherScope := subscribed(t, h, "a3", "course-other")

	// A child-row payload missing the joined course/participant context has
	// no scope to route by; delivering it anyway would leak the change into
	// every subscribed course.
	h.BroadcastChange(events.ChangeEvent{
		Table: "scores",
		Kind:  events.OpUpdate,
		Record: map[string]interface{}{
			"id":            "s-1",
			"assessment_id": "as-1",
			"outcome_id":    "o-1",
			"value":         float64(85),
		},
	})

	assert.Empty(t, drainFrames(sameCourse), "scope-less event is not delivered anywhere")
	assert.Empty(t, drainFrames(excluding), "excluding watch-list is not bypassed")
	assert.Empty(t, drainFrames(otherScope), "other course never sees it")
}

func TestBroadcastChangeWithoutTargetGoesScopeWide(t *testing.T) {
	h := newTestHub(t, testSyncConfig())

	narrow := subscribed(t, h, "a1", "course-1", "p-9")

	h.BroadcastChange(events.ChangeEvent{
		Table: "assessments",
		Kind:  events.OpInsert,
		Record: map[string]interface{}{
			"id":        "as-1",
			"course_id": "course-1",
		},
	})

	assert.Len(t, drainFrames(narrow), 1, "event without a participant reaches narrowed watchers too")
}

func TestBroadcastChangeFramePayload(t *testing.T) {
	h := newTestHub(t, testSyncConfig())
	s := subscribed(t, h, "a1", "course-1")

	h.BroadcastChange(events.ChangeEvent{
		Table:     "scores",
		Kind:      events.OpDelete,
		Record:    map[string]interface{}{"id": "s-1", "course_id": "course-1"},
		OldRecord: map[string]interface{}{"id": "s-1", "value": float64(80)},
	})

	frames := drainFrames(s)
	require.Len(t, frames, 1)

	var msg ChangeMessage
	require.NoError(t, json.Unmarshal(frames[0], &msg))
	assert.Equal(t, TypeChange, msg.Type)
	assert.Equal(t, "DELETE", msg.EventType)
	assert.Equal(t, "scores", msg.Table)
	assert.Equal(t, "s-1", msg.Record["id"])
	assert.Equal(t, float64(80), msg.OldRecord["value"])
}

func TestSnapshotExcludesStalePresence(t *testing.T) {
	cfg := testSyncConfig()
	cfg.PresenceTTL = 50 * time.Millisecond
	h := newTestHub(t, cfg)

	fresh := subscribed(t, h, "a1", "course-1")
	stale := subscribed(t, h, "a2", "course-1")

	fresh.setPresence(PresenceRecord{AssessorID: "a1", AssessorName: "One", ParticipantID: "p-1", LastSeenAt: time.Now()})
	stale.setPresence(PresenceRecord{AssessorID: "a2", AssessorName: "Two", ParticipantID: "p-1", LastSeenAt: time.Now().Add(-time.Second)})

	records := h.Snapshot("course-1")
	require.Len(t, records, 1)
	assert.Equal(t, "a1", records[0].AssessorID)
}

func TestUnregisterBroadcastsDeparture(t *testing.T) {
	h := newTestHub(t, testSyncConfig())

	leaving := subscribed(t, h, "a1", "course-1")
	staying := subscribed(t, h, "a2", "course-1")

	leaving.setPresence(PresenceRecord{AssessorID: "a1", AssessorName: "One", ParticipantID: "p-1", LastSeenAt: time.Now()})
	h.registry.Touch(leaving)
	h.BroadcastPresence("course-1")
	drainFrames(staying)

	h.Unregister(leaving)

	frames := drainFrames(staying)
	require.NotEmpty(t, frames, "departure triggers a presence re-broadcast")

	var state PresenceStateMessage
	require.NoError(t, json.Unmarshal(frames[len(frames)-1], &state))
	assert.Equal(t, TypePresenceState, state.Type)
	assert.Empty(t, state.Assessors)
}

func TestSweepReclaimsStalePresence(t *testing.T) {
	cfg := testSyncConfig()
	cfg.PresenceTTL = 20 * time.Millisecond
	cfg.PresenceSweep = 10 * time.Millisecond
	h := newTestHub(t, cfg)

	idle := subscribed(t, h, "a1", "course-1")
	observer := subscribed(t, h, "a2", "course-1")

	idle.setPresence(PresenceRecord{AssessorID: "a1", AssessorName: "One", ParticipantID: "p-1", LastSeenAt: time.Now()})
	h.registry.Touch(idle)

	assert.Eventually(t, func() bool {
		_, ok := idle.Presence()
		return !ok
	}, time.Second, 10*time.Millisecond, "sweep clears the untouched presence record")

	frames := drainFrames(observer)
	require.NotEmpty(t, frames, "sweep eviction re-broadcasts the scope")
}

func TestSubscriptionWatches(t *testing.T) {
	tests := []struct {
		name          string
		watched       []string
		participantID string
		want          bool
	}{
		{"empty watch-list sees everything", nil, "p-1", true},
		{"event without target reaches everyone", []string{"p-1"}, "", true},
		{"watched participant matches", []string{"p-1", "p-2"}, "p-2", true},
		{"unwatched participant filtered", []string{"p-1"}, "p-3", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{ScopeID: "course-1"}
			if len(tt.watched) > 0 {
				sub.Watched = make(map[string]struct{})
				for _, id := range tt.watched {
					sub.Watched[id] = struct{}{}
				}
			}
			assert.Equal(t, tt.want, sub.watches(tt.participantID))
		})
	}
}

func TestSlowSessionEvicted(t *testing.T) {
	h := newTestHub(t, testSyncConfig())
	slow := subscribed(t, h, "a1", "course-1")

	// Saturate the send buffer so the next broadcast cannot enqueue.
	filler := []byte("{}")
	for slow.enqueue(filler) {
	}

	h.BroadcastChange(events.ChangeEvent{
		Table:  "scores",
		Kind:   events.OpUpdate,
		Record: map[string]interface{}{"course_id": "course-1"},
	})

	assert.Equal(t, 0, h.Count(), "session with a full buffer is dropped")
}
