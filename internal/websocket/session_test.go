package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchSubscribeAcksAndSendsRoster(t *testing.T) {
	h := newTestHub(t, testSyncConfig())

	present := subscribed(t, h, "a1", "course-1")
	present.setPresence(PresenceRecord{AssessorID: "a1", AssessorName: "One", ParticipantID: "p-1", LastSeenAt: time.Now()})

	s := newSession(h, nil, "a2")
	require.NoError(t, h.Register(s))

	s.dispatch([]byte(`{"type":"subscribe","scopeId":"course-1","participantIds":["p-1"]}`))

	sub := s.Subscription()
	require.NotNil(t, sub)
	assert.Equal(t, "course-1", sub.ScopeID)
	assert.Contains(t, sub.Watched, "p-1")

	frames := drainFrames(s)
	require.Len(t, frames, 2)

	var ack SubscribedMessage
	require.NoError(t, json.Unmarshal(frames[0], &ack))
	assert.Equal(t, TypeSubscribed, ack.Type)
	assert.Equal(t, "course-1", ack.CourseID)

	var state PresenceStateMessage
	require.NoError(t, json.Unmarshal(frames[1], &state))
	assert.Equal(t, TypePresenceState, state.Type)
	require.Len(t, state.Assessors, 1)
	assert.Equal(t, "a1", state.Assessors[0].AssessorID)
}

func TestDispatchPresenceBroadcastsToScope(t *testing.T) {
	h := newTestHub(t, testSyncConfig())

	editor := subscribed(t, h, "a1", "course-1")
	observer := subscribed(t, h, "a2", "course-1")

	editor.dispatch([]byte(`{"type":"presence","assessorId":"a1","assessorName":"One","participantId":"p-1","componentId":"score-3"}`))

	rec, ok := editor.Presence()
	require.True(t, ok)
	assert.Equal(t, "score-3", rec.ComponentID)
	assert.WithinDuration(t, time.Now(), rec.LastSeenAt, time.Second)
	assert.Equal(t, 1, h.registry.Len())

	frames := drainFrames(observer)
	require.NotEmpty(t, frames)
	var state PresenceStateMessage
	require.NoError(t, json.Unmarshal(frames[len(frames)-1], &state))
	require.Len(t, state.Assessors, 1)
	assert.Equal(t, "p-1", state.Assessors[0].ParticipantID)
}

func TestDispatchPingAnswersPong(t *testing.T) {
	h := newTestHub(t, testSyncConfig())
	s := newSession(h, nil, "a1")
	require.NoError(t, h.Register(s))

	s.dispatch([]byte(`{"type":"ping"}`))

	frames := drainFrames(s)
	require.Len(t, frames, 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(frames[0], &env))
	assert.Equal(t, TypePong, env.Type)
}

func TestDispatchDropsInvalidFrames(t *testing.T) {
	h := newTestHub(t, testSyncConfig())
	s := newSession(h, nil, "a1")
	require.NoError(t, h.Register(s))

	// Not JSON, unknown type, and subscribe without a scope: all dropped
	// without touching session state.
	s.dispatch([]byte(`not json`))
	s.dispatch([]byte(`{"type":"mystery"}`))
	s.dispatch([]byte(`{"type":"subscribe"}`))
	s.dispatch([]byte(`{"type":"presence","assessorId":"a1"}`))

	assert.Nil(t, s.Subscription())
	_, ok := s.Presence()
	assert.False(t, ok)
	assert.Empty(t, drainFrames(s))
}
