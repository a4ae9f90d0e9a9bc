package syncclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusLabels(t *testing.T) {
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "reconnecting", StatusReconnecting.String())
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
}

func TestSaveTrackerSavedFadesToIdle(t *testing.T) {
	tracker := NewSaveTracker(20 * time.Millisecond)

	tracker.Set("score/o-1", SaveSaving)
	assert.Equal(t, SaveSaving, tracker.State("score/o-1"))

	tracker.Set("score/o-1", SaveSaved)
	assert.Equal(t, SaveSaved, tracker.State("score/o-1"))

	assert.Eventually(t, func() bool {
		return tracker.State("score/o-1") == SaveIdle
	}, time.Second, 5*time.Millisecond, "saved badge fades out on its own")
}

func TestSaveTrackerErrorPersists(t *testing.T) {
	tracker := NewSaveTracker(10 * time.Millisecond)

	tracker.Set("score/o-1", SaveError)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, SaveError, tracker.State("score/o-1"), "errors stay visible until replaced")

	tracker.Set("score/o-1", SaveIdle)
	assert.Equal(t, SaveIdle, tracker.State("score/o-1"))
}

func TestSaveTrackerNewSaveCancelsFade(t *testing.T) {
	tracker := NewSaveTracker(20 * time.Millisecond)

	tracker.Set("score/o-1", SaveSaved)
	tracker.Set("score/o-1", SaveSaving)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, SaveSaving, tracker.State("score/o-1"), "a fresh save supersedes the pending fade")
}
