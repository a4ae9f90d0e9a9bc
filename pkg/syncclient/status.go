package syncclient

import (
	"sync"
	"time"
)

// SaveState is the per-record save indicator surfaced next to each editor
// field.
type SaveState int

const (
	SaveIdle SaveState = iota
	SaveSaving
	SaveSaved
	SaveQueued
	SaveError
)

var saveStateLabels = map[SaveState]string{
	SaveIdle:   "",
	SaveSaving: "saving",
	SaveSaved:  "saved",
	SaveQueued: "queued",
	SaveError:  "error",
}

func (s SaveState) String() string {
	return saveStateLabels[s]
}

// SaveTracker keeps a SaveState per record key. A "saved" state clears itself
// back to idle after the hold window, the way a save badge fades out.
type SaveTracker struct {
	mu     sync.Mutex
	hold   time.Duration
	states map[string]SaveState
	timers map[string]*time.Timer
}

func NewSaveTracker(hold time.Duration) *SaveTracker {
	return &SaveTracker{
		hold:   hold,
		states: make(map[string]SaveState),
		timers: make(map[string]*time.Timer),
	}
}

func (t *SaveTracker) Set(key string, state SaveState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}

	if state == SaveIdle {
		delete(t.states, key)
		return
	}
	t.states[key] = state

	if state == SaveSaved {
		t.timers[key] = time.AfterFunc(t.hold, func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.states[key] == SaveSaved {
				delete(t.states, key)
				delete(t.timers, key)
			}
		})
	}
}

func (t *SaveTracker) State(key string) SaveState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[key]
}
