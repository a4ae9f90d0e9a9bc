package syncclient

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls per key into a single trailing-edge
// invocation. It exists as its own object so teardown can cancel every
// armed timer instead of letting them fire into a dead client.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	timers  map[string]*time.Timer
	stopped bool
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		timers: make(map[string]*time.Timer),
	}
}

// Do schedules fn to run after the window elapses without another Do for the
// same key. A newer call supersedes the pending one.
func (d *Debouncer) Do(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending invocation for a key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// CancelAll stops every pending timer and refuses further scheduling.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}

// Pending reports how many keys have an armed timer.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
