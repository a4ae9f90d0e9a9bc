package syncclient

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ManagerOptions tunes the save path. Zero values fall back to the defaults
// the editor UI is built around.
type ManagerOptions struct {
	// SaveDebounce coalesces bursts of Save calls on the same key into one
	// queued write.
	SaveDebounce time.Duration
	// SavedHold is how long a "saved" badge lingers before fading to idle.
	SavedHold time.Duration
}

func (o *ManagerOptions) withDefaults() {
	if o.SaveDebounce == 0 {
		o.SaveDebounce = time.Second
	}
	if o.SavedHold == 0 {
		o.SavedHold = 2 * time.Second
	}
}

// Manager binds a Client to its durable Queue so the two halves of the save
// path act as one: every save lands in the queue first, and the queue is
// flushed whenever the connection allows — right after an enqueue while
// connected, and on every reconnect. It also owns the per-field save debounce
// and the save-state badges.
//
// Construct the Manager before calling Client.Run; it hooks the client's
// connect callback to trigger the reconnect flush.
type Manager struct {
	client *Client
	queue  *Queue
	apply  ApplyFunc

	saves   *Debouncer
	tracker *SaveTracker

	mu   sync.Mutex
	keys map[string]string // pending change id -> save badge key
}

func NewManager(client *Client, queue *Queue, apply ApplyFunc, opts ManagerOptions) *Manager {
	opts.withDefaults()
	m := &Manager{
		client:  client,
		queue:   queue,
		apply:   apply,
		saves:   NewDebouncer(opts.SaveDebounce),
		tracker: NewSaveTracker(opts.SavedHold),
		keys:    make(map[string]string),
	}

	prev := client.opts.OnConnect
	client.opts.OnConnect = func(ctx context.Context) {
		if prev != nil {
			prev(ctx)
		}
		m.Flush(ctx)
	}
	return m
}

// Save captures one user mutation. The key identifies the editor field (one
// badge, one debounce slot); repeated saves within the window supersede each
// other so only the final value is queued.
func (m *Manager) Save(key string, change PendingChange) {
	m.tracker.Set(key, SaveSaving)
	m.saves.Do(key, func() {
		m.capture(key, change)
	})
}

func (m *Manager) capture(key string, change PendingChange) {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}

	m.mu.Lock()
	m.keys[change.ID] = key
	m.mu.Unlock()

	if err := m.queue.Enqueue(change); err != nil {
		m.forget(change.ID)
		m.tracker.Set(key, SaveError)
		return
	}

	if m.client.Status() == StatusConnected {
		go m.Flush(context.Background())
		return
	}
	m.tracker.Set(key, SaveQueued)
}

// Flush replays the queue through the apply func, translating per-entry
// outcomes into badge transitions. Safe to call concurrently; the queue's
// in-flight guard makes overlapping calls a no-op.
func (m *Manager) Flush(ctx context.Context) (FlushResult, error) {
	return m.queue.Flush(ctx, func(ctx context.Context, change PendingChange) error {
		err := m.apply(ctx, change)
		m.settle(change.ID, err)
		return err
	})
}

func (m *Manager) settle(changeID string, err error) {
	m.mu.Lock()
	key, ok := m.keys[changeID]
	if ok && err == nil {
		delete(m.keys, changeID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if err != nil {
		m.tracker.Set(key, SaveQueued)
		return
	}
	m.tracker.Set(key, SaveSaved)
}

func (m *Manager) forget(changeID string) {
	m.mu.Lock()
	delete(m.keys, changeID)
	m.mu.Unlock()
}

// Cancel drops a not-yet-captured save for the key and clears its badge.
// Called when the editor field unmounts.
func (m *Manager) Cancel(key string) {
	m.saves.Cancel(key)
	m.tracker.Set(key, SaveIdle)
}

// SaveState returns the badge for an editor field.
func (m *Manager) SaveState(key string) SaveState {
	return m.tracker.State(key)
}

// PendingCount reports how many captured writes still wait for the server.
func (m *Manager) PendingCount() (int, error) {
	return m.queue.PendingCount()
}

// Close stops the pending save timers. The queue is left to its owner.
func (m *Manager) Close() {
	m.saves.CancelAll()
}
