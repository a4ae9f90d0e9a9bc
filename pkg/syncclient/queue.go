package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ChangeKind names the record family a queued write belongs to.
type ChangeKind string

const (
	KindScore   ChangeKind = "score"
	KindOverall ChangeKind = "overall"
)

// ChangeAction is what the replay should do with the payload.
type ChangeAction string

const (
	ActionUpsert ChangeAction = "upsert"
	ActionDelete ChangeAction = "delete"
)

// PendingChange is one write captured while offline. Payload is the exact
// request body the replay will send, so the apply side stays dumb.
type PendingChange struct {
	ID         string          `json:"id"`
	Kind       ChangeKind      `json:"kind"`
	Action     ChangeAction    `json:"action"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	RetryCount int             `json:"retry_count"`
}

// ApplyFunc pushes one pending change to the server. An error keeps the entry
// queued for the next flush.
type ApplyFunc func(ctx context.Context, change PendingChange) error

// FlushResult summarizes one flush pass.
type FlushResult struct {
	Applied int
	Failed  int
	Skipped int
}

var (
	prefixPending = []byte("pending/")
	keySequence   = []byte("seq/pending")
)

// Queue is the durable offline buffer. Entries are keyed by a monotonically
// increasing sequence so iteration order is enqueue order, and replay is
// strictly FIFO.
type Queue struct {
	db         *badger.DB
	seq        *badger.Sequence
	maxRetries int

	// flushing guards against overlapping flushes, which would replay the
	// same entries twice in flight.
	flushing atomic.Bool
}

// OpenQueue opens (or creates) a queue at the given directory.
func OpenQueue(path string, maxRetries int) (*Queue, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	return openQueue(opts, maxRetries)
}

// OpenInMemoryQueue is for tests and throwaway sessions; nothing survives the
// process.
func OpenInMemoryQueue(maxRetries int) (*Queue, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openQueue(opts, maxRetries)
}

func openQueue(opts badger.Options, maxRetries int) (*Queue, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	seq, err := db.GetSequence(keySequence, 64)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open queue sequence: %w", err)
	}
	return &Queue{db: db, seq: seq, maxRetries: maxRetries}, nil
}

func (q *Queue) Close() error {
	if q.seq != nil {
		q.seq.Release()
	}
	return q.db.Close()
}

func pendingKey(n uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixPending, n))
}

// Enqueue appends a change. The entry is fsynced by badger before Enqueue
// returns, so a crash right after a save never loses the write.
func (q *Queue) Enqueue(change PendingChange) error {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.EnqueuedAt.IsZero() {
		change.EnqueuedAt = time.Now()
	}

	n, err := q.seq.Next()
	if err != nil {
		return fmt.Errorf("queue sequence: %w", err)
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal pending change: %w", err)
	}

	return q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pendingKey(n), data)
	})
}

// Flush replays every pending entry in enqueue order. Entries that apply
// cleanly are deleted; failures have their retry count bumped and stay
// queued; an entry at or past the retry ceiling is skipped, not attempted
// and not deleted, so the data stays available for manual remediation.
// Only one flush runs at a time.
func (q *Queue) Flush(ctx context.Context, apply ApplyFunc) (FlushResult, error) {
	var result FlushResult

	if !q.flushing.CompareAndSwap(false, true) {
		return result, nil
	}
	defer q.flushing.Store(false)

	entries, keys, err := q.pending()
	if err != nil {
		return result, err
	}

	for i, change := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if change.RetryCount >= q.maxRetries {
			result.Skipped++
			continue
		}

		if err := apply(ctx, change); err != nil {
			change.RetryCount++
			if uerr := q.rewrite(keys[i], change); uerr != nil {
				return result, uerr
			}
			result.Failed++
			continue
		}

		if err := q.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(keys[i])
		}); err != nil {
			return result, err
		}
		result.Applied++
	}

	return result, nil
}

func (q *Queue) rewrite(key []byte, change PendingChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (q *Queue) pending() ([]PendingChange, [][]byte, error) {
	var entries []PendingChange
	var keys [][]byte

	err := q.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefixPending); it.ValidForPrefix(prefixPending); it.Next() {
			item := it.Item()
			var change PendingChange
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &change)
			}); err != nil {
				return err
			}
			entries = append(entries, change)
			keys = append(keys, item.KeyCopy(nil))
		}
		return nil
	})
	return entries, keys, err
}

// Entries returns the pending changes in replay order.
func (q *Queue) Entries() ([]PendingChange, error) {
	entries, _, err := q.pending()
	return entries, err
}

// PendingCount reports how many writes are waiting for a flush.
func (q *Queue) PendingCount() (int, error) {
	entries, _, err := q.pending()
	return len(entries), err
}

// ExhaustedCount reports how many pending writes are at or past the retry
// ceiling; these need manual remediation.
func (q *Queue) ExhaustedCount() (int, error) {
	entries, _, err := q.pending()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if e.RetryCount >= q.maxRetries {
			count++
		}
	}
	return count, nil
}
