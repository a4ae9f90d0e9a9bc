package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T, maxRetries int) *Queue {
	t.Helper()
	q, err := OpenInMemoryQueue(maxRetries)
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func scorePayload(t *testing.T, outcomeID string, value int) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{"outcome_id": outcomeID, "value": value})
	require.NoError(t, err)
	return data
}

func TestFlushReplaysInEnqueueOrder(t *testing.T) {
	q := newTestQueue(t, 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(PendingChange{
			Kind:    KindScore,
			Action:  ActionUpsert,
			Payload: scorePayload(t, fmt.Sprintf("o-%d", i), i),
		}))
	}

	var seen []string
	result, err := q.Flush(context.Background(), func(_ context.Context, change PendingChange) error {
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(change.Payload, &body))
		seen = append(seen, body["outcome_id"].(string))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Applied)
	assert.Equal(t, []string{"o-0", "o-1", "o-2", "o-3", "o-4"}, seen)

	pending, err := q.PendingCount()
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestReplayConvergesOnIdempotentStore(t *testing.T) {
	q := newTestQueue(t, 3)

	// Two saves against the same outcome while offline; the natural key makes
	// the second one win regardless of how often the batch is replayed.
	require.NoError(t, q.Enqueue(PendingChange{Kind: KindScore, Action: ActionUpsert, Payload: scorePayload(t, "o-1", 70)}))
	require.NoError(t, q.Enqueue(PendingChange{Kind: KindScore, Action: ActionUpsert, Payload: scorePayload(t, "o-1", 85)}))
	require.NoError(t, q.Enqueue(PendingChange{Kind: KindScore, Action: ActionUpsert, Payload: scorePayload(t, "o-2", 50)}))

	store := map[string]int{}
	apply := func(_ context.Context, change PendingChange) error {
		var body map[string]interface{}
		if err := json.Unmarshal(change.Payload, &body); err != nil {
			return err
		}
		store[body["outcome_id"].(string)] = int(body["value"].(float64))
		return nil
	}

	_, err := q.Flush(context.Background(), apply)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"o-1": 85, "o-2": 50}, store)
	assert.Len(t, store, 2, "upsert key prevents duplicate rows")
}

func TestFailedEntryStaysQueued(t *testing.T) {
	q := newTestQueue(t, 3)

	require.NoError(t, q.Enqueue(PendingChange{Kind: KindScore, Action: ActionUpsert, Payload: scorePayload(t, "o-1", 70)}))
	require.NoError(t, q.Enqueue(PendingChange{Kind: KindScore, Action: ActionUpsert, Payload: scorePayload(t, "o-2", 50)}))

	failFirst := func(_ context.Context, change PendingChange) error {
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(change.Payload, &body))
		if body["outcome_id"] == "o-1" {
			return errors.New("server unreachable")
		}
		return nil
	}

	result, err := q.Flush(context.Background(), failFirst)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 1, result.Failed)

	entries, err := q.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].RetryCount)
}

func TestExhaustedEntryIsSkippedNotDeleted(t *testing.T) {
	q := newTestQueue(t, 3)
	require.NoError(t, q.Enqueue(PendingChange{Kind: KindScore, Action: ActionUpsert, Payload: scorePayload(t, "o-1", 70)}))

	alwaysFail := func(context.Context, PendingChange) error {
		return errors.New("still down")
	}

	for i := 0; i < 3; i++ {
		result, err := q.Flush(context.Background(), alwaysFail)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
	}

	// At the ceiling the entry is skipped without another attempt, and the
	// one behind it still goes through.
	require.NoError(t, q.Enqueue(PendingChange{Kind: KindScore, Action: ActionUpsert, Payload: scorePayload(t, "o-2", 50)}))
	attempts := 0
	result, err := q.Flush(context.Background(), func(_ context.Context, change PendingChange) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 1, attempts, "the exhausted entry was not re-attempted")

	entries, err := q.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1, "the exhausted entry is retained for remediation")
	assert.Equal(t, 3, entries[0].RetryCount)

	exhausted, err := q.ExhaustedCount()
	require.NoError(t, err)
	assert.Equal(t, 1, exhausted)
}

func TestQueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	q, err := OpenQueue(dir, 3)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(PendingChange{Kind: KindOverall, Action: ActionUpsert, Payload: json.RawMessage(`{"summary":"good"}`)}))
	require.NoError(t, q.Close())

	reopened, err := OpenQueue(dir, 3)
	require.NoError(t, err)
	defer reopened.Close()

	pending, err := reopened.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, pending, "pending writes outlive the process")
}

func TestConcurrentFlushIsANoop(t *testing.T) {
	q := newTestQueue(t, 3)
	require.NoError(t, q.Enqueue(PendingChange{Kind: KindScore, Action: ActionUpsert, Payload: scorePayload(t, "o-1", 70)}))

	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := q.Flush(context.Background(), func(context.Context, PendingChange) error {
			close(started)
			<-release
			return nil
		})
		assert.NoError(t, err)
	}()

	<-started
	// Second flush while the first is mid-entry: must not replay anything.
	result, err := q.Flush(context.Background(), func(context.Context, PendingChange) error {
		t.Fatal("overlapping flush replayed an entry")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, result.Applied)

	close(release)
	wg.Wait()
}

func TestFlushHonorsContext(t *testing.T) {
	q := newTestQueue(t, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(PendingChange{Kind: KindScore, Action: ActionUpsert, Payload: scorePayload(t, fmt.Sprintf("o-%d", i), i)}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	applied := 0
	_, err := q.Flush(ctx, func(context.Context, PendingChange) error {
		applied++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, applied)
}

func TestEnqueueDefaults(t *testing.T) {
	q := newTestQueue(t, 3)
	require.NoError(t, q.Enqueue(PendingChange{Kind: KindScore, Action: ActionUpsert, Payload: scorePayload(t, "o-1", 1)}))

	entries, err := q.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.WithinDuration(t, time.Now(), entries[0].EnqueuedAt, time.Minute)
}
