package syncclient

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.CancelAll()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Do("scores/s-1", func() { calls.Add(1) })
	}

	assert.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 5*time.Millisecond, "a burst collapses to one trailing call")

	// Give a stray second fire time to show up.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.CancelAll()

	var calls atomic.Int32
	d.Do("scores/s-1", func() { calls.Add(1) })
	d.Do("scores/s-2", func() { calls.Add(1) })

	assert.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.CancelAll()

	var calls atomic.Int32
	d.Do("scores/s-1", func() { calls.Add(1) })
	d.Cancel("scores/s-1")

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())
	assert.Zero(t, d.Pending())
}

func TestDebouncerCancelAllRefusesNewWork(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	var calls atomic.Int32
	d.Do("a", func() { calls.Add(1) })
	d.CancelAll()
	d.Do("b", func() { calls.Add(1) })

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, calls.Load())
	assert.Zero(t, d.Pending())
}
