package capsule_analyzer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// The pool must never exceed its bound, no matter how many tasks are queued.
func TestConcurrencyPool_BoundedParallelism(t *testing.T) {
	pool := NewConcurrencyPool(3)

	var current, peak, total atomic.Int64
	for i := 0; i < 20; i++ {
		pool.Run(func() {
			now := current.Add(1)
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			total.Add(1)
		})
	}

	pool.Drain()

	assert.Equal(t, int64(20), total.Load())
	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.Equal(t, 0, pool.Active())
}

func TestConcurrencyPool_FIFOOrder(t *testing.T) {
	pool := NewConcurrencyPool(1)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		pool.Run(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	pool.Drain()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestConcurrencyPool_MinimumOfOne(t *testing.T) {
	pool := NewConcurrencyPool(0)

	ran := false
	pool.Run(func() { ran = true })
	pool.Drain()

	assert.True(t, ran)
}

func TestConcurrencyPool_DrainOnEmptyPool(t *testing.T) {
	pool := NewConcurrencyPool(4)
	pool.Drain()
}
