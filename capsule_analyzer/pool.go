package capsule_analyzer

import "sync"

// ConcurrencyPool runs submitted tasks with a hard upper bound on how many
// execute at once. Tasks beyond the bound wait in a FIFO queue and start in
// submission order.
type ConcurrencyPool struct {
	mu      sync.Mutex
	max     int
	active  int
	queue   []func()
	pending sync.WaitGroup
}

// NewConcurrencyPool creates a pool with the given maximum parallelism.
// A maximum below 1 is treated as 1.
func NewConcurrencyPool(max int) *ConcurrencyPool {
	if max < 1 {
		max = 1
	}
	return &ConcurrencyPool{max: max}
}

// Run submits a task. If a slot is free it starts immediately on its own
// goroutine, otherwise it is queued. The call never blocks; use Drain to
// wait for completion.
func (p *ConcurrencyPool) Run(task func()) {
	p.pending.Add(1)

	p.mu.Lock()
	if p.active < p.max {
		p.active++
		p.mu.Unlock()
		go p.work(task)
		return
	}
	p.queue = append(p.queue, task)
	p.mu.Unlock()
}

func (p *ConcurrencyPool) work(task func()) {
	for {
		task()
		p.pending.Done()

		p.mu.Lock()
		if len(p.queue) == 0 {
			p.active--
			p.mu.Unlock()
			return
		}
		task = p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
	}
}

// Active returns the number of tasks currently executing.
func (p *ConcurrencyPool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Drain blocks until every task submitted so far has finished.
func (p *ConcurrencyPool) Drain() {
	p.pending.Wait()
}
