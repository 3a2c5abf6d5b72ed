package engine

import "sync"

// Barrier is a reusable rendezvous point for a fixed number of parties.
// Wait blocks until every party has arrived, then releases all of them and
// resets for the next round. A failed worker calls Break to release every
// waiter with ErrBarrier instead of leaving the run deadlocked.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	arrived    int
	generation int
	broken     bool
}

func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Barrier) Wait() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broken {
		return ErrBarrier
	}

	gen := b.generation
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		return nil
	}

	for b.generation == gen && !b.broken {
		b.cond.Wait()
	}
	if b.broken {
		return ErrBarrier
	}
	return nil
}

func (b *Barrier) Break() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broken = true
	b.cond.Broadcast()
}
