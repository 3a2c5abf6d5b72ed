package engine

import "sync"

// mailbox is an unbounded, multi-producer message queue. Senders enqueue
// before a barrier, the owner drains after it; Drain never blocks and
// returns only what is already queued, so "everything relevant has arrived"
// is guaranteed by the barrier, not by the mailbox.
//
// A bounded channel would deadlock here: every partition must finish all its
// sends before any partition starts receiving, so the queue has to grow with
// the message volume of a step.
type mailbox[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{}
}

func (m *mailbox[T]) Send(msg T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.queue = append(m.queue, msg)
	return nil
}

// Drain removes and returns all currently queued messages.
func (m *mailbox[T]) Drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.queue
	m.queue = nil
	return out
}

// Close marks the mailbox terminated. Subsequent sends fail with ErrClosed,
// which callers treat as a fatal communication failure.
func (m *mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.queue = nil
}
