package server

import (
	"context"
	"sync"
)

// DefaultQueueCapacity bounds the outbound queue when no capacity is set.
const DefaultQueueCapacity = 256

// Queue is a bounded FIFO of encoded control messages. A push onto a full
// queue discards the oldest entry, so Len never exceeds the capacity and the
// newest message is always kept. A nil entry is the stop sentinel.
type Queue struct {
	mu      sync.Mutex
	items   [][]byte
	head    int
	size    int
	dropped uint64
	// ready holds a token while the queue is non-empty.
	ready chan struct{}
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		items: make([][]byte, capacity),
		ready: make(chan struct{}, 1),
	}
}

// Push appends msg and reports whether an older message was dropped to make
// room for it.
func (q *Queue) Push(msg []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := false
	if q.size == len(q.items) {
		q.items[q.head] = nil
		q.head = (q.head + 1) % len(q.items)
		q.size--
		q.dropped++
		dropped = true
	}
	q.items[(q.head+q.size)%len(q.items)] = msg
	q.size++
	q.signal()
	return dropped
}

// Pop blocks until a message is available or ctx is done.
func (q *Queue) Pop(ctx context.Context) ([]byte, error) {
	for {
		if msg, ok := q.TryPop(); ok {
			return msg, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.ready:
		}
	}
}

// TryPop returns the oldest message without blocking.
func (q *Queue) TryPop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return nil, false
	}
	msg := q.items[q.head]
	q.items[q.head] = nil
	q.head = (q.head + 1) % len(q.items)
	q.size--
	if q.size > 0 {
		q.signal()
	}
	return msg, true
}

// Requeue puts msg back at the front, used when a write failed before any
// byte of it went out. It is dropped if the queue filled up meanwhile.
func (q *Queue) Requeue(msg []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.items) {
		q.dropped++
		return
	}
	q.head = (q.head - 1 + len(q.items)) % len(q.items)
	q.items[q.head] = msg
	q.size++
	q.signal()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *Queue) Cap() int {
	return len(q.items)
}

// Dropped is the number of messages discarded on overflow so far.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Drain removes every queued message, including sentinels.
func (q *Queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.size
	for i := range q.items {
		q.items[i] = nil
	}
	q.head, q.size = 0, 0
	select {
	case <-q.ready:
	default:
	}
	return n
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
