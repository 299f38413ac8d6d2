package pubsub

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription is the handle returned by Subscribe. The owner must call
// Unsubscribe (or Bus.ReleaseOwner) when it is torn down.
type Subscription struct {
	ID    string
	Topic Topic

	owner   any
	handler Handler
	bus     *Bus
	active  atomic.Bool
}

// Unsubscribe invalidates the subscription. It is safe to call more than
// once, and from inside the subscription's own handler.
func (s *Subscription) Unsubscribe() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.bus.remove(s)
}

func (s *Subscription) Active() bool {
	return s.active.Load()
}

// Bus is a synchronous in-process PubSub. Emit runs handlers on the
// caller's goroutine in subscription order.
type Bus struct {
	mu   sync.Mutex
	subs map[Topic][]*Subscription
}

var _ PubSub = &Bus{}

func New() *Bus {
	return &Bus{subs: make(map[Topic][]*Subscription)}
}

func (b *Bus) Subscribe(topic Topic, owner any, handler Handler) *Subscription {
	sub := &Subscription{
		ID:      uuid.New().String(),
		Topic:   topic,
		owner:   owner,
		handler: handler,
		bus:     b,
	}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()
	return sub
}

// ReleaseOwner invalidates every subscription held by owner and returns how
// many were removed.
func (b *Bus) ReleaseOwner(owner any) int {
	b.mu.Lock()
	var released []*Subscription
	for topic, subs := range b.subs {
		kept := subs[:0:0]
		for _, sub := range subs {
			if sub.owner == owner {
				released = append(released, sub)
				continue
			}
			kept = append(kept, sub)
		}
		b.subs[topic] = kept
	}
	b.mu.Unlock()

	for _, sub := range released {
		sub.active.Store(false)
	}
	return len(released)
}

// Emit delivers to a snapshot of the subscriber list. Subscriptions
// invalidated while the snapshot is being walked are skipped.
func (b *Bus) Emit(topic Topic, source any, data any) {
	b.mu.Lock()
	snapshot := append([]*Subscription(nil), b.subs[topic]...)
	b.mu.Unlock()

	ev := Event{Topic: topic, Source: source, Data: data}
	for _, sub := range snapshot {
		if !sub.active.Load() {
			continue
		}
		sub.handler(ev)
	}
}

// Subscribers returns the number of live subscriptions on topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

func (b *Bus) remove(target *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[target.Topic]
	for i, sub := range subs {
		if sub == target {
			b.subs[target.Topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}
