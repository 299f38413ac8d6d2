package loop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by hand. Posted closures run immediately on
// the caller's goroutine and timers fire only from Advance. It is meant for
// tests and for replaying recorded input.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

var _ Scheduler = &Manual{}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Post(fn func()) bool {
	fn()
	return true
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, fn: fn, owner: m}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward and fires every timer that became due, in
// deadline order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	now := m.now
	var due []*manualTimer
	var pending []*manualTimer
	for _, t := range m.timers {
		if t.at <= now {
			due = append(due, t)
		} else {
			pending = append(pending, t)
		}
	}
	m.timers = pending
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].seq < due[j].seq
		}
		return due[i].at < due[j].at
	})
	for _, t := range due {
		t.fn()
	}
}

// Pending returns the number of armed timers.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

type manualTimer struct {
	at    time.Duration
	seq   int
	fn    func()
	owner *Manual
}

func (t *manualTimer) Stop() bool {
	m := t.owner
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}
