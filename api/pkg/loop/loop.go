package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("loop: stopped")

// Scheduler is the event loop facility the gesture code depends on.
type Scheduler interface {
	// Post queues fn to run on the loop goroutine. It never blocks.
	Post(fn func()) bool
	// AfterFunc runs fn on the loop goroutine once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

type Timer interface {
	// Stop prevents fn from running. It reports whether the timer was
	// still pending.
	Stop() bool
}

// Loop runs posted closures one at a time on a single goroutine. It owns
// everything that is not safe for concurrent use: the bus, the handler chain
// and the gesture state machines.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	running atomic.Bool
}

var _ Scheduler = &Loop{}

func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do posts fn and waits until it has run.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.fired.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return t
}

// Run executes posted closures until ctx is cancelled. Closures still queued
// at that point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("loop: already running")
	}
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return nil
			}
			l.run(fn)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered panic on event loop")
		}
	}()
	fn()
}

type loopTimer struct {
	timer *time.Timer
	fired atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.timer.Stop()
	return t.fired.CompareAndSwap(false, true)
}
