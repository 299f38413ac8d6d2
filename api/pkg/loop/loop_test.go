package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	var wg conc.WaitGroup
	wg.Go(func() {
		_ = l.Run(ctx)
	})
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return l, cancel
}

func TestLoopRunsPostedInOrder(t *testing.T) {
	l, _ := startLoop(t)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Do(context.Background(), func() {}))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoopPostFromManyGoroutines(t *testing.T) {
	l, _ := startLoop(t)

	var count int
	var wg conc.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Go(func() {
			for j := 0; j < 50; j++ {
				l.Post(func() { count++ })
			}
		})
	}
	wg.Wait()
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Equal(t, 400, count)
}

func TestLoopAfterFunc(t *testing.T) {
	l, _ := startLoop(t)

	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestLoopTimerStop(t *testing.T) {
	l, _ := startLoop(t)

	var fired atomic.Bool
	timer := l.AfterFunc(20*time.Millisecond, func() { fired.Store(true) })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.False(t, fired.Load())
}

func TestLoopPostAfterStop(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
}

func TestLoopRecoversPanics(t *testing.T) {
	l, _ := startLoop(t)
	l.Post(func() { panic("boom") })

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestManualScheduler(t *testing.T) {
	m := NewManual()

	var order []string
	m.AfterFunc(200*time.Millisecond, func() { order = append(order, "late") })
	stopped := m.AfterFunc(50*time.Millisecond, func() { order = append(order, "stopped") })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, "early") })

	assert.True(t, stopped.Stop())
	assert.Equal(t, 2, m.Pending())

	m.Advance(150 * time.Millisecond)
	assert.Equal(t, []string{"early"}, order)

	m.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"early", "late"}, order)
	assert.Equal(t, 0, m.Pending())

	ran := false
	m.Post(func() { ran = true })
	assert.True(t, ran)
}
