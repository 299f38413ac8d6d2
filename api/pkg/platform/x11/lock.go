// Package x11 implements pointer lock for X11 sessions by grabbing the
// pointer on a private connection and turning absolute motion into deltas.
package x11

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/helixml/droidbridge/api/pkg/loop"
	"github.com/helixml/droidbridge/api/pkg/platform"
)

type Mode int

const (
	// ModeWarp warps the pointer back to the anchor after every motion and
	// reports the offset from the anchor. The motion caused by the warp is
	// ignored.
	ModeWarp Mode = iota
	// ModeEventPoll reports the difference between successive positions and
	// only re-anchors when the pointer drifts past the warp threshold.
	ModeEventPoll
)

func (m Mode) String() string {
	switch m {
	case ModeWarp:
		return "warp"
	case ModeEventPoll:
		return "event-poll"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "warp":
		return ModeWarp, nil
	case "event-poll", "poll":
		return ModeEventPoll, nil
	}
	return 0, fmt.Errorf("unknown pointer lock mode %q", s)
}

const (
	DefaultJoinTimeout   = 100 * time.Millisecond
	DefaultWarpThreshold = 50
)

type Config struct {
	// Display is the X display name, DISPLAY when empty.
	Display string
	// Window is the X window the pointer is confined to.
	Window uint32
	Mode   Mode
	// Scale is the HiDPI factor between physical and logical pixels.
	Scale         float64
	JoinTimeout   time.Duration
	WarpThreshold float64
}

func (c Config) withDefaults() Config {
	if c.Scale <= 0 {
		c.Scale = 1
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = DefaultJoinTimeout
	}
	if c.WarpThreshold <= 0 {
		c.WarpThreshold = DefaultWarpThreshold
	}
	return c
}

// PointerLock grabs the pointer for Config.Window. Motion is read on a
// capture goroutine and the deltas are posted to the loop, where the
// relative motion callback runs.
type PointerLock struct {
	cfg   Config
	sched loop.Scheduler
	dial  func(name string) (display, error)

	mu       sync.Mutex
	disp     display
	locked   bool
	callback platform.RelativeMotionFunc
	done     chan struct{}
	// generation invalidates deltas still queued on the loop from a
	// previous lock.
	generation uint64
}

var _ platform.PointerLock = &PointerLock{}

func New(cfg Config, sched loop.Scheduler) *PointerLock {
	return &PointerLock{
		cfg:   cfg.withDefaults(),
		sched: sched,
		dial:  dialXGB,
	}
}

func (p *PointerLock) SetRelativeMotionCallback(fn platform.RelativeMotionFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callback = fn
}

func (p *PointerLock) IsLocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locked
}

// Lock grabs the pointer, anchored at its current position or the window
// centre when that cannot be read. Locking twice re-grabs.
func (p *PointerLock) Lock() error {
	if p.IsLocked() {
		if err := p.Unlock(); err != nil {
			return err
		}
	}
	if p.cfg.Window == 0 {
		return errors.New("x11: no window to lock the pointer to")
	}

	disp, err := p.dial(p.cfg.Display)
	if err != nil {
		return err
	}

	anchor, err := disp.QueryPointer(p.cfg.Window)
	if err != nil {
		w, h, gerr := disp.WindowSize(p.cfg.Window)
		if gerr != nil {
			_ = disp.Close()
			return fmt.Errorf("failed to find pointer anchor: %w", errors.Join(err, gerr))
		}
		anchor = Motion{X: int16(w / 2), Y: int16(h / 2)}
		log.Warn().Err(err).Int16("x", anchor.X).Int16("y", anchor.Y).Msg("using window centre as pointer anchor")
	}

	if err := disp.GrabPointer(p.cfg.Window); err != nil {
		_ = disp.Close()
		return err
	}

	p.mu.Lock()
	p.disp = disp
	p.locked = true
	p.generation++
	generation := p.generation
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go p.capture(disp, newTracker(p.cfg, anchor), generation, done)

	log.Debug().
		Uint32("window", p.cfg.Window).
		Stringer("mode", p.cfg.Mode).
		Float64("scale", p.cfg.Scale).
		Int16("anchor_x", anchor.X).
		Int16("anchor_y", anchor.Y).
		Msg("x11 pointer locked")
	return nil
}

// Unlock releases the grab and waits briefly for the capture goroutine. If
// it does not exit in time it is abandoned; it stops on its own once the
// connection is gone.
func (p *PointerLock) Unlock() error {
	p.mu.Lock()
	if !p.locked {
		p.mu.Unlock()
		return nil
	}
	p.locked = false
	disp := p.disp
	done := p.done
	p.disp = nil
	p.mu.Unlock()

	var err error
	if uerr := disp.UngrabPointer(); uerr != nil {
		err = fmt.Errorf("failed to ungrab pointer: %w", uerr)
	}
	_ = disp.Close()

	select {
	case <-done:
	case <-time.After(p.cfg.JoinTimeout):
		log.Warn().Dur("timeout", p.cfg.JoinTimeout).Msg("x11 capture goroutine did not exit in time")
	}

	log.Debug().Msg("x11 pointer unlocked")
	return err
}

func (p *PointerLock) capture(disp display, t *tracker, generation uint64, done chan struct{}) {
	defer close(done)
	for {
		m, err := disp.NextMotion()
		if err != nil {
			if !errors.Is(err, io.EOF) && p.current(generation) {
				log.Warn().Err(err).Msg("x11 pointer capture stopped")
			}
			return
		}
		if !p.current(generation) {
			return
		}
		dx, dy, ok := t.motion(disp, m)
		if !ok {
			continue
		}
		p.sched.Post(func() {
			p.deliver(generation, dx, dy)
		})
	}
}

// tracker turns absolute positions from one grab into logical deltas. It is
// owned by that grab's capture goroutine.
type tracker struct {
	mode      Mode
	window    uint32
	scale     float64
	threshold float64

	anchor     Motion
	last       Motion
	ignoreNext bool
}

func newTracker(cfg Config, anchor Motion) *tracker {
	return &tracker{
		mode:      cfg.Mode,
		window:    cfg.Window,
		scale:     cfg.Scale,
		threshold: cfg.WarpThreshold * cfg.Scale,
		anchor:    anchor,
		last:      anchor,
	}
}

// motion returns the delta for m. ok is false when the sample is skipped.
func (t *tracker) motion(disp display, m Motion) (dx, dy float64, ok bool) {
	if t.mode == ModeEventPoll {
		if absDiff(m.X, t.anchor.X) > t.threshold || absDiff(m.Y, t.anchor.Y) > t.threshold {
			if err := disp.WarpPointer(t.window, t.anchor.X, t.anchor.Y); err != nil {
				log.Warn().Err(err).Msg("failed to re-anchor pointer")
			}
			t.last = t.anchor
			return 0, 0, false
		}
		dx, dy = float64(m.X-t.last.X), float64(m.Y-t.last.Y)
		t.last = m
		if dx == 0 && dy == 0 {
			return 0, 0, false
		}
		return dx / t.scale, dy / t.scale, true
	}

	if t.ignoreNext {
		// generated by our own warp
		t.ignoreNext = false
		return 0, 0, false
	}
	if m == t.anchor {
		return 0, 0, false
	}
	dx, dy = float64(m.X-t.anchor.X), float64(m.Y-t.anchor.Y)
	if err := disp.WarpPointer(t.window, t.anchor.X, t.anchor.Y); err != nil {
		log.Warn().Err(err).Msg("failed to warp pointer to anchor")
	} else {
		t.ignoreNext = true
	}
	return dx / t.scale, dy / t.scale, true
}

func (p *PointerLock) current(generation uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locked && p.generation == generation
}

func (p *PointerLock) deliver(generation uint64, dx, dy float64) {
	p.mu.Lock()
	fn := p.callback
	live := p.locked && p.generation == generation
	p.mu.Unlock()

	if live && fn != nil {
		fn(dx, dy, dx, dy)
	}
}

func absDiff(a, b int16) float64 {
	d := float64(a) - float64(b)
	if d < 0 {
		return -d
	}
	return d
}
