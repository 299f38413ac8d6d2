package gesture

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/helixml/droidbridge/api/pkg/controlmsg"
	"github.com/helixml/droidbridge/api/pkg/input"
	"github.com/helixml/droidbridge/api/pkg/loop"
)

const (
	DefaultZoomInInitLength  = 20
	DefaultZoomOutInitLength = 100
	DefaultZoomTimeout       = 500 * time.Millisecond

	// zoomScrollFactor converts a scroll delta into a zoom range.
	zoomScrollFactor = 0.01
	// a single wheel notch gives a range of exactly one factor; it is
	// amplified so one click produces a visible zoom step
	zoomNotchBoost = 10
)

type ZoomConfig struct {
	InInitLength  float64
	OutInitLength float64
	Timeout       time.Duration
}

func (c ZoomConfig) withDefaults() ZoomConfig {
	if c.InInitLength <= 0 {
		c.InInitLength = DefaultZoomInInitLength
	}
	if c.OutInitLength <= 0 {
		c.OutInitLength = DefaultZoomOutInitLength
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultZoomTimeout
	}
	return c
}

// Zoom emulates a two finger pinch with the reserved GENERIC_FINGER and
// VIRTUAL_FINGER ids. The fingers sit at anchor+(-L, +L) and anchor+(+L, -L)
// where L is the current length, so their offsets are always mirrored.
type Zoom struct {
	cfg    ZoomConfig
	screen *controlmsg.ScreenInfo
	sched  loop.Scheduler
	anchor Anchor
	emit   Emitter

	active    bool
	length    float64 // -1 while no fingers are down
	lastScale float64
	timer     loop.Timer
}

func NewZoom(cfg ZoomConfig, screen *controlmsg.ScreenInfo, sched loop.Scheduler, anchor Anchor, emit Emitter) *Zoom {
	return &Zoom{
		cfg:       cfg.withDefaults(),
		screen:    screen,
		sched:     sched,
		anchor:    anchor,
		emit:      emit,
		length:    -1,
		lastScale: 1,
	}
}

func (z *Zoom) Active() bool { return z.active }

// Length returns the current finger offset, or -1 when idle.
func (z *Zoom) Length() float64 { return z.length }

// Scroll handles one Ctrl+scroll sample. dy is the raw vertical delta.
func (z *Zoom) Scroll(dy float64, unit input.ScrollUnit, buttons controlmsg.Button) {
	zoomRange := -dy * zoomScrollFactor

	z.active = true
	z.armTimer()
	// a pinch may have begun without touching down yet
	if z.length < 0 {
		if zoomRange > 0 {
			z.length = z.cfg.InInitLength
		} else {
			z.length = z.cfg.OutInitLength
		}
		z.sendPair(controlmsg.ActionDown, z.length, 1, buttons)
	}

	if unit == input.ScrollUnitWheel && math.Abs(zoomRange) == zoomScrollFactor {
		zoomRange *= zoomNotchBoost
	}

	z.step(z.length+(z.cfg.InInitLength+z.cfg.OutInitLength)*zoomRange, buttons)
}

func (z *Zoom) PinchBegin() {
	z.active = true
}

// PinchScale handles a touchpad scale update; scale is cumulative since the
// gesture began, 1 meaning unchanged.
func (z *Zoom) PinchScale(scale float64) {
	z.active = true
	if z.length < 0 {
		if scale > 1 {
			z.length = z.cfg.InInitLength
		} else {
			z.length = z.cfg.OutInitLength
		}
		z.sendPair(controlmsg.ActionDown, z.length, 1, 0)
	}

	z.step(z.length+(z.cfg.InInitLength+z.cfg.OutInitLength)*(scale-z.lastScale), 0)
	z.lastScale = scale
}

func (z *Zoom) PinchEnd() {
	z.end()
}

// Cancel lifts the fingers if a gesture is in progress.
func (z *Zoom) Cancel() {
	z.end()
}

func (z *Zoom) step(next float64, buttons controlmsg.Button) {
	final := z.resetLength(next)
	if final != next {
		// lift at the old length, touch down again at the reset length
		z.sendPair(controlmsg.ActionUp, z.length, 0, buttons)
		z.sendPair(controlmsg.ActionDown, final, 1, buttons)
	}
	z.length = final
	z.sendPair(controlmsg.ActionMove, z.length, 1, buttons)
}

func (z *Zoom) resetLength(next float64) float64 {
	if next > z.cfg.OutInitLength {
		return z.cfg.InInitLength
	}
	if next < z.cfg.InInitLength {
		return z.cfg.OutInitLength
	}
	return next
}

func (z *Zoom) end() {
	z.stopTimer()
	length := z.length
	wasDown := length >= 0

	z.active = false
	z.length = -1
	z.lastScale = 1

	if wasDown {
		z.sendPair(controlmsg.ActionUp, length, 0, 0)
	}
}

func (z *Zoom) armTimer() {
	z.stopTimer()
	var timer loop.Timer
	timer = z.sched.AfterFunc(z.cfg.Timeout, func() {
		if z.timer != timer {
			return
		}
		z.timer = nil
		log.Trace().Float64("length", z.length).Msg("zoom timed out")
		z.end()
	})
	z.timer = timer
}

func (z *Zoom) stopTimer() {
	if z.timer != nil {
		z.timer.Stop()
		z.timer = nil
	}
}

func (z *Zoom) sendPair(action controlmsg.Action, length, pressure float64, buttons controlmsg.Button) {
	x, y := z.anchor.Position()
	x, y = math.Trunc(x), math.Trunc(y)
	l := math.Trunc(length)
	z.emit(controlmsg.NewTouchEvent(action, controlmsg.PointerIDGenericFinger,
		z.screen.Position(x-l, y+l), pressure, 0, buttons))
	z.emit(controlmsg.NewTouchEvent(action, controlmsg.PointerIDVirtualFinger,
		z.screen.Position(x+l, y-l), pressure, 0, buttons))
}
