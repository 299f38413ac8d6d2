package gesture

import (
	"math"

	"github.com/helixml/droidbridge/api/pkg/controlmsg"
	"github.com/helixml/droidbridge/api/pkg/input"
)

const (
	// wheelScrollFactor applies when a delta is a whole number of notches,
	// surfaceScrollFactor to smooth touchpad deltas.
	wheelScrollFactor   = 0.0625
	surfaceScrollFactor = 0.005
)

type MouseConfig struct {
	NaturalScroll bool
	// Hover forwards motion with no button held as HOVER_MOVE.
	Hover bool
}

// Mouse maps the physical pointer onto the reserved MOUSE pointer id.
type Mouse struct {
	cfg    MouseConfig
	screen *controlmsg.ScreenInfo
	emit   Emitter

	x, y float64
}

var _ Anchor = &Mouse{}

func NewMouse(cfg MouseConfig, screen *controlmsg.ScreenInfo, emit Emitter) *Mouse {
	return &Mouse{cfg: cfg, screen: screen, emit: emit}
}

// Position is the last pointer position seen by Motion.
func (m *Mouse) Position() (float64, float64) {
	return m.x, m.y
}

func (m *Mouse) SetConfig(cfg MouseConfig) {
	m.cfg = cfg
}

// Motion reports whether a message was emitted.
func (m *Mouse) Motion(x, y float64, state input.Modifier) bool {
	m.x = math.Max(0, x)
	m.y = math.Max(0, y)

	buttons := HeldButtons(state)
	if buttons == 0 && !m.cfg.Hover {
		return false
	}
	action := controlmsg.ActionMove
	if buttons == 0 {
		action = controlmsg.ActionHoverMove
	}
	m.emit(controlmsg.NewTouchEvent(action, controlmsg.PointerIDMouse,
		m.screen.Position(m.x, m.y), 1, 0, buttons))
	return true
}

// Button handles a press or release. state is the modifier state carried by
// the event, which does not yet include a button being pressed and still
// includes a button being released.
func (m *Mouse) Button(pressed bool, x, y float64, button input.Button, state input.Modifier) bool {
	action := controlmsg.ActionUp
	pressure := 0.0
	if pressed {
		action = controlmsg.ActionDown
		pressure = 1
	}
	actionButton := ActionButton(button)
	buttons := HeldButtons(state) ^ actionButton

	m.emit(controlmsg.NewTouchEvent(action, controlmsg.PointerIDMouse,
		m.screen.Position(x, y), pressure, actionButton, buttons))
	return true
}

// Scroll forwards a plain (non zoom) scroll at the last pointer position.
func (m *Mouse) Scroll(dx, dy float64, state input.Modifier) bool {
	if dx == 0 && dy == 0 {
		return false
	}
	if m.cfg.NaturalScroll {
		dx, dy = -dx, -dy
	}

	factor := surfaceScrollFactor
	if isWholeNonZero(dx) || isWholeNonZero(dy) {
		factor = wheelScrollFactor
	}

	pos := m.screen.Position(math.Round(m.x), math.Round(m.y))
	m.emit(controlmsg.NewScrollEvent(pos, dx*factor, dy*factor, HeldButtons(state)))
	return true
}

func isWholeNonZero(v float64) bool {
	return v != 0 && v == math.Trunc(v)
}
