package gesture

import (
	"errors"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/helixml/droidbridge/api/pkg/controlmsg"
	"github.com/helixml/droidbridge/api/pkg/pointer"
)

const DefaultDeadzone = 0.15

var ErrInvalidAxisRange = errors.New("gesture: axis minimum equals maximum")

// NormalizeAxis maps a raw axis value into [-1, 1] using the range the
// device reports.
func NormalizeAxis(value, minimum, maximum int32) (float64, error) {
	if maximum == minimum {
		return 0, ErrInvalidAxisRange
	}
	return (float64(value-minimum)/float64(maximum-minimum))*2 - 1, nil
}

// Rect is an on screen area in host pixels.
type Rect struct {
	X, Y, Width, Height float64
}

func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

type StickConfig struct {
	Area     Rect
	Deadzone float64
	// RadiusFactor scales how far from the centre a full deflection reaches.
	RadiusFactor float64
}

// Stick turns an analog stick into a single finger held down at the centre
// of Area and dragged towards the deflection.
type Stick struct {
	cfg      StickConfig
	screen   *controlmsg.ScreenInfo
	pointers *pointer.Manager
	emit     Emitter

	active bool
	posX   float64
	posY   float64
}

func NewStick(cfg StickConfig, screen *controlmsg.ScreenInfo, pointers *pointer.Manager, emit Emitter) *Stick {
	if cfg.Deadzone <= 0 {
		cfg.Deadzone = DefaultDeadzone
	}
	if cfg.RadiusFactor <= 0 {
		cfg.RadiusFactor = 1
	}
	s := &Stick{cfg: cfg, screen: screen, pointers: pointers, emit: emit}
	s.posX, s.posY = cfg.Area.Center()
	return s
}

func (s *Stick) Active() bool { return s.active }

// Position is the current finger position, the centre when idle.
func (s *Stick) Position() (float64, float64) {
	return s.posX, s.posY
}

func (s *Stick) SetRadiusFactor(f float64) {
	if f <= 0 {
		return
	}
	s.cfg.RadiusFactor = f
}

func (s *Stick) RadiusFactor() float64 {
	return s.cfg.RadiusFactor
}

// Update feeds one normalized sample.
func (s *Stick) Update(x, y float64) {
	dist := math.Hypot(x, y)
	cx, cy := s.cfg.Area.Center()

	if dist < s.cfg.Deadzone {
		if s.active {
			s.active = false
			s.send(controlmsg.ActionUp, s.posX, s.posY)
			s.pointers.Release(s)
			s.posX, s.posY = cx, cy
		}
		return
	}

	if dist > 1 {
		x, y = x/dist, y/dist
	}
	targetX := cx + x*(s.cfg.Area.Width/2)*s.cfg.RadiusFactor
	targetY := cy + y*(s.cfg.Area.Height/2)*s.cfg.RadiusFactor

	if !s.active {
		if _, ok := s.pointers.Allocate(s); !ok {
			log.Debug().Msg("stick gesture suppressed, no free pointer")
			return
		}
		s.active = true
		s.send(controlmsg.ActionDown, cx, cy)
	}

	s.posX, s.posY = targetX, targetY
	s.send(controlmsg.ActionMove, targetX, targetY)
}

// Release lifts the finger if the stick is deflected, e.g. when the device
// goes away.
func (s *Stick) Release() {
	s.Update(0, 0)
}

func (s *Stick) send(action controlmsg.Action, x, y float64) {
	id, ok := s.pointers.AllocatedID(s)
	if !ok {
		return
	}
	s.emit(controlmsg.NewTouchEvent(action, id, s.screen.Position(x, y), 1,
		controlmsg.ButtonPrimary, controlmsg.ButtonPrimary))
}
