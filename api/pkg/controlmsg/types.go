package controlmsg

import "math"

// Type is the one byte tag at the start of every control record.
type Type uint8

const (
	TypeInjectKeycode     Type = 0
	TypeInjectText        Type = 1 // not produced by the bridge
	TypeInjectTouchEvent  Type = 2
	TypeInjectScrollEvent Type = 3
	TypeBackOrScreenOn    Type = 4
)

func (t Type) String() string {
	switch t {
	case TypeInjectKeycode:
		return "inject_keycode"
	case TypeInjectText:
		return "inject_text"
	case TypeInjectTouchEvent:
		return "inject_touch_event"
	case TypeInjectScrollEvent:
		return "inject_scroll_event"
	case TypeBackOrScreenOn:
		return "back_or_screen_on"
	}
	return "unknown"
}

// Action mirrors Android MotionEvent / KeyEvent action codes.
type Action uint8

const (
	ActionDown      Action = 0
	ActionUp        Action = 1
	ActionMove      Action = 2
	ActionCancel    Action = 3
	ActionHoverMove Action = 7
)

func (a Action) String() string {
	switch a {
	case ActionDown:
		return "down"
	case ActionUp:
		return "up"
	case ActionMove:
		return "move"
	case ActionCancel:
		return "cancel"
	case ActionHoverMove:
		return "hover_move"
	}
	return "unknown"
}

// Button is a bitmask of Android MotionEvent buttons.
type Button uint32

const (
	ButtonPrimary   Button = 1 << 0
	ButtonSecondary Button = 1 << 1
	ButtonTertiary  Button = 1 << 2
	ButtonBack      Button = 1 << 3
	ButtonForward   Button = 1 << 4
)

// PointerID identifies one touch contact on the device side.
type PointerID uint64

// Reserved pointer ids. They are never handed out by the pointer pool.
const (
	PointerIDMouse         PointerID = math.MaxUint64
	PointerIDGenericFinger PointerID = math.MaxUint64 - 1
	PointerIDVirtualFinger PointerID = math.MaxUint64 - 2
)

// IsReserved reports whether id is one of the single purpose ids.
func (id PointerID) IsReserved() bool {
	return id == PointerIDMouse || id == PointerIDGenericFinger || id == PointerIDVirtualFinger
}

// Position is a point plus the size of the screen it was measured on.
type Position struct {
	X      int32
	Y      int32
	Width  uint16
	Height uint16
}

// Message is one control record. The set of implementations is closed.
type Message interface {
	Type() Type
	isMessage()
}

type TouchEvent struct {
	Action       Action
	PointerID    PointerID
	Position     Position
	Pressure     float32
	ActionButton Button
	Buttons      Button
}

// NewTouchEvent builds a touch record, clamping pressure to [0, 1].
func NewTouchEvent(action Action, id PointerID, pos Position, pressure float64, actionButton, buttons Button) TouchEvent {
	return TouchEvent{
		Action:       action,
		PointerID:    id,
		Position:     pos,
		Pressure:     float32(clamp(pressure, 0, 1)),
		ActionButton: actionButton,
		Buttons:      buttons,
	}
}

func (TouchEvent) Type() Type { return TypeInjectTouchEvent }
func (TouchEvent) isMessage() {}

type ScrollEvent struct {
	Position Position
	HScroll  float32
	VScroll  float32
	Buttons  Button
}

// NewScrollEvent builds a scroll record, clamping both amounts to [-1, 1].
func NewScrollEvent(pos Position, hscroll, vscroll float64, buttons Button) ScrollEvent {
	return ScrollEvent{
		Position: pos,
		HScroll:  float32(clamp(hscroll, -1, 1)),
		VScroll:  float32(clamp(vscroll, -1, 1)),
		Buttons:  buttons,
	}
}

func (ScrollEvent) Type() Type { return TypeInjectScrollEvent }
func (ScrollEvent) isMessage() {}

// KeyEvent injects an Android keycode.
type KeyEvent struct {
	Action    Action
	Keycode   uint32
	Repeat    uint32
	MetaState uint32
}

func NewKeyEvent(action Action, keycode, repeat, metaState uint32) KeyEvent {
	return KeyEvent{Action: action, Keycode: keycode, Repeat: repeat, MetaState: metaState}
}

func (KeyEvent) Type() Type { return TypeInjectKeycode }
func (KeyEvent) isMessage() {}

// BackOrScreenOn presses BACK, or wakes the screen when it is off.
type BackOrScreenOn struct {
	Action Action
}

func (BackOrScreenOn) Type() Type { return TypeBackOrScreenOn }
func (BackOrScreenOn) isMessage() {}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
