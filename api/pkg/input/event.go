package input

import "fmt"

// Kind identifies a raw input event coming from the windowing layer or a
// remote input source.
type Kind int

const (
	KindButtonPress Kind = iota + 1
	KindButtonRelease
	KindMotion
	KindScroll
	KindPinchBegin
	KindPinchScale
	KindPinchEnd
	KindKeyPress
	KindKeyRelease
)

func (k Kind) String() string {
	switch k {
	case KindButtonPress:
		return "button-press"
	case KindButtonRelease:
		return "button-release"
	case KindMotion:
		return "motion"
	case KindScroll:
		return "scroll"
	case KindPinchBegin:
		return "pinch-begin"
	case KindPinchScale:
		return "pinch-scale"
	case KindPinchEnd:
		return "pinch-end"
	case KindKeyPress:
		return "key-press"
	case KindKeyRelease:
		return "key-release"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Button numbers follow X11/GDK: 1 left, 2 middle, 3 right.
type Button int

const (
	ButtonNone      Button = 0
	ButtonPrimary   Button = 1
	ButtonMiddle    Button = 2
	ButtonSecondary Button = 3
)

// Modifier is a bitmask of held keyboard modifiers and mouse buttons.
type Modifier uint32

const (
	ModShift   Modifier = 1 << 0
	ModControl Modifier = 1 << 2
	ModAlt     Modifier = 1 << 3
	ModSuper   Modifier = 1 << 26

	ModButton1 Modifier = 1 << 8
	ModButton2 Modifier = 1 << 9
	ModButton3 Modifier = 1 << 10

	ModButtonMask = ModButton1 | ModButton2 | ModButton3
)

// ScrollUnit tells discrete wheel notches from smooth touchpad deltas.
type ScrollUnit int

const (
	ScrollUnitWheel ScrollUnit = iota
	ScrollUnitSurface
)

// Event is one raw input sample. Only the fields relevant to Kind are set.
type Event struct {
	Kind  Kind
	X     float64
	Y     float64
	State Modifier

	Button Button

	DX   float64
	DY   float64
	Unit ScrollUnit

	Scale float64

	// Key is a lower case key name, e.g. "w", "space", "escape".
	Key     string
	Keycode uint32
}

func (e Event) HasModifier(m Modifier) bool {
	return e.State&m != 0
}

// ButtonModifier returns the state bit for a held mouse button.
func ButtonModifier(b Button) Modifier {
	switch b {
	case ButtonPrimary:
		return ModButton1
	case ButtonMiddle:
		return ModButton2
	case ButtonSecondary:
		return ModButton3
	}
	return 0
}
