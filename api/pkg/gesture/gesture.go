// Package gesture turns raw pointer and stick samples into Android touch
// sequences. Every type in here is owned by the event loop goroutine.
package gesture

import (
	"github.com/helixml/droidbridge/api/pkg/controlmsg"
	"github.com/helixml/droidbridge/api/pkg/input"
)

// Emitter receives every synthesized control message, in order.
type Emitter func(msg controlmsg.Message)

// Anchor supplies the point a multi finger gesture is centred on.
type Anchor interface {
	Position() (x, y float64)
}

// AnchorFunc adapts a plain function to Anchor.
type AnchorFunc func() (float64, float64)

func (f AnchorFunc) Position() (float64, float64) { return f() }

// HeldButtons converts the pointer button bits of a modifier state into
// Android button flags.
func HeldButtons(state input.Modifier) controlmsg.Button {
	var buttons controlmsg.Button
	if state&input.ModButton1 != 0 {
		buttons |= controlmsg.ButtonPrimary
	}
	if state&input.ModButton2 != 0 {
		buttons |= controlmsg.ButtonTertiary
	}
	if state&input.ModButton3 != 0 {
		buttons |= controlmsg.ButtonSecondary
	}
	return buttons
}

// ActionButton maps a pressed pointer button to its Android flag.
func ActionButton(b input.Button) controlmsg.Button {
	switch b {
	case input.ButtonPrimary:
		return controlmsg.ButtonPrimary
	case input.ButtonMiddle:
		return controlmsg.ButtonTertiary
	case input.ButtonSecondary:
		return controlmsg.ButtonSecondary
	}
	return 0
}
