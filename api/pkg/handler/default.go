package handler

import (
	"github.com/helixml/droidbridge/api/pkg/gesture"
	"github.com/helixml/droidbridge/api/pkg/input"
)

// Default forwards pointer input through the mouse and zoom synthesizers.
type Default struct {
	mouse *gesture.Mouse
	zoom  *gesture.Zoom
}

var _ Handler = &Default{}
var _ Resetter = &Default{}

func NewDefault(mouse *gesture.Mouse, zoom *gesture.Zoom) *Default {
	return &Default{mouse: mouse, zoom: zoom}
}

func (d *Default) Name() string { return "default" }

func (d *Default) CanHandle(ev input.Event) bool {
	switch ev.Kind {
	case input.KindButtonPress, input.KindButtonRelease, input.KindMotion, input.KindScroll,
		input.KindPinchBegin, input.KindPinchScale, input.KindPinchEnd:
		return true
	}
	return false
}

func (d *Default) Handle(ev input.Event) Result {
	var handled bool
	switch ev.Kind {
	case input.KindMotion:
		handled = d.mouse.Motion(ev.X, ev.Y, ev.State)
	case input.KindButtonPress:
		handled = d.mouse.Button(true, ev.X, ev.Y, ev.Button, ev.State)
	case input.KindButtonRelease:
		handled = d.mouse.Button(false, ev.X, ev.Y, ev.Button, ev.State)
	case input.KindScroll:
		if ev.HasModifier(input.ModControl) {
			d.zoom.Scroll(ev.DY, ev.Unit, gesture.HeldButtons(ev.State))
			handled = true
		} else {
			handled = d.mouse.Scroll(ev.DX, ev.DY, ev.State)
		}
	case input.KindPinchBegin:
		d.zoom.PinchBegin()
		handled = true
	case input.KindPinchScale:
		d.zoom.PinchScale(ev.Scale)
		handled = true
	case input.KindPinchEnd:
		d.zoom.PinchEnd()
		handled = true
	}
	if handled {
		return Consumed
	}
	return Passthrough
}

// Reset lifts any zoom fingers still down.
func (d *Default) Reset() {
	d.zoom.Cancel()
}
