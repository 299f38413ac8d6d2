package handler

import (
	"github.com/rs/zerolog/log"

	"github.com/helixml/droidbridge/api/pkg/controlmsg"
	"github.com/helixml/droidbridge/api/pkg/gesture"
	"github.com/helixml/droidbridge/api/pkg/input"
	"github.com/helixml/droidbridge/api/pkg/pointer"
)

// KeyMapping turns bound keys into touches or Android keys. Keys without a
// binding are passed through.
type KeyMapping struct {
	screen   *controlmsg.ScreenInfo
	pointers *pointer.Manager
	emit     gesture.Emitter

	profileName string
	bindings    map[string]*Binding
	// pressed holds the binding active for each key currently down, so a
	// release still matches after the profile was swapped.
	pressed map[string]*Binding
}

var _ Handler = &KeyMapping{}
var _ Resetter = &KeyMapping{}

func NewKeyMapping(screen *controlmsg.ScreenInfo, pointers *pointer.Manager, emit gesture.Emitter) *KeyMapping {
	return &KeyMapping{
		screen:   screen,
		pointers: pointers,
		emit:     emit,
		bindings: map[string]*Binding{},
		pressed:  map[string]*Binding{},
	}
}

func (k *KeyMapping) Name() string { return "key-mapping" }

// SetProfile swaps the active bindings. Keys still held keep their old
// binding until released.
func (k *KeyMapping) SetProfile(p *Profile) {
	bindings := make(map[string]*Binding, len(p.Bindings))
	for i := range p.Bindings {
		b := p.Bindings[i]
		bindings[b.Key] = &b
	}
	k.bindings = bindings
	k.profileName = p.Name
	log.Info().Str("profile", p.Name).Int("bindings", len(bindings)).Msg("key mapping profile loaded")
}

func (k *KeyMapping) ProfileName() string {
	return k.profileName
}

func (k *KeyMapping) CanHandle(ev input.Event) bool {
	switch ev.Kind {
	case input.KindKeyPress:
		_, ok := k.bindings[ev.Key]
		return ok
	case input.KindKeyRelease:
		_, ok := k.pressed[ev.Key]
		return ok
	}
	return false
}

func (k *KeyMapping) Handle(ev input.Event) Result {
	switch ev.Kind {
	case input.KindKeyPress:
		if _, held := k.pressed[ev.Key]; held {
			// auto repeat
			return Consumed
		}
		b, ok := k.bindings[ev.Key]
		if !ok {
			return Passthrough
		}
		k.pressed[ev.Key] = b
		k.press(b)
		return Consumed
	case input.KindKeyRelease:
		b, ok := k.pressed[ev.Key]
		if !ok {
			return Passthrough
		}
		delete(k.pressed, ev.Key)
		k.release(b)
		return Consumed
	}
	return Passthrough
}

// Reset releases every key still held.
func (k *KeyMapping) Reset() {
	for key, b := range k.pressed {
		delete(k.pressed, key)
		k.release(b)
	}
}

func (k *KeyMapping) press(b *Binding) {
	switch b.Action {
	case BindingTouch:
		id, ok := k.pointers.Allocate(b)
		if !ok {
			return
		}
		k.emit(controlmsg.NewTouchEvent(controlmsg.ActionDown, id, k.screen.Position(b.X, b.Y), 1,
			controlmsg.ButtonPrimary, controlmsg.ButtonPrimary))
	case BindingKeycode:
		k.emit(controlmsg.NewKeyEvent(controlmsg.ActionDown, b.keycode, 0, 0))
	case BindingBack:
		k.emit(controlmsg.BackOrScreenOn{Action: controlmsg.ActionDown})
	}
}

func (k *KeyMapping) release(b *Binding) {
	switch b.Action {
	case BindingTouch:
		id, ok := k.pointers.AllocatedID(b)
		if !ok {
			return
		}
		k.emit(controlmsg.NewTouchEvent(controlmsg.ActionUp, id, k.screen.Position(b.X, b.Y), 0,
			controlmsg.ButtonPrimary, 0))
		k.pointers.Release(b)
	case BindingKeycode:
		k.emit(controlmsg.NewKeyEvent(controlmsg.ActionUp, b.keycode, 0, 0))
	case BindingBack:
		k.emit(controlmsg.BackOrScreenOn{Action: controlmsg.ActionUp})
	}
}
