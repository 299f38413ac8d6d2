// Package wsinput accepts raw input over a WebSocket and feeds it to the
// event loop as input events.
//
// Frames are binary. The first byte is the frame type:
//
//	0x01 key       [subType][isDown][modifiers][evdev keycode:2 BE]
//	0x02 button    [subType=2][isDown][button]
//	               [subType=3][dx f32 LE][dy f32 LE]   high resolution wheel, 1.0 per notch
//	               [subType=4][dx int8][dy int8]       wheel notches
//	0x03 absolute  [subType][x:2 BE][y:2 BE][refWidth:2 BE][refHeight:2 BE]
//	0x04 relative  [subType][dx:2 BE][dy:2 BE]
//	0x05 scroll    [deltaMode][flags][dx f32 LE][dy f32 LE]
//	0x06 touch     ignored
//	0x07 pinch     [phase][scale f32 LE]
//
// The modifiers byte carries bit 0 shift, bit 1 control, bit 2 alt and bit 3
// super. Bit 0 of the scroll flags marks a trackpad.
package wsinput

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/holoplot/go-evdev"
	"github.com/rs/zerolog/log"

	"github.com/helixml/droidbridge/api/pkg/controlmsg"
	"github.com/helixml/droidbridge/api/pkg/input"
)

const (
	FrameKey         byte = 0x01
	FrameButton      byte = 0x02
	FrameAbsolute    byte = 0x03
	FrameRelative    byte = 0x04
	FrameScroll      byte = 0x05
	FrameTouch       byte = 0x06
	FramePinch       byte = 0x07
	buttonSubClick   byte = 2
	buttonSubHiRes   byte = 3
	buttonSubNotches byte = 4
)

const (
	DeltaModePixel byte = 0
	DeltaModeLine  byte = 1
	DeltaModePage  byte = 2

	scrollFlagTrackpad byte = 1 << 0

	// browsers report roughly 100 pixels or 3 lines per wheel notch
	pixelsPerNotch = 100.0
	linesPerNotch  = 3.0
)

const (
	PinchBegin byte = 0
	PinchScale byte = 1
	PinchEnd   byte = 2
)

var (
	ErrEmptyFrame   = errors.New("wsinput: empty frame")
	ErrShortFrame   = errors.New("wsinput: frame too short")
	ErrUnknownFrame = errors.New("wsinput: unknown frame type")
)

// Decoder turns frames from one connection into input events. It tracks the
// pointer position, the held buttons and the keyboard modifiers of that
// connection. A Decoder is not safe for concurrent use.
type Decoder struct {
	screen  *controlmsg.ScreenInfo
	x, y    float64
	mods    input.Modifier
	buttons input.Modifier
	keys    map[evdev.EvCode]bool
}

func NewDecoder(screen *controlmsg.ScreenInfo) *Decoder {
	return &Decoder{screen: screen, keys: map[evdev.EvCode]bool{}}
}

// Release returns release events for every key and button still held, as if
// the peer had let go of everything. The decoder state is cleared.
func (d *Decoder) Release() []input.Event {
	var events []input.Event
	for code := range d.keys {
		events = append(events, input.Event{
			Kind: input.KindKeyRelease, X: d.x, Y: d.y, State: d.State(),
			Key: KeyName(code), Keycode: uint32(code),
		})
	}
	clear(d.keys)
	for _, b := range []input.Button{input.ButtonPrimary, input.ButtonMiddle, input.ButtonSecondary} {
		bit := input.ButtonModifier(b)
		if d.buttons&bit == 0 {
			continue
		}
		events = append(events, input.Event{Kind: input.KindButtonRelease, X: d.x, Y: d.y, State: d.State(), Button: b})
		d.buttons &^= bit
	}
	d.mods = 0
	return events
}

// State returns the modifier and button state events are stamped with.
func (d *Decoder) State() input.Modifier {
	return d.mods | d.buttons
}

// Decode returns the events carried by frame. Frames that carry nothing the
// bridge understands yield no events and no error.
func (d *Decoder) Decode(frame []byte) ([]input.Event, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}
	body := frame[1:]
	switch frame[0] {
	case FrameKey:
		return d.key(body)
	case FrameButton:
		return d.button(body)
	case FrameAbsolute:
		return d.absolute(body)
	case FrameRelative:
		return d.relative(body)
	case FrameScroll:
		return d.scroll(body)
	case FrameTouch:
		log.Trace().Msg("ignoring touch frame")
		return nil, nil
	case FramePinch:
		return d.pinch(body)
	}
	return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownFrame, frame[0])
}

func need(body []byte, n int, what string) error {
	if len(body) < n {
		return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortFrame, what, n, len(body))
	}
	return nil
}

func (d *Decoder) key(body []byte) ([]input.Event, error) {
	if err := need(body, 5, "key"); err != nil {
		return nil, err
	}
	isDown := body[1] != 0
	d.mods = modifiersFromWire(body[2])
	code := evdev.EvCode(binary.BigEndian.Uint16(body[3:5]))

	kind := input.KindKeyRelease
	if isDown {
		kind = input.KindKeyPress
		d.keys[code] = true
	} else {
		delete(d.keys, code)
	}
	return []input.Event{{
		Kind:    kind,
		X:       d.x,
		Y:       d.y,
		State:   d.State(),
		Key:     KeyName(code),
		Keycode: uint32(code),
	}}, nil
}

func (d *Decoder) button(body []byte) ([]input.Event, error) {
	if err := need(body, 1, "button"); err != nil {
		return nil, err
	}
	switch body[0] {
	case buttonSubClick:
		if err := need(body, 3, "button click"); err != nil {
			return nil, err
		}
		button := input.Button(body[2])
		bit := input.ButtonModifier(button)
		if bit == 0 {
			log.Debug().Uint8("button", body[2]).Msg("ignoring unknown mouse button")
			return nil, nil
		}
		ev := input.Event{Kind: input.KindButtonRelease, X: d.x, Y: d.y, State: d.State(), Button: button}
		if body[1] != 0 {
			ev.Kind = input.KindButtonPress
			d.buttons |= bit
		} else {
			d.buttons &^= bit
		}
		return []input.Event{ev}, nil
	case buttonSubHiRes:
		if err := need(body, 9, "wheel"); err != nil {
			return nil, err
		}
		dx := float64(math.Float32frombits(binary.LittleEndian.Uint32(body[1:5])))
		dy := float64(math.Float32frombits(binary.LittleEndian.Uint32(body[5:9])))
		return d.scrollEvent(dx, dy, input.ScrollUnitWheel), nil
	case buttonSubNotches:
		if err := need(body, 3, "wheel"); err != nil {
			return nil, err
		}
		return d.scrollEvent(float64(int8(body[1])), float64(int8(body[2])), input.ScrollUnitWheel), nil
	}
	log.Debug().Uint8("sub_type", body[0]).Msg("unknown mouse button sub type")
	return nil, nil
}

func (d *Decoder) absolute(body []byte) ([]input.Event, error) {
	if err := need(body, 9, "absolute motion"); err != nil {
		return nil, err
	}
	x := float64(int16(binary.BigEndian.Uint16(body[1:3])))
	y := float64(int16(binary.BigEndian.Uint16(body[3:5])))
	refW := float64(int16(binary.BigEndian.Uint16(body[5:7])))
	refH := float64(int16(binary.BigEndian.Uint16(body[7:9])))

	host := d.screen.Host()
	if refW > 0 && !host.IsZero() {
		x = x * float64(host.Width) / refW
	}
	if refH > 0 && !host.IsZero() {
		y = y * float64(host.Height) / refH
	}
	d.moveTo(x, y)
	return []input.Event{d.motion()}, nil
}

func (d *Decoder) relative(body []byte) ([]input.Event, error) {
	if err := need(body, 5, "relative motion"); err != nil {
		return nil, err
	}
	dx := float64(int16(binary.BigEndian.Uint16(body[1:3])))
	dy := float64(int16(binary.BigEndian.Uint16(body[3:5])))
	if dx == 0 && dy == 0 {
		return nil, nil
	}
	d.moveTo(d.x+dx, d.y+dy)
	return []input.Event{d.motion()}, nil
}

func (d *Decoder) scroll(body []byte) ([]input.Event, error) {
	if err := need(body, 10, "scroll"); err != nil {
		return nil, err
	}
	mode, flags := body[0], body[1]
	dx := float64(math.Float32frombits(binary.LittleEndian.Uint32(body[2:6])))
	dy := float64(math.Float32frombits(binary.LittleEndian.Uint32(body[6:10])))

	if flags&scrollFlagTrackpad != 0 {
		return d.scrollEvent(dx/pixelsPerNotch, dy/pixelsPerNotch, input.ScrollUnitSurface), nil
	}
	switch mode {
	case DeltaModePixel:
		dx, dy = dx/pixelsPerNotch, dy/pixelsPerNotch
	case DeltaModeLine:
		dx, dy = dx/linesPerNotch, dy/linesPerNotch
	case DeltaModePage:
	default:
		log.Debug().Uint8("delta_mode", mode).Msg("unknown scroll delta mode")
		return nil, nil
	}
	return d.scrollEvent(dx, dy, input.ScrollUnitWheel), nil
}

func (d *Decoder) pinch(body []byte) ([]input.Event, error) {
	if err := need(body, 1, "pinch"); err != nil {
		return nil, err
	}
	switch body[0] {
	case PinchBegin:
		return []input.Event{{Kind: input.KindPinchBegin, X: d.x, Y: d.y, State: d.State()}}, nil
	case PinchScale:
		if err := need(body, 5, "pinch scale"); err != nil {
			return nil, err
		}
		scale := float64(math.Float32frombits(binary.LittleEndian.Uint32(body[1:5])))
		if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
			return nil, nil
		}
		return []input.Event{{Kind: input.KindPinchScale, X: d.x, Y: d.y, State: d.State(), Scale: scale}}, nil
	case PinchEnd:
		return []input.Event{{Kind: input.KindPinchEnd, X: d.x, Y: d.y, State: d.State()}}, nil
	}
	log.Debug().Uint8("phase", body[0]).Msg("unknown pinch phase")
	return nil, nil
}

func (d *Decoder) scrollEvent(dx, dy float64, unit input.ScrollUnit) []input.Event {
	if dx == 0 && dy == 0 {
		return nil
	}
	if math.IsNaN(dx) || math.IsNaN(dy) {
		return nil
	}
	return []input.Event{{Kind: input.KindScroll, X: d.x, Y: d.y, State: d.State(), DX: dx, DY: dy, Unit: unit}}
}

func (d *Decoder) motion() input.Event {
	return input.Event{Kind: input.KindMotion, X: d.x, Y: d.y, State: d.State()}
}

// moveTo clamps to the host screen when its size is known.
func (d *Decoder) moveTo(x, y float64) {
	host := d.screen.Host()
	if !host.IsZero() {
		x = math.Max(0, math.Min(x, float64(host.Width-1)))
		y = math.Max(0, math.Min(y, float64(host.Height-1)))
	}
	d.x, d.y = x, y
}

func modifiersFromWire(b byte) input.Modifier {
	var m input.Modifier
	if b&(1<<0) != 0 {
		m |= input.ModShift
	}
	if b&(1<<1) != 0 {
		m |= input.ModControl
	}
	if b&(1<<2) != 0 {
		m |= input.ModAlt
	}
	if b&(1<<3) != 0 {
		m |= input.ModSuper
	}
	return m
}
