package controlmsg

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Record sizes including the type tag.
const (
	KeyEventSize       = 14
	TouchEventSize     = 32
	ScrollEventSize    = 21
	BackOrScreenOnSize = 2
)

var (
	ErrShortBuffer = errors.New("controlmsg: buffer too short")
	ErrUnknownType = errors.New("controlmsg: unknown message type")
)

// Size returns the encoded record length for t, or 0 if t has no fixed layout.
func Size(t Type) int {
	switch t {
	case TypeInjectKeycode:
		return KeyEventSize
	case TypeInjectTouchEvent:
		return TouchEventSize
	case TypeInjectScrollEvent:
		return ScrollEventSize
	case TypeBackOrScreenOn:
		return BackOrScreenOnSize
	}
	return 0
}

// Encode serializes msg using the fixed big-endian layout of its type.
func Encode(msg Message) []byte {
	switch m := msg.(type) {
	case TouchEvent:
		// [type:1][action:1][pointer:8][x:4][y:4][w:2][h:2][pressure:2][action_button:4][buttons:4]
		buf := make([]byte, TouchEventSize)
		buf[0] = byte(TypeInjectTouchEvent)
		buf[1] = byte(m.Action)
		binary.BigEndian.PutUint64(buf[2:10], uint64(m.PointerID))
		putPosition(buf[10:22], m.Position)
		binary.BigEndian.PutUint16(buf[22:24], floatToU16FP(m.Pressure))
		binary.BigEndian.PutUint32(buf[24:28], uint32(m.ActionButton))
		binary.BigEndian.PutUint32(buf[28:32], uint32(m.Buttons))
		return buf
	case ScrollEvent:
		// [type:1][x:4][y:4][w:2][h:2][hscroll:2][vscroll:2][buttons:4]
		buf := make([]byte, ScrollEventSize)
		buf[0] = byte(TypeInjectScrollEvent)
		putPosition(buf[1:13], m.Position)
		binary.BigEndian.PutUint16(buf[13:15], uint16(floatToI16FP(m.HScroll)))
		binary.BigEndian.PutUint16(buf[15:17], uint16(floatToI16FP(m.VScroll)))
		binary.BigEndian.PutUint32(buf[17:21], uint32(m.Buttons))
		return buf
	case KeyEvent:
		// [type:1][action:1][keycode:4][repeat:4][metastate:4]
		buf := make([]byte, KeyEventSize)
		buf[0] = byte(TypeInjectKeycode)
		buf[1] = byte(m.Action)
		binary.BigEndian.PutUint32(buf[2:6], m.Keycode)
		binary.BigEndian.PutUint32(buf[6:10], m.Repeat)
		binary.BigEndian.PutUint32(buf[10:14], m.MetaState)
		return buf
	case BackOrScreenOn:
		return []byte{byte(TypeBackOrScreenOn), byte(m.Action)}
	}
	return nil
}

// Decode parses the first record in b and returns it with the number of
// bytes consumed.
func Decode(b []byte) (Message, int, error) {
	if len(b) < 1 {
		return nil, 0, ErrShortBuffer
	}
	t := Type(b[0])
	size := Size(t)
	if size == 0 {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownType, b[0])
	}
	if len(b) < size {
		return nil, 0, fmt.Errorf("%w: %s needs %d bytes, have %d", ErrShortBuffer, t, size, len(b))
	}

	switch t {
	case TypeInjectTouchEvent:
		return TouchEvent{
			Action:       Action(b[1]),
			PointerID:    PointerID(binary.BigEndian.Uint64(b[2:10])),
			Position:     readPosition(b[10:22]),
			Pressure:     u16FPToFloat(binary.BigEndian.Uint16(b[22:24])),
			ActionButton: Button(binary.BigEndian.Uint32(b[24:28])),
			Buttons:      Button(binary.BigEndian.Uint32(b[28:32])),
		}, size, nil
	case TypeInjectScrollEvent:
		return ScrollEvent{
			Position: readPosition(b[1:13]),
			HScroll:  i16FPToFloat(int16(binary.BigEndian.Uint16(b[13:15]))),
			VScroll:  i16FPToFloat(int16(binary.BigEndian.Uint16(b[15:17]))),
			Buttons:  Button(binary.BigEndian.Uint32(b[17:21])),
		}, size, nil
	case TypeInjectKeycode:
		return KeyEvent{
			Action:    Action(b[1]),
			Keycode:   binary.BigEndian.Uint32(b[2:6]),
			Repeat:    binary.BigEndian.Uint32(b[6:10]),
			MetaState: binary.BigEndian.Uint32(b[10:14]),
		}, size, nil
	default:
		return BackOrScreenOn{Action: Action(b[1])}, size, nil
	}
}

// DecodeStream splits an unframed record stream. A trailing partial record
// is reported as ErrShortBuffer together with the records decoded so far.
func DecodeStream(b []byte) ([]Message, error) {
	var msgs []Message
	for len(b) > 0 {
		msg, n, err := Decode(b)
		if err != nil {
			return msgs, err
		}
		msgs = append(msgs, msg)
		b = b[n:]
	}
	return msgs, nil
}

// EncodeFor maps msg into the target resolution of screen and encodes it.
func EncodeFor(screen *ScreenInfo, msg Message) []byte {
	if screen != nil {
		msg = screen.Project(msg)
	}
	return Encode(msg)
}

func putPosition(b []byte, p Position) {
	binary.BigEndian.PutUint32(b[0:4], uint32(p.X))
	binary.BigEndian.PutUint32(b[4:8], uint32(p.Y))
	binary.BigEndian.PutUint16(b[8:10], p.Width)
	binary.BigEndian.PutUint16(b[10:12], p.Height)
}

func readPosition(b []byte) Position {
	return Position{
		X:      int32(binary.BigEndian.Uint32(b[0:4])),
		Y:      int32(binary.BigEndian.Uint32(b[4:8])),
		Width:  binary.BigEndian.Uint16(b[8:10]),
		Height: binary.BigEndian.Uint16(b[10:12]),
	}
}

// 0xffff stands for exactly 1.0.
func floatToU16FP(f float32) uint16 {
	u := uint32(f * 65536)
	if u >= 0xffff {
		return 0xffff
	}
	return uint16(u)
}

func u16FPToFloat(v uint16) float32 {
	if v == 0xffff {
		return 1
	}
	return float32(v) / 65536
}

// 0x7fff stands for exactly 1.0, 0x8000 for -1.0.
func floatToI16FP(f float32) int16 {
	i := int32(f * 32768)
	if i >= 0x7fff {
		return 0x7fff
	}
	if i < -0x8000 {
		return -0x8000
	}
	return int16(i)
}

func i16FPToFloat(v int16) float32 {
	if v == 0x7fff {
		return 1
	}
	return float32(v) / 32768
}
