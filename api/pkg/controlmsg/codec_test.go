package controlmsg

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTouchEventLayout(t *testing.T) {
	msg := NewTouchEvent(ActionDown, PointerIDMouse, Position{X: 100, Y: 200, Width: 1920, Height: 1080}, 1.0, ButtonPrimary, ButtonPrimary)
	buf := Encode(msg)

	require.Len(t, buf, TouchEventSize)
	assert.Equal(t, byte(TypeInjectTouchEvent), buf[0])
	assert.Equal(t, byte(ActionDown), buf[1])
	assert.Equal(t, uint64(PointerIDMouse), binary.BigEndian.Uint64(buf[2:10]))
	assert.Equal(t, uint32(100), binary.BigEndian.Uint32(buf[10:14]))
	assert.Equal(t, uint32(200), binary.BigEndian.Uint32(buf[14:18]))
	assert.Equal(t, uint16(1920), binary.BigEndian.Uint16(buf[18:20]))
	assert.Equal(t, uint16(1080), binary.BigEndian.Uint16(buf[20:22]))
	assert.Equal(t, uint16(0xffff), binary.BigEndian.Uint16(buf[22:24]))
	assert.Equal(t, uint32(ButtonPrimary), binary.BigEndian.Uint32(buf[24:28]))
	assert.Equal(t, uint32(ButtonPrimary), binary.BigEndian.Uint32(buf[28:32]))
}

func TestEncodeScrollEventLayout(t *testing.T) {
	msg := NewScrollEvent(Position{X: 5, Y: 6, Width: 800, Height: 600}, -1, 1, 0)
	buf := Encode(msg)

	require.Len(t, buf, ScrollEventSize)
	assert.Equal(t, byte(TypeInjectScrollEvent), buf[0])
	assert.Equal(t, uint16(0x8000), binary.BigEndian.Uint16(buf[13:15]))
	assert.Equal(t, uint16(0x7fff), binary.BigEndian.Uint16(buf[15:17]))
}

func TestEncodeKeyAndBackLayout(t *testing.T) {
	key := Encode(NewKeyEvent(ActionUp, 66, 0, 0))
	require.Len(t, key, KeyEventSize)
	assert.Equal(t, []byte{0, 1, 0, 0, 0, 66}, key[:6])

	back := Encode(BackOrScreenOn{Action: ActionDown})
	assert.Equal(t, []byte{byte(TypeBackOrScreenOn), 0}, back)
}

func TestConstructorsClamp(t *testing.T) {
	assert.Equal(t, float32(1), NewTouchEvent(ActionMove, 0, Position{}, 3.5, 0, 0).Pressure)
	assert.Equal(t, float32(0), NewTouchEvent(ActionMove, 0, Position{}, -2, 0, 0).Pressure)

	s := NewScrollEvent(Position{}, 4, -9, 0)
	assert.Equal(t, float32(1), s.HScroll)
	assert.Equal(t, float32(-1), s.VScroll)
}

func TestRoundTrip(t *testing.T) {
	corner := Position{X: 1919, Y: 1079, Width: 1920, Height: 1080}
	origin := Position{X: 0, Y: 0, Width: 1920, Height: 1080}

	tests := []struct {
		name string
		msg  Message
	}{
		{"touch zero pressure at origin", NewTouchEvent(ActionUp, 0, origin, 0, 0, 0)},
		{"touch full pressure at corner", NewTouchEvent(ActionDown, 0, corner, 1, ButtonPrimary, ButtonPrimary)},
		{"touch half pressure", NewTouchEvent(ActionMove, 7, corner, 0.5, 0, ButtonSecondary)},
		{"mouse pointer", NewTouchEvent(ActionHoverMove, PointerIDMouse, origin, 1, 0, 0)},
		{"generic finger", NewTouchEvent(ActionDown, PointerIDGenericFinger, corner, 1, 0, 0)},
		{"virtual finger", NewTouchEvent(ActionUp, PointerIDVirtualFinger, corner, 0, 0, 0)},
		{"cancel", NewTouchEvent(ActionCancel, 3, origin, 0, 0, 0)},
		{"scroll bounds", NewScrollEvent(corner, -1, 1, ButtonTertiary)},
		{"scroll zero", NewScrollEvent(origin, 0, 0, 0)},
		{"scroll half", NewScrollEvent(origin, 0.5, -0.5, 0)},
		{"key", NewKeyEvent(ActionDown, 4, 2, 0x41)},
		{"back", BackOrScreenOn{Action: ActionUp}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := Encode(tc.msg)
			decoded, n, err := Decode(buf)
			require.NoError(t, err)
			assert.Equal(t, len(buf), n)
			assert.Equal(t, tc.msg, decoded)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, _, err := Decode(nil)
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, _, err = Decode([]byte{0x42})
	assert.ErrorIs(t, err, ErrUnknownType)

	buf := Encode(NewTouchEvent(ActionDown, 1, Position{}, 1, 0, 0))
	_, _, err = Decode(buf[:10])
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestDecodeStream(t *testing.T) {
	a := NewTouchEvent(ActionDown, 1, Position{X: 1, Y: 2, Width: 10, Height: 10}, 1, 0, 0)
	b := NewScrollEvent(Position{X: 3, Y: 4, Width: 10, Height: 10}, 0, 0.5, 0)
	c := NewKeyEvent(ActionDown, 4, 0, 0)

	var stream []byte
	stream = append(stream, Encode(a)...)
	stream = append(stream, Encode(b)...)
	stream = append(stream, Encode(c)...)

	msgs, err := DecodeStream(stream)
	require.NoError(t, err)
	assert.Equal(t, []Message{a, b, c}, msgs)

	msgs, err = DecodeStream(stream[:len(stream)-3])
	assert.ErrorIs(t, err, ErrShortBuffer)
	assert.Len(t, msgs, 2)
}
