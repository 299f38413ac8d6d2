package x11

import (
	"errors"
	"fmt"
	"io"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/rs/zerolog/log"
)

// Motion is a pointer position relative to the grab window, in physical
// pixels.
type Motion struct {
	X, Y int16
}

// display is the slice of the X protocol the pointer lock uses. It is
// implemented over xgb and faked in tests.
type display interface {
	// GrabPointer grabs motion and button events and confines the pointer
	// to window.
	GrabPointer(window uint32) error
	UngrabPointer() error
	WarpPointer(window uint32, x, y int16) error
	// QueryPointer returns the pointer position relative to window.
	QueryPointer(window uint32) (Motion, error)
	WindowSize(window uint32) (width, height uint16, err error)
	// NextMotion blocks for the next motion event. It returns io.EOF once
	// the connection is closed.
	NextMotion() (Motion, error)
	Close() error
}

var errGrabFailed = errors.New("x11: pointer grab refused")

type xgbDisplay struct {
	conn *xgb.Conn
}

// dialXGB opens a dedicated connection so grabs and warps never interleave
// with another client's requests.
func dialXGB(name string) (display, error) {
	conn, err := xgb.NewConnDisplay(name)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X display %q: %w", name, err)
	}
	return &xgbDisplay{conn: conn}, nil
}

func (d *xgbDisplay) GrabPointer(window uint32) error {
	w := xproto.Window(window)
	mask := uint16(xproto.EventMaskPointerMotion | xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease)
	reply, err := xproto.GrabPointer(d.conn, false, w, mask,
		xproto.GrabModeAsync, xproto.GrabModeAsync, w, xproto.CursorNone, xproto.TimeCurrentTime).Reply()
	if err != nil {
		return fmt.Errorf("failed to grab pointer: %w", err)
	}
	if reply.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("%w: status %d", errGrabFailed, reply.Status)
	}
	return nil
}

func (d *xgbDisplay) UngrabPointer() error {
	return xproto.UngrabPointerChecked(d.conn, xproto.TimeCurrentTime).Check()
}

func (d *xgbDisplay) WarpPointer(window uint32, x, y int16) error {
	return xproto.WarpPointerChecked(d.conn, xproto.WindowNone, xproto.Window(window), 0, 0, 0, 0, x, y).Check()
}

func (d *xgbDisplay) QueryPointer(window uint32) (Motion, error) {
	reply, err := xproto.QueryPointer(d.conn, xproto.Window(window)).Reply()
	if err != nil {
		return Motion{}, fmt.Errorf("failed to query pointer: %w", err)
	}
	if !reply.SameScreen {
		return Motion{}, fmt.Errorf("pointer is on another screen")
	}
	return Motion{X: reply.WinX, Y: reply.WinY}, nil
}

func (d *xgbDisplay) WindowSize(window uint32) (uint16, uint16, error) {
	reply, err := xproto.GetGeometry(d.conn, xproto.Drawable(window)).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get window geometry: %w", err)
	}
	return reply.Width, reply.Height, nil
}

func (d *xgbDisplay) NextMotion() (Motion, error) {
	for {
		ev, xerr := d.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return Motion{}, io.EOF
		}
		if xerr != nil {
			log.Debug().Str("error", xerr.Error()).Msg("x11 error event")
			continue
		}
		if m, ok := ev.(xproto.MotionNotifyEvent); ok {
			return Motion{X: m.EventX, Y: m.EventY}, nil
		}
	}
}

func (d *xgbDisplay) Close() error {
	d.conn.Close()
	return nil
}
