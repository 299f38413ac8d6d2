package gamepad

import (
	"sync/atomic"

	"github.com/holoplot/go-evdev"
	"github.com/rs/zerolog/log"

	"github.com/helixml/droidbridge/api/pkg/gesture"
)

type reader struct {
	info   Info
	dev    Device
	closed atomic.Bool

	// owned by the read goroutine
	x, y axis
}

func newReader(info Info, dev Device) *reader {
	r := &reader{info: info, dev: dev}

	infos, err := dev.AbsInfos()
	if err != nil {
		log.Warn().Err(err).Str("path", info.Path).Msg("gamepad reports no axis info, stick samples will be skipped")
		return r
	}
	if ai, ok := infos[evdev.ABS_X]; ok {
		r.x = axis{info: ai, known: true}
	}
	if ai, ok := infos[evdev.ABS_Y]; ok {
		r.y = axis{info: ai, known: true}
	}
	return r
}

// apply folds ev into the stick state. ok is true when the position changed
// and is valid.
func (r *reader) apply(ev *evdev.InputEvent) (x, y float64, ok bool) {
	if ev.Type != evdev.EV_ABS {
		return 0, 0, false
	}
	switch ev.Code {
	case evdev.ABS_X:
		ok = r.x.set(ev.Value)
	case evdev.ABS_Y:
		ok = r.y.set(ev.Value)
	default:
		return 0, 0, false
	}
	if !ok {
		log.Trace().Str("path", r.info.Path).Uint16("code", uint16(ev.Code)).Int32("value", ev.Value).Msg("skipping gamepad sample with invalid axis range")
		return 0, 0, false
	}
	return r.x.value, r.y.value, true
}

// close unblocks the read goroutine.
func (r *reader) close() {
	if r.closed.CompareAndSwap(false, true) {
		_ = r.dev.Close()
	}
}

// axis keeps the last normalized value of one stick axis.
type axis struct {
	info  evdev.AbsInfo
	known bool
	value float64
}

func (a *axis) set(raw int32) bool {
	if !a.known {
		return false
	}
	v, err := gesture.NormalizeAxis(raw, a.info.Minimum, a.info.Maximum)
	if err != nil {
		return false
	}
	a.value = v
	return true
}
