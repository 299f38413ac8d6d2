package controlmsg

import (
	"math"
	"sync"
	"sync/atomic"
)

// Resolution is a width/height pair in pixels.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) IsZero() bool {
	return r.Width <= 0 || r.Height <= 0
}

type screenSnapshot struct {
	host   Resolution
	target Resolution
}

// ScreenInfo maps host pixels to the resolution of the emulated device.
// Readers always see a whole snapshot; writers are serialized.
type ScreenInfo struct {
	writeMu sync.Mutex
	snap    atomic.Pointer[screenSnapshot]
}

// NewScreenInfo creates a ScreenInfo. A zero target means "same as host".
func NewScreenInfo(host, target Resolution) *ScreenInfo {
	s := &ScreenInfo{}
	s.snap.Store(&screenSnapshot{host: host, target: target})
	return s
}

// Set replaces both resolutions at once.
func (s *ScreenInfo) Set(host, target Resolution) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.snap.Store(&screenSnapshot{host: host, target: target})
}

// SetHost updates the host resolution, e.g. after the window was resized.
func (s *ScreenInfo) SetHost(host Resolution) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	cur := s.snap.Load()
	s.snap.Store(&screenSnapshot{host: host, target: cur.target})
}

func (s *ScreenInfo) Host() Resolution {
	return s.snap.Load().host
}

func (s *ScreenInfo) Target() Resolution {
	return s.snap.Load().target
}

// Position builds a host space position, truncating to whole pixels.
func (s *ScreenInfo) Position(x, y float64) Position {
	host := s.snap.Load().host
	return Position{
		X:      int32(x),
		Y:      int32(y),
		Width:  dimension(host.Width),
		Height: dimension(host.Height),
	}
}

// Center returns the middle of the host screen.
func (s *ScreenInfo) Center() (float64, float64) {
	host := s.snap.Load().host
	return float64(host.Width) / 2, float64(host.Height) / 2
}

// Project rescales the position carried by msg into the target resolution.
// Messages without a position, and all messages when no target is set, are
// returned unchanged.
func (s *ScreenInfo) Project(msg Message) Message {
	target := s.snap.Load().target
	if target.IsZero() {
		return msg
	}
	switch m := msg.(type) {
	case TouchEvent:
		m.Position = projectPosition(m.Position, target)
		return m
	case ScrollEvent:
		m.Position = projectPosition(m.Position, target)
		return m
	}
	return msg
}

func projectPosition(p Position, target Resolution) Position {
	if p.Width == 0 || p.Height == 0 {
		return p
	}
	if int(p.Width) == target.Width && int(p.Height) == target.Height {
		return p
	}
	sx := float64(target.Width) / float64(p.Width)
	sy := float64(target.Height) / float64(p.Height)
	return Position{
		X:      clampAxis(math.Round(float64(p.X)*sx), target.Width),
		Y:      clampAxis(math.Round(float64(p.Y)*sy), target.Height),
		Width:  dimension(target.Width),
		Height: dimension(target.Height),
	}
}

// clampAxis keeps a projected coordinate on screen; the daemon drops touches
// outside its bounds.
func clampAxis(v float64, size int) int32 {
	if v < 0 || size <= 0 {
		return 0
	}
	if v > float64(size-1) {
		return int32(size - 1)
	}
	return int32(v)
}

func dimension(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}
