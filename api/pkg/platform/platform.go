// Package platform abstracts the display-server specific parts of input
// capture.
package platform

import (
	"errors"
)

var (
	// ErrUnsupported is returned by Lock when no pointer lock exists for the
	// running display backend.
	ErrUnsupported = errors.New("platform: pointer lock is not supported on this display backend")
	ErrNotLocked   = errors.New("platform: pointer is not locked")
)

// RelativeMotionFunc receives pointer deltas in logical pixels. The
// unaccelerated pair equals the accelerated one when the backend cannot tell
// them apart.
type RelativeMotionFunc func(dx, dy, dxUnaccel, dyUnaccel float64)

//go:generate mockgen -source $GOFILE -destination platform_mocks.go -package $GOPACKAGE

// PointerLock captures the pointer and reports relative motion while locked.
// A failed Lock leaves the pointer unlocked. Unlock is safe to call at any
// time and more than once.
type PointerLock interface {
	Lock() error
	Unlock() error
	IsLocked() bool
	SetRelativeMotionCallback(fn RelativeMotionFunc)
}

type Backend string

const (
	BackendNone    Backend = "none"
	BackendX11     Backend = "x11"
	BackendWayland Backend = "wayland"
)

// DetectBackend picks the display backend from the session environment.
// Wayland wins when both are set, since DISPLAY then points at XWayland.
func DetectBackend(getenv func(string) string) Backend {
	if getenv("WAYLAND_DISPLAY") != "" {
		return BackendWayland
	}
	if getenv("DISPLAY") != "" {
		return BackendX11
	}
	return BackendNone
}

// Unsupported is the PointerLock used when the backend has none.
type Unsupported struct {
	Backend Backend
}

var _ PointerLock = Unsupported{}

func (Unsupported) Lock() error { return ErrUnsupported }
func (Unsupported) Unlock() error { return nil }
func (Unsupported) IsLocked() bool { return false }
func (Unsupported) SetRelativeMotionCallback(RelativeMotionFunc) {}
