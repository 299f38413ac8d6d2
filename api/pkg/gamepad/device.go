// Package gamepad discovers game controllers under /dev/input and streams
// their left stick position to the event loop.
package gamepad

import (
	"errors"
	"strings"

	"github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

//go:generate mockgen -source $GOFILE -destination device_mocks.go -package $GOPACKAGE

// Device is an opened evdev node.
type Device interface {
	Name() (string, error)
	AbsInfos() (map[evdev.EvCode]evdev.AbsInfo, error)
	// ReadOne blocks for the next event.
	ReadOne() (*evdev.InputEvent, error)
	Close() error
}

// Finder lists candidate device nodes and opens them.
type Finder interface {
	List() ([]evdev.InputPath, error)
	Open(path string) (Device, error)
}

type evdevFinder struct{}

func (evdevFinder) List() ([]evdev.InputPath, error) {
	return evdev.ListDevicePaths()
}

func (evdevFinder) Open(path string) (Device, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// isDisconnect reports whether err means the device node went away.
func isDisconnect(err error) bool {
	if errors.Is(err, unix.ENODEV) {
		return true
	}
	return strings.Contains(err.Error(), "no such device")
}
