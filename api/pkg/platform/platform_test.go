package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBackend(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Backend
	}{
		{"nothing", map[string]string{}, BackendNone},
		{"x11", map[string]string{"DISPLAY": ":0"}, BackendX11},
		{"wayland", map[string]string{"WAYLAND_DISPLAY": "wayland-0"}, BackendWayland},
		{"xwayland", map[string]string{"DISPLAY": ":0", "WAYLAND_DISPLAY": "wayland-0"}, BackendWayland},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectBackend(func(k string) string { return tc.env[k] })
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUnsupported(t *testing.T) {
	var lock PointerLock = Unsupported{Backend: BackendWayland}
	assert.ErrorIs(t, lock.Lock(), ErrUnsupported)
	assert.False(t, lock.IsLocked())
	assert.NoError(t, lock.Unlock())
	assert.NoError(t, lock.Unlock())
}
