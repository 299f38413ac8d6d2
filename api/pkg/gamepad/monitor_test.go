package gamepad

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sys/unix"

	"github.com/helixml/droidbridge/api/pkg/loop"
	"github.com/helixml/droidbridge/api/pkg/pubsub"
)

var stickRange = map[evdev.EvCode]evdev.AbsInfo{
	evdev.ABS_X: {Minimum: 0, Maximum: 200},
	evdev.ABS_Y: {Minimum: 0, Maximum: 200},
}

// scriptedDevice wires a MockDevice to a channel of events. ReadOne blocks
// until an event arrives or the device is closed.
type scriptedDevice struct {
	*MockDevice
	events chan *evdev.InputEvent
	closed chan struct{}
	once   sync.Once
}

func newScriptedDevice(ctrl *gomock.Controller, name string, absinfo map[evdev.EvCode]evdev.AbsInfo) *scriptedDevice {
	d := &scriptedDevice{
		MockDevice: NewMockDevice(ctrl),
		events:     make(chan *evdev.InputEvent, 16),
		closed:     make(chan struct{}),
	}
	d.EXPECT().Name().Return(name, nil).AnyTimes()
	d.EXPECT().AbsInfos().Return(absinfo, nil).AnyTimes()
	d.EXPECT().ReadOne().DoAndReturn(func() (*evdev.InputEvent, error) {
		select {
		case ev := <-d.events:
			return ev, nil
		case <-d.closed:
			return nil, errors.New("read /dev/input/event5: file already closed")
		}
	}).AnyTimes()
	d.EXPECT().Close().DoAndReturn(func() error {
		d.once.Do(func() { close(d.closed) })
		return nil
	}).AnyTimes()
	return d
}

func abs(code evdev.EvCode, value int32) *evdev.InputEvent {
	return &evdev.InputEvent{Type: evdev.EV_ABS, Code: code, Value: value}
}

type sample struct {
	path string
	x, y float64
}

func TestMonitorHooksMatchingDevices(t *testing.T) {
	ctrl := gomock.NewController(t)
	finder := NewMockFinder(ctrl)
	pad := newScriptedDevice(ctrl, "Xbox Wireless Controller", stickRange)

	finder.EXPECT().List().Return([]evdev.InputPath{
		{Path: "/dev/input/event1", Name: "AT Translated Set 2 keyboard"},
		{Path: "/dev/input/event5", Name: "Xbox Wireless Controller"},
	}, nil).AnyTimes()
	finder.EXPECT().Open("/dev/input/event5").Return(pad, nil).Times(1)

	bus := pubsub.New()
	devices := make(chan pubsub.Event, 4)
	bus.Subscribe(pubsub.TopicDeviceConnected, t, func(ev pubsub.Event) { devices <- ev })
	bus.Subscribe(pubsub.TopicDeviceDisconnected, t, func(ev pubsub.Event) { devices <- ev })

	samples := make(chan sample, 16)
	m := NewMonitor(Config{ScanInterval: time.Hour}, loop.NewManual(), bus, func(info Info, x, y float64) {
		samples <- sample{info.Path, x, y}
	})
	m.finder = finder

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	ev := <-devices
	assert.Equal(t, pubsub.TopicDeviceConnected, ev.Topic)
	assert.Equal(t, Info{Path: "/dev/input/event5", Name: "Xbox Wireless Controller"}, ev.Data)
	assert.Equal(t, []Info{{Path: "/dev/input/event5", Name: "Xbox Wireless Controller"}}, m.Devices())

	// rescanning does not open the same node twice
	m.Scan(ctx)

	pad.events <- abs(evdev.ABS_X, 150)
	pad.events <- &evdev.InputEvent{Type: evdev.EV_SYN}
	pad.events <- abs(evdev.ABS_Y, 50)

	assert.Equal(t, sample{"/dev/input/event5", 0.5, 0}, waitSample(t, samples))
	assert.Equal(t, sample{"/dev/input/event5", 0.5, -0.5}, waitSample(t, samples))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}

	ev = <-devices
	assert.Equal(t, pubsub.TopicDeviceDisconnected, ev.Topic)
	assert.Empty(t, m.Devices())
}

func TestMonitorDropsUnpluggedDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	finder := NewMockFinder(ctrl)
	pad := NewMockDevice(ctrl)

	finder.EXPECT().List().Return([]evdev.InputPath{{Path: "/dev/input/event7", Name: "Sony Interactive Entertainment Wireless Controller"}}, nil)
	finder.EXPECT().Open("/dev/input/event7").Return(pad, nil)
	pad.EXPECT().Name().Return("Sony Interactive Entertainment Wireless Controller", nil)
	pad.EXPECT().AbsInfos().Return(stickRange, nil)
	pad.EXPECT().ReadOne().Return(nil, unix.ENODEV)
	pad.EXPECT().Close().Return(nil)

	disconnected := make(chan Info, 1)
	bus := pubsub.New()
	bus.Subscribe(pubsub.TopicDeviceDisconnected, t, func(ev pubsub.Event) { disconnected <- ev.Data.(Info) })

	m := NewMonitor(Config{}, loop.NewManual(), bus, func(Info, float64, float64) {})
	m.finder = finder
	m.Scan(context.Background())

	select {
	case info := <-disconnected:
		assert.Equal(t, "/dev/input/event7", info.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("device was not dropped")
	}
	m.wg.Wait()
	assert.Empty(t, m.Devices())
}

func TestMonitorListFailureIsQuiet(t *testing.T) {
	ctrl := gomock.NewController(t)
	finder := NewMockFinder(ctrl)
	finder.EXPECT().List().Return(nil, errors.New("permission denied"))

	m := NewMonitor(Config{}, loop.NewManual(), nil, func(Info, float64, float64) {})
	m.finder = finder
	m.Scan(context.Background())
	assert.Empty(t, m.Devices())
}

func TestReaderSkipsInvalidAxisRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := NewMockDevice(ctrl)
	dev.EXPECT().AbsInfos().Return(map[evdev.EvCode]evdev.AbsInfo{
		evdev.ABS_X: {Minimum: 0, Maximum: 200},
		evdev.ABS_Y: {Minimum: 10, Maximum: 10},
	}, nil)

	r := newReader(Info{Path: "/dev/input/event9"}, dev)

	x, y, ok := r.apply(abs(evdev.ABS_X, 200))
	require.True(t, ok)
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 0.0, y)

	_, _, ok = r.apply(abs(evdev.ABS_Y, 10))
	assert.False(t, ok)

	// later samples on the good axis still go through
	x, _, ok = r.apply(abs(evdev.ABS_X, 0))
	require.True(t, ok)
	assert.Equal(t, -1.0, x)
}

func TestReaderWithoutAbsInfo(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := NewMockDevice(ctrl)
	dev.EXPECT().AbsInfos().Return(nil, errors.New("inappropriate ioctl for device"))

	r := newReader(Info{Path: "/dev/input/event3"}, dev)
	_, _, ok := r.apply(abs(evdev.ABS_X, 100))
	assert.False(t, ok)
}

func TestIsDisconnect(t *testing.T) {
	assert.True(t, isDisconnect(unix.ENODEV))
	assert.True(t, isDisconnect(fmt.Errorf("read: %w", unix.ENODEV)))
	assert.True(t, isDisconnect(errors.New("read /dev/input/event5: no such device")))
	assert.False(t, isDisconnect(errors.New("file already closed")))
}

func waitSample(t *testing.T, samples chan sample) sample {
	t.Helper()
	select {
	case s := <-samples:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no stick sample")
		return sample{}
	}
}
