package bridge

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/helixml/droidbridge/api/pkg/config"
	"github.com/helixml/droidbridge/api/pkg/controlmsg"
	"github.com/helixml/droidbridge/api/pkg/handler"
	"github.com/helixml/droidbridge/api/pkg/input"
	"github.com/helixml/droidbridge/api/pkg/platform"
	"github.com/helixml/droidbridge/api/pkg/pubsub"
)

type AppTestSuite struct {
	suite.Suite

	ctrl *gomock.Controller
	lock *platform.MockPointerLock
	// motion is the callback the app registered on the lock
	motion platform.RelativeMotionFunc

	msgs  chan controlmsg.Message
	locks chan bool
	modes chan handler.Mode
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func (s *AppTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.lock = platform.NewMockPointerLock(s.ctrl)
	s.lock.EXPECT().SetRelativeMotionCallback(gomock.Any()).Do(func(fn platform.RelativeMotionFunc) {
		s.motion = fn
	})

	s.msgs = make(chan controlmsg.Message, 32)
	s.locks = make(chan bool, 4)
	s.modes = make(chan handler.Mode, 4)

	s.T().Setenv("CONTROL_HOST", "127.0.0.1")
	s.T().Setenv("CONTROL_PORT", "0")
	s.T().Setenv("GAMEPAD_ENABLED", "false")
	s.T().Setenv("POINTER_LOCK_BACKEND", "none")
	s.T().Setenv("GESTURE_MOUSE_HOVER", "true")
}

func (s *AppTestSuite) newApp() *App {
	cfg, err := config.LoadBridgeConfig()
	s.Require().NoError(err)

	a, err := New(cfg, WithPointerLock(s.lock))
	s.Require().NoError(err)

	a.Bus().Subscribe(pubsub.TopicControlMsg, s, func(ev pubsub.Event) {
		s.msgs <- ev.Data.(controlmsg.Message)
	})
	a.Bus().Subscribe(pubsub.TopicPointerLockChanged, s, func(ev pubsub.Event) {
		s.locks <- ev.Data.(bool)
	})
	a.Bus().Subscribe(pubsub.TopicModeChanged, s, func(ev pubsub.Event) {
		s.modes <- ev.Data.(handler.Mode)
	})
	return a
}

// start runs a until the returned stop func is called.
func (s *AppTestSuite) start(a *App) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	s.Require().Eventually(func() bool { return a.Server().Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	return func() {
		cancel()
		select {
		case err := <-done:
			s.Require().NoError(err)
		case <-time.After(5 * time.Second):
			s.T().Fatal("app did not stop")
		}
	}
}

func (s *AppTestSuite) nextMsg() controlmsg.Message {
	select {
	case msg := <-s.msgs:
		return msg
	case <-time.After(2 * time.Second):
		s.T().Fatal("no control message")
		return nil
	}
}

func (s *AppTestSuite) TestPointerLockMovesMouse() {
	s.lock.EXPECT().Lock().Return(nil)
	s.lock.EXPECT().IsLocked().Return(true)
	s.lock.EXPECT().Unlock().Return(nil)

	a := s.newApp()
	stop := s.start(a)

	s.Require().NoError(a.LockPointer())
	s.True(<-s.locks)

	s.Require().NotNil(s.motion)
	s.Require().NoError(a.Loop().Do(context.Background(), func() {
		s.motion(10, 20, 10, 20)
		s.motion(-15, 5, -15, 5)
	}))

	first := s.nextMsg().(controlmsg.TouchEvent)
	s.Equal(controlmsg.ActionHoverMove, first.Action)
	s.Equal(controlmsg.PointerIDMouse, first.PointerID)
	s.Equal(int32(10), first.Position.X)
	s.Equal(int32(20), first.Position.Y)

	// the mouse never goes left of the screen
	second := s.nextMsg().(controlmsg.TouchEvent)
	s.Equal(int32(0), second.Position.X)
	s.Equal(int32(25), second.Position.Y)

	stop()
	s.False(<-s.locks)
}

func (s *AppTestSuite) TestLockFailureIsReported() {
	s.lock.EXPECT().Lock().Return(platform.ErrUnsupported)
	s.lock.EXPECT().IsLocked().Return(false).AnyTimes()

	a := s.newApp()
	stop := s.start(a)
	defer stop()

	s.ErrorIs(a.LockPointer(), platform.ErrUnsupported)
	s.NoError(a.UnlockPointer())
	s.Empty(s.locks)
}

func (s *AppTestSuite) TestSwipeHoldRadiusScalesStick() {
	s.lock.EXPECT().IsLocked().Return(false).AnyTimes()

	a := s.newApp()
	stop := s.start(a)
	defer stop()

	a.SetSwipeHoldRadius(2)
	s.Require().NoError(a.Loop().Do(context.Background(), func() {
		a.stick.Update(1, 0)
	}))

	// default stick area is 300x300 at (100, 680)
	down := s.nextMsg().(controlmsg.TouchEvent)
	s.Equal(controlmsg.ActionDown, down.Action)
	s.Equal(controlmsg.PointerID(0), down.PointerID)
	s.Equal(int32(250), down.Position.X)
	s.Equal(int32(830), down.Position.Y)

	move := s.nextMsg().(controlmsg.TouchEvent)
	s.Equal(controlmsg.ActionMove, move.Action)
	s.Equal(int32(550), move.Position.X)
	s.Equal(int32(830), move.Position.Y)
}

func (s *AppTestSuite) TestStopLiftsHeldTouches() {
	s.lock.EXPECT().IsLocked().Return(false).AnyTimes()

	a := s.newApp()
	stop := s.start(a)

	s.Require().NoError(a.Loop().Do(context.Background(), func() {
		a.stick.Update(0, -1)
	}))
	s.Equal(controlmsg.ActionDown, s.nextMsg().(controlmsg.TouchEvent).Action)
	s.Equal(controlmsg.ActionMove, s.nextMsg().(controlmsg.TouchEvent).Action)

	stop()
	up := s.nextMsg().(controlmsg.TouchEvent)
	s.Equal(controlmsg.ActionUp, up.Action)
}

func (s *AppTestSuite) TestStopDeliversReleaseToPeer() {
	s.lock.EXPECT().IsLocked().Return(false).AnyTimes()

	a := s.newApp()
	stop := s.start(a)

	conn, err := net.Dial("tcp", a.Server().Addr().String())
	s.Require().NoError(err)
	defer conn.Close()
	_, err = conn.Write([]byte("waydroid"))
	s.Require().NoError(err)
	s.Require().Eventually(a.Server().Connected, 2*time.Second, 10*time.Millisecond)

	s.Require().NoError(a.Loop().Do(context.Background(), func() {
		a.stick.Update(0, -1)
	}))
	stop()

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	wire, err := io.ReadAll(conn)
	s.Require().NoError(err)

	msgs, err := controlmsg.DecodeStream(wire)
	s.Require().NoError(err)
	var actions []controlmsg.Action
	for _, msg := range msgs {
		actions = append(actions, msg.(controlmsg.TouchEvent).Action)
	}
	s.Equal([]controlmsg.Action{controlmsg.ActionDown, controlmsg.ActionMove, controlmsg.ActionUp}, actions)
}

func (s *AppTestSuite) TestKeyMappingMode() {
	s.lock.EXPECT().IsLocked().Return(false).AnyTimes()

	path := filepath.Join(s.T().TempDir(), "profile.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(`
name: shooter
bindings:
  - key: space
    action: touch
    x: 1700
    y: 900
`), 0o644))
	s.T().Setenv("KEYMAP_PROFILE", path)
	s.T().Setenv("KEYMAP_WATCH", "false")
	s.T().Setenv("INPUT_MODE", "mapping")

	a := s.newApp()
	stop := s.start(a)
	defer stop()

	a.Dispatch(input.Event{Kind: input.KindKeyPress, Key: "space"})
	down := s.nextMsg().(controlmsg.TouchEvent)
	s.Equal(controlmsg.ActionDown, down.Action)
	s.Equal(int32(1700), down.Position.X)

	// leaving mapping mode lifts the held key
	a.SetMode(handler.ModeDefault)
	s.Equal(controlmsg.ActionUp, s.nextMsg().(controlmsg.TouchEvent).Action)
	s.Equal(handler.ModeDefault, <-s.modes)
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"POINTER_LOCK_BACKEND": "quartz"}},
		{"unknown x11 mode", map[string]string{"POINTER_LOCK_BACKEND": "x11", "POINTER_LOCK_MODE": "teleport"}},
		{"unknown input mode", map[string]string{"POINTER_LOCK_BACKEND": "none", "INPUT_MODE": "chaos"}},
		{"missing profile", map[string]string{"POINTER_LOCK_BACKEND": "none", "KEYMAP_PROFILE": "/nonexistent/profile.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GAMEPAD_ENABLED", "false")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := config.LoadBridgeConfig()
			require.NoError(t, err)

			_, err = New(cfg)
			assert.Error(t, err)
		})
	}
}
