// Package bridge wires the input sources, the handler chain and the control
// server into one running relay.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/helixml/droidbridge/api/pkg/config"
	"github.com/helixml/droidbridge/api/pkg/controlmsg"
	"github.com/helixml/droidbridge/api/pkg/gamepad"
	"github.com/helixml/droidbridge/api/pkg/gesture"
	"github.com/helixml/droidbridge/api/pkg/handler"
	"github.com/helixml/droidbridge/api/pkg/input"
	"github.com/helixml/droidbridge/api/pkg/loop"
	"github.com/helixml/droidbridge/api/pkg/platform"
	"github.com/helixml/droidbridge/api/pkg/platform/x11"
	"github.com/helixml/droidbridge/api/pkg/pointer"
	"github.com/helixml/droidbridge/api/pkg/pubsub"
	"github.com/helixml/droidbridge/api/pkg/server"
	"github.com/helixml/droidbridge/api/pkg/wsinput"
)

const stopTimeout = 3 * time.Second

type Option func(*App)

// WithPointerLock overrides the pointer lock picked from the configured
// backend.
func WithPointerLock(lock platform.PointerLock) Option {
	return func(a *App) {
		a.lock = lock
	}
}

// App owns every component. Gesture state, the chain and the bus are only
// touched on the loop goroutine.
type App struct {
	cfg config.BridgeConfig

	loop     *loop.Loop
	bus      *pubsub.Bus
	screen   *controlmsg.ScreenInfo
	pointers *pointer.Manager

	mouse   *gesture.Mouse
	zoom    *gesture.Zoom
	stick   *gesture.Stick
	keymap  *handler.KeyMapping
	chain   *handler.Chain
	buttons input.Modifier

	server  *server.Server
	lock    platform.PointerLock
	monitor *gamepad.Monitor
	ws      *wsinput.Server
	watcher *handler.KeyMapWatcher
}

func New(cfg config.BridgeConfig, opts ...Option) (*App, error) {
	a := &App{
		cfg:  cfg,
		loop: loop.New(),
		bus:  pubsub.New(),
		screen: controlmsg.NewScreenInfo(
			controlmsg.Resolution{Width: cfg.Screen.HostWidth, Height: cfg.Screen.HostHeight},
			controlmsg.Resolution{Width: cfg.Screen.TargetWidth, Height: cfg.Screen.TargetHeight},
		),
		pointers: pointer.NewManager(cfg.Pointer.Capacity),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mouse = gesture.NewMouse(gesture.MouseConfig{
		NaturalScroll: cfg.Gesture.NaturalScroll,
		Hover:         cfg.Gesture.MouseHover,
	}, a.screen, a.emit)
	a.zoom = gesture.NewZoom(gesture.ZoomConfig{
		InInitLength:  cfg.Gesture.ZoomInInitLength,
		OutInitLength: cfg.Gesture.ZoomOutInitLength,
		Timeout:       cfg.Gesture.ZoomTimeout,
	}, a.screen, a.loop, a.mouse, a.emit)
	a.stick = gesture.NewStick(gesture.StickConfig{
		Area: gesture.Rect{
			X:      cfg.Gesture.StickX,
			Y:      cfg.Gesture.StickY,
			Width:  cfg.Gesture.StickWidth,
			Height: cfg.Gesture.StickHeight,
		},
		Deadzone:     cfg.Gesture.StickDeadzone,
		RadiusFactor: cfg.Gesture.SwipeHoldRadius,
	}, a.screen, a.pointers, a.emit)

	a.keymap = handler.NewKeyMapping(a.screen, a.pointers, a.emit)
	a.chain = handler.NewChain(handler.NewDefault(a.mouse, a.zoom), a.keymap)
	a.chain.OnModeChanged(func(m handler.Mode) {
		a.bus.Emit(pubsub.TopicModeChanged, a.chain, m)
	})

	if cfg.KeyMap.Profile != "" {
		profile, err := handler.LoadProfile(cfg.KeyMap.Profile)
		if err != nil {
			return nil, err
		}
		a.keymap.SetProfile(profile)
		if cfg.KeyMap.Watch {
			a.watcher = handler.NewKeyMapWatcher(cfg.KeyMap.Profile, a.loop, a.applyProfile)
		}
	}
	mode, err := handler.ParseMode(cfg.KeyMap.Mode)
	if err != nil {
		return nil, err
	}
	a.chain.SetMode(mode)

	a.server = server.New(server.Config{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		QueueCapacity:    cfg.Server.QueueCapacity,
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
	}, a.screen, a.bus, a.loop)

	if a.lock == nil {
		lock, err := newPointerLock(cfg.PointerLock, a.loop)
		if err != nil {
			return nil, err
		}
		a.lock = lock
	}
	a.lock.SetRelativeMotionCallback(a.onRelativeMotion)

	if cfg.Gamepad.Enabled {
		a.monitor = gamepad.NewMonitor(gamepad.Config{
			ScanInterval: cfg.Gamepad.ScanInterval,
			NameFilters:  cfg.Gamepad.NameFilters,
		}, a.loop, a.bus, func(_ gamepad.Info, x, y float64) {
			a.stick.Update(x, y)
		})
		a.bus.Subscribe(pubsub.TopicDeviceDisconnected, a, func(pubsub.Event) {
			if len(a.monitor.Devices()) == 0 {
				a.stick.Release()
			}
		})
	}

	if cfg.WSInput.Enabled {
		a.ws = wsinput.New(wsinput.Config{
			Address: cfg.WSInput.Address,
			Path:    cfg.WSInput.Path,
		}, a.screen, a.loop, a.handle)
	}

	a.bus.Subscribe(pubsub.TopicSwipeHoldRadius, a, func(ev pubsub.Event) {
		factor, ok := ev.Data.(float64)
		if !ok || factor <= 0 || math.IsNaN(factor) {
			log.Warn().Interface("data", ev.Data).Msg("ignoring invalid swipe hold radius")
			return
		}
		a.stick.SetRadiusFactor(factor)
	})

	return a, nil
}

func newPointerLock(cfg config.PointerLock, sched loop.Scheduler) (platform.PointerLock, error) {
	backend := platform.Backend(cfg.Backend)
	if cfg.Backend == "" || cfg.Backend == "auto" {
		backend = platform.DetectBackend(os.Getenv)
	}

	switch backend {
	case platform.BackendX11:
		mode, err := x11.ParseMode(cfg.Mode)
		if err != nil {
			return nil, err
		}
		return x11.New(x11.Config{
			Display:       cfg.Display,
			Window:        cfg.Window,
			Mode:          mode,
			Scale:         cfg.Scale,
			JoinTimeout:   cfg.JoinTimeout,
			WarpThreshold: cfg.WarpThreshold,
		}, sched), nil
	case platform.BackendWayland, platform.BackendNone:
		log.Info().Str("backend", string(backend)).Msg("pointer lock is not available")
		return platform.Unsupported{Backend: backend}, nil
	}
	return nil, fmt.Errorf("unknown pointer lock backend %q", cfg.Backend)
}

func (a *App) Bus() *pubsub.Bus {
	return a.bus
}

func (a *App) Loop() *loop.Loop {
	return a.loop
}

func (a *App) Server() *server.Server {
	return a.server
}

func (a *App) Screen() *controlmsg.ScreenInfo {
	return a.screen
}

// Run starts every component and blocks until ctx is done, then shuts them
// down in reverse order.
func (a *App) Run(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = a.loop.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	if err := a.server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start control server: %w", err)
	}
	log.Info().Str("address", a.server.Addr().String()).Str("mode", a.chain.Mode().String()).Msg("droidbridge running")

	var wg conc.WaitGroup
	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("key mapping profile will not be reloaded")
		} else {
			wg.Go(a.watcher.Wait)
		}
	}
	if a.monitor != nil {
		wg.Go(func() {
			_ = a.monitor.Run(ctx)
		})
	}
	if a.ws != nil {
		wg.Go(func() {
			if err := a.ws.ListenAndServe(ctx); err != nil {
				log.Error().Err(err).Msg("websocket input stopped")
			}
		})
	}
	if a.cfg.PointerLock.LockOnStart {
		if err := a.LockPointer(); err != nil {
			log.Warn().Err(err).Msg("failed to lock pointer")
		}
	}

	<-ctx.Done()
	log.Info().Msg("droidbridge stopping")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := a.UnlockPointer(); err != nil {
		log.Warn().Err(err).Msg("failed to unlock pointer")
	}
	wg.Wait()

	// lift anything still held so the device is left without stuck touches
	if err := a.loop.Do(stopCtx, a.releaseAll); err != nil {
		log.Warn().Err(err).Msg("failed to release held input")
	}
	if err := a.server.Stop(stopCtx); err != nil {
		return err
	}
	return nil
}

// Dispatch queues ev for the handler chain.
func (a *App) Dispatch(ev input.Event) {
	a.loop.Post(func() {
		a.handle(ev)
	})
}

// SetMode switches the chain between default and key mapping mode.
func (a *App) SetMode(mode handler.Mode) {
	a.loop.Post(func() {
		a.chain.SetMode(mode)
	})
}

// SetSwipeHoldRadius publishes a new stick radius factor.
func (a *App) SetSwipeHoldRadius(factor float64) {
	a.loop.Post(func() {
		a.bus.Emit(pubsub.TopicSwipeHoldRadius, a, factor)
	})
}

// SetHostResolution follows a resize of the window input arrives in.
func (a *App) SetHostResolution(res controlmsg.Resolution) {
	a.screen.SetHost(res)
}

func (a *App) LockPointer() error {
	if err := a.lock.Lock(); err != nil {
		return err
	}
	a.publishLock(true)
	return nil
}

func (a *App) UnlockPointer() error {
	if !a.lock.IsLocked() {
		return nil
	}
	if err := a.lock.Unlock(); err != nil && !errors.Is(err, platform.ErrNotLocked) {
		return err
	}
	a.publishLock(false)
	return nil
}

func (a *App) publishLock(locked bool) {
	a.loop.Post(func() {
		a.bus.Emit(pubsub.TopicPointerLockChanged, a.lock, locked)
	})
}

func (a *App) applyProfile(p *handler.Profile) {
	a.keymap.SetProfile(p)
	a.bus.Emit(pubsub.TopicKeyMapReloaded, a.watcher, p.Name)
}

// handle runs on the loop.
func (a *App) handle(ev input.Event) {
	switch ev.Kind {
	case input.KindButtonPress:
		a.buttons |= input.ButtonModifier(ev.Button)
	case input.KindButtonRelease:
		defer func() { a.buttons &^= input.ButtonModifier(ev.Button) }()
	}
	a.chain.Dispatch(ev)
}

// onRelativeMotion moves the pointer by a locked pointer delta. It runs on
// the loop.
func (a *App) onRelativeMotion(dx, dy, _, _ float64) {
	x, y := a.mouse.Position()
	x, y = x+dx, y+dy
	if host := a.screen.Host(); !host.IsZero() {
		x = math.Min(x, float64(host.Width-1))
		y = math.Min(y, float64(host.Height-1))
	}
	a.handle(input.Event{Kind: input.KindMotion, X: x, Y: y, State: a.buttons})
}

func (a *App) releaseAll() {
	a.stick.Release()
	a.zoom.Cancel()
	a.keymap.Reset()
}

func (a *App) emit(msg controlmsg.Message) {
	a.bus.Emit(pubsub.TopicControlMsg, a, msg)
}
