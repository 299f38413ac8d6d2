package gamepad

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/helixml/droidbridge/api/pkg/loop"
	"github.com/helixml/droidbridge/api/pkg/pubsub"
)

const DefaultScanInterval = 3 * time.Second

// DefaultNameFilters match the controllers worth hooking by device name.
var DefaultNameFilters = []string{"Xbox", "Gamepad", "Controller", "Sony", "Microsoft"}

type Config struct {
	ScanInterval time.Duration
	NameFilters  []string
}

func (c Config) withDefaults() Config {
	if c.ScanInterval <= 0 {
		c.ScanInterval = DefaultScanInterval
	}
	if len(c.NameFilters) == 0 {
		c.NameFilters = DefaultNameFilters
	}
	return c
}

// Info describes a hooked controller. It is the payload of the device
// connected and disconnected topics.
type Info struct {
	Path string
	Name string
}

// SampleFunc receives a normalized stick position on the loop goroutine.
type SampleFunc func(info Info, x, y float64)

// Monitor rescans for controllers and runs one reader per device.
type Monitor struct {
	cfg      Config
	finder   Finder
	sched    loop.Scheduler
	bus      pubsub.Publisher
	onSample SampleFunc

	devices *xsync.MapOf[string, *reader]
	wg      conc.WaitGroup
}

// NewMonitor creates a monitor. A nil bus drops device events.
func NewMonitor(cfg Config, sched loop.Scheduler, bus pubsub.Publisher, onSample SampleFunc) *Monitor {
	if bus == nil {
		bus = pubsub.NewNoop()
	}
	return &Monitor{
		cfg:      cfg.withDefaults(),
		finder:   evdevFinder{},
		sched:    sched,
		bus:      bus,
		onSample: onSample,
		devices:  xsync.NewMapOf[string, *reader](),
	}
}

// Run scans immediately and then every ScanInterval until ctx is done. On
// return every device is closed and its reader has exited.
func (m *Monitor) Run(ctx context.Context) error {
	log.Info().Dur("interval", m.cfg.ScanInterval).Strs("filters", m.cfg.NameFilters).Msg("gamepad monitor started")

	ticker := time.NewTicker(m.cfg.ScanInterval)
	defer ticker.Stop()

	m.Scan(ctx)
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			m.wg.Wait()
			return nil
		case <-ticker.C:
			m.Scan(ctx)
		}
	}
}

// Scan hooks every matching device not already hooked.
func (m *Monitor) Scan(ctx context.Context) {
	paths, err := m.finder.List()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Debug().Err(err).Msg("failed to list input devices")
		}
		return
	}

	for _, p := range paths {
		if _, ok := m.devices.Load(p.Path); ok {
			continue
		}
		if !m.matches(p.Name) {
			continue
		}
		m.hook(ctx, p.Path)
	}
}

// Devices returns the hooked controllers sorted by path.
func (m *Monitor) Devices() []Info {
	var infos []Info
	m.devices.Range(func(_ string, r *reader) bool {
		infos = append(infos, r.info)
		return true
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos
}

func (m *Monitor) matches(name string) bool {
	for _, f := range m.cfg.NameFilters {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

func (m *Monitor) hook(ctx context.Context, path string) {
	dev, err := m.finder.Open(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("failed to open input device")
		return
	}
	name, err := dev.Name()
	if err != nil || !m.matches(name) {
		_ = dev.Close()
		return
	}

	r := newReader(Info{Path: path, Name: name}, dev)
	if _, loaded := m.devices.LoadOrStore(path, r); loaded {
		_ = dev.Close()
		return
	}

	log.Info().Str("path", path).Str("name", name).Msg("gamepad connected")
	m.publish(pubsub.TopicDeviceConnected, r.info)

	m.wg.Go(func() {
		m.read(ctx, r)
	})
}

func (m *Monitor) read(ctx context.Context, r *reader) {
	defer func() {
		m.devices.Delete(r.info.Path)
		r.close()
		log.Info().Str("path", r.info.Path).Str("name", r.info.Name).Msg("gamepad disconnected")
		m.publish(pubsub.TopicDeviceDisconnected, r.info)
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		ev, err := r.dev.ReadOne()
		if ctx.Err() != nil || r.closed.Load() {
			return
		}
		if err != nil {
			if !isDisconnect(err) {
				log.Warn().Err(err).Str("path", r.info.Path).Msg("failed to read gamepad event")
			}
			return
		}
		if ev == nil {
			continue
		}
		x, y, ok := r.apply(ev)
		if !ok {
			continue
		}
		info := r.info
		m.sched.Post(func() {
			m.onSample(info, x, y)
		})
	}
}

func (m *Monitor) closeAll() {
	m.devices.Range(func(_ string, r *reader) bool {
		r.close()
		return true
	})
}

func (m *Monitor) publish(topic pubsub.Topic, info Info) {
	m.sched.Post(func() {
		m.bus.Emit(topic, m, info)
	})
}
