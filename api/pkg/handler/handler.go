package handler

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/helixml/droidbridge/api/pkg/input"
)

type Result int

const (
	Passthrough Result = iota
	Consumed
)

// Handler decides per raw event whether it turns into control messages.
type Handler interface {
	Name() string
	CanHandle(ev input.Event) bool
	Handle(ev input.Event) Result
}

// Resetter is implemented by handlers holding per-gesture state that must be
// released when they are taken out of the chain.
type Resetter interface {
	Reset()
}

type Mode int

const (
	ModeDefault Mode = iota
	ModeMapping
)

func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeMapping:
		return "mapping"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "default":
		return ModeDefault, nil
	case "mapping", "key-mapping":
		return ModeMapping, nil
	}
	return ModeDefault, fmt.Errorf("unknown input mode %q", s)
}

// Chain is the ordered handler list for the active mode. In default mode only
// the default handler runs; in mapping mode the key mapping handler gets the
// first look at every event.
type Chain struct {
	mode      Mode
	dflt      Handler
	mapping   Handler
	active    []Handler
	onChanged func(Mode)
}

func NewChain(dflt, mapping Handler) *Chain {
	c := &Chain{dflt: dflt, mapping: mapping}
	c.rebuild()
	return c
}

// OnModeChanged registers a callback run after every effective mode switch.
func (c *Chain) OnModeChanged(fn func(Mode)) {
	c.onChanged = fn
}

func (c *Chain) Mode() Mode {
	return c.mode
}

func (c *Chain) SetMode(mode Mode) {
	if mode == c.mode {
		return
	}
	previous := c.Handlers()
	c.mode = mode
	c.rebuild()
	for _, h := range previous {
		if c.isActive(h) {
			continue
		}
		if r, ok := h.(Resetter); ok {
			r.Reset()
		}
	}
	log.Info().Str("mode", mode.String()).Msg("input mode changed")
	if c.onChanged != nil {
		c.onChanged(mode)
	}
}

// Handlers returns the active handlers in dispatch order.
func (c *Chain) Handlers() []Handler {
	return append([]Handler(nil), c.active...)
}

// Dispatch offers ev to each handler in order and stops at the first one that
// consumes it. Events nobody consumes are dropped.
func (c *Chain) Dispatch(ev input.Event) bool {
	for _, h := range c.active {
		if !h.CanHandle(ev) {
			continue
		}
		if h.Handle(ev) == Consumed {
			return true
		}
	}
	log.Trace().Str("kind", ev.Kind.String()).Msg("input event not consumed")
	return false
}

func (c *Chain) isActive(h Handler) bool {
	for _, a := range c.active {
		if a == h {
			return true
		}
	}
	return false
}

func (c *Chain) rebuild() {
	c.active = c.active[:0]
	if c.mode == ModeMapping && c.mapping != nil {
		c.active = append(c.active, c.mapping)
	}
	if c.dflt != nil {
		c.active = append(c.active, c.dflt)
	}
}
