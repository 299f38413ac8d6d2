// Package server streams encoded control messages to the Android input daemon
// over a plain TCP connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/helixml/droidbridge/api/pkg/controlmsg"
	"github.com/helixml/droidbridge/api/pkg/loop"
	"github.com/helixml/droidbridge/api/pkg/pubsub"
)

var (
	ErrServerClosed   = errors.New("server: closed")
	ErrAlreadyStarted = errors.New("server: already started")
)

type Config struct {
	Host string
	// Port 0 binds an ephemeral port.
	Port int
	// QueueCapacity bounds the outbound queue; 0 means DefaultQueueCapacity.
	QueueCapacity int
	// HandshakeSize is the most the peer identification read will consume.
	HandshakeSize    int
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	BindAttempts     uint
	BindDelay        time.Duration
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.HandshakeSize <= 0 {
		c.HandshakeSize = 64
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 2 * time.Second
	}
	if c.BindAttempts == 0 {
		c.BindAttempts = 5
	}
	if c.BindDelay <= 0 {
		c.BindDelay = 500 * time.Millisecond
	}
	return c
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type Status string

const (
	StatusListening Status = "listening"
	StatusConnected Status = "connected"
	StatusStopped   Status = "stopped"
)

// State is published on pubsub.TopicServerState whenever the connection
// state changes.
type State struct {
	Status Status
	Peer   string
}

// Server accepts one active peer at a time. A new connection replaces the
// current one. Messages queued while no peer is attached are kept for the
// next one.
type Server struct {
	cfg    Config
	screen *controlmsg.ScreenInfo
	bus    pubsub.PubSub
	sched  loop.Scheduler
	queue  *Queue

	mu       sync.Mutex
	listener net.Listener
	active   *peer
	peers    map[*peer]struct{}
	started  bool
	stopping bool
	cancel   context.CancelFunc
	// cancelHandshake runs first on Stop, before the queue is flushed.
	cancelHandshake context.CancelFunc

	wg conc.WaitGroup
}

type peer struct {
	conn   net.Conn
	name   string
	cancel context.CancelFunc
	// done is closed once the send loop has returned.
	done chan struct{}
}

// New subscribes the server to pubsub.TopicControlMsg. State changes are
// emitted on bus from the loop behind sched.
func New(cfg Config, screen *controlmsg.ScreenInfo, bus pubsub.PubSub, sched loop.Scheduler) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:    cfg,
		screen: screen,
		bus:    bus,
		sched:  sched,
		queue:  NewQueue(cfg.QueueCapacity),
		peers:  map[*peer]struct{}{},
	}
	bus.Subscribe(pubsub.TopicControlMsg, s, s.onControlMsg)
	return s
}

func (s *Server) Queue() *Queue {
	return s.queue
}

// Addr is the bound listener address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Connected reports whether a peer is currently attached.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Send encodes msg for the current target resolution and queues it.
func (s *Server) Send(msg controlmsg.Message) {
	if e := log.Debug(); e.Enabled() {
		e.Stringer("type", msg.Type()).Interface("msg", msg).Msg("send")
	}
	if s.queue.Push(controlmsg.EncodeFor(s.screen, msg)) {
		log.Trace().Uint64("dropped", s.queue.Dropped()).Msg("outbound queue full, dropped oldest message")
	}
}

func (s *Server) onControlMsg(ev pubsub.Event) {
	msg, ok := ev.Data.(controlmsg.Message)
	if !ok {
		log.Warn().Interface("data", ev.Data).Msg("ignoring control message event with unexpected payload")
		return
	}
	s.Send(msg)
}

// Start binds the listener, retrying while the address is busy, and serves
// in the background until Stop.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return ErrServerClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	addr := s.cfg.Address()
	listener, err := retry.DoWithData(func() (net.Listener, error) {
		var lc net.ListenConfig
		return lc.Listen(ctx, "tcp", addr)
	},
		retry.Context(ctx),
		retry.Attempts(s.cfg.BindAttempts),
		retry.Delay(s.cfg.BindDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Str("addr", addr).Msg("failed to bind control server, retrying")
		}),
	)
	if err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	acceptCtx, cancel := context.WithCancel(context.Background())
	handshakes, cancelHandshake := context.WithCancel(acceptCtx)
	s.mu.Lock()
	s.listener = listener
	s.cancel = cancel
	s.cancelHandshake = cancelHandshake
	s.mu.Unlock()

	log.Info().Str("addr", listener.Addr().String()).Int("queue_capacity", s.queue.Cap()).Msg("control server listening")
	s.publish(StatusListening, "")

	s.wg.Go(func() {
		s.acceptLoop(acceptCtx, handshakes, listener)
	})
	return nil
}

func (s *Server) acceptLoop(ctx, handshakes context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("failed to accept control connection")
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		s.wg.Go(func() {
			s.handle(ctx, handshakes, conn)
		})
	}
}

func (s *Server) handle(ctx, handshakes context.Context, conn net.Conn) {
	addr := conn.RemoteAddr().String()
	log.Info().Str("addr", addr).Msg("control peer connected")

	// a peer still identifying itself must not hold up Stop
	stopClose := context.AfterFunc(handshakes, func() {
		_ = conn.Close()
	})
	name, err := s.readHandshake(conn)
	if !stopClose() {
		_ = conn.Close()
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("control peer handshake failed")
		_ = conn.Close()
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	p := &peer{conn: conn, name: name, cancel: cancel, done: make(chan struct{})}
	if !s.attach(p) {
		cancel()
		_ = conn.Close()
		return
	}
	defer s.detach(p)

	log.Info().Str("addr", addr).Str("peer", name).Msg("control peer identified")
	s.publish(StatusConnected, name)

	// The peer never sends after the handshake; reading is how a close on
	// its side is noticed while the queue is idle.
	s.wg.Go(func() {
		buf := make([]byte, 256)
		for {
			if _, err := conn.Read(buf); err != nil {
				cancel()
				return
			}
		}
	})

	s.sendLoop(connCtx, p)
	close(p.done)
}

func (s *Server) readHandshake(conn net.Conn) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout)); err != nil {
		return "", err
	}
	buf := make([]byte, s.cfg.HandshakeSize)
	n, err := conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("failed to read peer identification: %w", err)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return "", err
	}
	return strings.TrimRight(string(buf[:n]), "\x00\r\n "), nil
}

func (s *Server) sendLoop(ctx context.Context, p *peer) {
	for {
		msg, err := s.queue.Pop(ctx)
		if err != nil {
			return
		}
		if msg == nil {
			log.Debug().Str("peer", p.name).Msg("send loop stopping")
			return
		}
		if err := p.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			s.queue.Requeue(msg)
			return
		}
		n, err := p.conn.Write(msg)
		if err != nil {
			if n == 0 {
				s.queue.Requeue(msg)
			}
			if ctx.Err() == nil {
				log.Warn().Err(err).Str("peer", p.name).Msg("failed to write control message, dropping connection")
			}
			return
		}
	}
}

func (s *Server) attach(p *peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	if old := s.active; old != nil {
		log.Info().Str("old", old.name).Str("new", p.name).Msg("replacing control peer")
		old.cancel()
		_ = old.conn.Close()
	}
	s.active = p
	s.peers[p] = struct{}{}
	return true
}

func (s *Server) detach(p *peer) {
	p.cancel()
	_ = p.conn.Close()

	s.mu.Lock()
	delete(s.peers, p)
	wasActive := s.active == p
	if wasActive {
		s.active = nil
	}
	stopping := s.stopping
	s.mu.Unlock()

	log.Info().Str("peer", p.name).Msg("control peer disconnected")
	if wasActive && !stopping {
		s.publish(StatusListening, "")
	}
}

// Stop closes the listener and queues a sentinel behind the pending
// messages. The active peer is given until the shutdown timeout to receive
// everything ahead of the sentinel, then live connections are closed and
// every goroutine is awaited, bounded by ctx and the same timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	listener := s.listener
	cancel := s.cancel
	cancelHandshake := s.cancelHandshake
	active := s.active
	s.mu.Unlock()

	if cancelHandshake != nil {
		cancelHandshake()
	}

	timer := time.NewTimer(s.cfg.ShutdownTimeout)
	defer timer.Stop()

	s.bus.ReleaseOwner(s)

	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Warn().Err(err).Msg("failed to close control listener")
		}
	}

	s.queue.Push(nil)

	var err error
	if active != nil {
		select {
		case <-active.done:
		case <-timer.C:
			err = fmt.Errorf("control server did not flush queued messages within %s", s.cfg.ShutdownTimeout)
		case <-ctx.Done():
			err = fmt.Errorf("control server stop: %w", ctx.Err())
		}
	}

	s.mu.Lock()
	for p := range s.peers {
		_ = p.conn.Close()
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	if err == nil {
		select {
		case <-done:
		case <-timer.C:
			err = fmt.Errorf("control server did not stop within %s", s.cfg.ShutdownTimeout)
		case <-ctx.Done():
			err = fmt.Errorf("control server stop: %w", ctx.Err())
		}
	}

	s.publish(StatusStopped, "")
	log.Info().Err(err).Msg("control server stopped")
	return err
}

func (s *Server) publish(status Status, peerName string) {
	state := State{Status: status, Peer: peerName}
	s.sched.Post(func() {
		s.bus.Emit(pubsub.TopicServerState, s, state)
	})
}
