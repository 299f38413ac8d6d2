package wsinput

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"

	"github.com/helixml/droidbridge/api/pkg/controlmsg"
	"github.com/helixml/droidbridge/api/pkg/input"
	"github.com/helixml/droidbridge/api/pkg/loop"
)

const (
	DefaultAddress = ":10722"
	DefaultPath    = "/ws/input"

	maxFrameSize    = 64
	shutdownTimeout = 2 * time.Second
)

type Config struct {
	Address string
	Path    string
}

func (c Config) withDefaults() Config {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	return c
}

// DispatchFunc receives decoded events on the loop goroutine.
type DispatchFunc func(ev input.Event)

// Server is the WebSocket input endpoint. Each connection gets its own
// Decoder; decoded events are posted to the loop in arrival order.
type Server struct {
	cfg      Config
	screen   *controlmsg.ScreenInfo
	sched    loop.Scheduler
	dispatch DispatchFunc

	upgrader websocket.Upgrader
	router   *mux.Router
	conns    *xsync.MapOf[string, *websocket.Conn]
}

func New(cfg Config, screen *controlmsg.ScreenInfo, sched loop.Scheduler, dispatch DispatchFunc) *Server {
	s := &Server{
		cfg:      cfg.withDefaults(),
		screen:   screen,
		sched:    sched,
		dispatch: dispatch,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns: xsync.NewMapOf[string, *websocket.Conn](),
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc(s.cfg.Path, s.handleInput).Methods("GET")
	s.router.HandleFunc("/status", s.handleStatus).Methods("GET")
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Connections returns the number of open input connections.
func (s *Server) Connections() int {
	return s.conns.Size()
}

// ListenAndServe serves until ctx is done, then closes every input
// connection.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()
	log.Info().Str("address", lis.Addr().String()).Str("path", s.cfg.Path).Msg("websocket input listening")

	select {
	case err := <-errCh:
		s.closeAll()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Shutdown does not touch hijacked connections
	s.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("websocket input shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"connections": s.Connections()})
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade input websocket")
		return
	}
	conn.SetReadLimit(maxFrameSize)

	id := uuid.New().String()
	s.conns.Store(id, conn)
	logger := log.With().Str("conn", id).Str("remote", r.RemoteAddr).Logger()
	logger.Info().Msg("input client connected")

	dec := NewDecoder(s.screen)
	defer func() {
		s.conns.Delete(id)
		conn.Close()
		// Decoder state is handed to the loop, nothing else touches it now
		s.post(dec.Release())
		logger.Info().Msg("input client disconnected")
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("input websocket read error")
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		events, err := dec.Decode(data)
		if err != nil {
			logger.Debug().Err(err).Msg("dropping input frame")
			continue
		}
		s.post(events)
	}
}

func (s *Server) post(events []input.Event) {
	if len(events) == 0 {
		return
	}
	s.sched.Post(func() {
		for _, ev := range events {
			s.dispatch(ev)
		}
	})
}

func (s *Server) closeAll() {
	s.conns.Range(func(_ string, conn *websocket.Conn) bool {
		_ = conn.Close()
		return true
	})
}
