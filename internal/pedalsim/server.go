// Package pedalsim serves a stream of simulated pedal strokes over WebSocket,
// standing in for a sensor bridge when no hardware is at hand.
package pedalsim

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/lowaak/aero-race/internal/pedal"
)

const (
	DefaultAddr = ":8001"
	// DefaultRPM is 60 crank rpm at the stock gear ratio, in fan revolutions
	DefaultRPM = 60 * 9.44

	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Config of a simulator
type Config struct {
	Addr string
	RPM  float64 // Strokes per minute sent to every client
}

// Server sends {"type":"pedal"} to each connected client at a fixed rate
type Server struct {
	cfg      Config
	interval time.Duration
	clock    clockwork.Clock
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id          string
	conn        *websocket.Conn
	done        chan struct{}
	connectedAt time.Time
}

func NewServer(cfg Config, clock clockwork.Clock, logger zerolog.Logger) *Server {
	if clock == nil {
		panic("Server: clock cannot be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if !(cfg.RPM > 0) {
		cfg.RPM = DefaultRPM
	}
	return &Server{
		cfg:      cfg,
		interval: time.Duration(60 / cfg.RPM * float64(time.Second)),
		clock:    clock,
		logger:   logger.With().Str("component", "pedalsim").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local tool; browsers on any origin may connect
				return true
			},
		},
		clients: make(map[string]*client),
	}
}

// Interval between two strokes
func (s *Server) Interval() time.Duration {
	return s.interval
}

// Handler routes /ws and /healthz
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.serveWS)
	r.Get("/", s.serveWS)
	r.Get("/healthz", s.serveHealth)
	return r
}

// Run listens on cfg.Addr until ctx is done
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Dur("interval", s.interval).Msg("pedal simulator listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	s.closeClients()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	c := &client{
		id:          uuid.New().String(),
		conn:        conn,
		done:        make(chan struct{}),
		connectedAt: s.clock.Now(),
	}
	s.register(c)

	go s.writePump(c)
	go s.readPump(c)
}

type healthResponse struct {
	Status  string  `json:"status"`
	Clients int     `json:"clients"`
	RPM     float64 `json:"rpm"`
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Clients: s.ClientCount(),
		RPM:     s.cfg.RPM,
	})
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c.id] = c
	total := len(s.clients)
	s.mu.Unlock()

	s.logger.Info().Str("connection_id", c.id).Int("total_connections", total).Msg("client connected")
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c.id]
	delete(s.clients, c.id)
	s.mu.Unlock()

	if ok {
		s.logger.Info().
			Str("connection_id", c.id).
			Dur("connected_for", s.clock.Since(c.connectedAt)).
			Msg("client disconnected")
	}
}

func (s *Server) closeClients() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		c.conn.Close()
	}
}

func (s *Server) writePump(c *client) {
	ticker := s.clock.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		s.unregister(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.Chan():
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(pedal.Message{Type: pedal.MessageTypePedal}); err != nil {
				s.logger.Debug().Err(err).Str("connection_id", c.id).Msg("failed to write pedal message")
				return
			}
		}
	}
}

// readPump only watches for the client going away
func (s *Server) readPump(c *client) {
	defer close(c.done)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Str("connection_id", c.id).Msg("unexpected WebSocket close")
			}
			return
		}
	}
}
