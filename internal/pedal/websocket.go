package pedal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// MessageTypePedal is the only message type that produces a stroke
const MessageTypePedal = "pedal"

// Message is the JSON frame exchanged with pedal sensor bridges
type Message struct {
	Type string `json:"type"`
}

const (
	DefaultReconnectDelay = 2 * time.Second
	maxMessageSize        = 1024
)

// WebSocketSource reads {"type":"pedal"} frames from a sensor bridge,
// reconnecting until its context ends
type WebSocketSource struct {
	url            string
	reconnectDelay time.Duration
	clock          clockwork.Clock
	logger         zerolog.Logger
	dialer         *websocket.Dialer
}

func NewWebSocketSource(url string, reconnectDelay time.Duration, clock clockwork.Clock, logger zerolog.Logger) *WebSocketSource {
	if clock == nil {
		panic("WebSocketSource: clock cannot be nil")
	}
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &WebSocketSource{
		url:            url,
		reconnectDelay: reconnectDelay,
		clock:          clock,
		logger:         logger.With().Str("component", "WebSocketSource").Str("url", url).Logger(),
		dialer:         websocket.DefaultDialer,
	}
}

// Run returns nil once ctx is done. Connection failures are logged and retried.
func (s *WebSocketSource) Run(ctx context.Context, out chan<- Stroke) error {
	for {
		err := s.session(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn().Err(err).Dur("retry_in", s.reconnectDelay).Msg("pedal connection lost")

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(s.reconnectDelay):
		}
	}
}

func (s *WebSocketSource) session(ctx context.Context, out chan<- Stroke) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	s.logger.Info().Msg("pedal connection established")

	// Unblock ReadMessage when the context ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("server closed the connection")
			}
			return err
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Debug().Err(err).Msg("ignoring malformed message")
			continue
		}
		if msg.Type != MessageTypePedal {
			continue
		}
		if !emit(ctx, out, s.clock.Now()) {
			return ctx.Err()
		}
	}
}
