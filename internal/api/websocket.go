package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/chatwire/chatwire/internal/chat"
	"github.com/chatwire/chatwire/internal/infrastructure/config"
	"github.com/chatwire/chatwire/internal/infrastructure/logging"
)

// WebSocket constants.
const (
	// defaultSendBufferSize is the per-client outbound buffer when unset in config.
	defaultSendBufferSize = 256

	// wsWriteWait is the deadline for a single frame write.
	wsWriteWait = 10 * time.Second
)

// wsInbound is a message frame received from a WebSocket client.
type wsInbound struct {
	Content    string `json:"content"`
	SenderType string `json:"sender_type,omitempty"`
	SenderID   string `json:"sender_id,omitempty"`
}

// wsErrorFrame is sent to the client when admission fails. The
// connection stays open; a rejected message is not a protocol error.
type wsErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// wsClient is one live WebSocket connection attached to a session.
// It satisfies chat.Connection so the broadcaster can deliver to it.
type wsClient struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *logging.Logger
}

// Send enqueues a payload for the write pump. It never blocks: a full
// buffer or a closed connection returns an error, which the broadcaster
// treats as an implicit detach.
func (c *wsClient) Send(data []byte) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// close shuts the connection down exactly once.
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// handleWebSocket upgrades the HTTP connection and attaches it to a session.
//
// Unknown sessions are reported after the upgrade with close code 1008,
// matching clients that expect a WebSocket-level rejection rather than
// an HTTP error.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, s.sendBufferSize()),
		done:      make(chan struct{}),
		logger:    s.logger,
	}

	if err := s.registry.AttachConnection(sessionID, client); err != nil {
		s.logger.Debug("websocket attach rejected", "session_id", sessionID)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session not found")
		//nolint:errcheck // Best-effort close handshake before dropping the connection
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
		conn.Close()
		return
	}

	s.registerClient(client)
	s.logger.Debug("websocket client attached", "session_id", sessionID)

	go s.writePump(client)
	go s.readPump(client)
}

// sendBufferSize returns the configured per-client buffer size.
func (s *Server) sendBufferSize() int {
	if s.wsCfg.SendBufferSize > 0 {
		return s.wsCfg.SendBufferSize
	}
	return defaultSendBufferSize
}

// readPump reads message frames from the client and feeds the admission
// pipeline. It owns detachment: when the loop exits for any reason the
// connection is removed from the registry.
func (s *Server) readPump(c *wsClient) {
	defer func() {
		s.registry.DetachConnection(c.sessionID, c)
		s.unregisterClient(c)
		c.close()
		s.logger.Debug("websocket client detached", "session_id", c.sessionID)
	}()

	pingInterval, pongWait := wsIntervals(s.wsCfg)
	if s.wsCfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	}
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Any client frame resets the read deadline.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		s.handleInbound(c, data)
	}
}

// handleInbound admits one client frame. Admission failures go back as
// error frames; the connection is never closed over a rejected message.
func (s *Server) handleInbound(c *wsClient, data []byte) {
	var frame wsInbound
	if err := json.Unmarshal(data, &frame); err != nil {
		c.sendError(ErrCodeInvalidFormat, "invalid JSON message")
		return
	}

	senderType := chat.SenderType(frame.SenderType)
	if frame.SenderType == "" {
		senderType = chat.SenderUser
	}

	_, err := s.pipeline.Admit(context.Background(), chat.AdmitRequest{
		SessionID:  c.sessionID,
		Content:    frame.Content,
		SenderType: senderType,
		SenderID:   frame.SenderID,
	})
	if err != nil {
		code, message := wsAdmissionError(err)
		c.sendError(code, message)
	}
}

// wsAdmissionError maps pipeline sentinels onto error frame codes.
func wsAdmissionError(err error) (code, message string) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		return ErrCodeSessionNotFound, "session not found"
	case errors.Is(err, chat.ErrOffensiveContent):
		return ErrCodeOffensiveContent, "message contains offensive content"
	case errors.Is(err, chat.ErrEmptyContent):
		return ErrCodeValidation, "content must not be empty"
	case errors.Is(err, chat.ErrContentTooLong):
		return ErrCodeValidation, "content exceeds the maximum length"
	case errors.Is(err, chat.ErrInvalidSender):
		return ErrCodeValidation, "sender_type must be user or system"
	default:
		return ErrCodeInternal, "could not admit message"
	}
}

// sendError delivers an error frame through the write pump.
func (c *wsClient) sendError(code, message string) {
	data, err := json.Marshal(wsErrorFrame{
		Type:    "error",
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	if err := c.Send(data); err != nil {
		c.logger.Debug("websocket error frame dropped", "session_id", c.sessionID)
	}
}

// writePump writes outbound payloads and protocol pings to the client.
func (s *Server) writePump(c *wsClient) {
	pingInterval, pongWait := wsIntervals(s.wsCfg)
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			//nolint:errcheck // Best-effort close message
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case message := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wsIntervals returns the ping interval and pong wait from config,
// with sane floors so a zero config cannot stall the ticker.
func wsIntervals(cfg config.WebSocketConfig) (pingInterval, pongWait time.Duration) {
	pingInterval = time.Duration(cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	pongWait = time.Duration(cfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = 10 * time.Second
	}
	return pingInterval, pongWait
}

var _ chat.Connection = (*wsClient)(nil)
