// Package stream pushes per-frame decisions to WebSocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Default hub configuration constants.
const (
	defaultBuffer       = 64
	defaultWriteTimeout = 10 * time.Second
	defaultPongWait     = 60 * time.Second
	defaultPingInterval = 50 * time.Second
	readLimit           = 4096
)

// Message types sent to clients.
const (
	TypeHello        = "hello"
	TypeDecision     = "decision"
	TypeSessionEnded = "session_ended"
)

// Message is the envelope of every frame written to a client.
type Message struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type client struct {
	id        string
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Hub fans decisions out to the clients subscribed to their session.
// A slow client never blocks the publisher; its overflow is dropped.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*client]struct{}
	count    int

	upgrader     websocket.Upgrader
	buffer       int
	writeTimeout time.Duration
	pongWait     time.Duration
	pingInterval time.Duration
	exists       func(sessionID string) bool
	logger       logger.Logger
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		sessions:     make(map[string]map[*client]struct{}),
		buffer:       defaultBuffer,
		writeTimeout: defaultWriteTimeout,
		pongWait:     defaultPongWait,
		pingInterval: defaultPingInterval,
		exists:       func(string) bool { return true },
		logger:       logger.Get().Named("stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades GET /stream?session_id=... to a WebSocket.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	if !h.exists(sessionID) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{
		id:        uuid.NewString(),
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, h.buffer),
	}
	c.send <- encode(Message{Type: TypeHello, SessionID: sessionID, Payload: map[string]string{"client_id": c.id}})
	h.register(c)
	h.logger.Debug(r.Context(), "stream client connected",
		logger.String("session_id", sessionID), logger.String("client_id", c.id))

	go h.writePump(c)
	h.readPump(c)
}

// Publish sends d to every subscriber of its session.
func (h *Hub) Publish(d *model.Decision) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.sessions[d.SessionID]
	if len(subs) == 0 {
		return
	}
	msg := encode(Message{Type: TypeDecision, SessionID: d.SessionID, Payload: d})
	for c := range subs {
		select {
		case c.send <- msg:
		default:
			metrics.RecordStreamDropped()
		}
	}
}

// CloseSession tells the session's subscribers it ended and disconnects them.
func (h *Hub) CloseSession(sessionID, reason string) {
	h.mu.Lock()
	subs := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.count -= len(subs)
	metrics.UpdateStreamClients(h.count)
	h.mu.Unlock()

	msg := encode(Message{Type: TypeSessionEnded, SessionID: sessionID, Payload: map[string]string{"reason": reason}})
	for c := range subs {
		select {
		case c.send <- msg:
		default:
		}
		c.close()
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.sessions
	h.sessions = make(map[string]map[*client]struct{})
	h.count = 0
	metrics.UpdateStreamClients(0)
	h.mu.Unlock()

	for _, subs := range all {
		for c := range subs {
			c.close()
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.sessions[c.sessionID]
	if !ok {
		subs = make(map[*client]struct{})
		h.sessions[c.sessionID] = subs
	}
	subs[c] = struct{}{}
	h.count++
	metrics.UpdateStreamClients(h.count)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.sessions[c.sessionID]
	if !ok {
		return
	}
	if _, ok := subs[c]; !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.sessions, c.sessionID)
	}
	h.count--
	metrics.UpdateStreamClients(h.count)
}

// readPump discards client input and keeps the read deadline fresh.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug(context.Background(), "stream client error",
					logger.String("client_id", c.id), logger.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(m Message) []byte {
	m.Timestamp = time.Now().UnixMilli()
	b, err := json.Marshal(m)
	if err != nil {
		b, _ = json.Marshal(Message{Type: m.Type, SessionID: m.SessionID, Timestamp: m.Timestamp})
	}
	return b
}
