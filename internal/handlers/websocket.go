package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/common"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocketHub broadcasts workflow events to room subscribers. It is the
// realtime transport handed to the notification dispatcher; absence of a hub
// is a valid degraded state for the dispatcher.
type WebSocketHub struct {
	logger           arbor.ILogger
	mu               sync.RWMutex
	rooms            map[string]map[*websocket.Conn]bool
	connMutex        map[*websocket.Conn]*sync.Mutex
	throttlers       map[string]*rate.Limiter // Per-event broadcast throttles
	serverInstanceID string                   // Clients use this to detect server restart
}

// NewWebSocketHub creates a hub configured with per-event throttle intervals
func NewWebSocketHub(config *common.WebSocketConfig, logger arbor.ILogger) *WebSocketHub {
	h := &WebSocketHub{
		logger:           logger,
		rooms:            make(map[string]map[*websocket.Conn]bool),
		connMutex:        make(map[*websocket.Conn]*sync.Mutex),
		throttlers:       make(map[string]*rate.Limiter),
		serverInstanceID: uuid.New().String(),
	}

	if config != nil {
		for eventType, intervalStr := range config.ThrottleIntervals {
			duration, err := time.ParseDuration(intervalStr)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("event_type", eventType).
					Str("interval", intervalStr).
					Msg("Failed to parse throttle interval - throttler disabled")
				continue
			}
			h.throttlers[eventType] = rate.NewLimiter(rate.Every(duration), 1)
		}
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket hub initialized")

	return h
}

// HandleConnection upgrades an HTTP request and subscribes the client to the
// requested room (default: production-team).
func (h *WebSocketHub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = "production-team"
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*websocket.Conn]bool)
	}
	h.rooms[room][conn] = true
	h.connMutex[conn] = &sync.Mutex{}
	h.mu.Unlock()

	h.logger.Info().Str("room", room).Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	// Tell the client which server instance it reached
	h.writeToConn(conn, map[string]any{
		"event":              "connected",
		"server_instance_id": h.serverInstanceID,
		"room":               room,
	})

	// Read loop exists only to detect disconnect; inbound messages are ignored
	go func() {
		defer h.removeConn(room, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish broadcasts an event to every subscriber of a room
func (h *WebSocketHub) Publish(room, event string, payload any) error {
	if limiter, ok := h.throttlers[event]; ok && !limiter.Allow() {
		h.logger.Debug().Str("event", event).Msg("Broadcast throttled")
		return nil
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[room]))
	for conn := range h.rooms[room] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		h.logger.Debug().Str("room", room).Str("event", event).Msg("No subscribers in room")
		return nil
	}

	message := map[string]any{
		"event":     event,
		"room":      room,
		"payload":   payload,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	var lastErr error
	for _, conn := range conns {
		if err := h.writeToConn(conn, message); err != nil {
			h.removeConn(room, conn)
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("broadcast to %s partially failed: %w", room, lastErr)
	}
	return nil
}

// writeToConn serializes one write per connection at a time
func (h *WebSocketHub) writeToConn(conn *websocket.Conn, message any) error {
	h.mu.RLock()
	mu, ok := h.connMutex[conn]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("connection already removed")
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *WebSocketHub) removeConn(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[room]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.connMutex, conn)
	conn.Close()
}

// Close disconnects all clients
func (h *WebSocketHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room, clients := range h.rooms {
		for conn := range clients {
			conn.Close()
		}
		delete(h.rooms, room)
	}
	h.connMutex = make(map[*websocket.Conn]*sync.Mutex)
}
