package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	serverPongWait = 60 * time.Second
	serverPingTick = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// hub tracks update-feed subscribers keyed by session id and pushes
// cart change notices to the sessions they belong to.
type hub struct {
	mu      sync.RWMutex
	clients map[string]map[*feedClient]struct{}
}

type feedClient struct {
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[string]map[*feedClient]struct{})}
}

func (h *hub) register(c *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.sessionID] == nil {
		h.clients[c.sessionID] = make(map[*feedClient]struct{})
	}
	h.clients[c.sessionID][c] = struct{}{}
}

func (h *hub) unregister(c *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.sessionID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
			if len(set) == 0 {
				delete(h.clients, c.sessionID)
			}
		}
	}
}

// notifyCartUpdated tells every subscriber of sessionID that its cart changed.
func (h *hub) notifyCartUpdated(sessionID string) {
	msg := []byte(`{"event":"cart.updated"}`)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[sessionID] {
		select {
		case c.send <- msg:
		default:
			// Slow subscriber; it will reconnect.
		}
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("x-session-id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "x-session-id header is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := &feedClient{sessionID: sessionID, conn: conn, send: make(chan []byte, 8)}
	h.register(client)

	go client.writePump(h)
	go client.readPump(h)
}

func (c *feedClient) readPump(h *hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(serverPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(serverPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *feedClient) writePump(h *hub) {
	ticker := time.NewTicker(serverPingTick)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
