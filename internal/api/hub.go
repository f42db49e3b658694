package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"ops-analytics/internal/dashboard"
	"ops-analytics/internal/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is one frame pushed to WebSocket clients.
type Message struct {
	Type string          `json:"type"`
	View *dashboard.View `json:"view"`
}

// Hub streams applied views to WebSocket clients.
type Hub struct {
	session  *dashboard.Session
	observer *observability.Metrics
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*websocket.Conn
	closed  bool
}

// NewHub creates a hub for session.
func NewHub(session *dashboard.Session, observer *observability.Metrics, logger logrus.FieldLogger) *Hub {
	return &Hub{
		session:  session,
		observer: observer,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*websocket.Conn),
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams views until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	if !h.add(id, conn) {
		_ = conn.Close()
		return
	}
	log := h.logger.WithField("client", id)
	log.Debug("websocket client connected")

	views, cancel := h.session.Subscribe()
	done := make(chan struct{})
	go h.readPump(conn, done)

	defer func() {
		cancel()
		h.remove(id)
		_ = conn.Close()
		log.Debug("websocket client disconnected")
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case v, ok := <-views:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Message{Type: "view", View: v}); err != nil {
				log.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func (h *Hub) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		delete(h.clients, id)
	}
	h.observer.WSClients.Set(0)
}

func (h *Hub) add(id string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[id] = conn
	h.observer.WSClients.Set(float64(len(h.clients)))
	return true
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; !ok {
		return
	}
	delete(h.clients, id)
	h.observer.WSClients.Set(float64(len(h.clients)))
}
