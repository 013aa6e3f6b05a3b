package notify

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"stockex-offline-sync/internal/model"

	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	clientBuffer  = 16
	historyLength = 50
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	closed bool
}

// Hub logs operator notifications and pushes them to websocket clients.
// A client whose send buffer is full is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*client
	history []model.Notification
	now     func() time.Time
}

// NewHub creates a notification hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
		now:     time.Now,
	}
}

// Notify records a notification and fans it out. It never blocks.
func (h *Hub) Notify(level model.Level, message string) {
	n := model.Notification{Level: level, Message: message, At: h.now().UTC()}
	log.Printf("[Notify] %s: %s", level, message)

	data, err := json.Marshal(n)
	if err != nil {
		log.Printf("[Notify] Failed to encode notification: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = append(h.history, n)
	if len(h.history) > historyLength {
		h.history = h.history[len(h.history)-historyLength:]
	}

	for conn, c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("[Notify] Dropping slow client %s", conn.RemoteAddr())
			h.removeLocked(conn)
		}
	}
}

// Recent returns the latest notifications, oldest first.
func (h *Hub) Recent() []model.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.Notification(nil), h.history...)
}

// ClientCount returns the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams notifications until the client
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Notify] WebSocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[conn] = c
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()

	h.readPump(conn)
	h.remove(conn)
	<-done
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		h.removeLocked(conn)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn)
}

func (h *Hub) removeLocked(conn *websocket.Conn) {
	c, ok := h.clients[conn]
	if !ok || c.closed {
		return
	}
	c.closed = true
	delete(h.clients, conn)
	close(c.send)
}

// readPump discards inbound frames and returns when the peer goes away.
func (h *Hub) readPump(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Notify] WebSocket read error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
