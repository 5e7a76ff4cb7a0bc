package services

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event types broadcast to dashboard clients while an update runs.
const (
	EventRunStarted    = "run_started"
	EventRunCompleted  = "run_completed"
	EventRunFailed     = "run_failed"
	EventWeekStarted   = "week_started"
	EventWeekCompleted = "week_completed"
)

// UpdateEvent is one progress notification from the update pipeline.
type UpdateEvent struct {
	Type    string    `json:"type"`
	Season  int       `json:"season,omitempty"`
	Week    int       `json:"week,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins for now
	},
}

// Client is one dashboard connection watching update progress.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans update pipeline events out to every connected dashboard client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *logrus.Logger
	mutex      sync.RWMutex
}

// NewHub creates the broadcast hub. Run must be started before clients
// connect.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run handles client registration and event fan-out.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.logger.WithFields(logrus.Fields{
				"total_clients": h.ConnectionCount(),
			}).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			h.logger.WithFields(logrus.Fields{
				"total_clients": h.ConnectionCount(),
			}).Info("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client buffer full, drop the connection.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Broadcast queues an event for every connected client. Events are dropped
// when the hub backlog is full so the update pipeline never blocks on slow
// dashboards.
func (h *Hub) Broadcast(event UpdateEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal update event")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Debug("Dropped update event, broadcast backlog full")
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades a dashboard request to a progress stream.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection until the client goes away. Inbound
// messages are ignored; the stream is one-way.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Error("WebSocket error")
			}
			break
		}
	}
}

// writePump relays queued events to the connection.
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.logger.WithError(err).Error("Failed to write WebSocket message")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
