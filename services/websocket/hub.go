package websocket

import (
	"encoding/json"
	"sync"
	"time"

	fiberws "github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// conn is the part of a websocket connection the pumps use.
type conn interface {
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Hub maintains the set of active clients and pushes messages to them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	log        *logrus.Entry
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub    *Hub
	conn   conn
	send   chan []byte
	userID uint
	once   sync.Once
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		log:        logrus.WithField("component", "websocket"),
	}
}

// Run processes registrations until stop is closed
func (h *Hub) Run(stop <-chan struct{}) {
	defer close(h.done)
	for {
		select {
		case <-stop:
			h.mutex.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.log.WithField("user_id", client.userID).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if h.clients[client] {
				h.drop(client)
			}
			h.mutex.Unlock()
			h.log.WithField("user_id", client.userID).Info("WebSocket client disconnected")
		}
	}
}

// drop must be called with the write lock held
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	client.once.Do(func() { close(client.send) })
}

// BroadcastToUser sends a message to every connection of the user. Clients whose
// buffer is full are disconnected.
func (h *Hub) BroadcastToUser(userID uint, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Error("Error marshaling WebSocket message")
		return
	}

	var stale []*Client
	h.mutex.RLock()
	for client := range h.clients {
		if client.userID != userID {
			continue
		}
		select {
		case client.send <- data:
		default:
			stale = append(stale, client)
		}
	}
	h.mutex.RUnlock()

	if len(stale) > 0 {
		h.mutex.Lock()
		for _, client := range stale {
			if h.clients[client] {
				h.drop(client)
			}
		}
		h.mutex.Unlock()
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeFiberWS serves a Fiber websocket connection. It blocks until the peer
// disconnects because Fiber closes the connection when the handler returns.
func (h *Hub) ServeFiberWS(c *fiberws.Conn, userID uint) {
	client := h.newClient(c, userID)
	go client.writePump()
	client.readPump()
}

func (h *Hub) newClient(c conn, userID uint) *Client {
	client := &Client{hub: h, conn: c, send: make(chan []byte, 256), userID: userID}
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
	return client
}

func (c *Client) writePump() {
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
				c.conn.WriteMessage(fiberws.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(fiberws.TextMessage, message); err != nil {
				c.hub.log.WithError(err).WithField("user_id", c.userID).Debug("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(fiberws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only keeps the connection alive, clients never send notifications.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if fiberws.IsUnexpectedCloseError(err, fiberws.CloseGoingAway, fiberws.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("user_id", c.userID).Info("WebSocket unexpected close")
			}
			return
		}
	}
}
