package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NancyGarg/transcribe-ai/core/recording"
	"github.com/NancyGarg/transcribe-ai/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// MessageSnapshot is the first message on every connection.
const MessageSnapshot recording.EventType = "snapshot"

// WSMessage is one event frame. Controller events are flattened into it.
type WSMessage struct {
	recording.Event
	Snapshot  *recording.Snapshot `json:"snapshot,omitempty"`
	Timestamp int64               `json:"timestamp"`
}

// Client is one WebSocket subscriber.
type Client struct {
	Hub  *EventHub
	Conn *websocket.Conn
	Send chan []byte

	// hello builds the first frame. The hub calls it while registering, so
	// nothing broadcast after it runs can be missed.
	hello func() []byte
}

// EventHub fans controller events out to connected clients.
type EventHub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu       sync.RWMutex
	done     chan struct{}
	stopOnce sync.Once

	upgrader websocket.Upgrader
}

// NewEventHub creates a hub. Call Run to start it.
func NewEventHub() *EventHub {
	return &EventHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run is the hub main loop.
func (h *EventHub) Run() {
	for {
		select {
		case client := <-h.register:
			var first []byte
			if client.hello != nil {
				first = client.hello()
			}
			h.mu.Lock()
			if first != nil {
				client.Send <- first
			}
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debug("websocket client registered", logger.Int("clients", h.Len()))

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.Send <- message:
				default:
					logger.Warn("websocket client too slow, dropping")
					h.removeClient(client)
				}
			}

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop ends Run and closes every client.
func (h *EventHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Len returns the number of connected clients.
func (h *EventHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventHub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

func (h *EventHub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]bool)
}

// Register adds a client. It is a no-op after Stop.
func (h *EventHub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client. It is a no-op after Stop.
func (h *EventHub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues msg for every client. Messages are dropped when the queue
// is full so publishers never block.
func (h *EventHub) Broadcast(msg *WSMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to encode websocket message", logger.ErrorField(err))
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		logger.Warn("websocket broadcast queue full, dropping event", logger.String("type", string(msg.Type)))
	}
}

// Attach forwards every event of ctrl to the hub.
func (h *EventHub) Attach(ctrl Controller) func() {
	return ctrl.Subscribe(func(ev recording.Event) {
		h.Broadcast(&WSMessage{Event: ev})
	})
}

// EventsHandler upgrades the connection and streams events, starting with a
// snapshot of the current state.
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade WebSocket", logger.ErrorField(err))
		return
	}

	client := &Client{Hub: s.hub, Conn: conn, Send: make(chan []byte, sendBuffer), hello: s.snapshotFrame}
	s.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

func (s *Server) snapshotFrame() []byte {
	snapshot := s.ctrl.Snapshot()
	data, err := json.Marshal(&WSMessage{
		Event:     recording.Event{Type: MessageSnapshot},
		Snapshot:  &snapshot,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		logger.Error("Failed to encode snapshot", logger.ErrorField(err))
		return nil
	}
	return data
}

// ReadPump drains client frames so pongs and close frames are handled.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", logger.ErrorField(err))
			}
			return
		}
	}
}

// WritePump writes queued messages and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
