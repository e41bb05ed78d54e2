package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message types
const (
	MessageTypeConnected    = "connected"
	MessageTypeAuthResponse = "auth_response"
	MessageTypeNotification = "notification"
)

const writeWait = 10 * time.Second

// ErrNotConnected is returned when the user has no open connection
var ErrNotConnected = errors.New("user not connected")

// Notification represents a message sent over WebSocket
type Notification struct {
	Type         string      `json:"type"`
	Message      string      `json:"message"`
	Title        string      `json:"title,omitempty"`
	Data         interface{} `json:"data,omitempty"`
	UserID       string      `json:"userID,omitempty"`
	RequiresAuth bool        `json:"requiresAuth,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	UserID        primitive.ObjectID
	Conn          *websocket.Conn
	Authenticated bool

	writeMu sync.Mutex
}

// WriteJSON serializes writes; gorilla connections allow one writer at a time
func (c *Client) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(v)
}

// Hub maintains the set of active clients. A user may be connected from
// several devices at once.
type Hub struct {
	clients                map[primitive.ObjectID]map[*Client]bool
	unauthenticatedClients map[*Client]bool
	register               chan *Client
	unregister             chan *Client
	done                   chan struct{}
	mu                     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:                make(map[primitive.ObjectID]map[*Client]bool),
		unauthenticatedClients: make(map[*Client]bool),
		register:               make(chan *Client),
		unregister:             make(chan *Client),
		done:                   make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				h.addLocked(client)
			} else {
				h.unauthenticatedClients[client] = true
			}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			client.Conn.Close()
		case <-h.done:
			h.mu.Lock()
			for _, set := range h.clients {
				for client := range set {
					client.Conn.Close()
				}
			}
			for client := range h.unauthenticatedClients {
				client.Conn.Close()
			}
			h.clients = make(map[primitive.ObjectID]map[*Client]bool)
			h.unauthenticatedClients = make(map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Stop closes every connection and ends Run
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) addLocked(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok {
		set = make(map[*Client]bool)
		h.clients[client.UserID] = set
	}
	set[client] = true
}

func (h *Hub) removeLocked(client *Client) {
	delete(h.unauthenticatedClients, client)
	if set, ok := h.clients[client.UserID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.clients, client.UserID)
		}
	}
}

// SendToUser sends a message to every connection of a user
func (h *Hub) SendToUser(userID primitive.ObjectID, notification Notification) error {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return ErrNotConnected
	}
	var lastErr error
	delivered := 0
	for _, client := range targets {
		if err := client.WriteJSON(notification); err != nil {
			lastErr = err
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return lastErr
	}
	return nil
}

// IsConnected reports whether the user has an open connection
func (h *Hub) IsConnected(userID primitive.ObjectID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// AuthenticateClient moves a client from unauthenticated to authenticated state
func (h *Hub) AuthenticateClient(client *Client, userID primitive.ObjectID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.unauthenticatedClients, client)
	client.Authenticated = true
	client.UserID = userID
	h.addLocked(client)
}
