// Package hub fans blendmate events out to connected UI clients and
// exposes the HTTP surface those clients call back into. It is the
// production EventSink of the bridge: relayed addon traffic and
// connection status arrive here and are broadcast to every UI websocket.
package hub

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lebduska/blendmate/internal/assist"
	"github.com/lebduska/blendmate/internal/bridge"
)

// ErrHubClosed is returned by emits after Close; for the bridge this is a
// forward failure, terminal for the session that hit it.
var ErrHubClosed = errors.New("hub: closed")

// Event is the wrapper UI clients demux on.
type Event struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

const (
	KindStatus  = "status"
	KindMessage = "message"
	KindMonitor = "monitor"
)

// Sender is the outbound half of the relay the API forwards into.
type Sender interface {
	Send(payload string) error
	Connected() bool
}

// client is one UI websocket. A buffered channel decouples broadcasts
// from the socket; the closed flag keeps late broadcasts from racing a
// teardown.
type client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// trySend queues data without blocking. False means the client is backed
// up and should be dropped; a close that already happened counts as sent.
func (c *client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

type Hub struct {
	runner *assist.Runner

	mu         sync.RWMutex
	sender     Sender
	clients    map[*client]bool
	closed     bool
	lastStatus string

	httpParts // ListenAndServe plumbing, see api.go
}

func New(sender Sender, runner *assist.Runner) *Hub {
	h := &Hub{
		sender:     sender,
		runner:     runner,
		clients:    make(map[*client]bool),
		lastStatus: bridge.StatusDisconnected,
	}
	h.initHTTP()
	return h
}

// SetSender wires the addon-facing sender after construction. The daemon
// builds the hub before the relay because each half needs the other.
func (h *Hub) SetSender(s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sender = s
}

func (h *Hub) currentSender() Sender {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sender
}

// EmitStatus broadcasts a bridge status change and remembers it so newly
// connecting clients get the current state immediately.
func (h *Hub) EmitStatus(status string) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.lastStatus = status
	h.mu.Unlock()

	h.broadcast(Event{Kind: KindStatus, Data: status})
	return nil
}

// EmitMessage broadcasts one relayed addon payload verbatim.
func (h *Hub) EmitMessage(payload string) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrHubClosed
	}

	h.broadcast(Event{Kind: KindMessage, Data: payload})
	return nil
}

// PublishMonitor broadcasts a process watcher snapshot. Best effort; a
// closed hub just swallows it.
func (h *Hub) PublishMonitor(snapshot any) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return
	}

	h.broadcast(Event{Kind: KindMonitor, Data: snapshot})
}

func (h *Hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[hub] broadcast marshal error: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.trySend(data) {
			log.Printf("[hub] ui client too slow, disconnecting")
			h.removeClient(c)
		}
	}
}

// addClient registers a UI websocket and hands it the current bridge
// status as its first event.
func (h *Hub) addClient(conn *websocket.Conn) (*client, error) {
	c := newClient(conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return nil, ErrHubClosed
	}
	h.clients[c] = true
	status := h.lastStatus
	h.mu.Unlock()

	data, err := json.Marshal(Event{Kind: KindStatus, Data: status})
	if err == nil {
		c.trySend(data)
	}
	return c, nil
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	c.close()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every UI client and rejects all further emits.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]bool)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	return h.closeHTTP()
}
