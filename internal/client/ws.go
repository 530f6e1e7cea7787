// Package client connects the terminal UI to a running blendmate
// daemon: a reconnecting websocket for the event stream plus HTTP
// helpers for the request/response surface.
package client

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/lebduska/blendmate/internal/hub"
	"github.com/lebduska/blendmate/internal/monitor"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

// WSClient manages the websocket connection to the daemon's /ws stream.
type WSClient struct {
	url string

	mu      sync.Mutex
	writeMu sync.Mutex // serialises conn writes (pings)
	conn    *websocket.Conn
	pingCtx context.CancelFunc // cancels the active ping goroutine
}

// NewWSClient creates a client for the given websocket URL.
func NewWSClient(url string) *WSClient {
	return &WSClient{url: url}
}

// --- Bubble Tea messages ---

// ConnStateMsg reports a daemon connect or disconnect transition.
type ConnStateMsg struct {
	Connected bool
	Err       error
}

// StatusMsg reports the addon link state (connected/disconnected).
type StatusMsg struct{ Status string }

// PeerMsg delivers one relayed addon payload verbatim.
type PeerMsg struct{ Payload string }

// MonitorMsg delivers a Blender process snapshot.
type MonitorMsg struct{ Snapshot monitor.Snapshot }

// wireEvent decodes the hub's event wrapper with the data left raw
// until the kind is known.
type wireEvent struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Listen returns a Bubble Tea command that connects and reports the
// transition. It retries with backoff until the daemon answers.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
			if err != nil {
				log.Printf("ws dial error: %v (retry in %v)", err, delay)
				time.Sleep(delay)
				delay = nextDelay(delay)
				continue
			}

			// Cancel any previous ping goroutine.
			c.mu.Lock()
			if c.pingCtx != nil {
				c.pingCtx()
			}
			pingCtx, pingCancel := context.WithCancel(ctx)
			c.conn = conn
			c.pingCtx = pingCancel
			c.mu.Unlock()

			go c.pingLoop(pingCtx, conn)

			return ConnStateMsg{Connected: true}
		}
	}
}

// nextDelay doubles the retry interval up to reconnectMaxDelay.
func nextDelay(d time.Duration) time.Duration {
	return min(d*2, reconnectMaxDelay)
}

// ReadLoop returns a Bubble Tea command that reads events until one
// dispatches. Start it after a connected ConnStateMsg and re-issue it
// after every delivered message.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return ConnStateMsg{Connected: false, Err: errNotConnected}
		}

		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongTimeout))
			return nil
		})
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				conn.Close()
				return ConnStateMsg{Connected: false, Err: err}
			}

			var ev wireEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}

			if msg := dispatch(ev); msg != nil {
				return msg
			}
		}
	}
}

// pingLoop keeps the connection fresh. It exits when the context is
// cancelled or the client has moved to a newer connection.
func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Close tears down the active connection, if any.
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pingCtx != nil {
		c.pingCtx()
		c.pingCtx = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func dispatch(ev wireEvent) tea.Msg {
	switch ev.Kind {
	case hub.KindStatus:
		var status string
		if json.Unmarshal(ev.Data, &status) == nil {
			return StatusMsg{Status: status}
		}
	case hub.KindMessage:
		var payload string
		if json.Unmarshal(ev.Data, &payload) == nil {
			return PeerMsg{Payload: payload}
		}
	case hub.KindMonitor:
		var snap monitor.Snapshot
		if json.Unmarshal(ev.Data, &snap) == nil {
			return MonitorMsg{Snapshot: snap}
		}
	}
	return nil
}
