// Package bridge is the single-connection relay between the app and the
// Blender addon. One loopback socket accepts addon connections; at most
// one connection at a time owns the outbound slot used by Send. Inbound
// text frames are forwarded verbatim to an EventSink, together with
// connected/disconnected lifecycle events.
package bridge

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// EventSink receives lifecycle status and relayed addon messages. The hub
// is the production sink; tests inject fakes.
type EventSink interface {
	EmitStatus(status string) error
	EmitMessage(payload string) error
}

// Bridge owns the connection slot and the accept loop. The slot is the
// only shared mutable state: sessions install and clear their connection
// under mu, and Send writes through it under the same lock.
type Bridge struct {
	sink     EventSink
	upgrader websocket.Upgrader
	srv      *http.Server

	mu     sync.Mutex
	conn   *websocket.Conn // outbound half of the active session, nil when empty
	connID uint64          // session that installed conn

	lnMu sync.Mutex
	ln   net.Listener

	nextID atomic.Uint64
}

func New(sink EventSink) *Bridge {
	b := &Bridge{
		sink: sink,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
	}
	b.srv = &http.Server{Handler: http.HandlerFunc(b.handleUpgrade)}
	return b
}

// ListenAndServe binds addr once and serves addon sessions until Close. A
// failed bind disables the relay for the process lifetime: it is logged
// and returned, and the caller keeps the rest of the app running. Each
// accepted connection is handled on its own goroutine, so a slow session
// never blocks the next accept; transient accept errors are logged by the
// server and the loop continues.
func (b *Bridge) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("[bridge] bind %s failed, relay disabled: %v", addr, err)
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	b.lnMu.Lock()
	b.ln = ln
	b.lnMu.Unlock()

	log.Printf("[bridge] listening on ws://%s", ln.Addr())
	if err := b.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound relay address, or nil before a successful bind.
func (b *Bridge) Addr() net.Addr {
	b.lnMu.Lock()
	defer b.lnMu.Unlock()
	if b.ln == nil {
		return nil
	}
	return b.ln.Addr()
}

// Close stops accepting new sessions and drops the active one, if any.
func (b *Bridge) Close() error {
	err := b.srv.Close()

	// Upgraded connections are hijacked from the http server, so the
	// active one has to be closed through the slot.
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	return err
}

// Connected reports whether an addon session currently holds the slot.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Send writes one text message to the addon. The slot lock is held for
// the duration of the write so installs and clears cannot interleave with
// it. An empty slot fails with ErrNoConnection; a transport failure comes
// back as *SendError and the broken connection is closed so its session
// tears down.
func (b *Bridge) Send(payload string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return ErrNoConnection
	}
	if err := b.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		b.conn.Close()
		return &SendError{Cause: err}
	}
	return nil
}

func (b *Bridge) install(id uint64, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = conn
	b.connID = id
}

// clearSlot empties the slot only while the given session still owns it.
// A slow-closing session must not erase a newer session's connection.
func (b *Bridge) clearSlot(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connID == id {
		b.conn = nil
		b.connID = 0
	}
}

// emitStatus delivers a status event best-effort. A sink that refuses
// status updates is worth a log line but never takes the relay down.
func (b *Bridge) emitStatus(status string) {
	if err := b.sink.EmitStatus(status); err != nil {
		log.Printf("[bridge] emit %s failed: %v", status, err)
	}
}

// checkOrigin admits native clients (no Origin header) and loopback
// pages. The relay never serves non-local peers.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}
	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}
