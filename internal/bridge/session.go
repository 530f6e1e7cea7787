package bridge

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// session is one accepted addon connection. Its goroutine owns the read
// side; the write side lives in the bridge slot while the session is
// active.
type session struct {
	b    *Bridge
	id   uint64
	conn *websocket.Conn

	disconnected sync.Once // at-most-once "disconnected" emission
}

// handleUpgrade is the entry point for every accepted connection. The
// handshake either promotes the connection into a session or ends it with
// a lone "disconnected" status.
func (b *Bridge) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error to the peer.
		log.Printf("[bridge] handshake with %s failed: %v", r.RemoteAddr, err)
		b.emitStatus(StatusDisconnected)
		return
	}

	s := &session{b: b, id: b.nextID.Add(1), conn: conn}
	log.Printf("[bridge] addon connected from %s", conn.RemoteAddr())

	b.install(s.id, conn)
	b.emitStatus(StatusConnected)

	defer s.close()
	s.relay()
}

// relay forwards inbound text frames in arrival order until the peer goes
// away, the read side fails, or the sink stops accepting messages. Frames
// that are not text carry nothing for the UI and are skipped.
func (s *session) relay() {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[bridge] session %d read error: %v", s.id, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := s.b.sink.EmitMessage(string(data)); err != nil {
			log.Printf("[bridge] session %d: cannot forward message, closing: %v", s.id, err)
			s.close()
			return
		}
	}
}

// close is the terminal transition: drop the socket, release the slot if
// this session still owns it, and emit "disconnected" exactly once. Safe
// to call from every exit path, including more than one for the same
// session.
func (s *session) close() {
	s.conn.Close()
	s.b.clearSlot(s.id)
	s.disconnected.Do(func() {
		s.b.emitStatus(StatusDisconnected)
	})
}
