package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds every outbound write so one stalled connection cannot
// wedge a room's broadcast pass.
const writeWait = 5 * time.Second

// Session wraps an upgraded connection with the write discipline a room
// expects from a peer: one writer at a time, each write under a deadline.
// The room goroutine and the read loop both send through it.
type Session struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewSession wraps an upgraded websocket connection.
func NewSession(conn *websocket.Conn) *Session {
	return &Session{conn: conn}
}

// Send writes one text frame. It implements server.Peer.
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close tears the connection down. It implements server.Peer.
func (s *Session) Close() error {
	return s.conn.Close()
}

// reject sends a close frame naming the reason and drops the connection.
// Used for handshakes that never bind to a room.
func (s *Session) reject(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage, message)
	s.conn.Close()
}
