package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crossblades/server/internal/telemetry"
	"crossblades/server/proto"
	"crossblades/server/sim"
)

const (
	sessionWriteWait     = 5 * time.Second
	sessionHandshakeWait = 10 * time.Second
)

// SessionConfig names the room a connection should land in.
type SessionConfig struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	URL string
	// Code joins an existing room; empty creates a new one.
	Code string
	// Archetype picks the fighter body. Unknown names fall back server-side.
	Archetype string
	Logger    *log.Logger
}

// Session is one client's connection to the duel server. It owns the
// websocket, serializes writes, and decodes inbound traffic into envelopes
// for its owner. Send methods are safe for concurrent use; Pump must have a
// single caller.
type Session struct {
	conn   *websocket.Conn
	logger telemetry.Logger

	writeMu sync.Mutex

	assign proto.AssignMessage

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects, performs the room handshake, and verifies the server was
// built from the same tuning constants. A refused handshake (unknown code,
// full room) comes back as an error carrying the server's reason.
func Dial(ctx context.Context, cfg SessionConfig) (*Session, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, nil)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{
		conn:   conn,
		logger: telemetry.WrapLogger(logger),
		closed: make(chan struct{}),
	}

	var hello any
	if cfg.Code != "" {
		hello = proto.JoinRoomMessage{
			Ver:       proto.ProtocolVersion,
			Type:      proto.TypeJoinRoom,
			Code:      cfg.Code,
			Archetype: cfg.Archetype,
		}
	} else {
		hello = proto.CreateRoomMessage{
			Ver:       proto.ProtocolVersion,
			Type:      proto.TypeCreateRoom,
			Archetype: cfg.Archetype,
		}
	}
	if err := s.send(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake send: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(sessionHandshakeWait))
	env, err := s.read()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake read: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	switch env.Type {
	case proto.TypeAssign:
	case proto.TypeError:
		conn.Close()
		return nil, fmt.Errorf("server refused: %s (%s)", env.Code, env.Message)
	default:
		conn.Close()
		return nil, fmt.Errorf("unexpected %q during handshake", env.Type)
	}

	if env.ConstantsHash != sim.Fingerprint() {
		conn.Close()
		return nil, fmt.Errorf("tuning constants mismatch: server %s, client %s",
			env.ConstantsHash, sim.Fingerprint())
	}

	s.assign = proto.AssignMessage{
		Ver:           env.Ver,
		Type:          env.Type,
		PlayerID:      env.PlayerID,
		Slot:          env.Slot,
		Code:          env.Code,
		ConstantsHash: env.ConstantsHash,
	}
	return s, nil
}

// Assign returns the slot binding the server answered the handshake with.
func (s *Session) Assign() proto.AssignMessage {
	return s.assign
}

// SendInput transmits one sequenced frame of buttons.
func (s *Session) SendInput(seq uint64, frame sim.InputFrame) error {
	return s.send(proto.InputMessage{
		Ver:        proto.ProtocolVersion,
		Type:       proto.TypeInput,
		Seq:        seq,
		InputFrame: frame,
	})
}

// Ping sends one latency probe stamped with the local clock.
func (s *Session) Ping() error {
	return s.send(proto.PingMessage{
		Ver:    proto.ProtocolVersion,
		Type:   proto.TypePing,
		SentAt: time.Now().UnixMilli(),
	})
}

// StartPings probes latency on the given cadence until the session closes.
func (s *Session) StartPings(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.closed:
				return
			case <-ticker.C:
				if err := s.Ping(); err != nil {
					return
				}
			}
		}
	}()
}

// Pump reads server messages and hands each to fn until the connection
// dies, returning the error that ended it. Malformed server frames are
// logged and skipped.
func (s *Session) Pump(fn func(proto.ServerEnvelope)) error {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		var env proto.ServerEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			s.logger.Printf("discarding malformed server message: %v", err)
			continue
		}
		fn(env)
	}
}

// Close tears the connection down. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

func (s *Session) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(sessionWriteWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// read decodes exactly one server frame. Only the handshake uses it; match
// traffic goes through Pump.
func (s *Session) read() (proto.ServerEnvelope, error) {
	var env proto.ServerEnvelope
	_, payload, err := s.conn.ReadMessage()
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return env, fmt.Errorf("malformed server message: %w", err)
	}
	return env, nil
}
