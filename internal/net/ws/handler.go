// Package ws binds websocket connections to duel rooms. The handshake is
// in-band: the first frame a client sends must create or join a room, and
// every frame after it is input or ping traffic for the bound slot.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"crossblades/server"
	"crossblades/server/internal/telemetry"
	"crossblades/server/logging"
	"crossblades/server/logging/network"
	"crossblades/server/proto"
)

// handshakeWait bounds how long a fresh connection may sit silent before
// its first frame arrives.
const handshakeWait = 10 * time.Second

// HandlerConfig carries the optional collaborators for a Handler.
type HandlerConfig struct {
	Logger    *log.Logger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
}

// Handler upgrades HTTP requests and speaks the duel protocol over them.
type Handler struct {
	hub      *server.Hub
	logger   telemetry.Logger
	pub      logging.Publisher
	metrics  telemetry.Metrics
	upgrader websocket.Upgrader
}

// NewHandler builds a Handler around the hub.
func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.WrapMetrics(nil)
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   telemetry.WrapLogger(logger),
		pub:      pub,
		metrics:  metrics,
		upgrader: upgrader,
	}
}

// ServeHTTP upgrades the request and runs the connection to completion.
func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	h.metrics.Add("ws_connections_total", 1)

	sess := NewSession(conn)
	room, res, ok := h.handshake(conn, sess)
	if !ok {
		return
	}

	h.readLoop(conn, sess, room, res)
}

// handshake reads the connection's first frame and binds it to a room. On
// failure it answers with an error message, drops the connection, and
// reports false.
func (h *Handler) handshake(conn *websocket.Conn, sess *Session) (*server.Room, server.JoinResult, bool) {
	conn.SetReadDeadline(time.Now().Add(handshakeWait))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, server.JoinResult{}, false
	}
	conn.SetReadDeadline(time.Time{})

	var msg proto.ClientEnvelope
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.logger.Printf("discarding malformed handshake from %s: %v", conn.RemoteAddr(), err)
		h.refuse(sess, proto.ErrBadHandshake, "first message must create or join a room")
		return nil, server.JoinResult{}, false
	}

	var room *server.Room
	switch msg.Type {
	case proto.TypeCreateRoom:
		room = h.hub.CreateRoom()
	case proto.TypeJoinRoom:
		found, ok := h.hub.FindRoom(msg.Code)
		if !ok {
			h.metrics.Add("ws_handshake_rejects_total", 1)
			h.refuse(sess, proto.ErrRoomNotFound, "no room with that code")
			return nil, server.JoinResult{}, false
		}
		room = found
	default:
		h.metrics.Add("ws_handshake_rejects_total", 1)
		h.refuse(sess, proto.ErrBadHandshake, "first message must create or join a room")
		return nil, server.JoinResult{}, false
	}

	res, err := room.Join(sess, msg.Archetype)
	if err != nil {
		h.metrics.Add("ws_handshake_rejects_total", 1)
		if errors.Is(err, server.ErrRoomFull) {
			h.refuse(sess, proto.ErrRoomFull, "both slots are taken")
		} else {
			h.refuse(sess, proto.ErrRoomNotFound, "room is gone")
		}
		return nil, server.JoinResult{}, false
	}
	return room, res, true
}

// refuse answers a doomed handshake with an error message, then closes.
func (h *Handler) refuse(sess *Session, code, detail string) {
	msg := proto.ErrorMessage{
		Ver:     proto.ProtocolVersion,
		Type:    proto.TypeError,
		Code:    code,
		Message: detail,
	}
	if data, err := json.Marshal(msg); err == nil {
		sess.Send(data)
	}
	sess.reject(code)
}

// readLoop pumps frames from a bound connection into its room until the
// connection dies. Every exit path reports the slot as gone so the room can
// end the match.
func (h *Handler) readLoop(conn *websocket.Conn, sess *Session, room *server.Room, res server.JoinResult) {
	pub := logging.WithRoom(h.pub, room.Code)
	actor := logging.EntityRef{ID: res.PlayerID, Kind: logging.EntityKindPlayer}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			room.Leave(res.Slot, "connection closed")
			return
		}

		var msg proto.ClientEnvelope
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", res.PlayerID, err)
			h.metrics.Add("ws_malformed_total", 1)
			network.MalformedMessage(context.Background(), pub, 0, actor, network.MalformedPayload{
				Reason: err.Error(),
			})
			continue
		}

		switch msg.Type {
		case proto.TypeInput:
			room.Input(res.Slot, msg.Seq, msg.InputFrame)
		case proto.TypePing:
			if !h.answerPing(sess, room, res.Slot, msg.SentAt) {
				room.Leave(res.Slot, "send_failed")
				return
			}
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, res.PlayerID)
		}
	}
}

// answerPing responds straight from the read loop so a busy room cannot
// delay the measurement. Reports false when the write fails.
func (h *Handler) answerPing(sess *Session, room *server.Room, slot int, sentAt int64) bool {
	now := time.Now()
	rtt := time.Duration(0)
	if sentAt > 0 {
		if millis := now.UnixMilli() - sentAt; millis > 0 {
			rtt = time.Duration(millis) * time.Millisecond
		}
	}
	room.ObserveRTT(slot, rtt)
	h.metrics.Add("ws_pings_total", 1)

	pong := proto.PongMessage{
		Ver:        proto.ProtocolVersion,
		Type:       proto.TypePong,
		ServerTime: now.UnixMilli(),
		ClientTime: sentAt,
		RTTMillis:  rtt.Milliseconds(),
	}
	data, err := json.Marshal(pong)
	if err != nil {
		h.logger.Printf("failed to marshal pong for slot %d: %v", slot, err)
		return true
	}
	return sess.Send(data) == nil
}
