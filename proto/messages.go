// Package proto defines the JSON wire protocol between the duel server and
// its clients. Both sides import it: the server marshals the concrete
// message structs, each side decodes the opposite direction into a single
// fat envelope and switches on Type. Envelopes must be decoded into a fresh
// value per message so omitted fields stay zero.
package proto

import "crossblades/server/sim"

const ProtocolVersion = 1

// Client to server message types.
const (
	TypeCreateRoom = "create_room"
	TypeJoinRoom   = "join_room"
	TypeInput      = "input"
	TypePing       = "ping"
)

// Server to client message types.
const (
	TypeAssign       = "assign"
	TypeWaiting      = "waiting"
	TypeStart        = "start"
	TypeState        = "state"
	TypeKill         = "kill"
	TypeParried      = "parried"
	TypeNewRound     = "new_round"
	TypeGameOver     = "game_over"
	TypeOpponentLeft = "opponent_left"
	TypePong         = "pong"
	TypeError        = "error"
)

// Error codes carried by ErrorMessage.
const (
	ErrRoomNotFound = "room_not_found"
	ErrRoomFull     = "room_full"
	ErrBadHandshake = "bad_handshake"
)

// MatchState labels where a room is in its round cycle.
type MatchState string

const (
	MatchWaiting   MatchState = "waiting"
	MatchCountdown MatchState = "countdown"
	MatchPlaying   MatchState = "playing"
	MatchRoundEnd  MatchState = "round_end"
	MatchGameOver  MatchState = "game_over"
)

// CombatantSnapshot pairs a fighter's full simulation state with the newest
// input sequence the server had applied for that fighter's connection when
// the snapshot was taken. The sequence is what lets the owning client prune
// its pending-input log during reconciliation.
type CombatantSnapshot struct {
	sim.CombatantState
	LastInputSeq uint64 `json:"lastInputSeq"`
}

type CreateRoomMessage struct {
	Ver       int    `json:"ver"`
	Type      string `json:"type"`
	Archetype string `json:"archetype,omitempty"`
}

type JoinRoomMessage struct {
	Ver       int    `json:"ver"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	Archetype string `json:"archetype,omitempty"`
}

// InputMessage carries one predicted tick of buttons. The embedded frame
// marshals flat, so the wire form is {"type":"input","seq":7,"left":true}.
type InputMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	sim.InputFrame
}

type PingMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	SentAt int64  `json:"sentAt"`
}

type AssignMessage struct {
	Ver           int    `json:"ver"`
	Type          string `json:"type"`
	PlayerID      string `json:"playerId"`
	Slot          int    `json:"slot"`
	Code          string `json:"code"`
	ConstantsHash string `json:"constantsHash"`
}

type WaitingMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
}

type StartMessage struct {
	Ver     int                 `json:"ver"`
	Type    string              `json:"type"`
	Players []CombatantSnapshot `json:"players"`
}

// StateMessage is the per-tick broadcast. Players is empty while the room
// is still waiting for its second fighter.
type StateMessage struct {
	Ver            int                 `json:"ver"`
	Type           string              `json:"type"`
	Tick           uint64              `json:"t"`
	MatchState     MatchState          `json:"matchState"`
	Round          int                 `json:"round,omitempty"`
	CountdownValue int                 `json:"countdownValue,omitempty"`
	CountdownMs    int64               `json:"countdownMs,omitempty"`
	ServerTime     int64               `json:"serverTime"`
	Players        []CombatantSnapshot `json:"players,omitempty"`
}

type KillMessage struct {
	Ver        int            `json:"ver"`
	Type       string         `json:"type"`
	AttackerID string         `json:"attackerId"`
	DefenderID string         `json:"defenderId"`
	Scores     map[string]int `json:"scores"`
	DeathX     float64        `json:"deathX"`
	DeathY     float64        `json:"deathY"`
}

type ParriedMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	AttackerID string `json:"attackerId"`
	DefenderID string `json:"defenderId"`
}

type NewRoundMessage struct {
	Ver   int    `json:"ver"`
	Type  string `json:"type"`
	Round int    `json:"round"`
}

type GameOverMessage struct {
	Ver      int            `json:"ver"`
	Type     string         `json:"type"`
	WinnerID string         `json:"winnerId"`
	Scores   map[string]int `json:"scores"`
}

type OpponentLeftMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
}

type PongMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

type ErrorMessage struct {
	Ver     int    `json:"ver"`
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClientEnvelope is the single decode target for everything a client sends.
type ClientEnvelope struct {
	Ver       int    `json:"ver,omitempty"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	Archetype string `json:"archetype,omitempty"`
	Seq       uint64 `json:"seq,omitempty"`
	SentAt    int64  `json:"sentAt,omitempty"`
	sim.InputFrame
}

// ServerEnvelope is the single decode target for everything the server
// sends. Code doubles as the room code on assign and the error code on
// error; Type disambiguates.
type ServerEnvelope struct {
	Ver            int                 `json:"ver,omitempty"`
	Type           string              `json:"type"`
	PlayerID       string              `json:"playerId,omitempty"`
	Slot           int                 `json:"slot,omitempty"`
	Code           string              `json:"code,omitempty"`
	ConstantsHash  string              `json:"constantsHash,omitempty"`
	Tick           uint64              `json:"t,omitempty"`
	MatchState     MatchState          `json:"matchState,omitempty"`
	Round          int                 `json:"round,omitempty"`
	CountdownValue int                 `json:"countdownValue,omitempty"`
	CountdownMs    int64               `json:"countdownMs,omitempty"`
	ServerTime     int64               `json:"serverTime,omitempty"`
	Players        []CombatantSnapshot `json:"players,omitempty"`
	AttackerID     string              `json:"attackerId,omitempty"`
	DefenderID     string              `json:"defenderId,omitempty"`
	Scores         map[string]int      `json:"scores,omitempty"`
	DeathX         float64             `json:"deathX,omitempty"`
	DeathY         float64             `json:"deathY,omitempty"`
	WinnerID       string              `json:"winnerId,omitempty"`
	ClientTime     int64               `json:"clientTime,omitempty"`
	RTTMillis      int64               `json:"rtt,omitempty"`
	Message        string              `json:"message,omitempty"`
}
