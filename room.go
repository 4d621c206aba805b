package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"crossblades/server/internal/telemetry"
	"crossblades/server/logging"
	"crossblades/server/logging/combat"
	"crossblades/server/logging/lifecycle"
	"crossblades/server/logging/network"
	"crossblades/server/logging/simulation"
	"crossblades/server/proto"
	"crossblades/server/sim"
)

var (
	// ErrRoomFull is returned when both slots are already bound.
	ErrRoomFull = errors.New("room full")
	// ErrRoomClosed is returned when the room's loop has stopped.
	ErrRoomClosed = errors.New("room closed")
)

const roomInboxSize = 256

// JoinResult identifies the slot a connection was bound to. Slot is 1 or 2
// as it appears on the wire.
type JoinResult struct {
	PlayerID string
	Slot     int
}

// RoomDiagnostics is one room's contribution to the diagnostics endpoint.
type RoomDiagnostics struct {
	Code       string            `json:"code"`
	MatchState proto.MatchState  `json:"matchState"`
	Round      int               `json:"round"`
	Tick       uint64            `json:"tick"`
	Peers      []PeerDiagnostics `json:"peers"`
}

// PeerDiagnostics reports per-connection bookkeeping.
type PeerDiagnostics struct {
	PlayerID     string `json:"playerId"`
	Slot         int    `json:"slot"`
	Connected    bool   `json:"connected"`
	RTTMillis    int64  `json:"rttMillis"`
	LastInputSeq uint64 `json:"lastInputSeq"`
	InputGaps    uint64 `json:"inputGaps"`
}

// slotState is everything the room tracks for one bound connection. It is
// touched only by the room goroutine.
type slotState struct {
	peer      Peer
	playerID  string
	archetype string
	connected bool

	combatant   sim.CombatantState
	latestInput sim.InputFrame
	lastSeq     uint64
	inputGaps   uint64
	lastRTT     time.Duration
}

// Mailbox messages. Each is handled between ticks by the room goroutine;
// none of them touch combatant state directly.
type joinRequest struct {
	peer      Peer
	archetype string
	reply     chan joinReply
}

type joinReply struct {
	result JoinResult
	err    error
}

type inputFrameMsg struct {
	slot  int
	seq   uint64
	frame sim.InputFrame
}

type rttReport struct {
	slot int
	rtt  time.Duration
}

type leaveRequest struct {
	slot   int
	reason string
}

type diagRequest struct {
	reply chan RoomDiagnostics
}

// Room is a single duel: two slots, one mailbox, one fixed-rate tick loop.
// All state past the channels is owned by the Run goroutine, so the room
// needs no lock of its own.
type Room struct {
	Code string

	cfg      RoomConfig
	inbox    chan any
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	onEmpty  func(code string)

	pub      logging.Publisher
	logger   telemetry.Logger
	counters *telemetryCounters

	tick          uint64
	match         proto.MatchState
	round         int
	countdown     float64
	roundEndWait  float64
	resolved      bool
	closing       bool
	overrunStreak uint64

	slots [2]*slotState
}

func newRoom(code string, cfg RoomConfig, pub logging.Publisher, logger telemetry.Logger, counters *telemetryCounters) *Room {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	if counters == nil {
		counters = newTelemetryCounters()
	}
	return &Room{
		Code:     code,
		cfg:      cfg.normalized(),
		inbox:    make(chan any, roomInboxSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		pub:      logging.WithRoom(pub, code),
		logger:   logger,
		counters: counters,
		match:    proto.MatchWaiting,
	}
}

// Run drives the room at the fixed tick rate until Stop is called or a peer
// leaves. It owns every field past the channels; other goroutines interact
// through the mailbox only.
func (r *Room) Run() {
	defer func() {
		r.closePeers()
		r.counters.RecordRoomClosed()
		close(r.done)
		if r.onEmpty != nil {
			r.onEmpty(r.Code)
		}
	}()

	ticker := time.NewTicker(time.Second / sim.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case msg := <-r.inbox:
			r.handleMessage(msg)
		case now := <-ticker.C:
			r.drainInbox()
			r.tickOnce(now)
		}
	}
}

// Stop ends the room's loop. Safe to call more than once.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
	})
}

// Done closes when the room's loop has fully exited.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Join binds a peer to a free slot and blocks until the room answers. The
// assign and waiting/start messages are written by the room goroutine, so
// they always precede any state broadcast to that peer.
func (r *Room) Join(peer Peer, archetype string) (JoinResult, error) {
	reply := make(chan joinReply, 1)
	select {
	case r.inbox <- joinRequest{peer: peer, archetype: archetype, reply: reply}:
	case <-r.done:
		return JoinResult{}, ErrRoomClosed
	}
	select {
	case rep := <-reply:
		return rep.result, rep.err
	case <-r.done:
		// The reply may have raced the shutdown.
		select {
		case rep := <-reply:
			return rep.result, rep.err
		default:
		}
		return JoinResult{}, ErrRoomClosed
	}
}

// Input posts one frame to the mailbox. It never blocks: a full mailbox
// drops the frame and counts it, and the tick loop falls back to the slot's
// previous input.
func (r *Room) Input(slot int, seq uint64, frame sim.InputFrame) {
	select {
	case r.inbox <- inputFrameMsg{slot: slot - 1, seq: seq, frame: frame}:
	default:
		r.counters.RecordInboxDrop()
	}
}

// ObserveRTT records a measured round trip for diagnostics. Best effort.
func (r *Room) ObserveRTT(slot int, rtt time.Duration) {
	select {
	case r.inbox <- rttReport{slot: slot - 1, rtt: rtt}:
	default:
	}
}

// Leave reports that a slot's connection is gone. The match ends: the
// surviving peer is notified and the loop stops.
func (r *Room) Leave(slot int, reason string) {
	select {
	case r.inbox <- leaveRequest{slot: slot - 1, reason: reason}:
	case <-r.done:
	}
}

// Diagnostics asks the room goroutine for a snapshot of its bookkeeping.
func (r *Room) Diagnostics() (RoomDiagnostics, bool) {
	reply := make(chan RoomDiagnostics, 1)
	select {
	case r.inbox <- diagRequest{reply: reply}:
	case <-r.done:
		return RoomDiagnostics{}, false
	}
	select {
	case diag := <-reply:
		return diag, true
	case <-r.done:
		return RoomDiagnostics{}, false
	}
}

func (r *Room) drainInbox() {
	for {
		select {
		case msg := <-r.inbox:
			r.handleMessage(msg)
		default:
			return
		}
	}
}

func (r *Room) handleMessage(msg any) {
	switch m := msg.(type) {
	case joinRequest:
		r.handleJoin(m)
	case inputFrameMsg:
		r.handleInput(m)
	case rttReport:
		r.handleRTT(m)
	case leaveRequest:
		r.handleLeave(m.slot, m.reason)
	case diagRequest:
		m.reply <- r.diagnostics()
	}
}

func (r *Room) handleJoin(m joinRequest) {
	if r.closing {
		m.reply <- joinReply{err: ErrRoomClosed}
		return
	}

	slot := -1
	for i, s := range r.slots {
		if s == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		m.reply <- joinReply{err: ErrRoomFull}
		return
	}

	playerID := fmt.Sprintf("p%d", slot+1)
	r.slots[slot] = &slotState{
		peer:      m.peer,
		playerID:  playerID,
		archetype: sim.NormalizeArchetype(m.archetype),
		connected: true,
	}
	m.reply <- joinReply{result: JoinResult{PlayerID: playerID, Slot: slot + 1}}

	r.sendTo(slot, proto.AssignMessage{
		Ver:           proto.ProtocolVersion,
		Type:          proto.TypeAssign,
		PlayerID:      playerID,
		Slot:          slot + 1,
		Code:          r.Code,
		ConstantsHash: sim.Fingerprint(),
	})
	lifecycle.PlayerJoined(context.Background(), r.pub, r.tick, playerRef(playerID), lifecycle.PlayerJoinedPayload{
		Slot:      slot + 1,
		Archetype: r.slots[slot].archetype,
	})

	other := r.slots[1-slot]
	if other == nil {
		r.sendTo(slot, proto.WaitingMessage{Ver: proto.ProtocolVersion, Type: proto.TypeWaiting})
		return
	}

	// Second fighter is in; arm round one.
	r.spawnRound(1)
	r.broadcast(proto.StartMessage{
		Ver:     proto.ProtocolVersion,
		Type:    proto.TypeStart,
		Players: r.snapshotPlayers(),
	})
	r.broadcast(proto.NewRoundMessage{Ver: proto.ProtocolVersion, Type: proto.TypeNewRound, Round: r.round})
	lifecycle.RoundStarted(context.Background(), r.pub, r.tick, r.ref(), lifecycle.RoundPayload{Round: r.round})
}

func (r *Room) handleInput(m inputFrameMsg) {
	if m.slot < 0 || m.slot > 1 {
		return
	}
	s := r.slots[m.slot]
	if s == nil || !s.connected {
		return
	}
	// Duplicates and regressions are stale retransmissions; ignore them.
	if m.seq <= s.lastSeq {
		return
	}
	if s.lastSeq != 0 && m.seq > s.lastSeq+1 {
		gap := m.seq - s.lastSeq - 1
		s.inputGaps += gap
		r.counters.RecordInputGap(gap)
		network.InputGap(context.Background(), r.pub, r.tick, playerRef(s.playerID), network.InputGapPayload{
			Previous: s.lastSeq,
			Received: m.seq,
		})
	}
	s.latestInput = m.frame
	s.lastSeq = m.seq
}

func (r *Room) handleRTT(m rttReport) {
	if m.slot < 0 || m.slot > 1 {
		return
	}
	if s := r.slots[m.slot]; s != nil {
		s.lastRTT = m.rtt
	}
}

func (r *Room) handleLeave(slot int, reason string) {
	if slot < 0 || slot > 1 {
		return
	}
	s := r.slots[slot]
	if s == nil || !s.connected {
		return
	}
	s.connected = false
	_ = s.peer.Close()
	lifecycle.PlayerLeft(context.Background(), r.pub, r.tick, playerRef(s.playerID), lifecycle.PlayerLeftPayload{Reason: reason})

	if other := r.slots[1-slot]; other != nil && other.connected {
		r.sendTo(1-slot, proto.OpponentLeftMessage{Ver: proto.ProtocolVersion, Type: proto.TypeOpponentLeft})
	}
	r.closing = true
	r.Stop()
}

// tickOnce advances the room by one fixed step: apply the freshest inputs
// through the kernel, run the match state machine, broadcast. Combat state
// is mutated nowhere else.
func (r *Room) tickOnce(now time.Time) {
	if r.closing {
		return
	}
	start := time.Now()
	r.tick++

	if r.match != proto.MatchWaiting {
		for _, s := range r.slots {
			if s == nil {
				continue
			}
			s.combatant = sim.Step(s.combatant, s.latestInput, sim.TickDelta)
		}
	}

	switch r.match {
	case proto.MatchCountdown:
		r.countdown -= sim.TickDelta
		if r.countdown <= 0 {
			r.countdown = 0
			r.match = proto.MatchPlaying
		}
	case proto.MatchPlaying:
		r.resolveCombat()
	case proto.MatchRoundEnd:
		r.roundEndWait -= sim.TickDelta
		if r.roundEndWait <= 0 {
			r.advanceRound()
		}
	}

	r.broadcastState(now)

	elapsed := time.Since(start)
	r.counters.RecordTickDuration(elapsed)
	if budget := time.Second / sim.TickRate; elapsed > budget {
		r.overrunStreak++
		simulation.TickBudgetOverrun(context.Background(), r.pub, r.tick, simulation.TickBudgetOverrunPayload{
			DurationMillis: elapsed.Milliseconds(),
			BudgetMillis:   budget.Milliseconds(),
			Ratio:          float64(elapsed) / float64(budget),
			Streak:         r.overrunStreak,
		}, nil)
	} else {
		r.overrunStreak = 0
	}
}

// resolveCombat evaluates both ordered attacker/defender pairs. The order
// alternates with round parity so neither slot holds the simultaneous-hit
// advantage for a whole match. A kill marks the round resolved and ends the
// checking; a parry cancels the swing and play continues.
func (r *Room) resolveCombat() {
	first := (r.round + 1) % 2
	for n := 0; n < 2; n++ {
		if r.resolved {
			return
		}
		att := (first + n) % 2
		def := 1 - att
		attacker := r.slots[att]
		defender := r.slots[def]
		if attacker == nil || defender == nil {
			return
		}

		switch sim.ResolveAttack(attacker.combatant, defender.combatant) {
		case sim.OutcomeHit:
			r.handleKill(att, def)
		case sim.OutcomeParried:
			attacker.combatant = sim.CancelSwing(attacker.combatant)
			r.broadcast(proto.ParriedMessage{
				Ver:        proto.ProtocolVersion,
				Type:       proto.TypeParried,
				AttackerID: attacker.playerID,
				DefenderID: defender.playerID,
			})
			combat.Parried(context.Background(), r.pub, r.tick, playerRef(attacker.playerID), playerRef(defender.playerID),
				combat.ParriedPayload{Round: r.round}, nil)
		}
	}
}

func (r *Room) handleKill(att, def int) {
	attacker := r.slots[att]
	defender := r.slots[def]

	deathX, deathY := defender.combatant.X, defender.combatant.Y
	defender.combatant = sim.Kill(defender.combatant, attacker.combatant.X)
	attacker.combatant.Score++
	r.resolved = true
	r.match = proto.MatchRoundEnd
	r.roundEndWait = r.cfg.RoundEndDelay.Seconds()

	r.broadcast(proto.KillMessage{
		Ver:        proto.ProtocolVersion,
		Type:       proto.TypeKill,
		AttackerID: attacker.playerID,
		DefenderID: defender.playerID,
		Scores:     r.scores(),
		DeathX:     deathX,
		DeathY:     deathY,
	})
	combat.Hit(context.Background(), r.pub, r.tick, playerRef(attacker.playerID), playerRef(defender.playerID),
		combat.HitPayload{Round: r.round, DeathX: deathX, DeathY: deathY}, nil)
	lifecycle.RoundEnded(context.Background(), r.pub, r.tick, r.ref(), lifecycle.RoundEndedPayload{
		Round:    r.round,
		WinnerID: attacker.playerID,
	})
}

func (r *Room) advanceRound() {
	if r.matchOver() {
		r.finishMatch()
		return
	}
	r.spawnRound(r.round + 1)
	r.broadcast(proto.NewRoundMessage{Ver: proto.ProtocolVersion, Type: proto.TypeNewRound, Round: r.round})
	lifecycle.RoundStarted(context.Background(), r.pub, r.tick, r.ref(), lifecycle.RoundPayload{Round: r.round})
}

func (r *Room) matchOver() bool {
	for _, s := range r.slots {
		if s != nil && s.combatant.Score >= r.cfg.RoundsToWin {
			return true
		}
	}
	return r.round >= r.cfg.MaxRounds
}

func (r *Room) finishMatch() {
	r.match = proto.MatchGameOver

	winner := ""
	a, b := r.slots[0], r.slots[1]
	switch {
	case a.combatant.Score > b.combatant.Score:
		winner = a.playerID
	case b.combatant.Score > a.combatant.Score:
		winner = b.playerID
	}

	r.broadcast(proto.GameOverMessage{
		Ver:      proto.ProtocolVersion,
		Type:     proto.TypeGameOver,
		WinnerID: winner,
		Scores:   r.scores(),
	})
	lifecycle.MatchEnded(context.Background(), r.pub, r.tick, r.ref(), lifecycle.MatchEndedPayload{
		WinnerID: winner,
		Rounds:   r.round,
		Scores:   r.scores(),
	})
}

// spawnRound replaces both combatants with fresh spawns facing each other.
// Only the score survives the replacement.
func (r *Room) spawnRound(n int) {
	r.round = n
	r.resolved = false
	r.countdown = float64(r.cfg.CountdownSeconds)
	r.roundEndWait = 0
	r.match = proto.MatchCountdown

	spawns := [2]float64{sim.SpawnLeftX, sim.SpawnRightX}
	facings := [2]sim.FacingDirection{sim.FacingRight, sim.FacingLeft}
	for i, s := range r.slots {
		if s == nil {
			continue
		}
		score := s.combatant.Score
		s.combatant = sim.NewCombatant(s.playerID, s.archetype, spawns[i], facings[i])
		s.combatant.Score = score
		s.latestInput = sim.InputFrame{}
	}
}

func (r *Room) broadcastState(now time.Time) {
	msg := proto.StateMessage{
		Ver:        proto.ProtocolVersion,
		Type:       proto.TypeState,
		Tick:       r.tick,
		MatchState: r.match,
		Round:      r.round,
		ServerTime: now.UnixMilli(),
	}
	if r.match == proto.MatchCountdown {
		msg.CountdownValue = int(math.Ceil(r.countdown))
		msg.CountdownMs = int64(math.Round(r.countdown * 1000))
	}
	if r.match != proto.MatchWaiting {
		msg.Players = r.snapshotPlayers()
	}
	r.broadcast(msg)
}

func (r *Room) snapshotPlayers() []proto.CombatantSnapshot {
	players := make([]proto.CombatantSnapshot, 0, 2)
	for _, s := range r.slots {
		if s == nil {
			continue
		}
		players = append(players, proto.CombatantSnapshot{
			CombatantState: s.combatant,
			LastInputSeq:   s.lastSeq,
		})
	}
	return players
}

func (r *Room) scores() map[string]int {
	scores := make(map[string]int, 2)
	for _, s := range r.slots {
		if s != nil {
			scores[s.playerID] = s.combatant.Score
		}
	}
	return scores
}

// broadcast marshals once and writes to every connected peer. A failed send
// is a disconnect: the duel cannot continue half-blind.
func (r *Room) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Printf("room %s: marshal broadcast: %v", r.Code, err)
		return
	}

	sent := 0
	var failed []int
	for i, s := range r.slots {
		if s == nil || !s.connected {
			continue
		}
		if err := s.peer.Send(data); err != nil {
			r.logger.Printf("room %s: send to %s failed: %v", r.Code, s.playerID, err)
			network.SendFailed(context.Background(), r.pub, r.tick, playerRef(s.playerID), network.SendFailedPayload{Reason: err.Error()})
			failed = append(failed, i)
			continue
		}
		sent++
	}
	r.counters.RecordBroadcast(len(data)*sent, sent)

	for _, i := range failed {
		r.handleLeave(i, "send_failed")
	}
}

func (r *Room) sendTo(slot int, msg any) {
	s := r.slots[slot]
	if s == nil || !s.connected {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Printf("room %s: marshal message: %v", r.Code, err)
		return
	}
	if err := s.peer.Send(data); err != nil {
		r.logger.Printf("room %s: send to %s failed: %v", r.Code, s.playerID, err)
		network.SendFailed(context.Background(), r.pub, r.tick, playerRef(s.playerID), network.SendFailedPayload{Reason: err.Error()})
		r.handleLeave(slot, "send_failed")
	}
}

func (r *Room) closePeers() {
	for _, s := range r.slots {
		if s != nil && s.connected {
			s.connected = false
			_ = s.peer.Close()
		}
	}
}

func (r *Room) diagnostics() RoomDiagnostics {
	diag := RoomDiagnostics{
		Code:       r.Code,
		MatchState: r.match,
		Round:      r.round,
		Tick:       r.tick,
		Peers:      make([]PeerDiagnostics, 0, 2),
	}
	for i, s := range r.slots {
		if s == nil {
			continue
		}
		diag.Peers = append(diag.Peers, PeerDiagnostics{
			PlayerID:     s.playerID,
			Slot:         i + 1,
			Connected:    s.connected,
			RTTMillis:    s.lastRTT.Milliseconds(),
			LastInputSeq: s.lastSeq,
			InputGaps:    s.inputGaps,
		})
	}
	return diag
}

func (r *Room) ref() logging.EntityRef {
	return logging.EntityRef{ID: r.Code, Kind: logging.EntityKindRoom}
}

func playerRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindPlayer}
}
