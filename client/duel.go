package client

import (
	"sync"
	"time"

	"crossblades/server/proto"
	"crossblades/server/sim"
)

const duelPingInterval = 2 * time.Second

// CueKind labels a one-shot audio trigger.
type CueKind string

const (
	CueJump  CueKind = "jump"
	CueLand  CueKind = "land"
	CueSwing CueKind = "swing"
	CueParry CueKind = "parry"
	CueDeath CueKind = "death"
)

// Cue pairs a trigger with the fighter that caused it. Jump, land, and
// swing are edge-detected from state transitions; parry fires on the clash
// event and death on the kill event, both authoritative.
type Cue struct {
	PlayerID string
	Kind     CueKind
}

// Hooks are the optional presentation callbacks. They fire on the read
// pump goroutine, except cues for the local fighter, which fire on the
// Frame caller. Nil entries are skipped.
type Hooks struct {
	OnState        func(env proto.ServerEnvelope)
	OnKill         func(env proto.ServerEnvelope)
	OnParried      func(env proto.ServerEnvelope)
	OnRoundStart   func(round int)
	OnGameOver     func(winnerID string, scores map[string]int)
	OnOpponentLeft func()
	OnCue          func(cue Cue)
}

// Status is the HUD projection of the match.
type Status struct {
	MatchState proto.MatchState
	Round      int
	Countdown  int
	Scores     map[string]int
	RTTMillis  int64
}

// Duel drives one client's view of a match: local prediction, remote
// interpolation, and the lifecycle callbacks. Frame belongs to the render
// loop; everything else updates from the read pump.
type Duel struct {
	session *Session
	hooks   Hooks

	mu         sync.Mutex
	predictor  *Predictor
	interp     *InterpBuffer
	matchState proto.MatchState
	round      int
	countdown  int
	scores     map[string]int
	rttMillis  int64
	lastRemote sim.CombatantState
	haveRemote bool
	err        error

	done chan struct{}
}

// NewDuel wraps an established session, starting its read pump and latency
// probes.
func NewDuel(session *Session, hooks Hooks) *Duel {
	d := &Duel{
		session:    session,
		hooks:      hooks,
		interp:     NewInterpBuffer(),
		matchState: proto.MatchWaiting,
		scores:     make(map[string]int),
		done:       make(chan struct{}),
	}
	session.StartPings(duelPingInterval)
	go d.pump()
	return d
}

// Frame advances the local fighter by one predicted tick and transmits the
// buttons under a fresh sequence number. It reports false before the duel
// has a local fighter to drive or once the connection is gone.
func (d *Duel) Frame(frame sim.InputFrame) bool {
	localID := d.session.Assign().PlayerID

	d.mu.Lock()
	if d.predictor == nil {
		d.mu.Unlock()
		return false
	}
	before := d.predictor.State()
	seq := d.predictor.Predict(frame)
	cues := appendCues(nil, localID, detectCues(before, d.predictor.State()))
	d.mu.Unlock()

	d.emitCues(cues)
	return d.session.SendInput(seq, frame) == nil
}

// LocalState returns the predicted state of the player's own fighter.
func (d *Duel) LocalState() (sim.CombatantState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.predictor == nil {
		return sim.CombatantState{}, false
	}
	return d.predictor.State(), true
}

// RemotePose samples the interpolated opponent pose for rendering at now.
func (d *Duel) RemotePose(now time.Time) (Pose, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interp.Sample(now)
}

// RemoteState returns the newest authoritative opponent state, unshifted.
// Bots read this; renderers want RemotePose.
func (d *Duel) RemoteState() (sim.CombatantState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interp.Latest()
}

// Status reports where the match stands.
func (d *Duel) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		MatchState: d.matchState,
		Round:      d.round,
		Countdown:  d.countdown,
		Scores:     copyScores(d.scores),
		RTTMillis:  d.rttMillis,
	}
}

// Done closes when the connection has ended.
func (d *Duel) Done() <-chan struct{} {
	return d.done
}

// Err returns the read error that ended the connection, valid once Done
// has closed.
func (d *Duel) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Close drops the connection; the pump exits and Done closes.
func (d *Duel) Close() error {
	return d.session.Close()
}

func (d *Duel) pump() {
	err := d.session.Pump(d.handle)
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
	close(d.done)
}

func (d *Duel) handle(env proto.ServerEnvelope) {
	switch env.Type {
	case proto.TypeWaiting:
		d.mu.Lock()
		d.matchState = proto.MatchWaiting
		d.mu.Unlock()
	case proto.TypeStart:
		d.handleStart(env)
	case proto.TypeState:
		d.handleState(env)
	case proto.TypeKill:
		d.handleKill(env)
	case proto.TypeParried:
		d.handleParried(env)
	case proto.TypeNewRound:
		d.handleNewRound(env)
	case proto.TypeGameOver:
		d.handleGameOver(env)
	case proto.TypeOpponentLeft:
		if d.hooks.OnOpponentLeft != nil {
			d.hooks.OnOpponentLeft()
		}
	case proto.TypePong:
		rtt := time.Now().UnixMilli() - env.ClientTime
		if rtt < 0 {
			rtt = 0
		}
		d.mu.Lock()
		d.rttMillis = rtt
		d.mu.Unlock()
	}
}

func (d *Duel) handleStart(env proto.ServerEnvelope) {
	localID := d.session.Assign().PlayerID
	now := time.Now()

	d.mu.Lock()
	for _, p := range env.Players {
		if p.ID == localID {
			d.predictor = NewPredictor(p.CombatantState)
			continue
		}
		d.lastRemote = p.CombatantState
		d.haveRemote = true
		d.interp.Observe(now, p.CombatantState)
	}
	d.mu.Unlock()
}

// handleState folds one authoritative broadcast into both fighters. The
// local snapshot reconciles the predictor; the remote one feeds the
// interpolation buffer and the cue detector. A client that missed the
// start message recovers here, because every broadcast carries the same
// player payload.
func (d *Duel) handleState(env proto.ServerEnvelope) {
	localID := d.session.Assign().PlayerID
	now := time.Now()

	d.mu.Lock()
	d.matchState = env.MatchState
	d.round = env.Round
	d.countdown = env.CountdownValue

	var cues []Cue
	for _, p := range env.Players {
		d.scores[p.ID] = p.Score
		if p.ID == localID {
			if d.predictor == nil {
				d.predictor = NewPredictor(p.CombatantState)
			} else {
				d.predictor.Reconcile(p)
			}
			continue
		}
		if d.haveRemote {
			cues = appendCues(cues, p.ID, detectCues(d.lastRemote, p.CombatantState))
		}
		d.lastRemote = p.CombatantState
		d.haveRemote = true
		d.interp.Observe(now, p.CombatantState)
	}
	d.mu.Unlock()

	d.emitCues(cues)
	if d.hooks.OnState != nil {
		d.hooks.OnState(env)
	}
}

func (d *Duel) handleKill(env proto.ServerEnvelope) {
	d.mu.Lock()
	for id, n := range env.Scores {
		d.scores[id] = n
	}
	d.mu.Unlock()

	d.emitCues([]Cue{{PlayerID: env.DefenderID, Kind: CueDeath}})
	if d.hooks.OnKill != nil {
		d.hooks.OnKill(env)
	}
}

func (d *Duel) handleParried(env proto.ServerEnvelope) {
	d.emitCues([]Cue{{PlayerID: env.DefenderID, Kind: CueParry}})
	if d.hooks.OnParried != nil {
		d.hooks.OnParried(env)
	}
}

func (d *Duel) handleNewRound(env proto.ServerEnvelope) {
	d.mu.Lock()
	d.round = env.Round
	// A respawn must never interpolate from the previous round's corpse.
	d.interp.Reset()
	d.haveRemote = false
	d.mu.Unlock()

	if d.hooks.OnRoundStart != nil {
		d.hooks.OnRoundStart(env.Round)
	}
}

func (d *Duel) handleGameOver(env proto.ServerEnvelope) {
	d.mu.Lock()
	d.matchState = proto.MatchGameOver
	for id, n := range env.Scores {
		d.scores[id] = n
	}
	d.mu.Unlock()

	if d.hooks.OnGameOver != nil {
		d.hooks.OnGameOver(env.WinnerID, copyScores(env.Scores))
	}
}

func (d *Duel) emitCues(cues []Cue) {
	if d.hooks.OnCue == nil {
		return
	}
	for _, cue := range cues {
		d.hooks.OnCue(cue)
	}
}

// detectCues reads the edge-triggered transitions out of a state change.
func detectCues(prev, next sim.CombatantState) []CueKind {
	var kinds []CueKind
	if prev.Grounded && !next.Grounded && next.VY < 0 && next.Alive {
		kinds = append(kinds, CueJump)
	}
	if !prev.Grounded && next.Grounded && next.Alive {
		kinds = append(kinds, CueLand)
	}
	if !prev.Attacking && next.Attacking {
		kinds = append(kinds, CueSwing)
	}
	return kinds
}

func appendCues(cues []Cue, playerID string, kinds []CueKind) []Cue {
	for _, kind := range kinds {
		cues = append(cues, Cue{PlayerID: playerID, Kind: kind})
	}
	return cues
}

func copyScores(scores map[string]int) map[string]int {
	out := make(map[string]int, len(scores))
	for id, n := range scores {
		out[id] = n
	}
	return out
}
