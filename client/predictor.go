// Package client is the Go half of a duel connection: local prediction for
// the player's own fighter, time-shifted interpolation for the opponent,
// and the session plumbing that keeps both fed from the server.
//
// The types here are not goroutine safe on their own; Duel serializes all
// access between the render loop and the read pump.
package client

import "crossblades/server/sim"

// PendingCapacity bounds the unacknowledged input log. At one prediction
// per tick it covers three seconds of unacknowledged traffic before the
// oldest entries fall off.
const PendingCapacity = 180

// pendingInput is one transmitted-but-unacknowledged frame.
type pendingInput struct {
	Seq   uint64
	Frame sim.InputFrame
}

// inputLog is a fixed-size ring of pending inputs. When the server falls
// far enough behind to fill it, the oldest entries are dropped.
type inputLog struct {
	data  []pendingInput
	head  int
	count int
}

func newInputLog(capacity int) *inputLog {
	if capacity < 1 {
		capacity = 1
	}
	return &inputLog{data: make([]pendingInput, capacity)}
}

func (l *inputLog) push(entry pendingInput) {
	if l.count == len(l.data) {
		l.head = (l.head + 1) % len(l.data)
		l.count--
	}
	l.data[(l.head+l.count)%len(l.data)] = entry
	l.count++
}

// dropThrough removes every entry with a sequence at or below acked.
func (l *inputLog) dropThrough(acked uint64) {
	for l.count > 0 && l.data[l.head].Seq <= acked {
		l.head = (l.head + 1) % len(l.data)
		l.count--
	}
}

// entries returns the pending frames oldest first.
func (l *inputLog) entries() []pendingInput {
	if l.count == 0 {
		return nil
	}
	out := make([]pendingInput, l.count)
	for i := 0; i < l.count; i++ {
		out[i] = l.data[(l.head+i)%len(l.data)]
	}
	return out
}

func (l *inputLog) len() int {
	return l.count
}

func (l *inputLog) clear() {
	l.head = 0
	l.count = 0
}

// Predictor owns the local fighter's predicted state. Every frame applies
// the kernel immediately at the server's fixed tick delta, so movement
// feels instant while staying exactly replayable during reconciliation.
type Predictor struct {
	state   sim.CombatantState
	pending *inputLog
	nextSeq uint64
}

// NewPredictor starts predicting from the fighter's authoritative state.
func NewPredictor(state sim.CombatantState) *Predictor {
	return &Predictor{
		state:   state,
		pending: newInputLog(PendingCapacity),
	}
}

// Predict applies one frame of buttons locally and logs it for replay. It
// returns the sequence number the frame must be transmitted under. Every
// frame gets a sequence, including unchanged ones: the server needs the
// full numbering to tell a gap from an idle hand.
func (p *Predictor) Predict(frame sim.InputFrame) uint64 {
	p.nextSeq++
	p.pending.push(pendingInput{Seq: p.nextSeq, Frame: frame})
	p.state = sim.Step(p.state, frame, sim.TickDelta)
	return p.nextSeq
}

// State returns the current predicted state.
func (p *Predictor) State() sim.CombatantState {
	return p.state
}

// PendingLen reports how many transmitted frames await acknowledgment.
func (p *Predictor) PendingLen() int {
	return p.pending.len()
}
