package client

import (
	"crossblades/server/proto"
	"crossblades/server/sim"
)

// Reconcile rewinds the predictor to the server's authoritative state and
// replays every input the server has not yet applied, in sequence order, at
// the fixed tick delta. The snapshot is copied wholesale: score, alive
// state, and the ragdoll pose are the server's alone, and replay never
// touches them because a dead snapshot clears the pending log instead of
// stepping it.
//
// With an empty log this reduces to adopting the snapshot exactly, so a
// stale acknowledgment is a no-op rather than an error.
func (p *Predictor) Reconcile(snap proto.CombatantSnapshot) {
	p.pending.dropThrough(snap.LastInputSeq)
	p.state = snap.CombatantState

	if !snap.Alive {
		p.pending.clear()
		return
	}

	for _, entry := range p.pending.entries() {
		p.state = sim.Step(p.state, entry.Frame, sim.TickDelta)
	}
}
