package client

import (
	"time"

	"crossblades/server/sim"
)

const (
	// InterpDelay is how far behind the newest server data the opponent is
	// rendered. It exceeds one broadcast interval so a bracketing pair of
	// snapshots usually exists.
	InterpDelay = 100 * time.Millisecond
	// SnapshotRetention is how long old snapshots stay buffered.
	SnapshotRetention = time.Second
	// MaxExtrapolation caps how far a pose may be projected beyond the
	// buffered data when the feed stalls or the delay window underruns.
	MaxExtrapolation = 250 * time.Millisecond
)

// Pose is what the renderer needs for the remote fighter on one frame.
type Pose struct {
	X      float64
	Y      float64
	Facing sim.FacingDirection
	Anim   sim.Anim
	Alive  bool
	Score  int
}

type bufferedSnapshot struct {
	at   time.Time
	snap sim.CombatantState
}

// InterpBuffer time-shifts the opponent's snapshots so discrete per-tick
// updates render as continuous motion.
type InterpBuffer struct {
	entries []bufferedSnapshot
}

func NewInterpBuffer() *InterpBuffer {
	return &InterpBuffer{}
}

// Observe appends one snapshot at its arrival time. The transport delivers
// in order, so an arrival that does not advance the clock is dropped.
func (b *InterpBuffer) Observe(at time.Time, snap sim.CombatantState) {
	if n := len(b.entries); n > 0 && !at.After(b.entries[n-1].at) {
		return
	}
	b.entries = append(b.entries, bufferedSnapshot{at: at, snap: snap})
	for len(b.entries) > 2 && at.Sub(b.entries[0].at) > SnapshotRetention {
		b.entries = b.entries[1:]
	}
}

// Reset empties the buffer.
func (b *InterpBuffer) Reset() {
	b.entries = b.entries[:0]
}

// Latest returns the newest buffered snapshot without any time shift.
func (b *InterpBuffer) Latest() (sim.CombatantState, bool) {
	if len(b.entries) == 0 {
		return sim.CombatantState{}, false
	}
	return b.entries[len(b.entries)-1].snap, true
}

// Sample produces the render pose for the given instant. It reports false
// until the first snapshot arrives.
//
// The target time sits InterpDelay behind now. A target inside the buffer
// interpolates between its bracketing pair: position is lerped, facing
// switches at the interval midpoint, and discrete fields come from the
// later entry unmodified. A target outside the buffer extrapolates from
// the nearest entry by its own velocity, clamped to MaxExtrapolation.
func (b *InterpBuffer) Sample(now time.Time) (Pose, bool) {
	if len(b.entries) == 0 {
		return Pose{}, false
	}
	target := now.Add(-InterpDelay)

	oldest := b.entries[0]
	if !target.After(oldest.at) {
		return extrapolate(oldest, target.Sub(oldest.at)), true
	}
	newest := b.entries[len(b.entries)-1]
	if target.After(newest.at) {
		return extrapolate(newest, target.Sub(newest.at)), true
	}

	for i := 1; i < len(b.entries); i++ {
		after := b.entries[i]
		if after.at.Before(target) {
			continue
		}
		before := b.entries[i-1]
		span := after.at.Sub(before.at)
		if span <= 0 {
			return poseOf(after.snap), true
		}
		alpha := float64(target.Sub(before.at)) / float64(span)
		pose := poseOf(after.snap)
		pose.X = before.snap.X + (after.snap.X-before.snap.X)*alpha
		pose.Y = before.snap.Y + (after.snap.Y-before.snap.Y)*alpha
		if alpha < 0.5 {
			pose.Facing = before.snap.Facing
		}
		return pose, true
	}
	return poseOf(newest.snap), true
}

// extrapolate projects a snapshot by its own velocity. The offset clamp
// means a stalled feed freezes the fighter instead of sliding it away.
func extrapolate(entry bufferedSnapshot, offset time.Duration) Pose {
	if offset > MaxExtrapolation {
		offset = MaxExtrapolation
	}
	if offset < -MaxExtrapolation {
		offset = -MaxExtrapolation
	}
	dt := offset.Seconds()
	pose := poseOf(entry.snap)
	pose.X = entry.snap.X + entry.snap.VX*dt
	pose.Y = entry.snap.Y + entry.snap.VY*dt
	return pose
}

func poseOf(s sim.CombatantState) Pose {
	return Pose{
		X:      s.X,
		Y:      s.Y,
		Facing: s.Facing,
		Anim:   s.Anim,
		Alive:  s.Alive,
		Score:  s.Score,
	}
}
