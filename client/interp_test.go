package client

import (
	"math"
	"testing"
	"time"

	"crossblades/server/sim"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestInterpSampleLerpsBetweenBracketingSnapshots(t *testing.T) {
	b := NewInterpBuffer()
	base := time.Unix(1000, 0)

	first := sim.NewCombatant("p2", "squire", 400, sim.FacingRight)
	second := first
	second.X = 460
	second.Y = first.Y - 40
	second.Facing = sim.FacingLeft
	second.Anim = sim.AnimSprint
	second.Score = 1

	b.Observe(base, first)
	b.Observe(base.Add(100*time.Millisecond), second)

	// The render target lands 30% of the way through the bracket.
	pose, ok := b.Sample(base.Add(InterpDelay + 30*time.Millisecond))
	if !ok {
		t.Fatalf("expected a pose from a full buffer")
	}
	if want := 400 + (460-400)*0.3; !almostEqual(pose.X, want) {
		t.Fatalf("expected x %.3f, got %.3f", want, pose.X)
	}
	if want := first.Y + (second.Y-first.Y)*0.3; !almostEqual(pose.Y, want) {
		t.Fatalf("expected y %.3f, got %.3f", want, pose.Y)
	}
	if pose.Facing != sim.FacingRight {
		t.Fatalf("expected facing to hold until the midpoint, got %q", pose.Facing)
	}
	if pose.Anim != sim.AnimSprint {
		t.Fatalf("expected anim from the later snapshot, got %q", pose.Anim)
	}
	if pose.Score != 1 {
		t.Fatalf("expected score from the later snapshot, got %d", pose.Score)
	}

	// Past the midpoint the facing flips to the later snapshot's.
	pose, ok = b.Sample(base.Add(InterpDelay + 70*time.Millisecond))
	if !ok {
		t.Fatalf("expected a pose from a full buffer")
	}
	if pose.Facing != sim.FacingLeft {
		t.Fatalf("expected facing to flip past the midpoint, got %q", pose.Facing)
	}
}

func TestInterpSampleExtrapolatesAYoungBufferBackward(t *testing.T) {
	b := NewInterpBuffer()
	base := time.Unix(1000, 0)

	snap := sim.NewCombatant("p2", "squire", 400, sim.FacingRight)
	snap.VX = sim.MoveSpeed
	b.Observe(base, snap)

	// Only one snapshot has arrived, so the 100ms render target sits
	// before it. The fighter rewinds along its velocity.
	pose, ok := b.Sample(base)
	if !ok {
		t.Fatalf("expected a pose")
	}
	if want := 400 - sim.MoveSpeed*0.1; !almostEqual(pose.X, want) {
		t.Fatalf("expected x %.3f, got %.3f", want, pose.X)
	}
}

func TestInterpSampleClampsExtrapolation(t *testing.T) {
	b := NewInterpBuffer()
	base := time.Unix(1000, 0)

	snap := sim.NewCombatant("p2", "squire", 400, sim.FacingRight)
	snap.VX = sim.MoveSpeed
	b.Observe(base, snap)

	// A stalled feed: the newest snapshot is far behind the render
	// target. The pose advances at most MaxExtrapolation along the
	// last velocity and then freezes.
	pose, ok := b.Sample(base.Add(InterpDelay + 2*time.Second))
	if !ok {
		t.Fatalf("expected a pose")
	}
	if want := 400 + sim.MoveSpeed*MaxExtrapolation.Seconds(); !almostEqual(pose.X, want) {
		t.Fatalf("expected x frozen at %.3f, got %.3f", want, pose.X)
	}

	// Same clamp rewinding: a target far before the oldest snapshot.
	pose, ok = b.Sample(base.Add(-400 * time.Millisecond))
	if !ok {
		t.Fatalf("expected a pose")
	}
	if want := 400 - sim.MoveSpeed*MaxExtrapolation.Seconds(); !almostEqual(pose.X, want) {
		t.Fatalf("expected x frozen at %.3f, got %.3f", want, pose.X)
	}
}

func TestInterpBufferTrimsSnapshotsPastRetention(t *testing.T) {
	b := NewInterpBuffer()
	base := time.Unix(1000, 0)
	snap := sim.NewCombatant("p2", "squire", 400, sim.FacingRight)

	b.Observe(base, snap)
	b.Observe(base.Add(500*time.Millisecond), snap)
	b.Observe(base.Add(1200*time.Millisecond), snap)

	if len(b.entries) != 2 {
		t.Fatalf("expected the stale snapshot trimmed, got %d entries", len(b.entries))
	}
	if got := b.entries[0].at; !got.Equal(base.Add(500 * time.Millisecond)) {
		t.Fatalf("expected the 500ms snapshot to survive, oldest is %v", got)
	}
}

func TestInterpBufferIgnoresNonAdvancingArrivals(t *testing.T) {
	b := NewInterpBuffer()
	base := time.Unix(1000, 0)

	first := sim.NewCombatant("p2", "squire", 400, sim.FacingRight)
	stale := first
	stale.X = 999

	b.Observe(base, first)
	b.Observe(base, stale)
	b.Observe(base.Add(-10*time.Millisecond), stale)

	if len(b.entries) != 1 {
		t.Fatalf("expected non-advancing arrivals dropped, got %d entries", len(b.entries))
	}
	latest, ok := b.Latest()
	if !ok || latest.X != 400 {
		t.Fatalf("expected the original snapshot kept, got %+v ok=%v", latest, ok)
	}
}

func TestInterpResetEmptiesTheBuffer(t *testing.T) {
	b := NewInterpBuffer()
	if _, ok := b.Sample(time.Now()); ok {
		t.Fatalf("expected no pose from an empty buffer")
	}

	b.Observe(time.Unix(1000, 0), sim.NewCombatant("p2", "squire", 400, sim.FacingRight))
	b.Reset()

	if _, ok := b.Latest(); ok {
		t.Fatalf("expected no snapshot after reset")
	}
	if _, ok := b.Sample(time.Now()); ok {
		t.Fatalf("expected no pose after reset")
	}
}
