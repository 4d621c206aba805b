package ai

import (
	"testing"

	"crossblades/server/sim"
)

func TestPolicySameSeedSameDecisions(t *testing.T) {
	a := NewPolicy(42, DefaultPolicyConfig())
	b := NewPolicy(42, DefaultPolicyConfig())

	self := sim.NewCombatant("bot", "squire", 300, sim.FacingRight)
	opponent := sim.NewCombatant("p1", "brute", 700, sim.FacingLeft)

	for i := 0; i < 240; i++ {
		opponent.X = 700 - float64(i)*2
		opponent.Attacking = i%40 < 18
		got := a.Decide(self, opponent)
		want := b.Decide(self, opponent)
		if got != want {
			t.Fatalf("frame %d diverged between same-seed policies: %+v vs %+v", i, got, want)
		}
	}
}

func TestPolicyClosesDistance(t *testing.T) {
	p := NewPolicy(7, PolicyConfig{Aggression: 1, Jumpiness: 0, Caution: 0})

	self := sim.NewCombatant("bot", "squire", sim.SpawnLeftX, sim.FacingRight)
	opponent := sim.NewCombatant("p1", "brute", sim.SpawnRightX, sim.FacingLeft)

	for i := 0; i < 60; i++ {
		frame := p.Decide(self, opponent)
		if !frame.Right || frame.Left {
			t.Fatalf("frame %d: expected the bot to close a %.0f unit gap, got %+v",
				i, opponent.X-self.X, frame)
		}
	}
}

func TestPolicyAnswersSwingsWithParry(t *testing.T) {
	p := NewPolicy(3, PolicyConfig{Aggression: 1, Jumpiness: 0, Caution: 1})

	self := sim.NewCombatant("bot", "squire", 400, sim.FacingRight)
	opponent := sim.NewCombatant("p1", "brute", 500, sim.FacingLeft)
	opponent.Attacking = true

	frame := p.Decide(self, opponent)
	if !frame.Parry {
		t.Fatalf("expected a parry on the swing's first frame, got %+v", frame)
	}
	if frame.Attack {
		t.Fatalf("expected the parry to override the attack plan, got %+v", frame)
	}

	// The parry holds for a few frames, then the standing plan resumes.
	for i := 0; i < duelistParryHold-1; i++ {
		if frame = p.Decide(self, opponent); !frame.Parry {
			t.Fatalf("hold frame %d: expected the parry held, got %+v", i, frame)
		}
	}
	if frame = p.Decide(self, opponent); frame.Parry {
		t.Fatalf("expected the parry released after its hold, got %+v", frame)
	}
}

func TestPolicyIgnoresDistantSwings(t *testing.T) {
	p := NewPolicy(3, PolicyConfig{Aggression: 0, Jumpiness: 0, Caution: 1})

	self := sim.NewCombatant("bot", "squire", 100, sim.FacingRight)
	opponent := sim.NewCombatant("p1", "brute", 700, sim.FacingLeft)
	opponent.Attacking = true

	if frame := p.Decide(self, opponent); frame.Parry {
		t.Fatalf("expected no parry against a swing from across the arena, got %+v", frame)
	}
}

func TestPolicyIdlesWhenDead(t *testing.T) {
	p := NewPolicy(9, DefaultPolicyConfig())

	self := sim.NewCombatant("bot", "squire", 400, sim.FacingRight)
	opponent := sim.NewCombatant("p1", "brute", 450, sim.FacingLeft)

	// Build up a plan, then die mid-hold.
	p.Decide(self, opponent)
	self.Alive = false

	for i := 0; i < 10; i++ {
		if frame := p.Decide(self, opponent); frame != (sim.InputFrame{}) {
			t.Fatalf("frame %d: expected an empty frame from a corpse, got %+v", i, frame)
		}
	}
}
