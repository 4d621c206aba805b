// Package ai drives a practice opponent. The policy reads the same
// authoritative state a human sees and emits plain input frames, so a
// bot-driven fighter goes through the identical server path as a
// keyboard-driven one.
package ai

import (
	"math"
	"math/rand"

	"crossblades/server/sim"
)

const (
	duelistApproachRange = 140.0
	duelistRetreatRange  = 50.0
	duelistParryRange    = 150.0
	duelistParryHold     = 4
	duelistHoldMin       = 6
	duelistHoldSpan      = 12
)

// PolicyConfig shapes the bot's temperament. All three knobs are
// probabilities in [0, 1].
type PolicyConfig struct {
	// Aggression is the chance an in-range decision becomes a swing.
	Aggression float64
	// Jumpiness is the chance any fresh plan adds a hop.
	Jumpiness float64
	// Caution is the chance the bot answers an incoming swing with a parry.
	Caution float64
}

// DefaultPolicyConfig returns a bot that fights back without reading
// like a script.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Aggression: 0.65,
		Jumpiness:  0.15,
		Caution:    0.5,
	}
}

// Policy holds one bot's rolling decision state. It is not goroutine
// safe; call Decide from a single loop.
type Policy struct {
	rng *rand.Rand
	cfg PolicyConfig

	plan        sim.InputFrame
	holdFrames  int
	parryFrames int

	opponentWasAttacking bool
}

// NewPolicy seeds a bot. The same seed against the same opponent states
// replays the same fight.
func NewPolicy(seed int64, cfg PolicyConfig) *Policy {
	return &Policy{
		rng: rand.New(rand.NewSource(seed)),
		cfg: cfg,
	}
}

// Decide emits the next input frame for self against opponent. Plans are
// held for a handful of frames so the bot commits to moves the way a
// human does, but an opponent's swing can interrupt any plan with a
// parry.
func (p *Policy) Decide(self, opponent sim.CombatantState) sim.InputFrame {
	if !self.Alive {
		p.plan = sim.InputFrame{}
		p.holdFrames = 0
		p.parryFrames = 0
		return sim.InputFrame{}
	}

	swingStarted := opponent.Attacking && !p.opponentWasAttacking
	p.opponentWasAttacking = opponent.Attacking

	dx := opponent.X - self.X
	dist := math.Abs(dx)

	if swingStarted && opponent.Alive && dist < duelistParryRange && p.rng.Float64() < p.cfg.Caution {
		p.parryFrames = duelistParryHold
	}

	if p.holdFrames > 0 {
		p.holdFrames--
	} else {
		p.plan = p.nextPlan(dx, dist)
		p.holdFrames = duelistHoldMin + p.rng.Intn(duelistHoldSpan)
	}

	frame := p.plan
	if p.parryFrames > 0 {
		p.parryFrames--
		frame.Parry = true
		frame.Attack = false
	}
	return frame
}

func (p *Policy) nextPlan(dx, dist float64) sim.InputFrame {
	var frame sim.InputFrame
	switch {
	case dist > duelistApproachRange:
		moveToward(&frame, dx)
		frame.Sprint = p.rng.Float64() < 0.5
	case dist < duelistRetreatRange:
		moveAway(&frame, dx)
	default:
		if p.rng.Float64() < p.cfg.Aggression {
			frame.Attack = true
		} else if p.rng.Float64() < 0.5 {
			moveToward(&frame, dx)
		} else {
			moveAway(&frame, dx)
		}
	}
	if p.rng.Float64() < p.cfg.Jumpiness {
		frame.Jump = true
	}
	if !frame.Attack && p.rng.Float64() < 0.05 {
		frame.Crouch = true
	}
	return frame
}

func moveToward(frame *sim.InputFrame, dx float64) {
	if dx < 0 {
		frame.Left = true
	} else {
		frame.Right = true
	}
}

func moveAway(frame *sim.InputFrame, dx float64) {
	if dx < 0 {
		frame.Right = true
	} else {
		frame.Left = true
	}
}
