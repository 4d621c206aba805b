package sim

// Outcome is the result of testing one attacker's blade against one defender
// for a single tick.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeHit
	OutcomeParried
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeParried:
		return "parried"
	default:
		return "none"
	}
}

// AttackReach returns the blade's extension for a swing that has been running
// for elapsed seconds. Reach grows linearly and caps at MaxReach once the
// ramp completes.
func AttackReach(elapsed float64) float64 {
	if elapsed <= 0 {
		return 0
	}
	fraction := elapsed / ReachRampTime
	if fraction > 1 {
		fraction = 1
	}
	return MaxReach * fraction
}

// SwordTip returns the world position of the attacker's blade tip. Crouching
// lowers the swing by the archetype's crouch offset.
func SwordTip(attacker CombatantState) (x, y float64) {
	dir := attacker.Facing.Sign()
	x = attacker.X + dir*(SwordTipOffset+AttackReach(attacker.AttackElapsed))
	y = attacker.Y - SwordHeight
	if attacker.Crouching {
		y += ArchetypeByName(attacker.Archetype).CrouchOffset
	}
	return x, y
}

// ResolveAttack tests the attacker's blade tip against one defender and
// reports what connected this tick. The parry zone is checked before the
// body box; the box would otherwise swallow nearly every parried tip.
func ResolveAttack(attacker, defender CombatantState) Outcome {
	if !attacker.Attacking || !attacker.Alive || !defender.Alive {
		return OutcomeNone
	}

	tipX, tipY := SwordTip(attacker)

	if defender.Parrying && facesToward(defender, attacker.X) && inParryZone(defender, tipX, tipY) {
		return OutcomeParried
	}

	minX, minY, maxX, maxY := defender.BodyBox()
	if tipX >= minX && tipX <= maxX && tipY >= minY && tipY <= maxY {
		return OutcomeHit
	}
	return OutcomeNone
}

// CancelSwing ends a swing without refunding its cooldown. The room calls it
// when a parry knocks the blade aside, so one clash cannot land on a later
// tick of the same swing.
func CancelSwing(attacker CombatantState) CombatantState {
	attacker.Attacking = false
	attacker.AttackElapsed = 0
	if attacker.Anim == AnimAttack {
		attacker.Anim = AnimIdle
	}
	return attacker
}

// Kill downs the defender and launches the body away from the attacker.
// Input stops mattering from here; Step keeps the ragdoll falling, sliding,
// and inside the arena.
func Kill(defender CombatantState, attackerX float64) CombatantState {
	defender.Alive = false
	defender.DeathElapsed = 0
	defender.Attacking = false
	defender.Parrying = false
	defender.Crouching = false
	defender.Sprinting = false

	away := 1.0
	if defender.X < attackerX {
		away = -1.0
	}
	defender.VX = away * DeathLaunchVX
	defender.VY = DeathLaunchVY
	defender.Grounded = false
	defender.Anim = AnimDeath
	return defender
}

// facesToward reports whether the defender is oriented at the attacker.
// Perfect overlap counts as facing; a guard raised point blank still guards.
func facesToward(defender CombatantState, attackerX float64) bool {
	dx := attackerX - defender.X
	if dx == 0 {
		return true
	}
	return (dx > 0) == (defender.Facing == FacingRight)
}

// inParryZone tests the tip against the shallow deflection window held in
// front of the defender's chest. The zone is smaller than the body box; a
// tip that lands behind it still hits.
func inParryZone(defender CombatantState, tipX, tipY float64) bool {
	dir := defender.Facing.Sign()
	nearX := defender.X + dir*ParryZoneInset
	farX := defender.X + dir*(ParryZoneInset+ParryZoneDepth)
	if nearX > farX {
		nearX, farX = farX, nearX
	}

	top := defender.Y - SwordHeight - ParryZoneHeight/2
	bottom := defender.Y - SwordHeight + ParryZoneHeight/2
	return tipX >= nearX && tipX <= farX && tipY >= top && tipY <= bottom
}
