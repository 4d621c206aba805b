package sim

// Step advances one combatant by a single fixed tick. The sub-step order is
// load-bearing: prediction and reconciliation replay inputs through this
// exact sequence, so any reordering desynchronizes every client in flight.
func Step(state CombatantState, in InputFrame, dt float64) CombatantState {
	next := state

	// 1. Timers run down first so a window opened this tick survives intact.
	next.AttackCooldown = decay(next.AttackCooldown, dt)
	next.ParryCooldown = decay(next.ParryCooldown, dt)
	if next.Parrying {
		next.ParryTimer = decay(next.ParryTimer, dt)
		if next.ParryTimer == 0 {
			next.Parrying = false
		}
	}

	if next.Alive {
		// 2. Horizontal intent and facing.
		next.VX = 0
		if in.Left != in.Right {
			speed := MoveSpeed
			if in.Sprint {
				speed = SprintSpeed
			}
			if in.Left {
				next.VX = -speed
				next.Facing = FacingLeft
			} else {
				next.VX = speed
				next.Facing = FacingRight
			}
		}
		next.Sprinting = in.Sprint && next.VX != 0

		// 3. Crouch plants the feet.
		next.Crouching = in.Crouch && next.Grounded
		if next.Crouching {
			next.VX = 0
			next.Sprinting = false
		}

		// 4. Parry start wins over jump start on the same tick.
		if in.Parry && next.Grounded && !next.Attacking && !next.Parrying && next.ParryCooldown == 0 {
			next.Parrying = true
			next.ParryTimer = ParryDuration
			next.ParryCooldown = ParryCooldownTime
		} else if in.Jump && next.Grounded {
			next.VY = JumpVelocity
			next.Grounded = false
		}
	} else {
		// Downed bodies ignore input; the slide damps out on the ground.
		next.DeathElapsed += dt
		if next.Grounded {
			damp := 1 - GroundFriction*dt
			if damp < 0 {
				damp = 0
			}
			next.VX *= damp
		}
	}

	// 5. Gravity.
	if !next.Grounded {
		dv := Gravity * dt
		next.VY += dv
	}

	// 6. Integrate. Intermediate variables force rounding so FMA-capable
	// targets produce the same bits as everyone else.
	dx := next.VX * dt
	dy := next.VY * dt
	next.X += dx
	next.Y += dy

	// 7. Floor snap, then arena clamp.
	if next.Y >= FloorY {
		next.Y = FloorY
		next.VY = 0
		next.Grounded = true
	}
	next.X = clamp(next.X, ArenaMinX, ArenaMaxX)

	// 8. Attack lifecycle.
	if next.Alive {
		if in.Attack && !next.Attacking && !next.Parrying && next.AttackCooldown == 0 {
			next.Attacking = true
			next.AttackElapsed = 0
			next.AttackCooldown = AttackCooldownTime
		} else if next.Attacking {
			next.AttackElapsed += dt
			if next.AttackElapsed >= AttackDuration {
				next.Attacking = false
			}
		}
	}

	// 9. Pose label for the renderer.
	next.Anim = deriveAnim(next)
	return next
}

// deriveAnim maps flags to the pose a renderer should draw. Priority is
// fixed: death, attack, parry, crouch, airborne, sprint, run, idle.
func deriveAnim(c CombatantState) Anim {
	switch {
	case !c.Alive:
		return AnimDeath
	case c.Attacking:
		return AnimAttack
	case c.Parrying:
		return AnimParry
	case c.Crouching:
		return AnimCrouch
	case !c.Grounded:
		return AnimJump
	case c.Sprinting:
		return AnimSprint
	case c.VX != 0:
		return AnimRun
	default:
		return AnimIdle
	}
}

func decay(timer, dt float64) float64 {
	timer -= dt
	if timer < 0 {
		return 0
	}
	return timer
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
