package sim

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
)

// duelScript is a fixed input schedule for both fighters, long enough to
// exercise movement, jumps, swings, parries, and a kill ragdoll.
func duelScript() [][2]InputFrame {
	script := make([][2]InputFrame, 0, 240)
	for tick := 0; tick < 240; tick++ {
		var left, right InputFrame
		switch {
		case tick < 40:
			left.Right = true
			right.Left = true
			right.Sprint = true
		case tick < 60:
			left.Jump = true
			right.Crouch = true
		case tick < 90:
			left.Attack = true
			right.Parry = true
		case tick < 140:
			left.Left = true
			right.Attack = true
			right.Right = true
		default:
			left.Attack = true
			left.Right = true
			right.Jump = true
		}
		script = append(script, [2]InputFrame{left, right})
	}
	return script
}

func runDuelScript(t *testing.T) (CombatantState, CombatantState, string) {
	t.Helper()

	a := NewCombatant("duelist-a", "squire", SpawnLeftX, FacingRight)
	b := NewCombatant("duelist-b", "brute", SpawnRightX, FacingLeft)

	hasher := sha256.New()
	for tick, frames := range duelScript() {
		a = Step(a, frames[0], TickDelta)
		b = Step(b, frames[1], TickDelta)

		if b.Alive {
			if ResolveAttack(a, b) == OutcomeHit {
				b = Kill(b, a.X)
			}
		}

		payload, err := json.Marshal([2]CombatantState{a, b})
		if err != nil {
			t.Fatalf("tick %d: marshal failed: %v", tick, err)
		}
		hasher.Write(payload)
	}
	return a, b, hex.EncodeToString(hasher.Sum(nil))
}

func TestKernelIsDeterministic(t *testing.T) {
	a1, b1, sum1 := runDuelScript(t)
	a2, b2, sum2 := runDuelScript(t)

	if a1 != a2 || b1 != b2 {
		t.Fatalf("identical scripts diverged:\nfirst  %+v / %+v\nsecond %+v / %+v", a1, b1, a2, b2)
	}
	if sum1 != sum2 {
		t.Fatalf("per-tick checksums diverged: %s vs %s", sum1, sum2)
	}
}

func TestStepDoesNotMutateItsArgument(t *testing.T) {
	before := NewCombatant("duelist-a", DefaultArchetype, 300, FacingRight)
	frozen := before

	Step(before, InputFrame{Right: true, Jump: true, Attack: true}, TickDelta)

	if before != frozen {
		t.Fatalf("expected value semantics, argument mutated: %+v", before)
	}
}

func TestFingerprintIsStable(t *testing.T) {
	first := Fingerprint()
	second := Fingerprint()

	if first != second {
		t.Fatalf("fingerprint not stable: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected a sha256 hex digest, got %q", first)
	}
}
