package combat

import (
	"context"

	"crossblades/server/logging"
)

const (
	// EventHit is emitted when a swing lands and ends the round.
	EventHit logging.EventType = "combat.hit"
	// EventParried is emitted when a defender deflects a swing.
	EventParried logging.EventType = "combat.parried"
)

// HitPayload captures where the killing blow landed.
type HitPayload struct {
	Round  int     `json:"round"`
	DeathX float64 `json:"deathX"`
	DeathY float64 `json:"deathY"`
}

// ParriedPayload captures the clash context.
type ParriedPayload struct {
	Round int `json:"round"`
}

// Hit publishes the round-ending blow. Actor is the attacker, target the
// downed defender.
func Hit(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload HitPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventHit,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Parried publishes a deflected swing. Actor is the attacker whose swing was
// cancelled, target the parrying defender.
func Parried(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload ParriedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventParried,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
