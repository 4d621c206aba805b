package sim

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Every tuning value the kernel reads lives in this block. Server and client
// binaries must be built from the same numbers or they stop agreeing tick for
// tick, which is why Fingerprint below folds all of them into the handshake.
const (
	TickRate  = 60         // simulation ticks per second, both sides
	TickDelta = 1.0 / 60.0 // seconds per tick

	MoveSpeed    = 288.0  // units per second (4.8 per tick)
	SprintSpeed  = 432.0
	JumpVelocity = -840.0 // units per second, negative is up
	Gravity      = 2600.0 // units per second squared

	FloorY    = 476.0
	ArenaMinX = 40.0
	ArenaMaxX = 920.0

	SpawnLeftX  = 240.0
	SpawnRightX = 720.0

	AttackDuration     = 0.30 // seconds a swing stays active
	AttackCooldownTime = 0.45 // seconds between swing starts
	ReachRampTime      = 0.18 // seconds for the blade to reach full extension
	MaxReach           = 88.0
	SwordTipOffset     = 26.0 // tip distance from the body at zero reach
	SwordHeight        = 72.0 // blade height above the feet

	ParryDuration     = 0.25
	ParryCooldownTime = 0.60
	ParryZoneInset    = 10.0 // zone start, forward of the body center
	ParryZoneDepth    = 40.0
	ParryZoneHeight   = 64.0

	DeathLaunchVX  = 420.0  // ragdoll impulse away from the killer
	DeathLaunchVY  = -520.0
	GroundFriction = 6.0    // per-second damping on a downed body's slide
)

// Constants is the canonical serialization hashed by Fingerprint. Field
// order is part of the digest; append, never reorder.
type Constants struct {
	TickRate           int                  `json:"tickRate"`
	MoveSpeed          float64              `json:"moveSpeed"`
	SprintSpeed        float64              `json:"sprintSpeed"`
	JumpVelocity       float64              `json:"jumpVelocity"`
	Gravity            float64              `json:"gravity"`
	FloorY             float64              `json:"floorY"`
	ArenaMinX          float64              `json:"arenaMinX"`
	ArenaMaxX          float64              `json:"arenaMaxX"`
	SpawnLeftX         float64              `json:"spawnLeftX"`
	SpawnRightX        float64              `json:"spawnRightX"`
	AttackDuration     float64              `json:"attackDuration"`
	AttackCooldownTime float64              `json:"attackCooldownTime"`
	ReachRampTime      float64              `json:"reachRampTime"`
	MaxReach           float64              `json:"maxReach"`
	SwordTipOffset     float64              `json:"swordTipOffset"`
	SwordHeight        float64              `json:"swordHeight"`
	ParryDuration      float64              `json:"parryDuration"`
	ParryCooldownTime  float64              `json:"parryCooldownTime"`
	ParryZoneInset     float64              `json:"parryZoneInset"`
	ParryZoneDepth     float64              `json:"parryZoneDepth"`
	ParryZoneHeight    float64              `json:"parryZoneHeight"`
	DeathLaunchVX      float64              `json:"deathLaunchVX"`
	DeathLaunchVY      float64              `json:"deathLaunchVY"`
	GroundFriction     float64              `json:"groundFriction"`
	Archetypes         map[string]Archetype `json:"archetypes"`
}

// SharedConstants bundles every tuning value and archetype into one
// structure. The HTTP surface serves it so a client build can be checked
// against the server's numbers without digging through source.
func SharedConstants() Constants {
	return Constants{
		TickRate:           TickRate,
		MoveSpeed:          MoveSpeed,
		SprintSpeed:        SprintSpeed,
		JumpVelocity:       JumpVelocity,
		Gravity:            Gravity,
		FloorY:             FloorY,
		ArenaMinX:          ArenaMinX,
		ArenaMaxX:          ArenaMaxX,
		SpawnLeftX:         SpawnLeftX,
		SpawnRightX:        SpawnRightX,
		AttackDuration:     AttackDuration,
		AttackCooldownTime: AttackCooldownTime,
		ReachRampTime:      ReachRampTime,
		MaxReach:           MaxReach,
		SwordTipOffset:     SwordTipOffset,
		SwordHeight:        SwordHeight,
		ParryDuration:      ParryDuration,
		ParryCooldownTime:  ParryCooldownTime,
		ParryZoneInset:     ParryZoneInset,
		ParryZoneDepth:     ParryZoneDepth,
		ParryZoneHeight:    ParryZoneHeight,
		DeathLaunchVX:      DeathLaunchVX,
		DeathLaunchVY:      DeathLaunchVY,
		GroundFriction:     GroundFriction,
		Archetypes:         archetypes,
	}
}

// Fingerprint digests every tuning constant and archetype into a hex string.
// The server reports it during the handshake and clients refuse to play a
// build whose digest differs from their own.
func Fingerprint() string {
	payload, err := json.Marshal(SharedConstants())
	if err != nil {
		panic("sim: tuning block not serializable: " + err.Error())
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
