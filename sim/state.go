// Package sim is the deterministic duel kernel shared by the server's room
// loop and the client's predictor. Everything in it is pure: Step and
// ResolveAttack read only their arguments, touch no clocks, and draw no
// randomness, so both sides of the wire can run them independently and agree.
package sim

type FacingDirection string

const (
	FacingLeft  FacingDirection = "left"
	FacingRight FacingDirection = "right"
)

// Sign returns the unit x direction for the facing.
func (f FacingDirection) Sign() float64 {
	if f == FacingLeft {
		return -1
	}
	return 1
}

// Opposite returns the mirrored facing.
func (f FacingDirection) Opposite() FacingDirection {
	if f == FacingLeft {
		return FacingRight
	}
	return FacingLeft
}

// Anim labels the pose a renderer should show for the current state. The
// kernel derives it at the end of every step; it is never an input.
type Anim string

const (
	AnimIdle   Anim = "idle"
	AnimRun    Anim = "run"
	AnimSprint Anim = "sprint"
	AnimJump   Anim = "jump"
	AnimCrouch Anim = "crouch"
	AnimAttack Anim = "attack"
	AnimParry  Anim = "parry"
	AnimDeath  Anim = "death"
)

// Archetype fixes a combatant's body geometry. Positions anchor at the feet
// center; the body box extends Height upward and Width/2 to each side.
// Crouching drops the top of the box by CrouchOffset.
type Archetype struct {
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	CrouchOffset float64 `json:"crouchOffset"`
}

const DefaultArchetype = "squire"

var archetypes = map[string]Archetype{
	"squire": {Width: 36, Height: 96, CrouchOffset: 28},
	"brute":  {Width: 44, Height: 110, CrouchOffset: 32},
}

// ArchetypeByName resolves a body definition, falling back to the default
// for unknown names so a bad wire value can never produce a zero-size body.
func ArchetypeByName(name string) Archetype {
	if a, ok := archetypes[name]; ok {
		return a
	}
	return archetypes[DefaultArchetype]
}

// ArchetypeNames lists the known archetypes in stable order.
func ArchetypeNames() []string {
	return []string{"squire", "brute"}
}

// NormalizeArchetype maps empty or unknown names to the default archetype.
// The server applies it at join time so snapshots never carry a name the
// client cannot resolve.
func NormalizeArchetype(name string) string {
	if _, ok := archetypes[name]; ok {
		return name
	}
	return DefaultArchetype
}

// CombatantState is the full simulation state of one fighter. It doubles as
// the wire projection: the server broadcasts it verbatim and the client's
// reconciler overwrites its own copy with it, so every field that affects
// Step must live here and carry a tag.
type CombatantState struct {
	ID        string          `json:"id"`
	Archetype string          `json:"archetype"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	VX        float64         `json:"vx"`
	VY        float64         `json:"vy"`
	Facing    FacingDirection `json:"facing"`
	Grounded  bool            `json:"grounded"`
	Alive     bool            `json:"alive"`

	DeathElapsed float64 `json:"deathElapsed,omitempty"`

	Attacking      bool    `json:"attacking,omitempty"`
	AttackElapsed  float64 `json:"attackElapsed,omitempty"`
	AttackCooldown float64 `json:"attackCooldown,omitempty"`

	Parrying      bool    `json:"parrying,omitempty"`
	ParryTimer    float64 `json:"parryTimer,omitempty"`
	ParryCooldown float64 `json:"parryCooldown,omitempty"`

	Sprinting bool `json:"sprinting,omitempty"`
	Crouching bool `json:"crouching,omitempty"`

	Anim  Anim `json:"anim"`
	Score int  `json:"score"`
}

// NewCombatant spawns a fighter standing on the floor at x.
func NewCombatant(id, archetype string, x float64, facing FacingDirection) CombatantState {
	return CombatantState{
		ID:        id,
		Archetype: archetype,
		X:         x,
		Y:         FloorY,
		Facing:    facing,
		Grounded:  true,
		Alive:     true,
		Anim:      AnimIdle,
	}
}

// BodyBox returns the combatant's hittable box in world coordinates.
func (c CombatantState) BodyBox() (minX, minY, maxX, maxY float64) {
	body := ArchetypeByName(c.Archetype)
	top := c.Y - body.Height
	if c.Crouching {
		top += body.CrouchOffset
	}
	return c.X - body.Width/2, top, c.X + body.Width/2, c.Y
}
