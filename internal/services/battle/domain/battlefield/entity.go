package battlefield

import (
	"math"
	"slices"
)

// Posture is the stance an entity took during movement.
type Posture string

const (
	PostureHolding     Posture = "holding"
	PostureAdvancing   Posture = "advancing"
	PostureFallingBack Posture = "falling_back"
)

// Deployment tracks whether an entity has entered the battle.
type Deployment string

const (
	DeploymentReserve  Deployment = "reserve"
	DeploymentDeployed Deployment = "deployed"
)

// MoraleState escalates from steady to broken as an entity loses heart.
type MoraleState string

const (
	MoraleSteady MoraleState = "steady"
	MoraleShaken MoraleState = "shaken"
	MoraleBroken MoraleState = "broken"
)

// Worsen returns the next state down, stopping at broken.
func (m MoraleState) Worsen() MoraleState {
	switch m {
	case MoraleSteady, "":
		return MoraleShaken
	default:
		return MoraleBroken
	}
}

// Recover returns the next state up, stopping at steady.
func (m MoraleState) Recover() MoraleState {
	if m == MoraleBroken {
		return MoraleShaken
	}
	return MoraleSteady
}

// Known effect kinds.
const (
	EffectSuppressed = "suppressed"
	EffectPinned     = "pinned"
)

// KnownEffect reports whether kind is an effect the engine understands.
func KnownEffect(kind string) bool {
	switch kind {
	case EffectSuppressed, EffectPinned:
		return true
	default:
		return false
	}
}

// Effect is a temporary status with a number of rounds left. Applied is the
// round the effect was last applied in; it does not decay during that round.
type Effect struct {
	Kind    string `json:"kind" yaml:"kind"`
	Rounds  int    `json:"rounds" yaml:"rounds"`
	Applied int    `json:"applied,omitempty" yaml:"applied"`
}

// Weapon is a ranged or melee attack profile. Damage is a dice expression.
type Weapon struct {
	Name     string  `json:"name" yaml:"name"`
	Damage   string  `json:"damage" yaml:"damage"`
	Range    float64 `json:"range" yaml:"range"`
	Accuracy int     `json:"accuracy,omitempty" yaml:"accuracy"`
}

// Position is a point on the battlefield plane.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Distance returns the straight-line distance to other.
func (p Position) Distance(other Position) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

// Toward returns the point step units from p in the direction of target.
// A negative step moves away. The result never overshoots target.
func (p Position) Toward(target Position, step float64) Position {
	dist := p.Distance(target)
	if dist == 0 || step == 0 {
		return p
	}
	if step > dist {
		return target
	}
	ratio := step / dist
	return Position{
		X: p.X + (target.X-p.X)*ratio,
		Y: p.Y + (target.Y-p.Y)*ratio,
	}
}

// Entity is one combatant. Entities are referenced by ID and belong to Force.
type Entity struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Force       string      `json:"force"`
	Position    Position    `json:"position"`
	Posture     Posture     `json:"posture"`
	Deployment  Deployment  `json:"deployment"`
	DeployRound int         `json:"deploy_round,omitempty"`
	Health      int         `json:"health"`
	MaxHealth   int         `json:"max_health"`
	Armor       int         `json:"armor,omitempty"`
	MaxArmor    int         `json:"max_armor,omitempty"`
	Skill       int         `json:"skill"`
	Move        float64     `json:"move"`
	Morale      int         `json:"morale"`
	MoraleState MoraleState `json:"morale_state"`
	Weapons     []Weapon    `json:"weapons,omitempty"`
	Effects     []Effect    `json:"effects,omitempty"`
	DamageTaken int         `json:"damage_taken,omitempty"`
}

// Alive reports whether the entity has health left.
func (e *Entity) Alive() bool {
	return e != nil && e.Health > 0
}

// Deployed reports whether the entity has entered the battle.
func (e *Entity) Deployed() bool {
	return e != nil && e.Deployment == DeploymentDeployed
}

// MaxRange is the longest range among the entity's weapons.
func (e *Entity) MaxRange() float64 {
	longest := 0.0
	for _, w := range e.Weapons {
		longest = max(longest, w.Range)
	}
	return longest
}

// HasEffect reports whether an effect of kind is active.
func (e *Entity) HasEffect(kind string) bool {
	for _, effect := range e.Effects {
		if effect.Kind == kind && effect.Rounds > 0 {
			return true
		}
	}
	return false
}

// AddEffect applies an effect during round, extending the duration of an
// existing one.
func (e *Entity) AddEffect(kind string, rounds, round int) {
	for i := range e.Effects {
		if e.Effects[i].Kind == kind {
			e.Effects[i].Rounds = max(e.Effects[i].Rounds, rounds)
			e.Effects[i].Applied = round
			return
		}
	}
	e.Effects = append(e.Effects, Effect{Kind: kind, Rounds: rounds, Applied: round})
}

// ApplyDamage absorbs amount with armor first, then health. It returns the
// portions taken by armor and by health.
func (e *Entity) ApplyDamage(amount int) (armor, health int) {
	if amount <= 0 {
		return 0, 0
	}
	armor = min(amount, e.Armor)
	e.Armor -= armor
	health = min(amount-armor, e.Health)
	e.Health -= health
	e.DamageTaken += armor + health
	return armor, health
}

// Clone returns a deep copy suitable for snapshots.
func (e *Entity) Clone() Entity {
	if e == nil {
		return Entity{}
	}
	cp := *e
	cp.Weapons = slices.Clone(e.Weapons)
	cp.Effects = slices.Clone(e.Effects)
	return cp
}

// Team is one side of the battle.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Force is a unit of command belonging to one team.
type Force struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"`
}

// Reason records why an entity left the battle.
type Reason string

const (
	ReasonDestroyed Reason = "destroyed"
	ReasonWithdrawn Reason = "withdrawn"
)

// Casualty is a graveyard record.
type Casualty struct {
	Entity Entity `json:"entity"`
	Team   string `json:"team"`
	Round  int    `json:"round"`
	Phase  string `json:"phase"`
	Reason Reason `json:"reason"`
}

// Initiative is the acting order for the current round.
type Initiative struct {
	Teams []string `json:"teams"`
	Order []string `json:"order"`
}
