package battlefield

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
)

// Battlefield is the shared mutable state of one run.
type Battlefield struct {
	teams      []Team
	teamIndex  map[string]int
	forces     []Force
	forceIndex map[string]int

	entities    []*Entity
	entityIndex map[string]*Entity
	removed     map[string]struct{}
	graveyard   []Casualty

	round      int
	victor     string
	draw       bool
	initiative Initiative
}

// New returns an empty battlefield at round 0.
func New() *Battlefield {
	return &Battlefield{
		teamIndex:   make(map[string]int),
		forceIndex:  make(map[string]int),
		entityIndex: make(map[string]*Entity),
		removed:     make(map[string]struct{}),
	}
}

// AddTeam registers a side.
func (b *Battlefield) AddTeam(team Team) error {
	team.ID = strings.TrimSpace(team.ID)
	if team.ID == "" {
		return fmt.Errorf("team: %w", ErrIDRequired)
	}
	if _, ok := b.teamIndex[team.ID]; ok {
		return duplicate("team", team.ID)
	}
	if team.Name == "" {
		team.Name = team.ID
	}
	b.teamIndex[team.ID] = len(b.teams)
	b.teams = append(b.teams, team)
	return nil
}

// AddForce registers a force under an existing team.
func (b *Battlefield) AddForce(force Force) error {
	force.ID = strings.TrimSpace(force.ID)
	if force.ID == "" {
		return fmt.Errorf("force: %w", ErrIDRequired)
	}
	if _, ok := b.forceIndex[force.ID]; ok {
		return duplicate("force", force.ID)
	}
	if _, ok := b.teamIndex[force.Team]; !ok {
		return fmt.Errorf("force %s: %w %q", force.ID, ErrUnknownTeam, force.Team)
	}
	if force.Name == "" {
		force.Name = force.ID
	}
	b.forceIndex[force.ID] = len(b.forces)
	b.forces = append(b.forces, force)
	return nil
}

// AddEntity places an entity on the battlefield. The force is resolved
// lazily so membership can be checked as a whole by Validate. Entities in
// reserve stay out of Active until deployed.
func (b *Battlefield) AddEntity(entity Entity) error {
	entity.ID = strings.TrimSpace(entity.ID)
	if entity.ID == "" {
		return fmt.Errorf("entity: %w", ErrIDRequired)
	}
	if _, ok := b.entityIndex[entity.ID]; ok {
		return duplicate("entity", entity.ID)
	}
	if b.Removed(entity.ID) {
		return duplicate("entity", entity.ID)
	}
	if entity.Health <= 0 {
		return fmt.Errorf("entity %s: %w", entity.ID, ErrNoHealth)
	}
	if entity.Name == "" {
		entity.Name = entity.ID
	}
	if entity.MaxHealth < entity.Health {
		entity.MaxHealth = entity.Health
	}
	if entity.MaxArmor < entity.Armor {
		entity.MaxArmor = entity.Armor
	}
	if entity.Deployment == "" {
		entity.Deployment = DeploymentDeployed
	}
	if entity.Posture == "" {
		entity.Posture = PostureHolding
	}
	if entity.MoraleState == "" {
		entity.MoraleState = MoraleSteady
	}
	e := entity.Clone()
	b.entities = append(b.entities, &e)
	b.entityIndex[e.ID] = &e
	return nil
}

// RemoveEntity moves a living entity to the graveyard. Removing an entity
// that is not active returns ErrEntityNotFound and changes nothing.
func (b *Battlefield) RemoveEntity(id, phase string, reason Reason) (Casualty, error) {
	e, ok := b.entityIndex[id]
	if !ok {
		return Casualty{}, apperrors.WrapWithMetadata(apperrors.CodeEntityNotFound,
			"remove entity "+id, map[string]string{"entity": id}, ErrEntityNotFound)
	}
	team, _ := b.ForceTeam(e.Force)
	casualty := Casualty{
		Entity: e.Clone(),
		Team:   team,
		Round:  b.round,
		Phase:  phase,
		Reason: reason,
	}
	delete(b.entityIndex, id)
	b.removed[id] = struct{}{}
	b.entities = slices.DeleteFunc(b.entities, func(candidate *Entity) bool {
		return candidate.ID == id
	})
	b.graveyard = append(b.graveyard, casualty)
	return casualty, nil
}

// Entity returns a living entity by id.
func (b *Battlefield) Entity(id string) (*Entity, bool) {
	e, ok := b.entityIndex[id]
	return e, ok
}

// Entities returns every living entity in insertion order.
func (b *Battlefield) Entities() []*Entity {
	return slices.Clone(b.entities)
}

// Active returns the living entities that are deployed.
func (b *Battlefield) Active() []*Entity {
	active := make([]*Entity, 0, len(b.entities))
	for _, e := range b.entities {
		if e.Deployed() {
			active = append(active, e)
		}
	}
	return active
}

// Living returns the living entities of a team in insertion order.
func (b *Battlefield) Living(team string) []*Entity {
	var living []*Entity
	for _, e := range b.entities {
		if !e.Alive() {
			continue
		}
		if t, ok := b.ForceTeam(e.Force); ok && t == team {
			living = append(living, e)
		}
	}
	return living
}

// LivingTeams returns, in registration order, the teams with at least one
// living entity.
func (b *Battlefield) LivingTeams() []string {
	counts := make(map[string]int, len(b.teams))
	for _, e := range b.entities {
		if !e.Alive() {
			continue
		}
		if t, ok := b.ForceTeam(e.Force); ok {
			counts[t]++
		}
	}
	var teams []string
	for _, team := range b.teams {
		if counts[team.ID] > 0 {
			teams = append(teams, team.ID)
		}
	}
	return teams
}

// Teams returns the registered teams.
func (b *Battlefield) Teams() []Team {
	return slices.Clone(b.teams)
}

// Team returns a team by id.
func (b *Battlefield) Team(id string) (Team, bool) {
	idx, ok := b.teamIndex[id]
	if !ok {
		return Team{}, false
	}
	return b.teams[idx], true
}

// Forces returns the registered forces.
func (b *Battlefield) Forces() []Force {
	return slices.Clone(b.forces)
}

// Force returns a force by id.
func (b *Battlefield) Force(id string) (Force, bool) {
	idx, ok := b.forceIndex[id]
	if !ok {
		return Force{}, false
	}
	return b.forces[idx], true
}

// ForceTeam resolves the team a force belongs to.
func (b *Battlefield) ForceTeam(forceID string) (string, bool) {
	force, ok := b.Force(forceID)
	if !ok {
		return "", false
	}
	if _, ok := b.teamIndex[force.Team]; !ok {
		return "", false
	}
	return force.Team, true
}

// TeamOf resolves the team of a living entity.
func (b *Battlefield) TeamOf(entityID string) (string, error) {
	e, ok := b.entityIndex[entityID]
	if !ok {
		return "", ErrEntityNotFound
	}
	team, ok := b.ForceTeam(e.Force)
	if !ok {
		return "", fmt.Errorf("entity %s force %q: %w", e.ID, e.Force, ErrMembership)
	}
	return team, nil
}

// Enemies reports whether two living entities are on different teams.
func (b *Battlefield) Enemies(a, c *Entity) bool {
	ta, okA := b.ForceTeam(a.Force)
	tc, okC := b.ForceTeam(c.Force)
	return okA && okC && ta != tc
}

// Validate checks that every living entity resolves to a force and a team.
func (b *Battlefield) Validate() error {
	for _, e := range b.entities {
		if _, ok := b.ForceTeam(e.Force); !ok {
			return fmt.Errorf("entity %s force %q: %w", e.ID, e.Force, ErrMembership)
		}
	}
	return nil
}

// Graveyard returns the casualties in removal order.
func (b *Battlefield) Graveyard() []Casualty {
	return slices.Clone(b.graveyard)
}

// CasualtiesIn returns the casualties recorded during round.
func (b *Battlefield) CasualtiesIn(round int) []Casualty {
	var out []Casualty
	for _, c := range b.graveyard {
		if c.Round == round {
			out = append(out, c)
		}
	}
	return out
}

// Removed reports whether an entity has entered the graveyard.
func (b *Battlefield) Removed(id string) bool {
	_, ok := b.removed[id]
	return ok
}

// Round returns the current round number.
func (b *Battlefield) Round() int {
	return b.round
}

// AdvanceRound increments the round and returns the new value.
func (b *Battlefield) AdvanceRound() int {
	b.round++
	return b.round
}

// SetVictor records the winning team. It fails once the battle is decided.
func (b *Battlefield) SetVictor(team string) error {
	if b.Decided() {
		return ErrVictorAlreadySet
	}
	if _, ok := b.teamIndex[team]; !ok {
		return fmt.Errorf("victor %q: %w", team, ErrUnknownTeam)
	}
	b.victor = team
	return nil
}

// MarkDraw records that no team is left standing.
func (b *Battlefield) MarkDraw() error {
	if b.Decided() {
		return ErrVictorAlreadySet
	}
	b.draw = true
	return nil
}

// Victor returns the winning team id, or "" when none is set.
func (b *Battlefield) Victor() string {
	return b.victor
}

// Draw reports whether the battle ended with no team standing.
func (b *Battlefield) Draw() bool {
	return b.draw
}

// Decided reports whether a victor or a draw has been recorded.
func (b *Battlefield) Decided() bool {
	return b.victor != "" || b.draw
}

// SetInitiative replaces the acting order for the current round.
func (b *Battlefield) SetInitiative(initiative Initiative) {
	b.initiative = Initiative{
		Teams: slices.Clone(initiative.Teams),
		Order: slices.Clone(initiative.Order),
	}
}

// Initiative returns the acting order for the current round.
func (b *Battlefield) Initiative() Initiative {
	return Initiative{
		Teams: slices.Clone(b.initiative.Teams),
		Order: slices.Clone(b.initiative.Order),
	}
}

// ActingOrder returns the living entities in initiative order. Entities that
// joined after initiative was rolled act last, in insertion order.
func (b *Battlefield) ActingOrder() []*Entity {
	order := make([]*Entity, 0, len(b.entities))
	seen := make(map[string]struct{}, len(b.entities))
	for _, id := range b.initiative.Order {
		if e, ok := b.entityIndex[id]; ok {
			order = append(order, e)
			seen[id] = struct{}{}
		}
	}
	for _, e := range b.entities {
		if _, ok := seen[e.ID]; !ok {
			order = append(order, e)
		}
	}
	return order
}

func duplicate(kind, id string) error {
	return apperrors.WrapWithMetadata(apperrors.CodeEntityDuplicate,
		kind+" "+id, map[string]string{"kind": kind, "id": id}, ErrDuplicate)
}
