// Package scenario describes battle setups and loads them from Lua, YAML or
// JSON files. A Scenario is the populator the engine consumes.
package scenario

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"
)

// Unit defaults.
const (
	DefaultHealth = 10
	DefaultSkill  = 4
	DefaultMove   = 4.0
	DefaultMorale = 8
)

// MaxUnits bounds the units of one scenario.
const MaxUnits = 5000

// Scenario is a complete battle setup.
type Scenario struct {
	Name       string  `json:"name" yaml:"name"`
	Seed       int64   `json:"seed,omitempty" yaml:"seed"`
	MaxRounds  int     `json:"max_rounds,omitempty" yaml:"max_rounds"`
	LocalTeam  string  `json:"local_team,omitempty" yaml:"local_team"`
	Withdrawal bool    `json:"withdrawal,omitempty" yaml:"withdrawal"`
	Teams      []Team  `json:"teams" yaml:"teams"`
	Forces     []Force `json:"forces" yaml:"forces"`
}

// Team is one side.
type Team struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name"`
}

// Force groups units under one team.
type Force struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name"`
	Team  string `json:"team" yaml:"team"`
	Units []Unit `json:"units" yaml:"units"`
}

// Unit is one entity. Zero numbers take the defaults; Move is a pointer so an
// explicit zero keeps a unit in place. A DeployRound above zero starts the
// unit in reserve.
type Unit struct {
	ID          string               `json:"id" yaml:"id"`
	Name        string               `json:"name,omitempty" yaml:"name"`
	X           float64              `json:"x,omitempty" yaml:"x"`
	Y           float64              `json:"y,omitempty" yaml:"y"`
	Health      int                  `json:"health,omitempty" yaml:"health"`
	Armor       int                  `json:"armor,omitempty" yaml:"armor"`
	Skill       int                  `json:"skill,omitempty" yaml:"skill"`
	Move        *float64             `json:"move,omitempty" yaml:"move"`
	Morale      int                  `json:"morale,omitempty" yaml:"morale"`
	DeployRound int                  `json:"deploy_round,omitempty" yaml:"deploy_round"`
	Weapons     []battlefield.Weapon `json:"weapons,omitempty" yaml:"weapons"`
	Effects     []battlefield.Effect `json:"effects,omitempty" yaml:"effects"`
}

// Entity converts the unit into a battlefield entity of force.
func (u Unit) Entity(force string) battlefield.Entity {
	e := battlefield.Entity{
		ID:          u.ID,
		Name:        u.Name,
		Force:       force,
		Position:    battlefield.Position{X: u.X, Y: u.Y},
		Health:      u.Health,
		Armor:       u.Armor,
		Skill:       u.Skill,
		Move:        DefaultMove,
		Morale:      u.Morale,
		DeployRound: u.DeployRound,
		Weapons:     append([]battlefield.Weapon(nil), u.Weapons...),
		Effects:     append([]battlefield.Effect(nil), u.Effects...),
	}
	if e.Health == 0 {
		e.Health = DefaultHealth
	}
	if e.Skill == 0 {
		e.Skill = DefaultSkill
	}
	if u.Move != nil {
		e.Move = *u.Move
	}
	if e.Morale == 0 {
		e.Morale = DefaultMorale
	}
	if u.DeployRound > 0 {
		e.Deployment = battlefield.DeploymentReserve
	}
	return e
}

// Validate checks ids and references. Weapon damage is checked when fired.
func (s *Scenario) Validate() error {
	if s == nil {
		return invalid("scenario is required", nil)
	}
	if strings.TrimSpace(s.Name) == "" {
		return invalid("scenario name is required", nil)
	}
	if s.MaxRounds < 0 || s.MaxRounds > engine.MaxRoundsLimit {
		return invalid(fmt.Sprintf("max_rounds must be between 0 and %d", engine.MaxRoundsLimit),
			map[string]string{"max_rounds": fmt.Sprint(s.MaxRounds)})
	}
	if n := s.UnitCount(); n > MaxUnits {
		return invalid(fmt.Sprintf("%d units exceed the limit of %d", n, MaxUnits),
			map[string]string{"units": fmt.Sprint(n)})
	}
	teams := make(map[string]bool, len(s.Teams))
	for _, team := range s.Teams {
		if strings.TrimSpace(team.ID) == "" {
			return invalid("team id is required", nil)
		}
		if teams[team.ID] {
			return invalid("duplicate team "+team.ID, map[string]string{"team": team.ID})
		}
		teams[team.ID] = true
	}
	if len(teams) < 2 {
		return invalid(fmt.Sprintf("at least 2 teams are required, have %d", len(teams)), nil)
	}
	if s.LocalTeam != "" && !teams[s.LocalTeam] {
		return invalid("unknown local team "+s.LocalTeam, map[string]string{"team": s.LocalTeam})
	}

	forces := make(map[string]bool, len(s.Forces))
	units := make(map[string]bool)
	for _, force := range s.Forces {
		if strings.TrimSpace(force.ID) == "" {
			return invalid("force id is required", nil)
		}
		if forces[force.ID] {
			return invalid("duplicate force "+force.ID, map[string]string{"force": force.ID})
		}
		forces[force.ID] = true
		if !teams[force.Team] {
			return invalid(fmt.Sprintf("force %s references unknown team %q", force.ID, force.Team),
				map[string]string{"force": force.ID, "team": force.Team})
		}
		for _, unit := range force.Units {
			if strings.TrimSpace(unit.ID) == "" {
				return invalid("unit id is required in force "+force.ID, map[string]string{"force": force.ID})
			}
			if units[unit.ID] {
				return invalid("duplicate unit "+unit.ID, map[string]string{"unit": unit.ID})
			}
			units[unit.ID] = true
			if unit.Health < 0 || unit.Armor < 0 || unit.DeployRound < 0 {
				return invalid("unit "+unit.ID+" has negative health, armor or deploy round", map[string]string{"unit": unit.ID})
			}
			if unit.Move != nil && *unit.Move < 0 {
				return invalid("unit "+unit.ID+" has negative move", map[string]string{"unit": unit.ID})
			}
			for _, w := range unit.Weapons {
				if w.Range < 0 {
					return invalid("unit "+unit.ID+" weapon "+w.Name+" has negative range", map[string]string{"unit": unit.ID})
				}
			}
		}
	}
	return nil
}

// Populate validates the scenario and places it on b.
func (s *Scenario) Populate(b *battlefield.Battlefield) error {
	if err := s.Validate(); err != nil {
		return err
	}
	for _, team := range s.Teams {
		if err := b.AddTeam(battlefield.Team{ID: team.ID, Name: team.Name}); err != nil {
			return apperrors.Wrap(apperrors.CodeScenarioInvalid, "add team", err)
		}
	}
	for _, force := range s.Forces {
		if err := b.AddForce(battlefield.Force{ID: force.ID, Name: force.Name, Team: force.Team}); err != nil {
			return apperrors.Wrap(apperrors.CodeScenarioInvalid, "add force", err)
		}
		for _, unit := range force.Units {
			if err := b.AddEntity(unit.Entity(force.ID)); err != nil {
				return apperrors.Wrap(apperrors.CodeScenarioInvalid, "add unit", err)
			}
		}
	}
	return nil
}

// Apply fills run settings the caller left unset from the scenario.
func (s *Scenario) Apply(cfg engine.Config) engine.Config {
	cfg.Scenario = s.Name
	if cfg.Seed == 0 {
		cfg.Seed = s.Seed
	}
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = s.MaxRounds
	}
	if cfg.LocalTeam == "" {
		cfg.LocalTeam = s.LocalTeam
	}
	cfg.Withdrawal = cfg.Withdrawal || s.Withdrawal
	return cfg
}

// UnitCount returns the number of units across all forces.
func (s *Scenario) UnitCount() int {
	n := 0
	for _, f := range s.Forces {
		n += len(f.Units)
	}
	return n
}

func invalid(message string, metadata map[string]string) error {
	return apperrors.WithMetadata(apperrors.CodeScenarioInvalid, message, metadata)
}
