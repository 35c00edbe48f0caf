// Package rules computes attack and morale results for the battle phases.
//
// Phases depend only on the Resolver interface, so the combat math can be
// replaced without touching the pipeline. Standard is the default 2d6
// target-number system.
package rules

import (
	"fmt"
	"math/rand"

	"github.com/louisbranch/autoresolve/internal/core/check"
	"github.com/louisbranch/autoresolve/internal/core/dice"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
)

// Attack describes one weapon fired at one target.
type Attack struct {
	Attacker *battlefield.Entity
	Target   *battlefield.Entity
	Weapon   battlefield.Weapon
	Distance float64
}

// AttackResult is the rolled outcome of an Attack. Damage is not applied.
type AttackResult struct {
	Target int
	Roll   int
	Hit    bool
	Damage int
}

// MoraleResult is the outcome of a morale check.
type MoraleResult struct {
	Target int
	Roll   int
	Passed bool
}

// Resolver computes combat outcomes from the run's random source.
type Resolver interface {
	ResolveAttack(rng *rand.Rand, attack Attack) (AttackResult, error)
	ResolveMorale(rng *rand.Rand, entity *battlefield.Entity) MoraleResult
}

// Modifier values used by Standard.
const (
	LongRangeModifier  = 2
	AdvancingModifier  = 1
	SuppressedModifier = 1
	ShakenModifier     = 2
	BrokenModifier     = 3
)

// Standard is the default rule set.
type Standard struct{}

// HitTarget returns the 2d6 target number the attacker must meet.
func (Standard) HitTarget(attack Attack) int {
	target := attack.Attacker.Skill
	if attack.Weapon.Range > 0 && attack.Distance > attack.Weapon.Range/2 {
		target += LongRangeModifier
	}
	if attack.Target != nil && attack.Target.Posture == battlefield.PostureAdvancing {
		target += AdvancingModifier
	}
	if attack.Attacker.HasEffect(battlefield.EffectSuppressed) {
		target += SuppressedModifier
	}
	switch attack.Attacker.MoraleState {
	case battlefield.MoraleShaken:
		target += ShakenModifier
	case battlefield.MoraleBroken:
		target += BrokenModifier
	}
	target -= attack.Weapon.Accuracy
	return check.ClampTarget(target)
}

// ResolveAttack rolls to hit and, on a hit, rolls the weapon's damage.
// A weapon whose damage expression does not parse rolls nothing.
func (s Standard) ResolveAttack(rng *rand.Rand, attack Attack) (AttackResult, error) {
	if attack.Attacker == nil || attack.Target == nil {
		return AttackResult{}, fmt.Errorf("attack requires attacker and target")
	}
	expr, err := dice.ParseExpr(attack.Weapon.Damage)
	if err != nil {
		return AttackResult{}, fmt.Errorf("weapon %s: %w", attack.Weapon.Name, err)
	}
	target := s.HitTarget(attack)
	roll := dice.TwoD6(rng)
	result := AttackResult{
		Target: target,
		Roll:   roll,
		Hit:    check.RollOver(roll, target),
	}
	if result.Hit {
		result.Damage = expr.Roll(rng)
	}
	return result, nil
}

// MoraleTarget is the highest 2d6 roll that still passes. Wounds below half
// health and an already shaken state lower it by one each.
func (Standard) MoraleTarget(entity *battlefield.Entity) int {
	target := entity.Morale
	if entity.MaxHealth > 0 && entity.Health*2 < entity.MaxHealth {
		target--
	}
	if entity.MoraleState != battlefield.MoraleSteady {
		target--
	}
	return target
}

// ResolveMorale rolls 2d6 under the entity's morale target.
func (s Standard) ResolveMorale(rng *rand.Rand, entity *battlefield.Entity) MoraleResult {
	target := s.MoraleTarget(entity)
	roll := dice.TwoD6(rng)
	return MoraleResult{
		Target: target,
		Roll:   roll,
		Passed: check.RollUnder(roll, target),
	}
}
