package phase

import (
	"context"
	"fmt"

	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/rules"
	"go.uber.org/zap"
)

// SuppressionRounds is how long a hit keeps its target suppressed.
const SuppressionRounds = 1

// Firing resolves attacks one entity at a time in acting order. A target
// reduced to zero health is removed at once and does not act later in the
// round.
type Firing struct{}

func (Firing) Name() string { return NameFiring }

func (Firing) Execute(_ context.Context, pc *Context) error {
	b := pc.Battlefield
	resolver := pc.Rules
	if resolver == nil {
		resolver = rules.Standard{}
	}
	for _, attacker := range b.ActingOrder() {
		if _, alive := b.Entity(attacker.ID); !alive || !attacker.Deployed() {
			continue
		}
		target, dist, ok := nearestEnemy(b, attacker, attacker.MaxRange())
		if !ok {
			continue
		}
		for _, weapon := range attacker.Weapons {
			if dist > weapon.Range {
				continue
			}
			if destroyed := fire(pc, resolver, attacker, target, weapon, dist); destroyed {
				break
			}
		}
	}
	return nil
}

// fire resolves one weapon and reports whether the target was destroyed.
func fire(pc *Context, resolver rules.Resolver, attacker, target *battlefield.Entity, weapon battlefield.Weapon, dist float64) bool {
	b := pc.Battlefield
	result, err := resolver.ResolveAttack(pc.Rand, rules.Attack{
		Attacker: attacker,
		Target:   target,
		Weapon:   weapon,
		Distance: dist,
	})
	if err != nil {
		pc.Warnf(report.CategoryFiring, "%s cannot fire %s: %v", attacker.Name, weapon.Name, err)
		return false
	}
	if !result.Hit {
		pc.Emit(report.Entry{
			Category: report.CategoryFiring,
			Message:  fmt.Sprintf("%s fires %s at %s and misses (%d vs %d)", attacker.Name, weapon.Name, target.Name, result.Roll, result.Target),
			Entity:   attacker.ID,
			Target:   target.ID,
		})
		return false
	}

	armor, health := target.ApplyDamage(result.Damage)
	target.AddEffect(battlefield.EffectSuppressed, SuppressionRounds, b.Round())
	pc.Emit(report.Entry{
		Category: report.CategoryFiring,
		Message: fmt.Sprintf("%s hits %s with %s for %d (%d armor, %d health), %d health left",
			attacker.Name, target.Name, weapon.Name, result.Damage, armor, health, target.Health),
		Entity: attacker.ID,
		Target: target.ID,
	})
	if target.Alive() {
		return false
	}

	if _, err := b.RemoveEntity(target.ID, pc.phaseName(NameFiring), battlefield.ReasonDestroyed); err != nil {
		pc.Warnf(report.CategoryFiring, "remove %s: %v", target.ID, err)
		return true
	}
	pc.logger().Debug("entity destroyed",
		zap.String("run_id", pc.RunID),
		zap.Int("round", b.Round()),
		zap.String("entity", target.ID),
		zap.String("by", attacker.ID),
	)
	pc.Emit(report.Entry{
		Category: report.CategoryFiring,
		Message:  fmt.Sprintf("%s is destroyed by %s", target.Name, attacker.Name),
		Entity:   attacker.ID,
		Target:   target.ID,
	})
	return true
}
