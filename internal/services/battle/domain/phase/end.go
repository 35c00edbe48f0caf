package phase

import (
	"context"
	"fmt"

	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/rules"
)

// End closes a round: effects decay, damaged entities test morale, broken
// entities may withdraw, and the round's casualties are announced.
type End struct{}

func (End) Name() string { return NameEnd }

func (End) Execute(_ context.Context, pc *Context) error {
	b := pc.Battlefield
	resolver := pc.Rules
	if resolver == nil {
		resolver = rules.Standard{}
	}
	order := b.ActingOrder()

	for _, e := range order {
		decayEffects(pc, e)
	}
	for _, e := range order {
		checkMorale(pc, resolver, e)
	}
	if pc.Options.Withdrawal {
		for _, e := range order {
			if e.MoraleState != battlefield.MoraleBroken {
				continue
			}
			if _, err := b.RemoveEntity(e.ID, pc.phaseName(NameEnd), battlefield.ReasonWithdrawn); err != nil {
				pc.Warnf(report.CategoryEnd, "withdraw %s: %v", e.ID, err)
				continue
			}
			pc.Emit(report.Entry{
				Category: report.CategoryEnd,
				Message:  e.Name + " breaks and withdraws from the field",
				Entity:   e.ID,
			})
		}
	}

	for _, c := range b.CasualtiesIn(b.Round()) {
		pc.Emit(report.Entry{
			Category: report.CategoryEnd,
			Message:  fmt.Sprintf("removed: %s of team %s (%s during %s)", c.Entity.Name, c.Team, c.Reason, c.Phase),
			Entity:   c.Entity.ID,
		})
	}
	for _, e := range b.Entities() {
		e.DamageTaken = 0
	}
	return nil
}

// decayEffects ticks down effects applied before this round and drops
// expired or unknown ones.
func decayEffects(pc *Context, e *battlefield.Entity) {
	if len(e.Effects) == 0 {
		return
	}
	round := pc.Battlefield.Round()
	kept := e.Effects[:0]
	for _, effect := range e.Effects {
		if !battlefield.KnownEffect(effect.Kind) {
			pc.Warnf(report.CategoryEnd, "%s: dropping unknown effect %q", e.Name, effect.Kind)
			continue
		}
		if effect.Applied != round {
			effect.Rounds--
		}
		if effect.Rounds <= 0 {
			continue
		}
		kept = append(kept, effect)
	}
	e.Effects = kept
}

// checkMorale tests damaged entities and lets undamaged ones recover a step.
func checkMorale(pc *Context, resolver rules.Resolver, e *battlefield.Entity) {
	if e.DamageTaken == 0 {
		if e.MoraleState == battlefield.MoraleSteady {
			return
		}
		e.MoraleState = e.MoraleState.Recover()
		pc.Emit(report.Entry{
			Category: report.CategoryEnd,
			Message:  fmt.Sprintf("%s rallies and is now %s", e.Name, e.MoraleState),
			Entity:   e.ID,
		})
		return
	}
	result := resolver.ResolveMorale(pc.Rand, e)
	if result.Passed {
		pc.Emit(report.Entry{
			Category: report.CategoryEnd,
			Message:  fmt.Sprintf("%s holds its nerve (%d vs %d)", e.Name, result.Roll, result.Target),
			Entity:   e.ID,
		})
		return
	}
	e.MoraleState = e.MoraleState.Worsen()
	pc.Emit(report.Entry{
		Category: report.CategoryEnd,
		Message:  fmt.Sprintf("%s fails morale (%d vs %d) and is now %s", e.Name, result.Roll, result.Target, e.MoraleState),
		Entity:   e.ID,
	})
}
