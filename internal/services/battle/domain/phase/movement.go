package phase

import (
	"context"
	"fmt"

	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
)

// Movement closes each deployed entity to weapon range of its nearest enemy.
// Broken entities fall back instead; pinned ones cannot move.
type Movement struct{}

func (Movement) Name() string { return NameMovement }

func (Movement) Execute(_ context.Context, pc *Context) error {
	b := pc.Battlefield
	for _, e := range b.ActingOrder() {
		if !e.Deployed() {
			continue
		}
		enemy, dist, ok := nearestEnemy(b, e, -1)
		if !ok {
			e.Posture = battlefield.PostureHolding
			continue
		}
		switch {
		case e.HasEffect(battlefield.EffectPinned) || e.Move <= 0:
			e.Posture = battlefield.PostureHolding
			pc.Emit(report.Entry{
				Category: report.CategoryMovement,
				Message:  e.Name + " holds position",
				Entity:   e.ID,
			})
		case e.MoraleState == battlefield.MoraleBroken:
			e.Position = e.Position.Toward(enemy.Position, -e.Move)
			e.Posture = battlefield.PostureFallingBack
			pc.Emit(report.Entry{
				Category: report.CategoryMovement,
				Message:  fmt.Sprintf("%s falls back from %s to %s", e.Name, enemy.Name, formatPosition(e.Position)),
				Entity:   e.ID,
				Target:   enemy.ID,
			})
		case dist <= e.MaxRange():
			e.Posture = battlefield.PostureHolding
		default:
			step := min(e.Move, dist-e.MaxRange())
			e.Position = e.Position.Toward(enemy.Position, step)
			e.Posture = battlefield.PostureAdvancing
			pc.Emit(report.Entry{
				Category: report.CategoryMovement,
				Message: fmt.Sprintf("%s advances %.1f toward %s, now %.1f away",
					e.Name, step, enemy.Name, e.Position.Distance(enemy.Position)),
				Entity: e.ID,
				Target: enemy.ID,
			})
		}
	}
	return nil
}
