package phase

import (
	"fmt"

	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
)

// nearestEnemy finds the closest deployed enemy of e. A negative within means
// unlimited distance. Ties go to the enemy added first.
func nearestEnemy(b *battlefield.Battlefield, e *battlefield.Entity, within float64) (*battlefield.Entity, float64, bool) {
	var (
		best     *battlefield.Entity
		bestDist float64
	)
	for _, other := range b.Active() {
		if other.ID == e.ID || !other.Alive() || !b.Enemies(e, other) {
			continue
		}
		dist := e.Position.Distance(other.Position)
		if within >= 0 && dist > within {
			continue
		}
		if best == nil || dist < bestDist {
			best, bestDist = other, dist
		}
	}
	return best, bestDist, best != nil
}

func formatPosition(p battlefield.Position) string {
	return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
}
