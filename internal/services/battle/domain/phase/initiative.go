package phase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/louisbranch/autoresolve/internal/core/dice"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
)

// maxTieRolls bounds tie re-rolls; teams still tied keep registration order.
const maxTieRolls = 32

// Initiative orders teams by a 2d6 roll and interleaves their entities.
type Initiative struct{}

func (Initiative) Name() string { return NameInitiative }

func (Initiative) Execute(_ context.Context, pc *Context) error {
	b := pc.Battlefield
	teams := b.LivingTeams()
	if len(teams) == 0 {
		b.SetInitiative(battlefield.Initiative{})
		return nil
	}
	ordered := rollOrder(pc, teams, 0)
	order := interleave(b, ordered)
	b.SetInitiative(battlefield.Initiative{Teams: ordered, Order: order})
	pc.Infof(report.CategoryInitiative, "acting order: %s", strings.Join(ordered, ", "))
	return nil
}

// rollOrder rolls for teams and re-rolls every tied group until it resolves.
func rollOrder(pc *Context, teams []string, depth int) []string {
	if len(teams) < 2 || depth >= maxTieRolls {
		return teams
	}
	rolls := make(map[string]int, len(teams))
	for _, team := range teams {
		rolls[team] = dice.TwoD6(pc.Rand)
		pc.Emit(report.Entry{
			Category: report.CategoryInitiative,
			Message:  initiativeMessage(team, rolls[team], depth),
		})
	}
	sorted := append([]string(nil), teams...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rolls[sorted[i]] > rolls[sorted[j]]
	})

	out := make([]string, 0, len(sorted))
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && rolls[sorted[j]] == rolls[sorted[i]] {
			j++
		}
		out = append(out, rollOrder(pc, sorted[i:j], depth+1)...)
		i = j
	}
	return out
}

func initiativeMessage(team string, roll, depth int) string {
	if depth == 0 {
		return fmt.Sprintf("team %s rolls %d for initiative", team, roll)
	}
	return fmt.Sprintf("team %s re-rolls %d to break a tie", team, roll)
}

// interleave takes one entity per team in team order until all are placed.
func interleave(b *battlefield.Battlefield, teams []string) []string {
	queues := make([][]*battlefield.Entity, len(teams))
	remaining := 0
	for i, team := range teams {
		queues[i] = b.Living(team)
		remaining += len(queues[i])
	}
	order := make([]string, 0, remaining)
	for remaining > 0 {
		for i := range queues {
			if len(queues[i]) == 0 {
				continue
			}
			order = append(order, queues[i][0].ID)
			queues[i] = queues[i][1:]
			remaining--
		}
	}
	return order
}
