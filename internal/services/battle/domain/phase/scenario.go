package phase

import (
	"context"

	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
)

// StartingScenario opens the narrative with the scenario and team roster.
type StartingScenario struct{}

func (StartingScenario) Name() string { return NameStartingScenario }

func (StartingScenario) Execute(_ context.Context, pc *Context) error {
	b := pc.Battlefield
	name := pc.Options.Scenario
	if name == "" {
		name = "unnamed battle"
	}
	pc.Infof(report.CategoryScenario, "scenario %q begins", name)
	for _, team := range b.Teams() {
		living := b.Living(team.ID)
		if len(living) == 0 {
			continue
		}
		forces := 0
		for _, force := range b.Forces() {
			if force.Team == team.ID {
				forces++
			}
		}
		suffix := ""
		if team.ID == pc.Options.LocalTeam {
			suffix = " (local)"
		}
		pc.Infof(report.CategoryScenario, "team %s%s fields %d entities in %d forces", team.Name, suffix, len(living), forces)
	}
	return nil
}
