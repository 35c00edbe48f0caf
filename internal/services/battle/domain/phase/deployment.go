package phase

import (
	"context"

	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
)

// Deployment brings reserves onto the field once their round arrives.
type Deployment struct{}

func (Deployment) Name() string { return NameDeployment }

func (Deployment) Execute(_ context.Context, pc *Context) error {
	round := pc.Battlefield.Round()
	for _, e := range pc.Battlefield.ActingOrder() {
		if e.Deployed() || e.DeployRound > round {
			continue
		}
		e.Deployment = battlefield.DeploymentDeployed
		pc.Emit(report.Entry{
			Category: report.CategoryDeployment,
			Message:  e.Name + " deploys at " + formatPosition(e.Position),
			Entity:   e.ID,
		})
	}
	return nil
}
