package phase

import (
	"context"
	"fmt"

	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
)

// Verdict is what a VictoryCondition concluded about the battlefield.
type Verdict struct {
	Decided bool
	Victor  string
	Draw    bool
}

// VictoryCondition decides whether the battle is over.
type VictoryCondition interface {
	Evaluate(b *battlefield.Battlefield) (Verdict, error)
}

// VictoryFunc adapts a function to VictoryCondition.
type VictoryFunc func(b *battlefield.Battlefield) (Verdict, error)

// Evaluate calls f.
func (f VictoryFunc) Evaluate(b *battlefield.Battlefield) (Verdict, error) {
	return f(b)
}

// LastTeamStanding wins for the only team with living entities, and calls a
// draw when no team has any.
type LastTeamStanding struct{}

func (LastTeamStanding) Evaluate(b *battlefield.Battlefield) (Verdict, error) {
	if err := b.Validate(); err != nil {
		return Verdict{}, err
	}
	switch teams := b.LivingTeams(); len(teams) {
	case 0:
		return Verdict{Decided: true, Draw: true}, nil
	case 1:
		return Verdict{Decided: true, Victor: teams[0]}, nil
	default:
		return Verdict{}, nil
	}
}

// Victory is the only phase that decides the battle. Any failure here aborts
// the run.
type Victory struct {
	Condition VictoryCondition
}

func (Victory) Name() string { return NameVictory }

// Critical marks victory failures as run-aborting.
func (Victory) Critical() bool { return true }

func (v Victory) Execute(_ context.Context, pc *Context) error {
	b := pc.Battlefield
	condition := v.Condition
	if condition == nil {
		condition = LastTeamStanding{}
	}
	verdict, err := condition.Evaluate(b)
	if err != nil {
		return Fatal(apperrors.Wrap(apperrors.CodeBattleFatal, "evaluate victory", err))
	}
	if !verdict.Decided {
		return nil
	}
	if verdict.Draw {
		if err := b.MarkDraw(); err != nil {
			return Fatal(apperrors.Wrap(apperrors.CodeBattleFatal, "record draw", err))
		}
		pc.Infof(report.CategoryVictory, "no team is left standing; the battle is a draw")
		pc.Halt()
		return nil
	}
	if err := b.SetVictor(verdict.Victor); err != nil {
		return Fatal(apperrors.Wrap(apperrors.CodeBattleFatal, "record victor", err))
	}
	team, _ := b.Team(verdict.Victor)
	pc.Emit(report.Entry{
		Category: report.CategoryVictory,
		Message:  fmt.Sprintf("team %s is victorious with %d entities standing", team.Name, len(b.Living(team.ID))),
	})
	pc.Halt()
	return nil
}
