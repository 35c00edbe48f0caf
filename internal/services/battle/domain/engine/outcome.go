package engine

import (
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
)

// Status is how a run ended.
type Status string

const (
	StatusVictory  Status = "victory"
	StatusDraw     Status = "draw"
	StatusRoundCap Status = "round_cap"
	// StatusHalted is a stop requested by a custom phase without a verdict.
	StatusHalted Status = "halted"
)

// Outcome is the immutable verdict of one run.
type Outcome struct {
	RunID        string                 `json:"run_id"`
	Scenario     string                 `json:"scenario,omitempty"`
	Seed         int64                  `json:"seed"`
	Status       Status                 `json:"status"`
	Victor       string                 `json:"victor,omitempty"`
	LocalTeam    string                 `json:"local_team,omitempty"`
	LocalVictory bool                   `json:"local_victory"`
	Rounds       int                    `json:"rounds"`
	Survivors    []battlefield.Entity   `json:"survivors"`
	Casualties   []battlefield.Casualty `json:"casualties"`
	Entries      int                    `json:"entries"`

	// State is the terminal battlefield, kept for inspection.
	State *battlefield.Battlefield `json:"-"`
}

// Decisive reports whether a team won.
func (o Outcome) Decisive() bool {
	return o.Status == StatusVictory && o.Victor != ""
}

// Summary condenses the outcome for report.WriteSummary.
func (o Outcome) Summary() report.Summary {
	s := report.Summary{
		Scenario:     o.Scenario,
		Seed:         o.Seed,
		Victor:       o.Victor,
		LocalTeam:    o.LocalTeam,
		LocalVictory: o.LocalVictory,
		Rounds:       o.Rounds,
		Survivors:    len(o.Survivors),
		Entries:      o.Entries,
	}
	switch o.Status {
	case StatusVictory:
		s.Verdict = report.VerdictVictory
	case StatusDraw:
		s.Verdict = report.VerdictDraw
	case StatusHalted:
		s.Verdict = report.VerdictHalted
	default:
		s.Verdict = report.VerdictRoundCap
	}
	for _, c := range o.Casualties {
		switch c.Reason {
		case battlefield.ReasonWithdrawn:
			s.Withdrawn++
		default:
			s.Destroyed++
		}
	}
	return s
}

func newOutcome(cfg Config, runID string, b *battlefield.Battlefield, status Status, entries int) Outcome {
	survivors := make([]battlefield.Entity, 0, len(b.Entities()))
	for _, e := range b.Entities() {
		survivors = append(survivors, e.Clone())
	}
	victor := b.Victor()
	return Outcome{
		RunID:        runID,
		Scenario:     cfg.Scenario,
		Seed:         cfg.Seed,
		Status:       status,
		Victor:       victor,
		LocalTeam:    cfg.LocalTeam,
		LocalVictory: victor != "" && victor == cfg.LocalTeam,
		Rounds:       b.Round(),
		Survivors:    survivors,
		Casualties:   b.Graveyard(),
		Entries:      entries,
		State:        b,
	}
}
