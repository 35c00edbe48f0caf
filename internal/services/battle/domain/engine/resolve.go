package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"golang.org/x/sync/errgroup"
)

// ErrPopulatorRequired indicates a resolve call without setup.
var ErrPopulatorRequired = errors.New("populator is required")

// Populator fills a fresh battlefield with teams, forces and entities.
type Populator interface {
	Populate(b *battlefield.Battlefield) error
}

// PopulatorFunc adapts a function to Populator.
type PopulatorFunc func(b *battlefield.Battlefield) error

// Populate calls f.
func (f PopulatorFunc) Populate(b *battlefield.Battlefield) error {
	return f(b)
}

// Resolve builds a battlefield with populator and runs it with cfg.
func Resolve(ctx context.Context, populator Populator, cfg Config) (Outcome, error) {
	if populator == nil {
		return Outcome{}, ErrPopulatorRequired
	}
	b := battlefield.New()
	if err := populator.Populate(b); err != nil {
		return Outcome{}, fmt.Errorf("populate battlefield: %w", err)
	}
	return NewManager(cfg).Run(ctx, b)
}

// BatchOptions controls ResolveBatch.
type BatchOptions struct {
	// Runs is the number of independent runs. Run i uses seed cfg.Seed+i.
	Runs int
	// Parallel bounds concurrent runs; zero or less means one per run.
	Parallel int
	// SinkFor returns the report sink for run i. Nil discards entries.
	SinkFor func(run int) report.Sink
	// RunIDFor names run i. Nil derives ids from seeds.
	RunIDFor func(run int) string
	// OnOutcome is called from the run's goroutine as soon as run i
	// completes. An error fails the batch like a failed run.
	OnOutcome func(run int, outcome Outcome) error
}

// ResolveBatch resolves independent runs of the same setup in parallel.
// Outcomes are returned in run order. The first failing run cancels the runs
// that have not started yet; runs already in progress still complete and
// reach OnOutcome.
func ResolveBatch(ctx context.Context, populator Populator, cfg Config, opts BatchOptions) ([]Outcome, error) {
	if populator == nil {
		return nil, ErrPopulatorRequired
	}
	if opts.Runs <= 0 {
		opts.Runs = 1
	}
	outcomes := make([]Outcome, opts.Runs)
	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}
	for i := 0; i < opts.Runs; i++ {
		runCfg := cfg
		runCfg.Seed = cfg.Seed + int64(i)
		runCfg.Sink = nil
		if opts.SinkFor != nil {
			runCfg.Sink = opts.SinkFor(i)
		}
		runCfg.RunID = ""
		if opts.RunIDFor != nil {
			runCfg.RunID = opts.RunIDFor(i)
		}
		g.Go(func() error {
			outcome, err := Resolve(gctx, populator, runCfg)
			if err != nil {
				return fmt.Errorf("run %d (seed %d): %w", i, runCfg.Seed, err)
			}
			outcomes[i] = outcome
			if opts.OnOutcome != nil {
				if err := opts.OnOutcome(i, outcome); err != nil {
					return fmt.Errorf("run %d (seed %d): %w", i, runCfg.Seed, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Tally counts verdicts across outcomes.
type Tally struct {
	Runs      int
	Wins      map[string]int
	Draws     int
	Undecided int
	Rounds    int
}

// NewTally aggregates outcomes.
func NewTally(outcomes []Outcome) Tally {
	t := Tally{Runs: len(outcomes), Wins: make(map[string]int)}
	for _, o := range outcomes {
		t.Rounds += o.Rounds
		switch {
		case o.Decisive():
			t.Wins[o.Victor]++
		case o.Status == StatusDraw:
			t.Draws++
		default:
			t.Undecided++
		}
	}
	return t
}

// WinRate is the share of runs team won, in percent.
func (t Tally) WinRate(team string) float64 {
	if t.Runs == 0 {
		return 0
	}
	return float64(t.Wins[team]) * 100 / float64(t.Runs)
}

// AverageRounds is the mean run length.
func (t Tally) AverageRounds() float64 {
	if t.Runs == 0 {
		return 0
	}
	return float64(t.Rounds) / float64(t.Runs)
}
