// Package archive resolves scenarios and records each run in a battle store.
package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/autoresolve/internal/platform/id"
	"github.com/louisbranch/autoresolve/internal/random"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"github.com/louisbranch/autoresolve/internal/services/battle/scenario"
	"github.com/louisbranch/autoresolve/internal/services/battle/storage"
	"go.uber.org/zap"
)

// ErrStoreRequired indicates a Runner without a store.
var ErrStoreRequired = errors.New("battle store is required")

// Runner resolves scenarios and archives their narrative and outcome.
type Runner struct {
	store  storage.BattleStore
	base   engine.Config
	logger *zap.Logger
}

// NewRunner returns a Runner that starts every run from base.
func NewRunner(store storage.BattleStore, base engine.Config) *Runner {
	logger := base.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{store: store, base: base, logger: logger}
}

// MaxRounds is the round cap of runs where neither the request nor the
// scenario sets one.
func (r *Runner) MaxRounds() int {
	if r == nil || r.base.MaxRounds <= 0 {
		return engine.DefaultMaxRounds
	}
	return r.base.MaxRounds
}

// Request overrides scenario settings for one run. Zero values keep the
// scenario's own settings.
type Request struct {
	Seed       int64
	MaxRounds  int
	LocalTeam  string
	Withdrawal bool
	// RunID names the battle. Generated when empty.
	RunID string
	// Sink also receives every entry, after the archive.
	Sink report.Sink
}

// Run resolves sc and archives the run. The battle row is created before the
// first entry is emitted, so a failed run leaves its narrative behind with a
// failed status.
func (r *Runner) Run(ctx context.Context, sc *scenario.Scenario, req Request) (engine.Outcome, error) {
	if r == nil || r.store == nil {
		return engine.Outcome{}, ErrStoreRequired
	}
	if sc == nil {
		return engine.Outcome{}, engine.ErrPopulatorRequired
	}
	if err := sc.Validate(); err != nil {
		return engine.Outcome{}, err
	}

	cfg := r.base
	cfg.Seed = req.Seed
	cfg.MaxRounds = req.MaxRounds
	cfg.LocalTeam = req.LocalTeam
	cfg.Withdrawal = req.Withdrawal
	cfg.RunID = req.RunID
	cfg = sc.Apply(cfg)
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = r.base.MaxRounds
	}

	seed, err := random.ResolveSeed(cfg.Seed)
	if err != nil {
		return engine.Outcome{}, err
	}
	cfg.Seed = seed
	if cfg.RunID == "" {
		runID, err := id.NewID()
		if err != nil {
			return engine.Outcome{}, fmt.Errorf("new battle id: %w", err)
		}
		cfg.RunID = runID
	}

	if err := r.store.CreateBattle(ctx, storage.Battle{
		ID:        cfg.RunID,
		Scenario:  cfg.Scenario,
		Seed:      cfg.Seed,
		LocalTeam: cfg.LocalTeam,
	}); err != nil {
		return engine.Outcome{}, fmt.Errorf("create battle: %w", err)
	}
	// A started run always completes, so the archive outlives the caller's context.
	archiveCtx := context.WithoutCancel(ctx)
	cfg.Sink = report.Multi(r.store.Sink(archiveCtx, cfg.RunID), req.Sink)

	logger := r.logger.With(zap.String("run_id", cfg.RunID))
	outcome, err := engine.Resolve(ctx, sc, cfg)
	if err != nil {
		if markErr := r.store.MarkFailed(archiveCtx, cfg.RunID); markErr != nil {
			logger.Warn("mark battle failed", zap.Error(markErr))
		}
		return engine.Outcome{}, err
	}
	if err := r.store.SaveOutcome(archiveCtx, outcome); err != nil {
		if markErr := r.store.MarkFailed(archiveCtx, cfg.RunID); markErr != nil {
			logger.Warn("mark battle failed", zap.Error(markErr))
		}
		return engine.Outcome{}, fmt.Errorf("save outcome: %w", err)
	}
	logger.Info("battle archived",
		zap.String("scenario", outcome.Scenario),
		zap.String("status", string(outcome.Status)),
		zap.String("victor", outcome.Victor),
		zap.Int("rounds", outcome.Rounds),
	)
	return outcome, nil
}
