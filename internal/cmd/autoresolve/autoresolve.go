// Package autoresolve parses CLI flags and resolves a scenario file.
package autoresolve

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	entrypoint "github.com/louisbranch/autoresolve/internal/platform/cmd"
	"github.com/louisbranch/autoresolve/internal/platform/i18n"
	"github.com/louisbranch/autoresolve/internal/platform/id"
	"github.com/louisbranch/autoresolve/internal/platform/logging"
	"github.com/louisbranch/autoresolve/internal/platform/otel"
	"github.com/louisbranch/autoresolve/internal/random"
	"github.com/louisbranch/autoresolve/internal/services/battle/archive"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"github.com/louisbranch/autoresolve/internal/services/battle/scenario"
	"github.com/louisbranch/autoresolve/internal/services/battle/storage"
	"github.com/louisbranch/autoresolve/internal/services/battle/storage/sqlite"
	"go.uber.org/zap"
	"golang.org/x/text/message"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds CLI configuration.
type Config struct {
	Scenario   string `env:"SCENARIO_FILE"`
	Seed       int64  `env:"SEED"`
	MaxRounds  int    `env:"MAX_ROUNDS"`
	LocalTeam  string `env:"LOCAL_TEAM"`
	Withdrawal bool   `env:"WITHDRAWAL"`
	Runs       int    `env:"RUNS" envDefault:"1"`
	Parallel   int    `env:"PARALLEL"`
	Format     string `env:"FORMAT" envDefault:"text"`
	Quiet      bool   `env:"QUIET"`
	DBPath     string `env:"DB_PATH"`
	Lang       string `env:"LANG" envDefault:"en-US"`
	Log        logging.Config
	OTel       otel.Config
}

// ParseConfig parses environment and flags into Config. A positional
// argument names the scenario file when -scenario is not set.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg, err := entrypoint.Load(fs, args, bindFlags)
	if err != nil {
		return Config{}, err
	}
	if cfg.Scenario == "" && fs.NArg() > 0 {
		cfg.Scenario = fs.Arg(0)
	}
	return cfg, nil
}

func bindFlags(cfg *Config, fs *flag.FlagSet) {
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to a .lua, .yaml or .json scenario")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed (0 picks one and prints it)")
	fs.IntVar(&cfg.MaxRounds, "max-rounds", cfg.MaxRounds, "round cap (0 uses the scenario's or the default)")
	fs.StringVar(&cfg.LocalTeam, "local-team", cfg.LocalTeam, "team whose victory counts as local")
	fs.BoolVar(&cfg.Withdrawal, "withdrawal", cfg.Withdrawal, "remove broken entities at the end of a round")
	fs.IntVar(&cfg.Runs, "runs", cfg.Runs, "number of independent runs; seeds increase by one per run")
	fs.IntVar(&cfg.Parallel, "parallel", cfg.Parallel, "concurrent runs in a batch (0 runs all at once)")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format: text or json")
	fs.BoolVar(&cfg.Quiet, "quiet", cfg.Quiet, "print only the summary")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "archive runs in this SQLite file")
	fs.StringVar(&cfg.Lang, "lang", cfg.Lang, "summary language")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level")
}

// Validate checks settings that do not depend on the scenario.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Scenario) == "" {
		return errors.New("scenario path is required")
	}
	if c.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", c.Runs)
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("max rounds must not be negative, got %d", c.MaxRounds)
	}
	switch c.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}
	return nil
}

// Run resolves the configured scenario, printing the narrative and a summary
// to out. Logs go to errOut.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc := entrypoint.Service{Name: entrypoint.ServiceAutoresolve, OTel: cfg.OTel, Logger: logger}
	return entrypoint.Run(ctx, svc, func(ctx context.Context) error {
		return resolve(ctx, cfg, logger, out)
	})
}

func resolve(ctx context.Context, cfg Config, logger *zap.Logger, out io.Writer) error {
	sc, err := scenario.LoadFile(cfg.Scenario)
	if err != nil {
		return err
	}
	runCfg := sc.Apply(engine.Config{
		Seed:       cfg.Seed,
		MaxRounds:  cfg.MaxRounds,
		LocalTeam:  cfg.LocalTeam,
		Withdrawal: cfg.Withdrawal,
		Logger:     logger,
	})
	if runCfg.Seed, err = random.ResolveSeed(runCfg.Seed); err != nil {
		return err
	}
	tag, _ := i18n.ParseTag(cfg.Lang)
	printer := i18n.Printer(tag)

	var store storage.BattleStore
	if path := strings.TrimSpace(cfg.DBPath); path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create db dir: %w", err)
			}
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("close battle store", zap.Error(err))
			}
		}()
		store = db
	}

	if cfg.Runs > 1 {
		return resolveBatch(ctx, cfg, sc, runCfg, store, printer, out)
	}
	return resolveOne(ctx, cfg, sc, runCfg, store, printer, out)
}

func resolveOne(ctx context.Context, cfg Config, sc *scenario.Scenario, runCfg engine.Config, store storage.BattleStore, printer *message.Printer, out io.Writer) error {
	var sink report.Sink
	if !cfg.Quiet {
		switch cfg.Format {
		case FormatJSON:
			sink = report.NewJSON(out)
		default:
			sink = report.NewText(out)
		}
	}

	var (
		outcome engine.Outcome
		err     error
	)
	if store != nil {
		runner := archive.NewRunner(store, engine.Config{Logger: runCfg.Logger})
		outcome, err = runner.Run(ctx, sc, archive.Request{
			Seed:       runCfg.Seed,
			MaxRounds:  runCfg.MaxRounds,
			LocalTeam:  runCfg.LocalTeam,
			Withdrawal: runCfg.Withdrawal,
			Sink:       sink,
		})
	} else {
		runCfg.Sink = sink
		outcome, err = engine.Resolve(ctx, sc, runCfg)
	}
	if err != nil {
		return err
	}

	if cfg.Format == FormatJSON {
		return json.NewEncoder(out).Encode(struct {
			Outcome engine.Outcome `json:"outcome"`
		}{outcome})
	}
	if !cfg.Quiet {
		if _, err := fmt.Fprintln(out); err != nil {
			return err
		}
	}
	return report.WriteSummary(out, printer, outcome.Summary())
}

func resolveBatch(ctx context.Context, cfg Config, sc *scenario.Scenario, runCfg engine.Config, store storage.BattleStore, printer *message.Printer, out io.Writer) error {
	opts := engine.BatchOptions{Runs: cfg.Runs, Parallel: cfg.Parallel}
	var (
		ids   []string
		saved []bool
	)
	// Rows created for the batch are finished even if ctx is cancelled.
	archiveCtx := context.WithoutCancel(ctx)
	if store != nil {
		var err error
		ids, err = createBatch(ctx, store, runCfg, cfg.Runs)
		if err != nil {
			markUnsaved(archiveCtx, store, runCfg.Logger, ids, nil)
			return err
		}
		saved = make([]bool, len(ids))
		opts.RunIDFor = func(run int) string { return ids[run] }
		opts.SinkFor = func(run int) report.Sink { return store.Sink(archiveCtx, ids[run]) }
		opts.OnOutcome = func(run int, outcome engine.Outcome) error {
			if err := store.SaveOutcome(archiveCtx, outcome); err != nil {
				return fmt.Errorf("save outcome %s: %w", outcome.RunID, err)
			}
			saved[run] = true
			return nil
		}
	}

	outcomes, err := engine.ResolveBatch(ctx, sc, runCfg, opts)
	if err != nil {
		markUnsaved(archiveCtx, store, runCfg.Logger, ids, saved)
		return err
	}

	tally := engine.NewTally(outcomes)
	if cfg.Format == FormatJSON {
		return json.NewEncoder(out).Encode(newBatchView(sc, runCfg, tally))
	}
	return writeTally(out, printer, sc, tally)
}

// createBatch creates one archive row per run. On error it returns the ids
// created so far.
func createBatch(ctx context.Context, store storage.BattleStore, runCfg engine.Config, runs int) ([]string, error) {
	ids := make([]string, 0, runs)
	for i := 0; i < runs; i++ {
		battleID, err := id.NewID()
		if err != nil {
			return ids, fmt.Errorf("new battle id: %w", err)
		}
		if err := store.CreateBattle(ctx, storage.Battle{
			ID:        battleID,
			Scenario:  runCfg.Scenario,
			Seed:      runCfg.Seed + int64(i),
			LocalTeam: runCfg.LocalTeam,
		}); err != nil {
			return ids, fmt.Errorf("create battle: %w", err)
		}
		ids = append(ids, battleID)
	}
	return ids, nil
}

// markUnsaved marks every batch row without a saved outcome as failed.
func markUnsaved(ctx context.Context, store storage.BattleStore, logger *zap.Logger, ids []string, saved []bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for i, battleID := range ids {
		if i < len(saved) && saved[i] {
			continue
		}
		if err := store.MarkFailed(ctx, battleID); err != nil {
			logger.Warn("mark battle failed", zap.String("run_id", battleID), zap.Error(err))
		}
	}
}

type teamRate struct {
	Team    string  `json:"team"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
}

type batchView struct {
	Scenario      string     `json:"scenario"`
	Seed          int64      `json:"seed"`
	Runs          int        `json:"runs"`
	Teams         []teamRate `json:"teams"`
	Draws         int        `json:"draws"`
	Undecided     int        `json:"undecided"`
	AverageRounds float64    `json:"average_rounds"`
}

func newBatchView(sc *scenario.Scenario, runCfg engine.Config, tally engine.Tally) batchView {
	view := batchView{
		Scenario:      sc.Name,
		Seed:          runCfg.Seed,
		Runs:          tally.Runs,
		Draws:         tally.Draws,
		Undecided:     tally.Undecided,
		AverageRounds: tally.AverageRounds(),
	}
	for _, team := range sc.Teams {
		view.Teams = append(view.Teams, teamRate{Team: team.ID, Wins: tally.Wins[team.ID], WinRate: tally.WinRate(team.ID)})
	}
	return view
}

func writeTally(out io.Writer, p *message.Printer, sc *scenario.Scenario, tally engine.Tally) error {
	lines := []string{p.Sprintf("summary.batch_header", tally.Runs)}
	for _, team := range sc.Teams {
		lines = append(lines, p.Sprintf("summary.batch_team", team.ID, tally.Wins[team.ID], tally.WinRate(team.ID)))
	}
	lines = append(lines,
		p.Sprintf("summary.batch_draws", tally.Draws, tally.Undecided),
		p.Sprintf("summary.batch_rounds", tally.AverageRounds()),
	)
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
