package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/autoresolve/internal/random"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/phase"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/rules"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRounds caps a run that never reaches a verdict.
	DefaultMaxRounds = 50
	// MaxRoundsLimit is the largest round cap a run accepts.
	MaxRoundsLimit = 10000
)

const tracerName = "github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"

// Config configures one run.
type Config struct {
	Scenario   string
	Seed       int64
	MaxRounds  int
	LocalTeam  string
	Withdrawal bool
	// RunID identifies the run in logs, spans and archives. Derived from
	// the seed when empty so equal configs yield equal outcomes.
	RunID string

	Rules   rules.Resolver
	Victory phase.VictoryCondition
	// Opening and Phases replace the standard sequences when set.
	Opening []phase.Phase
	Phases  []phase.Phase

	Sink   report.Sink
	Clock  func() time.Time
	Logger *zap.Logger
	Tracer trace.Tracer
}

// Manager runs battles with a fixed phase sequence.
type Manager struct {
	cfg     Config
	opening []phase.Phase
	phases  []phase.Phase
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewManager applies defaults to cfg.
func NewManager(cfg Config) *Manager {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.Rules == nil {
		cfg.Rules = rules.Standard{}
	}
	if cfg.Victory == nil {
		cfg.Victory = phase.LastTeamStanding{}
	}
	m := &Manager{
		cfg:     cfg,
		opening: cfg.Opening,
		phases:  cfg.Phases,
		logger:  cfg.Logger,
		tracer:  cfg.Tracer,
	}
	if m.opening == nil {
		m.opening = phase.Opening()
	}
	if m.phases == nil {
		m.phases = phase.Round(cfg.Victory)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	return m
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Run resolves the battle on b. It returns an Outcome, or an error when the
// battlefield cannot start a battle or a phase failure aborts the run. A
// context that is already done prevents the run from starting; once started,
// a run always completes.
func (m *Manager) Run(ctx context.Context, b *battlefield.Battlefield) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, fmt.Errorf("start battle: %w", err)
	}
	if err := m.validate(b); err != nil {
		return Outcome{}, err
	}

	runID := m.cfg.RunID
	if runID == "" {
		runID = "seed-" + strconv.FormatInt(m.cfg.Seed, 10)
	}
	logger := m.logger.With(zap.String("run_id", runID))

	ctx, span := m.tracer.Start(ctx, "battle.run", trace.WithAttributes(
		attribute.String("battle.run_id", runID),
		attribute.String("battle.scenario", m.cfg.Scenario),
		attribute.Int64("battle.seed", m.cfg.Seed),
		attribute.Int("battle.max_rounds", m.cfg.MaxRounds),
	))
	defer span.End()

	var opts []report.Option
	if m.cfg.Clock != nil {
		opts = append(opts, report.WithClock(m.cfg.Clock))
	}
	reporter := report.New(m.cfg.Sink, append(opts, report.WithLogger(logger))...)
	pc := &phase.Context{
		Battlefield: b,
		Reporter:    reporter,
		Rand:        random.New(m.cfg.Seed),
		Rules:       m.cfg.Rules,
		Logger:      logger,
		RunID:       runID,
		Options: phase.Options{
			Scenario:   m.cfg.Scenario,
			LocalTeam:  m.cfg.LocalTeam,
			Withdrawal: m.cfg.Withdrawal,
		},
	}
	logger.Info("battle started",
		zap.String("scenario", m.cfg.Scenario),
		zap.Int64("seed", m.cfg.Seed),
		zap.Int("max_rounds", m.cfg.MaxRounds),
	)

	for _, p := range m.opening {
		if err := m.execute(ctx, p, pc); err != nil {
			return m.abort(span, logger, err)
		}
	}

	status := StatusRoundCap
	for {
		b.AdvanceRound()
		for _, p := range m.phases {
			if err := m.execute(ctx, p, pc); err != nil {
				return m.abort(span, logger, err)
			}
		}
		if s, done := haltStatus(b, pc); done {
			status = s
			break
		}
		if b.Round() >= m.cfg.MaxRounds {
			pc.Phase = "engine"
			pc.Emit(report.Entry{
				Category: report.CategoryEngine,
				Severity: report.SeverityWarn,
				Message:  "round cap of " + strconv.Itoa(m.cfg.MaxRounds) + " reached without a decision",
			})
			break
		}
	}

	outcome := newOutcome(m.cfg, runID, b, status, reporter.Count())
	span.SetAttributes(
		attribute.String("battle.status", string(outcome.Status)),
		attribute.String("battle.victor", outcome.Victor),
		attribute.Int("battle.rounds", outcome.Rounds),
	)
	logger.Info("battle finished",
		zap.String("status", string(outcome.Status)),
		zap.String("victor", outcome.Victor),
		zap.Int("rounds", outcome.Rounds),
		zap.Int("survivors", len(outcome.Survivors)),
		zap.Int("casualties", len(outcome.Casualties)),
	)
	if err := reporter.Err(); err != nil {
		logger.Warn("report sink failed during run", zap.Error(err))
	}
	return outcome, nil
}

func (m *Manager) validate(b *battlefield.Battlefield) error {
	if b == nil {
		return configurationError("battlefield is required", nil, nil)
	}
	if m.cfg.MaxRounds > MaxRoundsLimit {
		return configurationError(
			fmt.Sprintf("max rounds %d exceeds limit %d", m.cfg.MaxRounds, MaxRoundsLimit),
			map[string]string{"max_rounds": strconv.Itoa(m.cfg.MaxRounds)},
			nil,
		)
	}
	if b.Decided() {
		return configurationError("battle is already decided", nil, battlefield.ErrVictorAlreadySet)
	}
	if err := b.Validate(); err != nil {
		return configurationError("invalid membership", nil, err)
	}
	if teams := b.LivingTeams(); len(teams) < 2 {
		return configurationError(
			fmt.Sprintf("need at least 2 teams with living entities, have %d", len(teams)),
			map[string]string{"living_teams": strconv.Itoa(len(teams))},
			nil,
		)
	}
	return nil
}

// execute runs one phase. Failures of non-critical phases, including panics,
// are reported and the phase counts as a no-op.
func (m *Manager) execute(ctx context.Context, p phase.Phase, pc *phase.Context) (err error) {
	round := pc.Battlefield.Round()
	ctx, span := m.tracer.Start(ctx, "battle.phase", trace.WithAttributes(
		attribute.String("battle.phase", p.Name()),
		attribute.Int("battle.round", round),
	))
	defer span.End()

	pc.Phase = p.Name()
	err = safeExecute(ctx, p, pc)
	if err == nil {
		return nil
	}
	span.RecordError(err)

	if phase.IsCritical(p) || phase.IsFatal(err) {
		span.SetStatus(codes.Error, err.Error())
		pc.Emit(report.Entry{
			Category: report.CategoryEngine,
			Severity: report.SeverityError,
			Message:  fmt.Sprintf("phase %s failed, aborting: %v", p.Name(), err),
		})
		if !phase.IsFatal(err) {
			err = phase.Fatal(err)
		}
		return fmt.Errorf("%s in round %d: %w", p.Name(), round, err)
	}

	pc.Emit(report.Entry{
		Category: report.CategoryEngine,
		Severity: report.SeverityError,
		Message:  fmt.Sprintf("phase %s failed and was skipped: %v", p.Name(), err),
	})
	pc.Logger.Warn("phase failed",
		zap.String("phase", p.Name()),
		zap.Int("round", round),
		zap.Error(err),
	)
	return nil
}

func safeExecute(ctx context.Context, p phase.Phase, pc *phase.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Execute(ctx, pc)
}

func (m *Manager) abort(span trace.Span, logger *zap.Logger, err error) (Outcome, error) {
	span.SetStatus(codes.Error, err.Error())
	logger.Error("battle aborted", zap.Error(err))
	return Outcome{}, fmt.Errorf("%w: %w", ErrFatal, err)
}

func haltStatus(b *battlefield.Battlefield, pc *phase.Context) (Status, bool) {
	switch {
	case b.Victor() != "":
		return StatusVictory, true
	case b.Draw():
		return StatusDraw, true
	case pc.Halted():
		return StatusHalted, true
	default:
		return "", false
	}
}
