package phase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/rules"
	"go.uber.org/zap"
)

// Phase names.
const (
	NameStartingScenario = "starting_scenario"
	NameInitiative       = "initiative"
	NameDeployment       = "deployment"
	NameMovement         = "movement"
	NameFiring           = "firing"
	NameEnd              = "end"
	NameVictory          = "victory"
)

// Phase is one step of a round.
type Phase interface {
	Name() string
	Execute(ctx context.Context, pc *Context) error
}

// Critical is implemented by phases whose failure must abort the run.
type Critical interface {
	Critical() bool
}

// IsCritical reports whether a failure of p aborts the run.
func IsCritical(p Phase) bool {
	c, ok := p.(Critical)
	return ok && c.Critical()
}

// Func adapts a function to a named Phase.
type Func func(ctx context.Context, pc *Context) error

type funcPhase struct {
	name string
	fn   Func
}

// Named returns a Phase called name that runs fn.
func Named(name string, fn Func) Phase {
	return funcPhase{name: name, fn: fn}
}

func (p funcPhase) Name() string { return p.name }

func (p funcPhase) Execute(ctx context.Context, pc *Context) error {
	if p.fn == nil {
		return nil
	}
	return p.fn(ctx, pc)
}

// Options carry per-run settings the phases consult.
type Options struct {
	Scenario   string
	LocalTeam  string
	Withdrawal bool
}

// Context is the state handed to a phase. The engine sets Phase before each
// execution.
type Context struct {
	Battlefield *battlefield.Battlefield
	Reporter    *report.Reporter
	Rand        *rand.Rand
	Rules       rules.Resolver
	Logger      *zap.Logger
	Options     Options
	RunID       string
	Phase       string

	halted bool
}

// Halt asks the engine to stop after the current pass.
func (c *Context) Halt() {
	c.halted = true
}

// Halted reports whether a phase asked to stop.
func (c *Context) Halted() bool {
	return c.halted
}

// Emit reports an entry stamped with the current round and phase.
func (c *Context) Emit(entry report.Entry) report.Entry {
	if entry.Phase == "" {
		entry.Phase = c.Phase
	}
	if c.Battlefield != nil {
		entry.Round = c.Battlefield.Round()
	}
	if c.Reporter == nil {
		return entry
	}
	return c.Reporter.Emit(entry)
}

// Infof reports an informational line.
func (c *Context) Infof(category report.Category, format string, args ...any) {
	c.Emit(report.Entry{Category: category, Severity: report.SeverityInfo, Message: fmt.Sprintf(format, args...)})
}

// Warnf reports and logs a recoverable inconsistency.
func (c *Context) Warnf(category report.Category, format string, args ...any) {
	entry := c.Emit(report.Entry{Category: category, Severity: report.SeverityWarn, Message: fmt.Sprintf(format, args...)})
	c.logger().Warn(entry.Message,
		zap.String("run_id", c.RunID),
		zap.Int("round", entry.Round),
		zap.String("phase", entry.Phase),
	)
}

func (c *Context) phaseName(fallback string) string {
	if c.Phase == "" {
		return fallback
	}
	return c.Phase
}

func (c *Context) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// fatalError marks an error that must abort the run.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal returns true from IsFatal checks.
func (e *fatalError) Fatal() bool { return true }

// Fatal marks err as run-aborting.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err, or any error in its chain, aborts the run.
func IsFatal(err error) bool {
	var target interface{ Fatal() bool }
	if errors.As(err, &target) {
		return target.Fatal()
	}
	return false
}

// Opening returns the phases run once before the first round.
func Opening() []Phase {
	return []Phase{StartingScenario{}}
}

// Round returns the standard per-round sequence ending with victory.
func Round(victory VictoryCondition) []Phase {
	return []Phase{
		Initiative{},
		Deployment{},
		Movement{},
		Firing{},
		End{},
		Victory{Condition: victory},
	}
}
