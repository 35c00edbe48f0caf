// Package storage defines persistence contracts for archived battle runs.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
)

var (
	// ErrNotFound indicates a requested battle record is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "battle not found")
	// ErrAlreadyExists indicates a battle with the same id was already archived.
	ErrAlreadyExists = apperrors.New(apperrors.CodeEntityDuplicate, "battle already exists")
)

const (
	// StatusRunning marks a battle whose outcome has not been saved yet.
	StatusRunning = "running"
	// StatusFailed marks a battle that aborted without an outcome.
	StatusFailed = "failed"
)

// Battle is the archived header of one run.
type Battle struct {
	ID           string
	Scenario     string
	Seed         int64
	LocalTeam    string
	Status       string
	Victor       string
	LocalVictory bool
	Rounds       int
	Entries      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Finished reports whether an outcome was recorded.
func (b Battle) Finished() bool {
	return b.Status != "" && b.Status != StatusRunning
}

// BattleStore persists battle runs, their narrative and their casualties.
type BattleStore interface {
	CreateBattle(ctx context.Context, battle Battle) error
	Sink(ctx context.Context, battleID string) report.Sink
	SaveOutcome(ctx context.Context, outcome engine.Outcome) error
	MarkFailed(ctx context.Context, battleID string) error
	GetBattle(ctx context.Context, battleID string) (Battle, error)
	ListBattles(ctx context.Context, limit int) ([]Battle, error)
	ListEntries(ctx context.Context, battleID string) ([]report.Entry, error)
	ListCasualties(ctx context.Context, battleID string) ([]battlefield.Casualty, error)
}
