package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"github.com/louisbranch/autoresolve/internal/services/battle/scenario"
	"github.com/louisbranch/autoresolve/internal/services/battle/storage"
	"github.com/louisbranch/autoresolve/internal/services/battle/storage/sqlite"
)

func TestRunArchivesOutcome(t *testing.T) {
	store := openStore(t)
	runner := NewRunner(store, engine.Config{})
	memory := report.NewMemory()

	outcome, err := runner.Run(context.Background(), skirmish(), Request{Seed: 11, RunID: "run-1", Sink: memory})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.RunID != "run-1" || outcome.Seed != 11 || outcome.Scenario != "skirmish" {
		t.Fatalf("unexpected outcome header: %+v", outcome)
	}
	if outcome.LocalTeam != "red" {
		t.Fatalf("local team = %q, want scenario default red", outcome.LocalTeam)
	}

	battle, err := store.GetBattle(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("get battle: %v", err)
	}
	if battle.Status != string(outcome.Status) || battle.Seed != 11 {
		t.Fatalf("battle %+v does not match outcome", battle)
	}
	entries, err := store.ListEntries(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != len(memory.Entries()) || len(entries) != outcome.Entries {
		t.Fatalf("archived %d entries, streamed %d, outcome %d", len(entries), len(memory.Entries()), outcome.Entries)
	}
}

func TestRunGeneratesIDAndSeed(t *testing.T) {
	store := openStore(t)
	runner := NewRunner(store, engine.Config{})

	outcome, err := runner.Run(context.Background(), skirmish(), Request{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.RunID == "" || outcome.Seed == 0 {
		t.Fatalf("expected generated id and seed, got %q / %d", outcome.RunID, outcome.Seed)
	}
	if _, err := store.GetBattle(context.Background(), outcome.RunID); err != nil {
		t.Fatalf("get battle: %v", err)
	}
}

func TestRunRejectsInvalidScenarioBeforeArchiving(t *testing.T) {
	store := openStore(t)
	runner := NewRunner(store, engine.Config{})
	sc := skirmish()
	sc.Teams = sc.Teams[:1]

	_, err := runner.Run(context.Background(), sc, Request{RunID: "run-1"})
	if apperrors.CodeOf(err) != apperrors.CodeScenarioInvalid {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeScenarioInvalid)
	}
	if _, err := store.GetBattle(context.Background(), "run-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected no archived battle, got %v", err)
	}
}

func TestRunMarksFailedBattle(t *testing.T) {
	store := openStore(t)
	runner := NewRunner(store, engine.Config{})
	sc := skirmish()
	sc.Forces = sc.Forces[:1]

	_, err := runner.Run(context.Background(), sc, Request{RunID: "run-1"})
	if !errors.Is(err, engine.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	battle, err := store.GetBattle(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("get battle: %v", err)
	}
	if battle.Status != storage.StatusFailed {
		t.Fatalf("status = %q, want failed", battle.Status)
	}
}

type failingOutcomeStore struct {
	storage.BattleStore
}

func (failingOutcomeStore) SaveOutcome(context.Context, engine.Outcome) error {
	return errors.New("disk full")
}

func TestRunMarksFailedWhenOutcomeIsNotSaved(t *testing.T) {
	store := openStore(t)
	runner := NewRunner(failingOutcomeStore{BattleStore: store}, engine.Config{})

	outcome, err := runner.Run(context.Background(), skirmish(), Request{Seed: 3, RunID: "run-1"})
	if err == nil {
		t.Fatal("expected save error")
	}
	if outcome.RunID != "" || outcome.State != nil {
		t.Fatalf("expected zero outcome, got %+v", outcome)
	}
	battle, err := store.GetBattle(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("get battle: %v", err)
	}
	if battle.Status != storage.StatusFailed {
		t.Fatalf("status = %q, want failed", battle.Status)
	}
}

func TestRunRoundCapPrecedence(t *testing.T) {
	runner := NewRunner(openStore(t), engine.Config{MaxRounds: 2})
	if got := runner.MaxRounds(); got != 2 {
		t.Fatalf("runner max rounds = %d", got)
	}
	if got := NewRunner(openStore(t), engine.Config{}).MaxRounds(); got != engine.DefaultMaxRounds {
		t.Fatalf("default max rounds = %d", got)
	}

	idle := skirmish()
	idle.MaxRounds = 0
	for i := range idle.Forces {
		for j := range idle.Forces[i].Units {
			idle.Forces[i].Units[j].Weapons = nil
			move := 0.0
			idle.Forces[i].Units[j].Move = &move
		}
	}
	outcome, err := runner.Run(context.Background(), idle, Request{Seed: 1, RunID: "base"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Status != engine.StatusRoundCap || outcome.Rounds != 2 {
		t.Fatalf("outcome = %s after %d rounds, want round cap after 2", outcome.Status, outcome.Rounds)
	}
	outcome, err = runner.Run(context.Background(), idle, Request{Seed: 1, RunID: "request", MaxRounds: 3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Rounds != 3 {
		t.Fatalf("rounds = %d, want request cap 3", outcome.Rounds)
	}
}

func TestRunRequiresStore(t *testing.T) {
	var runner *Runner
	if _, err := runner.Run(context.Background(), skirmish(), Request{}); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("expected ErrStoreRequired, got %v", err)
	}
	if _, err := NewRunner(openStore(t), engine.Config{}).Run(context.Background(), nil, Request{}); !errors.Is(err, engine.ErrPopulatorRequired) {
		t.Fatalf("expected ErrPopulatorRequired, got %v", err)
	}
}

func skirmish() *scenario.Scenario {
	rifle := []battlefield.Weapon{{Name: "rifle", Damage: "1d6+1", Range: 24}}
	return &scenario.Scenario{
		Name:      "skirmish",
		LocalTeam: "red",
		MaxRounds: 12,
		Teams:     []scenario.Team{{ID: "red"}, {ID: "blue"}},
		Forces: []scenario.Force{
			{ID: "red-1", Team: "red", Units: []scenario.Unit{
				{ID: "r1", Weapons: rifle},
				{ID: "r2", Y: 2, Weapons: rifle},
			}},
			{ID: "blue-1", Team: "blue", Units: []scenario.Unit{
				{ID: "b1", X: 30, Weapons: rifle},
				{ID: "b2", X: 30, Y: 2, Weapons: rifle},
			}},
		},
	}
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "battles.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
