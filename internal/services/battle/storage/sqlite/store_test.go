package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"github.com/louisbranch/autoresolve/internal/services/battle/scenario"
	"github.com/louisbranch/autoresolve/internal/services/battle/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestCreateAndGetBattle(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.CreateBattle(ctx, storage.Battle{
		ID:        " b-1 ",
		Scenario:  "ridge",
		Seed:      42,
		LocalTeam: "red",
		CreatedAt: createdAt,
	}); err != nil {
		t.Fatalf("create battle: %v", err)
	}

	got, err := store.GetBattle(ctx, "b-1")
	if err != nil {
		t.Fatalf("get battle: %v", err)
	}
	if got.Scenario != "ridge" || got.Seed != 42 || got.LocalTeam != "red" {
		t.Fatalf("unexpected battle: %+v", got)
	}
	if got.Status != storage.StatusRunning || got.Finished() {
		t.Fatalf("status = %q, want running", got.Status)
	}
	if !got.CreatedAt.Equal(createdAt) || !got.UpdatedAt.Equal(createdAt) {
		t.Fatalf("timestamps = %v / %v, want %v", got.CreatedAt, got.UpdatedAt, createdAt)
	}
}

func TestCreateBattleDuplicate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	battle := storage.Battle{ID: "b-1", Seed: 1}
	if err := store.CreateBattle(ctx, battle); err != nil {
		t.Fatalf("create battle: %v", err)
	}
	err := store.CreateBattle(ctx, battle)
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateBattleRequiresID(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.CreateBattle(context.Background(), storage.Battle{}); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestGetBattleNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.GetBattle(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeNotFound)
	}
	if _, err := store.ListEntries(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("list entries: expected ErrNotFound, got %v", err)
	}
	if _, err := store.ListCasualties(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("list casualties: expected ErrNotFound, got %v", err)
	}
}

func TestSinkAppendsEntriesInOrder(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.CreateBattle(ctx, storage.Battle{ID: "b-1"}); err != nil {
		t.Fatalf("create battle: %v", err)
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reporter := report.New(store.Sink(ctx, "b-1"), report.WithClock(func() time.Time { return at }))
	reporter.Emit(report.Entry{Round: 1, Phase: "firing", Category: report.CategoryFiring, Message: "r1 hits b1", Entity: "r1", Target: "b1"})
	reporter.Emit(report.Entry{Round: 1, Phase: "end", Category: report.CategoryEnd, Severity: report.SeverityWarn, Message: "b1 breaks"})
	if err := reporter.Err(); err != nil {
		t.Fatalf("sink error: %v", err)
	}

	entries, err := store.ListEntries(ctx, "b-1")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	first := entries[0]
	if first.Seq != 1 || first.Message != "r1 hits b1" || first.Entity != "r1" || first.Target != "b1" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.Severity != report.SeverityInfo || !first.At.Equal(at) {
		t.Fatalf("severity/at = %s/%v", first.Severity, first.At)
	}
	if entries[1].Seq != 2 || entries[1].Severity != report.SeverityWarn {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestSinkRejectsReplayedSequence(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.CreateBattle(ctx, storage.Battle{ID: "b-1"}); err != nil {
		t.Fatalf("create battle: %v", err)
	}
	entry := report.Entry{Seq: 1, Round: 0, Phase: "starting_scenario", Message: "go", At: time.Now()}
	if err := store.AppendEntry(ctx, "b-1", entry); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendEntry(ctx, "b-1", entry); err == nil {
		t.Fatal("expected error for replayed sequence")
	}
}

func TestSaveOutcomeRequiresBattle(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	err := store.SaveOutcome(context.Background(), engine.Outcome{RunID: "missing", Status: engine.StatusDraw})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArchiveResolvedBattle(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	sc := duel()
	cfg := sc.Apply(engine.Config{RunID: "duel-1", Seed: 7})

	if err := store.CreateBattle(ctx, storage.Battle{
		ID:        cfg.RunID,
		Scenario:  cfg.Scenario,
		Seed:      cfg.Seed,
		LocalTeam: cfg.LocalTeam,
	}); err != nil {
		t.Fatalf("create battle: %v", err)
	}
	cfg.Sink = store.Sink(ctx, cfg.RunID)

	outcome, err := engine.Resolve(ctx, sc, cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := store.SaveOutcome(ctx, outcome); err != nil {
		t.Fatalf("save outcome: %v", err)
	}

	battle, err := store.GetBattle(ctx, cfg.RunID)
	if err != nil {
		t.Fatalf("get battle: %v", err)
	}
	if !battle.Finished() || battle.Status != string(outcome.Status) {
		t.Fatalf("status = %q, want %q", battle.Status, outcome.Status)
	}
	if battle.Victor != outcome.Victor || battle.LocalVictory != outcome.LocalVictory || battle.Rounds != outcome.Rounds {
		t.Fatalf("battle %+v does not match outcome %+v", battle, outcome)
	}

	entries, err := store.ListEntries(ctx, cfg.RunID)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != outcome.Entries || battle.Entries != outcome.Entries {
		t.Fatalf("entries = %d (header %d), want %d", len(entries), battle.Entries, outcome.Entries)
	}
	for i, entry := range entries {
		if entry.Seq != i+1 {
			t.Fatalf("entry %d has seq %d", i, entry.Seq)
		}
	}

	casualties, err := store.ListCasualties(ctx, cfg.RunID)
	if err != nil {
		t.Fatalf("list casualties: %v", err)
	}
	if len(casualties) != len(outcome.Casualties) {
		t.Fatalf("casualties = %d, want %d", len(casualties), len(outcome.Casualties))
	}
	for i, c := range casualties {
		want := outcome.Casualties[i]
		if c.Entity.ID != want.Entity.ID || c.Team != want.Team || c.Round != want.Round || c.Reason != want.Reason {
			t.Fatalf("casualty %d = %+v, want %+v", i, c, want)
		}
	}
}

func TestSaveOutcomeReplacesCasualties(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.CreateBattle(ctx, storage.Battle{ID: "b-1"}); err != nil {
		t.Fatalf("create battle: %v", err)
	}
	dead := battlefield.Casualty{
		Entity: battlefield.Entity{ID: "b1", Name: "Scout", Force: "blue-1"},
		Team:   "blue",
		Round:  2,
		Phase:  "firing",
		Reason: battlefield.ReasonDestroyed,
	}
	outcome := engine.Outcome{RunID: "b-1", Status: engine.StatusVictory, Victor: "red", Casualties: []battlefield.Casualty{dead}}
	for i := 0; i < 2; i++ {
		if err := store.SaveOutcome(ctx, outcome); err != nil {
			t.Fatalf("save outcome %d: %v", i, err)
		}
	}
	casualties, err := store.ListCasualties(ctx, "b-1")
	if err != nil {
		t.Fatalf("list casualties: %v", err)
	}
	if len(casualties) != 1 || casualties[0].Entity.Name != "Scout" || casualties[0].Entity.Force != "blue-1" {
		t.Fatalf("unexpected casualties: %+v", casualties)
	}
}

func TestMarkFailed(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.CreateBattle(ctx, storage.Battle{ID: "b-1"}); err != nil {
		t.Fatalf("create battle: %v", err)
	}
	if err := store.MarkFailed(ctx, "b-1"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got, err := store.GetBattle(ctx, "b-1")
	if err != nil {
		t.Fatalf("get battle: %v", err)
	}
	if got.Status != storage.StatusFailed || !got.Finished() {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if err := store.MarkFailed(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListBattlesNewestFirst(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := store.CreateBattle(ctx, storage.Battle{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	battles, err := store.ListBattles(ctx, 2)
	if err != nil {
		t.Fatalf("list battles: %v", err)
	}
	if len(battles) != 2 || battles[0].ID != "new" || battles[1].ID != "mid" {
		t.Fatalf("unexpected battles: %+v", battles)
	}
}

func TestStoreRespectsCancelledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.CreateBattle(ctx, storage.Battle{ID: "b-1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNilStoreIsNotConfigured(t *testing.T) {
	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
	if _, err := store.GetBattle(context.Background(), "b-1"); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func duel() *scenario.Scenario {
	return &scenario.Scenario{
		Name:      "duel",
		LocalTeam: "red",
		MaxRounds: 10,
		Teams:     []scenario.Team{{ID: "red"}, {ID: "blue"}},
		Forces: []scenario.Force{
			{ID: "red-1", Team: "red", Units: []scenario.Unit{{
				ID: "r1", Skill: 2, Weapons: []battlefield.Weapon{{Name: "rifle", Damage: "2d6", Range: 30}},
			}}},
			{ID: "blue-1", Team: "blue", Units: []scenario.Unit{{
				ID: "b1", X: 10, Health: 3, Skill: 12, Weapons: []battlefield.Weapon{{Name: "pistol", Damage: "1", Range: 5}},
			}}},
		},
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "battles.db"))
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
