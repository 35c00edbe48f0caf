package sqlitemigrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func sqlFile(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func openTemp(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func hasTable(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}

func TestApplyMigrationsInVersionOrder(t *testing.T) {
	db := openTemp(t)
	fsys := fstest.MapFS{
		"002_rounds.sql":  sqlFile("-- +migrate Up\nCREATE TABLE rounds(battle_id TEXT REFERENCES battles(id));"),
		"001_battles.sql": sqlFile("-- +migrate Up\nCREATE TABLE battles(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE battles;"),
		"README.md":       sqlFile("not a migration"),
	}
	if err := ApplyMigrations(context.Background(), db, fsys, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !hasTable(t, db, "battles") || !hasTable(t, db, "rounds") {
		t.Fatal("expected both tables")
	}
	version, err := Version(context.Background(), db)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 2 {
		t.Fatalf("version = %d, want 2", version)
	}
}

func TestApplyMigrationsRunsOnlyNewVersions(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	first := fstest.MapFS{"001_battles.sql": sqlFile("CREATE TABLE battles(id TEXT PRIMARY KEY);")}
	if err := ApplyMigrations(ctx, db, first, ""); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	// Re-running 001 would fail on the existing table.
	second := fstest.MapFS{
		"001_battles.sql": first["001_battles.sql"],
		"002_victor.sql":  sqlFile("ALTER TABLE battles ADD COLUMN victor TEXT;"),
	}
	if err := ApplyMigrations(ctx, db, second, ""); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&rows); err != nil {
		t.Fatalf("count history: %v", err)
	}
	if rows != 2 {
		t.Fatalf("history rows = %d, want 2", rows)
	}
}

func TestApplyMigrationsRollsBackFailure(t *testing.T) {
	db := openTemp(t)
	fsys := fstest.MapFS{
		"001_broken.sql": sqlFile("CREATE TABLE partial(id TEXT); CREATE TABLE nope("),
	}
	err := ApplyMigrations(context.Background(), db, fsys, "")
	if err == nil || !strings.Contains(err.Error(), "001_broken.sql") {
		t.Fatalf("expected error naming the migration, got %v", err)
	}
	version, err := Version(context.Background(), db)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 0 {
		t.Fatalf("failed migration recorded as version %d", version)
	}
}

func TestApplyMigrationsUsesRoot(t *testing.T) {
	db := openTemp(t)
	fsys := fstest.MapFS{
		"battles/001_battles.sql": sqlFile("CREATE TABLE battles(id TEXT);"),
		"other/001_other.sql":     sqlFile("CREATE TABLE other(id TEXT);"),
	}
	if err := ApplyMigrations(context.Background(), db, fsys, "battles"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !hasTable(t, db, "battles") || hasTable(t, db, "other") {
		t.Fatal("only the root's migrations should run")
	}
}

func TestApplyMigrationsRequiresDB(t *testing.T) {
	if err := ApplyMigrations(context.Background(), nil, fstest.MapFS{}, ""); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestLoadRejectsBadNames(t *testing.T) {
	tests := map[string]fstest.MapFS{
		"no version": {"battles.sql": sqlFile("SELECT 1;")},
		"zero":       {"000_init.sql": sqlFile("SELECT 1;")},
		"duplicate": {
			"001_a.sql": sqlFile("SELECT 1;"),
			"001_b.sql": sqlFile("SELECT 1;"),
		},
	}
	for name, fsys := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(fsys, ""); err == nil {
				t.Fatal("expected load error")
			}
		})
	}
}

func TestLoadExtractsUpSection(t *testing.T) {
	fsys := fstest.MapFS{
		"10_tail.sql": sqlFile("-- header\n-- +migrate Up\nCREATE TABLE t(id);\n-- +migrate Down\nDROP TABLE t;"),
		"9_head.sql":  sqlFile("CREATE TABLE h(id);"),
	}
	got, err := Load(fsys, ".")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].Version != 9 || got[1].Version != 10 {
		t.Fatalf("unexpected order: %+v", got)
	}
	if strings.Contains(got[1].Up, "DROP") || strings.Contains(got[1].Up, "header") {
		t.Fatalf("up section leaked other text: %q", got[1].Up)
	}
}
