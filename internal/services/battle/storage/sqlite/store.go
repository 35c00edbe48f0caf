// Package sqlite provides a SQLite-backed battle archive.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/autoresolve/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"github.com/louisbranch/autoresolve/internal/services/battle/storage"
	"github.com/louisbranch/autoresolve/internal/services/battle/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const defaultListLimit = 50

// Store persists battle runs in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ storage.BattleStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite battle archive and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(1)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers from parallel runs.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateBattle inserts the header of a run before it starts.
func (s *Store) CreateBattle(ctx context.Context, battle storage.Battle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	battleID := strings.TrimSpace(battle.ID)
	if battleID == "" {
		return fmt.Errorf("battle id is required")
	}
	status := strings.TrimSpace(battle.Status)
	if status == "" {
		status = storage.StatusRunning
	}
	createdAt := battle.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO battles (
		   id, scenario, seed, local_team, status, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		battleID,
		strings.TrimSpace(battle.Scenario),
		battle.Seed,
		strings.TrimSpace(battle.LocalTeam),
		status,
		toMillis(createdAt),
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create battle: %w", err)
	}
	return nil
}

// Sink returns a report sink that appends entries to battleID's narrative.
func (s *Store) Sink(ctx context.Context, battleID string) report.Sink {
	return report.SinkFunc(func(entry report.Entry) error {
		return s.AppendEntry(ctx, battleID, entry)
	})
}

// AppendEntry stores one narrative entry.
func (s *Store) AppendEntry(ctx context.Context, battleID string, entry report.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	battleID = strings.TrimSpace(battleID)
	if battleID == "" {
		return fmt.Errorf("battle id is required")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO battle_entries (
		   battle_id, seq, round, phase, category, severity, message, entity_id, target_id, at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		battleID,
		entry.Seq,
		entry.Round,
		entry.Phase,
		string(entry.Category),
		string(entry.Severity),
		entry.Message,
		entry.Entity,
		entry.Target,
		toMillis(entry.At),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("entry %d already stored for battle %s", entry.Seq, battleID)
		}
		if isForeignKeyViolation(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("append battle entry: %w", err)
	}
	return nil
}

// SaveOutcome records the verdict and casualties of a finished run.
func (s *Store) SaveOutcome(ctx context.Context, outcome engine.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	battleID := strings.TrimSpace(outcome.RunID)
	if battleID == "" {
		return fmt.Errorf("battle id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outcome transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(
		ctx,
		`UPDATE battles
		    SET status = ?, victor = ?, local_victory = ?, rounds = ?, entry_count = ?, updated_at = ?
		  WHERE id = ?`,
		string(outcome.Status),
		outcome.Victor,
		boolToInt(outcome.LocalVictory),
		outcome.Rounds,
		outcome.Entries,
		toMillis(s.now()),
		battleID,
	)
	if err != nil {
		return fmt.Errorf("update battle: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update battle rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM battle_casualties WHERE battle_id = ?`, battleID); err != nil {
		return fmt.Errorf("clear casualties: %w", err)
	}
	for i, c := range outcome.Casualties {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO battle_casualties (
			   battle_id, entity_id, entity_name, force_id, team_id, round, phase, reason, position
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			battleID,
			c.Entity.ID,
			c.Entity.Name,
			c.Entity.Force,
			c.Team,
			c.Round,
			c.Phase,
			string(c.Reason),
			i,
		); err != nil {
			return fmt.Errorf("insert casualty %s: %w", c.Entity.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outcome: %w", err)
	}
	return nil
}

// MarkFailed records that a battle aborted. Entries already stored are kept.
func (s *Store) MarkFailed(ctx context.Context, battleID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	battleID = strings.TrimSpace(battleID)
	if battleID == "" {
		return fmt.Errorf("battle id is required")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE battles SET status = ?, updated_at = ? WHERE id = ?`,
		storage.StatusFailed,
		toMillis(s.now()),
		battleID,
	)
	if err != nil {
		return fmt.Errorf("mark battle failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark battle failed rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetBattle returns one archived battle header.
func (s *Store) GetBattle(ctx context.Context, battleID string) (storage.Battle, error) {
	if err := ctx.Err(); err != nil {
		return storage.Battle{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Battle{}, fmt.Errorf("storage is not configured")
	}
	battleID = strings.TrimSpace(battleID)
	if battleID == "" {
		return storage.Battle{}, fmt.Errorf("battle id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, scenario, seed, local_team, status, victor, local_victory,
		        rounds, entry_count, created_at, updated_at
		   FROM battles
		  WHERE id = ?`,
		battleID,
	)
	battle, err := scanBattle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Battle{}, storage.ErrNotFound
		}
		return storage.Battle{}, fmt.Errorf("get battle: %w", err)
	}
	return battle, nil
}

// ListBattles returns the most recent battles first.
func (s *Store) ListBattles(ctx context.Context, limit int) ([]storage.Battle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, scenario, seed, local_team, status, victor, local_victory,
		        rounds, entry_count, created_at, updated_at
		   FROM battles
		  ORDER BY created_at DESC, id
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	defer rows.Close()

	battles := make([]storage.Battle, 0)
	for rows.Next() {
		battle, err := scanBattle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan battle: %w", err)
		}
		battles = append(battles, battle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate battles: %w", err)
	}
	return battles, nil
}

// ListEntries returns a battle's narrative in sequence order.
func (s *Store) ListEntries(ctx context.Context, battleID string) ([]report.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if _, err := s.GetBattle(ctx, battleID); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT seq, round, phase, category, severity, message, entity_id, target_id, at
		   FROM battle_entries
		  WHERE battle_id = ?
		  ORDER BY seq`,
		strings.TrimSpace(battleID),
	)
	if err != nil {
		return nil, fmt.Errorf("list battle entries: %w", err)
	}
	defer rows.Close()

	entries := make([]report.Entry, 0)
	for rows.Next() {
		var entry report.Entry
		var category, severity string
		var at int64
		if err := rows.Scan(
			&entry.Seq,
			&entry.Round,
			&entry.Phase,
			&category,
			&severity,
			&entry.Message,
			&entry.Entity,
			&entry.Target,
			&at,
		); err != nil {
			return nil, fmt.Errorf("scan battle entry: %w", err)
		}
		entry.Category = report.Category(category)
		entry.Severity = report.Severity(severity)
		entry.At = fromMillis(at)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate battle entries: %w", err)
	}
	return entries, nil
}

// ListCasualties returns a battle's graveyard in removal order.
func (s *Store) ListCasualties(ctx context.Context, battleID string) ([]battlefield.Casualty, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if _, err := s.GetBattle(ctx, battleID); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT entity_id, entity_name, force_id, team_id, round, phase, reason
		   FROM battle_casualties
		  WHERE battle_id = ?
		  ORDER BY position`,
		strings.TrimSpace(battleID),
	)
	if err != nil {
		return nil, fmt.Errorf("list casualties: %w", err)
	}
	defer rows.Close()

	casualties := make([]battlefield.Casualty, 0)
	for rows.Next() {
		var c battlefield.Casualty
		var reason string
		if err := rows.Scan(
			&c.Entity.ID,
			&c.Entity.Name,
			&c.Entity.Force,
			&c.Team,
			&c.Round,
			&c.Phase,
			&reason,
		); err != nil {
			return nil, fmt.Errorf("scan casualty: %w", err)
		}
		c.Reason = battlefield.Reason(reason)
		casualties = append(casualties, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate casualties: %w", err)
	}
	return casualties, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBattle(row rowScanner) (storage.Battle, error) {
	var battle storage.Battle
	var localVictory int
	var createdAt, updatedAt int64
	if err := row.Scan(
		&battle.ID,
		&battle.Scenario,
		&battle.Seed,
		&battle.LocalTeam,
		&battle.Status,
		&battle.Victor,
		&localVictory,
		&battle.Rounds,
		&battle.Entries,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.Battle{}, err
	}
	battle.LocalVictory = localVictory != 0
	battle.CreatedAt = fromMillis(createdAt)
	battle.UpdatedAt = fromMillis(updatedAt)
	return battle, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	default:
		return false
	}
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
}
