/*
Package sqlite provides SQLite-backed persistence for the release engine.

PURPOSE:
  Stores completed calculation runs (the request booking and the produced
  result, both as JSON) and the bank holiday calendar used by the working
  day service. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  calculation_runs: Immutable record of every calculation performed.
                    Runs are never updated or deleted - a corrected
                    calculation is a new run.
  bank_holidays:    Dates skipped when rolling a release date back to
                    the previous working day.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/release.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - api/handlers.go: HTTP layer that records runs here
  - calculators/calculators.go: Working day service fed by LoadBankHolidays
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/release-engine/calc"
)

// Store persists calculation runs and bank holidays using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Calculation runs (append-only audit record)
	CREATE TABLE IF NOT EXISTS calculation_runs (
		id TEXT PRIMARY KEY,
		offender_reference TEXT NOT NULL,
		request_json TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_offender
		ON calculation_runs(offender_reference);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at
		ON calculation_runs(created_at DESC);

	-- Bank holidays (working day calendar)
	CREATE TABLE IF NOT EXISTS bank_holidays (
		date TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CALCULATION RUNS
// =============================================================================

// RunRecord is a stored calculation run. RequestJSON holds the booking as
// submitted, ResultJSON the full calculation output.
type RunRecord struct {
	ID                string
	OffenderReference string
	RequestJSON       string
	ResultJSON        string
	CreatedAt         time.Time
}

// SaveRun records a completed calculation. Runs are append-only: a
// conflicting ID is an error, never an overwrite.
func (s *Store) SaveRun(ctx context.Context, run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO calculation_runs
		(id, offender_reference, request_json, result_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.OffenderReference,
		run.RequestJSON,
		run.ResultJSON,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save calculation run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil when no run exists.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var run RunRecord
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, offender_reference, request_json, result_json, created_at FROM calculation_runs WHERE id = ?",
		id,
	).Scan(&run.ID, &run.OffenderReference, &run.RequestJSON, &run.ResultJSON, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &run, nil
}

// ListRuns returns the most recent runs for an offender, newest first.
// An empty reference lists runs across all offenders.
func (s *Store) ListRuns(ctx context.Context, offenderReference string, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if offenderReference != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, offender_reference, request_json, result_json, created_at
			FROM calculation_runs
			WHERE offender_reference = ?
			ORDER BY created_at DESC
			LIMIT ?
		`, offenderReference, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, offender_reference, request_json, result_json, created_at
			FROM calculation_runs
			ORDER BY created_at DESC
			LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var createdAt string
		if err := rows.Scan(&run.ID, &run.OffenderReference, &run.RequestJSON, &run.ResultJSON, &createdAt); err != nil {
			return nil, err
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// BANK HOLIDAYS
// =============================================================================

// SaveBankHoliday upserts a holiday date.
func (s *Store) SaveBankHoliday(ctx context.Context, date calc.Date, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO bank_holidays (date, name)
		VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET
			name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query, date.String(), name)
	return err
}

// DeleteBankHoliday removes a holiday date.
func (s *Store) DeleteBankHoliday(ctx context.Context, date calc.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM bank_holidays WHERE date = ?", date.String())
	return err
}

// LoadBankHolidays returns every stored holiday date in ascending order,
// ready to seed a working day service.
func (s *Store) LoadBankHolidays(ctx context.Context) ([]calc.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT date FROM bank_holidays ORDER BY date ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []calc.Date
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := calc.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored holiday %q: %w", raw, err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
