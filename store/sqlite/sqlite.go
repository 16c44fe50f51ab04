/*
Package sqlite provides a SQLite-backed implementation of school.Repository.

PURPOSE:
  Implements every persistence interface of the school package with one
  SQLite file. The riding school runs on a single machine with a single
  writer, so SQLite is the production store, not a test double.

KEY TABLES:
  students, horses:        Entity records (names unique)
  lessons:                 Write-once history, milestone source
  schedule_slots:          One lesson group at one date/time
  schedule_participants:   (slot, student, horse), cascades with the slot
  rider_groups:            Weekly cohorts (weekday 0 = Sunday)
  rider_group_members:     Group membership, no horses
  group_cancellations:     Per-date absences, unique per (group, student, date)
  printed_reports_log:     Issued cards, unique per (student, milestone)

MIGRATIONS:
  Schema changes live in migrations/*.up.sql, embedded into the binary and
  applied once at startup by golang-migrate. The applied version is recorded
  in schema_migrations. Migrations are forward-only.

CONCURRENCY:
  One open connection, WAL journal, foreign keys on. WithTx holds a mutex
  for the duration of the unit of work, so transactions never interleave.
  Code inside WithTx must only use the Repository it was handed: the
  connection is taken by the transaction until it ends.

USAGE:
  store, err := sqlite.New("./riding_school.db", log)
  if err != nil {
      return err
  }
  defer store.Close()

  err = store.WithTx(ctx, func(repo school.Repository) error {
      id, err := repo.InsertSlot(ctx, date, "10:00")
      ...
  })

SEE ALSO:
  - school/store.go: Interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garnzell/riding-school/school"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationsTable = "schema_migrations"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements school.Repository on top of a querier.
type queries struct {
	q querier
}

var _ school.Repository = (*queries)(nil)

// Store implements school.TxRunner using SQLite.
type Store struct {
	*queries
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

var _ school.TxRunner = (*Store)(nil)

// New opens the database at dbPath and applies pending migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer. An in-memory database also only exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{
		queries: &queries{q: db},
		db:      db,
		log:     log.With().Str("component", "sqlite").Logger(),
	}
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

func (s *Store) migrate() error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	defer src.Close()

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// The migrator is not closed: closing it would close s.db.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	s.log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database schema up to date")
	return nil
}

// SchemaVersion returns the last applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM "+migrationsTable).Scan(&version)
	return version, err
}

// =============================================================================
// UNIT OF WORK (school.TxRunner)
// =============================================================================

// WithTx executes fn within a database transaction.
// If fn returns an error (or panics) the transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(school.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Reset clears all data, keeping the schema.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, table := range []string{
		"group_cancellations", "rider_group_members", "rider_groups",
		"printed_reports_log", "schedule_participants", "schedule_slots",
		"lessons", "horses", "students",
	} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return sqlTx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseDate(s string) (school.Date, error) {
	d, err := school.ParseDate(s)
	if err != nil {
		return school.Date{}, fmt.Errorf("corrupt date in database: %w", err)
	}
	return d, nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func isForeignKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// affectedOrNotFound turns a zero-row UPDATE/DELETE into notFound.
func affectedOrNotFound(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
