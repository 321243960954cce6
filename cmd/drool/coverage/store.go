package coverage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const schema = `
CREATE TABLE IF NOT EXISTS drool_field_coverage (
	run_id        TEXT        NOT NULL,
	library       TEXT        NOT NULL,
	field_key     TEXT        NOT NULL,
	template_name TEXT        NOT NULL,
	node_path     TEXT        NOT NULL,
	mapped        BOOLEAN     NOT NULL,
	resource_type TEXT        NOT NULL DEFAULT '',
	path          TEXT        NOT NULL DEFAULT '',
	recorded_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, field_key)
)`

const insertRow = `
INSERT INTO drool_field_coverage
	(run_id, library, field_key, template_name, node_path, mapped, resource_type, path, recorded_at)
VALUES
	(:run_id, :library, :field_key, :template_name, :node_path, :mapped, :resource_type, :path, :recorded_at)`

// record is the persisted form of a Row.
type record struct {
	Row
	RunID      string    `db:"run_id"`
	Library    string    `db:"library"`
	RecordedAt time.Time `db:"recorded_at"`
}

// PostgresStore persists coverage reports.
type PostgresStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewPostgresStore wraps an open connection.
func NewPostgresStore(db *sqlx.DB, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// Connect opens a connection to dsn and makes sure the table exists.
func Connect(ctx context.Context, dsn string, log zerolog.Logger) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	store := NewPostgresStore(db, log)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the coverage table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create coverage table: %w", err)
	}
	return nil
}

// Save writes every row of report under runID in one transaction.
func (s *PostgresStore) Save(ctx context.Context, runID, library string, report *Report) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records(runID, library, time.Now().UTC(), report) {
		if _, err := tx.NamedExecContext(ctx, insertRow, rec); err != nil {
			return fmt.Errorf("failed to insert coverage for %s: %w", rec.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit coverage: %w", err)
	}

	s.log.Info().
		Str("run", runID).
		Str("library", library).
		Int("rows", len(report.Rows)).
		Msg("Stored coverage report")
	return nil
}

// Close closes the underlying connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func records(runID, library string, at time.Time, report *Report) []record {
	out := make([]record, 0, len(report.Rows))
	for _, row := range report.Rows {
		out = append(out, record{Row: row, RunID: runID, Library: library, RecordedAt: at})
	}
	return out
}
