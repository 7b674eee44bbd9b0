package sinks

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/Phlares/arenaflow/internal/model"
)

// DuckDBSink writes feature rows into a DuckDB database file, ready
// for SQL analysis without an export step.
type DuckDBSink struct {
	db   *sql.DB
	stmt *sql.Stmt

	mu     sync.Mutex
	closed bool
}

// NewDuckDBSink opens (or creates) the database at path and prepares
// the feature table.
func NewDuckDBSink(path string) (*DuckDBSink, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS features (
			filename VARCHAR NOT NULL,
			match_start_time TIMESTAMP NOT NULL,
			cast_success_own INTEGER NOT NULL,
			interrupt_success_own INTEGER NOT NULL,
			times_interrupted INTEGER NOT NULL,
			precog_gained_own INTEGER NOT NULL,
			precog_gained_enemy INTEGER NOT NULL,
			purges_own INTEGER NOT NULL,
			damage_done INTEGER NOT NULL,
			healing_done INTEGER NOT NULL,
			deaths_caused INTEGER NOT NULL,
			times_died INTEGER NOT NULL,
			spells_cast VARCHAR NOT NULL,
			spells_purged VARCHAR NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	stmt, err := db.Prepare(`
		INSERT INTO features VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}

	return &DuckDBSink{db: db, stmt: stmt}, nil
}

// WriteRow implements Sink.
func (s *DuckDBSink) WriteRow(ctx context.Context, row *model.FeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("duckdb sink is closed")
	}

	c := &row.Counters
	_, err := s.stmt.ExecContext(ctx,
		row.Filename,
		row.Interval.Start.UTC().Format(time.RFC3339),
		c.CastSuccess,
		c.InterruptsDone,
		c.TimesInterrupted,
		c.BuffGainedSelf,
		c.BuffGainedOpponent,
		c.Purges,
		c.DamageDone,
		c.HealingDone,
		c.DeathsCaused,
		c.TimesDied,
		joinList(c.SpellsCast),
		joinList(c.SpellsPurged),
	)
	if err != nil {
		return fmt.Errorf("failed to insert feature row: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *DuckDBSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.stmt.Close()
	return s.db.Close()
}
