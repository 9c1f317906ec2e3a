// Package sqlite keeps a rolling history of forecast runs in a local SQLite
// database so the HTTP API can serve the latest forecast between runs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS forecast_runs (
	id            TEXT PRIMARY KEY,
	generated_at  INTEGER NOT NULL,
	last_observed TEXT NOT NULL,
	rainy_hours   INTEGER NOT NULL,
	rainy_days    INTEGER NOT NULL,
	payload       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS forecast_runs_generated_at ON forecast_runs (generated_at);`

// Store persists forecast runs. It implements pipeline.Sink.
type Store struct {
	db       *sql.DB
	keepRuns int
	logger   *slog.Logger
}

// Open opens (or creates) the database at path and applies the schema.
// keepRuns bounds the stored history; zero keeps every run.
func Open(ctx context.Context, path string, keepRuns int, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		logger.Warn("could not enable WAL mode", "path", path, "error", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &Store{db: db, keepRuns: keepRuns, logger: logger}, nil
}

// Name identifies the store as a publish sink.
func (s *Store) Name() string { return "sqlite" }

// Publish stores the run and prunes history beyond the configured limit.
func (s *Store) Publish(ctx context.Context, run domain.ForecastRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO forecast_runs (id, generated_at, last_observed, rainy_hours, rainy_days, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.GeneratedAt.UTC().UnixNano(), run.LastObserved.String(),
		run.RainyHours(), run.RainyDays(), string(payload),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	if s.keepRuns > 0 {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM forecast_runs WHERE id NOT IN (
				SELECT id FROM forecast_runs ORDER BY generated_at DESC LIMIT ?)`, s.keepRuns)
		if err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Debug("pruned forecast runs", "deleted", n, "keep", s.keepRuns)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// Latest returns the most recently generated run, or domain.ErrNoForecast.
func (s *Store) Latest(ctx context.Context) (domain.ForecastRun, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM forecast_runs ORDER BY generated_at DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ForecastRun{}, domain.ErrNoForecast
	}
	if err != nil {
		return domain.ForecastRun{}, fmt.Errorf("query latest run: %w", err)
	}

	var run domain.ForecastRun
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return domain.ForecastRun{}, fmt.Errorf("decode latest run: %w", err)
	}
	return run, nil
}

// History lists up to limit stored runs, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, generated_at, last_observed, rainy_hours, rainy_days
		 FROM forecast_runs ORDER BY generated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RunSummary, 0)
	for rows.Next() {
		var (
			r  domain.RunSummary
			ns int64
		)
		if err := rows.Scan(&r.ID, &ns, &r.LastObserved, &r.RainyHours, &r.RainyDays); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		r.GeneratedAt = time.Unix(0, ns).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
