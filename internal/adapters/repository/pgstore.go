package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/okian/scout/internal/domain/snapshot"
	"github.com/okian/scout/pkg/metrics"
)

const (
	defaultMaxOpenConns = 10
	pingTimeout         = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS match_snapshots (
	key              TEXT PRIMARY KEY,
	match_type       TEXT NOT NULL DEFAULT '',
	competition_type TEXT NOT NULL DEFAULT '',
	match_number     INTEGER NOT NULL DEFAULT 0,
	red_score        INTEGER NOT NULL DEFAULT 0,
	blue_score       INTEGER NOT NULL DEFAULT 0,
	saved_at         TIMESTAMPTZ NOT NULL,
	snapshot         JSONB NOT NULL
)`

const upsert = `
INSERT INTO match_snapshots
	(key, match_type, competition_type, match_number, red_score, blue_score, saved_at, snapshot)
VALUES
	(:key, :match_type, :competition_type, :match_number, :red_score, :blue_score, :saved_at, :snapshot)
ON CONFLICT (key) DO UPDATE SET
	match_type = EXCLUDED.match_type,
	competition_type = EXCLUDED.competition_type,
	match_number = EXCLUDED.match_number,
	red_score = EXCLUDED.red_score,
	blue_score = EXCLUDED.blue_score,
	saved_at = EXCLUDED.saved_at,
	snapshot = EXCLUDED.snapshot`

type pgRow struct {
	Summary
	Snapshot string `db:"snapshot"`
}

// PostgresSnapshotStore keeps snapshots as JSONB rows.
type PostgresSnapshotStore struct {
	db *sqlx.DB
}

// OpenPostgres connects to dsn through the pgx driver and creates the
// snapshot table when missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSnapshotStore, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	conn := stdlib.OpenDB(*cfg)
	conn.SetMaxOpenConns(defaultMaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresSnapshotStore{db: sqlx.NewDb(conn, "pgx")}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}
	return s, nil
}

// Save implements SnapshotStore.
func (s *PostgresSnapshotStore) Save(ctx context.Context, sum Summary, rec *snapshot.Record) error {
	if sum.Key == "" {
		return ErrInvalidKey
	}
	start := time.Now()
	defer s.observe("save", start)

	data, err := snapshot.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.NamedExecContext(ctx, upsert, pgRow{Summary: sum, Snapshot: string(data)}); err != nil {
		metrics.RecordErrorByComponent("repository", "postgres_save")
		return fmt.Errorf("save snapshot %s: %w", sum.Key, err)
	}
	return nil
}

// Load implements SnapshotStore.
func (s *PostgresSnapshotStore) Load(ctx context.Context, key string) (*snapshot.Record, error) {
	start := time.Now()
	defer s.observe("load", start)

	var data string
	err := s.db.GetContext(ctx, &data, `SELECT snapshot::text FROM match_snapshots WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
	}
	if err != nil {
		metrics.RecordErrorByComponent("repository", "postgres_load")
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return snapshot.Unmarshal([]byte(data))
}

// List implements SnapshotStore, newest first.
func (s *PostgresSnapshotStore) List(ctx context.Context) ([]Summary, error) {
	start := time.Now()
	defer s.observe("list", start)

	var out []Summary
	err := s.db.SelectContext(ctx, &out, `
		SELECT key, match_type, competition_type, match_number, red_score, blue_score, saved_at
		FROM match_snapshots ORDER BY saved_at DESC, key ASC`)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "postgres_list")
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// Delete implements SnapshotStore.
func (s *PostgresSnapshotStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM match_snapshots WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
	}
	return nil
}

// Close implements SnapshotStore.
func (s *PostgresSnapshotStore) Close() error {
	return s.db.Close()
}

func (s *PostgresSnapshotStore) observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
