package stats

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const insertMatchSQL = `
INSERT INTO matches (id, game_id, preset, reason, winner, score_left, score_right,
	hits_left, hits_right, ticks, players, started_at, ended_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO NOTHING`

// execer is the part of *pgxpool.Pool the sink uses.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink inserts each summary into the matches table
type PostgresSink struct {
	db    execer
	close func()
}

// NewPostgresSink migrates databaseURL to the latest schema and opens a pool.
func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	if err := Migrate(databaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresSink{db: pool, close: pool.Close}, nil
}

// Migrate applies the embedded migrations.
func Migrate(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Record implements Sink.
func (p *PostgresSink) Record(ctx context.Context, summary *MatchSummary) error {
	players, err := json.Marshal(summary.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}

	_, err = p.db.Exec(ctx, insertMatchSQL,
		summary.ID, summary.GameID, summary.Preset, summary.Reason, summary.Winner,
		summary.Score.Left, summary.Score.Right,
		summary.Hits.Left, summary.Hits.Right,
		int64(summary.Ticks), players,
		summary.StartedAt, summary.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *PostgresSink) Close() {
	if p.close != nil {
		p.close()
	}
}
