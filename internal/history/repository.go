// Package history records coach answers in postgres, or in memory when no
// database is configured.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/chess-coach/internal/domain"
)

var (
	ErrNotFound  = errors.New("analysis not found")
	ErrDuplicate = errors.New("analysis already exists")
)

const DefaultLimit = 20

type Repository interface {
	Insert(ctx context.Context, a *domain.Analysis) error
	Recent(ctx context.Context, limit int) ([]*domain.Analysis, error)
	Get(ctx context.Context, id string) (*domain.Analysis, error)
}

// Schema creates the analyses table; EnsureSchema runs it.
const Schema = `
CREATE TABLE IF NOT EXISTS coach_analyses (
	id                uuid PRIMARY KEY,
	kind              text        NOT NULL,
	fen               text        NOT NULL,
	player_color      text        NOT NULL DEFAULT '',
	move_uci          text        NOT NULL DEFAULT '',
	move_san          text        NOT NULL DEFAULT '',
	body              text        NOT NULL DEFAULT '',
	engine_latency_ms bigint      NOT NULL DEFAULT 0,
	created_at        timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS coach_analyses_created_at_idx ON coach_analyses (created_at DESC);`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// OpenPostgres opens and pings databaseURL with the pool settings the
// service runs with.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *repository) Insert(ctx context.Context, a *domain.Analysis) error {
	if a == nil {
		return fmt.Errorf("nil analysis payload")
	}
	const query = `
		INSERT INTO coach_analyses (
			id,
			kind,
			fen,
			player_color,
			move_uci,
			move_san,
			body,
			engine_latency_ms,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.Kind,
		a.FEN,
		a.PlayerColor,
		a.MoveUCI,
		a.MoveSAN,
		a.Text,
		a.EngineLatency.Milliseconds(),
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicate
	}
	return nil
}

const selectColumns = `
		SELECT
			id,
			kind,
			fen,
			player_color,
			move_uci,
			move_san,
			body,
			engine_latency_ms,
			created_at
		FROM coach_analyses`

func (r *repository) Recent(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := r.db.QueryContext(ctx, selectColumns+`
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select analyses: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Analysis, 0, limit)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id string) (*domain.Analysis, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+`
		WHERE id = $1`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select analysis: %w", err)
	}
	return a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*domain.Analysis, error) {
	var (
		a         domain.Analysis
		latencyMS sql.NullInt64
	)
	if err := s.Scan(
		&a.ID,
		&a.Kind,
		&a.FEN,
		&a.PlayerColor,
		&a.MoveUCI,
		&a.MoveSAN,
		&a.Text,
		&latencyMS,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	if latencyMS.Valid {
		a.EngineLatency = time.Duration(latencyMS.Int64) * time.Millisecond
	}
	return &a, nil
}
