package resultdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/models/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// querier is the subset of pgxpool.Pool the store touches. Tests swap in
// an in-memory fake.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewPool creates a pgx connection pool for the result store.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	zerolog.Ctx(ctx).Info().Msg("result store connection established")
	return pool, nil
}

const analysesDDL = `
CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// Store persists finished analysis results in Postgres. Rows are
// immutable: each analysis ID is written at most once.
type Store struct {
	db querier
}

func NewStore(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	return &Store{db: pool}, nil
}

// Migrate creates the backing table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, analysesDDL); err != nil {
		return fmt.Errorf("create analyses table: %w", err)
	}
	return nil
}

// Store writes one result. A replay of an already stored ID reports
// ErrDuplicateAnalysis and leaves the existing row untouched.
func (s *Store) Store(ctx context.Context, result domain.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode analysis %s: %w", result.ID, err)
	}

	tag, err := s.db.Exec(ctx,
		`INSERT INTO analyses (id, status, payload, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		result.ID, string(result.Status), payload, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("store analysis %s: %w", result.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis %s: %w", result.ID, domain.ErrDuplicateAnalysis)
	}
	return nil
}

// Get loads one stored result by analysis ID.
func (s *Store) Get(ctx context.Context, id string) (domain.AnalysisResult, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, `SELECT payload FROM analyses WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AnalysisResult{}, fmt.Errorf("analysis %q: %w", id, domain.ErrAnalysisNotFound)
		}
		return domain.AnalysisResult{}, fmt.Errorf("load analysis %q: %w", id, err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode analysis %q: %w", id, err)
	}
	return result, nil
}

// List returns index entries for stored analyses, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]store.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, status, created_at FROM analyses ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var records []store.AnalysisRecord
	for rows.Next() {
		var record store.AnalysisRecord
		if err := rows.Scan(&record.ID, &record.Status, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
