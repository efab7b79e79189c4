package frameworkdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/models/store"
	"github.com/de-tools/compliance-atlas/pkg/services/registry"
	"github.com/rs/zerolog"
)

const frameworksDDL = `
CREATE TABLE IF NOT EXISTS frameworks (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	version    TEXT NOT NULL,
	status     TEXT NOT NULL,
	definition TEXT NOT NULL
)`

// Store serves framework definitions from a SQL database through the
// same interface the in-memory registry implements. Rows hold the
// original YAML documents; validation happens on the write path so a
// bad definition never reaches evaluation.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &Store{db: db}, nil
}

// Migrate creates the backing table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, frameworksDDL); err != nil {
		return fmt.Errorf("create frameworks table: %w", err)
	}
	return nil
}

// SaveFramework parses, validates and upserts one definition document.
// The parsed framework is returned so callers can report what they
// imported.
func (s *Store) SaveFramework(ctx context.Context, definition []byte) (domain.Framework, error) {
	framework, err := registry.ParseFramework(definition)
	if err != nil {
		return domain.Framework{}, fmt.Errorf("parse framework definition: %w", err)
	}
	if err := registry.Validate(framework); err != nil {
		return domain.Framework{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO frameworks (id, name, version, status, definition)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET name = $2, version = $3, status = $4, definition = $5`,
		framework.ID, framework.Name, framework.Version, string(framework.Status), string(definition))
	if err != nil {
		return domain.Framework{}, fmt.Errorf("save framework %s: %w", framework.ID, err)
	}
	return framework, nil
}

func (s *Store) GetFramework(ctx context.Context, id string) (domain.Framework, error) {
	var definition []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT definition FROM frameworks WHERE id = $1`, id).Scan(&definition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Framework{}, fmt.Errorf("framework %q: %w", id, domain.ErrFrameworkNotFound)
		}
		return domain.Framework{}, fmt.Errorf("framework query failed: %w", err)
	}

	framework, err := registry.ParseFramework(definition)
	if err != nil {
		return domain.Framework{}, fmt.Errorf("stored framework %q is corrupt: %w", id, err)
	}
	return framework, nil
}

func (s *Store) ListFrameworks(ctx context.Context, filter registry.Filter) ([]domain.Framework, error) {
	logger := zerolog.Ctx(ctx)

	query := `SELECT id, name, version, status, definition FROM frameworks ORDER BY id`
	var args []any
	if filter.Status != "" {
		query = `SELECT id, name, version, status, definition FROM frameworks WHERE status = $1 ORDER BY id`
		args = append(args, string(filter.Status))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("framework list query failed: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close framework query rows")
		}
	}(rows)

	frameworks := make([]domain.Framework, 0)
	for rows.Next() {
		var record store.FrameworkRecord
		if err := rows.Scan(&record.ID, &record.Name, &record.Version, &record.Status, &record.Definition); err != nil {
			return nil, fmt.Errorf("scan framework row: %w", err)
		}

		framework, err := registry.ParseFramework(record.Definition)
		if err != nil {
			return nil, fmt.Errorf("stored framework %q is corrupt: %w", record.ID, err)
		}
		frameworks = append(frameworks, framework)
	}
	return frameworks, rows.Err()
}
