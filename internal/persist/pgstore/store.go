// Package pgstore persists outfit state in postgres as a single JSONB
// document row, for hosts that share outfit state across machines.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wardrobe/internal/outfit"
)

type store struct {
	pool *pgxpool.Pool
}

// New connects to postgres and ensures the schema.
func New(ctx context.Context, dsn string) (outfit.Persistence, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	ddl := `
	CREATE TABLE IF NOT EXISTS outfit_state (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		document   JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &store{pool: pool}, nil
}

func (s *store) Load(ctx context.Context) (*outfit.State, error) {
	var document []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM outfit_state WHERE id = 1`).Scan(&document)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading outfit state: %w", err)
	}
	var state outfit.State
	if err := json.Unmarshal(document, &state); err != nil {
		return nil, fmt.Errorf("decoding outfit state: %w", err)
	}
	return &state, nil
}

func (s *store) Save(ctx context.Context, state *outfit.State) error {
	document, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding outfit state: %w", err)
	}
	query := `
	INSERT INTO outfit_state (id, document, updated_at)
	VALUES (1, $1, now())
	ON CONFLICT (id) DO UPDATE SET
		document = excluded.document,
		updated_at = excluded.updated_at`
	if _, err := s.pool.Exec(ctx, query, document); err != nil {
		return fmt.Errorf("saving outfit state: %w", err)
	}
	return nil
}

func (s *store) Flush(ctx context.Context) error { return nil }

func (s *store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}
