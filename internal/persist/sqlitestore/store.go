// Package sqlitestore persists outfit state in an embedded sqlite
// database as a single JSON document row.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"wardrobe/internal/outfit"
)

type store struct {
	db *sql.DB
}

// New opens (or creates) the database addressed by a sqlite:// DSN and
// ensures the schema.
func New(ctx context.Context, dsn string) (outfit.Persistence, error) {
	driverDSN, err := parseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing sqlite DSN: %w", err)
	}

	db, err := sql.Open("sqlite", driverDSN)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA journal_mode = WAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	ddl := `
	CREATE TABLE IF NOT EXISTS outfit_state (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		document   TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	);`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &store{db: db}, nil
}

func (s *store) Load(ctx context.Context) (*outfit.State, error) {
	var document []byte
	err := s.db.QueryRowContext(ctx, `SELECT document FROM outfit_state WHERE id = 1`).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	VALUES (1, ?, datetime('now'))
	ON CONFLICT (id) DO UPDATE SET
		document = excluded.document,
		updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, string(document)); err != nil {
		return fmt.Errorf("saving outfit state: %w", err)
	}
	return nil
}

func (s *store) Flush(ctx context.Context) error { return nil }

func (s *store) Close(ctx context.Context) error { return s.db.Close() }

func parseDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "sqlite://") {
		return "", fmt.Errorf("invalid sqlite DSN scheme, expected sqlite://")
	}

	rest := strings.TrimPrefix(dsn, "sqlite://")

	if rest == ":memory:" {
		return ":memory:", nil
	}

	if strings.HasPrefix(rest, "/") || strings.HasPrefix(rest, "./") {
		return rest, nil
	}

	unescaped, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("unescaping path: %w", err)
	}
	rest = unescaped

	if !filepath.IsAbs(rest) {
		rest = "./" + rest
	}

	return rest, nil
}
