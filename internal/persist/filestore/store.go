// Package filestore persists outfit state as a single pretty-printed JSON
// document on disk.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wardrobe/internal/outfit"
)

type store struct {
	path string
}

// New returns a file-backed persistence collaborator. A leading ~/ in
// path expands to the user's home directory; parent directories are
// created as needed.
func New(path string) (outfit.Persistence, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}
	return &store{path: path}, nil
}

// Load reads the state document. A missing file is not an error; it
// returns a nil state so the caller starts empty.
func (s *store) Load(ctx context.Context) (*outfit.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading outfit state: %w", err)
	}
	var state outfit.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding outfit state %s: %w", s.path, err)
	}
	return &state, nil
}

// Save writes the document atomically: temp file in the same directory,
// then rename over the target.
func (s *store) Save(ctx context.Context, state *outfit.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding outfit state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing outfit state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing outfit state: %w", err)
	}
	return nil
}

// Flush is a no-op; Save is synchronous.
func (s *store) Flush(ctx context.Context) error { return nil }

func (s *store) Close(ctx context.Context) error { return nil }
