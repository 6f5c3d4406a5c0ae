package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "test-project" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.Storage.Backend != "sqlite" {
			t.Fatalf("expected sqlite backend, got %q", cfg.Storage.Backend)
		}
		if !cfg.AutoUpdate.Enabled || cfg.AutoUpdate.MaxRetries != 3 {
			t.Fatalf("auto_update: %+v", cfg.AutoUpdate)
		}
		if cfg.Macro.CacheTTL != 5*time.Minute {
			t.Fatalf("macro cache_ttl: %v", cfg.Macro.CacheTTL)
		}
	})

	t.Run("missing project name", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\nstorage:\n  backend: file\n  path: ./state.json\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 2\nstorage:\n  backend: file\n  path: ./state.json\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing backend", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstorage:\n  backend: redis\n  dsn: localhost\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("file backend requires a path", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstorage:\n  backend: file\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("sqlite backend requires a dsn", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstorage:\n  backend: sqlite\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("confidence threshold bounds", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstorage:\n  backend: file\n  path: ./state.json\nauto_update:\n  confidence_threshold: 1.5\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, "project: [\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
