package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project    string           `yaml:"project"`
	Version    int              `yaml:"version"`
	Storage    StorageConfig    `yaml:"storage"`
	AutoUpdate AutoUpdateConfig `yaml:"auto_update"`
	Macro      MacroConfig      `yaml:"macro"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
}

type AutoUpdateConfig struct {
	Enabled                bool          `yaml:"enabled"`
	MaxRetries             int           `yaml:"max_retries"`
	RetryDelay             time.Duration `yaml:"retry_delay"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
	ConfidenceThreshold    float64       `yaml:"confidence_threshold"`
}

type MacroConfig struct {
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	CacheSize int           `yaml:"cache_size"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}

	switch cfg.Storage.Backend {
	case "file":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage path is required for the file backend")
		}
	case "sqlite", "postgres":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("storage dsn is required for the %s backend", cfg.Storage.Backend)
		}
	case "":
		return fmt.Errorf("storage backend is required")
	default:
		return fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}

	if cfg.AutoUpdate.MaxRetries < 0 {
		return fmt.Errorf("auto_update max_retries must not be negative")
	}
	if cfg.AutoUpdate.RetryDelay < 0 {
		return fmt.Errorf("auto_update retry_delay must not be negative")
	}
	if cfg.AutoUpdate.ConfidenceThreshold < 0 || cfg.AutoUpdate.ConfidenceThreshold > 1 {
		return fmt.Errorf("auto_update confidence_threshold must be within [0, 1]")
	}
	if cfg.Macro.CacheSize < 0 {
		return fmt.Errorf("macro cache_size must not be negative")
	}
	if cfg.Macro.CacheTTL < 0 {
		return fmt.Errorf("macro cache_ttl must not be negative")
	}

	return nil
}
