package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wardrobe/internal/config"
	"wardrobe/internal/outfit"
	"wardrobe/internal/persist"
	"wardrobe/internal/persist/filestore"
	"wardrobe/internal/persist/pgstore"
	"wardrobe/internal/persist/sqlitestore"
)

// openPersistence builds the configured backend and wraps it in the
// debounced writer so bursts of outfit mutations coalesce to one write.
func openPersistence(ctx context.Context, cfg *config.ProjectConfig, logger *zap.Logger) (outfit.Persistence, error) {
	inner, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return persist.NewDebounced(inner, persist.DefaultDebounce, logger), nil
}

func openBackend(ctx context.Context, cfg *config.ProjectConfig) (outfit.Persistence, error) {
	switch cfg.Storage.Backend {
	case "file":
		return filestore.New(cfg.Storage.Path)
	case "sqlite":
		return sqlitestore.New(ctx, cfg.Storage.DSN)
	case "postgres":
		return pgstore.New(ctx, cfg.Storage.DSN)
	}
	return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
}
