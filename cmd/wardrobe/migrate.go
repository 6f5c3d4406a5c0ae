package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wardrobe/internal/config"
	"wardrobe/internal/outfit"
)

func migrateCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import outfit state from a legacy variable export",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(from) == "" {
				return fmt.Errorf("--from is required")
			}
			return runMigrate(cmd, from)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Path to a JSON export of legacy global variables")
	return cmd
}

func runMigrate(cmd *cobra.Command, from string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig("wardrobe.yaml")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(from)
	if err != nil {
		return fmt.Errorf("reading legacy export: %w", err)
	}
	var vars map[string]string
	if err := json.Unmarshal(data, &vars); err != nil {
		return fmt.Errorf("parsing legacy export: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	persistence, err := openPersistence(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer persistence.Close(ctx)

	store := outfit.NewStore(persistence, logger)
	if err := store.LoadState(ctx); err != nil {
		return err
	}

	imported := outfit.ImportLegacy(store, vars)
	if err := store.SaveState(ctx); err != nil {
		return err
	}
	if err := store.Flush(ctx); err != nil {
		return err
	}

	cmd.Printf("imported %d outfit values\n", imported)
	return nil
}
