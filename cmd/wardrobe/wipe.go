package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wardrobe/internal/config"
	"wardrobe/internal/outfit"
)

func wipeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Erase all outfit instances and presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to wipe without --yes")
			}
			return runWipe(cmd)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the wipe")
	return cmd
}

func runWipe(cmd *cobra.Command) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig("wardrobe.yaml")
	if err != nil {
		return err
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

	store.WipeAll()
	if err := store.SaveState(ctx); err != nil {
		return err
	}
	if err := store.Flush(ctx); err != nil {
		return err
	}

	cmd.Println("wardrobe state wiped")
	return nil
}
