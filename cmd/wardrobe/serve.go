package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wardrobe/internal/chat"
	"wardrobe/internal/config"
	"wardrobe/internal/macro"
	"wardrobe/internal/mcp"
	"wardrobe/internal/outfit"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
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

	// Every mutation schedules a save; the debounced writer coalesces
	// bursts into one write and the shutdown Flush forces the last one out.
	store.Subscribe(func(outfit.State) {
		if err := store.SaveState(ctx); err != nil {
			logger.Error("persisting outfit state", zap.Error(err))
		}
	})

	engine := macro.NewEngine(store, &serverSession{store: store},
		cfg.Macro.CacheSize, cfg.Macro.CacheTTL, logger)
	store.Subscribe(func(outfit.State) { engine.InvalidateAll() })

	server := mcp.NewServer(store, engine, version, logger)
	if err := server.Run(ctx, &sdk.StdioTransport{}); err != nil {
		return err
	}
	return store.Flush(ctx)
}

// serverSession backs macro resolution when no live chat host is
// attached: identity comes from the store's current context and display
// names pass through as ids.
type serverSession struct {
	store *outfit.Store
}

func (s *serverSession) Messages() []chat.Message { return nil }

func (s *serverSession) CharacterID() string {
	charID, _, _ := s.store.CurrentContext()
	return charID
}

func (s *serverSession) CharacterName() string { return s.CharacterID() }

func (s *serverSession) PersonaName() string { return "User" }

func (s *serverSession) ChatID() string {
	_, chatID, _ := s.store.CurrentContext()
	return chatID
}

func (s *serverSession) CharacterIDByName(name string) string { return name }
