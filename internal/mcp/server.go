// Package mcp exposes the outfit system to MCP clients: outfit reads and
// writes, preset management, macro resolution, and instance-id derivation.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"wardrobe/internal/macro"
	"wardrobe/internal/outfit"
)

type Server struct {
	store  *outfit.Store
	macros *macro.Engine
	logger *zap.Logger
	mcp    *sdk.Server
}

// NewServer wires the tool surface over the store. macros may be nil, in
// which case resolve_text reports an error instead of resolving.
func NewServer(store *outfit.Store, macros *macro.Engine, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		macros: macros,
		logger: logger,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "wardrobe",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
