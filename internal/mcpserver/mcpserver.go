// Package mcpserver exposes C&K analysis as Model Context Protocol tools.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/ckmetrics/pkg/config"
	"go.uber.org/zap"
)

// Server wraps the MCP server and registers the ckmetrics tools.
type Server struct {
	server *mcp.Server
	config *config.Config
	logger *zap.Logger
}

// NewServer creates a new MCP server with all tools and prompts registered.
// A nil config uses the defaults; a nil logger discards output.
func NewServer(version string, cfg *config.Config, logger *zap.Logger) *Server {
	if version == "" {
		version = "dev"
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "ckmetrics",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, config: cfg, logger: logger}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_ck",
		Description: describeCK(),
	}, s.handleAnalyzeCK)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_ck_history",
		Description: describeHistory(),
	}, s.handleAnalyzeHistory)
}
