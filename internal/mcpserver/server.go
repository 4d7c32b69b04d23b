package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/paulofranca-ai/canaldarkgen/internal/voice"
)

// Config holds server configuration.
type Config struct {
	Port    int
	Version string
}

// Server exposes idea, script and voice lookups as MCP tools.
type Server struct {
	cfg      Config
	mcp      *server.MCPServer
	http     *server.StreamableHTTPServer
	handlers *Handlers
	log      *slog.Logger
}

// New creates and configures the MCP server.
func New(cfg Config, generators GeneratorFunc, voices voice.Directory, logger *slog.Logger) (*Server, error) {
	if generators == nil {
		return nil, errors.New("mcpserver: no text service configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	handlers := NewHandlers(generators, voices, logger)

	mcpServer := server.NewMCPServer(
		"canaldarkgen",
		cfg.Version,
		server.WithToolCapabilities(true),
	)

	tools := ToolDefs()
	mcpServer.AddTool(tools[0], handlers.HandleGenerateIdeas)
	mcpServer.AddTool(tools[1], handlers.HandleGenerateScript)
	mcpServer.AddTool(tools[2], handlers.HandleListVoices)

	return &Server{
		cfg:      cfg,
		mcp:      mcpServer,
		http:     server.NewStreamableHTTPServer(mcpServer, server.WithStateLess(true)),
		handlers: handlers,
		log:      logger,
	}, nil
}

// Start runs the HTTP MCP server until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("Starting MCP server", "addr", addr)
	err := s.http.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
