package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/keydesk/keydesk/internal/service"
)

// MCPServer wraps the mcp-go server with keydesk tool and resource
// registrations. It exposes the key registry and API key administration to
// AI agents.
type MCPServer struct {
	registry *service.RegistryService
	keys     *service.APIKeyService
	logger   *slog.Logger
	server   *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all keydesk tools and
// resources. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(registry *service.RegistryService, keys *service.APIKeyService, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		registry: registry,
		keys:     keys,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"keydesk",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio blocks serving MCP on stdin/stdout.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("mcp listening", "transport", "stdio")
	return server.ServeStdio(s.server)
}

// ServeHTTP blocks serving streamable HTTP on addr. The endpoint is
// unauthenticated; callers bind it to loopback.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("mcp listening", "transport", "http", "addr", addr)
	return httpServer.Start(addr)
}

// toolKind classifies a tool's effect on the store for client hints.
type toolKind int

const (
	readOnlyTool toolKind = iota
	// createTool adds a new record on every call.
	createTool
	// idempotentTool writes, but repeating a call changes nothing.
	idempotentTool
	// destructiveTool removes capability and is safe to repeat.
	destructiveTool
)

func annotate(kind toolKind) mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:    boolPtr(kind == readOnlyTool),
		DestructiveHint: boolPtr(kind == destructiveTool),
		IdempotentHint:  boolPtr(kind != createTool),
		OpenWorldHint:   boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
