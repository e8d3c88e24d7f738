// Package mcpserver exposes the delegate tool over MCP. Stdio is the default
// transport; a streamable HTTP endpoint is available for clients that prefer
// it, mirroring how editors attach to local tool servers.
package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mark3labs/handoff/internal/logger"
	"github.com/mark3labs/handoff/internal/orchestrator"
)

// Server manages the MCP server that exposes the delegate tool.
type Server struct {
	orch       *orchestrator.Orchestrator
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	stdServer  *http.Server // Standard HTTP server that uses the listener
	port       int
	mu         sync.Mutex
}

// New creates a new MCP server instance backed by the given orchestrator.
// The server is not started until ServeStdio() or StartHTTP() is called.
func New(orch *orchestrator.Orchestrator, version string) *Server {
	s := &Server{orch: orch}
	s.mcpServer = server.NewMCPServer(
		"handoff",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// ServeStdio serves MCP over stdin/stdout. Blocks until the client
// disconnects or the process is signalled.
func (s *Server) ServeStdio() error {
	logger.Info("Serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}

// StartHTTP starts the MCP HTTP server on the given port (0 picks a random
// available port). Returns the bound port or an error if startup fails.
func (s *Server) StartHTTP(port int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer != nil {
		return 0, fmt.Errorf("server already started")
	}

	// Open the listener first and hand it to Serve directly, so there is no
	// window where the advertised port is unbound.
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return 0, fmt.Errorf("failed to listen: %w", err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mcpHandler := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateLess(true),
	)
	mux.Handle("/mcp", mcpHandler)

	s.stdServer = &http.Server{
		Handler: mux,
	}
	s.httpServer = mcpHandler

	logger.Debug("Starting MCP server on port %d", s.port)

	// Capture stdServer reference for goroutine to avoid race with Stop()
	stdServer := s.stdServer
	go func() {
		if err := stdServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP server error: %v", err)
		}
	}()

	logger.Debug("MCP server ready on port %d", s.port)
	return s.port, nil
}

// Stop stops the MCP HTTP server and cleans up resources.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer == nil {
		return nil // Already stopped
	}

	logger.Debug("Stopping MCP server")
	if err := s.stdServer.Shutdown(context.Background()); err != nil {
		logger.Warn("Error stopping MCP server: %v", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	s.httpServer = nil
	s.stdServer = nil
	logger.Debug("MCP server stopped")
	return nil
}

// URL returns the HTTP URL for the MCP server endpoint.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://localhost:%d/mcp", s.port)
}
