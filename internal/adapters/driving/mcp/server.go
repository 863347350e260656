package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is the MCP server version reported to clients.
const Version = "0.1.0"

// shutdownTimeout bounds the HTTP drain after the context is cancelled.
const shutdownTimeout = 5 * time.Second

// Server exposes the codebase assistant over MCP.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a server with a tool per available port.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports}
	s.server = mcp.NewServer(
		&mcp.Implementation{Name: "codeassist", Version: Version},
		&mcp.ServerOptions{Instructions: s.instructions()},
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// instructions tells the client which tools to reach for.
func (s *Server) instructions() string {
	lines := []string{
		"codeassist answers from an indexed codebase.",
		"Use search_codebase to find the files relevant to a task before reading them.",
	}
	if s.ports.Query != nil {
		lines = append(lines, "Use ask for a short grounded answer with sources; scope documents searches uploaded documents instead.")
	}
	if s.ports.Generation != nil {
		lines = append(lines, "Use generate_code for proposed file changes as JSON; nothing is written to disk.")
	}
	return strings.Join(lines, "\n")
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp http: %w", err)
	}
	return nil
}
