package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calmate/internal/mcpauth"
)

const (
	// DefaultMCPAddr is the default address of the streamable HTTP MCP transport.
	DefaultMCPAddr = ":8080"

	// DefaultMCPPath is the MCP endpoint path.
	DefaultMCPPath = "/mcp"
)

// MCPHTTPServerConfig configures the streamable HTTP MCP transport.
type MCPHTTPServerConfig struct {
	Addr string

	// Path of the MCP endpoint. Defaults to DefaultMCPPath.
	Path string

	// DisableStreaming answers every request with a single JSON response.
	DisableStreaming bool

	// Auth authenticates MCP callers. Required.
	Auth *mcpauth.Server
}

// MCPHTTPServer serves the MCP tools over streamable HTTP behind OAuth 2.1.
type MCPHTTPServer struct {
	mcpServer        *mcpserver.MCPServer
	auth             *mcpauth.Server
	addr             string
	path             string
	disableStreaming bool

	mu         sync.Mutex
	httpServer *http.Server
}

// NewMCPHTTPServer creates the transport. The issuer must be HTTPS unless it
// points at a loopback address.
func NewMCPHTTPServer(mcpServer *mcpserver.MCPServer, config MCPHTTPServerConfig) (*MCPHTTPServer, error) {
	if mcpServer == nil {
		return nil, fmt.Errorf("MCP server is required")
	}
	if config.Auth == nil {
		return nil, fmt.Errorf("OAuth server is required for the HTTP transport")
	}
	if err := validateHTTPSRequirement(config.Auth.Issuer()); err != nil {
		return nil, err
	}
	if config.Addr == "" {
		config.Addr = DefaultMCPAddr
	}
	if config.Path == "" {
		config.Path = DefaultMCPPath
	}

	return &MCPHTTPServer{
		mcpServer:        mcpServer,
		auth:             config.Auth,
		addr:             config.Addr,
		path:             config.Path,
		disableStreaming: config.DisableStreaming,
	}, nil
}

// Handler returns the OAuth endpoints and the protected MCP endpoint.
func (s *MCPHTTPServer) Handler() http.Handler {
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(s.path),
		mcpserver.WithDisableStreaming(s.disableStreaming),
	)
	return s.auth.Handler(s.path, streamable)
}

// Start serves until Shutdown is called.
func (s *MCPHTTPServer) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultAPIReadHeaderTimeout,
		WriteTimeout:      DefaultAPIWriteTimeout,
		IdleTimeout:       DefaultAPIIdleTimeout,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	slog.Info("starting MCP HTTP server", "addr", s.addr, "path", s.path, "issuer", s.auth.Issuer())
	return httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server and then the OAuth server.
func (s *MCPHTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	var httpErr error
	if httpServer != nil {
		httpErr = httpServer.Shutdown(ctx)
	}
	if err := s.auth.Shutdown(ctx); err != nil && httpErr == nil {
		return err
	}
	return httpErr
}

// Addr returns the listen address.
func (s *MCPHTTPServer) Addr() string {
	return s.addr
}
