package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/giantswarm/mcp-oauth/storage/memory"
	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calmate/internal/config"
	"github.com/teemow/calmate/internal/google"
	"github.com/teemow/calmate/internal/instrumentation"
	"github.com/teemow/calmate/internal/mcpauth"
	"github.com/teemow/calmate/internal/resources"
	"github.com/teemow/calmate/internal/server"
	"github.com/teemow/calmate/internal/tools/scheduling_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// mcpOptions holds the flags of the mcp command.
type mcpOptions struct {
	transport               string
	httpAddr                string
	baseURL                 string
	disableStreaming        bool
	allowPublicRegistration bool
	registrationToken       string
}

func newMCPCmd() *cobra.Command {
	opts := mcpOptions{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the scheduling tools over MCP",
		Long: `Start a Model Context Protocol server exposing findOpenSlots,
checkAvailability, bookEvent and bookFromText, plus the calmate://policy and
calmate://accounts resources.

Transports:
  stdio            (default) stdin/stdout. Each tool accepts an optional
                   user_email selecting a connected Google account; without it
                   the service-account calendar is used. Logs go to stderr.
  streamable-http  HTTP endpoint /mcp protected by OAuth 2.1. MCP clients sign
                   in with Google and every tool acts on the caller's own
                   calendar. Needs GOOGLE_CLIENT_SECRETS_FILE, and
                   <base-url>/oauth/callback registered as a redirect URI.`,
		Example: `  calmate mcp
  calmate mcp --transport streamable-http --base-url https://calmate.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("base-url") {
				if env := os.Getenv("MCP_BASE_URL"); env != "" {
					opts.baseURL = env
				}
			}
			if !cmd.Flags().Changed("registration-token") {
				opts.registrationToken = os.Getenv("MCP_REGISTRATION_TOKEN")
			}
			return runMCP(opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", server.DefaultMCPAddr, "Listen address of the streamable-http transport")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "Public URL of the streamable-http transport (OAuth issuer). Can also use MCP_BASE_URL env var.")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Answer streamable-http requests with single JSON responses")
	cmd.Flags().BoolVar(&opts.allowPublicRegistration, "allow-public-registration", false, "Let any MCP client register without a registration token")
	cmd.Flags().StringVar(&opts.registrationToken, "registration-token", "", "Bearer token required for client registration. Can also use MCP_REGISTRATION_TOKEN env var.")

	return cmd
}

func runMCP(opts mcpOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	switch opts.transport {
	case transportStdio:
		return runStdio(ctx, cfg)
	case transportStreamableHTTP:
		return runStreamableHTTP(ctx, cfg, opts)
	default:
		return fmt.Errorf("unsupported transport %q: use %s or %s", opts.transport, transportStdio, transportStreamableHTTP)
	}
}

func runStdio(ctx context.Context, cfg config.Config) error {
	a, err := newApp(ctx, cfg, appOptions{logOutput: os.Stderr, telemetry: true, surface: instrumentation.SurfaceMCPStdio})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	mcpSrv, err := newRegisteredMCPServer(a)
	if err != nil {
		return err
	}
	return runStdioServer(mcpSrv)
}

func runStreamableHTTP(ctx context.Context, cfg config.Config, opts mcpOptions) error {
	// Tokens from the MCP sign-in live in the OAuth store; the calendar
	// sessions read them from there before the token files.
	store := memory.New()
	files := google.NewFileTokenStore(cfg.TokensDir)

	a, err := newApp(ctx, cfg, appOptions{
		logOutput:  os.Stderr,
		telemetry:  true,
		userTokens: mcpauth.NewTokenProvider(store, files),
		surface:    instrumentation.SurfaceMCPStreamable,
	})
	if err != nil {
		store.Stop()
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.close(shutdownCtx)
	}()

	if a.sc.OAuthConfig() == nil {
		store.Stop()
		return fmt.Errorf("the %s transport needs Google client secrets (GOOGLE_CLIENT_SECRETS_FILE=%s)", transportStreamableHTTP, cfg.ClientSecretsFile)
	}

	auth, err := mcpauth.New(mcpauth.Config{
		BaseURL:                       opts.baseURL,
		OAuthConfig:                   a.sc.OAuthConfig(),
		Scopes:                        google.DefaultOAuthScopes,
		Store:                         store,
		AllowPublicClientRegistration: opts.allowPublicRegistration,
		RegistrationAccessToken:       opts.registrationToken,
		Logger:                        a.logger,
	})
	if err != nil {
		store.Stop()
		return fmt.Errorf("failed to create OAuth server: %w", err)
	}

	mcpSrv, err := newRegisteredMCPServer(a)
	if err != nil {
		_ = auth.Shutdown(context.Background())
		return err
	}

	httpSrv, err := server.NewMCPHTTPServer(mcpSrv, server.MCPHTTPServerConfig{
		Addr:             opts.httpAddr,
		DisableStreaming: opts.disableStreaming,
		Auth:             auth,
	})
	if err != nil {
		_ = auth.Shutdown(context.Background())
		return fmt.Errorf("failed to create MCP HTTP server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	a.logger.Info("MCP HTTP server started",
		"addr", httpSrv.Addr(),
		"endpoint", auth.Issuer()+server.DefaultMCPPath)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("MCP HTTP server stopped: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("error during MCP HTTP server shutdown", "error", err)
	}
	return runErr
}

// newRegisteredMCPServer creates the MCP server with every tool and resource.
func newRegisteredMCPServer(a *app) (*mcpserver.MCPServer, error) {
	mcpSrv := newMCPServer()
	if err := scheduling_tools.RegisterSchedulingTools(mcpSrv, a.sc); err != nil {
		return nil, fmt.Errorf("failed to register scheduling tools: %w", err)
	}
	if err := resources.RegisterResources(mcpSrv, a.sc); err != nil {
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}
	return mcpSrv, nil
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("calmate", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}
