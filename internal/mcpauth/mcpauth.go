package mcpauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	oauth "github.com/giantswarm/mcp-oauth"
	googleprovider "github.com/giantswarm/mcp-oauth/providers/google"
	oauthserver "github.com/giantswarm/mcp-oauth/server"
	"github.com/giantswarm/mcp-oauth/storage/memory"
	"golang.org/x/oauth2"
)

// CallbackPath receives the Google redirect of the MCP sign-in.
const CallbackPath = "/oauth/callback"

// Config configures the authorization server.
type Config struct {
	// BaseURL is the public URL of the MCP HTTP server. It is the issuer and
	// the base of the Google redirect URL.
	BaseURL string

	// OAuthConfig carries the Google client credentials (client_secret.json).
	OAuthConfig *oauth2.Config

	// Scopes requested from Google. Defaults to OAuthConfig.Scopes.
	Scopes []string

	// Store keeps clients, flows and tokens. A new in-memory store is used
	// when nil.
	Store *memory.Store

	// AllowPublicClientRegistration lets any MCP client register itself.
	AllowPublicClientRegistration bool

	// RegistrationAccessToken guards client registration when public
	// registration is disabled.
	RegistrationAccessToken string

	Logger *slog.Logger
}

// Server is the mcp-oauth authorization server in front of /mcp.
type Server struct {
	oauth   *oauth.Server
	handler *oauth.Handler
	store   *memory.Store
	logger  *slog.Logger
}

// New creates the authorization server with Google as identity provider.
func New(cfg Config) (*Server, error) {
	if cfg.OAuthConfig == nil {
		return nil, fmt.Errorf("google client credentials are required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = cfg.OAuthConfig.Scopes
	}

	provider, err := googleprovider.NewProvider(&googleprovider.Config{
		ClientID:     cfg.OAuthConfig.ClientID,
		ClientSecret: cfg.OAuthConfig.ClientSecret,
		RedirectURL:  baseURL + CallbackPath,
		Scopes:       scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google provider: %w", err)
	}

	store := cfg.Store
	if store == nil {
		store = memory.New()
	}

	srv, err := oauth.NewServer(provider, store, store, store, &oauth.ServerConfig{
		Issuer:                        baseURL,
		AllowPublicClientRegistration: cfg.AllowPublicClientRegistration,
		RegistrationAccessToken:       cfg.RegistrationAccessToken,
	}, logger)
	if err != nil {
		if cfg.Store == nil {
			store.Stop()
		}
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	return &Server{
		oauth:   srv,
		handler: oauth.NewHandler(srv, logger),
		store:   store,
		logger:  logger,
	}, nil
}

// Issuer returns the issuer URL.
func (s *Server) Issuer() string {
	return s.oauth.Config.Issuer
}

// Store returns the token store shared with the calendar sessions.
func (s *Server) Store() *memory.Store {
	return s.store
}

// Handler mounts the OAuth endpoints and mcp, protected by bearer token
// validation, at mcpPath.
func (s *Server) Handler(mcpPath string, mcp http.Handler) http.Handler {
	mux := http.NewServeMux()
	h := s.handler

	h.RegisterProtectedResourceMetadataRoutes(mux, mcpPath)
	h.RegisterAuthorizationServerMetadataRoutes(mux)

	mux.HandleFunc(oauthserver.EndpointPathRegister, h.ServeClientRegistration)
	mux.HandleFunc(oauthserver.EndpointPathAuthorize, h.ServeAuthorization)
	mux.HandleFunc(oauthserver.EndpointPathToken, h.ServeToken)
	mux.HandleFunc(CallbackPath, h.ServeCallback)
	mux.HandleFunc(oauthserver.EndpointPathRevoke, h.ServeTokenRevocation)
	mux.HandleFunc(oauthserver.EndpointPathIntrospect, h.ServeTokenIntrospection)

	mux.Handle(mcpPath, h.ValidateToken(mcp))
	return mux
}

// Shutdown stops the background workers and the store.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.oauth.Shutdown(ctx)
}

// AccountFromContext returns the email of the caller authenticated by the
// bearer token middleware, or "".
func AccountFromContext(ctx context.Context) string {
	info, ok := oauth.UserInfoFromContext(ctx)
	if !ok || info == nil {
		return ""
	}
	return info.Email
}
