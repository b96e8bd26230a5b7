package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/calmate/internal/booking"
	"github.com/teemow/calmate/internal/chat"
	"github.com/teemow/calmate/internal/config"
	"github.com/teemow/calmate/internal/google"
	"github.com/teemow/calmate/internal/instrumentation"
)

// Responder answers a chat transcript. *chat.Dispatcher implements it.
type Responder interface {
	Respond(ctx context.Context, transcript []chat.Message) (string, error)
}

// Options holds the dependencies of a ServerContext.
type Options struct {
	Config  *config.Config
	Booking *booking.Service

	// Optional
	Tokens          *google.FileTokenStore
	OAuthConfig     *oauth2.Config
	Instrumentation *instrumentation.Provider
	Metrics         *instrumentation.Metrics // defaults to Instrumentation.Metrics()
	AuditLogger     *instrumentation.AuditLogger
	Logger          *slog.Logger
}

// ServerContext holds the shared state of the HTTP API and the MCP server.
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	config      *config.Config
	booking     *booking.Service
	tokens      *google.FileTokenStore
	oauthConfig *oauth2.Config
	provider    *instrumentation.Provider
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger
	chat        Responder
	mu          sync.RWMutex
	shutdown    bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Booking == nil {
		return nil, fmt.Errorf("booking service is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Metrics == nil && opts.Instrumentation != nil {
		opts.Metrics = opts.Instrumentation.Metrics()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		config:      opts.Config,
		booking:     opts.Booking,
		tokens:      opts.Tokens,
		oauthConfig: opts.OAuthConfig,
		provider:    opts.Instrumentation,
		metrics:     opts.Metrics,
		auditLogger: opts.AuditLogger,
		logger:      opts.Logger,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the application configuration
func (sc *ServerContext) Config() *config.Config {
	return sc.config
}

// Booking returns the scheduling service
func (sc *ServerContext) Booking() *booking.Service {
	return sc.booking
}

// Tokens returns the per-user token store, or nil when user sessions are disabled
func (sc *ServerContext) Tokens() *google.FileTokenStore {
	return sc.tokens
}

// OAuthConfig returns the Google consent flow configuration, or nil when
// no client secrets are configured
func (sc *ServerContext) OAuthConfig() *oauth2.Config {
	return sc.oauthConfig
}

// Metrics returns the metrics recorder. The result is nil when
// instrumentation is not configured; Metrics methods accept a nil receiver.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Instrumentation returns the instrumentation provider, if any
func (sc *ServerContext) Instrumentation() *instrumentation.Provider {
	return sc.provider
}

// AuditLogger returns the audit logger, if any
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the root logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Chat returns the chat responder, or nil when no LLM is configured
func (sc *ServerContext) Chat() Responder {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.chat
}

// SetChat sets the chat responder. The dispatcher is built from tools bound
// to this context, so it is attached after construction.
func (sc *ServerContext) SetChat(r Responder) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.chat = r
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
