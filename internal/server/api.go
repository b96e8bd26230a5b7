package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"google.golang.org/api/option"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/booking"
	"github.com/teemow/calmate/internal/chat"
)

const (
	// DefaultAPIAddr is the default address of the HTTP API.
	DefaultAPIAddr = ":8000"

	// DefaultAPIReadHeaderTimeout bounds reading request headers.
	DefaultAPIReadHeaderTimeout = 10 * time.Second

	// DefaultAPIWriteTimeout covers a chat request with two completions and
	// several calendar calls.
	DefaultAPIWriteTimeout = 120 * time.Second

	// DefaultAPIIdleTimeout is the keep-alive timeout.
	DefaultAPIIdleTimeout = 120 * time.Second

	// maxBodyBytes caps JSON request bodies.
	maxBodyBytes = 1 << 20
)

// APIServerConfig holds configuration for the HTTP API.
type APIServerConfig struct {
	Addr    string
	Version string

	// UserinfoOptions are passed to the consent flow. Used in tests.
	UserinfoOptions []option.ClientOption
}

// APIServer serves the scheduling endpoints, the Google consent flow and the
// health checks.
type APIServer struct {
	sc       *ServerContext
	addr     string
	engine   *gin.Engine
	health   *HealthChecker
	validate *validator.Validate
	logger   *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
}

// NewAPIServer creates the API server and its routes.
func NewAPIServer(sc *ServerContext, config APIServerConfig) (*APIServer, error) {
	if sc == nil {
		return nil, fmt.Errorf("server context is required")
	}
	if config.Addr == "" {
		config.Addr = DefaultAPIAddr
	}

	s := &APIServer{
		sc:       sc,
		addr:     config.Addr,
		engine:   gin.New(),
		health:   NewHealthChecker(sc, config.Version),
		validate: booking.NewValidator(),
		logger:   sc.Logger(),
	}

	s.engine.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		corsMiddleware(),
		requestLogger(s.logger),
		metricsMiddleware(sc.Metrics()),
	)

	s.health.RegisterHealthEndpoints(s.engine)

	s.engine.POST("/check-availability", s.checkAvailability)
	s.engine.POST("/book-event", s.bookEvent)
	s.engine.POST("/find-open-slots", s.findOpenSlots)
	s.engine.POST("/book", s.book)
	s.engine.POST("/chat", s.chat)

	if sc.OAuthConfig() != nil && sc.Tokens() != nil {
		flow, err := NewOAuthFlow(OAuthFlowConfig{
			OAuthConfig:     sc.OAuthConfig(),
			Tokens:          sc.Tokens(),
			FrontendURL:     sc.Config().FrontendURL,
			HashKey:         sc.Config().CookieHashKey,
			Metrics:         sc.Metrics(),
			Logger:          s.logger,
			UserinfoOptions: config.UserinfoOptions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up Google sign-in: %w", err)
		}
		flow.Register(s.engine)
	} else {
		s.engine.GET("/auth/google", s.signInUnavailable)
		s.engine.GET("/auth/google/callback", s.signInUnavailable)
	}

	return s, nil
}

// Handler returns the HTTP handler of the API.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// Health returns the health checker, e.g. to flip readiness during shutdown.
func (s *APIServer) Health() *HealthChecker {
	return s.health
}

// Addr returns the configured address.
func (s *APIServer) Addr() string {
	return s.addr
}

// Start serves the API in a blocking manner.
func (s *APIServer) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: DefaultAPIReadHeaderTimeout,
		WriteTimeout:      DefaultAPIWriteTimeout,
		IdleTimeout:       DefaultAPIIdleTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting API server", "addr", s.addr)
	return srv.ListenAndServe()
}

// Shutdown stops accepting traffic and waits for in-flight requests.
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return srv.Shutdown(ctx)
}

// bindJSON decodes the request body into v. Malformed JSON is an InvalidInput.
func (s *APIServer) bindJSON(c *gin.Context, v interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, s.logger, apperror.InvalidInput("invalid JSON body: %v", err))
		return false
	}
	return true
}

func (s *APIServer) respond(c *gin.Context, v interface{}, err error) {
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *APIServer) checkAvailability(c *gin.Context) {
	var req booking.CheckAvailabilityRequest
	if !s.bindJSON(c, &req) {
		return
	}
	resp, err := s.sc.Booking().CheckAvailability(c.Request.Context(), req)
	s.respond(c, resp, err)
}

func (s *APIServer) bookEvent(c *gin.Context) {
	var req booking.BookEventRequest
	if !s.bindJSON(c, &req) {
		return
	}
	ctx := booking.WithChannel(c.Request.Context(), booking.ChannelAPI)
	resp, err := s.sc.Booking().BookEvent(ctx, req)
	s.respond(c, resp, err)
}

func (s *APIServer) findOpenSlots(c *gin.Context) {
	var req booking.FindOpenSlotsRequest
	if !s.bindJSON(c, &req) {
		return
	}
	resp, err := s.sc.Booking().FindOpenSlots(c.Request.Context(), req)
	s.respond(c, resp, err)
}

func (s *APIServer) book(c *gin.Context) {
	var req booking.BookRequest
	if !s.bindJSON(c, &req) {
		return
	}
	ctx := booking.WithChannel(c.Request.Context(), booking.ChannelAPI)
	resp, err := s.sc.Booking().Book(ctx, req)
	s.respond(c, resp, err)
}

func (s *APIServer) chat(c *gin.Context) {
	responder := s.sc.Chat()
	if responder == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "chat is not configured",
			Kind:  string(apperror.KindUpstream),
		})
		return
	}

	var req chat.Request
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(c, s.logger, apperror.InvalidInput("invalid chat request: %v", err))
		return
	}

	ctx := booking.WithChannel(c.Request.Context(), booking.ChannelChat)
	ctx = chat.WithAccount(ctx, req.UserEmail)

	reply, err := responder.Respond(ctx, req.Messages)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, chat.Response{Response: reply})
}

func (s *APIServer) signInUnavailable(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
		"error": "Google sign-in is not configured; set GOOGLE_CLIENT_SECRETS_FILE",
	})
}
