package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/oauth2"

	"github.com/teemow/calmate/internal/booking"
	"github.com/teemow/calmate/internal/calendar"
	"github.com/teemow/calmate/internal/config"
	"github.com/teemow/calmate/internal/google"
	"github.com/teemow/calmate/internal/instrumentation"
	"github.com/teemow/calmate/internal/logging"
	"github.com/teemow/calmate/internal/server"
	"github.com/teemow/calmate/internal/timeparse"
)

// app bundles the components shared by serve, mcp and generate-docs.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	sc       *server.ServerContext
}

type appOptions struct {
	// logOutput receives all log lines. The mcp command keeps stdout for the
	// protocol, so everything logs to stderr.
	logOutput io.Writer

	// telemetry creates an exporting instrumentation provider. Without it a
	// noop provider is used.
	telemetry bool

	// userTokens replaces the token files as the source of per-user tokens.
	userTokens google.TokenProvider

	// surface is reported as the calmate.surface resource attribute.
	surface string
}

// loadConfig loads the configuration and applies the global flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if debugMode {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, w)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// newParser builds the time extractor with the configured meridiem policy.
func newParser(cfg config.Config) *timeparse.Parser {
	return timeparse.New(cfg.TimeZone, timeparse.WithPolicy(timeparse.MeridiemPolicy{
		Default:    timeparse.ParseMeridiem(cfg.AmbiguousTimeDefault),
		TodayAware: cfg.AmbiguousTimeTodayAware,
	}))
}

// loadOAuthConfig returns the Google consent configuration, or nil when the
// client secrets file does not exist. Per-user sessions are then disabled.
func loadOAuthConfig(cfg config.Config, logger *slog.Logger) (*oauth2.Config, error) {
	if cfg.ClientSecretsFile == "" {
		return nil, nil
	}
	if _, err := os.Stat(cfg.ClientSecretsFile); errors.Is(err, fs.ErrNotExist) {
		logger.Info("Google client secrets not found; per-user sign-in disabled",
			slog.String("file", cfg.ClientSecretsFile))
		return nil, nil
	}
	return google.LoadOAuthConfig(cfg.ClientSecretsFile, cfg.OAuthRedirectURL(), google.DefaultOAuthScopes...)
}

// deployment describes the scheduling setup for the telemetry resource.
func deployment(cfg config.Config, opts appOptions, userSignIn bool) instrumentation.Deployment {
	mode := instrumentation.CalendarModeService
	switch {
	case opts.userTokens != nil:
		mode = instrumentation.CalendarModeCaller
	case userSignIn:
		mode = instrumentation.CalendarModePerUser
	}
	return instrumentation.Deployment{
		TimeZone:        cfg.TimeZone.String(),
		CalendarMode:    mode,
		Surface:         opts.surface,
		WindowStartHour: cfg.SlotWindowStartHour,
		WindowEndHour:   cfg.SlotWindowEndHour,
	}
}

// newApp wires configuration, credentials, the booking service and
// instrumentation into a ServerContext.
func newApp(ctx context.Context, cfg config.Config, opts appOptions) (*app, error) {
	logger, err := newLogger(cfg, opts.logOutput)
	if err != nil {
		return nil, err
	}

	oauthConfig, err := loadOAuthConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load Google client secrets: %w", err)
	}

	provider := instrumentation.NewNoopProvider()
	var audit *instrumentation.AuditLogger
	if opts.telemetry {
		instrConfig := instrumentation.DefaultConfig()
		instrConfig.ServiceVersion = version
		instrConfig.Deployment = deployment(cfg, opts, oauthConfig != nil)

		provider, err = instrumentation.NewProvider(ctx, instrConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
		}
		audit = instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)
	}

	tokens := google.NewFileTokenStore(cfg.TokensDir)
	var userTokens google.TokenProvider = tokens
	if opts.userTokens != nil {
		userTokens = opts.userTokens
	}

	sessions := calendar.NewSessionFactory(calendar.SessionConfig{
		Location:           cfg.TimeZone,
		ServiceAccountFile: cfg.ServiceAccountFile,
		ServiceCalendarID:  cfg.CalendarID,
		OAuthConfig:        oauthConfig,
		Tokens:             userTokens,
		Metrics:            provider.Metrics(),
	})

	parser := newParser(cfg)
	svc := booking.NewService(booking.ServiceConfig{
		Sessions: booking.FactorySessions(sessions),
		Parser:   parser,
		Workflow: booking.NewWorkflow(parser,
			booking.WithDuration(cfg.BookingDuration),
			booking.WithSummary(cfg.BookingSummary),
		),
		Slots: booking.NewSlotFinder(booking.SlotFinderConfig{
			Location:        cfg.TimeZone,
			WindowStartHour: cfg.SlotWindowStartHour,
			WindowEndHour:   cfg.SlotWindowEndHour,
			Concurrency:     cfg.SlotCheckConcurrency,
		}),
		Metrics: provider.Metrics(),
		Audit:   audit,
		Logger:  logger,
	})

	sc, err := server.NewServerContext(ctx, server.Options{
		Config:          &cfg,
		Booking:         svc,
		Tokens:          tokens,
		OAuthConfig:     oauthConfig,
		Instrumentation: provider,
		AuditLogger:     audit,
		Logger:          logger,
	})
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}

	return &app{cfg: cfg, logger: logger, provider: provider, sc: sc}, nil
}

// close releases the server context and flushes telemetry.
func (a *app) close(ctx context.Context) {
	if err := a.sc.Shutdown(); err != nil {
		a.logger.Warn("error during server context shutdown", logging.Err(err))
	}
	if err := a.provider.Shutdown(ctx); err != nil {
		a.logger.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}
